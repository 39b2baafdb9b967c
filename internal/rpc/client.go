package rpc

import (
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"muxd/internal/muxerr"
)

// Client is the connection-side counterpart of Server: it dials a daemon
// endpoint and drives the request/response and streaming-attach halves of
// the protocol.
type Client struct {
	conn net.Conn

	// writeMu serializes frame writes: roundTrip and an active
	// Attachment's Input/Resize/Detach all write to the same conn, and the
	// background pump goroutine reads concurrently with all of them.
	writeMu sync.Mutex
}

func (c *Client) writeFrame(typ Type, v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return WriteFrame(c.conn, typ, v)
}

// Dial parses addr as a scheme://rest URI and connects. Supported schemes
// are "unix" and "tcp"; any other scheme (including the "ws"/"pipe" schemes
// named in the wire format but requiring transports outside this module's
// dependency set), or an address with no scheme at all, returns an
// ArgumentError.
func Dial(addr string) (*Client, error) {
	return DialTimeout(addr, 0)
}

// DialTimeout is Dial with an explicit connect timeout; zero means no
// timeout.
func DialTimeout(addr string, timeout time.Duration) (*Client, error) {
	scheme, rest, ok := strings.Cut(addr, "://")
	if !ok {
		return nil, muxerr.New(muxerr.ArgumentError, fmt.Sprintf("address %q has no scheme", addr))
	}

	var network, address string
	switch scheme {
	case "unix":
		network, address = "unix", rest
	case "tcp":
		network, address = "tcp", rest
	default:
		return nil, muxerr.New(muxerr.ArgumentError, fmt.Sprintf("unsupported transport scheme %q", scheme))
	}

	var conn net.Conn
	var err error
	if timeout > 0 {
		conn, err = net.DialTimeout(network, address, timeout)
	} else {
		conn, err = net.Dial(network, address)
	}
	if err != nil {
		return nil, muxerr.Wrap(muxerr.ConnectFailed, "dial "+addr, err)
	}
	return &Client{conn: conn}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// roundTrip writes a request frame and reads back exactly one response
// frame, handling the ErrorResponse case uniformly.
func (c *Client) roundTrip(reqType Type, req any, okType Type, okDst any) error {
	if err := c.writeFrame(reqType, req); err != nil {
		return muxerr.Wrap(muxerr.Framing, "write "+string(reqType), err)
	}
	typ, payload, err := ReadFrame(c.conn)
	if err != nil {
		return muxerr.Wrap(muxerr.Framing, "read response to "+string(reqType), err)
	}
	if typ == TypeErrorResponse {
		var e ErrorResponse
		if derr := Decode(payload, &e); derr != nil {
			return muxerr.Wrap(muxerr.Framing, "decode error_response", derr)
		}
		return &muxerr.Error{Kind: kindFromWire(e.Kind), Message: e.Message}
	}
	if typ != okType {
		return muxerr.New(muxerr.Protocol, "expected "+string(okType)+", got "+string(typ))
	}
	return Decode(payload, okDst)
}

func kindFromWire(s string) muxerr.Kind {
	switch s {
	case "not_found":
		return muxerr.NotFound
	case "already_exists":
		return muxerr.AlreadyExists
	case "already_attached":
		return muxerr.AlreadyAttached
	case "not_running":
		return muxerr.NotRunning
	case "connect_failed":
		return muxerr.ConnectFailed
	case "framing":
		return muxerr.Framing
	case "protocol":
		return muxerr.Protocol
	case "spawn_failed":
		return muxerr.SpawnFailed
	case "cancelled":
		return muxerr.Cancelled
	case "argument_error":
		return muxerr.ArgumentError
	default:
		return muxerr.Unknown
	}
}

// List returns every session descriptor the daemon currently tracks.
func (c *Client) List() ([]SessionDescriptor, error) {
	var resp ListResponse
	if err := c.roundTrip(TypeListRequest, ListRequest{}, TypeListResponse, &resp); err != nil {
		return nil, err
	}
	return resp.Sessions, nil
}

// Create asks the daemon to spawn a new session.
func (c *Client) Create(id string, opts PTYOptions) (SessionDescriptor, error) {
	var resp CreateResponse
	err := c.roundTrip(TypeCreateRequest, CreateRequest{ID: id, Options: opts}, TypeCreateResponse, &resp)
	return resp.Descriptor, err
}

// Kill asks the daemon to terminate a session.
func (c *Client) Kill(id string, force bool) (bool, error) {
	var resp KillResponse
	err := c.roundTrip(TypeKillRequest, KillRequest{ID: id, Force: force}, TypeKillResponse, &resp)
	return resp.Killed, err
}

// Attachment is the client-side handle to an active streaming attach: an
// output channel, an input writer, a resize/detach pair, and the initial
// buffered replay.
type Attachment struct {
	Descriptor     SessionDescriptor
	BufferedOutput []byte

	client *Client
	output chan []byte
	errs   chan error
	once   sync.Once
}

// Output streams OutputFrame payloads in arrival order; it is closed when
// the session exits or the attachment is detached.
func (a *Attachment) Output() <-chan []byte { return a.output }

// Err returns a channel that receives at most one error if the egress
// reader fails (e.g. connection loss); closed otherwise once Output closes.
func (a *Attachment) Err() <-chan error { return a.errs }

// Input sends bytes to the attached session.
func (a *Attachment) Input(p []byte) error {
	return a.client.writeFrame(TypeInputFrame, InputFrame{Bytes: p})
}

// Resize requests a PTY resize for the attached session.
func (a *Attachment) Resize(cols, rows int) error {
	return a.client.writeFrame(TypeResizeFrame, ResizeFrame{Cols: cols, Rows: rows})
}

// Detach ends the streaming attach, returning the connection to
// request/response mode once Output() closes (signaled by the server's
// TypeDetachResponse). Safe to call more than once; only the first call
// writes the request.
func (a *Attachment) Detach() error {
	var err error
	a.once.Do(func() {
		err = a.client.writeFrame(TypeDetachRequest, DetachRequest{})
	})
	return err
}

// Attach opens a streaming attach to id and starts the egress reader.
func (c *Client) Attach(id string, cols, rows int, primary bool) (*Attachment, error) {
	var resp AttachResponse
	req := AttachRequest{ID: id, Cols: cols, Rows: rows, Primary: primary}
	if err := c.roundTrip(TypeAttachRequest, req, TypeAttachResponse, &resp); err != nil {
		return nil, err
	}

	a := &Attachment{
		Descriptor:     resp.Descriptor,
		BufferedOutput: resp.BufferedOutput,
		client:         c,
		output:         make(chan []byte, 64),
		errs:           make(chan error, 1),
	}
	go a.pump()
	return a, nil
}

// pump reads OutputFrame/ExitFrame messages until the stream ends, then
// closes Output.
func (a *Attachment) pump() {
	defer close(a.output)
	defer close(a.errs)
	for {
		typ, payload, err := ReadFrame(a.client.conn)
		if err != nil {
			select {
			case a.errs <- err:
			default:
			}
			return
		}
		switch typ {
		case TypeOutputFrame:
			var f OutputFrame
			if err := Decode(payload, &f); err != nil {
				continue
			}
			a.output <- f.Bytes
		case TypeExitFrame:
			return
		case TypeDetachResponse:
			return
		default:
			return
		}
	}
}
