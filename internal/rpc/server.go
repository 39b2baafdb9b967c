package rpc

import (
	"io"
	"log"
	"net"
	"sync"
	"sync/atomic"

	"muxd/internal/host"
	"muxd/internal/muxerr"
	"muxd/internal/session"
)

// connIDSeq generates unique per-connection subscriber ids.
var connIDSeq uint64

// Server dispatches accepted connections against a Host, implementing the
// request/response <-> streaming-attach protocol of the frame codec.
type Server struct {
	Host *host.Host
}

// NewServer returns a Server dispatching requests to h.
func NewServer(h *host.Host) *Server {
	return &Server{Host: h}
}

// Serve accepts connections from ln until it returns an error (typically
// because the listener was closed), handling each on its own goroutine.
func (srv *Server) Serve(ln net.Listener) error {
	for {
		conn, err := ln.Accept()
		if err != nil {
			return err
		}
		go srv.handleConn(conn)
	}
}

// safeConn serializes frame writes across the dispatcher's main goroutine
// and the per-attachment egress goroutine, both of which write to the same
// net.Conn while a session is attached.
type safeConn struct {
	net.Conn
	mu sync.Mutex
}

func (c *safeConn) writeFrame(typ Type, v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return WriteFrame(c.Conn, typ, v)
}

// handleConn runs one connection's full lifecycle: request/response mode,
// possibly interrupted by attach sessions that switch it into streaming
// mode and back.
func (srv *Server) handleConn(conn net.Conn) {
	sc := &safeConn{Conn: conn}
	defer sc.Close()
	for {
		typ, payload, err := ReadFrame(sc.Conn)
		if err != nil {
			return // connection closed or framing error: nothing more to do
		}

		switch typ {
		case TypeListRequest:
			srv.handleList(sc)
		case TypeCreateRequest:
			srv.handleCreate(sc, payload)
		case TypeAttachRequest:
			if !srv.handleAttach(sc, payload) {
				return
			}
		case TypeKillRequest:
			srv.handleKill(sc, payload)
		default:
			srv.sendError(sc, muxerr.Protocol, "unexpected message type "+string(typ))
			return
		}
	}
}

func descriptorToWire(d session.Descriptor) SessionDescriptor {
	return SessionDescriptor{
		ID:        d.ID,
		Command:   d.Command,
		Cwd:       d.Cwd,
		State:     d.State.String(),
		ExitCode:  d.ExitCode,
		Cols:      d.Cols,
		Rows:      d.Rows,
		CreatedAt: d.CreatedAt,
	}
}

func (srv *Server) handleList(sc *safeConn) {
	descriptors := srv.Host.List()
	sessions := make([]SessionDescriptor, 0, len(descriptors))
	for _, d := range descriptors {
		sessions = append(sessions, descriptorToWire(d))
	}
	srv.send(sc, TypeListResponse, ListResponse{Sessions: sessions})
}

func (srv *Server) handleCreate(sc *safeConn, payload []byte) {
	var req CreateRequest
	if err := Decode(payload, &req); err != nil {
		srv.sendError(sc, muxerr.Framing, "malformed create_request: "+err.Error())
		return
	}

	opts := session.Options{
		Command: req.Options.Command,
		Argv:    req.Options.Arguments,
		Cwd:     req.Options.WorkingDir,
		Env:     req.Options.Environment,
		Cols:    req.Options.Cols,
		Rows:    req.Options.Rows,
	}
	if req.Options.IdleTimeout != nil {
		opts.IdleTimeout = *req.Options.IdleTimeout
	}

	d, err := srv.Host.Create(req.ID, opts)
	if err != nil {
		srv.sendMuxErr(sc, err)
		return
	}
	srv.send(sc, TypeCreateResponse, CreateResponse{Descriptor: descriptorToWire(d)})
}

func (srv *Server) handleKill(sc *safeConn, payload []byte) {
	var req KillRequest
	if err := Decode(payload, &req); err != nil {
		srv.sendError(sc, muxerr.Framing, "malformed kill_request: "+err.Error())
		return
	}
	killed, err := srv.Host.Kill(req.ID, req.Force)
	if err != nil {
		srv.sendMuxErr(sc, err)
		return
	}
	srv.send(sc, TypeKillResponse, KillResponse{Killed: killed})
}

// handleAttach runs the streaming-attach sub-protocol to completion,
// returning false if the connection should be closed (framing error,
// client disconnect) and true if it should return to request/response mode.
func (srv *Server) handleAttach(sc *safeConn, payload []byte) bool {
	req := AttachRequest{Primary: true}
	if err := Decode(payload, &req); err != nil {
		srv.sendError(sc, muxerr.Framing, "malformed attach_request: "+err.Error())
		return false
	}

	s, ok := srv.Host.Get(req.ID)
	if !ok {
		srv.sendError(sc, muxerr.NotFound, "session "+req.ID+" not found")
		return true
	}

	if req.Cols > 0 && req.Rows > 0 {
		if err := s.Resize(req.Cols, req.Rows); err != nil {
			srv.sendMuxErr(sc, err)
			return true
		}
	}

	subID := subscriberID()
	sub := session.NewSubscriber(subID)
	replay, err := s.Attach(sub, req.Primary)
	if err != nil {
		srv.sendMuxErr(sc, err)
		return true
	}

	if err := srv.send(sc, TypeAttachResponse, AttachResponse{
		Descriptor:     descriptorToWire(s.Descriptor()),
		BufferedOutput: replay,
	}); err != nil {
		s.Detach(subID)
		return false
	}

	return srv.streamAttached(sc, s, sub)
}

// streamAttached pumps session output to the connection and connection
// input to the session until detach, exit, or connection loss. It always
// detaches sub before returning, and acknowledges an explicit detach with
// TypeDetachResponse so the client's egress reader knows when it is safe
// to stop consuming the connection.
func (srv *Server) streamAttached(sc *safeConn, s *session.Session, sub *session.Subscriber) bool {
	egressDone := make(chan struct{})
	go func() {
		defer close(egressDone)
		for {
			select {
			case chunk, ok := <-sub.Out():
				if !ok {
					return
				}
				if err := srv.send(sc, TypeOutputFrame, OutputFrame{Bytes: chunk}); err != nil {
					return
				}
			case <-sub.Done():
				// Drain whatever is already queued before signaling exit,
				// preserving the "output before exit" ordering guarantee.
				for {
					select {
					case chunk, ok := <-sub.Out():
						if !ok {
							return
						}
						if err := srv.send(sc, TypeOutputFrame, OutputFrame{Bytes: chunk}); err != nil {
							return
						}
					default:
						if s.State() == session.Exited {
							code := 0
							if d := s.Descriptor(); d.ExitCode != nil {
								code = *d.ExitCode
							}
							srv.send(sc, TypeExitFrame, ExitFrame{ExitCode: code})
						}
						return
					}
				}
			}
		}
	}()

	returning := true
	detached := false
loop:
	for {
		typ, payload, err := ReadFrame(sc.Conn)
		if err != nil {
			returning = false
			break loop
		}
		switch typ {
		case TypeInputFrame:
			var f InputFrame
			if err := Decode(payload, &f); err == nil {
				s.SendInput(f.Bytes)
			}
		case TypeResizeFrame:
			var f ResizeFrame
			if err := Decode(payload, &f); err == nil {
				s.Resize(f.Cols, f.Rows)
			}
		case TypeDetachRequest:
			detached = true
			break loop
		default:
			srv.sendError(sc, muxerr.Protocol, "unexpected message type "+string(typ)+" while attached")
			returning = false
			break loop
		}
	}

	s.Detach(sub.ID)
	<-egressDone
	if detached {
		srv.send(sc, TypeDetachResponse, DetachResponse{})
	}
	return returning
}

func subscriberID() string {
	n := atomic.AddUint64(&connIDSeq, 1)
	return "sub-" + itoa(n)
}

func itoa(n uint64) string {
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}

func (srv *Server) send(sc *safeConn, typ Type, v any) error {
	if err := sc.writeFrame(typ, v); err != nil {
		if err != io.EOF {
			log.Printf("rpc: write frame: %v", err)
		}
		return err
	}
	return nil
}

func (srv *Server) sendError(sc *safeConn, kind muxerr.Kind, message string) {
	srv.send(sc, TypeErrorResponse, ErrorResponse{Kind: kind.String(), Message: message})
}

func (srv *Server) sendMuxErr(sc *safeConn, err error) {
	srv.sendError(sc, muxerr.KindOf(err), err.Error())
}
