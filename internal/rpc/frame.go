// Package rpc implements the wire protocol between the muxd daemon and its
// clients: a length-prefixed, self-describing JSON frame codec, the
// message inventory it carries, a per-connection dispatcher, and a client
// stub.
package rpc

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
)

// MaxPayloadSize bounds a single frame's payload. A frame whose declared
// length exceeds this closes the connection rather than allocating an
// attacker- (or bug-) controlled amount of memory.
const MaxPayloadSize = 16 * 1024 * 1024 // 16 MiB

// Type discriminates the payload carried by a Frame. The wire value is the
// lowercase string in the "type" field, not the Go constant name, so the format
// stays self-describing independent of field ordering across versions.
type Type string

const (
	TypeListRequest    Type = "list_request"
	TypeListResponse   Type = "list_response"
	TypeCreateRequest  Type = "create_request"
	TypeCreateResponse Type = "create_response"
	TypeAttachRequest  Type = "attach_request"
	TypeAttachResponse Type = "attach_response"
	TypeInputFrame     Type = "input_frame"
	TypeResizeFrame    Type = "resize_frame"
	TypeDetachRequest  Type = "detach_request"
	// TypeDetachResponse is an implementation-only handshake sent by the
	// dispatcher once it has fully unwound a streaming attachment back to
	// request/response mode, so the client's egress reader knows it is
	// safe to stop consuming the connection. It carries no information a
	// client needs beyond "detach complete" and is not part of spec.md's
	// logical message inventory (§4.6), which only specifies the
	// business-level messages; this is wire-level plumbing for safely
	// multiplexing streaming and request/response phases on one connection.
	TypeDetachResponse Type = "detach_response"
	TypeOutputFrame    Type = "output_frame"
	TypeExitFrame      Type = "exit_frame"
	TypeKillRequest    Type = "kill_request"
	TypeKillResponse   Type = "kill_response"
	TypeErrorResponse  Type = "error_response"
)

// envelope is the wire shape every frame is unmarshaled/remarshaled
// through: a discriminator first, then a raw payload object holding the
// type-specific fields. json.RawMessage defers decoding of the payload
// until the type is known.
type envelope struct {
	Type    Type            `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// WriteFrame encodes v as the payload of a frame of the given type and
// writes the 4-byte length prefix followed by the frame bytes to w.
func WriteFrame(w io.Writer, typ Type, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("rpc: marshal %s payload: %w", typ, err)
	}
	buf, err := json.Marshal(envelope{Type: typ, Payload: payload})
	if err != nil {
		return fmt.Errorf("rpc: marshal envelope: %w", err)
	}
	if len(buf) > MaxPayloadSize {
		return fmt.Errorf("rpc: frame payload %d bytes exceeds max %d", len(buf), MaxPayloadSize)
	}

	var lenPrefix [4]byte
	binary.BigEndian.PutUint32(lenPrefix[:], uint32(len(buf)))
	if _, err := w.Write(lenPrefix[:]); err != nil {
		return fmt.Errorf("rpc: write length prefix: %w", err)
	}
	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("rpc: write frame body: %w", err)
	}
	return nil
}

// ReadFrame reads one length-prefixed frame from r, returning its type tag
// and the still-undecoded payload bytes for the caller to unmarshal into
// the concrete type matching Type.
func ReadFrame(r io.Reader) (Type, json.RawMessage, error) {
	var lenPrefix [4]byte
	if _, err := io.ReadFull(r, lenPrefix[:]); err != nil {
		return "", nil, err
	}
	n := binary.BigEndian.Uint32(lenPrefix[:])
	if n > MaxPayloadSize {
		return "", nil, fmt.Errorf("rpc: frame declares %d bytes, exceeds max %d", n, MaxPayloadSize)
	}

	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", nil, fmt.Errorf("rpc: read frame body: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(buf, &env); err != nil {
		return "", nil, fmt.Errorf("rpc: unmarshal envelope: %w", err)
	}
	return env.Type, env.Payload, nil
}

// Decode unmarshals a frame's raw payload into dst (a pointer to the
// concrete payload struct matching its Type).
func Decode(payload json.RawMessage, dst any) error {
	return json.Unmarshal(payload, dst)
}
