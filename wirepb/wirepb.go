// Package wirepb provides a typed binary envelope over a wsconn.Conn, for
// hosts that want structured messages instead of hand-rolling framing on
// top of wsconn.Conn.QueueSendBinary/the OnData hook.
//
// Grounded on the teacher's wspb package. That package read and wrote
// protobuf messages against a connection with a synchronous Read API;
// wsrelay's wsconn.Conn is hook-driven (OnData delivers a payload, it
// doesn't block waiting for one), so Write still takes a *wsconn.Conn but
// Read operates on a payload already delivered to OnData rather than
// pulling one off the wire itself.
package wirepb

import (
	"context"
	"fmt"

	"github.com/golang/protobuf/proto"

	"github.com/lattice-io/wsrelay/internal/bpool"
	"github.com/lattice-io/wsrelay/wsconn"
)

// Envelope is a minimal hand-declared protobuf message: an event name plus
// an opaque payload. Declared by hand with the classic Reset/String/
// ProtoMessage trio and protobuf struct tags, the way hand-written
// protobuf messages looked before code generation became universal.
type Envelope struct {
	Event string `protobuf:"bytes,1,opt,name=event" json:"event,omitempty"`
	Data  []byte `protobuf:"bytes,2,opt,name=data" json:"data,omitempty"`
}

func (e *Envelope) Reset() { *e = Envelope{} }

func (e *Envelope) String() string {
	return fmt.Sprintf("Envelope{Event:%q, Data:%d bytes}", e.Event, len(e.Data))
}

func (e *Envelope) ProtoMessage() {}

// Write marshals v and enqueues it as a single Binary message on c. It
// reuses a pooled buffer between calls to avoid allocating on every call,
// mirroring wspb.go's "reuse buffers in between calls" comment.
func Write(ctx context.Context, c *wsconn.Conn, v proto.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b := bpool.Get()
	defer bpool.Put(b)

	pb := proto.NewBuffer(b.Bytes())
	if err := pb.Marshal(v); err != nil {
		return fmt.Errorf("wirepb: marshal: %w", err)
	}

	payload := make([]byte, len(pb.Bytes()))
	copy(payload, pb.Bytes())
	// Keep the needed capacity in the pooled buffer for the next call.
	b.Grow(len(payload))

	if err := c.QueueSendBinary(payload); err != nil {
		return fmt.Errorf("wirepb: enqueue: %w", err)
	}
	return nil
}

// Read unmarshals a Binary payload already delivered through OnData into
// v. Callers typically invoke this from their wsconn.Hooks.OnData handler.
func Read(ctx context.Context, payload []byte, v proto.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := proto.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("wirepb: unmarshal: %w", err)
	}
	return nil
}

// WriteEnvelope is a convenience wrapper that builds an Envelope from an
// event name and raw data before writing it.
func WriteEnvelope(ctx context.Context, c *wsconn.Conn, event string, data []byte) error {
	return Write(ctx, c, &Envelope{Event: event, Data: data})
}
