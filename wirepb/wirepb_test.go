package wirepb

import (
	"context"
	"testing"

	"github.com/golang/protobuf/proto"
)

func TestEnvelopeMarshalUnmarshalRoundTrip(t *testing.T) {
	want := &Envelope{Event: "chat.message", Data: []byte("hello")}

	encoded, err := proto.Marshal(want)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	got := &Envelope{}
	if err := Read(context.Background(), encoded, got); err != nil {
		t.Fatalf("Read: %v", err)
	}

	if got.Event != want.Event || string(got.Data) != string(want.Data) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestReadRejectsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := Read(ctx, nil, &Envelope{}); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}

func TestEnvelopeStringIncludesEventName(t *testing.T) {
	e := &Envelope{Event: "ping", Data: []byte{1, 2}}
	if s := e.String(); s == "" {
		t.Fatal("String() returned empty string")
	}
}
