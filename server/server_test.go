package server

import (
	"bufio"
	"bytes"
	"net"
	"testing"
	"time"

	"github.com/lattice-io/wsrelay/frame"
	"github.com/lattice-io/wsrelay/selector"
	"github.com/lattice-io/wsrelay/wsconn"
)

const testKey = "x3JJHMbDL1EzLkh9GBhXDw=="
const testAccept = "HSmrc0sMlYUkAGmm5OPpG2HaGWk="

func handshakeRequest() []byte {
	return []byte("GET /ws HTTP/1.1\r\n" +
		"Host: example.com\r\n" +
		"Sec-WebSocket-Key: " + testKey + "\r\n" +
		"Sec-WebSocket-Version: 13\r\n" +
		"\r\n")
}

func readUpgradeResponse(t *testing.T, conn net.Conn) string {
	t.Helper()
	r := bufio.NewReader(conn)
	var sb bytes.Buffer
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			t.Fatalf("reading response: %v", err)
		}
		sb.WriteString(line)
		if line == "\r\n" {
			break
		}
	}
	return sb.String()
}

func TestStartAcceptStop(t *testing.T) {
	var upgraded = make(chan *wsconn.Conn, 1)

	opts := DefaultOptions()
	opts.BindAddress = "127.0.0.1"
	opts.BindPort = 0

	s := New(opts, NewConnFactory(wsconn.Hooks{
		OnUpgraded: func(c *wsconn.Conn) { upgraded <- c },
	}))

	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if err := s.Start(); err != ErrAlreadyRunning {
		t.Fatalf("second Start: got %v, want ErrAlreadyRunning", err)
	}

	client, err := net.Dial("tcp", s.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()

	if _, err := client.Write(handshakeRequest()); err != nil {
		t.Fatalf("write handshake: %v", err)
	}
	resp := readUpgradeResponse(t, client)
	if !bytes.Contains([]byte(resp), []byte("Sec-WebSocket-Accept: "+testAccept)) {
		t.Fatalf("unexpected response:\n%s", resp)
	}

	select {
	case <-upgraded:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for OnUpgraded")
	}

	if len(s.Snapshot()) != 1 {
		t.Fatalf("expected 1 registered connection, got %d", len(s.Snapshot()))
	}

	stopDone := make(chan error, 1)
	go func() { stopDone <- s.Stop() }()

	select {
	case err := <-stopDone:
		if err != nil {
			t.Fatalf("Stop: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Stop did not return within bound")
	}

	if err := s.Stop(); err != ErrNotRunning {
		t.Fatalf("second Stop: got %v, want ErrNotRunning", err)
	}
}

func TestDisconnectClientRejectsForeignConn(t *testing.T) {
	opts := DefaultOptions()
	s := New(opts, NewConnFactory(wsconn.Hooks{}))

	server, _ := net.Pipe()
	foreign := wsconn.New(server, wsconn.DefaultOptions(), wsconn.Hooks{}, nil)

	if err := s.DisconnectClient(foreign, wsconn.ReasonRequested, ""); err != ErrNotInServer {
		t.Fatalf("got %v, want ErrNotInServer", err)
	}
}

func TestQueueSendReachesUpgradedPeer(t *testing.T) {
	received := make(chan string, 1)

	opts := DefaultOptions()
	opts.BindAddress = "127.0.0.1"
	opts.BindPort = 0

	upgraded := make(chan *wsconn.Conn, 1)
	s := New(opts, NewConnFactory(wsconn.Hooks{
		OnUpgraded: func(c *wsconn.Conn) { upgraded <- c },
	}))

	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop()

	client, err := net.Dial("tcp", s.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()

	client.Write(handshakeRequest())
	readUpgradeResponse(t, client)
	<-upgraded

	s.QueueSend(selector.AllUpgraded(), "hello peers")

	raw := make([]byte, 256)
	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	n, err := client.Read(raw)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	f, _, err := frame.Decode(raw[:n])
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	received <- string(f.Payload)

	if got := <-received; got != "hello peers" {
		t.Fatalf("got %q, want %q", got, "hello peers")
	}
}
