// Package server implements the server-wide supervisor (spec.md §4.4): it
// binds a listener, accepts TCP peers, constructs a wsconn.Conn for each
// via a factory hook, tracks them in a registry, and performs cooperative
// shutdown that disconnects every peer with ReasonServerShutdown before
// releasing the listener.
package server

import (
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lattice-io/wsrelay/cluster"
	"github.com/lattice-io/wsrelay/selector"
	"github.com/lattice-io/wsrelay/wsconn"
)

// acceptPollInterval bounds how long a single Accept call blocks, so Stop
// observes the stop-requested flag quickly per spec.md §5.
const acceptPollInterval = 500 * time.Millisecond

// Options configures a Server: bind address, the protocol-engine options
// every accepted connection inherits, and ambient concerns (logging,
// optional cluster fan-out). A plain struct built by the caller, not a
// fluent builder chain, per spec.md §9.
type Options struct {
	BindAddress string
	BindPort    int

	Conn wsconn.Options

	Logger         *slog.Logger
	ClusterAdapter cluster.Adapter
}

// DefaultOptions returns the recognized defaults from spec.md §3.
func DefaultOptions() Options {
	return Options{
		BindAddress: "127.0.0.1",
		BindPort:    0,
		Conn:        wsconn.DefaultOptions(),
	}
}

// Factory builds a wsconn.Conn for a freshly accepted net.Conn. Hosts
// supply one, most commonly via NewConnFactory with a fixed set of hooks.
type Factory func(netConn net.Conn, opts wsconn.Options, logger *slog.Logger) *wsconn.Conn

// NewConnFactory returns a Factory wrapping wsconn.New with a fixed Hooks
// value, the common case where every connection shares the same handlers.
func NewConnFactory(hooks wsconn.Hooks) Factory {
	return func(netConn net.Conn, opts wsconn.Options, logger *slog.Logger) *wsconn.Conn {
		return wsconn.New(netConn, opts, hooks, logger)
	}
}

// Server binds an address and options; tracks running/stop-requested
// state; owns a connection registry; and drives the accept loop plus one
// goroutine per accepted connection's Handle call.
type Server struct {
	opts    Options
	factory Factory
	logger  *slog.Logger

	listener net.Listener

	running       atomic.Bool
	stopRequested atomic.Bool

	reg *registry

	acceptDone chan struct{}
	handling   sync.WaitGroup

	clusterInbox chan *cluster.BroadcastMsg
}

// New constructs a Server in the not-running state. Call Start to bind and
// begin accepting.
func New(opts Options, factory Factory) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		opts:    opts,
		factory: factory,
		logger:  logger,
		reg:     newRegistry(),
	}
}

// Start binds the listener and begins accepting TCP peers on a background
// goroutine. Fails with ErrAlreadyRunning if already started.
func (s *Server) Start() error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}

	addr := fmt.Sprintf("%s:%d", s.opts.BindAddress, s.opts.BindPort)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		s.running.Store(false)
		return err
	}
	s.listener = ln
	s.acceptDone = make(chan struct{})
	s.stopRequested.Store(false)

	if s.opts.ClusterAdapter != nil {
		s.opts.ClusterAdapter.Init()
		s.clusterInbox = make(chan *cluster.BroadcastMsg, 64)
		go s.opts.ClusterAdapter.BroadcastFromBackend(s.clusterInbox)
		go s.relayClusterBroadcasts()
	}

	go s.acceptLoop()
	s.logger.Info("server started", slog.String("addr", ln.Addr().String()))
	return nil
}

// Addr returns the bound listener address, or nil before Start succeeds.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

func (s *Server) acceptLoop() {
	defer close(s.acceptDone)

	tl, deadlineCapable := s.listener.(*net.TCPListener)

	for {
		if s.stopRequested.Load() {
			return
		}

		if deadlineCapable {
			_ = tl.SetDeadline(time.Now().Add(acceptPollInterval))
		}

		netConn, err := s.listener.Accept()
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				// Bounded wait expired; loop back around to recheck the
				// stop flag. Not an error per spec.md §5.
				continue
			}
			if s.stopRequested.Load() {
				return
			}
			s.logger.Error("accept failed", slog.String("err", err.Error()))
			continue
		}

		s.AcceptClient(netConn)
	}
}

// AcceptClient constructs a connection engine for an already-accepted
// net.Conn via the server's factory, registers it, and spawns its Handle
// goroutine. It is used internally by the accept loop but exported for
// hosts that bring their own listener (tests, a net.Pipe harness). Must
// only be invoked while the server is running.
func (s *Server) AcceptClient(netConn net.Conn) *wsconn.Conn {
	c := s.factory(netConn, s.opts.Conn, s.logger)
	s.reg.add(c)

	s.handling.Add(1)
	go func() {
		defer s.handling.Done()
		defer s.reg.remove(c)
		_ = c.Handle()
	}()
	return c
}

// DisconnectClient delegates to c's Disconnect. Fails with ErrNotInServer
// if c is not registered with this server.
func (s *Server) DisconnectClient(c *wsconn.Conn, reason wsconn.DisconnectReason, reasonText string) error {
	if !s.reg.has(c) {
		return ErrNotInServer
	}
	return c.Disconnect(reason, reasonText, wsconn.ErrKindUnset)
}

// PingClient delegates to c's Ping.
func (s *Server) PingClient(c *wsconn.Conn, timeoutMs int) int {
	return c.Ping(timeoutMs)
}

// QueueSend enqueues a Text message on every connection sel resolves
// against this server's registry. Per-peer failures surface later as that
// peer disconnecting; queueSend itself never reports partial failure.
func (s *Server) QueueSend(sel selector.Selector, text string) {
	for _, c := range sel.Resolve(s) {
		_ = c.QueueSend(text)
	}
	s.relayToCluster(sel, text, nil)
}

// QueueSendBinary enqueues a Binary message on every connection sel
// resolves against this server's registry.
func (s *Server) QueueSendBinary(sel selector.Selector, data []byte) {
	for _, c := range sel.Resolve(s) {
		_ = c.QueueSendBinary(data)
	}
	s.relayToCluster(sel, "", data)
}

func (s *Server) relayToCluster(sel selector.Selector, text string, data []byte) {
	if s.opts.ClusterAdapter == nil || !sel.Broadcasts() {
		return
	}
	s.opts.ClusterAdapter.BroadcastToBackend(&cluster.BroadcastMsg{Text: text, Binary: data})
}

func (s *Server) relayClusterBroadcasts() {
	for msg := range s.clusterInbox {
		for _, c := range s.reg.snapshot() {
			if msg.Binary != nil {
				_ = c.QueueSendBinary(msg.Binary)
			} else {
				_ = c.QueueSend(msg.Text)
			}
		}
	}
}

// Snapshot returns the currently registered connections. It implements
// selector.Target so selectors can resolve against a Server directly.
func (s *Server) Snapshot() []*wsconn.Conn { return s.reg.snapshot() }

// Stop sets the stop-requested flag, awaits the accept loop, then issues
// Disconnect(ReasonServerShutdown, ...) on every registered peer and waits
// for all their Handle goroutines before releasing the listener. Idempotent
// across running states: a second call returns ErrNotRunning.
func (s *Server) Stop() error {
	if !s.running.CompareAndSwap(true, false) {
		return ErrNotRunning
	}

	s.stopRequested.Store(true)
	<-s.acceptDone

	conns := s.reg.snapshot()
	var wg sync.WaitGroup
	wg.Add(len(conns))
	for _, c := range conns {
		go func(c *wsconn.Conn) {
			defer wg.Done()
			_ = c.Disconnect(wsconn.ReasonServerShutdown, "Server is shutting down", wsconn.ErrKindUnset)
		}(c)
	}
	wg.Wait()
	s.handling.Wait()

	_ = s.listener.Close()

	if s.opts.ClusterAdapter != nil {
		_ = s.opts.ClusterAdapter.Shutdown()
		if s.clusterInbox != nil {
			close(s.clusterInbox)
		}
	}

	s.logger.Info("server stopped")
	return nil
}
