// Package cluster implements optional multi-instance fan-out for hosts
// running more than one wsrelay process behind the same frontend. Without
// it, a server.Server's selector.All/selector.AllUpgraded broadcasts only
// reach locally connected peers.
//
// Grounded on the teacher's ss.Adapter interface and adapters/redis.go's
// RedisAdapter, narrowed to server-wide broadcast: wsrelay has no room
// concept (spec.md has no equivalent of the teacher's rooms), so the
// roomcast half of that interface is dropped rather than force-fit.
package cluster

// BroadcastMsg is a single fan-out event published to, or received from,
// every wsrelay process sharing an Adapter. Exactly one of Text or Binary
// is set, mirroring wsconn.Conn's QueueSend/QueueSendBinary split.
type BroadcastMsg struct {
	Text   string
	Binary []byte
}

// Adapter lets a server.Server relay broadcast sends to every other
// wsrelay process behind the same frontend, and receive theirs in turn.
type Adapter interface {
	// Init is called once, synchronously, when the adapter is attached to
	// a Server via Options.ClusterAdapter, before the accept loop starts.
	Init()

	// Shutdown releases the adapter's resources (subscriptions, backend
	// connections). Called once, after every local peer has disconnected.
	Shutdown() error

	// BroadcastToBackend publishes b to every other process in the same
	// group. Must be safe for concurrent use by multiple goroutines.
	BroadcastToBackend(b *BroadcastMsg)

	// BroadcastFromBackend is run as its own goroutine as soon as the
	// adapter is attached. It must deliver every broadcast originating
	// from another process onto ch, and return when the adapter is shut
	// down.
	BroadcastFromBackend(ch chan<- *BroadcastMsg)
}
