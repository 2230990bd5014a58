package wsconn

// AutoPingOptions configures the optional keep-alive pinger activity.
type AutoPingOptions struct {
	Enabled         bool
	IntervalSeconds int
	TimeoutSeconds  int
}

// MessagingOptions bounds the size of inbound and outbound messages/frames.
type MessagingOptions struct {
	MaxMessageReceiveBytes int
	MaxMessageSendBytes    int
	MaxFrameSendBytes      int
}

// Options configures a single connection engine. It is a plain struct
// built by the caller, not a mutable builder chain — per spec.md §9, the
// fluent-setter pattern collapses to this once the host language has
// value types and struct literals.
type Options struct {
	DisconnectPhrase string
	AutoPing         AutoPingOptions
	Messaging        MessagingOptions
}

// DefaultOptions returns the recognized defaults from spec.md §3.
func DefaultOptions() Options {
	return Options{
		DisconnectPhrase: "disconnect",
		AutoPing: AutoPingOptions{
			Enabled: false,
		},
		Messaging: MessagingOptions{
			MaxMessageReceiveBytes: 32768,
			MaxMessageSendBytes:    65535,
			MaxFrameSendBytes:      16384,
		},
	}
}

// Hooks are the event callbacks an embedding host supplies. They are
// invoked from the owning connection's own goroutines and must be
// non-blocking, or the host accepts that connection stalls while the hook
// runs — per spec.md §5.
type Hooks struct {
	OnConnected     func(c *Conn)
	OnUpgraded      func(c *Conn)
	OnMessage       func(c *Conn, text string)
	OnData          func(c *Conn, data []byte)
	OnDisconnected  func(c *Conn, reason DisconnectReason, err error)
	VerifyHandshake func(headers map[string]string, rawRequest []byte) bool
}
