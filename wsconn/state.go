package wsconn

import "github.com/lattice-io/wsrelay/frame"

// State is the connection's position in the four-phase lifecycle.
type State int32

const (
	StateAccepted State = iota
	StateUpgraded
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateAccepted:
		return "accepted"
	case StateUpgraded:
		return "upgraded"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// DisconnectReason and ErrorKind are re-exported from frame so that callers
// of this package never need to import frame directly just to classify a
// disconnect.
type DisconnectReason = frame.DisconnectReason
type ErrorKind = frame.ErrorKind

const (
	ReasonNone           = frame.ReasonNone
	ReasonRequested      = frame.ReasonRequested
	ReasonServerShutdown = frame.ReasonServerShutdown
	ReasonTimeout        = frame.ReasonTimeout
	ReasonError          = frame.ReasonError
)

const (
	ErrKindUnset             = frame.ErrKindUnset
	ErrKindHandlingException = frame.ErrKindHandlingException
	ErrKindMessageUnfinished = frame.ErrKindMessageUnfinished
	ErrKindMessageTooLarge   = frame.ErrKindMessageTooLarge
	ErrKindMissingMask       = frame.ErrKindMissingMask
	ErrKindStreamDisposed    = frame.ErrKindStreamDisposed
	ErrKindUpgradeFail       = frame.ErrKindUpgradeFail
	ErrKindWriteError        = frame.ErrKindWriteError
)
