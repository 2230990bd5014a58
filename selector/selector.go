// Package selector implements the addressing helpers spec.md §4.5 uses to
// pick which connections a server-level send targets: every connection,
// every upgraded connection, or a single named connection.
package selector

import "github.com/lattice-io/wsrelay/wsconn"

// Target is the minimal surface a Server exposes to a Selector. It exists
// so this package doesn't need to import server (which itself needs to
// call Resolve), avoiding an import cycle.
type Target interface {
	Snapshot() []*wsconn.Conn
}

// Selector names a set of connections a broadcast should reach. Resolve
// reifies the set as a snapshot slice rather than a live view, per
// spec.md §9's guidance, so mutation of the registry during iteration
// can't produce undefined behavior.
type Selector interface {
	Resolve(t Target) []*wsconn.Conn

	// Broadcasts reports whether a send through this selector should also
	// be relayed through a server's cluster.Adapter, if one is configured.
	// Single-connection sends never cross the cluster boundary.
	Broadcasts() bool
}

type allSelector struct{}

// All selects every registered connection regardless of state.
func All() Selector { return allSelector{} }

func (allSelector) Resolve(t Target) []*wsconn.Conn { return t.Snapshot() }
func (allSelector) Broadcasts() bool                { return true }

type allUpgradedSelector struct{}

// AllUpgraded selects only connections in wsconn.StateUpgraded — the only
// state in which a peer can actually receive data.
func AllUpgraded() Selector { return allUpgradedSelector{} }

func (allUpgradedSelector) Resolve(t Target) []*wsconn.Conn {
	snap := t.Snapshot()
	out := make([]*wsconn.Conn, 0, len(snap))
	for _, c := range snap {
		if c.State() == wsconn.StateUpgraded {
			out = append(out, c)
		}
	}
	return out
}
func (allUpgradedSelector) Broadcasts() bool { return true }

type singleSelector struct{ conn *wsconn.Conn }

// Single selects exactly one connection.
func Single(c *wsconn.Conn) Selector { return singleSelector{conn: c} }

func (s singleSelector) Resolve(Target) []*wsconn.Conn {
	if s.conn == nil {
		return nil
	}
	return []*wsconn.Conn{s.conn}
}
func (singleSelector) Broadcasts() bool { return false }
