package server

import "github.com/lattice-io/wsrelay/wsconn"

// registry owns the set of connections a Server currently knows about. It
// follows the teacher's hub.go pattern: a single goroutine owns the
// underlying map and is driven entirely by channels, so reads and
// mutations never race without a mutex.
type registry struct {
	addCh  chan *wsconn.Conn
	delCh  chan *wsconn.Conn
	snapCh chan chan []*wsconn.Conn
	hasCh  chan hasRequest
}

type hasRequest struct {
	conn  *wsconn.Conn
	reply chan bool
}

func newRegistry() *registry {
	r := &registry{
		addCh:  make(chan *wsconn.Conn),
		delCh:  make(chan *wsconn.Conn),
		snapCh: make(chan chan []*wsconn.Conn),
		hasCh:  make(chan hasRequest),
	}
	go r.listen()
	return r
}

func (r *registry) listen() {
	conns := make(map[*wsconn.Conn]struct{})
	for {
		select {
		case c := <-r.addCh:
			conns[c] = struct{}{}
		case c := <-r.delCh:
			delete(conns, c)
		case reply := <-r.snapCh:
			snap := make([]*wsconn.Conn, 0, len(conns))
			for c := range conns {
				snap = append(snap, c)
			}
			reply <- snap
		case req := <-r.hasCh:
			_, ok := conns[req.conn]
			req.reply <- ok
		}
	}
}

func (r *registry) add(c *wsconn.Conn) { r.addCh <- c }
func (r *registry) remove(c *wsconn.Conn) { r.delCh <- c }

func (r *registry) snapshot() []*wsconn.Conn {
	reply := make(chan []*wsconn.Conn)
	r.snapCh <- reply
	return <-reply
}

func (r *registry) has(c *wsconn.Conn) bool {
	reply := make(chan bool)
	r.hasCh <- hasRequest{conn: c, reply: reply}
	return <-reply
}
