package dispatcher

import (
	"sync"

	"github.com/UnSetSoft/ToriDB/internal/metrics"
	"github.com/UnSetSoft/ToriDB/internal/session"
)

// ClientRegistry tracks live connections for CLIENT LIST/KILL. The network
// listener registers a session on accept and unregisters it on close; it is
// otherwise independent of the registry of databases.
type ClientRegistry struct {
	mu   sync.RWMutex
	byID map[string]*session.Session
}

// NewClientRegistry creates an empty registry.
func NewClientRegistry() *ClientRegistry {
	return &ClientRegistry{byID: make(map[string]*session.Session)}
}

// Register adds sess to the directory, keyed by its session ID.
func (c *ClientRegistry) Register(sess *session.Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byID[sess.ID.String()] = sess
	metrics.ConnectedClients.Inc()
}

// Unregister removes sess from the directory.
func (c *ClientRegistry) Unregister(sess *session.Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.byID[sess.ID.String()]; ok {
		metrics.ConnectedClients.Dec()
	}
	delete(c.byID, sess.ID.String())
}

// List returns a snapshot of every currently registered session.
func (c *ClientRegistry) List() []*session.Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*session.Session, 0, len(c.byID))
	for _, s := range c.byID {
		out = append(out, s)
	}
	return out
}

// Kill marks every session whose address matches addr as killed, returning
// the number matched.
func (c *ClientRegistry) Kill(addr string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n := 0
	for _, s := range c.byID {
		if s.Addr() == addr {
			s.MarkKilled()
			n++
		}
	}
	return n
}
