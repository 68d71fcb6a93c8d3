package chat

import (
	"sync"
)

// Registry indexes open connections by user. A user key exists only while its
// set is non-empty, and a connection is filed under at most one user.
type Registry struct {
	mu     sync.RWMutex
	byUser map[string]map[string]*Connection // user -> conn_id -> conn
	byConn map[string]string                 // conn_id -> user
}

func NewRegistry() *Registry {
	return &Registry{
		byUser: make(map[string]map[string]*Connection),
		byConn: make(map[string]string),
	}
}

// Register adds c to user's set. Registering the same pair twice is a no-op.
// A connection already filed under another user is moved. It reports whether
// this was the user's first connection.
func (r *Registry) Register(user string, c *Connection) bool {
	if c == nil {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.byConn[c.id]; ok && prev != user {
		r.removeLocked(prev, c.id)
	}

	m := r.byUser[user]
	first := len(m) == 0
	if m == nil {
		m = make(map[string]*Connection)
		r.byUser[user] = m
	}
	if _, ok := m[c.id]; ok {
		first = false
	}
	m[c.id] = c
	r.byConn[c.id] = user
	return first
}

// Unregister removes c from user's set and prunes the key once the set is
// empty. Unknown pairs are ignored. It reports whether the user has no
// connections left as a result of this call.
func (r *Registry) Unregister(user string, c *Connection) bool {
	if c == nil {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.removeLocked(user, c.id)
}

func (r *Registry) removeLocked(user, connID string) bool {
	m := r.byUser[user]
	if m == nil {
		return false
	}
	if _, ok := m[connID]; !ok {
		return false
	}
	delete(m, connID)
	if r.byConn[connID] == user {
		delete(r.byConn, connID)
	}
	if len(m) == 0 {
		delete(r.byUser, user)
		return true
	}
	return false
}

// ConnectionsFor returns a copy of user's connections; callers may iterate it
// while the registry keeps changing.
func (r *Registry) ConnectionsFor(user string) []*Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m := r.byUser[user]
	if len(m) == 0 {
		return nil
	}
	out := make([]*Connection, 0, len(m))
	for _, c := range m {
		out = append(out, c)
	}
	return out
}

// Len is the number of users with at least one connection.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser)
}

// ConnCount is the number of registered connections across all users.
func (r *Registry) ConnCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byConn)
}

// All lists every registered connection (shutdown, statistics).
func (r *Registry) All() []*Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Connection, 0, len(r.byConn))
	for _, m := range r.byUser {
		for _, c := range m {
			out = append(out, c)
		}
	}
	return out
}
