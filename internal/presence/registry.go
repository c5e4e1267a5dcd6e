package presence

import "sync"

// Registry tracks which users currently hold at least one live realtime
// connection in this process. It is rebuilt empty on restart; every user is
// offline until their client reconnects. Construct one per process and pass
// it to whatever needs presence queries.
type Registry struct {
	mu    sync.RWMutex
	conns map[uint]map[string]struct{}
}

func NewRegistry() *Registry {
	return &Registry{conns: make(map[uint]map[string]struct{})}
}

// Connect records a live connection for the user, creating the user's
// connection set on first connect.
func (r *Registry) Connect(userID uint, connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.conns[userID]
	if !ok {
		set = make(map[string]struct{})
		r.conns[userID] = set
	}
	set[connID] = struct{}{}
}

// Disconnect drops one connection. When the user's last connection goes, the
// whole entry is removed so IsOnline reports false rather than "online with
// zero connections".
func (r *Registry) Disconnect(userID uint, connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.conns[userID]
	if !ok {
		return
	}
	delete(set, connID)
	if len(set) == 0 {
		delete(r.conns, userID)
	}
}

func (r *Registry) IsOnline(userID uint) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns[userID]) > 0
}

// ConnectionsFor returns a snapshot of the user's live connection ids, nil
// when offline.
func (r *Registry) ConnectionsFor(userID uint) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set, ok := r.conns[userID]
	if !ok {
		return nil
	}
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	return ids
}
