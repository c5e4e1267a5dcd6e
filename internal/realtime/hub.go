package realtime

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

// Frame is the wire shape of every outbound realtime event.
type Frame struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

const writeTimeout = 5 * time.Second

// UserGroup names the per-user room every connection of that user joins, so
// notification fan-out reaches all their devices.
func UserGroup(userID uint) string {
	return fmt.Sprintf("user:%d", userID)
}

// ChatGroup names the room for one chat thread.
func ChatGroup(chatID uint) string {
	return fmt.Sprintf("chat:%d", chatID)
}

type client struct {
	ws *websocket.Conn
	mu sync.Mutex // serializes writes to one socket
}

// Hub owns the live websocket connections and their group memberships. It
// implements the realtime transport side of notification delivery.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*client
	groups  map[string]map[string]struct{}
	members map[string]map[string]struct{} // connID -> groups joined
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]*client),
		groups:  make(map[string]map[string]struct{}),
		members: make(map[string]map[string]struct{}),
	}
}

// Register adopts an accepted websocket under the given connection id.
func (h *Hub) Register(connID string, ws *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[connID] = &client{ws: ws}
	h.members[connID] = make(map[string]struct{})
}

// Unregister drops the connection and removes it from every group it joined.
// The socket itself is closed by the connection handler, not here.
func (h *Hub) Unregister(connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for group := range h.members[connID] {
		delete(h.groups[group], connID)
		if len(h.groups[group]) == 0 {
			delete(h.groups, group)
		}
	}
	delete(h.members, connID)
	delete(h.clients, connID)
}

// JoinGroup adds the connection to a named room.
func (h *Hub) JoinGroup(connID, group string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[connID]; !ok {
		return fmt.Errorf("unknown connection %s", connID)
	}
	if h.groups[group] == nil {
		h.groups[group] = make(map[string]struct{})
	}
	h.groups[group][connID] = struct{}{}
	h.members[connID][group] = struct{}{}
	return nil
}

// Send writes one event frame to one connection.
func (h *Hub) Send(connID, event string, payload interface{}) error {
	h.mu.RLock()
	cl, ok := h.clients[connID]
	h.mu.RUnlock()
	if !ok {
		return fmt.Errorf("unknown connection %s", connID)
	}
	return cl.write(Frame{Event: event, Data: payload})
}

// Broadcast writes one event frame to every connection in a group. Send
// errors to individual members do not stop the fan-out; the first one is
// returned.
func (h *Hub) Broadcast(group, event string, payload interface{}) error {
	h.mu.RLock()
	ids := make([]string, 0, len(h.groups[group]))
	for id := range h.groups[group] {
		ids = append(ids, id)
	}
	h.mu.RUnlock()

	var firstErr error
	for _, id := range ids {
		if err := h.Send(id, event, payload); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (c *client) write(frame Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, c.ws, frame)
}
