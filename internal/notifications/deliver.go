package notifications

import (
	"context"
	"log"
)

// Transport is the realtime channel: a live socket send plus group
// membership. Implemented by the websocket gateway.
type Transport interface {
	Send(connID, event string, payload interface{}) error
	JoinGroup(connID, group string) error
}

// PushSender is the offline channel. Best-effort: a false return means the
// push did not go out, which is logged here and never retried.
type PushSender interface {
	SendPush(ctx context.Context, userID uint, typ Type, payload interface{}) bool
}

// Presence answers whether the recipient has live connections right now.
type Presence interface {
	IsOnline(userID uint) bool
	ConnectionsFor(userID uint) []string
}

// Payload is the outbound shape for both channels. Action is "add" for a
// fresh entry and "aggregate" for a merge; aggregated payloads carry a
// compact reference to the entry that was merged away so connected clients
// can splice their local list instead of refetching.
type Payload struct {
	Action       string `json:"action"`
	Notification View   `json:"notification"`
	OldEntry     *Ref   `json:"old_entry,omitempty"`
}

const notificationEvent = "notification"

// Router picks the delivery channel per event: every live connection of an
// online recipient, or one offline push. Nothing in here propagates errors —
// a failed notification must never fail the action that triggered it.
type Router struct {
	presence  Presence
	transport Transport
	push      PushSender
}

func NewRouter(presence Presence, transport Transport, push PushSender) *Router {
	return &Router{presence: presence, transport: transport, push: push}
}

// Deliver sends the enriched outcome of one submit. A nil view means
// enrichment filtered the event (blocked actor or vanished reference): the
// stored record stays for later listing under the same filter, but nothing
// is delivered.
func (r *Router) Deliver(ctx context.Context, recipientID uint, res Result, view *View) {
	if view == nil {
		return
	}

	payload := Payload{Action: "add", Notification: *view}
	if res.Aggregated && res.OldEntry != nil {
		payload.Action = "aggregate"
		ref := res.OldEntry.Ref()
		payload.OldEntry = &ref
	}

	conns := r.presence.ConnectionsFor(recipientID)
	if len(conns) == 0 {
		if ok := r.push.SendPush(ctx, recipientID, res.Entry.Type, payload); !ok {
			log.Printf("push notification to user %d not delivered", recipientID)
		}
		return
	}
	for _, connID := range conns {
		if err := r.transport.Send(connID, notificationEvent, payload); err != nil {
			log.Printf("realtime send to conn %s failed: %v", connID, err)
		}
	}
}
