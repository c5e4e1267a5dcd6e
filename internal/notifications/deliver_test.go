package notifications

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulse-social/backend/internal/models"
	"github.com/pulse-social/backend/internal/presence"
)

type sentFrame struct {
	ConnID  string
	Event   string
	Payload Payload
}

type fakeTransport struct {
	mu      sync.Mutex
	frames  []sentFrame
	sendErr error
}

func (f *fakeTransport) Send(connID, event string, payload interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.frames = append(f.frames, sentFrame{ConnID: connID, Event: event, Payload: payload.(Payload)})
	return nil
}

func (f *fakeTransport) JoinGroup(string, string) error { return nil }

type fakePush struct {
	mu       sync.Mutex
	sent     []Payload
	userIDs  []uint
	succeeds bool
}

func (f *fakePush) SendPush(_ context.Context, userID uint, _ Type, payload interface{}) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, payload.(Payload))
	f.userIDs = append(f.userIDs, userID)
	return f.succeeds
}

func likeView() View {
	return View{
		ID:     "entry-1",
		Type:   TypeLike,
		Actors: []models.Actor{{ID: 1, Username: "ada"}},
		Tweets: []models.TweetView{{ID: "t1"}},
	}
}

func TestDeliverFansOutToEveryConnection(t *testing.T) {
	reg := presence.NewRegistry()
	reg.Connect(7, "phone")
	reg.Connect(7, "laptop")
	transport := &fakeTransport{}
	push := &fakePush{succeeds: true}
	router := NewRouter(reg, transport, push)

	view := likeView()
	router.Deliver(context.Background(), 7, Result{Entry: Entry{Type: TypeLike}}, &view)

	require.Len(t, transport.frames, 2)
	conns := []string{transport.frames[0].ConnID, transport.frames[1].ConnID}
	assert.ElementsMatch(t, []string{"phone", "laptop"}, conns)
	assert.Equal(t, "notification", transport.frames[0].Event)
	assert.Equal(t, "add", transport.frames[0].Payload.Action)
	assert.Empty(t, push.sent, "online recipients get no push")
}

func TestDeliverFallsBackToSinglePushWhenOffline(t *testing.T) {
	reg := presence.NewRegistry()
	transport := &fakeTransport{}
	push := &fakePush{succeeds: true}
	router := NewRouter(reg, transport, push)

	view := likeView()
	router.Deliver(context.Background(), 7, Result{Entry: Entry{Type: TypeLike}}, &view)

	assert.Empty(t, transport.frames)
	require.Len(t, push.sent, 1)
	assert.Equal(t, []uint{7}, push.userIDs)
}

func TestDeliverAggregatePayloadCarriesOldEntryRef(t *testing.T) {
	reg := presence.NewRegistry()
	reg.Connect(7, "phone")
	transport := &fakeTransport{}
	router := NewRouter(reg, transport, &fakePush{succeeds: true})

	old := NewLikeEntry(1, "t1")
	view := likeView()
	router.Deliver(context.Background(), 7, Result{Aggregated: true, Entry: old, OldEntry: &old}, &view)

	require.Len(t, transport.frames, 1)
	p := transport.frames[0].Payload
	assert.Equal(t, "aggregate", p.Action)
	require.NotNil(t, p.OldEntry)
	assert.Equal(t, old.ID, p.OldEntry.ID)
	assert.Equal(t, TypeLike, p.OldEntry.Type)
}

func TestDeliverSuppressedWhenEnrichmentFilteredTheView(t *testing.T) {
	reg := presence.NewRegistry()
	transport := &fakeTransport{}
	push := &fakePush{succeeds: true}
	router := NewRouter(reg, transport, push)

	router.Deliver(context.Background(), 7, Result{Entry: Entry{Type: TypeReply}}, nil)

	assert.Empty(t, transport.frames)
	assert.Empty(t, push.sent)
}

func TestDeliverSwallowsChannelFailures(t *testing.T) {
	reg := presence.NewRegistry()
	reg.Connect(7, "phone")
	transport := &fakeTransport{sendErr: errors.New("socket closed")}
	push := &fakePush{succeeds: false}
	router := NewRouter(reg, transport, push)

	view := likeView()
	// Must not panic or propagate anything.
	router.Deliver(context.Background(), 7, Result{Entry: Entry{Type: TypeLike}}, &view)

	reg.Disconnect(7, "phone")
	router.Deliver(context.Background(), 7, Result{Entry: Entry{Type: TypeLike}}, &view)
	assert.Len(t, push.sent, 1)
}
