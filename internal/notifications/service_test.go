package notifications

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulse-social/backend/internal/models"
	"github.com/pulse-social/backend/internal/presence"
)

type serviceFixture struct {
	svc       *Service
	store     *fakeStore
	actors    *fakeActorLookup
	content   *fakeContentLookup
	cleanup   *fakeCleanup
	registry  *presence.Registry
	transport *fakeTransport
	push      *fakePush
}

func newServiceFixture() *serviceFixture {
	store := newFakeStore()
	actors := &fakeActorLookup{actors: map[uint]models.Actor{}, blocked: map[uint]bool{}}
	content := &fakeContentLookup{tweets: map[string]models.TweetView{}, liked: map[string]bool{}}
	for i := uint(1); i <= 120; i++ {
		actors.actors[i] = models.Actor{ID: i, Username: fmt.Sprintf("user%d", i)}
	}
	for i := 0; i < 120; i++ {
		id := fmt.Sprintf("t%d", i)
		content.tweets[id] = models.TweetView{ID: id, AuthorID: 9}
	}
	cleanup := &fakeCleanup{}
	registry := presence.NewRegistry()
	transport := &fakeTransport{}
	push := &fakePush{succeeds: true}

	pipeline := NewPipeline(actors, content, cleanup)
	router := NewRouter(registry, transport, push)
	return &serviceFixture{
		svc:       NewService(store, pipeline, router),
		store:     store,
		actors:    actors,
		content:   content,
		cleanup:   cleanup,
		registry:  registry,
		transport: transport,
		push:      push,
	}
}

// Offline owner, likes from two different users on the same tweet: one
// merged entry and a second push carrying the aggregate action.
func TestNotifyMergedLikeScenario(t *testing.T) {
	f := newServiceFixture()
	ctx := context.Background()
	const owner = uint(9)

	res1, err := f.svc.Notify(ctx, owner, NewLikeEntry(1, "t0"))
	require.NoError(t, err)
	assert.False(t, res1.Aggregated)

	res2, err := f.svc.Notify(ctx, owner, NewLikeEntry(2, "t0"))
	require.NoError(t, err)
	assert.True(t, res2.Aggregated)

	coll, _ := f.store.Get(ctx, owner)
	require.Len(t, coll.Entries, 1)
	assert.ElementsMatch(t, []uint{1, 2}, coll.Entries[0].LikedBy)
	assert.Equal(t, []string{"t0"}, coll.Entries[0].TweetIDs)

	require.Len(t, f.push.sent, 2)
	second := f.push.sent[1]
	assert.Equal(t, "aggregate", second.Action)
	require.NotNil(t, second.OldEntry)
	assert.Equal(t, res1.Entry.ID, second.OldEntry.ID)
}

func TestNotifyGoesRealtimeWhenOnline(t *testing.T) {
	f := newServiceFixture()
	f.registry.Connect(9, "phone")

	_, err := f.svc.Notify(context.Background(), 9, NewFollowEntry(3))
	require.NoError(t, err)
	assert.Len(t, f.transport.frames, 1)
	assert.Empty(t, f.push.sent)
}

func TestListPageEmptyForUnknownRecipient(t *testing.T) {
	f := newServiceFixture()
	page, err := f.svc.ListPage(context.Background(), 9, 9, "", 10)
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.False(t, page.HasMore)
}

func TestListPageEmptyNotErrorOnUnresolvableCollection(t *testing.T) {
	f := newServiceFixture()
	f.store.getErr = fmt.Errorf("primary stepped down")
	page, err := f.svc.ListPage(context.Background(), 9, 9, "", 10)
	require.NoError(t, err)
	assert.Empty(t, page.Items)
}

func TestListPageCursorRoundTrip(t *testing.T) {
	f := newServiceFixture()
	ctx := context.Background()
	base := time.Now().UTC().Add(-time.Hour)

	// 7 mention entries with distinct timestamps.
	for i := 0; i < 7; i++ {
		e := NewMentionEntry(uint(i+1), fmt.Sprintf("t%d", i), "", models.TweetKindTweet)
		e.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, f.store.Append(ctx, 9, e))
	}

	var got []string
	cursor := ""
	pages := 0
	for {
		page, err := f.svc.ListPage(ctx, 9, 9, cursor, 3)
		require.NoError(t, err)
		for _, v := range page.Items {
			got = append(got, v.ID)
		}
		pages++
		if !page.HasMore {
			break
		}
		require.NotEmpty(t, page.NextCursor)
		cursor = page.NextCursor
	}

	assert.Equal(t, 3, pages)
	assert.Len(t, got, 7, "no overlap, no gap")
	uniq := make(map[string]bool)
	for _, id := range got {
		uniq[id] = true
	}
	assert.Len(t, uniq, 7)
}

func TestListPageCollapsesEquivalentAggregates(t *testing.T) {
	f := newServiceFixture()
	ctx := context.Background()

	// Two equivalent like entries, as left behind by a merge race that
	// degraded to an insert.
	newer := NewLikeEntry(1, "t0")
	newer.LikedBy = []uint{1, 2}
	older := NewLikeEntry(1, "t0")
	older.LikedBy = []uint{1, 2}
	older.CreatedAt = newer.CreatedAt.Add(-time.Minute)
	require.NoError(t, f.store.Append(ctx, 9, older))
	require.NoError(t, f.store.Append(ctx, 9, newer))

	page, err := f.svc.ListPage(ctx, 9, 9, "", 10)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, newer.ID, page.Items[0].ID)
}

func TestMarkSeenAndUnseenCount(t *testing.T) {
	f := newServiceFixture()
	ctx := context.Background()

	_, _ = f.svc.Notify(ctx, 9, NewFollowEntry(1))
	_, _ = f.svc.Notify(ctx, 9, NewMentionEntry(2, "t1", "", models.TweetKindTweet))

	n, err := f.svc.GetUnseenCount(ctx, 9)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.NoError(t, f.svc.MarkSeen(ctx, 9))
	n, err = f.svc.GetUnseenCount(ctx, 9)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestListPageRejectsMalformedCursor(t *testing.T) {
	f := newServiceFixture()
	_, err := f.svc.ListPage(context.Background(), 9, 9, "!!!", 10)
	assert.Error(t, err)
}
