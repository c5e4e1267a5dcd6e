package notifications

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const recipient = uint(100)

func newTestEngine(store Store, at time.Time) *Engine {
	eng := NewEngine(store)
	eng.now = func() time.Time { return at }
	return eng
}

func TestSubmitAppendsNonAggregatableTypes(t *testing.T) {
	store := newFakeStore()
	eng := NewEngine(store)
	ctx := context.Background()

	res, err := eng.Submit(ctx, recipient, NewReplyEntry(2, "t-reply", "t-orig", "conv-1"))
	require.NoError(t, err)
	assert.False(t, res.Aggregated)

	// A second identical reply appends again; replies never merge.
	res, err = eng.Submit(ctx, recipient, NewReplyEntry(2, "t-reply2", "t-orig", "conv-1"))
	require.NoError(t, err)
	assert.False(t, res.Aggregated)

	coll, _ := store.Get(ctx, recipient)
	assert.Len(t, coll.Entries, 2)
	assert.Equal(t, 2, coll.UnseenCount)
}

func TestLikesOnSameTweetMergeIntoOneEntry(t *testing.T) {
	store := newFakeStore()
	ctx := context.Background()
	t0 := time.Now().UTC()

	eng := newTestEngine(store, t0)
	first, err := eng.Submit(ctx, recipient, NewLikeEntry(1, "tweet-T"))
	require.NoError(t, err)
	require.False(t, first.Aggregated)

	eng.now = func() time.Time { return t0.Add(10 * time.Minute) }
	second, err := eng.Submit(ctx, recipient, NewLikeEntry(3, "tweet-T"))
	require.NoError(t, err)

	assert.True(t, second.Aggregated)
	require.NotNil(t, second.OldEntry)
	assert.Equal(t, first.Entry.ID, second.OldEntry.ID)
	assert.ElementsMatch(t, []uint{1}, second.OldEntry.LikedBy)

	coll, _ := store.Get(ctx, recipient)
	require.Len(t, coll.Entries, 1)
	got := coll.Entries[0]
	assert.ElementsMatch(t, []uint{1, 3}, got.LikedBy)
	assert.Equal(t, []string{"tweet-T"}, got.TweetIDs)
	assert.True(t, got.CreatedAt.Equal(t0.Add(10*time.Minute)), "merge bumps created_at")
	assert.Equal(t, 1, coll.UnseenCount, "merges do not bump the unseen count")
}

func TestDuplicateLikeIsIdempotent(t *testing.T) {
	store := newFakeStore()
	eng := NewEngine(store)
	ctx := context.Background()

	_, err := eng.Submit(ctx, recipient, NewLikeEntry(1, "tweet-T"))
	require.NoError(t, err)
	res, err := eng.Submit(ctx, recipient, NewLikeEntry(1, "tweet-T"))
	require.NoError(t, err)
	assert.True(t, res.Aggregated)

	coll, _ := store.Get(ctx, recipient)
	require.Len(t, coll.Entries, 1)
	assert.Equal(t, []uint{1}, coll.Entries[0].LikedBy)
	assert.Equal(t, []string{"tweet-T"}, coll.Entries[0].TweetIDs)
}

func TestAggregationWindowBoundary(t *testing.T) {
	ctx := context.Background()

	cases := []struct {
		name      string
		elapsed   time.Duration
		wantMerge bool
	}{
		{"just inside the window", 23*time.Hour + 59*time.Minute, true},
		{"just past the window", 24*time.Hour + time.Second, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := newFakeStore()
			t0 := time.Now().UTC()
			eng := newTestEngine(store, t0)
			_, err := eng.Submit(ctx, recipient, NewLikeEntry(1, "tweet-T"))
			require.NoError(t, err)

			eng.now = func() time.Time { return t0.Add(tc.elapsed) }
			res, err := eng.Submit(ctx, recipient, NewLikeEntry(2, "tweet-T"))
			require.NoError(t, err)
			assert.Equal(t, tc.wantMerge, res.Aggregated)

			coll, _ := store.Get(ctx, recipient)
			if tc.wantMerge {
				assert.Len(t, coll.Entries, 1)
			} else {
				assert.Len(t, coll.Entries, 2)
			}
		})
	}
}

func TestActorAxisGrowsTweetSet(t *testing.T) {
	store := newFakeStore()
	eng := NewEngine(store)
	ctx := context.Background()

	_, err := eng.Submit(ctx, recipient, NewLikeEntry(1, "tweet-A"))
	require.NoError(t, err)
	res, err := eng.Submit(ctx, recipient, NewLikeEntry(1, "tweet-B"))
	require.NoError(t, err)
	assert.True(t, res.Aggregated)

	coll, _ := store.Get(ctx, recipient)
	require.Len(t, coll.Entries, 1)
	assert.Equal(t, []uint{1}, coll.Entries[0].LikedBy)
	assert.ElementsMatch(t, []string{"tweet-A", "tweet-B"}, coll.Entries[0].TweetIDs)
}

func TestTweetAxisPreferredOverActorAxis(t *testing.T) {
	store := newFakeStore()
	eng := NewEngine(store)
	ctx := context.Background()

	// Entry 1: tweet-T liked by user 2 (tweet-axis candidate for (1, T)).
	_, err := eng.Submit(ctx, recipient, NewLikeEntry(2, "tweet-T"))
	require.NoError(t, err)
	// Entry 2: user 1 liked tweet-X (actor-axis candidate for (1, T)).
	_, err = eng.Submit(ctx, recipient, NewLikeEntry(1, "tweet-X"))
	require.NoError(t, err)

	res, err := eng.Submit(ctx, recipient, NewLikeEntry(1, "tweet-T"))
	require.NoError(t, err)
	require.True(t, res.Aggregated)

	// The tweet-axis entry grew its actor set; the actor-axis one is intact.
	coll, _ := store.Get(ctx, recipient)
	require.Len(t, coll.Entries, 2)
	for _, e := range coll.Entries {
		switch {
		case len(e.TweetIDs) == 1 && e.TweetIDs[0] == "tweet-T":
			assert.ElementsMatch(t, []uint{1, 2}, e.LikedBy)
		case len(e.TweetIDs) == 1 && e.TweetIDs[0] == "tweet-X":
			assert.Equal(t, []uint{1}, e.LikedBy)
		default:
			t.Fatalf("unexpected entry %+v", e)
		}
	}
}

func TestAxisExclusivityNeverViolated(t *testing.T) {
	store := newFakeStore()
	eng := NewEngine(store)
	ctx := context.Background()

	// Build a "one actor, many tweets" entry...
	_, _ = eng.Submit(ctx, recipient, NewLikeEntry(1, "tweet-A"))
	_, _ = eng.Submit(ctx, recipient, NewLikeEntry(1, "tweet-B"))
	// ...then a different actor likes one of those tweets. Neither axis can
	// match the multi-tweet entry, so this appends.
	res, err := eng.Submit(ctx, recipient, NewLikeEntry(2, "tweet-A"))
	require.NoError(t, err)
	assert.False(t, res.Aggregated)

	coll, _ := store.Get(ctx, recipient)
	for _, e := range coll.Entries {
		if !e.Type.Aggregatable() {
			continue
		}
		multiActors := len(e.actorSet()) > 1
		multiTweets := len(e.tweetSet()) > 1
		assert.False(t, multiActors && multiTweets, "entry %+v grew both axes", e)
	}
}

func TestFollowReSubmitDedupsIntoExistingEntry(t *testing.T) {
	store := newFakeStore()
	eng := NewEngine(store)
	ctx := context.Background()

	_, err := eng.Submit(ctx, recipient, NewFollowEntry(5))
	require.NoError(t, err)
	res, err := eng.Submit(ctx, recipient, NewFollowEntry(5))
	require.NoError(t, err)
	assert.True(t, res.Aggregated)

	coll, _ := store.Get(ctx, recipient)
	require.Len(t, coll.Entries, 1)
	assert.Equal(t, []uint{5}, coll.Entries[0].FollowerIDs)
}

func TestMergeConflictDegradesToInsert(t *testing.T) {
	store := newFakeStore()
	eng := NewEngine(store)
	ctx := context.Background()

	_, err := eng.Submit(ctx, recipient, NewLikeEntry(1, "tweet-T"))
	require.NoError(t, err)

	store.mergeErr = ErrNoMatch
	res, err := eng.Submit(ctx, recipient, NewLikeEntry(2, "tweet-T"))
	require.NoError(t, err, "a lost merge race must not fail the submit")
	assert.False(t, res.Aggregated)

	coll, _ := store.Get(ctx, recipient)
	assert.Len(t, coll.Entries, 2)
}

func TestStorageErrorsPropagate(t *testing.T) {
	store := newFakeStore()
	eng := NewEngine(store)
	ctx := context.Background()

	boom := errors.New("connection reset")
	store.getErr = boom
	_, err := eng.Submit(ctx, recipient, NewLikeEntry(1, "tweet-T"))
	assert.ErrorIs(t, err, boom)

	store.getErr = nil
	store.mergeErr = boom
	_, _ = eng.Submit(ctx, recipient, NewLikeEntry(1, "tweet-T"))
	_, err = eng.Submit(ctx, recipient, NewLikeEntry(2, "tweet-T"))
	assert.ErrorIs(t, err, boom, "non-conflict merge errors are not swallowed")
}

func TestCapacityInvariant(t *testing.T) {
	store := newFakeStore()
	ctx := context.Background()
	t0 := time.Now().UTC()
	eng := newTestEngine(store, t0)

	for i := 0; i < 60; i++ {
		eng.now = func() time.Time { return t0.Add(time.Duration(i) * time.Minute) }
		_, err := eng.Submit(ctx, recipient, NewMentionEntry(uint(i+1), fmt.Sprintf("tweet-%d", i), "", "tweet"))
		require.NoError(t, err)
	}

	coll, _ := store.Get(ctx, recipient)
	require.Len(t, coll.Entries, CollectionCap)
	// Newest first, and only the 50 most recent survive.
	assert.Equal(t, uint(60), coll.Entries[0].MentionedBy)
	assert.Equal(t, uint(11), coll.Entries[CollectionCap-1].MentionedBy)
}
