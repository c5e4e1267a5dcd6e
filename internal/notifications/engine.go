package notifications

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNoMatch is returned by Store.Merge when the conditional update matched
// nothing: the target entry was evicted, its window closed, or a concurrent
// merge changed its axis set between our read and write. The engine treats it
// as a conflict and degrades to a plain insert.
var ErrNoMatch = errors.New("no matching entry")

// Axis names which set grows when two events merge into one entry.
type Axis string

const (
	// ActorAxis grows the actor-id set: "N people liked this one tweet".
	ActorAxis Axis = "actor"
	// TweetAxis grows the tweet-id set: "this person liked N tweets".
	TweetAxis Axis = "tweet"
)

// Merge describes one atomic conditional merge attempt. The store must match
// the target entry by id, type, window cutoff AND the exact single-element
// axis set observed at decision time, and apply the union in the same
// operation — if any part of the precondition no longer holds the write must
// fail closed with ErrNoMatch.
type Merge struct {
	EntryID string
	Type    Type
	Cutoff  time.Time
	Now     time.Time

	// Axis is the matched axis; the opposite set is the one that grows,
	// except for follow which only has an actor set.
	Axis Axis

	// MatchedActor/MatchedTweet hold the single-element set content the
	// filter asserts.
	MatchedActor uint
	MatchedTweet string

	// AddActor/AddTweet is the value unioned into the growing set. At most
	// one is set.
	AddActor uint
	AddTweet string
}

// Store is the narrow persistence contract the engine needs: an atomic
// insert-into-capped-list primitive and an atomic conditional merge keyed by
// recipient. Implemented by repositories.MongoNotificationRepository.
type Store interface {
	// Get returns the recipient's collection, or nil when none exists yet.
	Get(ctx context.Context, recipientID uint) (*Collection, error)
	// Append inserts the entry at the head, re-sorts by created_at
	// descending, truncates to CollectionCap and increments unseen_count,
	// all in one storage operation (upserting the collection if absent).
	Append(ctx context.Context, recipientID uint, e Entry) error
	// MergeEntry applies m atomically and returns the post-merge entry.
	MergeEntry(ctx context.Context, recipientID uint, m Merge) (Entry, error)
	// RemoveEntries deletes entries by id (orphan cleanup, dedup repair).
	RemoveEntries(ctx context.Context, recipientID uint, entryIDs []string) error
	// UnseenCount reads the recipient's unseen counter.
	UnseenCount(ctx context.Context, recipientID uint) (int, error)
	// ResetUnseen zeroes the recipient's unseen counter.
	ResetUnseen(ctx context.Context, recipientID uint) error
}

// Collection is the per-recipient envelope: a capped, newest-first entry
// list plus the unseen counter. Mutated only through the engine.
type Collection struct {
	RecipientID uint    `bson:"_id" json:"recipient_id"`
	Entries     []Entry `bson:"entries" json:"entries"`
	UnseenCount int     `bson:"unseen_count" json:"unseen_count"`
}

// Result reports what Submit did with an event.
type Result struct {
	// Aggregated is true when the event merged into an existing entry.
	Aggregated bool
	// Entry is the stored entry: the merged entry post-union, or the newly
	// appended one.
	Entry Entry
	// OldEntry is the pre-merge snapshot of the matched entry, present only
	// when Aggregated. Clients use it to splice their local list.
	OldEntry *Entry
}

// Engine decides merge-vs-append for incoming notification events and
// performs the mutation through the store's atomic primitives.
type Engine struct {
	store Store
	now   func() time.Time
}

func NewEngine(store Store) *Engine {
	return &Engine{store: store, now: time.Now}
}

// Submit applies one event to the recipient's collection. Aggregation is
// attempted only for follow/like/repost; everything else appends. A merge
// conflict (lost race, closed window) silently degrades to an append —
// delivering the event somehow beats merging it perfectly. Storage errors
// propagate to the caller.
func (eng *Engine) Submit(ctx context.Context, recipientID uint, entry Entry) (Result, error) {
	now := eng.now().UTC()
	entry.normalize(now)

	if entry.Type.Aggregatable() {
		coll, err := eng.store.Get(ctx, recipientID)
		if err != nil {
			return Result{}, fmt.Errorf("read notification collection: %w", err)
		}
		if coll != nil {
			cutoff := now.Add(-AggregationWindow)
			if m, old, ok := findMergeTarget(coll.Entries, entry, cutoff, now); ok {
				merged, err := eng.store.MergeEntry(ctx, recipientID, m)
				if err == nil {
					return Result{Aggregated: true, Entry: merged, OldEntry: &old}, nil
				}
				if !errors.Is(err, ErrNoMatch) {
					return Result{}, fmt.Errorf("merge notification entry: %w", err)
				}
				// Conflict: fall through to a plain insert.
			}
		}
	}

	if err := eng.store.Append(ctx, recipientID, entry); err != nil {
		return Result{}, fmt.Errorf("append notification entry: %w", err)
	}
	return Result{Entry: entry}, nil
}

// findMergeTarget scans the recipient's entries for an aggregation candidate.
// The tweet axis is checked across the whole list before the actor axis:
// growing "N people liked this one tweet" is preferred over "this person
// liked N tweets" whenever both would apply.
func findMergeTarget(entries []Entry, incoming Entry, cutoff, now time.Time) (Merge, Entry, bool) {
	inActor := incoming.actorSet()
	inTweet := incoming.tweetSet()

	if len(inTweet) == 1 {
		for i := range entries {
			e := &entries[i]
			if e.Type != incoming.Type || e.CreatedAt.Before(cutoff) {
				continue
			}
			set := e.tweetSet()
			if len(set) == 1 && set[0] == inTweet[0] {
				return Merge{
					EntryID:      e.ID,
					Type:         e.Type,
					Cutoff:       cutoff,
					Now:          now,
					Axis:         TweetAxis,
					MatchedTweet: set[0],
					AddActor:     inActor[0],
				}, *e, true
			}
		}
	}

	if len(inActor) == 1 {
		for i := range entries {
			e := &entries[i]
			if e.Type != incoming.Type || e.CreatedAt.Before(cutoff) {
				continue
			}
			set := e.actorSet()
			if len(set) != 1 || set[0] != inActor[0] {
				continue
			}
			m := Merge{
				EntryID:      e.ID,
				Type:         e.Type,
				Cutoff:       cutoff,
				Now:          now,
				Axis:         ActorAxis,
				MatchedActor: set[0],
			}
			if incoming.Type == TypeFollow {
				// Follow has no tweet set; the union is the same actor, a
				// set no-op that still bumps the entry back into the window.
				m.AddActor = inActor[0]
			} else {
				m.AddTweet = inTweet[0]
			}
			return m, *e, true
		}
	}

	return Merge{}, Entry{}, false
}
