package notifications

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pulse-social/backend/internal/models"
)

// ActorLookup resolves user ids to actor objects, optionally joined with
// relationship predicates relative to the viewer (is-following, is-follower,
// is-blocked, is-muted). Missing ids are simply absent from the result map.
type ActorLookup interface {
	FetchActors(ctx context.Context, ids []uint, withRelationships bool, viewerID uint) (map[uint]models.Actor, error)
}

// ContentLookup resolves tweet ids, optionally joined with the viewer's
// interaction predicates (is-liked, is-reposted, is-bookmarked).
type ContentLookup interface {
	FetchContent(ctx context.Context, ids []string, withInteractions bool, viewerID uint) (map[string]models.TweetView, error)
}

// CleanupQueue receives references that no longer resolve so a background
// worker can prune them from the stored collection. Fire-and-forget.
type CleanupQueue interface {
	QueueOrphanCleanup(ctx context.Context, recipientID uint, missingTweetIDs []string, missingActorIDs []uint)
}

// View is an enriched notification entry: foreign ids resolved into display
// objects, relative to one viewer.
type View struct {
	ID        string    `json:"id"`
	Type      Type      `json:"type"`
	CreatedAt time.Time `json:"created_at"`

	Actors []models.Actor     `json:"actors"`
	Tweets []models.TweetView `json:"tweets,omitempty"`

	ConversationID string `json:"conversation_id,omitempty"`
	TweetKind      string `json:"tweet_kind,omitempty"`
	ChatID         uint   `json:"chat_id,omitempty"`
	MessageID      string `json:"message_id,omitempty"`
}

// Clean strips every viewer-relative flag from the view so it can be cached
// or re-stored viewer-agnostically.
func (v View) Clean() View {
	actors := make([]models.Actor, len(v.Actors))
	for i, a := range v.Actors {
		actors[i] = a.Clean()
	}
	tweets := make([]models.TweetView, len(v.Tweets))
	for i, t := range v.Tweets {
		tweets[i] = t.Clean()
	}
	v.Actors = actors
	v.Tweets = tweets
	return v
}

// Pipeline turns raw entries into viewer-relative views in batched lookups.
type Pipeline struct {
	actors  ActorLookup
	content ContentLookup
	cleanup CleanupQueue
}

func NewPipeline(actors ActorLookup, content ContentLookup, cleanup CleanupQueue) *Pipeline {
	return &Pipeline{actors: actors, content: content, cleanup: cleanup}
}

// Enrich resolves every actor and tweet referenced by the batch, then builds
// one view per entry. Entries whose references vanished are dropped and the
// dangling ids queued for async cleanup; reply/mention/quote entries from a
// blocked actor are filtered out entirely. The viewer is the recipient on
// every calling path.
func (p *Pipeline) Enrich(ctx context.Context, viewerID uint, entries []Entry) ([]View, error) {
	if len(entries) == 0 {
		return nil, nil
	}

	// Collect distinct ids, split by whether their entries need
	// viewer-relative flags. An id referenced by both kinds lands in both
	// batches.
	plainActors := map[uint]bool{}
	flaggedActors := map[uint]bool{}
	plainTweets := map[string]bool{}
	flaggedTweets := map[string]bool{}
	for i := range entries {
		e := &entries[i]
		actorDst, tweetDst := plainActors, plainTweets
		if e.NeedsRelationshipFlags() {
			actorDst, tweetDst = flaggedActors, flaggedTweets
		}
		for _, id := range e.ActorIDs() {
			actorDst[id] = true
		}
		for _, id := range e.ReferencedTweetIDs() {
			tweetDst[id] = true
		}
	}

	var (
		wg                       sync.WaitGroup
		mu                       sync.Mutex
		firstErr                 error
		plainActorM, flagActorM  map[uint]models.Actor
		plainTweetM, flagTweetM  map[string]models.TweetView
	)
	record := func(err error) {
		if err != nil {
			mu.Lock()
			if firstErr == nil {
				firstErr = err
			}
			mu.Unlock()
		}
	}
	fetchActors := func(dst *map[uint]models.Actor, ids map[uint]bool, withFlags bool) {
		defer wg.Done()
		if len(ids) == 0 {
			return
		}
		m, err := p.actors.FetchActors(ctx, uintKeys(ids), withFlags, viewerID)
		record(err)
		*dst = m
	}
	fetchTweets := func(dst *map[string]models.TweetView, ids map[string]bool, withFlags bool) {
		defer wg.Done()
		if len(ids) == 0 {
			return
		}
		m, err := p.content.FetchContent(ctx, stringKeys(ids), withFlags, viewerID)
		record(err)
		*dst = m
	}
	wg.Add(4)
	go fetchActors(&plainActorM, plainActors, false)
	go fetchActors(&flagActorM, flaggedActors, true)
	go fetchTweets(&plainTweetM, plainTweets, false)
	go fetchTweets(&flagTweetM, flaggedTweets, true)
	wg.Wait()
	if firstErr != nil {
		return nil, fmt.Errorf("enrich notifications: %w", firstErr)
	}

	var (
		views         []View
		orphanActors  []uint
		orphanTweets  []string
	)
	for i := range entries {
		e := &entries[i]
		actorM, tweetM := plainActorM, plainTweetM
		if e.NeedsRelationshipFlags() {
			actorM, tweetM = flagActorM, flagTweetM
		}

		view, missingA, missingT, ok := buildView(e, actorM, tweetM)
		orphanActors = append(orphanActors, missingA...)
		orphanTweets = append(orphanTweets, missingT...)
		if !ok {
			continue
		}
		if e.NeedsRelationshipFlags() && len(view.Actors) > 0 && view.Actors[0].IsBlocked {
			// The recipient never sees replies, mentions or quotes across a
			// block, in either direction.
			continue
		}
		views = append(views, view)
	}

	if len(orphanActors) > 0 || len(orphanTweets) > 0 {
		p.cleanup.QueueOrphanCleanup(ctx, viewerID, orphanTweets, orphanActors)
	}
	return views, nil
}

// buildView assembles the typed view for one entry. For aggregated entries
// missing set members are dropped individually; the entry survives as long
// as its sets stay non-empty. Single-reference entries are dropped whole
// when anything is missing.
func buildView(e *Entry, actorM map[uint]models.Actor, tweetM map[string]models.TweetView) (View, []uint, []string, bool) {
	v := View{ID: e.ID, Type: e.Type, CreatedAt: e.CreatedAt}
	var missingActors []uint
	var missingTweets []string

	resolveActors := func(ids []uint) []models.Actor {
		out := make([]models.Actor, 0, len(ids))
		for _, id := range ids {
			if a, ok := actorM[id]; ok {
				out = append(out, a)
			} else {
				missingActors = append(missingActors, id)
			}
		}
		return out
	}
	resolveTweets := func(ids []string) []models.TweetView {
		out := make([]models.TweetView, 0, len(ids))
		for _, id := range ids {
			if t, ok := tweetM[id]; ok {
				out = append(out, t)
			} else {
				missingTweets = append(missingTweets, id)
			}
		}
		return out
	}

	switch e.Type {
	case TypeFollow:
		v.Actors = resolveActors(e.FollowerIDs)
		if len(v.Actors) == 0 {
			return v, missingActors, missingTweets, false
		}
	case TypeLike, TypeRepost:
		v.Actors = resolveActors(e.actorSet())
		v.Tweets = resolveTweets(e.TweetIDs)
		if len(v.Actors) == 0 || len(v.Tweets) == 0 {
			return v, missingActors, missingTweets, false
		}
	case TypeQuote:
		v.Actors = resolveActors([]uint{e.QuotedBy})
		v.Tweets = resolveTweets([]string{e.QuoteTweetID, e.ParentTweetID})
		if len(v.Actors) < 1 || len(v.Tweets) < 2 {
			return v, missingActors, missingTweets, false
		}
	case TypeReply:
		v.Actors = resolveActors([]uint{e.RepliedBy})
		v.Tweets = resolveTweets([]string{e.ReplyTweetID, e.OriginalTweetID})
		v.ConversationID = e.ConversationID
		if len(v.Actors) < 1 || len(v.Tweets) < 2 {
			return v, missingActors, missingTweets, false
		}
	case TypeMention:
		v.Actors = resolveActors([]uint{e.MentionedBy})
		want := []string{e.TweetID}
		if e.ParentTweetID != "" {
			want = append(want, e.ParentTweetID)
		}
		v.Tweets = resolveTweets(want)
		v.TweetKind = e.TweetKind
		if len(v.Actors) < 1 || len(v.Tweets) < len(want) {
			return v, missingActors, missingTweets, false
		}
	case TypeMessage:
		v.Actors = resolveActors([]uint{e.SentBy})
		v.ChatID = e.ChatID
		v.MessageID = e.MessageID
		if len(v.Actors) == 0 {
			return v, missingActors, missingTweets, false
		}
	default:
		return v, missingActors, missingTweets, false
	}

	return v, missingActors, missingTweets, true
}

func uintKeys(m map[uint]bool) []uint {
	out := make([]uint, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func stringKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
