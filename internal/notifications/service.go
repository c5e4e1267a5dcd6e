package notifications

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/pulse-social/backend/internal/pagination"
)

// DefaultPageLimit is used when a caller passes no or an out-of-range limit.
const DefaultPageLimit = 20

// Service is the facade the rest of the backend talks to: event producers
// call Notify, the read path calls ListPage / MarkSeen / GetUnseenCount.
type Service struct {
	engine   *Engine
	pipeline *Pipeline
	router   *Router
	store    Store
}

func NewService(store Store, pipeline *Pipeline, router *Router) *Service {
	return &Service{
		engine:   NewEngine(store),
		pipeline: pipeline,
		router:   router,
		store:    store,
	}
}

// Notify submits one event, enriches the outcome and routes delivery. The
// storage outcome is returned to the caller; enrichment or delivery problems
// are logged and swallowed so the triggering action never fails on them.
func (s *Service) Notify(ctx context.Context, recipientID uint, entry Entry) (Result, error) {
	res, err := s.engine.Submit(ctx, recipientID, entry)
	if err != nil {
		return Result{}, err
	}

	views, err := s.pipeline.Enrich(ctx, recipientID, []Entry{res.Entry})
	if err != nil {
		log.Printf("enrich notification for user %d: %v", recipientID, err)
		return res, nil
	}
	var view *View
	if len(views) == 1 {
		view = &views[0]
	}
	s.router.Deliver(ctx, recipientID, res, view)
	return res, nil
}

// ListPage returns one keyset page of the recipient's notifications:
// deduplicated, enriched and filtered for the viewer. A collection that
// cannot be resolved at all yields an empty page, not an error.
func (s *Service) ListPage(ctx context.Context, recipientID, viewerID uint, cursorToken string, limit int) (pagination.Page[View], error) {
	if limit < 1 || limit > CollectionCap {
		limit = DefaultPageLimit
	}
	cursor, err := pagination.Decode(cursorToken)
	if err != nil {
		return pagination.Page[View]{}, fmt.Errorf("list notifications: %w", err)
	}

	coll, err := s.store.Get(ctx, recipientID)
	if err != nil {
		log.Printf("resolve notification collection for user %d: %v", recipientID, err)
		return pagination.Page[View]{Items: []View{}}, nil
	}
	if coll == nil || len(coll.Entries) == 0 {
		return pagination.Page[View]{Items: []View{}}, nil
	}

	entries := append([]Entry(nil), coll.Entries...)
	// Merges bump created_at in place; restore newest-first order before
	// paginating.
	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].CreatedAt.Equal(entries[j].CreatedAt) {
			return entries[i].CreatedAt.After(entries[j].CreatedAt)
		}
		return entries[i].ID > entries[j].ID
	})
	entries = collapseEquivalent(entries)

	if cursor != nil {
		kept := entries[:0]
		for _, e := range entries {
			if e.CreatedAt.Before(cursor.Timestamp) ||
				(e.CreatedAt.Equal(cursor.Timestamp) && e.ID < cursor.ID) {
				kept = append(kept, e)
			}
		}
		entries = kept
	}

	page := pagination.Page[View]{}
	if len(entries) > limit {
		entries = entries[:limit]
		page.HasMore = true
		last := entries[len(entries)-1]
		page.NextCursor = pagination.Cursor{Timestamp: last.CreatedAt, ID: last.ID}.Encode()
	}

	views, err := s.pipeline.Enrich(ctx, viewerID, entries)
	if err != nil {
		return pagination.Page[View]{}, fmt.Errorf("list notifications: %w", err)
	}
	if views == nil {
		views = []View{}
	}
	page.Items = views
	return page, nil
}

// MarkSeen zeroes the recipient's unseen counter.
func (s *Service) MarkSeen(ctx context.Context, recipientID uint) error {
	return s.store.ResetUnseen(ctx, recipientID)
}

// GetUnseenCount reads the recipient's unseen counter.
func (s *Service) GetUnseenCount(ctx context.Context, recipientID uint) (int, error) {
	return s.store.UnseenCount(ctx, recipientID)
}

// IsOnline exposes presence to delivery-adjacent features (chat uses it to
// pick socket vs push for its own payloads).
func (s *Service) IsOnline(userID uint) bool {
	return s.router.presence.IsOnline(userID)
}

// collapseEquivalent drops aggregated entries that duplicate an earlier
// (newer) entry of the same type with identical axis sets. Duplicates appear
// when a merge lost its race and degraded to an insert; the listing hides
// them even though both records exist.
func collapseEquivalent(entries []Entry) []Entry {
	seen := make(map[string]bool, len(entries))
	out := entries[:0]
	for _, e := range entries {
		if !e.Type.Aggregatable() {
			out = append(out, e)
			continue
		}
		key := equivalenceKey(&e)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, e)
	}
	return out
}

func equivalenceKey(e *Entry) string {
	actors := append([]uint(nil), e.actorSet()...)
	sort.Slice(actors, func(i, j int) bool { return actors[i] < actors[j] })
	tweets := append([]string(nil), e.tweetSet()...)
	sort.Strings(tweets)

	var b strings.Builder
	b.WriteString(string(e.Type))
	for _, id := range actors {
		fmt.Fprintf(&b, "|a%d", id)
	}
	for _, id := range tweets {
		b.WriteString("|t")
		b.WriteString(id)
	}
	return b.String()
}
