package notifications

import (
	"context"
	"sort"
	"sync"
)

// fakeStore models the storage contract in memory, including the fail-closed
// conditional merge, so engine and listing behavior can be tested without a
// live database.
type fakeStore struct {
	mu        sync.Mutex
	colls     map[uint]*Collection
	getErr    error
	appendErr error
	mergeErr  error
	removed   map[uint][]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		colls:   make(map[uint]*Collection),
		removed: make(map[uint][]string),
	}
}

func (s *fakeStore) Get(_ context.Context, recipientID uint) (*Collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return nil, s.getErr
	}
	coll, ok := s.colls[recipientID]
	if !ok {
		return nil, nil
	}
	cp := *coll
	cp.Entries = append([]Entry(nil), coll.Entries...)
	return &cp, nil
}

func (s *fakeStore) Append(_ context.Context, recipientID uint, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.appendErr != nil {
		return s.appendErr
	}
	coll, ok := s.colls[recipientID]
	if !ok {
		coll = &Collection{RecipientID: recipientID}
		s.colls[recipientID] = coll
	}
	coll.Entries = append(coll.Entries, e)
	sort.SliceStable(coll.Entries, func(i, j int) bool {
		return coll.Entries[i].CreatedAt.After(coll.Entries[j].CreatedAt)
	})
	if len(coll.Entries) > CollectionCap {
		coll.Entries = coll.Entries[:CollectionCap]
	}
	coll.UnseenCount++
	return nil
}

func (s *fakeStore) MergeEntry(_ context.Context, recipientID uint, m Merge) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mergeErr != nil {
		return Entry{}, s.mergeErr
	}
	coll, ok := s.colls[recipientID]
	if !ok {
		return Entry{}, ErrNoMatch
	}
	for i := range coll.Entries {
		e := &coll.Entries[i]
		if e.ID != m.EntryID || e.Type != m.Type || e.CreatedAt.Before(m.Cutoff) {
			continue
		}
		// Re-assert the single-element axis set the filter promised.
		switch m.Axis {
		case TweetAxis:
			set := e.tweetSet()
			if len(set) != 1 || set[0] != m.MatchedTweet {
				return Entry{}, ErrNoMatch
			}
		case ActorAxis:
			set := e.actorSet()
			if len(set) != 1 || set[0] != m.MatchedActor {
				return Entry{}, ErrNoMatch
			}
		}
		if m.AddActor != 0 {
			addActor(e, m.AddActor)
		}
		if m.AddTweet != "" {
			e.TweetIDs = unionString(e.TweetIDs, m.AddTweet)
		}
		e.CreatedAt = m.Now
		return *e, nil
	}
	return Entry{}, ErrNoMatch
}

func (s *fakeStore) RemoveEntries(_ context.Context, recipientID uint, entryIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removed[recipientID] = append(s.removed[recipientID], entryIDs...)
	coll, ok := s.colls[recipientID]
	if !ok {
		return nil
	}
	drop := make(map[string]bool, len(entryIDs))
	for _, id := range entryIDs {
		drop[id] = true
	}
	kept := coll.Entries[:0]
	for _, e := range coll.Entries {
		if !drop[e.ID] {
			kept = append(kept, e)
		}
	}
	coll.Entries = kept
	return nil
}

func (s *fakeStore) UnseenCount(_ context.Context, recipientID uint) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	coll, ok := s.colls[recipientID]
	if !ok {
		return 0, nil
	}
	return coll.UnseenCount, nil
}

func (s *fakeStore) ResetUnseen(_ context.Context, recipientID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if coll, ok := s.colls[recipientID]; ok {
		coll.UnseenCount = 0
	}
	return nil
}

func addActor(e *Entry, id uint) {
	switch e.Type {
	case TypeFollow:
		e.FollowerIDs = unionUint(e.FollowerIDs, id)
	case TypeLike:
		e.LikedBy = unionUint(e.LikedBy, id)
	case TypeRepost:
		e.RepostedBy = unionUint(e.RepostedBy, id)
	}
}

func unionUint(set []uint, v uint) []uint {
	for _, x := range set {
		if x == v {
			return set
		}
	}
	return append(set, v)
}

func unionString(set []string, v string) []string {
	for _, x := range set {
		if x == v {
			return set
		}
	}
	return append(set, v)
}
