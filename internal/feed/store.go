package feed

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/expothearchive/archive-backend/internal/archive"
	"github.com/expothearchive/archive-backend/pkg/logger"
	"github.com/expothearchive/archive-backend/pkg/metrics"
)

// EntryLister is the read side of the remote collection the store mirrors.
type EntryLister interface {
	ListEntries(ctx context.Context) ([]*archive.Entry, error)
}

// Subscription is a live feed subscription. C delivers full ordered
// snapshots; it is a single-slot mailbox, so a slow consumer only ever sees
// the latest state, never a backlog of intermediate ones.
type Subscription struct {
	C      <-chan []*archive.Entry
	cancel func()
}

// Cancel stops delivery and releases the subscription. Safe to call more
// than once.
func (s *Subscription) Cancel() { s.cancel() }

// Store mirrors the remote entries collection in memory and fans out full
// snapshots to subscribers whenever the collection changes. Refreshes are
// coalesced: many invalidations while a refresh is in flight collapse into
// one follow-up refresh.
type Store struct {
	lister EntryLister

	mu      sync.RWMutex
	entries []*archive.Entry
	loaded  bool
	subs    map[string]chan []*archive.Entry

	kick chan struct{}
}

func NewStore(lister EntryLister) *Store {
	return &Store{
		lister: lister,
		subs:   make(map[string]chan []*archive.Entry),
		kick:   make(chan struct{}, 1),
	}
}

// Invalidate requests a refresh from the backing collection. Non-blocking;
// pending requests coalesce.
func (s *Store) Invalidate() {
	select {
	case s.kick <- struct{}{}:
	default:
	}
}

// Run performs an initial load and then serves invalidation requests until
// ctx is cancelled. On a failed load the last known snapshot is kept and the
// error is only logged; subscribers simply do not hear anything new.
func (s *Store) Run(ctx context.Context) {
	s.refresh(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.kick:
			s.refresh(ctx)
		}
	}
}

func (s *Store) refresh(ctx context.Context) {
	entries, err := s.lister.ListEntries(ctx)
	if err != nil {
		logger.Errorf("feed: refresh failed, keeping last snapshot: %v", err)
		return
	}
	SortEntries(entries)
	s.mu.Lock()
	s.entries = entries
	s.loaded = true
	subs := make([]chan []*archive.Entry, 0, len(s.subs))
	for _, ch := range s.subs {
		subs = append(subs, ch)
	}
	s.mu.Unlock()
	for _, ch := range subs {
		deliver(ch, entries)
	}
	metrics.FeedSnapshots.Add(float64(len(subs)))
}

// deliver overwrites the subscriber's mailbox with the latest snapshot.
func deliver(ch chan []*archive.Entry, snap []*archive.Entry) {
	for {
		select {
		case ch <- snap:
			return
		default:
			select {
			case <-ch: // drop the stale snapshot
			default:
			}
		}
	}
}

// Subscribe registers a live subscriber. If a snapshot has already been
// loaded it is delivered immediately.
func (s *Store) Subscribe() *Subscription {
	ch := make(chan []*archive.Entry, 1)
	id := uuid.NewString()
	s.mu.Lock()
	s.subs[id] = ch
	if s.loaded {
		ch <- s.entries
	}
	s.mu.Unlock()

	var once sync.Once
	return &Subscription{
		C: ch,
		cancel: func() {
			once.Do(func() {
				s.mu.Lock()
				delete(s.subs, id)
				s.mu.Unlock()
			})
		},
	}
}

// Snapshot returns the current mirrored list.
func (s *Store) Snapshot() []*archive.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.entries
}

// SortEntries orders entries newest-first by CreatedAt. Entries without a
// CreatedAt sort after all dated ones, keeping their relative input order.
func SortEntries(entries []*archive.Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		switch {
		case a.CreatedAt != nil && b.CreatedAt != nil:
			return a.CreatedAt.After(*b.CreatedAt)
		case a.CreatedAt != nil:
			return true
		default:
			return false
		}
	})
}
