package feed

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/expothearchive/archive-backend/internal/archive"
)

// fakeLister serves a swappable entry list and can be told to fail.
type fakeLister struct {
	mu      sync.Mutex
	entries []*archive.Entry
	err     error
}

func (f *fakeLister) set(entries []*archive.Entry, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = entries
	f.err = err
}

func (f *fakeLister) ListEntries(ctx context.Context) ([]*archive.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := make([]*archive.Entry, len(f.entries))
	copy(out, f.entries)
	return out, nil
}

func ts(s string) *time.Time {
	t, _ := time.Parse(time.RFC3339, s)
	return &t
}

func runStore(t *testing.T, lister EntryLister) *Store {
	t.Helper()
	s := NewStore(lister)
	ctx, cancel := context.WithCancel(context.Background())
	go s.Run(ctx)
	t.Cleanup(cancel)
	return s
}

func waitSnapshot(t *testing.T, s *Store, n int) []*archive.Entry {
	t.Helper()
	require.Eventually(t, func() bool {
		return len(s.Snapshot()) == n
	}, 2*time.Second, 5*time.Millisecond)
	return s.Snapshot()
}

func TestStoreOrdersNewestFirst(t *testing.T) {
	lister := &fakeLister{}
	lister.set([]*archive.Entry{
		{ID: "old", CreatedAt: ts("2020-01-01T00:00:00Z")},
		{ID: "new", CreatedAt: ts("2023-01-01T00:00:00Z")},
		{ID: "legacy"}, // no timestamp
		{ID: "mid", CreatedAt: ts("2021-06-15T00:00:00Z")},
	}, nil)

	s := runStore(t, lister)
	snap := waitSnapshot(t, s, 4)

	assert.Equal(t, "new", snap[0].ID)
	assert.Equal(t, "mid", snap[1].ID)
	assert.Equal(t, "old", snap[2].ID)
	// undated entries sort after every dated one
	assert.Equal(t, "legacy", snap[3].ID)
}

func TestSubscribeDeliversCurrentSnapshot(t *testing.T) {
	lister := &fakeLister{}
	lister.set([]*archive.Entry{{ID: "a", CreatedAt: ts("2023-01-01T00:00:00Z")}}, nil)

	s := runStore(t, lister)
	waitSnapshot(t, s, 1)

	sub := s.Subscribe()
	defer sub.Cancel()

	select {
	case snap := <-sub.C:
		require.Len(t, snap, 1)
		assert.Equal(t, "a", snap[0].ID)
	case <-time.After(time.Second):
		t.Fatal("expected an immediate snapshot after Subscribe")
	}
}

func TestInvalidateRedeliversToSubscribers(t *testing.T) {
	lister := &fakeLister{}
	lister.set(nil, nil)

	s := runStore(t, lister)
	waitSnapshot(t, s, 0)

	sub := s.Subscribe()
	defer sub.Cancel()
	<-sub.C // drain the initial empty snapshot

	lister.set([]*archive.Entry{{ID: "x", CreatedAt: ts("2023-01-01T00:00:00Z")}}, nil)
	s.Invalidate()

	select {
	case snap := <-sub.C:
		require.Len(t, snap, 1)
		assert.Equal(t, "x", snap[0].ID)
	case <-time.After(2 * time.Second):
		t.Fatal("expected a snapshot after Invalidate")
	}
}

func TestSlowSubscriberSeesOnlyLatest(t *testing.T) {
	lister := &fakeLister{}
	lister.set(nil, nil)

	s := runStore(t, lister)
	waitSnapshot(t, s, 0)

	sub := s.Subscribe()
	defer sub.Cancel()
	<-sub.C

	// several updates while the consumer is not reading
	for i := 1; i <= 3; i++ {
		entries := make([]*archive.Entry, 0, i)
		for j := 0; j < i; j++ {
			entries = append(entries, &archive.Entry{ID: string(rune('a' + j))})
		}
		lister.set(entries, nil)
		s.Invalidate()
		waitSnapshot(t, s, i)
	}

	// the mailbox holds a single snapshot; the first read is the newest state
	var snap []*archive.Entry
	require.Eventually(t, func() bool {
		select {
		case snap = <-sub.C:
		default:
		}
		return len(snap) == 3
	}, 2*time.Second, 5*time.Millisecond)
	select {
	case <-sub.C:
		t.Fatal("expected no backlog of intermediate snapshots")
	default:
	}
}

func TestCancelStopsDelivery(t *testing.T) {
	lister := &fakeLister{}
	lister.set(nil, nil)

	s := runStore(t, lister)
	waitSnapshot(t, s, 0)

	sub := s.Subscribe()
	<-sub.C
	sub.Cancel()
	sub.Cancel() // safe to call twice

	lister.set([]*archive.Entry{{ID: "x"}}, nil)
	s.Invalidate()
	waitSnapshot(t, s, 1)

	select {
	case _, ok := <-sub.C:
		if ok {
			t.Fatal("cancelled subscription must not receive snapshots")
		}
	default:
	}
}

func TestFailedRefreshKeepsLastSnapshot(t *testing.T) {
	lister := &fakeLister{}
	lister.set([]*archive.Entry{{ID: "keep"}}, nil)

	s := runStore(t, lister)
	waitSnapshot(t, s, 1)

	lister.set(nil, errors.New("connection reset"))
	s.Invalidate()

	// give the refresh loop a moment to process the failure
	time.Sleep(50 * time.Millisecond)
	snap := s.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, "keep", snap[0].ID)
}
