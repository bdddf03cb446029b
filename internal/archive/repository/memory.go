package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/expothearchive/archive-backend/internal/archive"
)

// MemoryRepo is an in-memory Repository used by unit tests and by the
// standalone feed binary when no MongoDB is configured.
type MemoryRepo struct {
	mu       sync.RWMutex
	entries  map[string]*archive.Entry
	comments map[string][]*archive.Comment // keyed by parent entry id
	seq      int                           // insertion order for undated entries
	order    map[string]int

	onChange func()
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		entries:  make(map[string]*archive.Entry),
		comments: make(map[string][]*archive.Comment),
		order:    make(map[string]int),
	}
}

// SetOnChange registers a callback invoked after every successful write.
// Used to drive live-feed invalidation without a change stream.
func (m *MemoryRepo) SetOnChange(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onChange = fn
}

func (m *MemoryRepo) notify() {
	if m.onChange != nil {
		m.onChange()
	}
}

func cloneEntry(e *archive.Entry) *archive.Entry {
	cp := *e
	// keep an empty liker set empty, not nil: it must serialize as a set
	if e.LikedBy != nil {
		cp.LikedBy = append([]string{}, e.LikedBy...)
	}
	return &cp
}

func (m *MemoryRepo) ListEntries(ctx context.Context) ([]*archive.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*archive.Entry, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, cloneEntry(e))
	}
	// newest first; undated entries after all dated ones, in insertion order
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		switch {
		case a.CreatedAt != nil && b.CreatedAt != nil:
			return a.CreatedAt.After(*b.CreatedAt)
		case a.CreatedAt != nil:
			return true
		case b.CreatedAt != nil:
			return false
		default:
			return m.order[a.ID] < m.order[b.ID]
		}
	})
	return out, nil
}

func (m *MemoryRepo) GetEntry(ctx context.Context, id string) (*archive.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if e, ok := m.entries[id]; ok {
		return cloneEntry(e), nil
	}
	return nil, ErrNotFound
}

func (m *MemoryRepo) CreateEntry(ctx context.Context, e *archive.Entry) (string, error) {
	m.mu.Lock()
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt == nil {
		now := time.Now().UTC()
		e.CreatedAt = &now
	}
	if e.LikedBy == nil {
		e.LikedBy = []string{}
	}
	m.seq++
	m.order[e.ID] = m.seq
	m.entries[e.ID] = cloneEntry(e)
	m.mu.Unlock()
	m.notify()
	return e.ID, nil
}

func (m *MemoryRepo) UpdateEntryContent(ctx context.Context, id string, content string) error {
	m.mu.Lock()
	e, ok := m.entries[id]
	if !ok {
		m.mu.Unlock()
		return ErrNotFound
	}
	e.Content = content
	m.mu.Unlock()
	m.notify()
	return nil
}

func (m *MemoryRepo) DeleteEntry(ctx context.Context, id string) error {
	m.mu.Lock()
	delete(m.entries, id)
	delete(m.comments, id)
	delete(m.order, id)
	m.mu.Unlock()
	m.notify()
	return nil
}

func (m *MemoryRepo) ToggleEntryLike(ctx context.Context, id string, actorID string) error {
	m.mu.Lock()
	e, ok := m.entries[id]
	if !ok {
		m.mu.Unlock()
		return ErrNotFound
	}
	liked := false
	for i, v := range e.LikedBy {
		if v == actorID {
			e.LikedBy = append(e.LikedBy[:i], e.LikedBy[i+1:]...)
			e.LikeCount--
			liked = true
			break
		}
	}
	if !liked {
		e.LikedBy = append(e.LikedBy, actorID)
		e.LikeCount++
	}
	m.mu.Unlock()
	m.notify()
	return nil
}

func (m *MemoryRepo) AddComment(ctx context.Context, c *archive.Comment) (string, error) {
	m.mu.Lock()
	if _, ok := m.entries[c.ParentEntryID]; !ok {
		m.mu.Unlock()
		return "", ErrNotFound
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	cp := *c
	m.comments[c.ParentEntryID] = append(m.comments[c.ParentEntryID], &cp)
	m.mu.Unlock()
	m.notify()
	return c.ID, nil
}

func (m *MemoryRepo) ListComments(ctx context.Context, entryID string) ([]*archive.Comment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	list := m.comments[entryID]
	out := make([]*archive.Comment, 0, len(list))
	for _, c := range list {
		cp := *c
		out = append(out, &cp)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (m *MemoryRepo) LikeComment(ctx context.Context, entryID, commentID string) error {
	m.mu.Lock()
	for _, c := range m.comments[entryID] {
		if c.ID == commentID {
			c.LikeCount++
			m.mu.Unlock()
			m.notify()
			return nil
		}
	}
	m.mu.Unlock()
	return ErrCommentNotFound
}
