package repository

import (
	"context"
	"errors"

	"github.com/expothearchive/archive-backend/internal/archive"
)

var (
	ErrNotFound        = errors.New("entry not found")
	ErrCommentNotFound = errors.New("comment not found")
)

// Repository is the persistence contract for entries and their comments.
// ListEntries returns entries newest-first by createdAt; entries without a
// createdAt sort after all dated ones in stable order. ListComments returns
// comments oldest-first (chronological thread).
type Repository interface {
	ListEntries(ctx context.Context) ([]*archive.Entry, error)
	GetEntry(ctx context.Context, id string) (*archive.Entry, error)
	CreateEntry(ctx context.Context, e *archive.Entry) (string, error)
	UpdateEntryContent(ctx context.Context, id string, content string) error
	// DeleteEntry is idempotent: deleting an unknown id is a no-op success.
	DeleteEntry(ctx context.Context, id string) error
	// ToggleEntryLike atomically removes actorID from the entry's liker set
	// and decrements likeCount when present, or adds it and increments when
	// absent. Implementations must not use a read-then-write sequence.
	ToggleEntryLike(ctx context.Context, id string, actorID string) error

	AddComment(ctx context.Context, c *archive.Comment) (string, error)
	ListComments(ctx context.Context, entryID string) ([]*archive.Comment, error)
	// LikeComment increments the comment's like counter. There is no
	// per-actor dedup for comment likes.
	LikeComment(ctx context.Context, entryID, commentID string) error
}
