package feed

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/expothearchive/archive-backend/internal/archive"
	"github.com/expothearchive/archive-backend/internal/archive/repository"
	"github.com/expothearchive/archive-backend/internal/models"
	"github.com/expothearchive/archive-backend/pkg/logger"
	"github.com/expothearchive/archive-backend/pkg/metrics"
)

var (
	// ErrSignInRequired rejects an operation that needs a non-null actor.
	ErrSignInRequired = errors.New("sign in required")
	// ErrAdminOnly rejects an operation reserved for the admin actor.
	ErrAdminOnly = errors.New("admin only")
	// ErrInvalidEntry rejects a draft missing required fields.
	ErrInvalidEntry = errors.New("invalid entry")
	// ErrEmptyComment rejects a comment that is empty after trimming.
	ErrEmptyComment = errors.New("comment text must not be empty")
)

// Gateway translates user actions into writes against the entries
// collection. Authorization and validation are checked locally before any
// remote call; successful writes do not patch the local mirror — the store
// is invalidated and the subscription redelivers truth.
type Gateway struct {
	repo    repository.Repository
	store   *Store
	session *Session
}

func NewGateway(repo repository.Repository, store *Store, session *Session) *Gateway {
	return &Gateway{repo: repo, store: store, session: session}
}

// Session returns the gateway's session context.
func (g *Gateway) Session() *Session { return g.session }

func (g *Gateway) invalidate() {
	if g.store != nil {
		g.store.Invalidate()
	}
}

func (g *Gateway) done(op string, err error) error {
	outcome := "ok"
	if err != nil {
		outcome = "error"
		logger.Errorf("gateway: %s failed: %v", op, err)
	}
	metrics.Mutations.WithLabelValues(op, outcome).Inc()
	return err
}

// CreateEntry validates the draft, stamps ownership and zeroed like state,
// and persists. The id and createdAt are assigned by the repository.
func (g *Gateway) CreateEntry(ctx context.Context, draft archive.EntryDraft, actor *models.Actor) (string, error) {
	if actor == nil {
		return "", ErrSignInRequired
	}
	if err := validateDraft(draft); err != nil {
		return "", err
	}
	e := &archive.Entry{
		Type:       draft.Type,
		Content:    draft.Content,
		Title:      draft.Title,
		MediaRef:   draft.MediaRef,
		IsFeatured: draft.IsFeatured,
		Tags:       draft.Tags,
		AuthorID:   actor.Sub,
		LikeCount:  0,
		LikedBy:    []string{},
	}
	id, err := g.repo.CreateEntry(ctx, e)
	if err != nil {
		return "", g.done("create_entry", err)
	}
	g.invalidate()
	return id, g.done("create_entry", nil)
}

func validateDraft(d archive.EntryDraft) error {
	switch d.Type {
	case archive.TypeText:
		if strings.TrimSpace(d.Content) == "" {
			return fmt.Errorf("%w: content required for text entries", ErrInvalidEntry)
		}
	case archive.TypeImage:
		if strings.TrimSpace(d.Title) == "" {
			return fmt.Errorf("%w: title required for image entries", ErrInvalidEntry)
		}
		if strings.TrimSpace(d.MediaRef) == "" {
			return fmt.Errorf("%w: mediaRef required for image entries", ErrInvalidEntry)
		}
	default:
		return fmt.Errorf("%w: unknown type %q", ErrInvalidEntry, d.Type)
	}
	return nil
}

// DeleteEntry removes an entry and its comments. Deleting an unknown id is
// a no-op success.
func (g *Gateway) DeleteEntry(ctx context.Context, id string, actor *models.Actor) error {
	if !g.session.IsAdmin(actor) {
		return ErrAdminOnly
	}
	if err := g.repo.DeleteEntry(ctx, id); err != nil {
		return g.done("delete_entry", err)
	}
	g.invalidate()
	return g.done("delete_entry", nil)
}

// EditEntryContent replaces only the content field; all other fields stay
// untouched.
func (g *Gateway) EditEntryContent(ctx context.Context, id, newContent string, actor *models.Actor) error {
	if !g.session.IsAdmin(actor) {
		return ErrAdminOnly
	}
	if err := g.repo.UpdateEntryContent(ctx, id, newContent); err != nil {
		return g.done("edit_entry", err)
	}
	g.invalidate()
	return g.done("edit_entry", nil)
}

// ToggleLike flips the actor's membership in the entry's liker set. The
// repository performs the conditional add/remove atomically, so toggling
// twice always restores the starting state and likeCount == |likedBy| holds
// under concurrent toggles from different actors.
func (g *Gateway) ToggleLike(ctx context.Context, id string, actor *models.Actor) error {
	if actor == nil {
		return ErrSignInRequired
	}
	if err := g.repo.ToggleEntryLike(ctx, id, actor.Sub); err != nil {
		return g.done("toggle_like", err)
	}
	g.invalidate()
	return g.done("toggle_like", nil)
}

// AddComment stores a comment with a snapshot of the commenting actor's
// display identity and admin standing as of now. Historical comments keep
// that snapshot even if the actor's profile later changes.
func (g *Gateway) AddComment(ctx context.Context, entryID, text string, actor *models.Actor) (string, error) {
	if actor == nil {
		return "", ErrSignInRequired
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyComment
	}
	c := &archive.Comment{
		ParentEntryID: entryID,
		Text:          text,
		AuthorName:    actor.Name,
		AuthorAvatar:  actor.AvatarURL,
		IsAuthorAdmin: g.session.IsAdmin(actor),
	}
	id, err := g.repo.AddComment(ctx, c)
	if err != nil {
		return "", g.done("add_comment", err)
	}
	g.invalidate()
	return id, g.done("add_comment", nil)
}

// Comments returns an entry's comment thread, oldest first.
func (g *Gateway) Comments(ctx context.Context, entryID string) ([]*archive.Comment, error) {
	return g.repo.ListComments(ctx, entryID)
}

// ToggleCommentLike bumps a comment's like counter. Comment likes have no
// per-actor dedup: repeated likes keep incrementing. Known limitation kept
// from the original behavior.
func (g *Gateway) ToggleCommentLike(ctx context.Context, entryID, commentID string, actor *models.Actor) error {
	if actor == nil {
		return ErrSignInRequired
	}
	if err := g.repo.LikeComment(ctx, entryID, commentID); err != nil {
		return g.done("comment_like", err)
	}
	g.invalidate()
	return g.done("comment_like", nil)
}
