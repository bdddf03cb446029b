package feed

import (
	"strings"

	"github.com/expothearchive/archive-backend/internal/models"
)

// Session exposes the current actor's privileges to the rest of the feed.
// The admin predicate here is the server-side gate; any client-side check is
// a UX affordance only.
type Session struct {
	adminEmail string
}

func NewSession(adminEmail string) *Session {
	return &Session{adminEmail: strings.ToLower(strings.TrimSpace(adminEmail))}
}

// IsAdmin reports whether the actor is the configured admin. Email
// comparison is case-insensitive: a mixed-case login must not fail the
// check.
func (s *Session) IsAdmin(a *models.Actor) bool {
	if a == nil || s.adminEmail == "" {
		return false
	}
	return strings.ToLower(a.Email) == s.adminEmail
}
