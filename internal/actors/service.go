package actors

import (
	"context"

	"github.com/expothearchive/archive-backend/internal/models"
)

// Service encapsulates actor-related business logic
type Service struct {
	repo ActorRepository
}

func NewService(r ActorRepository) *Service {
	return &Service{repo: r}
}

// UpsertFromClaims creates or updates an actor using OIDC claims map. The
// avatar comes from the standard "picture" claim when present.
func (s *Service) UpsertFromClaims(ctx context.Context, claims map[string]interface{}) (*models.Actor, error) {
	sub, _ := claims["sub"].(string)
	email, _ := claims["email"].(string)
	name, _ := claims["name"].(string)
	avatar, _ := claims["picture"].(string)
	if sub == "" {
		return nil, nil
	}
	a := &models.Actor{
		Sub:       sub,
		Email:     email,
		Name:      name,
		AvatarURL: avatar,
	}
	return s.repo.UpsertBySub(ctx, a)
}

func (s *Service) GetBySub(ctx context.Context, sub string) (*models.Actor, error) {
	return s.repo.GetBySub(ctx, sub)
}
