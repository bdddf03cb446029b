package tokens

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/expothearchive/archive-backend/internal/config"
	"github.com/expothearchive/archive-backend/internal/models"
)

// GenerateAccessToken creates a signed JWT access token for the actor
func GenerateAccessToken(cfg *config.Config, a *models.Actor, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"sub":     a.Sub,
		"name":    a.Name,
		"email":   a.Email,
		"picture": a.AvatarURL,
		"iat":     time.Now().Unix(),
		"exp":     time.Now().Add(ttl).Unix(),
	}
	jt := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return jt.SignedString([]byte(cfg.JWT.Secret))
}
