package sessions

import "time"

// Session is a persistent refresh session for a signed-in actor. Stored in
// Redis when available, otherwise in MongoDB.
type Session struct {
	ID           string    `bson:"_id,omitempty" json:"id"`
	RefreshToken string    `bson:"refreshToken" json:"refreshToken"`
	ActorSub     string    `bson:"actorSub" json:"actorSub"`
	ExpiresAt    time.Time `bson:"expiresAt" json:"expiresAt"`
	CreatedAt    time.Time `bson:"createdAt" json:"createdAt"`
}
