package actors

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/expothearchive/archive-backend/internal/models"
)

// ActorRepository defines persistence operations for actors
type ActorRepository interface {
	UpsertBySub(ctx context.Context, a *models.Actor) (*models.Actor, error)
	GetBySub(ctx context.Context, sub string) (*models.Actor, error)
}

// MongoActorRepository implements ActorRepository using MongoDB
type MongoActorRepository struct {
	col *mongo.Collection
}

// NewMongoActorRepository creates a new repository for the given collection
func NewMongoActorRepository(col *mongo.Collection) *MongoActorRepository {
	return &MongoActorRepository{col: col}
}

func (r *MongoActorRepository) UpsertBySub(ctx context.Context, a *models.Actor) (*models.Actor, error) {
	now := time.Now().UTC()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now

	filter := bson.M{"sub": a.Sub}
	repl := bson.M{"$set": bson.M{
		"email":     a.Email,
		"name":      a.Name,
		"avatarUrl": a.AvatarURL,
		"updatedAt": a.UpdatedAt,
		"createdAt": a.CreatedAt,
	}}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	var updated models.Actor
	if err := r.col.FindOneAndUpdate(ctx, filter, repl, opts).Decode(&updated); err != nil {
		if err == mongo.ErrNoDocuments {
			// Shouldn't happen because of upsert, but handle gracefully
			return a, nil
		}
		return nil, err
	}
	return &updated, nil
}

func (r *MongoActorRepository) GetBySub(ctx context.Context, sub string) (*models.Actor, error) {
	var a models.Actor
	if err := r.col.FindOne(ctx, bson.M{"sub": sub}).Decode(&a); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &a, nil
}
