package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/expothearchive/archive-backend/internal/archive"
)

// MongoRepo implements Repository over two collections: entries and
// comments. Entries carry an "id" string field (uuid) rather than raw
// ObjectIDs so ids stay opaque strings across backends.
type MongoRepo struct {
	entries  *mongo.Collection
	comments *mongo.Collection
}

func NewMongoRepo(entries, comments *mongo.Collection) *MongoRepo {
	idx := mongo.IndexModel{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)}
	entries.Indexes().CreateOne(context.Background(), idx)
	comments.Indexes().CreateOne(context.Background(), mongo.IndexModel{Keys: bson.D{{Key: "parentEntryId", Value: 1}}})
	return &MongoRepo{entries: entries, comments: comments}
}

func (m *MongoRepo) ListEntries(ctx context.Context) ([]*archive.Entry, error) {
	// descending BSON order places missing createdAt values last, which is
	// exactly the undated-entries-sort-after-dated rule
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cur, err := m.entries.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []*archive.Entry{}
	for cur.Next(ctx) {
		var e archive.Entry
		if err := cur.Decode(&e); err != nil {
			return nil, err
		}
		out = append(out, &e)
	}
	return out, cur.Err()
}

func (m *MongoRepo) GetEntry(ctx context.Context, id string) (*archive.Entry, error) {
	var e archive.Entry
	err := m.entries.FindOne(ctx, bson.M{"id": id}).Decode(&e)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &e, nil
}

func (m *MongoRepo) CreateEntry(ctx context.Context, e *archive.Entry) (string, error) {
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
	if _, err := m.entries.InsertOne(ctx, e); err != nil {
		return "", err
	}
	return e.ID, nil
}

func (m *MongoRepo) UpdateEntryContent(ctx context.Context, id string, content string) error {
	res, err := m.entries.UpdateOne(ctx, bson.M{"id": id}, bson.M{"$set": bson.M{"content": content}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *MongoRepo) DeleteEntry(ctx context.Context, id string) error {
	// idempotent: a zero DeletedCount is still success
	if _, err := m.entries.DeleteOne(ctx, bson.M{"id": id}); err != nil {
		return err
	}
	_, err := m.comments.DeleteMany(ctx, bson.M{"parentEntryId": id})
	return err
}

// ToggleEntryLike is a pair of conditional single-document updates: un-like
// matches only when the actor is already in likedBy, like matches only when
// absent. Each UpdateOne is atomic on the server, so likeCount and likedBy
// can never drift apart under concurrent toggles.
func (m *MongoRepo) ToggleEntryLike(ctx context.Context, id string, actorID string) error {
	res, err := m.entries.UpdateOne(ctx,
		bson.M{"id": id, "likedBy": actorID},
		bson.M{"$pull": bson.M{"likedBy": actorID}, "$inc": bson.M{"likeCount": -1}})
	if err != nil {
		return err
	}
	if res.MatchedCount > 0 {
		return nil
	}
	res, err = m.entries.UpdateOne(ctx,
		bson.M{"id": id, "likedBy": bson.M{"$ne": actorID}},
		bson.M{"$addToSet": bson.M{"likedBy": actorID}, "$inc": bson.M{"likeCount": 1}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *MongoRepo) AddComment(ctx context.Context, c *archive.Comment) (string, error) {
	if err := m.entries.FindOne(ctx, bson.M{"id": c.ParentEntryID}).Err(); err != nil {
		if err == mongo.ErrNoDocuments {
			return "", ErrNotFound
		}
		return "", err
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	if _, err := m.comments.InsertOne(ctx, c); err != nil {
		return "", err
	}
	return c.ID, nil
}

func (m *MongoRepo) ListComments(ctx context.Context, entryID string) ([]*archive.Comment, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})
	cur, err := m.comments.Find(ctx, bson.M{"parentEntryId": entryID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []*archive.Comment{}
	for cur.Next(ctx) {
		var c archive.Comment
		if err := cur.Decode(&c); err != nil {
			return nil, err
		}
		out = append(out, &c)
	}
	return out, cur.Err()
}

func (m *MongoRepo) LikeComment(ctx context.Context, entryID, commentID string) error {
	res, err := m.comments.UpdateOne(ctx,
		bson.M{"id": commentID, "parentEntryId": entryID},
		bson.M{"$inc": bson.M{"likeCount": 1}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrCommentNotFound
	}
	return nil
}

// WatchEntries opens a change stream on the entries collection and invokes
// onChange for every write, until ctx is cancelled or the stream errors.
// Change streams need a replica set; callers should treat an error here as
// "live invalidation unavailable" and fall back to post-write notification.
func (m *MongoRepo) WatchEntries(ctx context.Context, onChange func()) error {
	stream, err := m.entries.Watch(ctx, mongo.Pipeline{})
	if err != nil {
		return err
	}
	go func() {
		defer stream.Close(context.Background())
		for stream.Next(ctx) {
			onChange()
		}
	}()
	return nil
}
