package archive

import "time"

// EntryType distinguishes blog-style text posts from image artworks.
type EntryType string

const (
	TypeText  EntryType = "text"
	TypeImage EntryType = "image"
)

// Entry is a single archive item. Entries are ordered newest-first by
// CreatedAt; legacy entries without a timestamp sort after all dated ones.
type Entry struct {
	ID         string     `json:"id" bson:"id"`
	Type       EntryType  `json:"type" bson:"type"`
	Content    string     `json:"content" bson:"content"`
	Title      string     `json:"title,omitempty" bson:"title,omitempty"`
	MediaRef   string     `json:"mediaRef,omitempty" bson:"mediaRef,omitempty"`
	IsFeatured bool       `json:"isFeatured" bson:"isFeatured"`
	Tags       string     `json:"tags,omitempty" bson:"tags,omitempty"`
	AuthorID   string     `json:"authorId" bson:"authorId"`
	CreatedAt  *time.Time `json:"createdAt,omitempty" bson:"createdAt,omitempty"`
	LikeCount  int        `json:"likeCount" bson:"likeCount"`
	LikedBy    []string   `json:"likedBy" bson:"likedBy"`
}

// LikedByActor reports whether the given actor id is in the entry's liker set.
func (e *Entry) LikedByActor(actorID string) bool {
	for _, id := range e.LikedBy {
		if id == actorID {
			return true
		}
	}
	return false
}

// Comment is a reply attached to an Entry. Author identity fields are a
// snapshot taken at comment time and are never re-joined against the live
// actor record.
type Comment struct {
	ID            string    `json:"id" bson:"id"`
	ParentEntryID string    `json:"parentEntryId" bson:"parentEntryId"`
	Text          string    `json:"text" bson:"text"`
	AuthorName    string    `json:"authorName" bson:"authorName"`
	AuthorAvatar  string    `json:"authorAvatar,omitempty" bson:"authorAvatar,omitempty"`
	IsAuthorAdmin bool      `json:"isAuthorAdmin" bson:"isAuthorAdmin"`
	CreatedAt     time.Time `json:"createdAt" bson:"createdAt"`
	LikeCount     int       `json:"likeCount" bson:"likeCount"`
}

// EntryDraft carries the caller-supplied fields for a new entry. The
// repository assigns ID, CreatedAt and the like fields.
type EntryDraft struct {
	Type       EntryType `json:"type"`
	Content    string    `json:"content"`
	Title      string    `json:"title"`
	MediaRef   string    `json:"mediaRef"`
	IsFeatured bool      `json:"isFeatured"`
	Tags       string    `json:"tags"`
}
