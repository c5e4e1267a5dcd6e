package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Tweet kinds, recorded on mentions so the client can phrase the
// notification ("mentioned you in a reply" vs "in a tweet").
const (
	TweetKindTweet = "tweet"
	TweetKindReply = "reply"
	TweetKindQuote = "quote"
)

// Tweet represents a tweet stored in MongoDB
type Tweet struct {
	ID            primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	AuthorID      uint               `json:"author_id" bson:"author_id"`
	Content       string             `json:"content" bson:"content"`
	Kind          string             `json:"kind" bson:"kind"` // tweet, reply, quote
	ParentTweetID string             `json:"parent_tweet_id,omitempty" bson:"parent_tweet_id,omitempty"`
	ConversationID string            `json:"conversation_id,omitempty" bson:"conversation_id,omitempty"`
	MentionedIDs  []uint             `json:"mentioned_ids,omitempty" bson:"mentioned_ids,omitempty"`
	LikesCount    int                `json:"likes_count" bson:"likes_count"`
	RepostsCount  int                `json:"reposts_count" bson:"reposts_count"`
	RepliesCount  int                `json:"replies_count" bson:"replies_count"`
	CreatedAt     time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at" bson:"updated_at"`
}

// TweetView is a tweet as presented to a specific viewer: the stored fields
// plus viewer-relative interaction flags filled by enrichment. Clean strips
// the flags before the object is cached or re-stored.
type TweetView struct {
	ID        string    `json:"id"`
	AuthorID  uint      `json:"author_id"`
	Content   string    `json:"content"`
	Kind      string    `json:"kind"`
	CreatedAt time.Time `json:"created_at"`

	IsLiked      bool `json:"is_liked,omitempty"`
	IsReposted   bool `json:"is_reposted,omitempty"`
	IsBookmarked bool `json:"is_bookmarked,omitempty"`
}

// Clean returns a copy with every viewer-relative flag zeroed.
func (t TweetView) Clean() TweetView {
	t.IsLiked = false
	t.IsReposted = false
	t.IsBookmarked = false
	return t
}

// ToView converts a stored tweet to its identity-only view form.
func (t *Tweet) ToView() TweetView {
	return TweetView{
		ID:        t.ID.Hex(),
		AuthorID:  t.AuthorID,
		Content:   t.Content,
		Kind:      t.Kind,
		CreatedAt: t.CreatedAt,
	}
}

// CreateTweetRequest defines the request body for posting a new tweet
type CreateTweetRequest struct {
	Content       string `json:"content" validate:"required,min=1,max=280"`
	Kind          string `json:"kind,omitempty" validate:"omitempty,oneof=tweet reply quote"`
	ParentTweetID string `json:"parent_tweet_id,omitempty"`
	MentionedIDs  []uint `json:"mentioned_ids,omitempty" validate:"omitempty,max=10"`
}
