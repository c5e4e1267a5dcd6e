package notifications

import (
	"time"

	"github.com/google/uuid"
)

// Type discriminates the notification entry variants. Dispatch is by
// exhaustive switch on this tag; adding a type means extending every switch.
type Type string

const (
	TypeFollow  Type = "follow"
	TypeLike    Type = "like"
	TypeRepost  Type = "repost"
	TypeQuote   Type = "quote"
	TypeReply   Type = "reply"
	TypeMention Type = "mention"
	TypeMessage Type = "message"
)

// Aggregatable reports whether entries of this type may be merged into an
// existing recent entry. Quote, reply, mention and message always append.
func (t Type) Aggregatable() bool {
	return t == TypeFollow || t == TypeLike || t == TypeRepost
}

// CollectionCap bounds every recipient's stored entry list. Inserts re-sort
// by created_at descending and truncate to this size.
const CollectionCap = 50

// AggregationWindow is the rolling period within which same-type events may
// merge into one entry.
const AggregationWindow = 24 * time.Hour

// Entry is one notification in a recipient's collection. It is a tagged
// union: Type selects which payload fields are meaningful, everything else
// stays at its zero value and is omitted from the stored document.
//
// For the aggregatable types the actor/tweet fields are sets. Exactly one of
// the two sets may grow past a single element (the aggregation axis): an
// entry is either "one tweet, many actors" or "one actor, many tweets",
// never both.
type Entry struct {
	ID        string    `bson:"id" json:"id"`
	Type      Type      `bson:"type" json:"type"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`

	// follow
	FollowerIDs []uint `bson:"follower_ids,omitempty" json:"follower_ids,omitempty"`

	// like
	LikedBy []uint `bson:"liked_by,omitempty" json:"liked_by,omitempty"`

	// repost
	RepostedBy []uint `bson:"reposted_by,omitempty" json:"reposted_by,omitempty"`

	// like + repost
	TweetIDs []string `bson:"tweet_ids,omitempty" json:"tweet_ids,omitempty"`

	// quote
	QuotedBy     uint   `bson:"quoted_by,omitempty" json:"quoted_by,omitempty"`
	QuoteTweetID string `bson:"quote_tweet_id,omitempty" json:"quote_tweet_id,omitempty"`

	// quote + mention
	ParentTweetID string `bson:"parent_tweet_id,omitempty" json:"parent_tweet_id,omitempty"`

	// reply
	RepliedBy       uint   `bson:"replied_by,omitempty" json:"replied_by,omitempty"`
	ReplyTweetID    string `bson:"reply_tweet_id,omitempty" json:"reply_tweet_id,omitempty"`
	OriginalTweetID string `bson:"original_tweet_id,omitempty" json:"original_tweet_id,omitempty"`
	ConversationID  string `bson:"conversation_id,omitempty" json:"conversation_id,omitempty"`

	// mention
	MentionedBy uint   `bson:"mentioned_by,omitempty" json:"mentioned_by,omitempty"`
	TweetID     string `bson:"tweet_id,omitempty" json:"tweet_id,omitempty"`
	TweetKind   string `bson:"tweet_kind,omitempty" json:"tweet_kind,omitempty"`

	// message
	SentBy    uint   `bson:"sent_by,omitempty" json:"sent_by,omitempty"`
	MessageID string `bson:"message_id,omitempty" json:"message_id,omitempty"`
	ChatID    uint   `bson:"chat_id,omitempty" json:"chat_id,omitempty"`
}

// NewFollowEntry builds a follow notification candidate.
func NewFollowEntry(followerID uint) Entry {
	return newEntry(TypeFollow, func(e *Entry) {
		e.FollowerIDs = []uint{followerID}
	})
}

// NewLikeEntry builds a like notification candidate for one actor and tweet.
func NewLikeEntry(actorID uint, tweetID string) Entry {
	return newEntry(TypeLike, func(e *Entry) {
		e.LikedBy = []uint{actorID}
		e.TweetIDs = []string{tweetID}
	})
}

// NewRepostEntry builds a repost notification candidate.
func NewRepostEntry(actorID uint, tweetID string) Entry {
	return newEntry(TypeRepost, func(e *Entry) {
		e.RepostedBy = []uint{actorID}
		e.TweetIDs = []string{tweetID}
	})
}

// NewQuoteEntry builds a quote notification candidate.
func NewQuoteEntry(actorID uint, quoteTweetID, parentTweetID string) Entry {
	return newEntry(TypeQuote, func(e *Entry) {
		e.QuotedBy = actorID
		e.QuoteTweetID = quoteTweetID
		e.ParentTweetID = parentTweetID
	})
}

// NewReplyEntry builds a reply notification candidate. conversationID may be
// empty when the reply starts a new thread.
func NewReplyEntry(actorID uint, replyTweetID, originalTweetID, conversationID string) Entry {
	return newEntry(TypeReply, func(e *Entry) {
		e.RepliedBy = actorID
		e.ReplyTweetID = replyTweetID
		e.OriginalTweetID = originalTweetID
		e.ConversationID = conversationID
	})
}

// NewMentionEntry builds a mention notification candidate. parentTweetID may
// be empty for top-level tweets; tweetKind records whether the mention was in
// a tweet, reply or quote.
func NewMentionEntry(actorID uint, tweetID, parentTweetID, tweetKind string) Entry {
	return newEntry(TypeMention, func(e *Entry) {
		e.MentionedBy = actorID
		e.TweetID = tweetID
		e.ParentTweetID = parentTweetID
		e.TweetKind = tweetKind
	})
}

// NewMessageEntry builds a chat message notification candidate.
func NewMessageEntry(senderID uint, messageID string, chatID uint) Entry {
	return newEntry(TypeMessage, func(e *Entry) {
		e.SentBy = senderID
		e.MessageID = messageID
		e.ChatID = chatID
	})
}

func newEntry(t Type, fill func(*Entry)) Entry {
	e := Entry{
		ID:        uuid.NewString(),
		Type:      t,
		CreatedAt: time.Now().UTC(),
	}
	fill(&e)
	return e
}

// actorSet returns the growing actor-id set for aggregatable types, or the
// single referenced actor for the append-only ones.
func (e *Entry) actorSet() []uint {
	switch e.Type {
	case TypeFollow:
		return e.FollowerIDs
	case TypeLike:
		return e.LikedBy
	case TypeRepost:
		return e.RepostedBy
	case TypeQuote:
		return []uint{e.QuotedBy}
	case TypeReply:
		return []uint{e.RepliedBy}
	case TypeMention:
		return []uint{e.MentionedBy}
	case TypeMessage:
		return []uint{e.SentBy}
	}
	return nil
}

// tweetSet returns the growing tweet-id set; only like and repost have one.
func (e *Entry) tweetSet() []string {
	switch e.Type {
	case TypeLike, TypeRepost:
		return e.TweetIDs
	}
	return nil
}

// ActorIDs lists every actor the entry references, for batch enrichment.
func (e *Entry) ActorIDs() []uint {
	ids := e.actorSet()
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if id != 0 {
			out = append(out, id)
		}
	}
	return out
}

// ReferencedTweetIDs lists every tweet the entry references, for batch
// enrichment. Message entries reference no tweet.
func (e *Entry) ReferencedTweetIDs() []string {
	var ids []string
	switch e.Type {
	case TypeLike, TypeRepost:
		ids = e.TweetIDs
	case TypeQuote:
		ids = []string{e.QuoteTweetID, e.ParentTweetID}
	case TypeReply:
		ids = []string{e.ReplyTweetID, e.OriginalTweetID}
	case TypeMention:
		ids = []string{e.TweetID}
		if e.ParentTweetID != "" {
			ids = append(ids, e.ParentTweetID)
		}
	}
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != "" {
			out = append(out, id)
		}
	}
	return out
}

// NeedsRelationshipFlags reports whether enrichment must join viewer-relative
// relationship and interaction predicates for this entry's references.
// Like/repost/follow only need actor identity fields.
func (e *Entry) NeedsRelationshipFlags() bool {
	switch e.Type {
	case TypeReply, TypeMention, TypeQuote:
		return true
	}
	return false
}

// normalize ensures aggregatable payloads are in set form so matching code
// has one shape to compare, and fills in id/timestamp for callers that built
// the entry as a literal.
func (e *Entry) normalize(now time.Time) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
}

// Ref is the compact reference to a pre-merge entry carried on aggregated
// realtime payloads so clients can splice their local list.
type Ref struct {
	ID        string    `json:"id"`
	Type      Type      `json:"type"`
	CreatedAt time.Time `json:"created_at"`
}

func (e *Entry) Ref() Ref {
	return Ref{ID: e.ID, Type: e.Type, CreatedAt: e.CreatedAt}
}
