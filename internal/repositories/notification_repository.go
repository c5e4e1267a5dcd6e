package repositories

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/pulse-social/backend/internal/notifications"
)

// MongoNotificationRepository implements notifications.Store on a MongoDB
// collection holding one document per recipient. Capacity, ordering and
// conditional merges are all enforced server-side in single update commands,
// so concurrent submits for the same recipient never lose writes to a
// read-modify-write gap.
type MongoNotificationRepository struct {
	collection *mongo.Collection
}

func NewMongoNotificationRepository(db *mongo.Database) *MongoNotificationRepository {
	return &MongoNotificationRepository{collection: db.Collection("notifications")}
}

func (r *MongoNotificationRepository) Get(ctx context.Context, recipientID uint) (*notifications.Collection, error) {
	var coll notifications.Collection
	err := r.collection.FindOne(ctx, bson.M{"_id": recipientID}).Decode(&coll)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &coll, nil
}

// Append upserts the recipient document and pushes the entry with $sort and
// $slice so the list stays newest-first and capped in the same command.
func (r *MongoNotificationRepository) Append(ctx context.Context, recipientID uint, e notifications.Entry) error {
	update := bson.M{
		"$push": bson.M{
			"entries": bson.M{
				"$each":  bson.A{e},
				"$sort":  bson.M{"created_at": -1},
				"$slice": notifications.CollectionCap,
			},
		},
		"$inc": bson.M{"unseen_count": 1},
	}
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": recipientID}, update, options.Update().SetUpsert(true))
	return err
}

// MergeEntry is the match-on-predicate-and-write primitive. The $elemMatch
// filter re-asserts everything the engine observed — entry id, type, window
// cutoff and the exact single-element axis set — so a concurrent mutation
// that invalidated any of it makes the whole update match nothing and the
// caller falls back to a plain insert.
func (r *MongoNotificationRepository) MergeEntry(ctx context.Context, recipientID uint, m notifications.Merge) (notifications.Entry, error) {
	elem := bson.M{
		"id":         m.EntryID,
		"type":       m.Type,
		"created_at": bson.M{"$gte": m.Cutoff},
	}
	switch m.Axis {
	case notifications.TweetAxis:
		// Whole-array equality: matches only [matchedTweet], nothing longer.
		elem[tweetSetField()] = bson.A{m.MatchedTweet}
	case notifications.ActorAxis:
		elem[actorSetField(m.Type)] = bson.A{m.MatchedActor}
	default:
		return notifications.Entry{}, fmt.Errorf("unknown merge axis %q", m.Axis)
	}

	addToSet := bson.M{}
	if m.AddActor != 0 {
		addToSet["entries.$."+actorSetField(m.Type)] = m.AddActor
	}
	if m.AddTweet != "" {
		addToSet["entries.$."+tweetSetField()] = m.AddTweet
	}
	update := bson.M{
		"$addToSet": addToSet,
		"$set":      bson.M{"entries.$.created_at": m.Now},
	}

	filter := bson.M{"_id": recipientID, "entries": bson.M{"$elemMatch": elem}}
	var coll notifications.Collection
	err := r.collection.FindOneAndUpdate(ctx, filter, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&coll)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return notifications.Entry{}, notifications.ErrNoMatch
	}
	if err != nil {
		return notifications.Entry{}, err
	}

	for i := range coll.Entries {
		if coll.Entries[i].ID == m.EntryID {
			return coll.Entries[i], nil
		}
	}
	// Matched but evicted between update and decode; treat as a conflict.
	return notifications.Entry{}, notifications.ErrNoMatch
}

func (r *MongoNotificationRepository) RemoveEntries(ctx context.Context, recipientID uint, entryIDs []string) error {
	if len(entryIDs) == 0 {
		return nil
	}
	update := bson.M{"$pull": bson.M{"entries": bson.M{"id": bson.M{"$in": entryIDs}}}}
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": recipientID}, update)
	return err
}

func (r *MongoNotificationRepository) UnseenCount(ctx context.Context, recipientID uint) (int, error) {
	var doc struct {
		UnseenCount int `bson:"unseen_count"`
	}
	err := r.collection.FindOne(ctx, bson.M{"_id": recipientID},
		options.FindOne().SetProjection(bson.M{"unseen_count": 1})).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return doc.UnseenCount, nil
}

func (r *MongoNotificationRepository) ResetUnseen(ctx context.Context, recipientID uint) error {
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": recipientID},
		bson.M{"$set": bson.M{"unseen_count": 0}})
	return err
}

// actorSetField maps an aggregatable type to the bson key of its growing
// actor set.
func actorSetField(t notifications.Type) string {
	switch t {
	case notifications.TypeFollow:
		return "follower_ids"
	case notifications.TypeLike:
		return "liked_by"
	case notifications.TypeRepost:
		return "reposted_by"
	}
	return ""
}

// tweetSetField is the bson key of the tweet-id set; like and repost share it.
func tweetSetField() string {
	return "tweet_ids"
}
