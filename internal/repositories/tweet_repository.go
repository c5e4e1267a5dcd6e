package repositories

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"gorm.io/gorm"

	"github.com/pulse-social/backend/internal/models"
)

// TweetRepository defines the interface for tweet operations
type TweetRepository interface {
	CreateTweet(ctx context.Context, tweet *models.Tweet) error
	GetTweetByID(ctx context.Context, id string) (*models.Tweet, error)
	DeleteTweet(ctx context.Context, id string) error
	IncrementLikesCount(ctx context.Context, id string, delta int) error
	IncrementRepostsCount(ctx context.Context, id string, delta int) error
	FetchContent(ctx context.Context, ids []string, withInteractions bool, viewerID uint) (map[string]models.TweetView, error)
}

type tweetRepository struct {
	mongoCollection *mongo.Collection
	pgDB            *gorm.DB
}

// NewTweetRepository stores tweets in MongoDB; viewer interaction flags come
// from the relational likes/reposts/bookmarks tables.
func NewTweetRepository(mongoDB *mongo.Database, pgDB *gorm.DB) TweetRepository {
	return &tweetRepository{
		mongoCollection: mongoDB.Collection("tweets"),
		pgDB:            pgDB,
	}
}

func (r *tweetRepository) CreateTweet(ctx context.Context, tweet *models.Tweet) error {
	tweet.ID = primitive.NewObjectID()
	tweet.CreatedAt = time.Now()
	tweet.UpdatedAt = tweet.CreatedAt
	if tweet.Kind == "" {
		tweet.Kind = models.TweetKindTweet
	}
	_, err := r.mongoCollection.InsertOne(ctx, tweet)
	return err
}

func (r *tweetRepository) GetTweetByID(ctx context.Context, id string) (*models.Tweet, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("invalid tweet ID format")
	}
	var tweet models.Tweet
	if err := r.mongoCollection.FindOne(ctx, bson.M{"_id": objID}).Decode(&tweet); err != nil {
		return nil, err
	}
	return &tweet, nil
}

func (r *tweetRepository) DeleteTweet(ctx context.Context, id string) error {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("invalid tweet ID format")
	}
	_, err = r.mongoCollection.DeleteOne(ctx, bson.M{"_id": objID})
	return err
}

func (r *tweetRepository) IncrementLikesCount(ctx context.Context, id string, delta int) error {
	return r.incrementCounter(ctx, id, "likes_count", delta)
}

func (r *tweetRepository) IncrementRepostsCount(ctx context.Context, id string, delta int) error {
	return r.incrementCounter(ctx, id, "reposts_count", delta)
}

func (r *tweetRepository) incrementCounter(ctx context.Context, id, field string, delta int) error {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("invalid tweet ID format")
	}
	_, err = r.mongoCollection.UpdateOne(ctx, bson.M{"_id": objID}, bson.M{"$inc": bson.M{field: delta}})
	return err
}

// FetchContent resolves tweet ids in one $in batch, optionally joined with
// the viewer's interaction predicates. Ids that no longer resolve (deleted
// tweets, malformed ids) are absent from the result map; the caller handles
// orphaned references.
func (r *tweetRepository) FetchContent(ctx context.Context, ids []string, withInteractions bool, viewerID uint) (map[string]models.TweetView, error) {
	result := make(map[string]models.TweetView, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	objIDs := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		objID, err := primitive.ObjectIDFromHex(id)
		if err != nil {
			continue
		}
		objIDs = append(objIDs, objID)
	}
	cursor, err := r.mongoCollection.Find(ctx, bson.M{"_id": bson.M{"$in": objIDs}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var tweets []models.Tweet
	if err = cursor.All(ctx, &tweets); err != nil {
		return nil, err
	}
	for i := range tweets {
		view := tweets[i].ToView()
		result[view.ID] = view
	}
	if !withInteractions || len(result) == 0 {
		return result, nil
	}

	found := make([]string, 0, len(result))
	for id := range result {
		found = append(found, id)
	}
	var likedIDs, repostedIDs, bookmarkedIDs []string
	if err := r.pgDB.WithContext(ctx).Model(&models.Like{}).
		Where("user_id = ? AND tweet_id IN ?", viewerID, found).
		Pluck("tweet_id", &likedIDs).Error; err != nil {
		return nil, err
	}
	if err := r.pgDB.WithContext(ctx).Model(&models.Repost{}).
		Where("user_id = ? AND tweet_id IN ?", viewerID, found).
		Pluck("tweet_id", &repostedIDs).Error; err != nil {
		return nil, err
	}
	if err := r.pgDB.WithContext(ctx).Model(&models.Bookmark{}).
		Where("user_id = ? AND tweet_id IN ?", viewerID, found).
		Pluck("tweet_id", &bookmarkedIDs).Error; err != nil {
		return nil, err
	}

	apply := func(ids []string, set func(*models.TweetView)) {
		for _, id := range ids {
			if v, ok := result[id]; ok {
				set(&v)
				result[id] = v
			}
		}
	}
	apply(likedIDs, func(v *models.TweetView) { v.IsLiked = true })
	apply(repostedIDs, func(v *models.TweetView) { v.IsReposted = true })
	apply(bookmarkedIDs, func(v *models.TweetView) { v.IsBookmarked = true })
	return result, nil
}
