package repositories

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/pulse-social/backend/internal/models"
)

// InteractionRepository defines the interface for like/repost/bookmark rows
type InteractionRepository interface {
	CreateLike(like *models.Like) error
	DeleteLike(tweetID string, userID uint) error
	HasUserLikedTweet(tweetID string, userID uint) (bool, error)
	CreateRepost(repost *models.Repost) error
	DeleteRepost(tweetID string, userID uint) error
	HasUserRepostedTweet(tweetID string, userID uint) (bool, error)
	CreateBookmark(bookmark *models.Bookmark) error
	DeleteBookmark(tweetID string, userID uint) error
}

// PostgresInteractionRepository implements InteractionRepository for PostgreSQL
type PostgresInteractionRepository struct {
	db *gorm.DB
}

// NewPostgresInteractionRepository creates a new PostgresInteractionRepository
func NewPostgresInteractionRepository(db *gorm.DB) *PostgresInteractionRepository {
	return &PostgresInteractionRepository{db: db}
}

func (r *PostgresInteractionRepository) CreateLike(like *models.Like) error {
	return r.db.Create(like).Error
}

func (r *PostgresInteractionRepository) DeleteLike(tweetID string, userID uint) error {
	res := r.db.Where("tweet_id = ? AND user_id = ?", tweetID, userID).Delete(&models.Like{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("like not found")
	}
	return nil
}

func (r *PostgresInteractionRepository) HasUserLikedTweet(tweetID string, userID uint) (bool, error) {
	var count int64
	err := r.db.Model(&models.Like{}).Where("tweet_id = ? AND user_id = ?", tweetID, userID).Count(&count).Error
	return count > 0, err
}

func (r *PostgresInteractionRepository) CreateRepost(repost *models.Repost) error {
	return r.db.Create(repost).Error
}

func (r *PostgresInteractionRepository) DeleteRepost(tweetID string, userID uint) error {
	res := r.db.Where("tweet_id = ? AND user_id = ?", tweetID, userID).Delete(&models.Repost{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("repost not found")
	}
	return nil
}

func (r *PostgresInteractionRepository) HasUserRepostedTweet(tweetID string, userID uint) (bool, error) {
	var count int64
	err := r.db.Model(&models.Repost{}).Where("tweet_id = ? AND user_id = ?", tweetID, userID).Count(&count).Error
	return count > 0, err
}

func (r *PostgresInteractionRepository) CreateBookmark(bookmark *models.Bookmark) error {
	return r.db.Create(bookmark).Error
}

func (r *PostgresInteractionRepository) DeleteBookmark(tweetID string, userID uint) error {
	res := r.db.Where("tweet_id = ? AND user_id = ?", tweetID, userID).Delete(&models.Bookmark{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("bookmark not found")
	}
	return nil
}
