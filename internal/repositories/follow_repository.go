package repositories

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/pulse-social/backend/internal/models"
)

// FollowRepository defines the interface for follow/block/mute operations
type FollowRepository interface {
	CreateFollow(follow *models.Follow) error
	DeleteFollow(followerID, followingID uint) error
	IsFollowing(followerID, followingID uint) (bool, error)
	GetFollowersCount(userID uint) (int64, error)
	GetFollowingIDs(userID uint) ([]uint, error)
	CreateBlock(block *models.Block) error
	DeleteBlock(blockerID, blockedID uint) error
	IsBlockedEitherWay(userA, userB uint) (bool, error)
	CreateMute(mute *models.Mute) error
	DeleteMute(muterID, mutedID uint) error
}

// PostgresFollowRepository implements FollowRepository for PostgreSQL
type PostgresFollowRepository struct {
	db *gorm.DB
}

// NewPostgresFollowRepository creates a new PostgresFollowRepository
func NewPostgresFollowRepository(db *gorm.DB) *PostgresFollowRepository {
	return &PostgresFollowRepository{db: db}
}

func (r *PostgresFollowRepository) CreateFollow(follow *models.Follow) error {
	return r.db.Create(follow).Error
}

func (r *PostgresFollowRepository) DeleteFollow(followerID, followingID uint) error {
	res := r.db.Where("follower_id = ? AND following_id = ?", followerID, followingID).Delete(&models.Follow{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("follow relationship not found")
	}
	return nil
}

func (r *PostgresFollowRepository) IsFollowing(followerID, followingID uint) (bool, error) {
	var count int64
	if err := r.db.Model(&models.Follow{}).Where("follower_id = ? AND following_id = ?", followerID, followingID).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *PostgresFollowRepository) GetFollowersCount(userID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.Follow{}).Where("following_id = ?", userID).Count(&count).Error
	return count, err
}

func (r *PostgresFollowRepository) GetFollowingIDs(userID uint) ([]uint, error) {
	var ids []uint
	err := r.db.Model(&models.Follow{}).Where("follower_id = ?", userID).Pluck("following_id", &ids).Error
	return ids, err
}

func (r *PostgresFollowRepository) CreateBlock(block *models.Block) error {
	return r.db.Create(block).Error
}

func (r *PostgresFollowRepository) DeleteBlock(blockerID, blockedID uint) error {
	res := r.db.Where("blocker_id = ? AND blocked_id = ?", blockerID, blockedID).Delete(&models.Block{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("block not found")
	}
	return nil
}

// IsBlockedEitherWay reports whether either user has blocked the other.
func (r *PostgresFollowRepository) IsBlockedEitherWay(userA, userB uint) (bool, error) {
	var count int64
	err := r.db.Model(&models.Block{}).
		Where("(blocker_id = ? AND blocked_id = ?) OR (blocker_id = ? AND blocked_id = ?)", userA, userB, userB, userA).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *PostgresFollowRepository) CreateMute(mute *models.Mute) error {
	return r.db.Create(mute).Error
}

func (r *PostgresFollowRepository) DeleteMute(muterID, mutedID uint) error {
	res := r.db.Where("muter_id = ? AND muted_id = ?", muterID, mutedID).Delete(&models.Mute{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("mute not found")
	}
	return nil
}
