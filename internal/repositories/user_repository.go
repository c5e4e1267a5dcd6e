package repositories

import (
	"context"

	"gorm.io/gorm"

	"github.com/pulse-social/backend/internal/models"
)

// UserRepository defines the interface for user data operations
type UserRepository interface {
	CreateUser(user *models.User) error
	GetUserByID(id uint) (*models.User, error)
	GetUserByEmail(email string) (*models.User, error)
	SearchUsers(query string) ([]models.User, error)
	RegisterDeviceToken(token *models.DeviceToken) error
	GetDeviceTokens(userID uint) ([]string, error)
	FetchActors(ctx context.Context, ids []uint, withRelationships bool, viewerID uint) (map[uint]models.Actor, error)
}

// PostgresUserRepository implements UserRepository for PostgreSQL
type PostgresUserRepository struct {
	db *gorm.DB
}

// NewPostgresUserRepository creates a new PostgresUserRepository
func NewPostgresUserRepository(db *gorm.DB) *PostgresUserRepository {
	return &PostgresUserRepository{db: db}
}

// CreateUser creates a new user in PostgreSQL
func (r *PostgresUserRepository) CreateUser(user *models.User) error {
	return r.db.Create(user).Error
}

// GetUserByID retrieves a user by ID from PostgreSQL
func (r *PostgresUserRepository) GetUserByID(id uint) (*models.User, error) {
	var user models.User
	if err := r.db.First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUserByEmail retrieves a user by email from PostgreSQL
func (r *PostgresUserRepository) GetUserByEmail(email string) (*models.User, error) {
	var user models.User
	if err := r.db.Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// SearchUsers searches for users by name or username (case-insensitive)
func (r *PostgresUserRepository) SearchUsers(query string) ([]models.User, error) {
	var users []models.User
	if err := r.db.Where("LOWER(name) LIKE LOWER(?) OR LOWER(username) LIKE LOWER(?)", "%"+query+"%", "%"+query+"%").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// RegisterDeviceToken stores a push-capable device for a user, replacing an
// existing row for the same token.
func (r *PostgresUserRepository) RegisterDeviceToken(token *models.DeviceToken) error {
	r.db.Where("user_id = ? AND token = ?", token.UserID, token.Token).Delete(&models.DeviceToken{})
	return r.db.Create(token).Error
}

// GetDeviceTokens returns every registered push token for the user
func (r *PostgresUserRepository) GetDeviceTokens(userID uint) ([]string, error) {
	var tokens []string
	err := r.db.Model(&models.DeviceToken{}).Where("user_id = ?", userID).Pluck("token", &tokens).Error
	return tokens, err
}

// FetchActors resolves user ids into actor objects in one batch, optionally
// joined with relationship predicates relative to the viewer. Missing ids
// are absent from the result map rather than erroring; the caller handles
// orphaned references.
func (r *PostgresUserRepository) FetchActors(ctx context.Context, ids []uint, withRelationships bool, viewerID uint) (map[uint]models.Actor, error) {
	result := make(map[uint]models.Actor, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	var users []models.User
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, err
	}
	for i := range users {
		result[users[i].ID] = users[i].ToActor()
	}
	if !withRelationships {
		return result, nil
	}

	var followingIDs []uint // viewer follows these
	if err := r.db.WithContext(ctx).Model(&models.Follow{}).
		Where("follower_id = ? AND following_id IN ?", viewerID, ids).
		Pluck("following_id", &followingIDs).Error; err != nil {
		return nil, err
	}
	var followerIDs []uint // these follow the viewer
	if err := r.db.WithContext(ctx).Model(&models.Follow{}).
		Where("following_id = ? AND follower_id IN ?", viewerID, ids).
		Pluck("follower_id", &followerIDs).Error; err != nil {
		return nil, err
	}
	// Blocks count in either direction.
	var blockedIDs []uint
	if err := r.db.WithContext(ctx).Model(&models.Block{}).
		Where("blocker_id = ? AND blocked_id IN ?", viewerID, ids).
		Pluck("blocked_id", &blockedIDs).Error; err != nil {
		return nil, err
	}
	var blockerIDs []uint
	if err := r.db.WithContext(ctx).Model(&models.Block{}).
		Where("blocked_id = ? AND blocker_id IN ?", viewerID, ids).
		Pluck("blocker_id", &blockerIDs).Error; err != nil {
		return nil, err
	}
	var mutedIDs []uint
	if err := r.db.WithContext(ctx).Model(&models.Mute{}).
		Where("muter_id = ? AND muted_id IN ?", viewerID, ids).
		Pluck("muted_id", &mutedIDs).Error; err != nil {
		return nil, err
	}

	apply := func(ids []uint, set func(*models.Actor)) {
		for _, id := range ids {
			if a, ok := result[id]; ok {
				set(&a)
				result[id] = a
			}
		}
	}
	apply(followingIDs, func(a *models.Actor) { a.IsFollowing = true })
	apply(followerIDs, func(a *models.Actor) { a.IsFollower = true })
	apply(blockedIDs, func(a *models.Actor) { a.IsBlocked = true })
	apply(blockerIDs, func(a *models.Actor) { a.IsBlocked = true })
	apply(mutedIDs, func(a *models.Actor) { a.IsMuted = true })
	return result, nil
}
