package models

import (
	"time"

	"github.com/golang-jwt/jwt/v4"
	"gorm.io/gorm"
)

type User struct {
	gorm.Model `json:"-"`
	ID         uint   `json:"id" gorm:"primaryKey"`
	Name       string `json:"name"`
	Username   string `json:"username" gorm:"size:30;uniqueIndex"`
	Email      string `json:"email" gorm:"uniqueIndex"`
	Password   string `json:"-"` // Store hashed password, ignore for JSON serialization
	AvatarURL  string `json:"avatar_url"`
	Bio        string `json:"bio" gorm:"size:200"`
}

// DeviceToken links a user to one push-capable device. A user may register
// several; offline delivery fans out to all of them.
type DeviceToken struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	UserID    uint      `json:"user_id" gorm:"index;uniqueIndex:idx_user_device_token"`
	Token     string    `json:"token" gorm:"size:512;uniqueIndex:idx_user_device_token"`
	Platform  string    `json:"platform" gorm:"size:20"` // ios, android, web
	CreatedAt time.Time `json:"created_at"`
}

// Actor is a user as seen inside a notification or listing: identity fields
// plus viewer-relative relationship flags. The flags are filled by enrichment
// and must be stripped (Clean) before the object is cached or re-stored, so
// stored payloads stay viewer-agnostic.
type Actor struct {
	ID        uint   `json:"id"`
	Name      string `json:"name"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatar_url"`

	IsFollowing bool `json:"is_following,omitempty"`
	IsFollower  bool `json:"is_follower,omitempty"`
	IsBlocked   bool `json:"is_blocked,omitempty"`
	IsMuted     bool `json:"is_muted,omitempty"`
}

// Clean returns a copy with every viewer-relative flag zeroed.
func (a Actor) Clean() Actor {
	a.IsFollowing = false
	a.IsFollower = false
	a.IsBlocked = false
	a.IsMuted = false
	return a
}

// ToActor converts a user row to its identity-only actor form.
func (u *User) ToActor() Actor {
	return Actor{
		ID:        u.ID,
		Name:      u.Name,
		Username:  u.Username,
		AvatarURL: u.AvatarURL,
	}
}

type CreateUserRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=50"`
	Username string `json:"username" validate:"required,min=2,max=30"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type RegisterDeviceTokenRequest struct {
	Token    string `json:"token" validate:"required"`
	Platform string `json:"platform" validate:"required,oneof=ios android web"`
}

// JwtCustomClaims are custom claims extending standard jwt.RegisteredClaims
type JwtCustomClaims struct {
	UserID uint   `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}
