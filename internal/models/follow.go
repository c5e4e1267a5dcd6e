package models

import "time"

// Follow represents a one-directional follow relationship
type Follow struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	FollowerID  uint      `json:"follower_id" gorm:"index;uniqueIndex:idx_follower_following"`
	FollowingID uint      `json:"following_id" gorm:"index;uniqueIndex:idx_follower_following"`
	CreatedAt   time.Time `json:"created_at"`
}

// Block hides two users from each other. Blocking is checked in both
// directions when filtering notifications.
type Block struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	BlockerID uint      `json:"blocker_id" gorm:"index;uniqueIndex:idx_blocker_blocked"`
	BlockedID uint      `json:"blocked_id" gorm:"index;uniqueIndex:idx_blocker_blocked"`
	CreatedAt time.Time `json:"created_at"`
}

// Mute silences a user's content without them knowing
type Mute struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	MuterID   uint      `json:"muter_id" gorm:"index;uniqueIndex:idx_muter_muted"`
	MutedID   uint      `json:"muted_id" gorm:"index;uniqueIndex:idx_muter_muted"`
	CreatedAt time.Time `json:"created_at"`
}
