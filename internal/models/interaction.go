package models

import "gorm.io/gorm"

// Like represents a like on a tweet
type Like struct {
	gorm.Model
	TweetID string `json:"tweet_id" gorm:"index;uniqueIndex:idx_like_user_tweet"` // MongoDB ObjectID as string
	UserID  uint   `json:"user_id" gorm:"index;uniqueIndex:idx_like_user_tweet"`
}

// Repost represents a retweet without comment
type Repost struct {
	gorm.Model
	TweetID string `json:"tweet_id" gorm:"index;uniqueIndex:idx_repost_user_tweet"`
	UserID  uint   `json:"user_id" gorm:"index;uniqueIndex:idx_repost_user_tweet"`
}

// Bookmark represents a privately saved tweet
type Bookmark struct {
	gorm.Model
	TweetID string `json:"tweet_id" gorm:"index;uniqueIndex:idx_bookmark_user_tweet"`
	UserID  uint   `json:"user_id" gorm:"index;uniqueIndex:idx_bookmark_user_tweet"`
}
