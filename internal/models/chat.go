package models

import "time"

// Chat is a conversation thread. LastMessageAt is nil until the first
// message arrives; chat listing falls back to CreatedAt for ordering then.
type Chat struct {
	ID            uint       `json:"id" gorm:"primaryKey"`
	Name          string     `json:"name" gorm:"size:100"` // empty for direct chats
	IsGroup       bool       `json:"is_group"`
	LastMessageAt *time.Time `json:"last_message_at" gorm:"index"`
	CreatedAt     time.Time  `json:"created_at"`
}

// ChatMember links a user into a chat
type ChatMember struct {
	ID       uint      `json:"id" gorm:"primaryKey"`
	ChatID   uint      `json:"chat_id" gorm:"index;uniqueIndex:idx_chat_member"`
	UserID   uint      `json:"user_id" gorm:"index;uniqueIndex:idx_chat_member"`
	JoinedAt time.Time `json:"joined_at"`
}

// Message is one chat message. Content ciphering at rest is handled by the
// storage collaborator, not here.
type Message struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	ChatID    uint      `json:"chat_id" gorm:"index"`
	SenderID  uint      `json:"sender_id" gorm:"index"`
	Content   string    `json:"content" gorm:"size:2000"`
	CreatedAt time.Time `json:"created_at" gorm:"index"`
}

// ChatSummary is one row of the chat listing: the chat plus its most recent
// message, when it has one.
type ChatSummary struct {
	Chat        Chat     `json:"chat"`
	LastMessage *Message `json:"last_message,omitempty"`
}

// SendMessageRequest defines the request body for sending a chat message
type SendMessageRequest struct {
	Content string `json:"content" validate:"required,min=1,max=2000"`
}

// CreateChatRequest defines the request body for opening a chat
type CreateChatRequest struct {
	MemberIDs []uint `json:"member_ids" validate:"required,min=1"`
	Name      string `json:"name,omitempty" validate:"omitempty,max=100"`
	IsGroup   bool   `json:"is_group,omitempty"`
}
