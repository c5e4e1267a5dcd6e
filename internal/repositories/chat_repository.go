package repositories

import (
	"fmt"
	"strconv"
	"time"

	"gorm.io/gorm"

	"github.com/pulse-social/backend/internal/models"
	"github.com/pulse-social/backend/internal/pagination"
)

// ChatRepository defines the interface for chat and message operations. The
// listing methods overfetch limit+1 rows so callers can detect another page.
type ChatRepository interface {
	CreateChat(chat *models.Chat, memberIDs []uint) error
	GetChatByID(id uint) (*models.Chat, error)
	IsMember(chatID, userID uint) (bool, error)
	MemberIDs(chatID uint) ([]uint, error)
	ListChats(userID uint, cursor *pagination.Cursor, limit int) ([]models.ChatSummary, error)
	CreateMessage(msg *models.Message) error
	ListMessages(chatID uint, cursor *pagination.Cursor, limit int) ([]models.Message, error)
}

// PostgresChatRepository implements ChatRepository for PostgreSQL
type PostgresChatRepository struct {
	db *gorm.DB
}

// NewPostgresChatRepository creates a new PostgresChatRepository
func NewPostgresChatRepository(db *gorm.DB) *PostgresChatRepository {
	return &PostgresChatRepository{db: db}
}

func (r *PostgresChatRepository) CreateChat(chat *models.Chat, memberIDs []uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(chat).Error; err != nil {
			return err
		}
		now := time.Now()
		for _, userID := range memberIDs {
			member := models.ChatMember{ChatID: chat.ID, UserID: userID, JoinedAt: now}
			if err := tx.Create(&member).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *PostgresChatRepository) GetChatByID(id uint) (*models.Chat, error) {
	var chat models.Chat
	if err := r.db.First(&chat, id).Error; err != nil {
		return nil, err
	}
	return &chat, nil
}

func (r *PostgresChatRepository) IsMember(chatID, userID uint) (bool, error) {
	var count int64
	err := r.db.Model(&models.ChatMember{}).Where("chat_id = ? AND user_id = ?", chatID, userID).Count(&count).Error
	return count > 0, err
}

func (r *PostgresChatRepository) MemberIDs(chatID uint) ([]uint, error) {
	var ids []uint
	err := r.db.Model(&models.ChatMember{}).Where("chat_id = ?", chatID).Pluck("user_id", &ids).Error
	return ids, err
}

// ListChats pages the user's chats by most recent activity, newest first.
// The sort key is nullable (a chat with no messages yet has no
// last_message_at) so the cursor predicate carries explicit NULL branches
// that fall back to the chat's own creation time; offset pagination would
// skip or repeat rows whenever a new message reorders the list.
func (r *PostgresChatRepository) ListChats(userID uint, cursor *pagination.Cursor, limit int) ([]models.ChatSummary, error) {
	q := r.db.Model(&models.Chat{}).
		Where("id IN (?)", r.db.Model(&models.ChatMember{}).Select("chat_id").Where("user_id = ?", userID))

	if cursor != nil {
		chatID, err := strconv.ParseUint(cursor.ID, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("malformed cursor: %w", err)
		}
		ts := cursor.Timestamp
		q = q.Where(
			`last_message_at < ?
			OR (last_message_at = ? AND id < ?)
			OR (last_message_at IS NULL AND created_at < ?)
			OR (last_message_at IS NULL AND created_at = ? AND id < ?)`,
			ts, ts, chatID, ts, ts, chatID)
	}

	var chats []models.Chat
	err := q.Order("COALESCE(last_message_at, created_at) DESC, id DESC").
		Limit(limit + 1).
		Find(&chats).Error
	if err != nil {
		return nil, err
	}

	summaries := make([]models.ChatSummary, 0, len(chats))
	for i := range chats {
		summary := models.ChatSummary{Chat: chats[i]}
		if chats[i].LastMessageAt != nil {
			var msg models.Message
			err := r.db.Where("chat_id = ?", chats[i].ID).
				Order("created_at DESC, id DESC").
				First(&msg).Error
			if err == nil {
				summary.LastMessage = &msg
			} else if err != gorm.ErrRecordNotFound {
				return nil, err
			}
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

// CreateMessage stores the message and bumps the chat's last_message_at in
// the same transaction so the chat listing order moves with it.
func (r *PostgresChatRepository) CreateMessage(msg *models.Message) error {
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(msg).Error; err != nil {
			return err
		}
		return tx.Model(&models.Chat{}).Where("id = ?", msg.ChatID).
			Update("last_message_at", msg.CreatedAt).Error
	})
}

// ListMessages pages a chat's messages newest first. created_at is never
// null here, so only the two plain keyset branches apply.
func (r *PostgresChatRepository) ListMessages(chatID uint, cursor *pagination.Cursor, limit int) ([]models.Message, error) {
	q := r.db.Where("chat_id = ?", chatID)
	if cursor != nil {
		msgID, err := strconv.ParseUint(cursor.ID, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("malformed cursor: %w", err)
		}
		q = q.Where("created_at < ? OR (created_at = ? AND id < ?)", cursor.Timestamp, cursor.Timestamp, msgID)
	}

	var messages []models.Message
	err := q.Order("created_at DESC, id DESC").Limit(limit + 1).Find(&messages).Error
	return messages, err
}

// ChatSortKey is the (timestamp, id) pair a chat-list cursor encodes: the
// last message's timestamp when there is one, else the chat's creation time.
func ChatSortKey(s models.ChatSummary) (time.Time, string) {
	ts := s.Chat.CreatedAt
	if s.Chat.LastMessageAt != nil {
		ts = *s.Chat.LastMessageAt
	}
	return ts, strconv.FormatUint(uint64(s.Chat.ID), 10)
}

// MessageSortKey is the (timestamp, id) pair a message-list cursor encodes.
func MessageSortKey(m models.Message) (time.Time, string) {
	return m.CreatedAt, strconv.FormatUint(uint64(m.ID), 10)
}
