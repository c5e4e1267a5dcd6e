package repositories

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/pulse-social/backend/internal/models"
	"github.com/pulse-social/backend/internal/pagination"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Chat{}, &models.ChatMember{}, &models.Message{}))
	return db
}

func seedChat(t *testing.T, repo *PostgresChatRepository, userID uint, createdAt time.Time) *models.Chat {
	t.Helper()
	chat := &models.Chat{CreatedAt: createdAt}
	require.NoError(t, repo.CreateChat(chat, []uint{userID, userID + 1000}))
	return chat
}

func sendAt(t *testing.T, repo *PostgresChatRepository, chatID, senderID uint, at time.Time) {
	t.Helper()
	msg := &models.Message{ChatID: chatID, SenderID: senderID, Content: "hi", CreatedAt: at}
	require.NoError(t, repo.CreateMessage(msg))
}

// Full cursor round-trip over a chat list mixing chats with messages and
// chats that never got one (null sort key falling back to creation time).
func TestListChatsCursorRoundTrip(t *testing.T) {
	repo := NewPostgresChatRepository(newTestDB(t))
	const user = uint(1)
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	// Five chats created oldest-first; chats 0, 2, 4 get messages that lift
	// them above the silent ones.
	var chats []*models.Chat
	for i := 0; i < 5; i++ {
		chats = append(chats, seedChat(t, repo, user, base.Add(time.Duration(i)*time.Hour)))
	}
	sendAt(t, repo, chats[0].ID, 2, base.Add(10*time.Hour))
	sendAt(t, repo, chats[2].ID, 2, base.Add(11*time.Hour))
	sendAt(t, repo, chats[4].ID, 2, base.Add(12*time.Hour))

	var gotIDs []uint
	var cursor *pagination.Cursor
	for {
		rows, err := repo.ListChats(user, cursor, 2)
		require.NoError(t, err)
		page := pagination.Trim(rows, 2, ChatSortKey)
		for _, s := range page.Items {
			gotIDs = append(gotIDs, s.Chat.ID)
		}
		if !page.HasMore {
			break
		}
		cursor, err = pagination.Decode(page.NextCursor)
		require.NoError(t, err)
	}

	// Messaged chats first by message recency, then silent chats by their
	// own creation time. No overlap, no gap.
	assert.Equal(t, []uint{chats[4].ID, chats[2].ID, chats[0].ID, chats[3].ID, chats[1].ID}, gotIDs)
}

func TestListChatsOverfetchSignalsMore(t *testing.T) {
	repo := NewPostgresChatRepository(newTestDB(t))
	const user = uint(1)
	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		seedChat(t, repo, user, base.Add(time.Duration(i)*time.Minute))
	}

	rows, err := repo.ListChats(user, nil, 2)
	require.NoError(t, err)
	assert.Len(t, rows, 3, "fetches limit+1")

	page := pagination.Trim(rows, 2, ChatSortKey)
	assert.Len(t, page.Items, 2)
	assert.True(t, page.HasMore)
	assert.NotEmpty(t, page.NextCursor)
}

func TestListChatsCarriesLastMessage(t *testing.T) {
	repo := NewPostgresChatRepository(newTestDB(t))
	const user = uint(1)
	chat := seedChat(t, repo, user, time.Now().UTC().Add(-time.Hour))
	sendAt(t, repo, chat.ID, 2, time.Now().UTC().Add(-30*time.Minute))
	sendAt(t, repo, chat.ID, 2, time.Now().UTC().Add(-10*time.Minute))

	rows, err := repo.ListChats(user, nil, 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.NotNil(t, rows[0].LastMessage)
	require.NotNil(t, rows[0].Chat.LastMessageAt)
	assert.True(t, rows[0].LastMessage.CreatedAt.Equal(*rows[0].Chat.LastMessageAt))
}

func TestListChatsExcludesNonMembers(t *testing.T) {
	repo := NewPostgresChatRepository(newTestDB(t))
	seedChat(t, repo, 1, time.Now().UTC())

	rows, err := repo.ListChats(99, nil, 10)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestListMessagesCursorRoundTrip(t *testing.T) {
	repo := NewPostgresChatRepository(newTestDB(t))
	chat := seedChat(t, repo, 1, time.Now().UTC().Add(-time.Hour))
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	// Two messages share a timestamp; the id tie-break keeps total order.
	for i := 0; i < 5; i++ {
		at := base.Add(time.Duration(i/2) * time.Second)
		sendAt(t, repo, chat.ID, 2, at)
	}

	var got []uint
	var cursor *pagination.Cursor
	for {
		rows, err := repo.ListMessages(chat.ID, cursor, 2)
		require.NoError(t, err)
		page := pagination.Trim(rows, 2, MessageSortKey)
		for _, m := range page.Items {
			got = append(got, m.ID)
		}
		if !page.HasMore {
			break
		}
		cursor, err = pagination.Decode(page.NextCursor)
		require.NoError(t, err)
	}

	require.Len(t, got, 5, "no overlap, no gap across pages")
	for i := 1; i < len(got); i++ {
		assert.Greater(t, got[i-1], got[i], "strictly descending ids within equal timestamps")
	}
}

func TestChatSortKeyFallsBackToCreationTime(t *testing.T) {
	created := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	summary := models.ChatSummary{Chat: models.Chat{ID: 7, CreatedAt: created}}

	ts, id := ChatSortKey(summary)
	assert.True(t, ts.Equal(created))
	assert.Equal(t, "7", id)

	last := created.Add(time.Hour)
	summary.Chat.LastMessageAt = &last
	ts, _ = ChatSortKey(summary)
	assert.True(t, ts.Equal(last))
}
