package handlers

import (
	"context"
	"log"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/pulse-social/backend/internal/models"
	"github.com/pulse-social/backend/internal/notifications"
	"github.com/pulse-social/backend/internal/pagination"
	"github.com/pulse-social/backend/internal/realtime"
	"github.com/pulse-social/backend/internal/repositories"
)

const defaultChatPageLimit = 20

// Broadcaster fans one event out to a named room of live connections.
type Broadcaster interface {
	Broadcast(group, event string, payload interface{}) error
}

// ChatHandler handles chat and message HTTP requests
type ChatHandler struct {
	chatRepository repositories.ChatRepository
	notifier       *notifications.Service
	rooms          Broadcaster
}

// NewChatHandler creates a new ChatHandler
func NewChatHandler(chatRepo repositories.ChatRepository, notifier *notifications.Service, rooms Broadcaster) *ChatHandler {
	return &ChatHandler{
		chatRepository: chatRepo,
		notifier:       notifier,
		rooms:          rooms,
	}
}

// RegisterChatRoutes registers chat-related routes
func (h *ChatHandler) RegisterChatRoutes(g *echo.Group) {
	g.POST("/chats", h.CreateChat)
	g.GET("/chats", h.ListChats)
	g.GET("/chats/:id/messages", h.ListMessages)
	g.POST("/chats/:id/messages", h.SendMessage)
}

// CreateChat opens a chat between the authenticated user and the listed
// members.
func (h *ChatHandler) CreateChat(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	var req models.CreateChatRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}

	validate := validator.New()
	if err := validate.Struct(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	members := map[uint]bool{currentUserID: true}
	memberIDs := []uint{currentUserID}
	for _, id := range req.MemberIDs {
		if !members[id] {
			members[id] = true
			memberIDs = append(memberIDs, id)
		}
	}
	if len(memberIDs) < 2 {
		return echo.NewHTTPError(http.StatusBadRequest, "A chat needs at least one other member")
	}

	chat := &models.Chat{Name: req.Name, IsGroup: req.IsGroup || len(memberIDs) > 2}
	if err := h.chatRepository.CreateChat(chat, memberIDs); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusCreated, echo.Map{"success": true, "data": chat})
}

// ListChats pages the authenticated user's chats by most recent activity.
func (h *ChatHandler) ListChats(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	cursor, limit, err := pageParams(c)
	if err != nil {
		return err
	}

	rows, err := h.chatRepository.ListChats(currentUserID, cursor, limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	page := pagination.Trim(rows, limit, repositories.ChatSortKey)

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"data":    echo.Map{"chats": page.Items},
		"meta":    echo.Map{"next_cursor": page.NextCursor, "has_more": page.HasMore},
	})
}

// ListMessages pages one chat's messages newest first. Members only.
func (h *ChatHandler) ListMessages(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	chatID, err := h.chatID(c)
	if err != nil {
		return err
	}
	if err := h.requireMember(chatID, currentUserID); err != nil {
		return err
	}

	cursor, limit, err := pageParams(c)
	if err != nil {
		return err
	}

	rows, err := h.chatRepository.ListMessages(chatID, cursor, limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	page := pagination.Trim(rows, limit, repositories.MessageSortKey)

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"data":    echo.Map{"messages": page.Items},
		"meta":    echo.Map{"next_cursor": page.NextCursor, "has_more": page.HasMore},
	})
}

// SendMessage stores a message and notifies every other member. Delivery
// picks socket or push per member depending on presence.
func (h *ChatHandler) SendMessage(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	chatID, err := h.chatID(c)
	if err != nil {
		return err
	}
	if err := h.requireMember(chatID, currentUserID); err != nil {
		return err
	}

	var req models.SendMessageRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}

	validate := validator.New()
	if err := validate.Struct(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	msg := &models.Message{ChatID: chatID, SenderID: currentUserID, Content: req.Content}
	if err := h.chatRepository.CreateMessage(msg); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	// Open chat windows get the message frame directly; the per-member
	// notification below covers everyone else.
	if err := h.rooms.Broadcast(realtime.ChatGroup(chatID), "message", msg); err != nil {
		log.Printf("broadcast message %d to chat %d: %v", msg.ID, chatID, err)
	}

	memberIDs, err := h.chatRepository.MemberIDs(chatID)
	if err != nil {
		log.Printf("load members of chat %d: %v", chatID, err)
		memberIDs = nil
	}
	messageID := strconv.FormatUint(uint64(msg.ID), 10)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		for _, memberID := range memberIDs {
			if memberID == currentUserID {
				continue
			}
			entry := notifications.NewMessageEntry(currentUserID, messageID, chatID)
			if _, err := h.notifier.Notify(ctx, memberID, entry); err != nil {
				log.Printf("notify message %s to user %d: %v", messageID, memberID, err)
			}
		}
	}()

	return c.JSON(http.StatusCreated, echo.Map{"success": true, "data": msg})
}

func (h *ChatHandler) chatID(c echo.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "Invalid chat ID")
	}
	return uint(id), nil
}

func (h *ChatHandler) requireMember(chatID, userID uint) error {
	member, err := h.chatRepository.IsMember(chatID, userID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if !member {
		return echo.NewHTTPError(http.StatusForbidden, "Not a member of this chat")
	}
	return nil
}

// pageParams reads the cursor and limit query parameters shared by the
// keyset-paginated listings.
func pageParams(c echo.Context) (*pagination.Cursor, int, error) {
	cursor, err := pagination.Decode(c.QueryParam("cursor"))
	if err != nil {
		return nil, 0, echo.NewHTTPError(http.StatusBadRequest, "Malformed cursor")
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit < 1 || limit > 50 {
		limit = defaultChatPageLimit
	}
	return cursor, limit, nil
}
