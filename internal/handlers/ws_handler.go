package handlers

import (
	"net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/pulse-social/backend/internal/presence"
	"github.com/pulse-social/backend/internal/realtime"
	"github.com/pulse-social/backend/internal/repositories"
)

// WSHandler upgrades authenticated clients to a realtime connection. Each
// connection joins the user's group immediately; chat rooms are joined on
// demand through inbound frames.
type WSHandler struct {
	hub            *realtime.Hub
	registry       *presence.Registry
	chatRepository repositories.ChatRepository
}

// NewWSHandler creates a new WSHandler
func NewWSHandler(hub *realtime.Hub, registry *presence.Registry, chatRepo repositories.ChatRepository) *WSHandler {
	return &WSHandler{hub: hub, registry: registry, chatRepository: chatRepo}
}

// RegisterWSRoutes registers the realtime upgrade endpoint
func (h *WSHandler) RegisterWSRoutes(g *echo.Group) {
	g.GET("/ws", h.Connect)
}

// inboundFrame is what clients send over the socket. join_chat subscribes the
// connection to a chat room for live message frames.
type inboundFrame struct {
	Event  string `json:"event"`
	ChatID uint   `json:"chat_id,omitempty"`
}

// Connect upgrades the request and services the connection until the client
// goes away.
func (h *WSHandler) Connect(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	conn, err := websocket.Accept(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	connID := uuid.NewString()
	h.hub.Register(connID, conn)
	if err := h.hub.JoinGroup(connID, realtime.UserGroup(currentUserID)); err != nil {
		h.hub.Unregister(connID)
		conn.Close(websocket.StatusInternalError, "setup failed")
		return nil
	}
	h.registry.Connect(currentUserID, connID)

	defer func() {
		h.registry.Disconnect(currentUserID, connID)
		h.hub.Unregister(connID)
		conn.Close(websocket.StatusNormalClosure, "")
	}()

	ctx := c.Request().Context()
	for {
		var frame inboundFrame
		if err := wsjson.Read(ctx, conn, &frame); err != nil {
			// Client closed or the connection broke; either way we are done.
			return nil
		}
		switch frame.Event {
		case "join_chat":
			member, err := h.chatRepository.IsMember(frame.ChatID, currentUserID)
			if err != nil || !member {
				continue
			}
			_ = h.hub.JoinGroup(connID, realtime.ChatGroup(frame.ChatID))
		}
	}
}
