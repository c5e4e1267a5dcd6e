package handlers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/pulse-social/backend/internal/notifications"
	"github.com/pulse-social/backend/internal/pagination"
)

// NotificationHandler handles notification-related HTTP requests
type NotificationHandler struct {
	notifier *notifications.Service
}

// NewNotificationHandler creates a new NotificationHandler
func NewNotificationHandler(notifier *notifications.Service) *NotificationHandler {
	return &NotificationHandler{notifier: notifier}
}

// RegisterNotificationRoutes registers notification routes
func (h *NotificationHandler) RegisterNotificationRoutes(g *echo.Group) {
	g.GET("/notifications", h.GetNotifications)
	g.GET("/notifications/unseen-count", h.GetUnseenCount)
	g.PUT("/notifications/seen", h.MarkSeen)
}

// GetNotifications returns one cursor page of the user's notifications,
// enriched and filtered for them.
func (h *NotificationHandler) GetNotifications(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	cursorToken := c.QueryParam("cursor")
	if _, err := pagination.Decode(cursorToken); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Malformed cursor")
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	page, err := h.notifier.ListPage(c.Request().Context(), currentUserID, currentUserID, cursorToken, limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"data":    echo.Map{"notifications": page.Items},
		"meta":    echo.Map{"next_cursor": page.NextCursor, "has_more": page.HasMore},
	})
}

// GetUnseenCount returns the unseen notification count
func (h *NotificationHandler) GetUnseenCount(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	count, err := h.notifier.GetUnseenCount(c.Request().Context(), currentUserID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"count": count}})
}

// MarkSeen zeroes the unseen notification counter
func (h *NotificationHandler) MarkSeen(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	if err := h.notifier.MarkSeen(c.Request().Context(), currentUserID); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"seen": true}})
}
