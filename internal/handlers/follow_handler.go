package handlers

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/pulse-social/backend/internal/models"
	"github.com/pulse-social/backend/internal/notifications"
	"github.com/pulse-social/backend/internal/repositories"
)

// notifyTimeout bounds the detached notification submit so a slow store
// cannot pin goroutines forever.
const notifyTimeout = 10 * time.Second

// FollowHandler handles follow, block and mute HTTP requests
type FollowHandler struct {
	followRepository repositories.FollowRepository
	notifier         *notifications.Service
}

// NewFollowHandler creates a new FollowHandler
func NewFollowHandler(followRepo repositories.FollowRepository, notifier *notifications.Service) *FollowHandler {
	return &FollowHandler{
		followRepository: followRepo,
		notifier:         notifier,
	}
}

// RegisterFollowRoutes registers follow-related routes
func (h *FollowHandler) RegisterFollowRoutes(g *echo.Group) {
	g.POST("/users/:id/follow", h.FollowUser)
	g.DELETE("/users/:id/follow", h.UnfollowUser)
	g.POST("/users/:id/block", h.BlockUser)
	g.DELETE("/users/:id/block", h.UnblockUser)
	g.POST("/users/:id/mute", h.MuteUser)
	g.DELETE("/users/:id/mute", h.UnmuteUser)
}

// FollowUser follows a user and notifies them
func (h *FollowHandler) FollowUser(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	targetID, err := h.targetID(c)
	if err != nil {
		return err
	}
	if currentUserID == targetID {
		return echo.NewHTTPError(http.StatusBadRequest, "Cannot follow yourself")
	}

	blocked, err := h.followRepository.IsBlockedEitherWay(currentUserID, targetID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if blocked {
		return echo.NewHTTPError(http.StatusForbidden, "Cannot follow this user")
	}

	isFollowing, err := h.followRepository.IsFollowing(currentUserID, targetID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if isFollowing {
		return echo.NewHTTPError(http.StatusConflict, "Already following this user")
	}

	follow := &models.Follow{
		FollowerID:  currentUserID,
		FollowingID: targetID,
	}
	if err := h.followRepository.CreateFollow(follow); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	// Notify the followed user off the request path; the follow itself never
	// fails on notification problems.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		if _, err := h.notifier.Notify(ctx, targetID, notifications.NewFollowEntry(currentUserID)); err != nil {
			log.Printf("notify follow of user %d by %d: %v", targetID, currentUserID, err)
		}
	}()

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"following": true}})
}

// UnfollowUser unfollows a user
func (h *FollowHandler) UnfollowUser(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	targetID, err := h.targetID(c)
	if err != nil {
		return err
	}

	if err := h.followRepository.DeleteFollow(currentUserID, targetID); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"following": false}})
}

// BlockUser blocks a user and severs any follow edges between the two
func (h *FollowHandler) BlockUser(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	targetID, err := h.targetID(c)
	if err != nil {
		return err
	}
	if currentUserID == targetID {
		return echo.NewHTTPError(http.StatusBadRequest, "Cannot block yourself")
	}

	block := &models.Block{BlockerID: currentUserID, BlockedID: targetID}
	if err := h.followRepository.CreateBlock(block); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	// Follow edges cannot survive a block in either direction.
	_ = h.followRepository.DeleteFollow(currentUserID, targetID)
	_ = h.followRepository.DeleteFollow(targetID, currentUserID)

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"blocked": true}})
}

// UnblockUser removes a block
func (h *FollowHandler) UnblockUser(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	targetID, err := h.targetID(c)
	if err != nil {
		return err
	}

	if err := h.followRepository.DeleteBlock(currentUserID, targetID); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"blocked": false}})
}

// MuteUser mutes a user
func (h *FollowHandler) MuteUser(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	targetID, err := h.targetID(c)
	if err != nil {
		return err
	}
	if currentUserID == targetID {
		return echo.NewHTTPError(http.StatusBadRequest, "Cannot mute yourself")
	}

	mute := &models.Mute{MuterID: currentUserID, MutedID: targetID}
	if err := h.followRepository.CreateMute(mute); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"muted": true}})
}

// UnmuteUser removes a mute
func (h *FollowHandler) UnmuteUser(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	targetID, err := h.targetID(c)
	if err != nil {
		return err
	}

	if err := h.followRepository.DeleteMute(currentUserID, targetID); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"muted": false}})
}

func (h *FollowHandler) targetID(c echo.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "Invalid user ID")
	}
	return uint(id), nil
}
