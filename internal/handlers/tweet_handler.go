package handlers

import (
	"context"
	"log"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/pulse-social/backend/internal/models"
	"github.com/pulse-social/backend/internal/notifications"
	"github.com/pulse-social/backend/internal/repositories"
)

// TweetHandler handles tweet and interaction HTTP requests. Every mutating
// endpoint doubles as a notification producer: the write commits first, then
// the notification is submitted off the request path.
type TweetHandler struct {
	tweetRepository       repositories.TweetRepository
	interactionRepository repositories.InteractionRepository
	notifier              *notifications.Service
}

// NewTweetHandler creates a new TweetHandler
func NewTweetHandler(tweetRepo repositories.TweetRepository, interactionRepo repositories.InteractionRepository, notifier *notifications.Service) *TweetHandler {
	return &TweetHandler{
		tweetRepository:       tweetRepo,
		interactionRepository: interactionRepo,
		notifier:              notifier,
	}
}

// RegisterTweetRoutes registers tweet-related routes
func (h *TweetHandler) RegisterTweetRoutes(g *echo.Group) {
	g.POST("/tweets", h.CreateTweet)
	g.GET("/tweets/:id", h.GetTweet)
	g.DELETE("/tweets/:id", h.DeleteTweet)
	g.POST("/tweets/:id/like", h.LikeTweet)
	g.DELETE("/tweets/:id/like", h.UnlikeTweet)
	g.POST("/tweets/:id/repost", h.RepostTweet)
	g.DELETE("/tweets/:id/repost", h.UnrepostTweet)
	g.POST("/tweets/:id/bookmark", h.BookmarkTweet)
	g.DELETE("/tweets/:id/bookmark", h.UnbookmarkTweet)
}

// CreateTweet posts a tweet, reply or quote and notifies the parent author
// and any mentioned users.
func (h *TweetHandler) CreateTweet(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	var req models.CreateTweetRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}

	validate := validator.New()
	if err := validate.Struct(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	kind := req.Kind
	if kind == "" {
		kind = models.TweetKindTweet
	}
	if kind != models.TweetKindTweet && req.ParentTweetID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Replies and quotes need a parent tweet")
	}

	var parent *models.Tweet
	if req.ParentTweetID != "" {
		var err error
		parent, err = h.tweetRepository.GetTweetByID(c.Request().Context(), req.ParentTweetID)
		if err != nil {
			return echo.NewHTTPError(http.StatusNotFound, "Parent tweet not found")
		}
	}

	tweet := &models.Tweet{
		AuthorID:      currentUserID,
		Content:       req.Content,
		Kind:          kind,
		ParentTweetID: req.ParentTweetID,
		MentionedIDs:  req.MentionedIDs,
	}
	if kind == models.TweetKindReply && parent != nil {
		// A reply joins the parent's thread, or starts one rooted at the
		// parent itself.
		tweet.ConversationID = parent.ConversationID
		if tweet.ConversationID == "" {
			tweet.ConversationID = parent.ID.Hex()
		}
	}

	if err := h.tweetRepository.CreateTweet(c.Request().Context(), tweet); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	h.notifyTweetCreated(currentUserID, tweet, parent)

	return c.JSON(http.StatusCreated, echo.Map{"success": true, "data": tweet})
}

// notifyTweetCreated fans out the reply/quote/mention notifications for one
// new tweet. Runs detached; the post itself never fails on notification
// problems.
func (h *TweetHandler) notifyTweetCreated(authorID uint, tweet, parent *models.Tweet) {
	tweetID := tweet.ID.Hex()
	notified := map[uint]bool{authorID: true}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()

		if parent != nil && parent.AuthorID != authorID {
			var entry notifications.Entry
			switch tweet.Kind {
			case models.TweetKindReply:
				entry = notifications.NewReplyEntry(authorID, tweetID, parent.ID.Hex(), tweet.ConversationID)
			case models.TweetKindQuote:
				entry = notifications.NewQuoteEntry(authorID, tweetID, parent.ID.Hex())
			}
			if entry.Type != "" {
				notified[parent.AuthorID] = true
				if _, err := h.notifier.Notify(ctx, parent.AuthorID, entry); err != nil {
					log.Printf("notify %s on tweet %s: %v", entry.Type, tweetID, err)
				}
			}
		}

		for _, mentionedID := range tweet.MentionedIDs {
			if notified[mentionedID] {
				continue
			}
			notified[mentionedID] = true
			entry := notifications.NewMentionEntry(authorID, tweetID, tweet.ParentTweetID, tweet.Kind)
			if _, err := h.notifier.Notify(ctx, mentionedID, entry); err != nil {
				log.Printf("notify mention of user %d in tweet %s: %v", mentionedID, tweetID, err)
			}
		}
	}()
}

// GetTweet fetches one tweet by ID
func (h *TweetHandler) GetTweet(c echo.Context) error {
	tweet, err := h.tweetRepository.GetTweetByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "Tweet not found")
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": tweet})
}

// DeleteTweet removes the authenticated user's own tweet
func (h *TweetHandler) DeleteTweet(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	tweet, err := h.tweetRepository.GetTweetByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "Tweet not found")
	}
	if tweet.AuthorID != currentUserID {
		return echo.NewHTTPError(http.StatusForbidden, "Cannot delete someone else's tweet")
	}

	if err := h.tweetRepository.DeleteTweet(c.Request().Context(), tweet.ID.Hex()); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.NoContent(http.StatusNoContent)
}

// LikeTweet likes a tweet and notifies its author
func (h *TweetHandler) LikeTweet(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}
	tweetID := c.Param("id")

	tweet, err := h.tweetRepository.GetTweetByID(c.Request().Context(), tweetID)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "Tweet not found")
	}

	liked, err := h.interactionRepository.HasUserLikedTweet(tweetID, currentUserID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if liked {
		return echo.NewHTTPError(http.StatusConflict, "Tweet already liked")
	}

	if err := h.interactionRepository.CreateLike(&models.Like{TweetID: tweetID, UserID: currentUserID}); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if err := h.tweetRepository.IncrementLikesCount(c.Request().Context(), tweetID, 1); err != nil {
		log.Printf("bump likes count on tweet %s: %v", tweetID, err)
	}

	if tweet.AuthorID != currentUserID {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
			defer cancel()
			if _, err := h.notifier.Notify(ctx, tweet.AuthorID, notifications.NewLikeEntry(currentUserID, tweetID)); err != nil {
				log.Printf("notify like on tweet %s: %v", tweetID, err)
			}
		}()
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"liked": true}})
}

// UnlikeTweet removes a like
func (h *TweetHandler) UnlikeTweet(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}
	tweetID := c.Param("id")

	if err := h.interactionRepository.DeleteLike(tweetID, currentUserID); err != nil {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	if err := h.tweetRepository.IncrementLikesCount(c.Request().Context(), tweetID, -1); err != nil {
		log.Printf("drop likes count on tweet %s: %v", tweetID, err)
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"liked": false}})
}

// RepostTweet reposts a tweet and notifies its author
func (h *TweetHandler) RepostTweet(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}
	tweetID := c.Param("id")

	tweet, err := h.tweetRepository.GetTweetByID(c.Request().Context(), tweetID)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "Tweet not found")
	}

	reposted, err := h.interactionRepository.HasUserRepostedTweet(tweetID, currentUserID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if reposted {
		return echo.NewHTTPError(http.StatusConflict, "Tweet already reposted")
	}

	if err := h.interactionRepository.CreateRepost(&models.Repost{TweetID: tweetID, UserID: currentUserID}); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if err := h.tweetRepository.IncrementRepostsCount(c.Request().Context(), tweetID, 1); err != nil {
		log.Printf("bump reposts count on tweet %s: %v", tweetID, err)
	}

	if tweet.AuthorID != currentUserID {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
			defer cancel()
			if _, err := h.notifier.Notify(ctx, tweet.AuthorID, notifications.NewRepostEntry(currentUserID, tweetID)); err != nil {
				log.Printf("notify repost of tweet %s: %v", tweetID, err)
			}
		}()
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"reposted": true}})
}

// UnrepostTweet removes a repost
func (h *TweetHandler) UnrepostTweet(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}
	tweetID := c.Param("id")

	if err := h.interactionRepository.DeleteRepost(tweetID, currentUserID); err != nil {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	if err := h.tweetRepository.IncrementRepostsCount(c.Request().Context(), tweetID, -1); err != nil {
		log.Printf("drop reposts count on tweet %s: %v", tweetID, err)
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"reposted": false}})
}

// BookmarkTweet bookmarks a tweet. Bookmarks are private and never notify.
func (h *TweetHandler) BookmarkTweet(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}
	tweetID := c.Param("id")

	if _, err := h.tweetRepository.GetTweetByID(c.Request().Context(), tweetID); err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "Tweet not found")
	}
	if err := h.interactionRepository.CreateBookmark(&models.Bookmark{TweetID: tweetID, UserID: currentUserID}); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"bookmarked": true}})
}

// UnbookmarkTweet removes a bookmark
func (h *TweetHandler) UnbookmarkTweet(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	if err := h.interactionRepository.DeleteBookmark(c.Param("id"), currentUserID); err != nil {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"bookmarked": false}})
}
