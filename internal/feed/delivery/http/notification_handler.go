package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"golang-signal-notifier/internal/feed/dto"
	"golang-signal-notifier/internal/feed/effect"
	"golang-signal-notifier/internal/feed/service"
	"golang-signal-notifier/pkg/logger"

	"github.com/labstack/echo/v4"
)

// NotificationHandler handles HTTP requests for the notification feed.
type NotificationHandler struct {
	feedManager         *service.FeedManager
	notificationService service.NotificationService
	sounds              *effect.SoundDispatcher
	logger              *logger.Logger
}

// NewNotificationHandler creates a new NotificationHandler.
func NewNotificationHandler(feedManager *service.FeedManager, notificationService service.NotificationService, sounds *effect.SoundDispatcher, logger *logger.Logger) *NotificationHandler {
	return &NotificationHandler{
		feedManager:         feedManager,
		notificationService: notificationService,
		sounds:              sounds,
		logger:              logger,
	}
}

// RegisterRoutes registers the notification routes to the Echo group.
func (h *NotificationHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/users/:id/notifications", h.ListNotifications)
	g.GET("/users/:id/notifications/stream", h.StreamEffects)
	g.GET("/users/:id/notifications/unread-count", h.UnreadCount)
	g.POST("/users/:id/notifications/:nid/read", h.MarkAsRead)
	g.POST("/users/:id/notifications/read-all", h.MarkAllAsRead)
	g.DELETE("/users/:id/notifications", h.ClearAll)
	g.POST("/sound/prime", h.PrimeSound)
}

func userIDParam(c echo.Context) (int64, error) {
	return strconv.ParseInt(c.Param("id"), 10, 64)
}

// ListNotifications godoc
// @Summary List a user's notifications
// @Description Returns the user's notification feed, newest first
// @Tags notifications
// @Produce  json
// @Param   id  path    int true    "User ID"
// @Success 200 {array} entity.Notification
// @Failure 400 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /users/{id}/notifications [get]
func (h *NotificationHandler) ListNotifications(c echo.Context) error {
	userID, err := userIDParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid user ID"})
	}

	notifications, err := h.notificationService.List(c.Request().Context(), userID)
	if err != nil {
		h.logger.Error("Failed to list notifications", logger.ErrorField(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to list notifications"})
	}
	return c.JSON(http.StatusOK, notifications)
}

// StreamEffects godoc
// @Summary Stream notification effects
// @Description Attaches to the user's live feed and streams toast/sound effects as server-sent events
// @Tags notifications
// @Produce  text/event-stream
// @Param   id  path    int true    "User ID"
// @Success 200 {object} nil
// @Failure 400 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /users/{id}/notifications/stream [get]
func (h *NotificationHandler) StreamEffects(c echo.Context) error {
	userID, err := userIDParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid user ID"})
	}

	sub, err := h.feedManager.Subscribe(c.Request().Context(), userID)
	if err != nil {
		h.logger.Error("Failed to subscribe to feed", logger.ErrorField(err), logger.Field("user_id", userID))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to subscribe to feed"})
	}
	defer sub.Close()

	resp := c.Response()
	resp.Header().Set(echo.HeaderContentType, "text/event-stream")
	resp.Header().Set(echo.HeaderCacheControl, "no-cache")
	resp.Header().Set(echo.HeaderConnection, "keep-alive")
	resp.WriteHeader(http.StatusOK)
	resp.Flush()

	ctx := c.Request().Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case toast, ok := <-sub.Effects():
			if !ok {
				return nil
			}
			payload, err := json.Marshal(toast)
			if err != nil {
				h.logger.Error("Failed to marshal effect", logger.ErrorField(err))
				continue
			}
			if _, err := fmt.Fprintf(resp, "data: %s\n\n", payload); err != nil {
				return nil
			}
			resp.Flush()
		}
	}
}

// UnreadCount godoc
// @Summary Get the unread notification count
// @Tags notifications
// @Produce  json
// @Param   id  path    int true    "User ID"
// @Success 200 {object} dto.UnreadCountResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /users/{id}/notifications/unread-count [get]
func (h *NotificationHandler) UnreadCount(c echo.Context) error {
	userID, err := userIDParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid user ID"})
	}

	count, err := h.notificationService.UnreadCount(c.Request().Context(), userID)
	if err != nil {
		h.logger.Error("Failed to count unread notifications", logger.ErrorField(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to count notifications"})
	}
	return c.JSON(http.StatusOK, dto.UnreadCountResponse{Count: count})
}

// MarkAsRead godoc
// @Summary Mark one notification as read
// @Description Optimistically marks a notification read; the durable write is best effort
// @Tags notifications
// @Produce  json
// @Param   id   path    int    true    "User ID"
// @Param   nid  path    string true    "Notification ID"
// @Success 204 {object} nil
// @Failure 400 {object} dto.ErrorResponse
// @Router /users/{id}/notifications/{nid}/read [post]
func (h *NotificationHandler) MarkAsRead(c echo.Context) error {
	userID, err := userIDParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid user ID"})
	}

	h.notificationService.MarkAsRead(c.Request().Context(), userID, c.Param("nid"))
	return c.NoContent(http.StatusNoContent)
}

// MarkAllAsRead godoc
// @Summary Mark all notifications as read
// @Tags notifications
// @Produce  json
// @Param   id  path    int true    "User ID"
// @Success 204 {object} nil
// @Failure 400 {object} dto.ErrorResponse
// @Router /users/{id}/notifications/read-all [post]
func (h *NotificationHandler) MarkAllAsRead(c echo.Context) error {
	userID, err := userIDParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid user ID"})
	}

	h.notificationService.MarkAllAsRead(c.Request().Context(), userID)
	return c.NoContent(http.StatusNoContent)
}

// ClearAll godoc
// @Summary Clear a user's notifications
// @Tags notifications
// @Produce  json
// @Param   id  path    int true    "User ID"
// @Success 204 {object} nil
// @Failure 400 {object} dto.ErrorResponse
// @Router /users/{id}/notifications [delete]
func (h *NotificationHandler) ClearAll(c echo.Context) error {
	userID, err := userIDParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid user ID"})
	}

	h.notificationService.ClearAll(c.Request().Context(), userID)
	return c.NoContent(http.StatusNoContent)
}

// PrimeSound godoc
// @Summary Prime the sound dispatcher
// @Description Must be called once from a real user gesture before cues play; repeated calls are no-ops
// @Tags sound
// @Produce  json
// @Success 204 {object} nil
// @Router /sound/prime [post]
func (h *NotificationHandler) PrimeSound(c echo.Context) error {
	h.sounds.Prime()
	return c.NoContent(http.StatusNoContent)
}
