package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"cartoonclub-backend-go/internal/core"
	"cartoonclub-backend-go/internal/db"
)

// PlaybackHandler serves playback progress reporting and content follows.
type PlaybackHandler struct {
	watchTime *core.WatchTimeService
	logger    *zap.Logger
}

// NewPlaybackHandler creates a new PlaybackHandler.
func NewPlaybackHandler(watchTime *core.WatchTimeService, logger *zap.Logger) *PlaybackHandler {
	return &PlaybackHandler{watchTime: watchTime, logger: logger}
}

// Heartbeat handles POST /api/v1/playback/heartbeat. Buffers the reported
// seconds in memory; whole minutes reach the store on the next flush.
func (h *PlaybackHandler) Heartbeat(c *gin.Context) {
	var req HeartbeatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request payload", Details: err.Error()})
		return
	}

	h.watchTime.AddWatchSeconds(req.ContentID, req.Seconds)
	c.JSON(http.StatusAccepted, SuccessResponse{Message: "Watch time recorded"})
}

// Complete handles POST /api/v1/playback/complete. Flushes the content's
// buffered watch time immediately so a finished session is visible without
// waiting for the next interval.
func (h *PlaybackHandler) Complete(c *gin.Context) {
	var req CompleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request payload", Details: err.Error()})
		return
	}

	if req.Minutes > 0 {
		if err := h.watchTime.RecordWatchMinutes(c.Request.Context(), req.ContentID, req.Minutes, time.Now().UTC()); err != nil {
			if errors.Is(err, db.ErrNotFound) {
				c.JSON(http.StatusNotFound, ErrorResponse{Error: "Content not found"})
				return
			}
			h.logger.Error("Failed to record client-tallied watch minutes",
				zap.String("contentID", req.ContentID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to record watch time"})
			return
		}
	}

	minutes, err := h.watchTime.FlushContent(c.Request.Context(), req.ContentID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "Content not found"})
			return
		}
		h.logger.Error("Failed to flush watch time on completion",
			zap.String("contentID", req.ContentID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to record watch time"})
		return
	}

	c.JSON(http.StatusOK, CompleteResponse{ContentID: req.ContentID, MinutesFlushed: minutes + req.Minutes})
}

// Follow handles POST /api/v1/content/:contentId/follow.
func (h *PlaybackHandler) Follow(c *gin.Context) {
	h.adjustFollowers(c, 1, "Content followed")
}

// Unfollow handles DELETE /api/v1/content/:contentId/follow.
func (h *PlaybackHandler) Unfollow(c *gin.Context) {
	h.adjustFollowers(c, -1, "Content unfollowed")
}

func (h *PlaybackHandler) adjustFollowers(c *gin.Context, delta int64, message string) {
	contentID := c.Param("contentId")
	if contentID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "contentId is required"})
		return
	}

	var err error
	if delta > 0 {
		err = h.watchTime.Follow(c.Request.Context(), contentID)
	} else {
		err = h.watchTime.Unfollow(c.Request.Context(), contentID)
	}
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "Content not found"})
			return
		}
		h.logger.Error("Failed to update follower count",
			zap.String("contentID", contentID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to update follower count"})
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: message})
}
