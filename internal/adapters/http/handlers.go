package http

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/dkeye/liveclass/internal/app/orch"
	"github.com/dkeye/liveclass/internal/core"
	"github.com/dkeye/liveclass/internal/domain"
	"github.com/dkeye/liveclass/internal/storage"
	"github.com/gin-gonic/gin"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

const secretHeader = "X-Hub-Secret"

type handlers struct {
	orch         *orch.Orchestrator
	store        storage.Store
	historyLimit int
	rtc          webrtc.Configuration
}

// RequireSecret guards a route with a shared secret header. An empty secret
// leaves the route open.
func RequireSecret(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			c.Next()
			return
		}
		got := c.GetHeader(secretHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid secret"})
			return
		}
		c.Next()
	}
}

func (h *handlers) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"connections": h.orch.Registry.Count(),
		"rooms":       h.orch.Rooms.Count(),
	})
}

func (h *handlers) listRooms(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"rooms": h.orch.Rooms.List()})
}

func (h *handlers) history(c *gin.Context) {
	room := domain.RoomID(c.Param("room"))
	if err := room.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	limit := h.historyLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		if n < limit {
			limit = n
		}
	}

	events, err := h.store.RecentMessages(c.Request.Context(), room, limit)
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Str("room", string(room)).Msg("history read")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "history unavailable"})
		return
	}
	messages := make([]core.ChatMessage, 0, len(events))
	for _, ev := range events {
		messages = append(messages, core.NewChatMessage(ev))
	}
	c.JSON(http.StatusOK, gin.H{"room": room, "messages": messages})
}

type publishRequest struct {
	Kind    domain.NotificationKind `json:"kind"`
	Payload json.RawMessage         `json:"payload"`
}

func (h *handlers) publish(c *gin.Context) {
	var req publishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	err := h.orch.Publish(domain.NotificationEvent{
		Room:    domain.RoomID(c.Param("room")),
		Kind:    req.Kind,
		Payload: req.Payload,
	})
	switch {
	case err == nil:
		c.JSON(http.StatusAccepted, gin.H{"delivered": true})
	case errors.Is(err, orch.ErrRoomNotLive):
		c.JSON(http.StatusAccepted, gin.H{"delivered": false})
	case errors.Is(err, orch.ErrShuttingDown):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	}
}

func (h *handlers) rtcConfig(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"iceServers":         h.rtc.ICEServers,
		"iceTransportPolicy": h.rtc.ICETransportPolicy.String(),
	})
}
