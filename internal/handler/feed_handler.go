package handler

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/prohmpiriya/sport-slots-booker/internal/dto"
	"github.com/prohmpiriya/sport-slots-booker/internal/service"
)

const defaultHeartbeatInterval = 15 * time.Second

// FeedHandler streams availability changes over server-sent events
type FeedHandler struct {
	availabilityService service.AvailabilityService
	heartbeat           time.Duration
}

// NewFeedHandler creates a new feed handler
func NewFeedHandler(availabilityService service.AvailabilityService, heartbeat time.Duration) *FeedHandler {
	if heartbeat <= 0 {
		heartbeat = defaultHeartbeatInterval
	}
	return &FeedHandler{availabilityService: availabilityService, heartbeat: heartbeat}
}

// Stream handles GET /feed?venue_id=&sport_id=. The subscription ends when the
// client disconnects.
func (h *FeedHandler) Stream(c *gin.Context) {
	venueID := c.Query("venue_id")
	sportID := c.Query("sport_id")
	if venueID == "" || sportID == "" {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "invalid request",
			Code:    "INVALID_REQUEST",
			Message: "venue_id and sport_id are required",
		})
		return
	}

	venue, venueErr := uuid.Parse(venueID)
	sport, sportErr := uuid.Parse(sportID)
	if venueErr != nil || sportErr != nil {
		invalidID(c, "venue_id and sport_id")
		return
	}

	// Events carry canonical ids, so subscribe with the same form
	sub := h.availabilityService.Subscribe(venue.String(), sport.String())
	defer sub.Cancel()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case event, ok := <-sub.Events:
			if !ok {
				return false
			}
			c.SSEvent(string(event.Type), event)
			return true
		case <-ticker.C:
			c.SSEvent("heartbeat", gin.H{"ts": time.Now().UTC().Format(time.RFC3339)})
			return true
		}
	})
}
