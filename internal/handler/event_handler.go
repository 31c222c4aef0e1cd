package handler

import (
	"io"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/smk-student-hub/pkg/eventbus"
)

const eventBuffer = 64

// EventHandler streams change events to browsers over server-sent events.
type EventHandler struct {
	bus       *eventbus.Bus
	heartbeat time.Duration
	buffer    int
	logger    *zap.Logger
}

// NewEventHandler constructs EventHandler. A non-positive heartbeat defaults to 25s.
func NewEventHandler(bus *eventbus.Bus, heartbeat time.Duration, logger *zap.Logger) *EventHandler {
	if heartbeat <= 0 {
		heartbeat = 25 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventHandler{bus: bus, heartbeat: heartbeat, buffer: eventBuffer, logger: logger}
}

// Stream godoc
// @Summary Subscribe to change events
// @Description Emits one "change" event per namespace write. Slow clients lose events rather than block writers.
// @Tags Events
// @Produce text/event-stream
// @Param access_token query string false "Token for clients that cannot set headers"
// @Success 200 {string} string
// @Router /events [get]
func (h *EventHandler) Stream(c *gin.Context) {
	events, unsubscribe := h.subscribe()
	defer unsubscribe()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.SSEvent("ready", gin.H{"origin": h.bus.Origin()})
	c.Writer.Flush()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case evt := <-events:
			c.SSEvent("change", evt)
			return true
		case <-ticker.C:
			c.SSEvent("ping", time.Now().UTC().Format(time.RFC3339))
			return true
		}
	})
}

// subscribe buffers bus events for one stream. Publishing never blocks: a full buffer drops the event.
func (h *EventHandler) subscribe() (<-chan eventbus.Event, func()) {
	events := make(chan eventbus.Event, h.buffer)
	unsubscribe := h.bus.SubscribeAll(func(evt eventbus.Event) {
		select {
		case events <- evt:
		default:
			h.logger.Debug("dropping event for slow subscriber", zap.String("entity", string(evt.Entity)))
		}
	})
	return events, unsubscribe
}
