package api

import (
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"

	"gosim/internal"
)

// ProgressEvent reports how many trials of a run have finished
type ProgressEvent struct {
	Stream    string    `json:"stream"`
	Done      int       `json:"done"`
	Total     int       `json:"total"`
	Progress  float64   `json:"progress"`
	Timestamp time.Time `json:"timestamp"`
}

// ProgressHub fans run progress out to Server-Sent Event clients. Clients
// pick a stream token, subscribe to it, then start the run with the same
// token.
type ProgressHub struct {
	mu      sync.RWMutex
	clients map[string]map[chan ProgressEvent]bool
	logger  *internal.Logger
}

// pingInterval keeps idle connections open through proxies
var pingInterval = 30 * time.Second

// NewProgressHub creates an empty hub
func NewProgressHub(logger *internal.Logger) *ProgressHub {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &ProgressHub{
		clients: make(map[string]map[chan ProgressEvent]bool),
		logger:  logger,
	}
}

// Subscribe registers a client for stream. The returned cancel function
// unregisters it and closes the channel.
func (h *ProgressHub) Subscribe(stream string) (<-chan ProgressEvent, func()) {
	ch := make(chan ProgressEvent, 16)
	h.mu.Lock()
	if h.clients[stream] == nil {
		h.clients[stream] = make(map[chan ProgressEvent]bool)
	}
	h.clients[stream][ch] = true
	h.logger.Debug("[Progress] client subscribed to %s (clients: %d)", stream, len(h.clients[stream]))
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if clients, ok := h.clients[stream]; ok {
				delete(clients, ch)
				if len(clients) == 0 {
					delete(h.clients, stream)
				}
			}
			close(ch)
		})
	}
}

// Broadcast delivers event to every subscriber of its stream. Slow clients
// miss events rather than block the run.
func (h *ProgressHub) Broadcast(event ProgressEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.clients[event.Stream] {
		select {
		case ch <- event:
		default:
			h.logger.Trace("[Progress] client channel full for %s, skipping event", event.Stream)
		}
	}
}

// ClientCount returns the number of subscribers to stream
func (h *ProgressHub) ClientCount(stream string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[stream])
}

// Reporter returns a progress callback for the driver that broadcasts on
// stream once per whole percent. It is safe for concurrent use.
func (h *ProgressHub) Reporter(stream string) func(done, total int) {
	var last atomic.Int64
	last.Store(-1)
	return func(done, total int) {
		if total <= 0 {
			return
		}
		pct := int64(done) * 100 / int64(total)
		prev := last.Load()
		if pct <= prev || !last.CompareAndSwap(prev, pct) {
			return
		}
		h.Broadcast(ProgressEvent{
			Stream:    stream,
			Done:      done,
			Total:     total,
			Progress:  float64(done) / float64(total),
			Timestamp: time.Now().UTC(),
		})
	}
}

// HandleSSE streams progress events for ?stream=<token> until the client
// disconnects or the run reaches 100%
func (h *ProgressHub) HandleSSE(c *gin.Context) {
	stream := c.Query("stream")
	if stream == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "stream parameter required"})
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	events, cancel := h.Subscribe(stream)
	defer cancel()

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case event, ok := <-events:
			if !ok {
				return false
			}
			data, err := json.Marshal(event)
			if err != nil {
				h.logger.Warn("[Progress] failed to marshal event: %v", err)
				return true
			}
			c.SSEvent("progress", string(data))
			return event.Done < event.Total
		case <-time.After(pingInterval):
			c.SSEvent("ping", `{"status":"alive"}`)
			return true
		case <-ctx.Done():
			return false
		}
	})
}
