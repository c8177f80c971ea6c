package transport

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	apperrors "go-trustshield/internal/errors"
	"go-trustshield/internal/logger"
	"go-trustshield/internal/observer"
	"go-trustshield/pkg/models"
)

const (
	clientBuffer = 64
	writeTimeout = 5 * time.Second
	pingInterval = 30 * time.Second
)

// EventHub streams session events to websocket clients. A client that cannot
// keep up loses events rather than stalling the analyzers.
type EventHub struct {
	upgrader websocket.Upgrader
	mu       sync.RWMutex
	clients  map[*hubClient]struct{}
	dropped  int64
}

type hubClient struct {
	send   chan observer.SessionEvent
	filter models.Kind
}

func NewEventHub() *EventHub {
	return &EventHub{
		upgrader: websocket.Upgrader{
			// The console binds to loopback by default
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[*hubClient]struct{}),
	}
}

// OnEvent fans the event out to every matching client without blocking
func (h *EventHub) OnEvent(ctx context.Context, event observer.SessionEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		if c.filter != "" && c.filter != event.Analyzer {
			continue
		}
		select {
		case c.send <- event:
		default:
			atomic.AddInt64(&h.dropped, 1)
		}
	}
}

func (h *EventHub) GetObserverName() string {
	return "websocket_hub"
}

// Clients reports how many websocket clients are connected
func (h *EventHub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Dropped reports how many events slow clients missed
func (h *EventHub) Dropped() int64 {
	return atomic.LoadInt64(&h.dropped)
}

func (h *EventHub) register(c *hubClient) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

func (h *EventHub) unregister(c *hubClient) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
}

// ServeWS upgrades the request and streams events until the client goes away.
// ?analyzer=<kind> restricts the stream to one analyzer.
func (h *EventHub) ServeWS(c *gin.Context) {
	var filter models.Kind
	if raw := c.Query("analyzer"); raw != "" {
		kind, ok := models.ParseKind(raw)
		if !ok {
			respondError(c, http.StatusBadRequest, "invalid analyzer filter", apperrors.NewValidationError("unknown analyzer "+raw, nil))
			return
		}
		filter = kind
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.WithError(err).Warn("Websocket upgrade failed")
		return
	}
	defer conn.Close()

	client := &hubClient{send: make(chan observer.SessionEvent, clientBuffer), filter: filter}
	h.register(client)
	defer h.unregister(client)

	log := logger.WithFields(logrus.Fields{
		"ip":     c.ClientIP(),
		"filter": filter,
	})
	log.Info("Event stream client connected")
	defer log.Info("Event stream client disconnected")

	// The reader only notices the client closing the connection
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(pingInterval)
	defer ping.Stop()

	for {
		select {
		case <-closed:
			return
		case ev := <-client.send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				return
			}
		}
	}
}
