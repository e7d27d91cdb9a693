package api

import (
	"context"
	"net/http"
	"sync"
	"time"

	"netif-recorder/internal/domain/entities"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// EventsPath is the route the event hub is mounted on
const EventsPath = "/api/events"

const (
	EventRecords                = "records"
	EventRecordsSaved           = "records_saved"
	EventRecordsChangedExternal = "records_changed_externally"
)

const writeWait = 5 * time.Second

// Event is a message pushed to every subscriber
type Event struct {
	Type      string             `json:"type"`
	Operation string             `json:"operation,omitempty"`
	Count     int                `json:"count"`
	Records   entities.RecordSet `json:"records"`
}

// RecordLoader returns the current record set sent to new subscribers
type RecordLoader func(ctx context.Context) (entities.RecordSet, error)

type client struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (c *client) send(event Event) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteJSON(event)
}

// EventHub pushes record changes to websocket subscribers
type EventHub struct {
	upgrader websocket.Upgrader
	loader   RecordLoader
	logger   *logrus.Logger

	mu      sync.RWMutex
	clients map[*websocket.Conn]*client
}

// NewEventHub creates a new EventHub. loader may be nil.
func NewEventHub(loader RecordLoader, logger *logrus.Logger) *EventHub {
	return &EventHub{
		upgrader: websocket.Upgrader{},
		loader:   loader,
		logger:   logger,
		clients:  make(map[*websocket.Conn]*client),
	}
}

// RecordsSaved broadcasts a records_saved event
func (h *EventHub) RecordsSaved(operation string, records entities.RecordSet) {
	h.Broadcast(Event{
		Type:      EventRecordsSaved,
		Operation: operation,
		Count:     len(records),
		Records:   records,
	})
}

// RecordsChangedExternally broadcasts a records_changed_externally event
func (h *EventHub) RecordsChangedExternally(records entities.RecordSet) {
	h.Broadcast(Event{
		Type:    EventRecordsChangedExternal,
		Count:   len(records),
		Records: records,
	})
}

// ClientCount returns the number of connected subscribers
func (h *EventHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast sends an event to all subscribers, dropping those that fail
func (h *EventHub) Broadcast(event Event) {
	if event.Records == nil {
		event.Records = entities.RecordSet{}
	}

	h.mu.RLock()
	targets := make([]*client, 0, len(h.clients))
	for _, c := range h.clients {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		if err := c.send(event); err != nil {
			h.logger.WithError(err).WithField("remote", c.conn.RemoteAddr().String()).Warn("Failed to send event, dropping subscriber")
			h.remove(c.conn)
		}
	}
}

// ServeHTTP upgrades the request and keeps the subscriber until it disconnects
func (h *EventHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).WithField("remote", r.RemoteAddr).Warn("WebSocket upgrade failed")
		return
	}

	c := &client{conn: conn}
	defer h.remove(conn)

	// 스냅샷을 읽기 전에 등록해야 그 사이의 저장 알림을 놓치지 않음
	h.mu.Lock()
	h.clients[conn] = c
	h.mu.Unlock()

	h.logger.WithField("remote", r.RemoteAddr).Info("Event subscriber connected")

	if h.loader != nil {
		records, err := h.loader(r.Context())
		if err != nil {
			h.logger.WithError(err).Warn("Failed to load records for new subscriber")
		} else if err := c.send(Event{Type: EventRecords, Count: len(records), Records: records}); err != nil {
			return
		}
	}

	// 클라이언트 메시지는 무시하고 연결 종료만 감지
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.WithError(err).Debug("Event subscriber closed unexpectedly")
			}
			return
		}
	}
}

// Close disconnects every subscriber
func (h *EventHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for conn := range h.clients {
		conn.Close()
		delete(h.clients, conn)
	}
}

func (h *EventHub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		h.logger.WithField("remote", conn.RemoteAddr().String()).Info("Event subscriber disconnected")
	}
	conn.Close()
}
