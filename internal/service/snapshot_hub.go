package service

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"hifz_backend/internal/model"
	"hifz_backend/internal/snapshot"
	"hifz_backend/pkg/logger"
	"hifz_backend/pkg/monitoring"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 16
)

const (
	MessageSnapshot     = "SNAPSHOT"
	MessageNotification = "NOTIFICATION"
	MessageRefresh      = "REFRESH"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type WSMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Notification is pushed to every client when a background write or a
// collection stream fails.
type Notification struct {
	Level   string    `json:"level"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

type Client struct {
	Hub       *SnapshotHub
	Conn      *websocket.Conn
	Send      chan []byte
	Principal model.Principal
	Limiter   *rate.Limiter
}

func (c *Client) readPump() {
	defer func() {
		select {
		case c.Hub.unregister <- c:
		case <-c.Hub.done:
		}
		c.Conn.Close()
	}()
	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error { c.Conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Log.Error("WebSocket unexpected close", zap.Error(err), zap.String("role", string(c.Principal.Role)))
			}
			break
		}
		if !c.Limiter.Allow() {
			continue
		}

		var msg WSMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			continue
		}
		monitoring.WebsocketMessages.WithLabelValues(msg.Type, "in").Inc()
		if msg.Type == MessageRefresh {
			select {
			case c.Hub.refresh <- c:
			default:
			}
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// SnapshotHub streams every new snapshot to connected clients, each one
// filtered to what its principal may see.
type SnapshotHub struct {
	views *ProgressService

	clients    map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	refresh    chan *Client
	notices    chan Notification

	latestMu sync.Mutex
	latest   *snapshot.Snapshot
	changed  chan struct{}

	stopOnce sync.Once
	done     chan struct{}
}

func NewSnapshotHub(views *ProgressService) *SnapshotHub {
	return &SnapshotHub{
		views:      views,
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		refresh:    make(chan *Client, 64),
		notices:    make(chan Notification, 64),
		changed:    make(chan struct{}, 1),
		done:       make(chan struct{}),
	}
}

// OnSnapshot is the engine listener. Bursts of snapshots collapse into one
// send of the latest.
func (h *SnapshotHub) OnSnapshot(s *snapshot.Snapshot) {
	h.latestMu.Lock()
	h.latest = s
	h.latestMu.Unlock()
	select {
	case h.changed <- struct{}{}:
	default:
	}
}

// Notify queues an error notification for every client. It never blocks.
func (h *SnapshotHub) Notify(err error) {
	select {
	case h.notices <- Notification{Level: "error", Message: err.Error(), At: time.Now()}:
	default:
		logger.Log.Warn("Notification dropped, hub is busy", zap.Error(err))
	}
}

func (h *SnapshotHub) current() *snapshot.Snapshot {
	h.latestMu.Lock()
	defer h.latestMu.Unlock()
	return h.latest
}

func (h *SnapshotHub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.Stop()
			h.closeAll()
			return
		case <-h.done:
			h.closeAll()
			return

		case client := <-h.register:
			h.clients[client] = struct{}{}
			monitoring.WebsocketClients.Inc()
			h.sendView(client, h.snapshotOrSource())

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
				monitoring.WebsocketClients.Dec()
			}

		case client := <-h.refresh:
			if _, ok := h.clients[client]; ok {
				h.sendView(client, h.snapshotOrSource())
			}

		case <-h.changed:
			snap := h.current()
			for client := range h.clients {
				h.sendView(client, snap)
			}

		case n := <-h.notices:
			payload, _ := json.Marshal(WSMessage{Type: MessageNotification, Data: n})
			for client := range h.clients {
				h.deliver(client, MessageNotification, payload)
			}
		}
	}
}

func (h *SnapshotHub) snapshotOrSource() *snapshot.Snapshot {
	if s := h.current(); s != nil {
		return s
	}
	return h.views.source.Snapshot()
}

func (h *SnapshotHub) sendView(c *Client, snap *snapshot.Snapshot) {
	if snap == nil {
		return
	}
	payload, err := json.Marshal(WSMessage{Type: MessageSnapshot, Data: h.views.View(c.Principal, snap)})
	if err != nil {
		logger.Log.Error("Failed to encode snapshot view", zap.Error(err))
		return
	}
	h.deliver(c, MessageSnapshot, payload)
}

// deliver drops clients that cannot keep up.
func (h *SnapshotHub) deliver(c *Client, kind string, payload []byte) {
	select {
	case c.Send <- payload:
		monitoring.WebsocketMessages.WithLabelValues(kind, "out").Inc()
	default:
		delete(h.clients, c)
		close(c.Send)
		monitoring.WebsocketClients.Dec()
		logger.Log.Warn("Dropping slow websocket client", zap.String("role", string(c.Principal.Role)))
	}
}

// Stop makes Run close every connection and return.
func (h *SnapshotHub) Stop() {
	h.stopOnce.Do(func() {
		close(h.done)
	})
}

func (h *SnapshotHub) closeAll() {
	for client := range h.clients {
		close(client.Send)
		delete(h.clients, client)
	}
	monitoring.WebsocketClients.Set(0)
	logger.Log.Info("Snapshot hub stopped")
}

func ServeWs(hub *SnapshotHub, w http.ResponseWriter, r *http.Request, p model.Principal) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Error("WebSocket upgrade failed", zap.Error(err), zap.String("role", string(p.Role)))
		return
	}
	client := &Client{
		Hub:       hub,
		Conn:      conn,
		Send:      make(chan []byte, sendBuffer),
		Principal: p,
		Limiter:   rate.NewLimiter(rate.Limit(5), 10),
	}
	select {
	case hub.register <- client:
	case <-hub.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}
