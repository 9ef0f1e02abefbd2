package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"k9aliases/backend/internal/domain"
	"k9aliases/backend/internal/middleware"
	"k9aliases/backend/internal/monitoring"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	sendBufferSize = 64
)

// upgraderFactory 创建带有 Origin 验证的 WebSocket 升级器
func upgraderFactory(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			for _, origin := range allowedOrigins {
				if origin == "*" {
					return true
				}
			}

			// 没有 Origin 视为同源请求
			requestOrigin := r.Header.Get("Origin")
			if requestOrigin == "" {
				return true
			}

			for _, origin := range allowedOrigins {
				if requestOrigin == origin {
					return true
				}
			}
			return false
		},
	}
}

// MessageType 定义WebSocket消息类型
type MessageType string

const (
	MessageTypeEvent MessageType = "event"
	MessageTypePing  MessageType = "ping"
	MessageTypePong  MessageType = "pong"
)

// Message 定义WebSocket消息结构
type Message struct {
	Type      MessageType `json:"type"`
	Event     string      `json:"event,omitempty"`
	Data      any         `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// Client 代表一个WebSocket客户端连接
type Client struct {
	ID     string
	UserID string
	conn   *websocket.Conn
	send   chan []byte
	hub    *Hub
}

type userEvent struct {
	userID string
	event  domain.Event
}

// Hub 按用户分组管理连接，把数据变更事件推送给该用户的所有客户端
type Hub struct {
	users      map[string]map[string]*Client // userID -> clientID -> Client
	register   chan *Client
	unregister chan *Client
	broadcast  chan userEvent
	done       chan struct{}
	mu         sync.RWMutex

	allowedOrigins []string
	metrics        *monitoring.Metrics
	log            *zap.Logger
}

// NewHub 创建WebSocket Hub，allowedOrigins 为空时允许所有来源
func NewHub(allowedOrigins []string, log *zap.Logger, metrics *monitoring.Metrics) *Hub {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &Hub{
		users:          make(map[string]map[string]*Client),
		register:       make(chan *Client),
		unregister:     make(chan *Client),
		broadcast:      make(chan userEvent, 256),
		done:           make(chan struct{}),
		allowedOrigins: allowedOrigins,
		metrics:        metrics,
		log:            log,
	}
}

// Run 启动Hub，ctx 取消时关闭所有连接
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.log.Info("websocket hub stopped")
			close(h.done)
			h.closeAllClients()
			return

		case client := <-h.register:
			h.mu.Lock()
			if h.users[client.UserID] == nil {
				h.users[client.UserID] = make(map[string]*Client)
			}
			h.users[client.UserID][client.ID] = client
			total := h.countLocked()
			h.mu.Unlock()

			h.metrics.UpdateWebsocketClients(total)
			h.log.Debug("client registered", zap.String("client_id", client.ID), zap.String("user_id", client.UserID))

		case client := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.users[client.UserID]; ok {
				if _, ok := clients[client.ID]; ok {
					delete(clients, client.ID)
					close(client.send)
					if len(clients) == 0 {
						delete(h.users, client.UserID)
					}
				}
			}
			total := h.countLocked()
			h.mu.Unlock()

			h.metrics.UpdateWebsocketClients(total)
			h.log.Debug("client unregistered", zap.String("client_id", client.ID))

		case ev := <-h.broadcast:
			h.deliver(ev)
		}
	}
}

// Publish 实现 service.Notifier，不会阻塞调用方
func (h *Hub) Publish(userID string, event domain.Event) {
	select {
	case h.broadcast <- userEvent{userID: userID, event: event}:
	default:
		h.log.Warn("websocket broadcast queue full, dropping event",
			zap.String("user_id", userID),
			zap.String("event", event.Type))
	}
}

// ClientCount 返回用户当前的连接数
func (h *Hub) ClientCount(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.users[userID])
}

func (h *Hub) countLocked() int {
	total := 0
	for _, clients := range h.users {
		total += len(clients)
	}
	return total
}

func (h *Hub) deliver(ev userEvent) {
	data, err := json.Marshal(&Message{
		Type:      MessageTypeEvent,
		Event:     ev.event.Type,
		Data:      ev.event.Data,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		h.log.Error("failed to marshal event", zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, client := range h.users[ev.userID] {
		select {
		case client.send <- data:
		default:
			h.log.Warn("client channel blocked, skipping", zap.String("client_id", client.ID))
		}
	}
}

// closeAllClients 关闭所有客户端连接
func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, clients := range h.users {
		for _, client := range clients {
			close(client.send)
		}
	}
	h.users = make(map[string]map[string]*Client)
	h.metrics.UpdateWebsocketClients(0)
}

// HandleWebSocket 处理WebSocket连接，需挂在会话认证中间件之后
func HandleWebSocket(hub *Hub) gin.HandlerFunc {
	upgrader := upgraderFactory(hub.allowedOrigins)

	return func(c *gin.Context) {
		userID := middleware.UserID(c)
		if userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"code": http.StatusUnauthorized, "msg": "You must be logged in."})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			hub.log.Warn("failed to upgrade connection",
				zap.Error(err),
				zap.String("origin", c.Request.Header.Get("Origin")),
				zap.String("remote_addr", c.ClientIP()))
			return
		}

		client := &Client{
			ID:     uuid.NewString(),
			UserID: userID,
			conn:   conn,
			send:   make(chan []byte, sendBufferSize),
			hub:    hub,
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
}

// readPump 读取客户端消息，连接断开时注销
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(4096)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Debug("websocket read error", zap.Error(err))
			}
			return
		}

		if msg.Type == MessageTypePing {
			c.reply(&Message{Type: MessageTypePong, Timestamp: time.Now().UTC()})
		}
	}
}

// writePump 发送消息给客户端
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) reply(msg *Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}

	// send 可能已被 Hub 关闭
	c.hub.mu.RLock()
	defer c.hub.mu.RUnlock()
	if _, ok := c.hub.users[c.UserID][c.ID]; !ok {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}
