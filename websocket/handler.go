package websocket

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"voting-api/models"
	"voting-api/service"
)

const (
	// 写入超时
	writeWait = 10 * time.Second

	// 读取超时
	pongWait = 60 * time.Second

	// 发送ping间隔时间，必须小于pongWait
	pingPeriod = (pongWait * 9) / 10

	// 最大消息大小
	maxMessageSize = 512

	sendBufferSize = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Client 代表一个订阅某个投票的WebSocket客户端
type Client struct {
	PollID string

	conn *websocket.Conn
	send chan []byte
}

// PollFinder looks up a poll before a subscription is accepted
type PollFinder interface {
	GetPoll(ctx context.Context, id string) (*models.Poll, error)
}

// Handler WebSocket处理器
type Handler struct {
	hub   *Hub
	polls PollFinder
	l     *zap.Logger
}

// NewHandler 创建WebSocket处理器
func NewHandler(hub *Hub, polls PollFinder, l *zap.Logger) *Handler {
	return &Handler{hub: hub, polls: polls, l: l}
}

// Subscribe 将连接升级为WebSocket并订阅投票更新。投票不存在时返回404，不升级。
func (h *Handler) Subscribe(c *gin.Context) {
	pollID := c.Param("id")

	if _, err := h.polls.GetPoll(c.Request.Context(), pollID); err != nil {
		if errors.Is(err, service.ErrPollNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "Poll not found"})
			return
		}
		h.l.Error("failed to look up poll for subscription", zap.String("poll_id", pollID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade已经写入了错误响应
		h.l.Warn("failed to upgrade to websocket", zap.String("poll_id", pollID), zap.Error(err))
		return
	}

	client := &Client{
		PollID: pollID,
		conn:   conn,
		send:   make(chan []byte, sendBufferSize),
	}
	if !h.hub.RegisterClient(client) {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(writeWait))
		_ = conn.Close()
		return
	}

	go h.writePump(client)
	go h.readPump(client)

	h.l.Info("websocket subscription opened", zap.String("poll_id", pollID))
}

// readPump 读取并丢弃客户端消息，负责维持pong超时
func (h *Handler) readPump(client *Client) {
	defer func() {
		h.hub.UnregisterClient(client)
		_ = client.conn.Close()
	}()

	client.conn.SetReadLimit(maxMessageSize)
	_ = client.conn.SetReadDeadline(time.Now().Add(pongWait))
	client.conn.SetPongHandler(func(string) error {
		return client.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.l.Warn("websocket read error", zap.String("poll_id", client.PollID), zap.Error(err))
			}
			return
		}
	}
}

// writePump 向WebSocket连接发送消息，每条消息单独一帧
func (h *Handler) writePump(client *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = client.conn.Close()
	}()

	for {
		select {
		case message, ok := <-client.send:
			_ = client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub关闭了通道
				_ = client.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
