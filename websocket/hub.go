package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"voting-api/models"
)

// Hub 维护活跃的客户端集合并向客户端广播消息
type Hub struct {
	// 已注册的客户端，按投票ID分组
	clients map[string]map[*Client]struct{}

	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	closeOnce  sync.Once

	// 互斥锁保护clients map
	mu sync.RWMutex
	l  *zap.Logger
}

// NewHub 创建一个新的Hub
func NewHub(l *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		l:          l,
	}
}

// Run 处理注册和注销，直到ctx取消或Close被调用
func (h *Hub) Run(ctx context.Context) {
	defer h.dropAll()

	for {
		select {
		case <-ctx.Done():
			return
		case <-h.done:
			return
		case client := <-h.register:
			h.mu.Lock()
			if _, ok := h.clients[client.PollID]; !ok {
				h.clients[client.PollID] = make(map[*Client]struct{})
			}
			h.clients[client.PollID][client] = struct{}{}
			n := len(h.clients[client.PollID])
			h.mu.Unlock()
			h.l.Debug("client registered", zap.String("poll_id", client.PollID), zap.Int("clients", n))

		case client := <-h.unregister:
			h.mu.Lock()
			h.removeLocked(client)
			h.mu.Unlock()
			h.l.Debug("client unregistered", zap.String("poll_id", client.PollID))
		}
	}
}

// PublishPoll 向订阅该投票的客户端推送VOTE_UPDATE消息
func (h *Hub) PublishPoll(poll *models.Poll) {
	payload, err := json.Marshal(models.WebSocketMessage{
		Type:    models.MessageTypeVoteUpdate,
		PollID:  poll.ID,
		Payload: poll,
	})
	if err != nil {
		h.l.Error("failed to encode poll update", zap.String("poll_id", poll.ID), zap.Error(err))
		return
	}
	h.broadcast(poll.ID, payload)
}

func (h *Hub) broadcast(pollID string, payload []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := h.clients[pollID]
	for client := range clients {
		select {
		case client.send <- payload:
		default:
			// 发送缓冲区已满，断开慢客户端
			h.removeLocked(client)
			h.l.Warn("dropping slow client", zap.String("poll_id", pollID))
		}
	}
	h.l.Debug("broadcast poll update", zap.String("poll_id", pollID), zap.Int("clients", len(clients)))
}

// RegisterClient 注册客户端到Hub，Hub已停止时返回false
func (h *Hub) RegisterClient(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// UnregisterClient 从Hub中注销客户端
func (h *Hub) UnregisterClient(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Subscribers 返回某个投票当前的订阅数
func (h *Hub) Subscribers(pollID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[pollID])
}

// Close 停止Hub并关闭所有客户端的发送通道
func (h *Hub) Close() {
	h.closeOnce.Do(func() {
		close(h.done)
	})
}

func (h *Hub) dropAll() {
	h.Close()

	h.mu.Lock()
	defer h.mu.Unlock()
	for _, clients := range h.clients {
		for client := range clients {
			h.removeLocked(client)
		}
	}
}

// removeLocked requires h.mu held for writing
func (h *Hub) removeLocked(client *Client) {
	clients, ok := h.clients[client.PollID]
	if !ok {
		return
	}
	if _, ok := clients[client]; !ok {
		return
	}
	delete(clients, client)
	close(client.send)
	if len(clients) == 0 {
		delete(h.clients, client.PollID)
	}
}
