package relay

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"tunecast/logger"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Client 一个已连接的订阅端。订阅端没有跨连接的身份，ID 只用于日志关联。
type Client struct {
	hub  *Hub
	conn *websocket.Conn

	// Send 是该订阅端的发送缓冲。缓冲写满视为订阅端停滞，会被移除。
	Send chan []byte

	ID string
}

// NewClient 创建订阅端
func NewClient(hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		hub:  hub,
		conn: conn,
		Send: make(chan []byte, 256),
		ID:   uuid.NewString(),
	}
}

// Hub 订阅端管理中心。注册、注销和广播都经过 Run 主循环串行处理，
// 新订阅端在注册时立即拿到最新快照和音量（按此顺序）。
type Hub struct {
	clients map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte

	player *Player

	// 互斥锁保护 clients，供主循环外的只读查询使用
	mu sync.RWMutex

	// 关闭信号
	done chan struct{}
}

// NewHub 创建 Hub，player 提供注册时的状态水合
func NewHub(player *Player) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, 256),
		player:     player,
		done:       make(chan struct{}),
	}
}

// Run 启动 Hub 主循环
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case message := <-h.broadcast:
			h.broadcastAll(message)

		case <-h.done:
			h.cleanup()
			return
		}
	}
}

// Stop 停止 Hub
func (h *Hub) Stop() {
	close(h.done)
}

// registerClient 注册订阅端并推送初始状态
func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	total := len(h.clients)
	h.mu.Unlock()

	logger.Info("client connected",
		logger.String("client", client.ID),
		logger.Int("total", total))

	// 先快照后音量，保证新订阅端看到一致的起始状态
	snapMsg, volMsg, err := h.player.hydrationPayloads()
	if err != nil {
		logger.Error("encode hydration messages failed", logger.ErrorField(err))
		return
	}
	h.deliver(client, snapMsg)
	h.deliver(client, volMsg)
}

// unregisterClient 注销订阅端，重复注销是安全的
func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeClient(client)
}

// removeClient 移除订阅端（内部方法，需要持有锁）
func (h *Hub) removeClient(client *Client) {
	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	close(client.Send)

	logger.Info("client disconnected",
		logger.String("client", client.ID),
		logger.Int("remaining", len(h.clients)))
}

// broadcastAll 把消息发给所有订阅端。单个订阅端发送失败只移除它自己，
// 不影响其余订阅端收到消息。
func (h *Hub) broadcastAll(message []byte) {
	h.mu.RLock()
	clientList := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clientList = append(clientList, client)
	}
	h.mu.RUnlock()

	for _, client := range clientList {
		h.deliver(client, message)
	}
}

// deliver 尝试投递一条消息，缓冲写满时把订阅端当作停滞移除。
// 成员检查、发送和 removeClient 的关闭都在同一把锁内，已移除的
// 订阅端不会再被写入。
func (h *Hub) deliver(client *Client, message []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; !ok {
		return
	}

	select {
	case client.Send <- message:
	default:
		logger.Warn("send buffer full, dropping client",
			logger.String("client", client.ID))
		h.removeClient(client)
	}
}

// cleanup 清理所有连接
func (h *Hub) cleanup() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		close(client.Send)
	}
	h.clients = make(map[*Client]bool)
}

// ClientCount 获取当前订阅端数量
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Register 注册订阅端
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister 注销订阅端
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// Broadcast 广播原始消息
func (h *Hub) Broadcast(message []byte) {
	h.broadcast <- message
}

// SendTo 只给一个订阅端发送消息，用于 requestCurrentSongInfo
func (h *Hub) SendTo(client *Client, message []byte) {
	h.deliver(client, message)
}

// ========== Client 方法 ==========

// ReadPump 读取消息循环。解析失败的消息记日志后丢弃，连接保持打开。
func (c *Client) ReadPump(ctx context.Context, handler func(ctx context.Context, client *Client, msg *Message)) {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(64 * 1024)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		select {
		case <-ctx.Done():
			return
		default:
			_, raw, err := c.conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
					logger.Warn("websocket read error",
						logger.ErrorField(err),
						logger.String("client", c.ID))
				}
				return
			}

			var msg Message
			if err := json.Unmarshal(raw, &msg); err != nil {
				logger.Warn("invalid message format",
					logger.ErrorField(err),
					logger.String("client", c.ID))
				continue
			}

			handler(ctx, c, &msg)
		}
	}
}

// WritePump 写入消息循环，带周期性 ping 和有界写超时。
// 写超时的订阅端连接会被关闭，读循环随之注销它。
func (c *Client) WritePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				// Hub 关闭了通道
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
