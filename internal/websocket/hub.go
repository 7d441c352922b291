package websocket

import (
	"sync"

	"NightreignMatch/internal/utils"
)

type HubInterface interface {
	BroadcastToPlayers(identities []string, msg OutgoingMessage)
	SendToPlayer(identity string, msg OutgoingMessage)
	Close()
}

type Hub struct {
	clients    map[string]*Client // identity -> client
	register   chan *Client
	unregister chan *Client
	broadcast  chan broadcastReq
	sendOne    chan sendReq
	incoming   chan IncomingMessage
	OnIncoming func(IncomingMessage)
	quit       chan struct{}
	closeOnce  sync.Once
	mu         sync.RWMutex
}

type broadcastReq struct {
	Identities []string
	Message    OutgoingMessage
}

type sendReq struct {
	Identity string
	Message  OutgoingMessage
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan broadcastReq),
		sendOne:    make(chan sendReq),
		incoming:   make(chan IncomingMessage, 256),
		quit:       make(chan struct{}),
	}
}

// Run 主循环只负责连接表与写入 Send；
// 上行消息由独立的 dispatch 协程交给 OnIncoming，
// 这样 OnIncoming 内部再调用 SendToPlayer 不会和主循环互相等待
func (h *Hub) Run() {
	utils.Log.Info("Hub started")
	go h.dispatch()

	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			if old, ok := h.clients[c.Identity]; ok && old != c {
				// 同一 identity 的新连接顶替旧连接
				close(old.Send)
				utils.Log.Info("Hub.replace", "identity", c.Identity, "old", old.ConnID, "new", c.ConnID)
			}
			h.clients[c.Identity] = c
			utils.Log.Debug("Hub.register", "identity", c.Identity, "clients", len(h.clients))
			h.mu.Unlock()

		case c := <-h.unregister:
			h.mu.Lock()
			if cur, ok := h.clients[c.Identity]; ok && cur == c {
				delete(h.clients, c.Identity)
				close(c.Send)
				utils.Log.Debug("Hub.unregister", "identity", c.Identity, "clients", len(h.clients))
			}
			h.mu.Unlock()

		case req := <-h.broadcast:
			for _, id := range req.Identities {
				if client, ok := h.clients[id]; ok {
					h.deliver(client, req.Message)
				}
			}

		case req := <-h.sendOne:
			if client, ok := h.clients[req.Identity]; ok {
				h.deliver(client, req.Message)
			}

		case <-h.quit:
			h.mu.Lock()
			for id, c := range h.clients {
				close(c.Send)
				delete(h.clients, id)
			}
			h.mu.Unlock()
			utils.Log.Info("Hub stopped")
			return
		}
	}
}

// deliver 慢客户端直接丢弃，不阻塞主循环
func (h *Hub) deliver(c *Client, msg OutgoingMessage) {
	select {
	case c.Send <- msg:
	default:
		utils.Log.Warn("client send buffer full, dropping", "identity", c.Identity, "event", msg.Event)
	}
}

func (h *Hub) dispatch() {
	for {
		select {
		case msg := <-h.incoming:
			if h.OnIncoming != nil {
				h.OnIncoming(msg)
			}
		case <-h.quit:
			return
		}
	}
}

// Broadcast to multiple players
func (h *Hub) BroadcastToPlayers(identities []string, msg OutgoingMessage) {
	select {
	case h.broadcast <- broadcastReq{Identities: identities, Message: msg}:
	case <-h.quit:
	}
}

// Send to a single player (safe concurrent)
func (h *Hub) SendToPlayer(identity string, msg OutgoingMessage) {
	select {
	case h.sendOne <- sendReq{Identity: identity, Message: msg}:
	case <-h.quit:
	}
}

// clientFor 当前登记在该 identity 下的连接
func (h *Hub) clientFor(identity string) (*Client, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.clients[identity]
	return c, ok
}

// Len 当前连接数
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) Close() {
	h.closeOnce.Do(func() { close(h.quit) })
}

func (h *Hub) Register(c *Client) {
	select {
	case h.register <- c:
	case <-h.quit:
	}
}

func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.quit:
	}
}

func (h *Hub) push(msg IncomingMessage) {
	select {
	case h.incoming <- msg:
	case <-h.quit:
	}
}
