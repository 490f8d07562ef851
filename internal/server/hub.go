package server

import (
	"encoding/json"
	"sync"
)

// Hub 管理所有連線中的客戶端，負責廣播
type Hub struct {
	mu      sync.Mutex
	clients map[*Client]struct{}
	// latest 為最後一次廣播的公開狀態，供新連線立即取得
	latest []byte
}

func NewHub() *Hub {
	return &Hub{clients: make(map[*Client]struct{})}
}

// Register 加入客戶端並補送最後一次的公開狀態
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
	if h.latest != nil {
		c.sendRaw(h.latest)
	}
}

func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, c)
}

// Len 回傳連線數
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Broadcast 推送訊息給所有客戶端
func (h *Hub) Broadcast(msg ServerMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if msg.Type == "public_state" {
		h.latest = data
	}
	for c := range h.clients {
		c.sendRaw(data)
	}
}
