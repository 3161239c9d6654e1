package ws

import "sync"

// Hub 连接注册表 + 广播扇出。单一标的，没有 topic 路由：
// 每个订阅者收到全部消息。对每个 conn 都是非阻塞 Offer，
// 慢客户端不会卡住广播路径。
type Hub struct {
	mu    sync.RWMutex
	conns map[*Conn]struct{}
}

func NewHub() *Hub {
	return &Hub{conns: make(map[*Conn]struct{}, 64)}
}

func (h *Hub) add(c *Conn) {
	h.mu.Lock()
	h.conns[c] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) remove(c *Conn) {
	h.mu.Lock()
	delete(h.conns, c)
	h.mu.Unlock()
}

// Len 活跃连接数
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// Broadcast 把 payload 送进每个连接的发送队列。队列满就丢这一条——
// 每次更新都是全量快照，丢了下一条自然补上。
func (h *Hub) Broadcast(payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.conns {
		c.Offer(payload)
	}
}
