package ws

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/radieske/competitions-bet-platform/pkg/contracts/events"
)

// conn serializa as escritas; o gorilla não aceita escritas concorrentes
type conn struct {
	ws *websocket.Conn
	mu sync.Mutex
}

func (c *conn) writeJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteJSON(v)
}

func (c *conn) writeRaw(b []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteMessage(websocket.TextMessage, b)
}

// Hub mantém as conexões abertas e em quais tipos do catálogo cada uma está inscrita
type Hub struct {
	log      *zap.Logger
	upgrader websocket.Upgrader
	mu       sync.RWMutex
	// kind -> conexões
	subs map[string]map[*conn]struct{}
}

func NewHub(log *zap.Logger, allowOrigin func(r *http.Request) bool) *Hub {
	return &Hub{
		log:      log,
		upgrader: websocket.Upgrader{CheckOrigin: allowOrigin},
		subs:     make(map[string]map[*conn]struct{}),
	}
}

// HandleWS atende uma conexão até o cliente desconectar
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Debug("ws upgrade failed", zap.Error(err))
		return
	}
	c := &conn{ws: ws}
	defer ws.Close()
	defer h.drop(c)

	for {
		var msg ClientMsg
		if err := ws.ReadJSON(&msg); err != nil {
			return
		}
		switch msg.Type {
		case "subscribe":
			if msg.Kind == "" {
				msg.Kind = KindAll
			}
			h.mu.Lock()
			if _, ok := h.subs[msg.Kind]; !ok {
				h.subs[msg.Kind] = make(map[*conn]struct{})
			}
			h.subs[msg.Kind][c] = struct{}{}
			h.mu.Unlock()
		case "unsubscribe":
			h.mu.Lock()
			if m, ok := h.subs[msg.Kind]; ok {
				delete(m, c)
				if len(m) == 0 {
					delete(h.subs, msg.Kind)
				}
			}
			h.mu.Unlock()
		case "ping":
			_ = c.writeJSON(map[string]string{"type": TypePong})
		}
	}
}

func (h *Hub) drop(c *conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for kind, set := range h.subs {
		delete(set, c)
		if len(set) == 0 {
			delete(h.subs, kind)
		}
	}
}

// Subscribers conta conexões inscritas no tipo (sem contar "*")
func (h *Hub) Subscribers(kind string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[kind])
}

// Broadcast envia a mudança para quem assina o tipo e para quem assina "*"
func (h *Hub) Broadcast(e events.CatalogChanged) {
	h.mu.RLock()
	targets := make(map[*conn]struct{}, len(h.subs[e.Kind])+len(h.subs[KindAll]))
	for c := range h.subs[e.Kind] {
		targets[c] = struct{}{}
	}
	for c := range h.subs[KindAll] {
		targets[c] = struct{}{}
	}
	h.mu.RUnlock()
	if len(targets) == 0 {
		return
	}

	b, err := json.Marshal(CatalogUpdate{Type: TypeCatalog, Payload: e})
	if err != nil {
		return
	}
	for c := range targets {
		if err := c.writeRaw(b); err != nil {
			h.log.Debug("ws write failed", zap.Error(err))
		}
	}
}
