package ws

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const writeTimeout = 5 * time.Second

// ClientMsg é a mensagem aceita do cliente: só "ping"
type ClientMsg struct {
	Type string `json:"type"`
}

// SnapshotFunc devolve o payload inicial enviado a cada conexão nova
type SnapshotFunc func() ([]byte, error)

type client struct {
	conn *websocket.Conn
	mu   sync.Mutex // gorilla não aceita escritas concorrentes
}

func (c *client) write(b []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteMessage(websocket.TextMessage, b)
}

// Hub mantém as conexões WebSocket que acompanham a rodada
type Hub struct {
	upgrader websocket.Upgrader
	log      *zap.Logger
	snapshot SnapshotFunc

	mu      sync.RWMutex
	clients map[*client]struct{}
}

// NewHub cria o Hub com política de origem customizada
func NewHub(log *zap.Logger, allowOrigin func(r *http.Request) bool, snapshot SnapshotFunc) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{CheckOrigin: allowOrigin},
		log:      log,
		snapshot: snapshot,
		clients:  make(map[*client]struct{}),
	}
}

// HandleWS registra a conexão, envia a visão atual e responde pings até o cliente sair
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	c := &client{conn: conn}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	defer func() {
		h.mu.Lock()
		delete(h.clients, c)
		h.mu.Unlock()
	}()

	if h.snapshot != nil {
		b, err := h.snapshot()
		if err != nil {
			h.log.Warn("ws snapshot", zap.Error(err))
		} else if err := c.write(b); err != nil {
			return
		}
	}

	for {
		var msg ClientMsg
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		if msg.Type == "ping" {
			b, _ := json.Marshal(map[string]string{"type": "pong"})
			if err := c.write(b); err != nil {
				return
			}
		}
	}
}

// Broadcast envia o payload para todos os clientes conectados
func (h *Hub) Broadcast(payload []byte) {
	h.mu.RLock()
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		if err := c.write(payload); err != nil {
			h.log.Debug("ws write", zap.Error(err))
		}
	}
}

// Clients retorna o número de conexões ativas
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
