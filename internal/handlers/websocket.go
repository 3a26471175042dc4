package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"blackjack-pool-backend/internal/models"
	"blackjack-pool-backend/internal/services"
)

const (
	MessagePing          = "PING"
	MessagePong          = "PONG"
	MessagePoolUpdate    = "POOL_UPDATE"
	MessageSessionUpdate = "SESSION_UPDATE"
	MessageBalanceUpdate = "BALANCE_UPDATE"

	writeWait  = 10 * time.Second
	sendBuffer = 32
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type Message struct {
	Type   string      `json:"type"`
	UserID string      `json:"user_id,omitempty"`
	Data   interface{} `json:"data"`
}

type Client struct {
	UserID string
	conn   *websocket.Conn
	send   chan *Message
}

// envelope addresses one connection rather than every connection of a user.
type envelope struct {
	client  *Client
	message *Message
}

// WebSocketHub fans engine events out to connected clients. It implements
// services.Broadcaster; a message without a UserID goes to everyone.
type WebSocketHub struct {
	clients    map[string]map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	broadcast  chan *Message
	direct     chan envelope
	done       chan struct{}
	logger     zerolog.Logger
}

func NewWebSocketHub(logger zerolog.Logger) *WebSocketHub {
	return &WebSocketHub{
		clients:    make(map[string]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *Message, 100),
		direct:     make(chan envelope, 100),
		done:       make(chan struct{}),
		logger:     logger.With().Str("component", "websocket_hub").Logger(),
	}
}

// Run owns the client map until ctx is cancelled. Only Run sends on or
// closes a client's send channel.
func (hub *WebSocketHub) Run(ctx context.Context) error {
	for {
		select {
		case client := <-hub.register:
			if hub.clients[client.UserID] == nil {
				hub.clients[client.UserID] = make(map[*Client]struct{})
			}
			hub.clients[client.UserID][client] = struct{}{}
			hub.logger.Debug().Str("user_id", client.UserID).Msg("client registered")

		case client := <-hub.unregister:
			hub.remove(client)

		case message := <-hub.broadcast:
			hub.broadcastMessage(message)

		case env := <-hub.direct:
			if _, ok := hub.clients[env.client.UserID][env.client]; ok {
				hub.deliver(env.client, env.message)
			}

		case <-ctx.Done():
			close(hub.done)
			for _, clients := range hub.clients {
				for client := range clients {
					hub.remove(client)
				}
			}
			return nil
		}
	}
}

func (hub *WebSocketHub) remove(client *Client) {
	clients, ok := hub.clients[client.UserID]
	if !ok {
		return
	}
	if _, ok := clients[client]; !ok {
		return
	}
	delete(clients, client)
	if len(clients) == 0 {
		delete(hub.clients, client.UserID)
	}
	close(client.send)
	hub.logger.Debug().Str("user_id", client.UserID).Msg("client unregistered")
}

func (hub *WebSocketHub) deliver(client *Client, message *Message) {
	select {
	case client.send <- message:
	default:
		// slow consumer
		hub.remove(client)
	}
}

func (hub *WebSocketHub) broadcastMessage(message *Message) {
	if message.UserID != "" {
		for client := range hub.clients[message.UserID] {
			hub.deliver(client, message)
		}
		return
	}
	for _, clients := range hub.clients {
		for client := range clients {
			hub.deliver(client, message)
		}
	}
}

// sendTo queues a message for a single connection. It is dropped if the
// connection has already been removed.
func (hub *WebSocketHub) sendTo(client *Client, message *Message) {
	select {
	case hub.direct <- envelope{client: client, message: message}:
	default:
		hub.logger.Warn().Str("type", message.Type).Msg("direct queue full, dropping message")
	}
}

func (hub *WebSocketHub) publish(message *Message) {
	select {
	case hub.broadcast <- message:
	default:
		hub.logger.Warn().Str("type", message.Type).Msg("broadcast queue full, dropping message")
	}
}

func (hub *WebSocketHub) BroadcastPoolUpdate(pool models.Pool) {
	hub.publish(&Message{Type: MessagePoolUpdate, Data: pool})
}

func (hub *WebSocketHub) BroadcastSessionUpdate(userID string, view models.SessionView) {
	hub.publish(&Message{Type: MessageSessionUpdate, UserID: userID, Data: view})
}

var _ services.Broadcaster = (*WebSocketHub)(nil)

type WebSocketHandler struct {
	gameEngine *services.GameEngine
	hub        *WebSocketHub
	logger     zerolog.Logger
}

func NewWebSocketHandler(gameEngine *services.GameEngine, hub *WebSocketHub, logger zerolog.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		gameEngine: gameEngine,
		hub:        hub,
		logger:     logger.With().Str("component", "websocket").Logger(),
	}
}

func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	userID := c.GetString("user_id")

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("failed to upgrade to websocket")
		return
	}

	client := &Client{
		UserID: userID,
		conn:   conn,
		send:   make(chan *Message, sendBuffer),
	}

	select {
	case h.hub.register <- client:
	case <-h.hub.done:
		conn.Close()
		return
	}
	go h.writePump(client)

	defer func() {
		select {
		case h.hub.unregister <- client:
		case <-h.hub.done:
		}
		conn.Close()
	}()

	h.sendSnapshot(c.Request.Context(), client)

	for {
		var msg Message
		err := conn.ReadJSON(&msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Warn().Err(err).Str("user_id", userID).Msg("websocket read failed")
			}
			break
		}

		h.handleMessage(client, &msg)
	}
}

func (h *WebSocketHandler) handleMessage(client *Client, msg *Message) {
	switch msg.Type {
	case MessagePing:
		h.hub.sendTo(client, &Message{
			Type: MessagePong,
			Data: gin.H{"timestamp": time.Now().Unix()},
		})
	}
}

// sendSnapshot gives a new connection the current balance and pool.
func (h *WebSocketHandler) sendSnapshot(ctx context.Context, client *Client) {
	balance, err := h.gameEngine.Balance(ctx, client.UserID)
	if err != nil {
		h.logger.Warn().Err(err).Msg("failed to get balance for websocket")
	} else {
		h.hub.sendTo(client, &Message{Type: MessageBalanceUpdate, Data: balance})
	}

	pool, err := h.gameEngine.GetPool(ctx)
	if err != nil {
		h.logger.Warn().Err(err).Msg("failed to get pool for websocket")
		return
	}
	h.hub.sendTo(client, &Message{Type: MessagePoolUpdate, Data: pool})
}

func (h *WebSocketHandler) writePump(client *Client) {
	for msg := range client.send {
		client.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := client.conn.WriteJSON(msg); err != nil {
			h.logger.Debug().Err(err).Str("user_id", client.UserID).Msg("websocket write failed")
			client.conn.Close()
			return
		}
	}
	client.conn.WriteControl(websocket.CloseMessage, []byte{}, time.Now().Add(writeWait))
}
