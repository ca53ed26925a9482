package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/kode4food/sequin/internal/events"
	"github.com/kode4food/sequin/pkg/api"
	"github.com/kode4food/sequin/pkg/log"
)

// Client represents a WebSocket client connection for event streaming. A new
// client receives every run event until it sends a subscribe message
type Client struct {
	conn      *websocket.Conn
	consumer  events.Consumer
	filter    api.ClientSubscription
	onClose   func(*Client)
	closeOnce sync.Once
}

const (
	writeWait          = 10 * time.Second
	pongWait           = 60 * time.Second
	pingPeriod         = (pongWait * 9) / 10
	maxMessageSize     = 512
	wsBufferSize       = 1024
	incomingBufferSize = 16
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  wsBufferSize,
	WriteBufferSize: wsBufferSize,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// HandleWebSocket upgrades an HTTP connection to WebSocket and starts
// streaming run events from hub
func HandleWebSocket(hub *events.Hub, w http.ResponseWriter, r *http.Request) {
	if client := upgrade(hub, w, r); client != nil {
		go client.run()
	}
}

func (s *Server) handleWebSocket(c *gin.Context) {
	client := upgrade(s.hub, c.Writer, c.Request)
	if client == nil {
		return
	}
	client.onClose = s.unregisterWebSocket
	s.registerWebSocket(client)
	go client.run()
}

// upgrade subscribes to hub before completing the handshake, so a client
// sees every event published after its connection is established
func upgrade(hub *events.Hub, w http.ResponseWriter, r *http.Request) *Client {
	consumer := hub.NewConsumer()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		consumer.Close()
		slog.Error("WebSocket upgrade failed",
			log.Error(err))
		return nil
	}
	return &Client{
		conn:     conn,
		consumer: consumer,
	}
}

// Close ends the connection and releases the event consumer
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		c.consumer.Close()
		_ = c.conn.Close()
		if c.onClose != nil {
			c.onClose(c)
		}
	})
}

func (c *Client) run() {
	defer c.Close()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	incoming := make(chan []byte, incomingBufferSize)
	go c.readMessages(incoming)

	for {
		select {
		case message, ok := <-incoming:
			if !ok {
				return
			}
			c.handleSubscribe(message)

		case event, ok := <-c.consumer.Receive():
			if !ok {
				_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if !c.sendEventIfMatched(event) {
				return
			}

		case <-ticker.C:
			if !c.sendPing() {
				return
			}
		}
	}
}

func (c *Client) readMessages(incoming chan []byte) {
	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			close(incoming)
			return
		}
		incoming <- message
	}
}

func (c *Client) handleSubscribe(message []byte) {
	var sub api.SubscribeRequest
	if err := json.Unmarshal(message, &sub); err != nil {
		slog.Error("Failed to parse WebSocket message",
			log.Error(err))
		return
	}

	if sub.Type != "subscribe" {
		return
	}
	c.filter = sub.Data
}

func (c *Client) sendEventIfMatched(event *api.RunEvent) bool {
	if !c.filter.Matches(event) {
		return true
	}

	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteJSON(event); err != nil {
		slog.Error("WebSocket write failed",
			log.Error(err))
		return false
	}
	return true
}

func (c *Client) sendPing() bool {
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	err := c.conn.WriteMessage(websocket.PingMessage, nil)
	return err == nil
}
