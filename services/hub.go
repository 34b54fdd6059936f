package services

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Hub fans game lifecycle events out to connected websocket clients
// (dashboards, dev tooling). It also implements DeliverySink so posted
// questions and results reach live viewers.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	mutex      sync.RWMutex
}

type Client struct {
	hub    *Hub
	socket *websocket.Conn
	send   chan []byte
}

type Event struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = true
			h.mutex.Unlock()
			log.Printf("Hub client connected - total clients: %d", h.clientCount())

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mutex.Unlock()

		case message := <-h.broadcast:
			h.mutex.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					close(client.send)
					delete(h.clients, client)
				}
			}
			h.mutex.Unlock()
		}
	}
}

func (h *Hub) clientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// Broadcast sends a typed event to every connected client.
func (h *Hub) Broadcast(eventType string, payload interface{}) {
	data, err := json.Marshal(Event{Type: eventType, Payload: payload})
	if err != nil {
		log.Printf("Error marshaling hub event: %v", err)
		return
	}
	h.broadcast <- data
}

// RegisterClient attaches an upgraded websocket connection to the hub.
func (h *Hub) RegisterClient(conn *websocket.Conn) {
	client := &Client{
		hub:    h,
		socket: conn,
		send:   make(chan []byte, 256),
	}
	h.register <- client

	go client.writePump()
	go client.readPump()
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.socket.Close()
	}()

	for {
		// Clients are listen-only; reads just detect disconnects.
		if _, _, err := c.socket.ReadMessage(); err != nil {
			break
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.socket.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				c.socket.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.socket.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.socket.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// --- DeliverySink ---

func (h *Hub) PostMessage(_ context.Context, channelID, content string) (*MessageRef, error) {
	ref := &MessageRef{ChannelID: channelID, MessageID: uuid.NewString()}
	h.Broadcast("message", map[string]string{
		"channel_id": channelID,
		"message_id": ref.MessageID,
		"content":    content,
	})
	return ref, nil
}

func (h *Hub) CreateThread(_ context.Context, ref *MessageRef, name string) (string, error) {
	threadID := uuid.NewString()
	h.Broadcast("thread", map[string]string{
		"channel_id": ref.ChannelID,
		"message_id": ref.MessageID,
		"thread_id":  threadID,
		"name":       name,
	})
	return threadID, nil
}
