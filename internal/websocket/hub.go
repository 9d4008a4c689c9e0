package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/highscore-api/internal/domain"
)

// Message types
const (
	MessageTypeTopUpdate    = "top_update"
	MessageTypeSubscribe    = "subscribe"
	MessageTypeUnsubscribe  = "unsubscribe"
	MessageTypeSubscribed   = "subscribed"
	MessageTypeUnsubscribed = "unsubscribed"
	MessageTypePing         = "ping"
	MessageTypePong         = "pong"
	MessageTypeError        = "error"
)

// Message is a frame sent to clients
type Message struct {
	Type      string    `json:"type"`
	Project   string    `json:"project,omitempty"`
	Data      any       `json:"data,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// TopUpdate carries the current top scores of a project
type TopUpdate struct {
	Project string             `json:"project"`
	Entries []domain.HighScore `json:"entries"`
}

type subscription struct {
	client  *Client
	project string
}

// Hub tracks connected clients and their project subscriptions
type Hub struct {
	// subscribers by project name
	projects map[string]map[*Client]struct{}
	clients  map[*Client]struct{}

	register    chan *Client
	unregister  chan *Client
	subscribe   chan subscription
	unsubscribe chan subscription
	broadcast   chan *Message

	mu     sync.RWMutex
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

// NewHub creates a new Hub
func NewHub(logger *slog.Logger) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		projects:    make(map[string]map[*Client]struct{}),
		clients:     make(map[*Client]struct{}),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		subscribe:   make(chan subscription, 64),
		unsubscribe: make(chan subscription, 64),
		broadcast:   make(chan *Message, 256),
		logger:      logger,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Run processes hub events until Stop is called
func (h *Hub) Run() {
	h.logger.Info("live hub started")
	for {
		select {
		case <-h.ctx.Done():
			h.closeAll()
			h.logger.Info("live hub stopped")
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = struct{}{}
			h.mu.Unlock()
			h.logger.Debug("client registered", "client_id", client.id)

		case client := <-h.unregister:
			h.remove(client)

		case sub := <-h.subscribe:
			h.mu.Lock()
			if _, ok := h.clients[sub.client]; ok {
				if h.projects[sub.project] == nil {
					h.projects[sub.project] = make(map[*Client]struct{})
				}
				h.projects[sub.project][sub.client] = struct{}{}
			}
			h.mu.Unlock()
			h.logger.Debug("client subscribed", "client_id", sub.client.id, "project", sub.project)

		case sub := <-h.unsubscribe:
			h.mu.Lock()
			h.dropSubscription(sub.client, sub.project)
			h.mu.Unlock()

		case message := <-h.broadcast:
			h.deliver(message)
		}
	}
}

// Stop stops the hub and closes every client connection
func (h *Hub) Stop() {
	h.cancel()
}

// BroadcastTop pushes the top scores of a project to its subscribers.
// The update is dropped if the hub is backed up.
func (h *Hub) BroadcastTop(project string, entries []domain.HighScore) {
	message := &Message{
		Type:      MessageTypeTopUpdate,
		Project:   project,
		Data:      TopUpdate{Project: project, Entries: entries},
		Timestamp: time.Now(),
	}

	select {
	case h.broadcast <- message:
	default:
		h.logger.Warn("broadcast channel full, dropping update", "project", project)
	}
}

// Register adds a client to the hub
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.ctx.Done():
	}
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.ctx.Done():
	}
}

// Subscribe adds a client to a project's subscribers
func (h *Hub) Subscribe(client *Client, project string) {
	select {
	case h.subscribe <- subscription{client: client, project: project}:
	case <-h.ctx.Done():
	}
}

// Unsubscribe removes a client from a project's subscribers
func (h *Hub) Unsubscribe(client *Client, project string) {
	select {
	case h.unsubscribe <- subscription{client: client, project: project}:
	case <-h.ctx.Done():
	}
}

// SubscriberCount returns the number of subscribers of a project
func (h *Hub) SubscriberCount(project string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.projects[project])
}

// ConnectionCount returns the number of connected clients
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) deliver(message *Message) {
	data, err := json.Marshal(message)
	if err != nil {
		h.logger.Error("failed to marshal message", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.projects[message.Project] {
		select {
		case client.send <- data:
		default:
			h.logger.Warn("client buffer full, skipping", "client_id", client.id)
		}
	}
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	for project := range h.projects {
		h.dropSubscription(client, project)
	}
	close(client.send)
	h.logger.Debug("client unregistered", "client_id", client.id)
}

// dropSubscription must be called with mu held
func (h *Hub) dropSubscription(client *Client, project string) {
	subscribers, ok := h.projects[project]
	if !ok {
		return
	}
	delete(subscribers, client)
	if len(subscribers) == 0 {
		delete(h.projects, project)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		client.conn.Close()
	}
	h.clients = make(map[*Client]struct{})
	h.projects = make(map[string]map[*Client]struct{})
}
