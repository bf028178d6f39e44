package ws

import (
	"sort"
	"sync"
)

// Subscriber abstracts a streaming client.
type Subscriber interface {
	Send([]byte) error
	Close()
}

// Hub fans insight payloads out to subscribers grouped by site ID.
type Hub struct {
	mu        sync.RWMutex
	clients   map[string]map[Subscriber]struct{}
	register  chan subscription
	unreg     chan subscription
	broadcast chan message
}

type message struct {
	siteID  string
	payload []byte
}

type subscription struct {
	siteID string
	client Subscriber
}

// NewHub creates an initialized Hub.
func NewHub() *Hub {
	h := &Hub{
		clients:   make(map[string]map[Subscriber]struct{}),
		register:  make(chan subscription),
		unreg:     make(chan subscription),
		broadcast: make(chan message),
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	for {
		select {
		case sub := <-h.register:
			h.mu.Lock()
			if _, ok := h.clients[sub.siteID]; !ok {
				h.clients[sub.siteID] = make(map[Subscriber]struct{})
			}
			h.clients[sub.siteID][sub.client] = struct{}{}
			h.mu.Unlock()
		case sub := <-h.unreg:
			h.mu.Lock()
			h.remove(sub.siteID, sub.client)
			h.mu.Unlock()
		case msg := <-h.broadcast:
			h.mu.RLock()
			targets := make([]Subscriber, 0, len(h.clients[msg.siteID]))
			for c := range h.clients[msg.siteID] {
				targets = append(targets, c)
			}
			h.mu.RUnlock()
			for _, c := range targets {
				if err := c.Send(msg.payload); err != nil {
					c.Close()
					h.mu.Lock()
					h.remove(msg.siteID, c)
					h.mu.Unlock()
				}
			}
		}
	}
}

// remove must be called with mu held.
func (h *Hub) remove(siteID string, client Subscriber) {
	clients, ok := h.clients[siteID]
	if !ok {
		return
	}
	delete(clients, client)
	if len(clients) == 0 {
		delete(h.clients, siteID)
	}
}

// Register adds a client to a site stream.
func (h *Hub) Register(siteID string, client Subscriber) {
	h.register <- subscription{siteID: siteID, client: client}
}

// Unregister removes a client.
func (h *Hub) Unregister(siteID string, client Subscriber) {
	h.unreg <- subscription{siteID: siteID, client: client}
}

// Broadcast sends payload to all clients of a site.
func (h *Hub) Broadcast(siteID string, payload []byte) {
	h.broadcast <- message{siteID: siteID, payload: payload}
}

// Topics lists the site IDs that currently have at least one subscriber.
func (h *Hub) Topics() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]string, 0, len(h.clients))
	for siteID := range h.clients {
		out = append(out, siteID)
	}
	sort.Strings(out)
	return out
}
