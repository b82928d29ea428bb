package websocket

import "github.com/rs/zerolog/log"

type userMessage struct {
	userID  string
	message []byte
}

// Hub maintains the set of active clients and routes each user's activity
// events to that user's connections.
type Hub struct {
	// Registered clients, grouped by the user they belong to.
	subscriptions map[string]map[*Client]bool

	// Register requests from the clients.
	Register chan *Client

	// Unregister requests from clients.
	Unregister chan *Client

	publish chan userMessage
	done    chan struct{}
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		subscriptions: make(map[string]map[*Client]bool),
		Register:      make(chan *Client),
		Unregister:    make(chan *Client),
		publish:       make(chan userMessage, 64),
		done:          make(chan struct{}),
	}
}

// Run starts the Hub's message processing loop. It returns after Stop.
func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			for _, subs := range h.subscriptions {
				for client := range subs {
					close(client.Send)
				}
			}
			h.subscriptions = make(map[string]map[*Client]bool)
			return
		case client := <-h.Register:
			h.add(client)
			log.Info().Str("user_id", client.UserID).Msg("Activity client connected")
		case client := <-h.Unregister:
			if h.remove(client) {
				log.Info().Str("user_id", client.UserID).Msg("Activity client disconnected")
			}
		case m := <-h.publish:
			h.deliver(m)
		}
	}
}

// Stop ends Run and closes every client's send channel.
func (h *Hub) Stop() {
	close(h.done)
}

// PublishTo queues message for every connection of userID. It never blocks
// the caller once the hub has stopped.
func (h *Hub) PublishTo(userID string, message []byte) {
	select {
	case h.publish <- userMessage{userID: userID, message: message}:
	case <-h.done:
	}
}

func (h *Hub) add(client *Client) {
	if h.subscriptions[client.UserID] == nil {
		h.subscriptions[client.UserID] = make(map[*Client]bool)
	}
	h.subscriptions[client.UserID][client] = true
}

func (h *Hub) deliver(m userMessage) {
	for client := range h.subscriptions[m.userID] {
		select {
		case client.Send <- m.message:
		default:
			// Slow consumer; drop it rather than stall every publisher.
			h.remove(client)
		}
	}
}

func (h *Hub) remove(client *Client) bool {
	subs, ok := h.subscriptions[client.UserID]
	if !ok || !subs[client] {
		return false
	}
	delete(subs, client)
	close(client.Send)
	if len(subs) == 0 {
		delete(h.subscriptions, client.UserID)
	}
	return true
}
