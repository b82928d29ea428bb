package websocket

import "encoding/json"

// Message defines the structure for websocket messages.
type Message struct {
	Action  string `json:"action"`
	Payload any    `json:"payload"`
}

// NewWelcomeMessage is sent once when a client subscribes.
func NewWelcomeMessage(userID string) []byte {
	b, _ := json.Marshal(Message{Action: "subscribed", Payload: map[string]string{"userId": userID}})
	return b
}
