package models

import "time"

// Event types recorded in a user's activity log.
const (
	EventSignup       = "user.signup"
	EventLogin        = "user.login"
	EventUpdate       = "user.update"
	EventProfileImage = "user.image"
	EventPortfolioAdd = "portfolio.add"
)

// Event represents an entry in a user's activity log.
type Event struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Type      string    `json:"type"` // e.g., "user.login", "portfolio.add"
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}
