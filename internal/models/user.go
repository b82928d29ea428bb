package models

import "time"

// User represents an account holder and their public profile.
type User struct {
	ID           string    `json:"_id"`
	FirstName    string    `json:"firstName"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // Never expose this to the client
	ProfileImage string    `json:"profileImage"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Sanitized returns a copy of the user that is safe to serialize.
func (u User) Sanitized() User {
	u.PasswordHash = ""
	return u
}
