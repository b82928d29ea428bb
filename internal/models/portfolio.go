package models

import (
	"encoding/json"
	"time"
)

// PortfolioItem is a single project shown on a user's portfolio.
type PortfolioItem struct {
	ID           string   `json:"_id"`
	UserID       string   `json:"user"`
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Technologies []string `json:"technologies"`
	DemoLink     string   `json:"demoLink,omitempty"`
	GithubLink   string   `json:"githubLink,omitempty"`

	// JSON string field for DB storage
	TechnologiesJSON string `json:"-"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// PrepareForSave marshals Technologies into TechnologiesJSON for DB storage.
func (p *PortfolioItem) PrepareForSave() error {
	if p.Technologies == nil {
		p.Technologies = []string{}
	}
	b, err := json.Marshal(p.Technologies)
	if err != nil {
		return err
	}
	p.TechnologiesJSON = string(b)
	return nil
}

// PrepareForAPI unmarshals TechnologiesJSON back into Technologies.
func (p *PortfolioItem) PrepareForAPI() error {
	p.Technologies = []string{}
	if p.TechnologiesJSON == "" {
		return nil
	}
	return json.Unmarshal([]byte(p.TechnologiesJSON), &p.Technologies)
}
