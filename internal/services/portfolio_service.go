package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/isdelr/folio-api/internal/models"
)

// PortfolioServiceProvider defines the interface for portfolio services.
type PortfolioServiceProvider interface {
	CreateItem(ctx context.Context, userID string, in PortfolioInput) (models.PortfolioItem, error)
	ListByUser(ctx context.Context, userID string) ([]models.PortfolioItem, error)
}

// PortfolioInput is the client-provided content of a portfolio item.
type PortfolioInput struct {
	Title        string
	Description  string
	Technologies []string
	DemoLink     string
	GithubLink   string
}

// PortfolioService provides business logic for portfolio items.
type PortfolioService struct {
	db     *sql.DB
	users  UserServiceProvider
	events EventServiceProvider
}

// NewPortfolioService creates a new PortfolioService.
func NewPortfolioService(db *sql.DB, users UserServiceProvider, events EventServiceProvider) *PortfolioService {
	return &PortfolioService{db: db, users: users, events: events}
}

// CreateItem adds a portfolio item owned by userID.
func (s *PortfolioService) CreateItem(ctx context.Context, userID string, in PortfolioInput) (models.PortfolioItem, error) {
	techs := make([]string, 0, len(in.Technologies))
	for _, t := range in.Technologies {
		if t = strings.TrimSpace(t); t != "" {
			techs = append(techs, t)
		}
	}
	if strings.TrimSpace(in.Title) == "" || strings.TrimSpace(in.Description) == "" || len(techs) == 0 {
		return models.PortfolioItem{}, fmt.Errorf("%w: All fields are required.", ErrValidation)
	}

	// The foreign key would reject an unknown owner too, but this yields a 404 instead of a 500.
	if _, err := s.users.GetUserByID(ctx, userID); err != nil {
		return models.PortfolioItem{}, err
	}

	now := time.Now().UTC()
	item := models.PortfolioItem{
		ID:           uuid.New().String(),
		UserID:       userID,
		Title:        in.Title,
		Description:  in.Description,
		Technologies: techs,
		DemoLink:     in.DemoLink,
		GithubLink:   in.GithubLink,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := item.PrepareForSave(); err != nil {
		return models.PortfolioItem{}, fmt.Errorf("encode technologies: %w", err)
	}

	const query = `
		INSERT INTO portfolio_items(id, user_id, title, description, technologies_json,
		                            demo_link, github_link, created_at, updated_at)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query,
		item.ID, item.UserID, item.Title, item.Description, item.TechnologiesJSON,
		nullable(item.DemoLink), nullable(item.GithubLink), item.CreatedAt, item.UpdatedAt)
	if err != nil {
		return models.PortfolioItem{}, fmt.Errorf("failed to add portfolio item: %w", err)
	}

	s.events.Record(ctx, userID, models.EventPortfolioAdd, fmt.Sprintf("Added portfolio item '%s'.", item.Title))
	return item, nil
}

// ListByUser returns a user's portfolio items, newest first.
func (s *PortfolioService) ListByUser(ctx context.Context, userID string) ([]models.PortfolioItem, error) {
	const query = `
		SELECT id, user_id, title, description, technologies_json, demo_link, github_link, created_at, updated_at
		FROM portfolio_items WHERE user_id = ? ORDER BY created_at DESC, id`
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []models.PortfolioItem{}
	for rows.Next() {
		var item models.PortfolioItem
		var demo, github sql.NullString
		if err := rows.Scan(&item.ID, &item.UserID, &item.Title, &item.Description, &item.TechnologiesJSON,
			&demo, &github, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, err
		}
		item.DemoLink = demo.String
		item.GithubLink = github.String
		if err := item.PrepareForAPI(); err != nil {
			return nil, fmt.Errorf("decode technologies for %s: %w", item.ID, err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
