package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/isdelr/folio-api/internal/services"
	"github.com/rs/zerolog"
)

// PortfolioHandler handles HTTP requests related to portfolio items.
type PortfolioHandler struct {
	service  services.PortfolioServiceProvider
	validate *validator.Validate
}

// NewPortfolioHandler creates a new PortfolioHandler.
func NewPortfolioHandler(service services.PortfolioServiceProvider) *PortfolioHandler {
	return &PortfolioHandler{service: service, validate: newValidator()}
}

// TechnologyList accepts either a JSON array of strings or a single
// comma-separated string, which is what the web form submits.
type TechnologyList []string

// UnmarshalJSON implements json.Unmarshaler.
func (t *TechnologyList) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*t = list
		return nil
	}
	var joined string
	if err := json.Unmarshal(data, &joined); err != nil {
		return err
	}
	*t = nil
	for _, part := range strings.Split(joined, ",") {
		if part = strings.TrimSpace(part); part != "" {
			*t = append(*t, part)
		}
	}
	return nil
}

// AddPortfolioPayload is the expected JSON body for creating a portfolio item.
// Ownership comes from the token; a userId field in the body is ignored.
type AddPortfolioPayload struct {
	Title        string         `json:"title" validate:"required"`
	Description  string         `json:"description" validate:"required"`
	Technologies TechnologyList `json:"technologies" validate:"required,min=1"`
	DemoLink     string         `json:"demoLink" validate:"omitempty,http_url"`
	GithubLink   string         `json:"githubLink" validate:"omitempty,http_url"`
}

// Add handles the request to create a new portfolio item.
func (h *PortfolioHandler) Add(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}

	var payload AddPortfolioPayload
	if !decodeJSON(w, r, &payload) {
		return
	}
	if err := h.validate.Struct(&payload); err != nil {
		writeMessage(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	item, err := h.service.CreateItem(r.Context(), userID, services.PortfolioInput{
		Title:        payload.Title,
		Description:  payload.Description,
		Technologies: payload.Technologies,
		DemoLink:     payload.DemoLink,
		GithubLink:   payload.GithubLink,
	})
	if err != nil {
		writeServiceError(w, err, userField(userID), "Failed to add portfolio item")
		return
	}

	writeJSON(w, http.StatusCreated, item)
}

// ListByUser handles the request to get all portfolio items of a user.
func (h *PortfolioHandler) ListByUser(w http.ResponseWriter, r *http.Request) {
	ownerID := chi.URLParam(r, "id")
	items, err := h.service.ListByUser(r.Context(), ownerID)
	if err != nil {
		writeServiceError(w, err, func(e *zerolog.Event) *zerolog.Event {
			return e.Str("owner_id", ownerID)
		}, "Failed to retrieve portfolio items")
		return
	}

	writeJSON(w, http.StatusOK, items)
}
