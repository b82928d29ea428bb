package handlers

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/isdelr/folio-api/internal/auth"
	"github.com/isdelr/folio-api/internal/models"
	"github.com/isdelr/folio-api/internal/services"
	"github.com/isdelr/folio-api/internal/storage"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// profileImageField is the multipart field carrying the uploaded image.
const profileImageField = "profileImage"

// UserHandler handles HTTP requests for the authenticated user's profile.
type UserHandler struct {
	users          services.UserServiceProvider
	events         services.EventServiceProvider
	storage        storage.Storage
	maxUploadBytes int64
	validate       *validator.Validate
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(users services.UserServiceProvider, events services.EventServiceProvider, store storage.Storage, maxUploadBytes int64) *UserHandler {
	return &UserHandler{
		users:          users,
		events:         events,
		storage:        store,
		maxUploadBytes: maxUploadBytes,
		validate:       newValidator(),
	}
}

// UpdatePayload defines the structure for profile updates. Any userId sent
// by the client is ignored; the token decides whose profile changes.
type UpdatePayload struct {
	FirstName *string `json:"firstName" validate:"omitempty"`
	Email     *string `json:"email" validate:"omitempty,email"`
	Password  *string `json:"password" validate:"omitempty"`
}

func userField(id string) func(*zerolog.Event) *zerolog.Event {
	return func(e *zerolog.Event) *zerolog.Event { return e.Str("user_id", id) }
}

// currentUserID reads the ID RequireAuth stored on the request.
func currentUserID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		log.Error().Str("path", r.URL.Path).Msg("Could not retrieve user ID from context")
		writeMessage(w, http.StatusUnauthorized, "Authentication token missing")
	}
	return id, ok
}

// Profile returns the authenticated user.
func (h *UserHandler) Profile(w http.ResponseWriter, r *http.Request) {
	id, ok := currentUserID(w, r)
	if !ok {
		return
	}

	user, err := h.users.GetUserByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, err, userField(id), "Profile fetch failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"user": user})
}

// Update handles partial updates of the authenticated user's profile.
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := currentUserID(w, r)
	if !ok {
		return
	}

	var payload UpdatePayload
	if !decodeJSON(w, r, &payload) {
		return
	}
	if err := h.validate.Struct(&payload); err != nil {
		writeMessage(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	user, err := h.users.UpdateUser(r.Context(), id, services.UserUpdate{
		FirstName: payload.FirstName,
		Email:     payload.Email,
		Password:  payload.Password,
	})
	if err != nil {
		writeServiceError(w, err, userField(id), "Profile update failed")
		return
	}

	h.events.Record(r.Context(), id, models.EventUpdate, "Profile updated.")
	writeJSON(w, http.StatusOK, user)
}

// UploadProfileImage stores a new profile image for the authenticated user.
func (h *UserHandler) UploadProfileImage(w http.ResponseWriter, r *http.Request) {
	id, ok := currentUserID(w, r)
	if !ok {
		return
	}

	// Leave room for the multipart envelope around the file itself.
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+1<<20)
	file, _, err := r.FormFile(profileImageField)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeMessage(w, http.StatusBadRequest, "Image is too large")
			return
		}
		writeMessage(w, http.StatusBadRequest, "No image uploaded")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.maxUploadBytes+1))
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "No image uploaded")
		return
	}
	if len(data) == 0 {
		writeMessage(w, http.StatusBadRequest, "No image uploaded")
		return
	}
	if int64(len(data)) > h.maxUploadBytes {
		writeMessage(w, http.StatusBadRequest, "Image is too large")
		return
	}
	contentType, err := storage.SniffImage(data)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Only image uploads are allowed")
		return
	}

	// Refuse before storing anything so unknown users leave no orphaned files.
	if _, err := h.users.GetUserByID(r.Context(), id); err != nil {
		writeServiceError(w, err, userField(id), "Profile image upload failed")
		return
	}

	path, err := h.storage.Save(r.Context(), contentType, bytes.NewReader(data))
	if err != nil {
		writeServiceError(w, err, userField(id), "Failed to store profile image")
		return
	}

	if _, err := h.users.SetProfileImage(r.Context(), id, path); err != nil {
		writeServiceError(w, err, userField(id), "Profile image upload failed")
		return
	}

	h.events.Record(r.Context(), id, models.EventProfileImage, "Profile image updated.")
	writeJSON(w, http.StatusOK, map[string]string{
		"message":      "Profile image updated successfully",
		"profileImage": path,
	})
}

// Activity returns the authenticated user's recent events.
func (h *UserHandler) Activity(w http.ResponseWriter, r *http.Request) {
	id, ok := currentUserID(w, r)
	if !ok {
		return
	}

	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 || limit > 100 {
		limit = 20 // Default limit
	}

	events, err := h.events.GetRecentEvents(r.Context(), id, limit)
	if err != nil {
		writeServiceError(w, err, userField(id), "Failed to retrieve events")
		return
	}

	writeJSON(w, http.StatusOK, events)
}
