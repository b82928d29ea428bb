package services

import (
	"context"
	"database/sql"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/isdelr/folio-api/internal/auth"
	"github.com/isdelr/folio-api/internal/database"
	"github.com/isdelr/folio-api/internal/models"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testImage = "https://example.test/default.png"

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(context.Background(), db))
	return db
}

func newTestHasher() *auth.PasswordHasher {
	return auth.NewPasswordHasher(bcrypt.MinCost)
}

// recordingEvents is an in-memory EventServiceProvider.
type recordingEvents struct {
	mu     sync.Mutex
	events []models.Event
}

func (r *recordingEvents) Record(_ context.Context, userID, eventType, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, models.Event{UserID: userID, Type: eventType, Message: message})
}

func (r *recordingEvents) GetRecentEvents(context.Context, string, int) ([]models.Event, error) {
	return nil, nil
}

func (r *recordingEvents) PruneBefore(context.Context, time.Time) (int64, error) { return 0, nil }

func (r *recordingEvents) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}
