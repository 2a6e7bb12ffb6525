package chat

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"garagist/internal/ai"
	"garagist/internal/cars"
	"garagist/internal/complaints"
)

var (
	ErrNotFound      = errors.New("chat session not found")
	ErrSessionClosed = errors.New("chat session is closed")
	ErrSessionActive = errors.New("chat session is already active")
)

// Session is one conversation scoped to exactly one complaint.
type Session struct {
	ID          int64
	PublicID    uuid.UUID
	ComplaintID int64
	Title       string
	Active      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
	ClosedAt    *time.Time
}

// Turn is one message within a session. Turns are immutable once created
// and strictly ordered by creation time.
type Turn struct {
	ID        int64
	SessionID int64
	Role      ai.Role
	Text      string
	CreatedAt time.Time
}

type SessionFilter struct {
	ComplaintID int64
	CustomerID  int64
	Active      *bool
}

// Repo — persistence for sessions and turns.
type Repo interface {
	CreateSession(ctx context.Context, s *Session) error
	GetSession(ctx context.Context, id int64) (*Session, error)
	ListSessions(ctx context.Context, f SessionFilter) ([]Session, error)
	// SetSessionActive closes or reopens a session; closing stamps
	// closed_at, reopening clears it.
	SetSessionActive(ctx context.Context, id int64, active bool) error
	AppendTurn(ctx context.Context, sessionID int64, role ai.Role, text string) (*Turn, error)
	// ListTurns returns turns oldest-first. A limit > 0 keeps only the
	// most recent limit turns (still oldest-first).
	ListTurns(ctx context.Context, sessionID int64, limit int) ([]Turn, error)
	CountTurns(ctx context.Context, sessionID int64) (int, error)
}

// VehicleReader is the read-only vehicle projection the context builder
// needs. Satisfied by cars.Repo.
type VehicleReader interface {
	Summary(ctx context.Context, carID int64) (*cars.Summary, error)
}

// ComplaintReader is the read-only complaint view the context builder
// needs. Satisfied by complaints.Repo.
type ComplaintReader interface {
	Get(ctx context.Context, id int64) (*complaints.Complaint, error)
	ListByCar(ctx context.Context, carID, excludeID int64, limit int) ([]complaints.Complaint, error)
}
