package vitals

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when no vitals record matches.
var ErrNotFound = errors.New("vitals record not found")

type Repository interface {
	Create(ctx context.Context, v *Vitals) error
	GetByID(ctx context.Context, id uuid.UUID) (*Vitals, error)
	ListByResident(ctx context.Context, residentID uuid.UUID, limit, offset int) ([]*Vitals, int, error)
	// Latest returns the most recent reading for a resident, or ErrNotFound
	// if none has ever been recorded.
	Latest(ctx context.Context, residentID uuid.UUID) (*Vitals, error)
	// LatestTimestamp returns nil when the resident has never been checked.
	LatestTimestamp(ctx context.Context, residentID uuid.UUID) (*time.Time, error)
	CountSince(ctx context.Context, residentID uuid.UUID, since time.Time) (int, error)
	CountAllSince(ctx context.Context, since time.Time) (int, error)
}
