package resident

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a resident does not exist or has been
// discharged.
var ErrNotFound = errors.New("resident not found")

type Repository interface {
	Create(ctx context.Context, r *Resident) error
	GetByID(ctx context.Context, id uuid.UUID) (*Resident, error)
	GetByRoom(ctx context.Context, room string) (*Resident, error)
	Update(ctx context.Context, r *Resident) error
	// Discharge marks a resident inactive; records are retained for history.
	Discharge(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, activeOnly bool, limit, offset int) ([]*Resident, int, error)
	// ListActive returns every active resident without pagination, for the
	// periodic monitoring jobs.
	ListActive(ctx context.Context) ([]*Resident, error)
}
