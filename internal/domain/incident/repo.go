package incident

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when an incident does not exist.
	ErrNotFound = errors.New("incident not found")
	// ErrNotClaimable is returned when claiming an incident that is not active.
	ErrNotClaimable = errors.New("incident is not available for claiming")
	// ErrNotResolvable is returned when resolving an incident that has not
	// been claimed.
	ErrNotResolvable = errors.New("incident must be claimed before resolving")
	// ErrForbidden is returned when an actor other than the claimer or an
	// admin attempts to resolve.
	ErrForbidden = errors.New("not authorized to resolve this incident")
	// ErrUpstreamUnavailable wraps transient failures of a collaborating
	// store, such as the resident directory being unreachable. Callers retry;
	// the incident itself was not touched.
	ErrUpstreamUnavailable = errors.New("upstream service unavailable")
)

// ListFilter narrows incident listings.
type ListFilter struct {
	Status     Status
	ResidentID uuid.UUID
	Type       Type
	Severity   Severity
	Start      time.Time
	End        time.Time
}

// ResolveParams carries everything needed to resolve a claimed incident.
type ResolveParams struct {
	ID          uuid.UUID
	ResolvedBy  string
	IsAdmin     bool
	Resolution  Resolution
	Notes       *string
	AdminAction *string
	ResolvedAt  time.Time
	// EmergencyServicesContacted is set when a true emergency had an admin
	// action recorded.
	EmergencyServicesContacted bool
}

// Stats aggregates incident figures over a reporting window.
type Stats struct {
	Total              int            `json:"total"`
	TrueEmergencies    int            `json:"true_emergencies"`
	FalseAlarms        int            `json:"false_alarms"`
	AvgResponseSeconds float64        `json:"avg_response_seconds"`
	CurrentActive      int            `json:"current_active"`
	TypeDistribution   map[string]int `json:"type_distribution"`
	Daily              []DailyCount   `json:"daily_incidents"`
}

// DailyCount is the number of incidents detected on a single day.
type DailyCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

type Repository interface {
	Create(ctx context.Context, i *Incident) error
	GetByID(ctx context.Context, id uuid.UUID) (*Incident, error)
	// Claim transitions an active incident to claimed in a single conditional
	// update; exactly one of N concurrent claims succeeds. Response time is
	// computed from the detection time in the same statement. Returns
	// ErrNotFound or ErrNotClaimable when the transition cannot happen.
	Claim(ctx context.Context, id uuid.UUID, caregiverID string, claimedAt time.Time) (*Incident, error)
	// Resolve transitions a claimed incident to resolved, enforcing that only
	// the claiming caregiver or an admin may do so.
	Resolve(ctx context.Context, p ResolveParams) (*Incident, error)
	MarkFamilyNotified(ctx context.Context, id uuid.UUID, at time.Time) error
	List(ctx context.Context, f ListFilter, limit, offset int) ([]*Incident, int, error)
	// ListByStatus returns the newest incidents in the given state.
	ListByStatus(ctx context.Context, status Status, limit int) ([]*Incident, error)
	// ListActiveOlderThan returns active incidents detected before the
	// cutoff, oldest first.
	ListActiveOlderThan(ctx context.Context, cutoff time.Time) ([]*Incident, error)
	// CountOpen counts incidents that are active or claimed.
	CountOpen(ctx context.Context) (int, error)
	CountByResidentSince(ctx context.Context, residentID uuid.UUID, since time.Time) (int, error)
	// Statistics aggregates figures for incidents detected since the given
	// time. CurrentActive is left for the caller to fill.
	Statistics(ctx context.Context, since time.Time) (*Stats, error)
}
