package incident

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/safecare/safecare/internal/domain/resident"
	"github.com/safecare/safecare/internal/platform/auth"
	"github.com/safecare/safecare/internal/platform/realtime"
)

// ResidentDirectory is the slice of the resident service the incident
// service needs.
type ResidentDirectory interface {
	Get(ctx context.Context, id uuid.UUID) (*resident.Resident, error)
}

// EmergencyHook is invoked after an incident is resolved as a true
// emergency, outside the state transition itself.
type EmergencyHook interface {
	OnEmergencyConfirmed(ctx context.Context, inc *Incident, res *resident.Resident)
}

type Service struct {
	repo      Repository
	residents ResidentDirectory
	events    realtime.Broadcaster
	emergency EmergencyHook
	timeout   time.Duration
	logger    zerolog.Logger
	nowFunc   func() time.Time
}

// NewService builds the incident service. timeout is how long an active
// incident may go unclaimed before it counts as overdue.
func NewService(repo Repository, residents ResidentDirectory, events realtime.Broadcaster,
	emergency EmergencyHook, timeout time.Duration, logger zerolog.Logger) *Service {
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &Service{
		repo:      repo,
		residents: residents,
		events:    events,
		emergency: emergency,
		timeout:   timeout,
		logger:    logger,
		nowFunc:   time.Now,
	}
}

// Timeout returns the configured claim timeout.
func (s *Service) Timeout() time.Duration { return s.timeout }

// lookupResident fetches a resident, passing ErrNotFound through and
// marking every other directory failure as a retryable upstream outage.
func (s *Service) lookupResident(ctx context.Context, id uuid.UUID) (*resident.Resident, error) {
	res, err := s.residents.Get(ctx, id)
	if err != nil {
		if errors.Is(err, resident.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: resident directory: %v", ErrUpstreamUnavailable, err)
	}
	return res, nil
}

// Create records a new incident and alerts every connected dashboard.
func (s *Service) Create(ctx context.Context, i *Incident) error {
	if i.ResidentID == uuid.Nil {
		return fmt.Errorf("resident_id is required")
	}
	if i.Description == "" {
		return fmt.Errorf("description is required")
	}

	res, err := s.lookupResident(ctx, i.ResidentID)
	if err != nil {
		return err
	}

	if i.Type == "" {
		i.Type = TypeOther
	}
	if i.Severity == "" {
		i.Severity = SeverityMedium
	}
	if i.DetectionMethod == "" {
		i.DetectionMethod = DetectionManual
	}
	if i.Location == "" {
		i.Location = res.Room
	}
	if i.Priority < 1 || i.Priority > 5 {
		i.Priority = 3
	}
	if i.DetectionTime.IsZero() {
		i.DetectionTime = s.nowFunc().UTC()
	}
	i.Status = StatusActive

	if err := s.repo.Create(ctx, i); err != nil {
		return err
	}
	i.ResidentName = res.Name
	i.ResidentRoom = res.Room

	s.logger.Info().
		Str("incident_id", i.ID.String()).
		Str("resident", res.Name).
		Str("type", string(i.Type)).
		Str("severity", string(i.Severity)).
		Msg("incident created")

	s.events.BroadcastAll(realtime.NewEvent(realtime.EventIncidentCreated, i))

	// Caregivers additionally get an actionable notification in their room,
	// on top of the dashboard broadcast everyone sees.
	s.events.BroadcastRole(auth.RoleCaregiver, realtime.NewEvent(realtime.EventIncidentNotification, map[string]interface{}{
		"incident": i,
		"message":  fmt.Sprintf("New %s incident for %s", i.Type, res.Name),
		"priority": "high",
	}))
	return nil
}

// Claim atomically assigns an active incident to a caregiver. Exactly one of
// N concurrent claims succeeds; losers get ErrNotClaimable.
func (s *Service) Claim(ctx context.Context, id uuid.UUID, caregiverID string) (*Incident, error) {
	inc, err := s.repo.Claim(ctx, id, caregiverID, s.nowFunc().UTC())
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("incident_id", inc.ID.String()).
		Str("claimed_by", caregiverID).
		Msg("incident claimed")

	s.events.BroadcastAll(realtime.NewEvent(realtime.EventIncidentUpdated, inc))
	return inc, nil
}

// Resolve closes a claimed incident with an outcome. Only the claiming
// caregiver or an admin may resolve. A true emergency additionally triggers
// the emergency hook and an admin alert.
func (s *Service) Resolve(ctx context.Context, id uuid.UUID, actorID string, isAdmin bool,
	resolution Resolution, notes, adminAction *string) (*Incident, error) {
	if !ValidResolution(resolution) {
		return nil, fmt.Errorf("valid resolution is required (true_emergency, false_alarm, or resolved_internally)")
	}

	inc, err := s.repo.Resolve(ctx, ResolveParams{
		ID:                         id,
		ResolvedBy:                 actorID,
		IsAdmin:                    isAdmin,
		Resolution:                 resolution,
		Notes:                      notes,
		AdminAction:                adminAction,
		ResolvedAt:                 s.nowFunc().UTC(),
		EmergencyServicesContacted: resolution == ResolutionTrueEmergency && adminAction != nil,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("incident_id", inc.ID.String()).
		Str("resolution", string(resolution)).
		Str("resolved_by", actorID).
		Msg("incident resolved")

	s.events.BroadcastAll(realtime.NewEvent(realtime.EventIncidentUpdated, inc))

	if resolution == ResolutionTrueEmergency {
		s.events.BroadcastRole(auth.RoleAdmin, realtime.NewEvent(realtime.EventEmergencyConfirmed, inc))
		if s.emergency != nil {
			res, err := s.residents.Get(ctx, inc.ResidentID)
			if err != nil {
				s.logger.Error().Err(err).
					Str("incident_id", inc.ID.String()).
					Msg("emergency hook skipped, resident lookup failed")
			} else {
				s.emergency.OnEmergencyConfirmed(ctx, inc, res)
			}
		}
	}
	return inc, nil
}

// MarkFamilyNotified records that the family was reached about an incident.
func (s *Service) MarkFamilyNotified(ctx context.Context, id uuid.UUID) error {
	return s.repo.MarkFamilyNotified(ctx, id, s.nowFunc().UTC())
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Incident, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, f ListFilter, limit, offset int) ([]*Incident, int, error) {
	return s.repo.List(ctx, f, limit, offset)
}

// Active returns the newest active incidents.
func (s *Service) Active(ctx context.Context) ([]*Incident, error) {
	return s.repo.ListByStatus(ctx, StatusActive, 50)
}

// Overdue returns active incidents unclaimed longer than the timeout,
// oldest first. A zero timeout uses the configured default.
func (s *Service) Overdue(ctx context.Context, timeout time.Duration) ([]*Incident, error) {
	if timeout <= 0 {
		timeout = s.timeout
	}
	return s.repo.ListActiveOlderThan(ctx, s.nowFunc().UTC().Add(-timeout))
}

// Stats aggregates incident figures for the past days.
func (s *Service) Stats(ctx context.Context, days int) (*Stats, error) {
	if days <= 0 {
		days = 30
	}
	since := s.nowFunc().UTC().AddDate(0, 0, -days)

	stats, err := s.repo.Statistics(ctx, since)
	if err != nil {
		return nil, err
	}
	active, err := s.repo.CountOpen(ctx)
	if err != nil {
		return nil, err
	}
	stats.CurrentActive = active
	return stats, nil
}

// SimulateFall creates a high-severity fall incident as if the camera system
// had detected one. Used for drills and end-to-end testing of the alert path.
func (s *Service) SimulateFall(ctx context.Context, residentID uuid.UUID) (*Incident, error) {
	res, err := s.lookupResident(ctx, residentID)
	if err != nil {
		return nil, err
	}

	i := &Incident{
		ResidentID:      residentID,
		Type:            TypeFall,
		Severity:        SeverityHigh,
		Description:     fmt.Sprintf("Simulated fall detection for %s - AI camera system detected potential fall", res.Name),
		Location:        res.Room,
		DetectionMethod: DetectionAICamera,
		Priority:        4,
	}
	if err := s.Create(ctx, i); err != nil {
		return nil, err
	}
	return i, nil
}
