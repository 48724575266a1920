package monitoring

import (
	"context"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/safecare/safecare/internal/domain/resident"
	"github.com/safecare/safecare/internal/platform/auth"
	"github.com/safecare/safecare/internal/platform/realtime"
)

// ResidentLister supplies the residents the scanner iterates over.
type ResidentLister interface {
	ListActive(ctx context.Context) ([]*resident.Resident, error)
}

// VitalsSource answers the vitals questions the scanner asks.
type VitalsSource interface {
	LatestTimestamp(ctx context.Context, residentID uuid.UUID) (*time.Time, error)
	CountSince(ctx context.Context, residentID uuid.UUID, since time.Time) (int, error)
	CountAllSince(ctx context.Context, since time.Time) (int, error)
}

// IncidentSource answers the incident questions the scanner asks.
type IncidentSource interface {
	CountByResidentSince(ctx context.Context, residentID uuid.UUID, since time.Time) (int, error)
}

// Presence exposes connection counts from the hub.
type Presence interface {
	Counts() map[string]int
	ClientCount() int
}

// OverdueEntry is one resident in an overdue-vitals alert.
type OverdueEntry struct {
	ResidentID   uuid.UUID  `json:"resident_id"`
	Name         string     `json:"name"`
	Room         string     `json:"room"`
	LastVitals   *time.Time `json:"last_vitals"`
	HoursOverdue float64    `json:"hours_overdue"`
	NeverChecked bool       `json:"never_checked"`
}

// HealthScore is a periodically refreshed 0-100 wellbeing snapshot.
type HealthScore struct {
	ResidentID          uuid.UUID `json:"resident_id"`
	Name                string    `json:"name"`
	Room                string    `json:"room"`
	Score               float64   `json:"score"`
	IncidentCount       int       `json:"incident_count"`
	VitalsFrequency     int       `json:"vitals_frequency"`
	DaysSinceLastVitals *float64  `json:"days_since_last_vitals"`
}

// Metrics is the dashboard counters snapshot.
type Metrics struct {
	TotalResidents int            `json:"total_residents"`
	VitalsToday    int            `json:"vitals_today"`
	Connected      map[string]int `json:"connected"`
	LastUpdated    time.Time      `json:"last_updated"`
}

// dashboardUpdate wraps a dashboard.update payload with its subtype.
type dashboardUpdate struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Config carries the scanner intervals and the vitals staleness threshold.
type Config struct {
	OverdueInterval     time.Duration
	HealthScoreInterval time.Duration
	MetricsInterval     time.Duration
	VitalsOverdue       time.Duration
}

// Scanner runs three independent periodic jobs: the overdue-vitals scan, the
// health score recompute, and the dashboard metrics refresh. Jobs never
// overlap with themselves; an overrunning tick causes the next tick of the
// same job to be skipped.
type Scanner struct {
	residents ResidentLister
	vitals    VitalsSource
	incidents IncidentSource
	presence  Presence
	events    realtime.Broadcaster
	cfg       Config
	logger    zerolog.Logger
	nowFunc   func() time.Time

	overdueBusy atomic.Bool
	scoresBusy  atomic.Bool
	metricsBusy atomic.Bool
}

func NewScanner(residents ResidentLister, vitals VitalsSource, incidents IncidentSource,
	presence Presence, events realtime.Broadcaster, cfg Config, logger zerolog.Logger) *Scanner {
	if cfg.OverdueInterval <= 0 {
		cfg.OverdueInterval = 30 * time.Minute
	}
	if cfg.HealthScoreInterval <= 0 {
		cfg.HealthScoreInterval = time.Hour
	}
	if cfg.MetricsInterval <= 0 {
		cfg.MetricsInterval = 5 * time.Minute
	}
	if cfg.VitalsOverdue <= 0 {
		cfg.VitalsOverdue = 8 * time.Hour
	}
	return &Scanner{
		residents: residents,
		vitals:    vitals,
		incidents: incidents,
		presence:  presence,
		events:    events,
		cfg:       cfg,
		logger:    logger,
		nowFunc:   time.Now,
	}
}

// Start launches the three job loops. They stop when ctx is cancelled.
func (s *Scanner) Start(ctx context.Context) {
	go s.loop(ctx, "overdue-vitals", s.cfg.OverdueInterval, &s.overdueBusy, s.CheckOverdueVitals)
	go s.loop(ctx, "health-scores", s.cfg.HealthScoreInterval, &s.scoresBusy, s.UpdateHealthScores)
	go s.loop(ctx, "dashboard-metrics", s.cfg.MetricsInterval, &s.metricsBusy, s.UpdateDashboardMetrics)

	s.logger.Info().
		Dur("overdue_interval", s.cfg.OverdueInterval).
		Dur("health_score_interval", s.cfg.HealthScoreInterval).
		Dur("metrics_interval", s.cfg.MetricsInterval).
		Msg("scanner started")
}

func (s *Scanner) loop(ctx context.Context, name string, interval time.Duration,
	busy *atomic.Bool, job func(context.Context) error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Str("job", name).Msg("scanner job stopped")
			return
		case <-ticker.C:
			// The job runs off the loop goroutine so ticks keep being consumed
			// while it is in flight; an overrunning run makes the flag reject
			// the next tick instead of queueing it.
			if !busy.CompareAndSwap(false, true) {
				s.logger.Warn().Str("job", name).Msg("previous run still in flight, skipping tick")
				continue
			}
			go func() {
				defer busy.Store(false)
				s.runGuarded(ctx, name, job)
			}()
		}
	}
}

// runGuarded contains a job failure so the loop keeps ticking.
func (s *Scanner) runGuarded(ctx context.Context, name string, job func(context.Context) error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().Str("job", name).Interface("panic", r).Msg("scanner job panicked")
		}
	}()
	if err := job(ctx); err != nil {
		s.logger.Error().Err(err).Str("job", name).Msg("scanner job failed")
	}
}

// CheckOverdueVitals finds active residents whose latest vitals reading is
// older than the threshold or who have none at all, and emits a single
// batched alert to caregivers and admins when any are found.
func (s *Scanner) CheckOverdueVitals(ctx context.Context) error {
	entries, err := s.ScanOverdue(ctx)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}

	s.logger.Info().Int("count", len(entries)).Msg("residents with overdue vitals")
	event := realtime.NewEvent(realtime.EventOverdueVitals, map[string]interface{}{
		"residents": entries,
		"count":     len(entries),
	})
	s.events.BroadcastRole(auth.RoleCaregiver, event)
	s.events.BroadcastRole(auth.RoleAdmin, event)
	return nil
}

// ScanOverdue computes the overdue list without emitting anything.
func (s *Scanner) ScanOverdue(ctx context.Context) ([]OverdueEntry, error) {
	residents, err := s.residents.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list residents: %w", err)
	}

	now := s.nowFunc().UTC()
	var entries []OverdueEntry
	for _, r := range residents {
		last, err := s.vitals.LatestTimestamp(ctx, r.ID)
		if err != nil {
			s.logger.Error().Err(err).Str("resident_id", r.ID.String()).Msg("vitals lookup failed, skipping resident")
			continue
		}
		switch {
		case last == nil:
			entries = append(entries, OverdueEntry{
				ResidentID:   r.ID,
				Name:         r.Name,
				Room:         r.Room,
				NeverChecked: true,
			})
		case now.Sub(*last) > s.cfg.VitalsOverdue:
			entries = append(entries, OverdueEntry{
				ResidentID:   r.ID,
				Name:         r.Name,
				Room:         r.Room,
				LastVitals:   last,
				HoursOverdue: round1(now.Sub(*last).Hours()),
			})
		}
	}
	return entries, nil
}

// UpdateHealthScores recomputes every resident's health score from the
// trailing week and broadcasts the batch to everyone.
func (s *Scanner) UpdateHealthScores(ctx context.Context) error {
	scores, err := s.ComputeHealthScores(ctx)
	if err != nil {
		return err
	}

	s.events.BroadcastAll(realtime.NewEvent(realtime.EventDashboardUpdate, dashboardUpdate{
		Type: "health-scores",
		Data: scores,
	}))
	s.logger.Info().Int("count", len(scores)).Msg("health scores updated")
	return nil
}

// ComputeHealthScores derives the score batch without emitting anything.
// A failed lookup for one resident is logged and skipped, not fatal.
func (s *Scanner) ComputeHealthScores(ctx context.Context) ([]HealthScore, error) {
	residents, err := s.residents.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list residents: %w", err)
	}

	now := s.nowFunc().UTC()
	weekAgo := now.Add(-7 * 24 * time.Hour)

	scores := make([]HealthScore, 0, len(residents))
	for _, r := range residents {
		incidentCount, err := s.incidents.CountByResidentSince(ctx, r.ID, weekAgo)
		if err != nil {
			s.logger.Error().Err(err).Str("resident_id", r.ID.String()).Msg("incident count failed, skipping resident")
			continue
		}
		frequency, err := s.vitals.CountSince(ctx, r.ID, weekAgo)
		if err != nil {
			s.logger.Error().Err(err).Str("resident_id", r.ID.String()).Msg("vitals count failed, skipping resident")
			continue
		}
		last, err := s.vitals.LatestTimestamp(ctx, r.ID)
		if err != nil {
			s.logger.Error().Err(err).Str("resident_id", r.ID.String()).Msg("vitals lookup failed, skipping resident")
			continue
		}

		score := HealthScore{
			ResidentID:      r.ID,
			Name:            r.Name,
			Room:            r.Room,
			IncidentCount:   incidentCount,
			VitalsFrequency: frequency,
		}
		if last != nil {
			days := now.Sub(*last).Hours() / 24
			score.DaysSinceLastVitals = &days
		}
		score.Score = computeScore(incidentCount, frequency, score.DaysSinceLastVitals)
		scores = append(scores, score)
	}
	return scores, nil
}

// computeScore applies the health formula: start at 100, subtract 10 per
// recent incident, 5 per day beyond one since the last vitals check, and 3
// per missing reading below seven this week. Never-checked residents take
// the full recency penalty, which clamps the score to zero.
func computeScore(incidentCount, vitalsFrequency int, daysSinceLastVitals *float64) float64 {
	penalty := float64(10 * incidentCount)

	if daysSinceLastVitals == nil {
		penalty += 100
	} else if days := *daysSinceLastVitals - 1; days > 0 {
		penalty += 5 * days
	}

	if vitalsFrequency < 7 {
		penalty += float64(3 * (7 - vitalsFrequency))
	}

	score := 100 - penalty
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return round1(score)
}

// UpdateDashboardMetrics refreshes the dashboard counters and broadcasts
// them to everyone.
func (s *Scanner) UpdateDashboardMetrics(ctx context.Context) error {
	metrics, err := s.ComputeMetrics(ctx)
	if err != nil {
		return err
	}

	s.events.BroadcastAll(realtime.NewEvent(realtime.EventDashboardUpdate, dashboardUpdate{
		Type: "metrics",
		Data: metrics,
	}))
	s.logger.Debug().Msg("dashboard metrics updated")
	return nil
}

// ComputeMetrics derives the counters snapshot without emitting anything.
func (s *Scanner) ComputeMetrics(ctx context.Context) (*Metrics, error) {
	residents, err := s.residents.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list residents: %w", err)
	}

	now := s.nowFunc().UTC()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	vitalsToday, err := s.vitals.CountAllSince(ctx, midnight)
	if err != nil {
		return nil, fmt.Errorf("count vitals: %w", err)
	}

	connected := s.presence.Counts()
	connected["total"] = s.presence.ClientCount()

	return &Metrics{
		TotalResidents: len(residents),
		VitalsToday:    vitalsToday,
		Connected:      connected,
		LastUpdated:    now,
	}, nil
}

func round1(f float64) float64 {
	return math.Round(f*10) / 10
}
