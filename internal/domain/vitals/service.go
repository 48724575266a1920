package vitals

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/safecare/safecare/internal/domain/resident"
	"github.com/safecare/safecare/internal/platform/auth"
	"github.com/safecare/safecare/internal/platform/realtime"
)

// ResidentDirectory is the slice of the resident service the vitals service
// needs.
type ResidentDirectory interface {
	Get(ctx context.Context, id uuid.UUID) (*resident.Resident, error)
}

type Service struct {
	repo      Repository
	residents ResidentDirectory
	events    realtime.Broadcaster
	nowFunc   func() time.Time
}

func NewService(repo Repository, residents ResidentDirectory, events realtime.Broadcaster) *Service {
	return &Service{
		repo:      repo,
		residents: residents,
		events:    events,
		nowFunc:   time.Now,
	}
}

// Record validates and stores a new reading, computes threshold alerts, and
// pushes a vitals.recorded event to caregiver and admin dashboards.
func (s *Service) Record(ctx context.Context, v *Vitals) error {
	if v.ResidentID == uuid.Nil {
		return fmt.Errorf("resident_id is required")
	}
	if v.CaregiverID == "" {
		return fmt.Errorf("caregiver_id is required")
	}
	if v.SystolicBP < 50 || v.SystolicBP > 300 {
		return fmt.Errorf("systolic_bp must be between 50 and 300")
	}
	if v.DiastolicBP < 30 || v.DiastolicBP > 200 {
		return fmt.Errorf("diastolic_bp must be between 30 and 200")
	}
	if v.HeartRate < 30 || v.HeartRate > 200 {
		return fmt.Errorf("heart_rate must be between 30 and 200")
	}
	if v.Temperature != nil && (*v.Temperature < 90 || *v.Temperature > 110) {
		return fmt.Errorf("temperature must be between 90 and 110")
	}
	if v.OxygenSaturation != nil && (*v.OxygenSaturation < 70 || *v.OxygenSaturation > 100) {
		return fmt.Errorf("oxygen_saturation must be between 70 and 100")
	}

	res, err := s.residents.Get(ctx, v.ResidentID)
	if err != nil {
		return err
	}

	if v.Timestamp.IsZero() {
		v.Timestamp = s.nowFunc().UTC()
	}
	v.GenerateAlerts()

	if err := s.repo.Create(ctx, v); err != nil {
		return err
	}

	payload := map[string]interface{}{
		"vitals":        v,
		"resident_id":   res.ID,
		"resident_name": res.Name,
		"room":          res.Room,
	}
	s.events.BroadcastRole(auth.RoleCaregiver, realtime.NewEvent(realtime.EventVitalsRecorded, payload))
	s.events.BroadcastRole(auth.RoleAdmin, realtime.NewEvent(realtime.EventVitalsRecorded, payload))

	return nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Vitals, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) History(ctx context.Context, residentID uuid.UUID, limit, offset int) ([]*Vitals, int, error) {
	return s.repo.ListByResident(ctx, residentID, limit, offset)
}

func (s *Service) Latest(ctx context.Context, residentID uuid.UUID) (*Vitals, error) {
	return s.repo.Latest(ctx, residentID)
}

// Status summarizes how recently a resident's vitals were checked.
type Status struct {
	Status      string     `json:"status"`
	LastChecked *time.Time `json:"last_checked"`
	TimeAgo     string     `json:"time_ago"`
}

// CheckStatus classifies the time since a resident's last reading.
func (s *Service) CheckStatus(ctx context.Context, residentID uuid.UUID) (*Status, error) {
	last, err := s.repo.LatestTimestamp(ctx, residentID)
	if err != nil {
		return nil, err
	}
	if last == nil {
		return &Status{Status: "never_checked", TimeAgo: "Never checked"}, nil
	}

	hours := int(s.nowFunc().Sub(*last).Hours())
	days := hours / 24

	st := &Status{LastChecked: last}
	switch {
	case hours < 1:
		st.Status = "recent"
		st.TimeAgo = "Less than 1 hour ago"
	case hours < 4:
		st.Status = "recent"
		st.TimeAgo = fmt.Sprintf("%d hour%s ago", hours, plural(hours))
	case hours < 24:
		st.Status = "moderate"
		st.TimeAgo = fmt.Sprintf("%d hours ago", hours)
	case days == 1:
		st.Status = "old"
		st.TimeAgo = "Yesterday"
	case days < 7:
		st.Status = "old"
		st.TimeAgo = fmt.Sprintf("%d days ago", days)
	default:
		weeks := days / 7
		st.Status = "very_old"
		st.TimeAgo = fmt.Sprintf("%d week%s ago", weeks, plural(weeks))
	}
	return st, nil
}

func plural(n int) string {
	if n > 1 {
		return "s"
	}
	return ""
}
