package vitals

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/safecare/safecare/internal/domain/resident"
	"github.com/safecare/safecare/internal/platform/realtime"
)

// -- Mock Repository --

type mockRepo struct {
	mu      sync.Mutex
	records map[uuid.UUID]*Vitals
}

func newMockRepo() *mockRepo {
	return &mockRepo{records: make(map[uuid.UUID]*Vitals)}
}

func (m *mockRepo) Create(_ context.Context, v *Vitals) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v.ID = uuid.New()
	v.CreatedAt = time.Now()
	m.records[v.ID] = v
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Vitals, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	return v, nil
}

func (m *mockRepo) byResident(residentID uuid.UUID) []*Vitals {
	var result []*Vitals
	for _, v := range m.records {
		if v.ResidentID == residentID {
			result = append(result, v)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Timestamp.After(result[j].Timestamp) })
	return result
}

func (m *mockRepo) ListByResident(_ context.Context, residentID uuid.UUID, limit, offset int) ([]*Vitals, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := m.byResident(residentID)
	return result, len(result), nil
}

func (m *mockRepo) Latest(_ context.Context, residentID uuid.UUID) (*Vitals, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := m.byResident(residentID)
	if len(result) == 0 {
		return nil, ErrNotFound
	}
	return result[0], nil
}

func (m *mockRepo) LatestTimestamp(_ context.Context, residentID uuid.UUID) (*time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := m.byResident(residentID)
	if len(result) == 0 {
		return nil, nil
	}
	ts := result[0].Timestamp
	return &ts, nil
}

func (m *mockRepo) CountSince(_ context.Context, residentID uuid.UUID, since time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, v := range m.byResident(residentID) {
		if !v.Timestamp.Before(since) {
			count++
		}
	}
	return count, nil
}

func (m *mockRepo) CountAllSince(_ context.Context, since time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, v := range m.records {
		if !v.Timestamp.Before(since) {
			count++
		}
	}
	return count, nil
}

// -- Mock Resident Directory --

type mockDirectory struct {
	residents map[uuid.UUID]*resident.Resident
}

func (m *mockDirectory) Get(_ context.Context, id uuid.UUID) (*resident.Resident, error) {
	r, ok := m.residents[id]
	if !ok {
		return nil, resident.ErrNotFound
	}
	return r, nil
}

// -- Mock Broadcaster --

type recordedEvent struct {
	target string
	event  realtime.Event
}

type mockBroadcaster struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (m *mockBroadcaster) BroadcastAll(e realtime.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, recordedEvent{target: "all", event: e})
}

func (m *mockBroadcaster) BroadcastRole(role string, e realtime.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, recordedEvent{target: "role:" + role, event: e})
}

func (m *mockBroadcaster) SendToActor(actorID string, e realtime.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, recordedEvent{target: "actor:" + actorID, event: e})
}

func (m *mockBroadcaster) ofType(eventType string) []recordedEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []recordedEvent
	for _, e := range m.events {
		if e.event.Type == eventType {
			result = append(result, e)
		}
	}
	return result
}

// -- Service Tests --

func newTestService() (*Service, *mockRepo, *mockBroadcaster, uuid.UUID) {
	repo := newMockRepo()
	events := &mockBroadcaster{}
	residentID := uuid.New()
	dir := &mockDirectory{residents: map[uuid.UUID]*resident.Resident{
		residentID: {ID: residentID, Name: "Edna May", Room: "204", Age: 84, IsActive: true},
	}}
	return NewService(repo, dir, events), repo, events, residentID
}

func TestRecord_StoresAndBroadcasts(t *testing.T) {
	svc, repo, events, residentID := newTestService()

	v := &Vitals{
		ResidentID:  residentID,
		CaregiverID: "cg-1",
		SystolicBP:  120,
		DiastolicBP: 80,
		HeartRate:   72,
	}
	if err := svc.Record(context.Background(), v); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.ID == uuid.Nil {
		t.Error("expected ID to be assigned")
	}
	if v.Timestamp.IsZero() {
		t.Error("expected timestamp to default to now")
	}
	if len(repo.records) != 1 {
		t.Fatalf("expected 1 stored record, got %d", len(repo.records))
	}

	recorded := events.ofType(realtime.EventVitalsRecorded)
	if len(recorded) != 2 {
		t.Fatalf("expected 2 role broadcasts, got %d", len(recorded))
	}
	targets := map[string]bool{}
	for _, e := range recorded {
		targets[e.target] = true
	}
	if !targets["role:caregiver"] || !targets["role:admin"] {
		t.Errorf("expected caregiver and admin broadcasts, got %v", targets)
	}
}

func TestRecord_ComputesAlerts(t *testing.T) {
	svc, _, _, residentID := newTestService()

	v := &Vitals{
		ResidentID:  residentID,
		CaregiverID: "cg-1",
		SystolicBP:  185,
		DiastolicBP: 80,
		HeartRate:   72,
	}
	if err := svc.Record(context.Background(), v); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !hasAlert(v, AlertHighBP, "high") {
		t.Errorf("expected critical high BP alert, got %v", v.Alerts)
	}
}

func TestRecord_UnknownResident(t *testing.T) {
	svc, _, _, _ := newTestService()

	v := &Vitals{
		ResidentID:  uuid.New(),
		CaregiverID: "cg-1",
		SystolicBP:  120,
		DiastolicBP: 80,
		HeartRate:   72,
	}
	if err := svc.Record(context.Background(), v); err == nil {
		t.Fatal("expected error for unknown resident")
	}
}

func TestRecord_Validation(t *testing.T) {
	svc, _, _, residentID := newTestService()

	tests := []struct {
		name   string
		mutate func(*Vitals)
	}{
		{"missing caregiver", func(v *Vitals) { v.CaregiverID = "" }},
		{"systolic too low", func(v *Vitals) { v.SystolicBP = 40 }},
		{"systolic too high", func(v *Vitals) { v.SystolicBP = 310 }},
		{"diastolic too low", func(v *Vitals) { v.DiastolicBP = 20 }},
		{"heart rate too high", func(v *Vitals) { v.HeartRate = 250 }},
		{"temperature out of range", func(v *Vitals) { v.Temperature = floatPtr(80) }},
		{"oxygen out of range", func(v *Vitals) { v.OxygenSaturation = intPtr(60) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := &Vitals{
				ResidentID:  residentID,
				CaregiverID: "cg-1",
				SystolicBP:  120,
				DiastolicBP: 80,
				HeartRate:   72,
			}
			tt.mutate(v)
			if err := svc.Record(context.Background(), v); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestCheckStatus(t *testing.T) {
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		age        time.Duration
		wantStatus string
	}{
		{"under an hour", 30 * time.Minute, "recent"},
		{"two hours", 2 * time.Hour, "recent"},
		{"ten hours", 10 * time.Hour, "moderate"},
		{"yesterday", 30 * time.Hour, "old"},
		{"three days", 3 * 24 * time.Hour, "old"},
		{"two weeks", 14 * 24 * time.Hour, "very_old"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, _, residentID := newTestService()
			svc.nowFunc = func() time.Time { return now }

			v := &Vitals{
				ResidentID:  residentID,
				CaregiverID: "cg-1",
				SystolicBP:  120,
				DiastolicBP: 80,
				HeartRate:   72,
				Timestamp:   now.Add(-tt.age),
			}
			if err := svc.Record(context.Background(), v); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			st, err := svc.CheckStatus(context.Background(), residentID)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if st.Status != tt.wantStatus {
				t.Errorf("status = %q, want %q", st.Status, tt.wantStatus)
			}
			if st.LastChecked == nil {
				t.Error("expected last_checked to be set")
			}
		})
	}
}

func TestCheckStatus_NeverChecked(t *testing.T) {
	svc, _, _, residentID := newTestService()

	st, err := svc.CheckStatus(context.Background(), residentID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if st.Status != "never_checked" {
		t.Errorf("status = %q, want never_checked", st.Status)
	}
	if st.LastChecked != nil {
		t.Error("expected last_checked to be nil")
	}
	if st.TimeAgo != "Never checked" {
		t.Errorf("time_ago = %q", st.TimeAgo)
	}
}
