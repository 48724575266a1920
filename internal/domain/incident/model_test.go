package incident

import (
	"testing"
	"time"
)

func TestIsOverdue(t *testing.T) {
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	timeout := 5 * time.Minute

	tests := []struct {
		name    string
		status  Status
		age     time.Duration
		overdue bool
	}{
		{"active within timeout", StatusActive, 3 * time.Minute, false},
		{"active at timeout", StatusActive, 5 * time.Minute, false},
		{"active past timeout", StatusActive, 6 * time.Minute, true},
		{"claimed past timeout", StatusClaimed, time.Hour, false},
		{"resolved past timeout", StatusResolved, time.Hour, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			i := &Incident{Status: tt.status, DetectionTime: now.Add(-tt.age)}
			if got := i.IsOverdue(timeout, now); got != tt.overdue {
				t.Errorf("IsOverdue = %v, want %v", got, tt.overdue)
			}
		})
	}
}

func TestTimeElapsed(t *testing.T) {
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		age  time.Duration
		want string
	}{
		{12 * time.Minute, "12m"},
		{65 * time.Minute, "1h 5m"},
		{3 * time.Hour, "3h 0m"},
		{0, "0m"},
	}
	for _, tt := range tests {
		i := &Incident{DetectionTime: now.Add(-tt.age)}
		if got := i.TimeElapsed(now); got != tt.want {
			t.Errorf("TimeElapsed(%v) = %q, want %q", tt.age, got, tt.want)
		}
	}
}

func TestValidResolution(t *testing.T) {
	valid := []Resolution{ResolutionTrueEmergency, ResolutionFalseAlarm, ResolutionResolvedInternally}
	for _, r := range valid {
		if !ValidResolution(r) {
			t.Errorf("expected %q to be valid", r)
		}
	}
	if ValidResolution("escalated") {
		t.Error("expected unknown resolution to be invalid")
	}
	if ValidResolution("") {
		t.Error("expected empty resolution to be invalid")
	}
}
