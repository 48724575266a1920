package incident

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of an incident. The only legal transitions
// are active -> claimed -> resolved.
type Status string

const (
	StatusActive   Status = "active"
	StatusClaimed  Status = "claimed"
	StatusResolved Status = "resolved"
)

// Type classifies what happened.
type Type string

const (
	TypeFall       Type = "fall"
	TypeMedical    Type = "medical"
	TypeEmergency  Type = "emergency"
	TypeBehavioral Type = "behavioral"
	TypeOther      Type = "other"
)

// Severity grades how serious the incident is.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// DetectionMethod records how the incident was detected.
type DetectionMethod string

const (
	DetectionAICamera    DetectionMethod = "ai_camera"
	DetectionManual      DetectionMethod = "manual_report"
	DetectionSensor      DetectionMethod = "sensor"
	DetectionObservation DetectionMethod = "caregiver_observation"
)

// Resolution records the outcome of a resolved incident.
type Resolution string

const (
	ResolutionTrueEmergency      Resolution = "true_emergency"
	ResolutionFalseAlarm         Resolution = "false_alarm"
	ResolutionResolvedInternally Resolution = "resolved_internally"
)

// ValidResolution reports whether r is one of the accepted outcomes.
func ValidResolution(r Resolution) bool {
	switch r {
	case ResolutionTrueEmergency, ResolutionFalseAlarm, ResolutionResolvedInternally:
		return true
	}
	return false
}

// Incident maps to the incident table. ResidentName and ResidentRoom are
// denormalized from the resident table on reads.
type Incident struct {
	ID                         uuid.UUID       `db:"id" json:"id"`
	ResidentID                 uuid.UUID       `db:"resident_id" json:"resident_id"`
	Type                       Type            `db:"type" json:"type"`
	Severity                   Severity        `db:"severity" json:"severity"`
	Description                string          `db:"description" json:"description"`
	DetectionTime              time.Time       `db:"detection_time" json:"detection_time"`
	DetectionMethod            DetectionMethod `db:"detection_method" json:"detection_method"`
	Location                   string          `db:"location" json:"location"`
	Status                     Status          `db:"status" json:"status"`
	ClaimedBy                  *string         `db:"claimed_by" json:"claimed_by,omitempty"`
	ClaimedAt                  *time.Time      `db:"claimed_at" json:"claimed_at,omitempty"`
	ResolvedBy                 *string         `db:"resolved_by" json:"resolved_by,omitempty"`
	ResolvedAt                 *time.Time      `db:"resolved_at" json:"resolved_at,omitempty"`
	Resolution                 *Resolution     `db:"resolution" json:"resolution,omitempty"`
	ResolutionNotes            *string         `db:"resolution_notes" json:"resolution_notes,omitempty"`
	AdminAction                *string         `db:"admin_action" json:"admin_action,omitempty"`
	EmergencyServicesContacted bool            `db:"emergency_services_contacted" json:"emergency_services_contacted"`
	FamilyNotified             bool            `db:"family_notified" json:"family_notified"`
	FamilyNotificationTime     *time.Time      `db:"family_notification_time" json:"family_notification_time,omitempty"`
	ResponseTimeSeconds        *int            `db:"response_time_seconds" json:"response_time_seconds,omitempty"`
	Priority                   int             `db:"priority" json:"priority"`
	CreatedAt                  time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt                  time.Time       `db:"updated_at" json:"updated_at"`

	ResidentName string `db:"-" json:"resident_name,omitempty"`
	ResidentRoom string `db:"-" json:"resident_room,omitempty"`
}

// IsOverdue reports whether an active incident has gone unclaimed longer
// than the timeout. Claimed and resolved incidents are never overdue.
func (i *Incident) IsOverdue(timeout time.Duration, now time.Time) bool {
	if i.Status != StatusActive {
		return false
	}
	return now.Sub(i.DetectionTime) > timeout
}

// TimeElapsed renders the time since detection as "1h 5m" or "12m".
func (i *Incident) TimeElapsed(now time.Time) string {
	minutes := int(now.Sub(i.DetectionTime).Minutes())
	if minutes < 0 {
		minutes = 0
	}
	if hours := minutes / 60; hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes%60)
	}
	return fmt.Sprintf("%dm", minutes)
}
