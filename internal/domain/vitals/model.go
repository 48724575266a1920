package vitals

import (
	"time"

	"github.com/google/uuid"
)

// Alert flags a reading that crossed a clinical threshold.
type Alert struct {
	Type     string `json:"type"`
	Message  string `json:"message"`
	Severity string `json:"severity"`
}

// Alert types.
const (
	AlertHighBP    = "high_bp"
	AlertLowBP     = "low_bp"
	AlertHighHR    = "high_hr"
	AlertLowHR     = "low_hr"
	AlertFever     = "fever"
	AlertLowOxygen = "low_oxygen"
)

// Vitals maps to the vitals table. Temperature is in °F.
type Vitals struct {
	ID               uuid.UUID `db:"id" json:"id"`
	ResidentID       uuid.UUID `db:"resident_id" json:"resident_id"`
	CaregiverID      string    `db:"caregiver_id" json:"caregiver_id"`
	SystolicBP       int       `db:"systolic_bp" json:"systolic_bp"`
	DiastolicBP      int       `db:"diastolic_bp" json:"diastolic_bp"`
	HeartRate        int       `db:"heart_rate" json:"heart_rate"`
	Temperature      *float64  `db:"temperature" json:"temperature,omitempty"`
	OxygenSaturation *int      `db:"oxygen_saturation" json:"oxygen_saturation,omitempty"`
	Timestamp        time.Time `db:"timestamp" json:"timestamp"`
	Notes            *string   `db:"notes" json:"notes,omitempty"`
	Alerts           []Alert   `db:"alerts" json:"alerts"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
}

// GenerateAlerts computes threshold alerts for a reading. Called on every
// record; earlier alerts are replaced.
func (v *Vitals) GenerateAlerts() {
	v.Alerts = []Alert{}

	switch {
	case v.SystolicBP >= 180 || v.DiastolicBP >= 110:
		v.Alerts = append(v.Alerts, Alert{AlertHighBP, "Critical high blood pressure detected", "high"})
	case v.SystolicBP >= 140 || v.DiastolicBP >= 90:
		v.Alerts = append(v.Alerts, Alert{AlertHighBP, "High blood pressure detected", "medium"})
	case v.SystolicBP < 90 || v.DiastolicBP < 60:
		v.Alerts = append(v.Alerts, Alert{AlertLowBP, "Low blood pressure detected", "medium"})
	}

	switch {
	case v.HeartRate > 120:
		v.Alerts = append(v.Alerts, Alert{AlertHighHR, "High heart rate detected", "high"})
	case v.HeartRate > 100:
		v.Alerts = append(v.Alerts, Alert{AlertHighHR, "Elevated heart rate detected", "medium"})
	case v.HeartRate < 50:
		v.Alerts = append(v.Alerts, Alert{AlertLowHR, "Low heart rate detected", "medium"})
	}

	if v.Temperature != nil && *v.Temperature >= 101 {
		v.Alerts = append(v.Alerts, Alert{AlertFever, "Fever detected", "high"})
	}

	if v.OxygenSaturation != nil && *v.OxygenSaturation < 90 {
		v.Alerts = append(v.Alerts, Alert{AlertLowOxygen, "Low oxygen saturation detected", "high"})
	}
}

// IsNormal reports whether the core readings fall in the normal adult ranges.
func (v *Vitals) IsNormal() bool {
	return v.SystolicBP >= 90 && v.SystolicBP <= 140 &&
		v.DiastolicBP >= 60 && v.DiastolicBP <= 90 &&
		v.HeartRate >= 60 && v.HeartRate <= 100
}
