package vitals

import "testing"

func floatPtr(f float64) *float64 { return &f }
func intPtr(i int) *int           { return &i }

func baseline() *Vitals {
	return &Vitals{SystolicBP: 120, DiastolicBP: 80, HeartRate: 72}
}

func hasAlert(v *Vitals, alertType, severity string) bool {
	for _, a := range v.Alerts {
		if a.Type == alertType && a.Severity == severity {
			return true
		}
	}
	return false
}

func TestGenerateAlerts_NormalReading(t *testing.T) {
	v := baseline()
	v.GenerateAlerts()
	if len(v.Alerts) != 0 {
		t.Fatalf("expected no alerts, got %v", v.Alerts)
	}
	if !v.IsNormal() {
		t.Error("expected reading to be normal")
	}
}

func TestGenerateAlerts_BloodPressure(t *testing.T) {
	tests := []struct {
		name      string
		sys, dia  int
		alertType string
		severity  string
	}{
		{"critical high", 185, 80, AlertHighBP, "high"},
		{"critical high diastolic", 120, 112, AlertHighBP, "high"},
		{"high", 145, 80, AlertHighBP, "medium"},
		{"high diastolic", 120, 95, AlertHighBP, "medium"},
		{"low", 85, 80, AlertLowBP, "medium"},
		{"low diastolic", 120, 55, AlertLowBP, "medium"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := baseline()
			v.SystolicBP = tt.sys
			v.DiastolicBP = tt.dia
			v.GenerateAlerts()
			if !hasAlert(v, tt.alertType, tt.severity) {
				t.Errorf("expected %s/%s alert, got %v", tt.alertType, tt.severity, v.Alerts)
			}
		})
	}
}

func TestGenerateAlerts_HeartRate(t *testing.T) {
	tests := []struct {
		name      string
		hr        int
		alertType string
		severity  string
	}{
		{"high", 125, AlertHighHR, "high"},
		{"elevated", 105, AlertHighHR, "medium"},
		{"low", 45, AlertLowHR, "medium"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := baseline()
			v.HeartRate = tt.hr
			v.GenerateAlerts()
			if !hasAlert(v, tt.alertType, tt.severity) {
				t.Errorf("expected %s/%s alert, got %v", tt.alertType, tt.severity, v.Alerts)
			}
		})
	}
}

func TestGenerateAlerts_FeverAndOxygen(t *testing.T) {
	v := baseline()
	v.Temperature = floatPtr(101.5)
	v.OxygenSaturation = intPtr(88)
	v.GenerateAlerts()

	if !hasAlert(v, AlertFever, "high") {
		t.Errorf("expected fever alert, got %v", v.Alerts)
	}
	if !hasAlert(v, AlertLowOxygen, "high") {
		t.Errorf("expected low oxygen alert, got %v", v.Alerts)
	}
}

func TestGenerateAlerts_OptionalReadingsAbsent(t *testing.T) {
	v := baseline()
	v.GenerateAlerts()
	if hasAlert(v, AlertFever, "high") || hasAlert(v, AlertLowOxygen, "high") {
		t.Errorf("expected no alerts for absent optional readings, got %v", v.Alerts)
	}
}

func TestGenerateAlerts_ReplacesPrevious(t *testing.T) {
	v := baseline()
	v.SystolicBP = 185
	v.GenerateAlerts()
	if len(v.Alerts) != 1 {
		t.Fatalf("expected 1 alert, got %d", len(v.Alerts))
	}

	v.SystolicBP = 120
	v.GenerateAlerts()
	if len(v.Alerts) != 0 {
		t.Fatalf("expected alerts to be cleared, got %v", v.Alerts)
	}
}
