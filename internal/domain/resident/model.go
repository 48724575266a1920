package resident

import (
	"time"

	"github.com/google/uuid"
)

// Resident maps to the resident table.
type Resident struct {
	ID                  uuid.UUID  `db:"id" json:"id"`
	Name                string     `db:"name" json:"name"`
	Room                string     `db:"room" json:"room"`
	Age                 int        `db:"age" json:"age"`
	MedicalConditions   []string   `db:"medical_conditions" json:"medical_conditions"`
	ContactName         *string    `db:"contact_name" json:"contact_name,omitempty"`
	ContactPhone        *string    `db:"contact_phone" json:"contact_phone,omitempty"`
	ContactRelationship *string    `db:"contact_relationship" json:"contact_relationship,omitempty"`
	AssignedCaregiverID *string    `db:"assigned_caregiver_id" json:"assigned_caregiver_id,omitempty"`
	IsActive            bool       `db:"is_active" json:"is_active"`
	AdmissionDate       time.Time  `db:"admission_date" json:"admission_date"`
	ProfileImage        string     `db:"profile_image" json:"profile_image"`
	Notes               *string    `db:"notes" json:"notes,omitempty"`
	FamilyEmails        []string   `db:"family_emails" json:"family_emails"`
	CreatedAt           time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time  `db:"updated_at" json:"updated_at"`
	DischargedAt        *time.Time `db:"discharged_at" json:"discharged_at,omitempty"`
}
