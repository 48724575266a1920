package incident

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/safecare/safecare/internal/domain/resident"
	"github.com/safecare/safecare/internal/platform/notification"
)

// FamilyNotifier implements EmergencyHook by pushing emergency-confirmed
// notifications to the resident's emergency contact and family emails, then
// marking the incident as family-notified.
type FamilyNotifier struct {
	manager *notification.Manager
	repo    Repository
	logger  zerolog.Logger
}

func NewFamilyNotifier(manager *notification.Manager, repo Repository, logger zerolog.Logger) *FamilyNotifier {
	return &FamilyNotifier{manager: manager, repo: repo, logger: logger}
}

func (n *FamilyNotifier) OnEmergencyConfirmed(ctx context.Context, inc *Incident, res *resident.Resident) {
	caregiver := ""
	if inc.ResolvedBy != nil {
		caregiver = *inc.ResolvedBy
	}
	data := map[string]string{
		"resident_name":      res.Name,
		"room":               res.Room,
		"incident_type":      string(inc.Type),
		"caregiver_name":     caregiver,
		"emergency_services": strconv.FormatBool(inc.EmergencyServicesContacted),
	}

	notified := false

	if res.ContactPhone != nil && *res.ContactPhone != "" {
		if _, err := n.manager.SendFromTemplate(ctx, notification.TemplateEmergencyConfirmed, data, *res.ContactPhone); err != nil {
			n.logger.Error().Err(err).
				Str("incident_id", inc.ID.String()).
				Msg("emergency contact SMS failed")
		} else {
			notified = true
		}
	}

	for _, email := range res.FamilyEmails {
		subject := fmt.Sprintf("Emergency: %s (Room %s)", res.Name, res.Room)
		if err := n.manager.Send(ctx, &notification.Notification{
			Type:      notification.TypeEmail,
			Recipient: email,
			Subject:   subject,
			Body: fmt.Sprintf("A %s involving %s in room %s has been confirmed as a true emergency. Staff will follow up shortly.",
				inc.Type, res.Name, res.Room),
			Priority: "urgent",
		}); err != nil {
			n.logger.Error().Err(err).
				Str("incident_id", inc.ID.String()).
				Str("recipient", email).
				Msg("family email failed")
		} else {
			notified = true
		}
	}

	if notified {
		if err := n.repo.MarkFamilyNotified(ctx, inc.ID, time.Now().UTC()); err != nil {
			n.logger.Error().Err(err).
				Str("incident_id", inc.ID.String()).
				Msg("failed to mark family notified")
		}
	}
}
