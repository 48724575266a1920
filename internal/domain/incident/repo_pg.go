package incident

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

const incidentCols = `i.id, i.resident_id, i.type, i.severity, i.description, i.detection_time,
	i.detection_method, i.location, i.status, i.claimed_by, i.claimed_at, i.resolved_by,
	i.resolved_at, i.resolution, i.resolution_notes, i.admin_action,
	i.emergency_services_contacted, i.family_notified, i.family_notification_time,
	i.response_time_seconds, i.priority, i.created_at, i.updated_at, r.name, r.room`

const incidentFrom = ` FROM incident i JOIN resident r ON r.id = i.resident_id`

func (p *repoPG) scan(row pgx.Row) (*Incident, error) {
	var i Incident
	err := row.Scan(&i.ID, &i.ResidentID, &i.Type, &i.Severity, &i.Description, &i.DetectionTime,
		&i.DetectionMethod, &i.Location, &i.Status, &i.ClaimedBy, &i.ClaimedAt, &i.ResolvedBy,
		&i.ResolvedAt, &i.Resolution, &i.ResolutionNotes, &i.AdminAction,
		&i.EmergencyServicesContacted, &i.FamilyNotified, &i.FamilyNotificationTime,
		&i.ResponseTimeSeconds, &i.Priority, &i.CreatedAt, &i.UpdatedAt,
		&i.ResidentName, &i.ResidentRoom)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &i, err
}

func (p *repoPG) scanRows(rows pgx.Rows) ([]*Incident, error) {
	defer rows.Close()
	var items []*Incident
	for rows.Next() {
		i, err := p.scan(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

func (p *repoPG) Create(ctx context.Context, i *Incident) error {
	i.ID = uuid.New()
	_, err := p.pool.Exec(ctx, `
		INSERT INTO incident (id, resident_id, type, severity, description, detection_time,
			detection_method, location, status, priority)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		i.ID, i.ResidentID, i.Type, i.Severity, i.Description, i.DetectionTime,
		i.DetectionMethod, i.Location, i.Status, i.Priority)
	return err
}

func (p *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Incident, error) {
	return p.scan(p.pool.QueryRow(ctx, `SELECT `+incidentCols+incidentFrom+` WHERE i.id = $1`, id))
}

func (p *repoPG) Claim(ctx context.Context, id uuid.UUID, caregiverID string, claimedAt time.Time) (*Incident, error) {
	// Single conditional update; under concurrent claims only one statement
	// finds the row still active. Response time is computed server-side so it
	// is set exactly once.
	tag, err := p.pool.Exec(ctx, `
		UPDATE incident
		SET status = 'claimed', claimed_by = $2, claimed_at = $3,
			response_time_seconds = FLOOR(EXTRACT(EPOCH FROM ($3::timestamptz - detection_time)))::INT,
			updated_at = NOW()
		WHERE id = $1 AND status = 'active'`,
		id, caregiverID, claimedAt)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		// Distinguish a missing incident from one already claimed or resolved.
		if _, err := p.GetByID(ctx, id); err != nil {
			return nil, err
		}
		return nil, ErrNotClaimable
	}
	return p.GetByID(ctx, id)
}

func (p *repoPG) Resolve(ctx context.Context, params ResolveParams) (*Incident, error) {
	tag, err := p.pool.Exec(ctx, `
		UPDATE incident
		SET status = 'resolved', resolved_by = $2, resolved_at = $3, resolution = $4,
			resolution_notes = $5, admin_action = $6,
			emergency_services_contacted = emergency_services_contacted OR $7,
			updated_at = NOW()
		WHERE id = $1 AND status = 'claimed' AND (claimed_by = $2 OR $8)`,
		params.ID, params.ResolvedBy, params.ResolvedAt, params.Resolution,
		params.Notes, params.AdminAction, params.EmergencyServicesContacted, params.IsAdmin)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		existing, err := p.GetByID(ctx, params.ID)
		if err != nil {
			return nil, err
		}
		if existing.Status != StatusClaimed {
			return nil, ErrNotResolvable
		}
		return nil, ErrForbidden
	}
	return p.GetByID(ctx, params.ID)
}

func (p *repoPG) MarkFamilyNotified(ctx context.Context, id uuid.UUID, at time.Time) error {
	tag, err := p.pool.Exec(ctx, `
		UPDATE incident SET family_notified = TRUE, family_notification_time = $2, updated_at = NOW()
		WHERE id = $1`, id, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *repoPG) List(ctx context.Context, f ListFilter, limit, offset int) ([]*Incident, int, error) {
	where := ` WHERE 1=1`
	var args []interface{}
	idx := 1

	add := func(clause string, val interface{}) {
		where += fmt.Sprintf(clause, idx)
		args = append(args, val)
		idx++
	}

	if f.Status != "" {
		add(` AND i.status = $%d`, f.Status)
	}
	if f.ResidentID != uuid.Nil {
		add(` AND i.resident_id = $%d`, f.ResidentID)
	}
	if f.Type != "" {
		add(` AND i.type = $%d`, f.Type)
	}
	if f.Severity != "" {
		add(` AND i.severity = $%d`, f.Severity)
	}
	if !f.Start.IsZero() {
		add(` AND i.detection_time >= $%d`, f.Start)
	}
	if !f.End.IsZero() {
		add(` AND i.detection_time <= $%d`, f.End)
	}

	var total int
	if err := p.pool.QueryRow(ctx, `SELECT COUNT(*)`+incidentFrom+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + incidentCols + incidentFrom + where +
		fmt.Sprintf(` ORDER BY i.detection_time DESC LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	items, err := p.scanRows(rows)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (p *repoPG) ListByStatus(ctx context.Context, status Status, limit int) ([]*Incident, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT `+incidentCols+incidentFrom+` WHERE i.status = $1 ORDER BY i.detection_time DESC LIMIT $2`,
		status, limit)
	if err != nil {
		return nil, err
	}
	return p.scanRows(rows)
}

func (p *repoPG) ListActiveOlderThan(ctx context.Context, cutoff time.Time) ([]*Incident, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT `+incidentCols+incidentFrom+` WHERE i.status = 'active' AND i.detection_time < $1 ORDER BY i.detection_time`,
		cutoff)
	if err != nil {
		return nil, err
	}
	return p.scanRows(rows)
}

func (p *repoPG) CountOpen(ctx context.Context) (int, error) {
	var count int
	err := p.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM incident WHERE status IN ('active', 'claimed')`).Scan(&count)
	return count, err
}

func (p *repoPG) CountByResidentSince(ctx context.Context, residentID uuid.UUID, since time.Time) (int, error) {
	var count int
	err := p.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM incident WHERE resident_id = $1 AND detection_time >= $2`,
		residentID, since).Scan(&count)
	return count, err
}

func (p *repoPG) Statistics(ctx context.Context, since time.Time) (*Stats, error) {
	stats := &Stats{TypeDistribution: make(map[string]int)}

	err := p.pool.QueryRow(ctx, `
		SELECT COUNT(*),
			COUNT(*) FILTER (WHERE resolution = 'true_emergency'),
			COUNT(*) FILTER (WHERE resolution = 'false_alarm'),
			COALESCE(AVG(response_time_seconds), 0)
		FROM incident WHERE detection_time >= $1`, since).
		Scan(&stats.Total, &stats.TrueEmergencies, &stats.FalseAlarms, &stats.AvgResponseSeconds)
	if err != nil {
		return nil, err
	}

	rows, err := p.pool.Query(ctx, `
		SELECT type, COUNT(*) FROM incident
		WHERE detection_time >= $1 GROUP BY type ORDER BY COUNT(*) DESC`, since)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var t string
		var count int
		if err := rows.Scan(&t, &count); err != nil {
			rows.Close()
			return nil, err
		}
		stats.TypeDistribution[t] = count
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = p.pool.Query(ctx, `
		SELECT to_char(detection_time, 'YYYY-MM-DD') AS day, COUNT(*)
		FROM incident WHERE detection_time >= $1 GROUP BY day ORDER BY day`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var d DailyCount
		if err := rows.Scan(&d.Date, &d.Count); err != nil {
			return nil, err
		}
		stats.Daily = append(stats.Daily, d)
	}
	return stats, rows.Err()
}
