package vitals

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

const vitalsCols = `id, resident_id, caregiver_id, systolic_bp, diastolic_bp, heart_rate,
	temperature, oxygen_saturation, timestamp, notes, alerts, created_at`

func (r *repoPG) scan(row pgx.Row) (*Vitals, error) {
	var v Vitals
	err := row.Scan(&v.ID, &v.ResidentID, &v.CaregiverID, &v.SystolicBP, &v.DiastolicBP,
		&v.HeartRate, &v.Temperature, &v.OxygenSaturation, &v.Timestamp, &v.Notes,
		&v.Alerts, &v.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &v, err
}

func (r *repoPG) Create(ctx context.Context, v *Vitals) error {
	v.ID = uuid.New()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO vitals (id, resident_id, caregiver_id, systolic_bp, diastolic_bp, heart_rate,
			temperature, oxygen_saturation, timestamp, notes, alerts)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		v.ID, v.ResidentID, v.CaregiverID, v.SystolicBP, v.DiastolicBP, v.HeartRate,
		v.Temperature, v.OxygenSaturation, v.Timestamp, v.Notes, v.Alerts)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Vitals, error) {
	return r.scan(r.pool.QueryRow(ctx, `SELECT `+vitalsCols+` FROM vitals WHERE id = $1`, id))
}

func (r *repoPG) ListByResident(ctx context.Context, residentID uuid.UUID, limit, offset int) ([]*Vitals, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM vitals WHERE resident_id = $1`, residentID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+vitalsCols+` FROM vitals WHERE resident_id = $1 ORDER BY timestamp DESC LIMIT $2 OFFSET $3`,
		residentID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Vitals
	for rows.Next() {
		v, err := r.scan(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, v)
	}
	return items, total, rows.Err()
}

func (r *repoPG) Latest(ctx context.Context, residentID uuid.UUID) (*Vitals, error) {
	return r.scan(r.pool.QueryRow(ctx,
		`SELECT `+vitalsCols+` FROM vitals WHERE resident_id = $1 ORDER BY timestamp DESC LIMIT 1`,
		residentID))
}

func (r *repoPG) LatestTimestamp(ctx context.Context, residentID uuid.UUID) (*time.Time, error) {
	var ts *time.Time
	err := r.pool.QueryRow(ctx,
		`SELECT MAX(timestamp) FROM vitals WHERE resident_id = $1`, residentID).Scan(&ts)
	if err != nil {
		return nil, err
	}
	return ts, nil
}

func (r *repoPG) CountSince(ctx context.Context, residentID uuid.UUID, since time.Time) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM vitals WHERE resident_id = $1 AND timestamp >= $2`,
		residentID, since).Scan(&count)
	return count, err
}

func (r *repoPG) CountAllSince(ctx context.Context, since time.Time) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM vitals WHERE timestamp >= $1`, since).Scan(&count)
	return count, err
}
