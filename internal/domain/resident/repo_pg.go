package resident

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

const residentCols = `id, name, room, age, medical_conditions, contact_name, contact_phone,
	contact_relationship, assigned_caregiver_id, is_active, admission_date, profile_image,
	notes, family_emails, created_at, updated_at, discharged_at`

func (r *repoPG) scan(row pgx.Row) (*Resident, error) {
	var res Resident
	err := row.Scan(&res.ID, &res.Name, &res.Room, &res.Age, &res.MedicalConditions,
		&res.ContactName, &res.ContactPhone, &res.ContactRelationship, &res.AssignedCaregiverID,
		&res.IsActive, &res.AdmissionDate, &res.ProfileImage, &res.Notes, &res.FamilyEmails,
		&res.CreatedAt, &res.UpdatedAt, &res.DischargedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &res, err
}

func (r *repoPG) Create(ctx context.Context, res *Resident) error {
	res.ID = uuid.New()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO resident (id, name, room, age, medical_conditions, contact_name, contact_phone,
			contact_relationship, assigned_caregiver_id, is_active, admission_date, profile_image,
			notes, family_emails)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
		res.ID, res.Name, res.Room, res.Age, res.MedicalConditions, res.ContactName, res.ContactPhone,
		res.ContactRelationship, res.AssignedCaregiverID, res.IsActive, res.AdmissionDate,
		res.ProfileImage, res.Notes, res.FamilyEmails)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Resident, error) {
	return r.scan(r.pool.QueryRow(ctx, `SELECT `+residentCols+` FROM resident WHERE id = $1`, id))
}

func (r *repoPG) GetByRoom(ctx context.Context, room string) (*Resident, error) {
	return r.scan(r.pool.QueryRow(ctx,
		`SELECT `+residentCols+` FROM resident WHERE room = $1 AND is_active`, room))
}

func (r *repoPG) Update(ctx context.Context, res *Resident) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE resident SET name=$2, room=$3, age=$4, medical_conditions=$5, contact_name=$6,
			contact_phone=$7, contact_relationship=$8, assigned_caregiver_id=$9, profile_image=$10,
			notes=$11, family_emails=$12, updated_at=NOW()
		WHERE id = $1`,
		res.ID, res.Name, res.Room, res.Age, res.MedicalConditions, res.ContactName,
		res.ContactPhone, res.ContactRelationship, res.AssignedCaregiverID, res.ProfileImage,
		res.Notes, res.FamilyEmails)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) Discharge(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE resident SET is_active = FALSE, discharged_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND is_active`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) List(ctx context.Context, activeOnly bool, limit, offset int) ([]*Resident, int, error) {
	where := ``
	if activeOnly {
		where = ` WHERE is_active`
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM resident`+where).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+residentCols+` FROM resident`+where+` ORDER BY room LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Resident
	for rows.Next() {
		res, err := r.scan(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, res)
	}
	return items, total, rows.Err()
}

func (r *repoPG) ListActive(ctx context.Context) ([]*Resident, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+residentCols+` FROM resident WHERE is_active ORDER BY room`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Resident
	for rows.Next() {
		res, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, res)
	}
	return items, rows.Err()
}
