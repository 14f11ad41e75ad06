package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/rexdotsh/valeo/internal/models"
)

// ErrDoctorNotFound is returned when no doctor matches the id.
var ErrDoctorNotFound = errors.New("doctor not found")

type DoctorRepository struct {
	db *sql.DB
}

func NewDoctorRepository(db *sql.DB) *DoctorRepository {
	return &DoctorRepository{db: db}
}

// Create registers a doctor. New doctors start active.
func (r *DoctorRepository) Create(ctx context.Context, doctor *models.Doctor) error {
	const query = `
	INSERT INTO doctors (id, name, code_hash, languages, active, created_at)
	VALUES ($1, $2, $3, $4, $5, NOW())
	RETURNING created_at
	`

	return r.db.QueryRowContext(
		ctx,
		query,
		doctor.ID,
		doctor.Name,
		doctor.CodeHash,
		pq.Array([]string(doctor.Languages)),
		doctor.Active,
	).Scan(&doctor.CreatedAt)
}

// GetByID fetches a doctor record.
func (r *DoctorRepository) GetByID(ctx context.Context, doctorID uuid.UUID) (*models.Doctor, error) {
	const query = `
	SELECT id, name, code_hash, languages, active, created_at
	FROM doctors
	WHERE id = $1
	LIMIT 1
	`

	var doctor models.Doctor
	err := r.db.QueryRowContext(ctx, query, doctorID).Scan(
		&doctor.ID,
		&doctor.Name,
		&doctor.CodeHash,
		&doctor.Languages,
		&doctor.Active,
		&doctor.CreatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrDoctorNotFound
	}
	if err != nil {
		return nil, err
	}
	return &doctor, nil
}

// SetActive flips a doctor's claim rights.
func (r *DoctorRepository) SetActive(ctx context.Context, doctorID uuid.UUID, active bool) error {
	const query = `
	UPDATE doctors
	SET active = $2
	WHERE id = $1
	`

	_, err := r.db.ExecContext(ctx, query, doctorID, active)
	return err
}
