package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"mediconnect-api/internal/model"
	"mediconnect-api/internal/scheduling"
)

const doctorColumns = `id, user_id, name, specialization, license_number,
	        years_experience, consultation_fee, created_at`

// CreateDoctor registers a doctor profile for an existing user.
func (s *Store) CreateDoctor(ctx context.Context, d *model.Doctor) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO doctors (id, user_id, name, specialization, license_number, years_experience, consultation_fee)
		 VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		d.ID, d.UserID, d.Name, d.Specialization, d.LicenseNumber, d.YearsExperience, d.ConsultationFee,
	)
	if uniqueViolation(err) {
		return scheduling.Conflict("doctor already registered")
	}
	if err != nil {
		return fmt.Errorf("create doctor: %w", err)
	}
	return nil
}

// Doctor loads one doctor by ID.
func (s *Store) Doctor(ctx context.Context, id string) (*model.Doctor, error) {
	d := &model.Doctor{}
	err := s.db.QueryRow(ctx,
		`SELECT `+doctorColumns+` FROM doctors WHERE id = $1`, id,
	).Scan(&d.ID, &d.UserID, &d.Name, &d.Specialization, &d.LicenseNumber,
		&d.YearsExperience, &d.ConsultationFee, &d.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, scheduling.NotFound("doctor", id)
	}
	if err != nil {
		return nil, fmt.Errorf("load doctor: %w", err)
	}
	return d, nil
}

// Doctors lists every doctor, alphabetically.
func (s *Store) Doctors(ctx context.Context) ([]model.Doctor, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+doctorColumns+` FROM doctors ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list doctors: %w", err)
	}
	defer rows.Close()

	var out []model.Doctor
	for rows.Next() {
		var d model.Doctor
		if err := rows.Scan(&d.ID, &d.UserID, &d.Name, &d.Specialization, &d.LicenseNumber,
			&d.YearsExperience, &d.ConsultationFee, &d.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// DoctorIDForUser resolves the doctor profile belonging to a user account.
func (s *Store) DoctorIDForUser(ctx context.Context, userID string) (string, error) {
	var id string
	err := s.db.QueryRow(ctx,
		`SELECT id FROM doctors WHERE user_id = $1`, userID,
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", scheduling.NotFound("doctor", "user "+userID)
	}
	if err != nil {
		return "", fmt.Errorf("resolve doctor for user: %w", err)
	}
	return id, nil
}
