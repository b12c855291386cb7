package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"mediconnect-api/internal/model"
	"mediconnect-api/internal/scheduling"
)

// CreatePatient registers a patient profile for an existing user.
func (s *Store) CreatePatient(ctx context.Context, p *model.Patient) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO patients (id, user_id, name) VALUES ($1,$2,$3)`,
		p.ID, p.UserID, p.Name,
	)
	if uniqueViolation(err) {
		return scheduling.Conflict("patient already registered")
	}
	if err != nil {
		return fmt.Errorf("create patient: %w", err)
	}
	return nil
}

// PatientIDForUser resolves the patient profile belonging to a user
// account; booking routes use it to turn the authenticated user into a
// patient ID.
func (s *Store) PatientIDForUser(ctx context.Context, userID string) (string, error) {
	var id string
	err := s.db.QueryRow(ctx,
		`SELECT id FROM patients WHERE user_id = $1`, userID,
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", scheduling.NotFound("patient", "user "+userID)
	}
	if err != nil {
		return "", fmt.Errorf("resolve patient for user: %w", err)
	}
	return id, nil
}
