package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"mediconnect-api/internal/model"
	"mediconnect-api/internal/scheduling"
)

const appointmentColumns = `id, doctor_id, patient_id, appointment_date, appointment_time,
	        duration_minutes, status, consultation_fee, notes, created_at, updated_at`

// ReserveAndCreate books the slot named by the appointment and inserts the
// appointment row in one transaction. The slot flip is a conditional
// update; zero affected rows means some concurrent booking already won
// (or the slot was withdrawn), and the whole transaction rolls back.
func (s *Store) ReserveAndCreate(ctx context.Context, a *model.Appointment) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin booking: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`UPDATE time_slots SET is_booked = TRUE, updated_at = NOW()
		 WHERE doctor_id = $1 AND slot_date = $2 AND start_time = $3
		   AND is_available = TRUE AND is_booked = FALSE`,
		a.DoctorID, a.Date, a.Time,
	)
	if err != nil {
		return fmt.Errorf("reserve slot: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Distinguish a missing slot from one that is simply taken.
		var exists bool
		if err := tx.QueryRow(ctx,
			`SELECT EXISTS(
			     SELECT 1 FROM time_slots
			     WHERE doctor_id = $1 AND slot_date = $2 AND start_time = $3)`,
			a.DoctorID, a.Date, a.Time,
		).Scan(&exists); err != nil {
			return fmt.Errorf("reserve slot: %w", err)
		}
		if !exists {
			return scheduling.NotFound("time slot",
				fmt.Sprintf("%s/%s/%s", a.DoctorID, a.Date.Format("2006-01-02"), a.Time))
		}
		return scheduling.Conflict("slot is not available")
	}

	err = tx.QueryRow(ctx,
		`INSERT INTO appointments
		     (id, doctor_id, patient_id, appointment_date, appointment_time,
		      duration_minutes, status, consultation_fee, notes)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		 RETURNING created_at, updated_at`,
		a.ID, a.DoctorID, a.PatientID, a.Date, a.Time,
		a.DurationMinutes, a.Status, a.ConsultationFee, a.Notes,
	).Scan(&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert appointment: %w", err)
	}

	return tx.Commit(ctx)
}

// CancelAppointment flips the appointment to CANCELLED and releases its
// slot; the two updates commit together or not at all. Only PENDING and
// CONFIRMED appointments can be cancelled.
func (s *Store) CancelAppointment(ctx context.Context, id string) (*model.Appointment, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin cancel: %w", err)
	}
	defer tx.Rollback(ctx)

	a := &model.Appointment{}
	err = tx.QueryRow(ctx,
		`UPDATE appointments SET status = $2, updated_at = NOW()
		 WHERE id = $1 AND status IN ($3, $4)
		 RETURNING `+appointmentColumns,
		id, model.StatusCancelled, model.StatusPending, model.StatusConfirmed,
	).Scan(&a.ID, &a.DoctorID, &a.PatientID, &a.Date, &a.Time,
		&a.DurationMinutes, &a.Status, &a.ConsultationFee, &a.Notes, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		// Either the appointment is unknown or already terminal.
		var status string
		probe := tx.QueryRow(ctx, `SELECT status FROM appointments WHERE id = $1`, id)
		if scanErr := probe.Scan(&status); errors.Is(scanErr, pgx.ErrNoRows) {
			return nil, scheduling.NotFound("appointment", id)
		} else if scanErr != nil {
			return nil, fmt.Errorf("cancel appointment: %w", scanErr)
		}
		return nil, scheduling.Conflict(fmt.Sprintf("appointment is already %s", status))
	}
	if err != nil {
		return nil, fmt.Errorf("cancel appointment: %w", err)
	}

	_, err = tx.Exec(ctx,
		`UPDATE time_slots SET is_booked = FALSE, updated_at = NOW()
		 WHERE doctor_id = $1 AND slot_date = $2 AND start_time = $3 AND is_booked = TRUE`,
		a.DoctorID, a.Date, a.Time,
	)
	if err != nil {
		return nil, fmt.Errorf("release slot: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return a, nil
}

// AppointmentByID loads one appointment.
func (s *Store) AppointmentByID(ctx context.Context, id string) (*model.Appointment, error) {
	a := &model.Appointment{}
	err := s.db.QueryRow(ctx,
		`SELECT `+appointmentColumns+`
		 FROM appointments WHERE id = $1`, id,
	).Scan(&a.ID, &a.DoctorID, &a.PatientID, &a.Date, &a.Time,
		&a.DurationMinutes, &a.Status, &a.ConsultationFee, &a.Notes, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, scheduling.NotFound("appointment", id)
	}
	if err != nil {
		return nil, fmt.Errorf("load appointment: %w", err)
	}
	return a, nil
}

// UpdateStatus transitions the appointment from -> to, failing with a
// conflict when the row is no longer in the from status.
func (s *Store) UpdateStatus(ctx context.Context, id, from, to string) (*model.Appointment, error) {
	a := &model.Appointment{}
	err := s.db.QueryRow(ctx,
		`UPDATE appointments SET status = $3, updated_at = NOW()
		 WHERE id = $1 AND status = $2
		 RETURNING `+appointmentColumns,
		id, from, to,
	).Scan(&a.ID, &a.DoctorID, &a.PatientID, &a.Date, &a.Time,
		&a.DurationMinutes, &a.Status, &a.ConsultationFee, &a.Notes, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, scheduling.Conflict(fmt.Sprintf("appointment is no longer %s", from))
	}
	if err != nil {
		return nil, fmt.Errorf("update appointment status: %w", err)
	}
	return a, nil
}

// AppointmentsByPatient lists a patient's appointments, newest first.
func (s *Store) AppointmentsByPatient(ctx context.Context, patientID string) ([]model.Appointment, error) {
	return s.queryAppointments(ctx,
		`SELECT `+appointmentColumns+`
		 FROM appointments
		 WHERE patient_id = $1
		 ORDER BY appointment_date DESC, appointment_time DESC`, patientID)
}

// UpcomingByPatient lists a patient's non-cancelled appointments on or
// after from.
func (s *Store) UpcomingByPatient(ctx context.Context, patientID string, from time.Time) ([]model.Appointment, error) {
	return s.queryAppointments(ctx,
		`SELECT `+appointmentColumns+`
		 FROM appointments
		 WHERE patient_id = $1 AND appointment_date >= $2 AND status <> $3
		 ORDER BY appointment_date, appointment_time`,
		patientID, from, model.StatusCancelled)
}

// PastByPatient lists a patient's appointments before the given date.
func (s *Store) PastByPatient(ctx context.Context, patientID string, before time.Time) ([]model.Appointment, error) {
	return s.queryAppointments(ctx,
		`SELECT `+appointmentColumns+`
		 FROM appointments
		 WHERE patient_id = $1 AND appointment_date < $2
		 ORDER BY appointment_date DESC, appointment_time DESC`,
		patientID, before)
}

// AppointmentsByDoctor lists a doctor's appointments, newest first.
func (s *Store) AppointmentsByDoctor(ctx context.Context, doctorID string) ([]model.Appointment, error) {
	return s.queryAppointments(ctx,
		`SELECT `+appointmentColumns+`
		 FROM appointments
		 WHERE doctor_id = $1
		 ORDER BY appointment_date DESC, appointment_time DESC`, doctorID)
}

// AppointmentsByDoctorAndDate lists a doctor's appointments for one date
// in time order.
func (s *Store) AppointmentsByDoctorAndDate(ctx context.Context, doctorID string, date time.Time) ([]model.Appointment, error) {
	return s.queryAppointments(ctx,
		`SELECT `+appointmentColumns+`
		 FROM appointments
		 WHERE doctor_id = $1 AND appointment_date = $2
		 ORDER BY appointment_time`, doctorID, date)
}

// CountByStatus counts appointments in the given status.
func (s *Store) CountByStatus(ctx context.Context, status string) (int64, error) {
	var n int64
	err := s.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM appointments WHERE status = $1`, status,
	).Scan(&n)
	return n, err
}

func (s *Store) queryAppointments(ctx context.Context, sql string, args ...any) ([]model.Appointment, error) {
	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query appointments: %w", err)
	}
	defer rows.Close()

	var out []model.Appointment
	for rows.Next() {
		var a model.Appointment
		if err := rows.Scan(&a.ID, &a.DoctorID, &a.PatientID, &a.Date, &a.Time,
			&a.DurationMinutes, &a.Status, &a.ConsultationFee, &a.Notes,
			&a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
