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

// UpsertTemplate overwrites the one template for (doctor, weekday), keyed
// by the table's (doctor_id, day_of_week) uniqueness constraint.
func (s *Store) UpsertTemplate(ctx context.Context, t *model.ScheduleTemplate) (*model.ScheduleTemplate, error) {
	saved := &model.ScheduleTemplate{}
	var day int16
	err := s.db.QueryRow(ctx,
		`INSERT INTO doctor_schedules
		     (id, doctor_id, day_of_week, start_time, end_time, slot_duration_minutes, is_available)
		 VALUES ($1,$2,$3,$4,$5,$6,$7)
		 ON CONFLICT (doctor_id, day_of_week) DO UPDATE
		     SET start_time = EXCLUDED.start_time,
		         end_time = EXCLUDED.end_time,
		         slot_duration_minutes = EXCLUDED.slot_duration_minutes,
		         is_available = EXCLUDED.is_available,
		         updated_at = NOW()
		 RETURNING id, doctor_id, day_of_week, start_time, end_time,
		           slot_duration_minutes, is_available, created_at, updated_at`,
		t.ID, t.DoctorID, int16(t.DayOfWeek), t.StartTime, t.EndTime, t.SlotDurationMinutes, t.IsAvailable,
	).Scan(&saved.ID, &saved.DoctorID, &day, &saved.StartTime, &saved.EndTime,
		&saved.SlotDurationMinutes, &saved.IsAvailable, &saved.CreatedAt, &saved.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("upsert schedule template: %w", err)
	}
	saved.DayOfWeek = time.Weekday(day)
	return saved, nil
}

// TemplatesByDoctor returns a doctor's templates ordered by weekday.
func (s *Store) TemplatesByDoctor(ctx context.Context, doctorID string) ([]model.ScheduleTemplate, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, doctor_id, day_of_week, start_time, end_time,
		        slot_duration_minutes, is_available, created_at, updated_at
		 FROM doctor_schedules
		 WHERE doctor_id = $1
		 ORDER BY day_of_week`, doctorID,
	)
	if err != nil {
		return nil, fmt.Errorf("list schedule templates: %w", err)
	}
	defer rows.Close()

	var out []model.ScheduleTemplate
	for rows.Next() {
		var t model.ScheduleTemplate
		var day int16
		if err := rows.Scan(&t.ID, &t.DoctorID, &day, &t.StartTime, &t.EndTime,
			&t.SlotDurationMinutes, &t.IsAvailable, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		t.DayOfWeek = time.Weekday(day)
		out = append(out, t)
	}
	return out, rows.Err()
}

// TemplateForDay returns the template for (doctor, weekday) or NotFound.
func (s *Store) TemplateForDay(ctx context.Context, doctorID string, day time.Weekday) (*model.ScheduleTemplate, error) {
	t := &model.ScheduleTemplate{}
	var d int16
	err := s.db.QueryRow(ctx,
		`SELECT id, doctor_id, day_of_week, start_time, end_time,
		        slot_duration_minutes, is_available, created_at, updated_at
		 FROM doctor_schedules
		 WHERE doctor_id = $1 AND day_of_week = $2`, doctorID, int16(day),
	).Scan(&t.ID, &t.DoctorID, &d, &t.StartTime, &t.EndTime,
		&t.SlotDurationMinutes, &t.IsAvailable, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, scheduling.NotFound("schedule template", doctorID+"/"+day.String())
	}
	if err != nil {
		return nil, fmt.Errorf("load schedule template: %w", err)
	}
	t.DayOfWeek = time.Weekday(d)
	return t, nil
}

// DayAvailable reports whether the doctor has an active template for day.
func (s *Store) DayAvailable(ctx context.Context, doctorID string, day time.Weekday) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx,
		`SELECT EXISTS(
		     SELECT 1 FROM doctor_schedules
		     WHERE doctor_id = $1 AND day_of_week = $2 AND is_available = TRUE)`,
		doctorID, int16(day),
	).Scan(&exists)
	return exists, err
}
