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

const slotColumns = `id, doctor_id, slot_date, start_time, end_time, is_available, is_booked`

// InsertSlot inserts the slot unless its (doctor, date, start) identity
// already exists; the table's uniqueness constraint makes concurrent
// inserts of the same identity resolve to exactly one row.
func (s *Store) InsertSlot(ctx context.Context, slot *model.TimeSlot) (bool, error) {
	tag, err := s.db.Exec(ctx,
		`INSERT INTO time_slots (id, doctor_id, slot_date, start_time, end_time, is_available, is_booked)
		 VALUES ($1,$2,$3,$4,$5,$6,$7)
		 ON CONFLICT (doctor_id, slot_date, start_time) DO NOTHING`,
		slot.ID, slot.DoctorID, slot.SlotDate, slot.StartTime, slot.EndTime, slot.IsAvailable, slot.IsBooked,
	)
	if err != nil {
		return false, fmt.Errorf("insert time slot: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// SlotByKey resolves a slot by its identity tuple.
func (s *Store) SlotByKey(ctx context.Context, doctorID string, date time.Time, start string) (*model.TimeSlot, error) {
	slot := &model.TimeSlot{}
	err := s.db.QueryRow(ctx,
		`SELECT `+slotColumns+`
		 FROM time_slots
		 WHERE doctor_id = $1 AND slot_date = $2 AND start_time = $3`,
		doctorID, date, start,
	).Scan(&slot.ID, &slot.DoctorID, &slot.SlotDate, &slot.StartTime, &slot.EndTime,
		&slot.IsAvailable, &slot.IsBooked)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, scheduling.NotFound("time slot",
			fmt.Sprintf("%s/%s/%s", doctorID, date.Format("2006-01-02"), start))
	}
	if err != nil {
		return nil, fmt.Errorf("load time slot: %w", err)
	}
	return slot, nil
}

// AvailableByDoctorAndDate lists a doctor's free slots on a date, ordered
// by start time. "Free" always means available and not booked.
func (s *Store) AvailableByDoctorAndDate(ctx context.Context, doctorID string, date time.Time) ([]model.TimeSlot, error) {
	return s.querySlots(ctx,
		`SELECT `+slotColumns+`
		 FROM time_slots
		 WHERE doctor_id = $1 AND slot_date = $2
		   AND is_available = TRUE AND is_booked = FALSE
		 ORDER BY start_time`, doctorID, date)
}

// AvailableByDoctorAndRange lists a doctor's free slots over an inclusive
// date range.
func (s *Store) AvailableByDoctorAndRange(ctx context.Context, doctorID string, from, to time.Time) ([]model.TimeSlot, error) {
	return s.querySlots(ctx,
		`SELECT `+slotColumns+`
		 FROM time_slots
		 WHERE doctor_id = $1 AND slot_date BETWEEN $2 AND $3
		   AND is_available = TRUE AND is_booked = FALSE
		 ORDER BY slot_date, start_time`, doctorID, from, to)
}

// AvailableBySpecializationAndDate lists free slots on a date for every
// doctor with the given specialization.
func (s *Store) AvailableBySpecializationAndDate(ctx context.Context, specialization string, date time.Time) ([]model.TimeSlot, error) {
	return s.querySlots(ctx,
		`SELECT ts.id, ts.doctor_id, ts.slot_date, ts.start_time, ts.end_time, ts.is_available, ts.is_booked
		 FROM time_slots ts
		 JOIN doctors d ON d.id = ts.doctor_id
		 WHERE d.specialization = $1 AND ts.slot_date = $2
		   AND ts.is_available = TRUE AND ts.is_booked = FALSE
		 ORDER BY ts.start_time`, specialization, date)
}

// AvailableByDate lists free slots across all doctors on a date.
func (s *Store) AvailableByDate(ctx context.Context, date time.Time) ([]model.TimeSlot, error) {
	return s.querySlots(ctx,
		`SELECT `+slotColumns+`
		 FROM time_slots
		 WHERE slot_date = $1 AND is_available = TRUE AND is_booked = FALSE
		 ORDER BY start_time`, date)
}

// ExistsAvailable reports whether the slot identity exists, is available
// and is not booked.
func (s *Store) ExistsAvailable(ctx context.Context, doctorID string, date time.Time, start string) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx,
		`SELECT EXISTS(
		     SELECT 1 FROM time_slots
		     WHERE doctor_id = $1 AND slot_date = $2 AND start_time = $3
		       AND is_available = TRUE AND is_booked = FALSE)`,
		doctorID, date, start,
	).Scan(&exists)
	return exists, err
}

// CountAvailable counts a doctor's free slots on a date.
func (s *Store) CountAvailable(ctx context.Context, doctorID string, date time.Time) (int64, error) {
	var n int64
	err := s.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM time_slots
		 WHERE doctor_id = $1 AND slot_date = $2
		   AND is_available = TRUE AND is_booked = FALSE`,
		doctorID, date,
	).Scan(&n)
	return n, err
}

// CountSlots counts every slot ever generated.
func (s *Store) CountSlots(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM time_slots`).Scan(&n)
	return n, err
}

func (s *Store) querySlots(ctx context.Context, sql string, args ...any) ([]model.TimeSlot, error) {
	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query time slots: %w", err)
	}
	defer rows.Close()

	var out []model.TimeSlot
	for rows.Next() {
		var slot model.TimeSlot
		if err := rows.Scan(&slot.ID, &slot.DoctorID, &slot.SlotDate, &slot.StartTime,
			&slot.EndTime, &slot.IsAvailable, &slot.IsBooked); err != nil {
			return nil, err
		}
		out = append(out, slot)
	}
	return out, rows.Err()
}
