package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mediconnect-api/internal/model"
	"mediconnect-api/internal/scheduling"
	"mediconnect-api/internal/store"
)

// These tests pin the SQL paths that carry the concurrency guarantees:
// the conditional slot flip on booking, the paired release on
// cancellation, the insert-if-absent on generation and the status CAS.

func newMock(t *testing.T) (pgxmock.PgxPoolIface, *store.Store) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		mock.Close()
	})
	return mock, store.New(mock)
}

func testAppointment() *model.Appointment {
	return &model.Appointment{
		ID:              "a1",
		DoctorID:        "d1",
		PatientID:       "p1",
		Date:            time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC),
		Time:            "09:00",
		DurationMinutes: 30,
		Status:          model.StatusPending,
		ConsultationFee: 150,
	}
}

func TestReserveAndCreateCommits(t *testing.T) {
	mock, st := newMock(t)
	a := testAppointment()
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE time_slots").
		WithArgs(a.DoctorID, a.Date, a.Time).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectQuery("INSERT INTO appointments").
		WillReturnRows(pgxmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))
	mock.ExpectCommit()

	require.NoError(t, st.ReserveAndCreate(context.Background(), a))
	assert.Equal(t, now, a.CreatedAt)
}

func TestReserveAndCreateConflictWhenSlotTaken(t *testing.T) {
	mock, st := newMock(t)
	a := testAppointment()

	// zero rows flipped but the slot row exists: someone else holds it
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE time_slots").
		WithArgs(a.DoctorID, a.Date, a.Time).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectQuery("SELECT EXISTS").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectRollback()

	err := st.ReserveAndCreate(context.Background(), a)
	require.Error(t, err)
	assert.True(t, scheduling.IsConflict(err), "want conflict, got %v", err)
}

func TestReserveAndCreateNotFoundWhenSlotMissing(t *testing.T) {
	mock, st := newMock(t)
	a := testAppointment()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE time_slots").
		WithArgs(a.DoctorID, a.Date, a.Time).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectQuery("SELECT EXISTS").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectRollback()

	err := st.ReserveAndCreate(context.Background(), a)
	require.Error(t, err)
	assert.True(t, scheduling.IsNotFound(err), "want not found, got %v", err)
}

func appointmentRow(status string) *pgxmock.Rows {
	now := time.Now()
	return pgxmock.NewRows([]string{
		"id", "doctor_id", "patient_id", "appointment_date", "appointment_time",
		"duration_minutes", "status", "consultation_fee", "notes", "created_at", "updated_at",
	}).AddRow("a1", "d1", "p1", time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC), "09:00",
		30, status, 150.0, "", now, now)
}

func TestCancelAppointmentReleasesSlot(t *testing.T) {
	mock, st := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE appointments").
		WillReturnRows(appointmentRow(model.StatusCancelled))
	mock.ExpectExec("UPDATE time_slots").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	a, err := st.CancelAppointment(context.Background(), "a1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, a.Status)
}

func TestCancelAppointmentAlreadyTerminal(t *testing.T) {
	mock, st := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE appointments").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery("SELECT status FROM appointments").
		WillReturnRows(pgxmock.NewRows([]string{"status"}).AddRow(model.StatusCompleted))
	mock.ExpectRollback()

	_, err := st.CancelAppointment(context.Background(), "a1")
	require.Error(t, err)
	assert.True(t, scheduling.IsConflict(err), "want conflict, got %v", err)
}

func TestCancelAppointmentUnknown(t *testing.T) {
	mock, st := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE appointments").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery("SELECT status FROM appointments").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectRollback()

	_, err := st.CancelAppointment(context.Background(), "a1")
	require.Error(t, err)
	assert.True(t, scheduling.IsNotFound(err), "want not found, got %v", err)
}

func TestUpdateStatusCAS(t *testing.T) {
	mock, st := newMock(t)

	mock.ExpectQuery("UPDATE appointments").
		WithArgs("a1", model.StatusPending, model.StatusConfirmed).
		WillReturnRows(appointmentRow(model.StatusConfirmed))

	a, err := st.UpdateStatus(context.Background(), "a1", model.StatusPending, model.StatusConfirmed)
	require.NoError(t, err)
	assert.Equal(t, model.StatusConfirmed, a.Status)
}

func TestUpdateStatusLostRace(t *testing.T) {
	mock, st := newMock(t)

	// the row left the expected status between read and write
	mock.ExpectQuery("UPDATE appointments").
		WithArgs("a1", model.StatusPending, model.StatusConfirmed).
		WillReturnError(pgx.ErrNoRows)

	_, err := st.UpdateStatus(context.Background(), "a1", model.StatusPending, model.StatusConfirmed)
	require.Error(t, err)
	assert.True(t, scheduling.IsConflict(err), "want conflict, got %v", err)
}

func TestInsertSlot(t *testing.T) {
	mock, st := newMock(t)
	slot := &model.TimeSlot{
		ID: "s1", DoctorID: "d1",
		SlotDate:    time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC),
		StartTime:   "09:00",
		EndTime:     "09:30",
		IsAvailable: true,
	}

	mock.ExpectExec("INSERT INTO time_slots").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	created, err := st.InsertSlot(context.Background(), slot)
	require.NoError(t, err)
	assert.True(t, created)

	// ON CONFLICT DO NOTHING resolves a duplicate to zero rows
	mock.ExpectExec("INSERT INTO time_slots").
		WillReturnResult(pgxmock.NewResult("INSERT", 0))
	created, err = st.InsertSlot(context.Background(), slot)
	require.NoError(t, err)
	assert.False(t, created)
}

func TestSlotByKeyNotFound(t *testing.T) {
	mock, st := newMock(t)

	mock.ExpectQuery("FROM time_slots").
		WillReturnError(pgx.ErrNoRows)

	_, err := st.SlotByKey(context.Background(), "d1",
		time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC), "09:00")
	require.Error(t, err)
	assert.True(t, scheduling.IsNotFound(err))
}

func TestAvailableByDoctorAndDate(t *testing.T) {
	mock, st := newMock(t)
	date := time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("FROM time_slots").
		WithArgs("d1", date).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "doctor_id", "slot_date", "start_time", "end_time", "is_available", "is_booked",
		}).
			AddRow("s1", "d1", date, "09:00", "09:30", true, false).
			AddRow("s2", "d1", date, "09:30", "10:00", true, false))

	slots, err := st.AvailableByDoctorAndDate(context.Background(), "d1", date)
	require.NoError(t, err)
	require.Len(t, slots, 2)
	assert.Equal(t, "09:00", slots[0].StartTime)
	assert.Equal(t, "09:30", slots[1].StartTime)
}

func TestUpsertTemplateReturnsSavedRow(t *testing.T) {
	mock, st := newMock(t)
	now := time.Now()

	mock.ExpectQuery("INSERT INTO doctor_schedules").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "doctor_id", "day_of_week", "start_time", "end_time",
			"slot_duration_minutes", "is_available", "created_at", "updated_at",
		}).AddRow("t1", "d1", int16(1), "08:00", "17:00", 30, true, now, now))

	saved, err := st.UpsertTemplate(context.Background(), &model.ScheduleTemplate{
		ID: "t1", DoctorID: "d1", DayOfWeek: time.Monday,
		StartTime: "08:00", EndTime: "17:00", SlotDurationMinutes: 30, IsAvailable: true,
	})
	require.NoError(t, err)
	assert.Equal(t, time.Monday, saved.DayOfWeek)
	assert.Equal(t, "08:00", saved.StartTime)
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	mock, st := newMock(t)

	mock.ExpectExec("INSERT INTO users").
		WillReturnError(&pgconn.PgError{Code: "23505"})

	err := st.CreateUser(context.Background(), &model.User{
		ID: "u1", Email: "dup@example.com", PasswordHash: "x", Name: "Dup", Role: model.RolePatient,
	})
	require.Error(t, err)
	assert.True(t, scheduling.IsConflict(err), "want conflict, got %v", err)
}

func TestRotateRefreshTokenTransaction(t *testing.T) {
	mock, st := newMock(t)
	expiry := time.Now().Add(7 * 24 * time.Hour)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE refresh_tokens").
		WithArgs("new-id", "old-id").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("INSERT INTO refresh_tokens").
		WithArgs("new-id", "u1", "new-hash", expiry).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	err := st.RotateRefreshToken(context.Background(), "old-id", "new-id", "u1", "new-hash", expiry)
	require.NoError(t, err)
}
