package scheduling

import (
	"context"
	"time"

	"mediconnect-api/internal/model"
)

// Storage ports. The pgx-backed implementations live in internal/store;
// tests inject in-memory fakes. Implementations return the typed errors
// from this package at their boundary.

type ScheduleStore interface {
	// UpsertTemplate overwrites the one template for (doctor, weekday).
	UpsertTemplate(ctx context.Context, t *model.ScheduleTemplate) (*model.ScheduleTemplate, error)
	TemplatesByDoctor(ctx context.Context, doctorID string) ([]model.ScheduleTemplate, error)
	// TemplateForDay returns NotFound when the doctor has no template
	// for that weekday.
	TemplateForDay(ctx context.Context, doctorID string, day time.Weekday) (*model.ScheduleTemplate, error)
	DayAvailable(ctx context.Context, doctorID string, day time.Weekday) (bool, error)
}

type SlotStore interface {
	// InsertSlot inserts the slot unless its (doctor, date, start)
	// identity already exists. Reports whether a row was created; a
	// uniqueness-constraint hit is "already exists", not an error.
	InsertSlot(ctx context.Context, slot *model.TimeSlot) (bool, error)
	// SlotByKey returns NotFound when no slot has that identity.
	SlotByKey(ctx context.Context, doctorID string, date time.Time, start string) (*model.TimeSlot, error)
	AvailableByDoctorAndDate(ctx context.Context, doctorID string, date time.Time) ([]model.TimeSlot, error)
	AvailableByDoctorAndRange(ctx context.Context, doctorID string, from, to time.Time) ([]model.TimeSlot, error)
	AvailableBySpecializationAndDate(ctx context.Context, specialization string, date time.Time) ([]model.TimeSlot, error)
	AvailableByDate(ctx context.Context, date time.Time) ([]model.TimeSlot, error)
	ExistsAvailable(ctx context.Context, doctorID string, date time.Time, start string) (bool, error)
	CountAvailable(ctx context.Context, doctorID string, date time.Time) (int64, error)
	CountSlots(ctx context.Context) (int64, error)
}

type AppointmentStore interface {
	// ReserveAndCreate atomically flips the target slot to booked and
	// inserts the appointment. It fails with Conflict when the slot is
	// not available-and-unbooked at write time, and with NotFound when
	// the slot identity does not exist. No check-then-act gap: the flip
	// is a conditional update judged by affected rows.
	ReserveAndCreate(ctx context.Context, a *model.Appointment) error
	// CancelAppointment atomically marks the appointment CANCELLED and
	// releases its slot; both changes commit together or not at all.
	CancelAppointment(ctx context.Context, id string) (*model.Appointment, error)
	AppointmentByID(ctx context.Context, id string) (*model.Appointment, error)
	// UpdateStatus transitions from -> to as a compare-and-swap; a
	// Conflict means the appointment was no longer in the from status.
	UpdateStatus(ctx context.Context, id, from, to string) (*model.Appointment, error)
	AppointmentsByPatient(ctx context.Context, patientID string) ([]model.Appointment, error)
	UpcomingByPatient(ctx context.Context, patientID string, from time.Time) ([]model.Appointment, error)
	PastByPatient(ctx context.Context, patientID string, before time.Time) ([]model.Appointment, error)
	AppointmentsByDoctor(ctx context.Context, doctorID string) ([]model.Appointment, error)
	AppointmentsByDoctorAndDate(ctx context.Context, doctorID string, date time.Time) ([]model.Appointment, error)
	CountByStatus(ctx context.Context, status string) (int64, error)
}

// DoctorDirectory resolves doctor records; the scheduling core references
// doctors by ID only and never traverses into them implicitly.
type DoctorDirectory interface {
	Doctor(ctx context.Context, id string) (*model.Doctor, error)
	Doctors(ctx context.Context) ([]model.Doctor, error)
	DoctorIDForUser(ctx context.Context, userID string) (string, error)
}
