package model

import "time"

type User struct {
	ID           string
	Email        string
	PasswordHash string
	Name         string
	Role         string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// User roles.
const (
	RolePatient = "PATIENT"
	RoleDoctor  = "DOCTOR"
	RoleAdmin   = "ADMIN"
)

type Doctor struct {
	ID              string
	UserID          string
	Name            string
	Specialization  string
	LicenseNumber   string
	YearsExperience int
	ConsultationFee float64
	CreatedAt       time.Time
}

type Patient struct {
	ID        string
	UserID    string
	Name      string
	CreatedAt time.Time
}

// ScheduleTemplate is a doctor's recurring weekly availability rule.
// There is at most one template per (doctor, weekday); updates overwrite it.
type ScheduleTemplate struct {
	ID                  string
	DoctorID            string
	DayOfWeek           time.Weekday
	StartTime           string // "HH:MM"
	EndTime             string // "HH:MM"
	SlotDurationMinutes int
	IsAvailable         bool
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// TimeSlot is a concrete, dated, bookable interval derived from a template.
// (DoctorID, SlotDate, StartTime) uniquely identifies a slot; the store
// enforces that with a uniqueness constraint.
type TimeSlot struct {
	ID          string
	DoctorID    string
	SlotDate    time.Time // date only, UTC midnight
	StartTime   string    // "HH:MM"
	EndTime     string    // "HH:MM"
	IsAvailable bool
	IsBooked    bool
}

// AvailableSlot is a TimeSlot joined with the doctor display fields callers
// need to render a booking choice.
type AvailableSlot struct {
	TimeSlot
	DoctorName      string
	Specialization  string
	ConsultationFee float64
}

type Appointment struct {
	ID              string
	DoctorID        string
	PatientID       string
	Date            time.Time // date only, UTC midnight
	Time            string    // "HH:MM", equals the slot's StartTime
	DurationMinutes int
	Status          string
	ConsultationFee float64
	Notes           string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Appointment statuses. PENDING is initial; COMPLETED and CANCELLED are
// terminal. CANCELLED is reachable only through cancellation so the slot
// release is never skipped.
const (
	StatusPending   = "PENDING"
	StatusConfirmed = "CONFIRMED"
	StatusCompleted = "COMPLETED"
	StatusCancelled = "CANCELLED"
)

// RefreshToken is a single-use, rotating session credential. Only its
// hash is stored.
type RefreshToken struct {
	ID         string
	UserID     string
	TokenHash  string
	ExpiresAt  time.Time
	Revoked    bool
	ReplacedBy *string
	CreatedAt  time.Time
}
