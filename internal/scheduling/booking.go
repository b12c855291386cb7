package scheduling

import (
	"context"
	"time"

	"github.com/google/uuid"

	"mediconnect-api/internal/metrics"
	"mediconnect-api/internal/model"
	"mediconnect-api/pkg/logging"
)

// BookingService owns the write path against slots: atomic reserve on
// booking, atomic release on cancellation. The decisive check happens
// inside the store's conditional update, never in application code, so
// concurrent bookings of the same slot cannot both win.
type BookingService struct {
	appointments AppointmentStore
	slots        SlotStore
	doctors      DoctorDirectory
	logger       *logging.Logger
}

func NewBookingService(appointments AppointmentStore, slots SlotStore, doctors DoctorDirectory, logger *logging.Logger) *BookingService {
	if logger == nil {
		logger = logging.Default()
	}
	return &BookingService{appointments: appointments, slots: slots, doctors: doctors, logger: logger}
}

// legal non-cancel transitions; cancellation goes through Cancel only.
var statusTransitions = map[string][]string{
	model.StatusPending:   {model.StatusConfirmed},
	model.StatusConfirmed: {model.StatusCompleted},
}

// Book reserves the slot (doctorID, date, startTime) for the patient and
// creates a PENDING appointment priced at the doctor's consultation fee.
func (s *BookingService) Book(ctx context.Context, doctorID, patientID string, date time.Time, startTime, notes string) (*model.Appointment, error) {
	if patientID == "" {
		return nil, Invalid("patient id required")
	}
	startMin, err := ParseClock(startTime)
	if err != nil {
		return nil, err
	}
	doc, err := s.doctors.Doctor(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	date = DateOnly(date)

	slot, err := s.slots.SlotByKey(ctx, doctorID, date, startTime)
	if err != nil {
		return nil, err
	}
	endMin, err := ParseClock(slot.EndTime)
	if err != nil {
		return nil, err
	}

	a := &model.Appointment{
		ID:              uuid.New().String(),
		DoctorID:        doctorID,
		PatientID:       patientID,
		Date:            date,
		Time:            startTime,
		DurationMinutes: endMin - startMin,
		Status:          model.StatusPending,
		ConsultationFee: doc.ConsultationFee,
		Notes:           notes,
	}

	// The reserve re-verifies availability atomically; the SlotByKey
	// read above only sized the appointment.
	if err := s.appointments.ReserveAndCreate(ctx, a); err != nil {
		if IsConflict(err) {
			metrics.BookingConflictsTotal.Inc()
		}
		return nil, err
	}

	metrics.BookingsTotal.Inc()
	s.logger.Info("appointment booked",
		"appointment_id", a.ID, "doctor_id", doctorID, "patient_id", patientID,
		"date", date.Format("2006-01-02"), "time", startTime)
	return a, nil
}

// Cancel marks the appointment CANCELLED and frees its slot in one atomic
// operation. Terminal appointments cannot be cancelled again.
func (s *BookingService) Cancel(ctx context.Context, appointmentID string) (*model.Appointment, error) {
	if appointmentID == "" {
		return nil, Invalid("appointment id required")
	}
	a, err := s.appointments.CancelAppointment(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	metrics.CancellationsTotal.Inc()
	s.logger.Info("appointment cancelled",
		"appointment_id", a.ID, "doctor_id", a.DoctorID,
		"date", a.Date.Format("2006-01-02"), "time", a.Time)
	return a, nil
}

// UpdateStatus performs a pure status transition. CANCELLED is rejected
// here so the slot release in Cancel is never skipped.
func (s *BookingService) UpdateStatus(ctx context.Context, appointmentID, newStatus string) (*model.Appointment, error) {
	switch newStatus {
	case model.StatusPending, model.StatusConfirmed, model.StatusCompleted:
	case model.StatusCancelled:
		return nil, Invalid("cancellation must go through the cancel operation")
	default:
		return nil, Invalid("unknown status %q", newStatus)
	}

	cur, err := s.appointments.AppointmentByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if cur.Status == newStatus {
		return cur, nil
	}
	if !transitionAllowed(cur.Status, newStatus) {
		return nil, Invalid("illegal status transition %s -> %s", cur.Status, newStatus)
	}

	// Compare-and-swap on the status we read; a concurrent transition
	// surfaces as a conflict rather than being overwritten.
	return s.appointments.UpdateStatus(ctx, appointmentID, cur.Status, newStatus)
}

// IsSlotAvailable is the read-only pre-check for a UI; Book never trusts it.
func (s *BookingService) IsSlotAvailable(ctx context.Context, doctorID string, date time.Time, startTime string) (bool, error) {
	if _, err := ParseClock(startTime); err != nil {
		return false, err
	}
	if _, err := s.doctors.Doctor(ctx, doctorID); err != nil {
		return false, err
	}
	return s.slots.ExistsAvailable(ctx, doctorID, DateOnly(date), startTime)
}

// Appointment returns one appointment by ID.
func (s *BookingService) Appointment(ctx context.Context, id string) (*model.Appointment, error) {
	return s.appointments.AppointmentByID(ctx, id)
}

// PatientHistory lists a patient's appointments, newest first.
func (s *BookingService) PatientHistory(ctx context.Context, patientID string) ([]model.Appointment, error) {
	return s.appointments.AppointmentsByPatient(ctx, patientID)
}

// PatientUpcoming lists a patient's appointments from today on.
func (s *BookingService) PatientUpcoming(ctx context.Context, patientID string, now time.Time) ([]model.Appointment, error) {
	return s.appointments.UpcomingByPatient(ctx, patientID, DateOnly(now))
}

// PatientPast lists a patient's appointments before today.
func (s *BookingService) PatientPast(ctx context.Context, patientID string, now time.Time) ([]model.Appointment, error) {
	return s.appointments.PastByPatient(ctx, patientID, DateOnly(now))
}

// DoctorAppointments lists a doctor's appointments, optionally for one date.
func (s *BookingService) DoctorAppointments(ctx context.Context, doctorID string, date *time.Time) ([]model.Appointment, error) {
	if _, err := s.doctors.Doctor(ctx, doctorID); err != nil {
		return nil, err
	}
	if date != nil {
		return s.appointments.AppointmentsByDoctorAndDate(ctx, doctorID, DateOnly(*date))
	}
	return s.appointments.AppointmentsByDoctor(ctx, doctorID)
}

// CountByStatus reports how many appointments are in the given status.
func (s *BookingService) CountByStatus(ctx context.Context, status string) (int64, error) {
	return s.appointments.CountByStatus(ctx, status)
}

func transitionAllowed(from, to string) bool {
	for _, next := range statusTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
