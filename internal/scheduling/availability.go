package scheduling

import (
	"context"
	"time"

	"mediconnect-api/internal/model"
)

// AvailabilityService is the read side: filters over the slot store joined
// with doctor display fields. No writes, safe under any concurrency;
// slightly stale reads are acceptable.
type AvailabilityService struct {
	slots   SlotStore
	doctors DoctorDirectory
}

func NewAvailabilityService(slots SlotStore, doctors DoctorDirectory) *AvailabilityService {
	return &AvailabilityService{slots: slots, doctors: doctors}
}

// ForDoctorOnDate lists available slots for one doctor on one date,
// ordered by start time.
func (s *AvailabilityService) ForDoctorOnDate(ctx context.Context, doctorID string, date time.Time) ([]model.AvailableSlot, error) {
	doc, err := s.doctors.Doctor(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	slots, err := s.slots.AvailableByDoctorAndDate(ctx, doctorID, DateOnly(date))
	if err != nil {
		return nil, err
	}
	return decorate(slots, map[string]*model.Doctor{doc.ID: doc}), nil
}

// ForDoctorInRange lists available slots for one doctor over an inclusive
// date range.
func (s *AvailabilityService) ForDoctorInRange(ctx context.Context, doctorID string, from, to time.Time) ([]model.AvailableSlot, error) {
	from, to = DateOnly(from), DateOnly(to)
	if to.Before(from) {
		return nil, Invalid("end date %s before start date %s",
			to.Format("2006-01-02"), from.Format("2006-01-02"))
	}
	doc, err := s.doctors.Doctor(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	slots, err := s.slots.AvailableByDoctorAndRange(ctx, doctorID, from, to)
	if err != nil {
		return nil, err
	}
	return decorate(slots, map[string]*model.Doctor{doc.ID: doc}), nil
}

// BySpecialization lists available slots on a date across all doctors with
// the given specialization.
func (s *AvailabilityService) BySpecialization(ctx context.Context, specialization string, date time.Time) ([]model.AvailableSlot, error) {
	if specialization == "" {
		return nil, Invalid("specialization required")
	}
	slots, err := s.slots.AvailableBySpecializationAndDate(ctx, specialization, DateOnly(date))
	if err != nil {
		return nil, err
	}
	return s.decorateAll(ctx, slots)
}

// ForDate lists available slots across all doctors on a date.
func (s *AvailabilityService) ForDate(ctx context.Context, date time.Time) ([]model.AvailableSlot, error) {
	slots, err := s.slots.AvailableByDate(ctx, DateOnly(date))
	if err != nil {
		return nil, err
	}
	return s.decorateAll(ctx, slots)
}

// CountForDoctorOnDate returns how many available slots the doctor still
// has on the date.
func (s *AvailabilityService) CountForDoctorOnDate(ctx context.Context, doctorID string, date time.Time) (int64, error) {
	if _, err := s.doctors.Doctor(ctx, doctorID); err != nil {
		return 0, err
	}
	return s.slots.CountAvailable(ctx, doctorID, DateOnly(date))
}

// TotalSlots returns the total number of slots ever generated.
func (s *AvailabilityService) TotalSlots(ctx context.Context) (int64, error) {
	return s.slots.CountSlots(ctx)
}

func (s *AvailabilityService) decorateAll(ctx context.Context, slots []model.TimeSlot) ([]model.AvailableSlot, error) {
	doctors, err := s.doctors.Doctors(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*model.Doctor, len(doctors))
	for i := range doctors {
		byID[doctors[i].ID] = &doctors[i]
	}
	return decorate(slots, byID), nil
}

func decorate(slots []model.TimeSlot, doctors map[string]*model.Doctor) []model.AvailableSlot {
	out := make([]model.AvailableSlot, 0, len(slots))
	for _, slot := range slots {
		as := model.AvailableSlot{TimeSlot: slot}
		if doc, ok := doctors[slot.DoctorID]; ok {
			as.DoctorName = doc.Name
			as.Specialization = doc.Specialization
			as.ConsultationFee = doc.ConsultationFee
		}
		out = append(out, as)
	}
	return out
}
