package scheduling

import (
	"context"
	"time"

	"github.com/google/uuid"

	"mediconnect-api/internal/model"
	"mediconnect-api/pkg/logging"
)

// Default schedule created for new doctors: Mon-Fri, 08:00-17:00,
// 30-minute slots.
const (
	defaultStart        = "08:00"
	defaultEnd          = "17:00"
	defaultSlotDuration = 30
)

var defaultWorkingDays = []time.Weekday{
	time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday,
}

// ScheduleService manages recurring weekly availability templates. It owns
// validation and the one-template-per-(doctor, weekday) rule; it never
// generates slots itself.
type ScheduleService struct {
	schedules ScheduleStore
	doctors   DoctorDirectory
	logger    *logging.Logger
}

func NewScheduleService(schedules ScheduleStore, doctors DoctorDirectory, logger *logging.Logger) *ScheduleService {
	if logger == nil {
		logger = logging.Default()
	}
	return &ScheduleService{schedules: schedules, doctors: doctors, logger: logger}
}

// SetTemplate upserts the template for (doctorID, day).
func (s *ScheduleService) SetTemplate(ctx context.Context, doctorID string, day time.Weekday, start, end string, slotDurationMinutes int, isAvailable bool) (*model.ScheduleTemplate, error) {
	if _, err := s.doctors.Doctor(ctx, doctorID); err != nil {
		return nil, err
	}
	if day < time.Sunday || day > time.Saturday {
		return nil, Invalid("invalid day of week %d", day)
	}
	startMin, err := ParseClock(start)
	if err != nil {
		return nil, err
	}
	endMin, err := ParseClock(end)
	if err != nil {
		return nil, err
	}
	if startMin >= endMin {
		return nil, Invalid("start time %s must be before end time %s", start, end)
	}
	if slotDurationMinutes <= 0 {
		return nil, Invalid("slot duration must be positive, got %d", slotDurationMinutes)
	}

	t := &model.ScheduleTemplate{
		ID:                  uuid.New().String(),
		DoctorID:            doctorID,
		DayOfWeek:           day,
		StartTime:           start,
		EndTime:             end,
		SlotDurationMinutes: slotDurationMinutes,
		IsAvailable:         isAvailable,
	}
	saved, err := s.schedules.UpsertTemplate(ctx, t)
	if err != nil {
		return nil, err
	}
	s.logger.Info("schedule template set",
		"doctor_id", doctorID, "day", day.String(), "start", start, "end", end,
		"slot_minutes", slotDurationMinutes, "available", isAvailable)
	return saved, nil
}

// Templates returns all templates for a doctor ordered by weekday.
func (s *ScheduleService) Templates(ctx context.Context, doctorID string) ([]model.ScheduleTemplate, error) {
	if _, err := s.doctors.Doctor(ctx, doctorID); err != nil {
		return nil, err
	}
	return s.schedules.TemplatesByDoctor(ctx, doctorID)
}

// IsAvailableOn reports whether the doctor has an active template for day.
func (s *ScheduleService) IsAvailableOn(ctx context.Context, doctorID string, day time.Weekday) (bool, error) {
	if _, err := s.doctors.Doctor(ctx, doctorID); err != nil {
		return false, err
	}
	return s.schedules.DayAvailable(ctx, doctorID, day)
}

// CreateDefaultSchedule fills in the Mon-Fri default template set for a
// doctor, leaving weekdays that already have a template untouched.
func (s *ScheduleService) CreateDefaultSchedule(ctx context.Context, doctorID string) error {
	if _, err := s.doctors.Doctor(ctx, doctorID); err != nil {
		return err
	}
	for _, day := range defaultWorkingDays {
		_, err := s.schedules.TemplateForDay(ctx, doctorID, day)
		if err == nil {
			continue
		}
		if !IsNotFound(err) {
			return err
		}
		t := &model.ScheduleTemplate{
			ID:                  uuid.New().String(),
			DoctorID:            doctorID,
			DayOfWeek:           day,
			StartTime:           defaultStart,
			EndTime:             defaultEnd,
			SlotDurationMinutes: defaultSlotDuration,
			IsAvailable:         true,
		}
		if _, err := s.schedules.UpsertTemplate(ctx, t); err != nil {
			return err
		}
	}
	s.logger.Info("default schedule created", "doctor_id", doctorID)
	return nil
}

// CreateDefaultSchedulesForAll applies CreateDefaultSchedule to every
// doctor in the directory.
func (s *ScheduleService) CreateDefaultSchedulesForAll(ctx context.Context) error {
	doctors, err := s.doctors.Doctors(ctx)
	if err != nil {
		return err
	}
	for _, d := range doctors {
		if err := s.CreateDefaultSchedule(ctx, d.ID); err != nil {
			return err
		}
	}
	return nil
}
