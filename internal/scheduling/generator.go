package scheduling

import (
	"context"
	"time"

	"github.com/google/uuid"

	"mediconnect-api/internal/metrics"
	"mediconnect-api/internal/model"
	"mediconnect-api/pkg/logging"
)

// Generator expands schedule templates into concrete, dated time slots.
// Generation is idempotent: each candidate slot is inserted only if its
// (doctor, date, start) identity is absent, and the store's uniqueness
// constraint settles any race between concurrent generators.
type Generator struct {
	schedules ScheduleStore
	slots     SlotStore
	doctors   DoctorDirectory
	logger    *logging.Logger
}

func NewGenerator(schedules ScheduleStore, slots SlotStore, doctors DoctorDirectory, logger *logging.Logger) *Generator {
	if logger == nil {
		logger = logging.Default()
	}
	return &Generator{schedules: schedules, slots: slots, doctors: doctors, logger: logger}
}

// Generate creates slots for one doctor over [startDate, endDate] inclusive
// and returns how many new slots were created. Dates with no template, or an
// inactive one, produce nothing; slots generated earlier for such dates are
// left as they are.
func (g *Generator) Generate(ctx context.Context, doctorID string, startDate, endDate time.Time) (int, error) {
	if _, err := g.doctors.Doctor(ctx, doctorID); err != nil {
		return 0, err
	}
	startDate, endDate = DateOnly(startDate), DateOnly(endDate)
	if endDate.Before(startDate) {
		return 0, Invalid("end date %s before start date %s",
			endDate.Format("2006-01-02"), startDate.Format("2006-01-02"))
	}

	created := 0
	for date := startDate; !date.After(endDate); date = date.AddDate(0, 0, 1) {
		n, err := g.generateForDate(ctx, doctorID, date)
		if err != nil {
			return created, err
		}
		created += n
	}
	if created > 0 {
		g.logger.Info("slots generated", "doctor_id", doctorID,
			"from", startDate.Format("2006-01-02"), "to", endDate.Format("2006-01-02"),
			"created", created)
	}
	metrics.SlotsGeneratedTotal.Add(float64(created))
	return created, nil
}

func (g *Generator) generateForDate(ctx context.Context, doctorID string, date time.Time) (int, error) {
	tpl, err := g.schedules.TemplateForDay(ctx, doctorID, date.Weekday())
	if err != nil {
		if IsNotFound(err) {
			return 0, nil
		}
		return 0, err
	}
	if !tpl.IsAvailable {
		return 0, nil
	}

	startMin, err := ParseClock(tpl.StartTime)
	if err != nil {
		return 0, err
	}
	endMin, err := ParseClock(tpl.EndTime)
	if err != nil {
		return 0, err
	}
	if tpl.SlotDurationMinutes <= 0 {
		return 0, Invalid("template for %s has non-positive slot duration", date.Weekday())
	}

	created := 0
	// A slot ending exactly at the template's end time is still in range.
	for cur := startMin; cur+tpl.SlotDurationMinutes <= endMin; cur += tpl.SlotDurationMinutes {
		start := FormatClock(cur)
		if _, err := g.slots.SlotByKey(ctx, doctorID, date, start); err == nil {
			continue
		} else if !IsNotFound(err) {
			return created, err
		}
		inserted, err := g.slots.InsertSlot(ctx, &model.TimeSlot{
			ID:          uuid.New().String(),
			DoctorID:    doctorID,
			SlotDate:    date,
			StartTime:   start,
			EndTime:     FormatClock(cur + tpl.SlotDurationMinutes),
			IsAvailable: true,
			IsBooked:    false,
		})
		if err != nil {
			return created, err
		}
		if inserted {
			created++
		}
	}
	return created, nil
}

// DoctorGeneration is one doctor's outcome within a bulk run.
type DoctorGeneration struct {
	DoctorID     string `json:"doctorId"`
	SlotsCreated int    `json:"slotsCreated,omitempty"`
	Error        string `json:"error,omitempty"`
}

// BulkReport is the structured partial result of GenerateForAll.
type BulkReport struct {
	Succeeded []DoctorGeneration `json:"succeeded"`
	Failed    []DoctorGeneration `json:"failed"`
}

// GenerateForAll runs Generate for every doctor in the directory. One
// doctor's failure never aborts the rest; the report says who succeeded
// and who did not.
func (g *Generator) GenerateForAll(ctx context.Context, startDate, endDate time.Time) (*BulkReport, error) {
	doctors, err := g.doctors.Doctors(ctx)
	if err != nil {
		return nil, err
	}

	report := &BulkReport{}
	for _, d := range doctors {
		n, err := g.Generate(ctx, d.ID, startDate, endDate)
		if err != nil {
			g.logger.Warn("slot generation failed", "doctor_id", d.ID, "error", err)
			report.Failed = append(report.Failed, DoctorGeneration{DoctorID: d.ID, Error: err.Error()})
			continue
		}
		report.Succeeded = append(report.Succeeded, DoctorGeneration{DoctorID: d.ID, SlotsCreated: n})
	}
	return report, nil
}
