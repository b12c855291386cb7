package scheduling_test

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"mediconnect-api/internal/memstore"
	"mediconnect-api/internal/model"
	"mediconnect-api/internal/scheduling"
	"mediconnect-api/pkg/logging"
)

// The service tests run against the in-memory store, which mirrors the
// SQL store's atomicity and error semantics.

func quiet() *logging.Logger {
	return logging.NewWithWriter("error", io.Discard)
}

func addDoctor(t *testing.T, ms *memstore.Store, name, specialization string, fee float64) string {
	t.Helper()
	d := &model.Doctor{
		ID:              uuid.New().String(),
		UserID:          uuid.New().String(),
		Name:            name,
		Specialization:  specialization,
		LicenseNumber:   "LIC-" + uuid.New().String()[:8],
		ConsultationFee: fee,
	}
	require.NoError(t, ms.CreateDoctor(context.Background(), d))
	return d.ID
}

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := scheduling.ParseDate(s)
	require.NoError(t, err)
	return d
}

// setTemplate writes a template for the weekday of the given date.
func setTemplate(t *testing.T, ms *memstore.Store, doctorID string, date time.Time, start, end string, minutes int, available bool) {
	t.Helper()
	_, err := ms.UpsertTemplate(context.Background(), &model.ScheduleTemplate{
		ID:                  uuid.New().String(),
		DoctorID:            doctorID,
		DayOfWeek:           date.Weekday(),
		StartTime:           start,
		EndTime:             end,
		SlotDurationMinutes: minutes,
		IsAvailable:         available,
	})
	require.NoError(t, err)
}

func generateDay(t *testing.T, g *scheduling.Generator, doctorID string, date time.Time) int {
	t.Helper()
	n, err := g.Generate(context.Background(), doctorID, date, date)
	require.NoError(t, err)
	return n
}
