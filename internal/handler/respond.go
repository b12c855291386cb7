package handler

import (
	"encoding/json"
	"net/http"

	"mediconnect-api/internal/model"
	"mediconnect-api/internal/scheduling"
)

const dateLayout = "2006-01-02"

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps the scheduling error taxonomy onto HTTP statuses;
// anything untyped is an internal error and stays opaque to the client.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case scheduling.IsValidation(err):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case scheduling.IsNotFound(err):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case scheduling.IsConflict(err):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	default:
		h.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

type templateDTO struct {
	ID                  string `json:"id"`
	DoctorID            string `json:"doctorId"`
	DayOfWeek           string `json:"dayOfWeek"`
	StartTime           string `json:"startTime"`
	EndTime             string `json:"endTime"`
	SlotDurationMinutes int    `json:"slotDurationMinutes"`
	IsAvailable         bool   `json:"isAvailable"`
}

func toTemplateDTO(t *model.ScheduleTemplate) templateDTO {
	return templateDTO{
		ID:                  t.ID,
		DoctorID:            t.DoctorID,
		DayOfWeek:           t.DayOfWeek.String(),
		StartTime:           t.StartTime,
		EndTime:             t.EndTime,
		SlotDurationMinutes: t.SlotDurationMinutes,
		IsAvailable:         t.IsAvailable,
	}
}

type slotDTO struct {
	ID              string  `json:"id"`
	DoctorID        string  `json:"doctorId"`
	DoctorName      string  `json:"doctorName,omitempty"`
	Specialization  string  `json:"specialization,omitempty"`
	ConsultationFee float64 `json:"consultationFee,omitempty"`
	Date            string  `json:"date"`
	StartTime       string  `json:"startTime"`
	EndTime         string  `json:"endTime"`
}

func toSlotDTOs(slots []model.AvailableSlot) []slotDTO {
	out := make([]slotDTO, 0, len(slots))
	for _, s := range slots {
		out = append(out, slotDTO{
			ID:              s.ID,
			DoctorID:        s.DoctorID,
			DoctorName:      s.DoctorName,
			Specialization:  s.Specialization,
			ConsultationFee: s.ConsultationFee,
			Date:            s.SlotDate.Format(dateLayout),
			StartTime:       s.StartTime,
			EndTime:         s.EndTime,
		})
	}
	return out
}

type appointmentDTO struct {
	ID              string  `json:"id"`
	DoctorID        string  `json:"doctorId"`
	PatientID       string  `json:"patientId"`
	Date            string  `json:"date"`
	Time            string  `json:"time"`
	DurationMinutes int     `json:"durationMinutes"`
	Status          string  `json:"status"`
	ConsultationFee float64 `json:"consultationFee"`
	Notes           string  `json:"notes,omitempty"`
	CreatedAt       string  `json:"createdAt,omitempty"`
	UpdatedAt       string  `json:"updatedAt,omitempty"`
}

func toAppointmentDTO(a *model.Appointment) appointmentDTO {
	dto := appointmentDTO{
		ID:              a.ID,
		DoctorID:        a.DoctorID,
		PatientID:       a.PatientID,
		Date:            a.Date.Format(dateLayout),
		Time:            a.Time,
		DurationMinutes: a.DurationMinutes,
		Status:          a.Status,
		ConsultationFee: a.ConsultationFee,
		Notes:           a.Notes,
	}
	if !a.CreatedAt.IsZero() {
		dto.CreatedAt = a.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00")
	}
	if !a.UpdatedAt.IsZero() {
		dto.UpdatedAt = a.UpdatedAt.UTC().Format("2006-01-02T15:04:05Z07:00")
	}
	return dto
}

func toAppointmentDTOs(appts []model.Appointment) []appointmentDTO {
	out := make([]appointmentDTO, 0, len(appts))
	for i := range appts {
		out = append(out, toAppointmentDTO(&appts[i]))
	}
	return out
}

type doctorDTO struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	Specialization  string  `json:"specialization"`
	YearsExperience int     `json:"yearsExperience"`
	ConsultationFee float64 `json:"consultationFee"`
}

func toDoctorDTO(d *model.Doctor) doctorDTO {
	return doctorDTO{
		ID:              d.ID,
		Name:            d.Name,
		Specialization:  d.Specialization,
		YearsExperience: d.YearsExperience,
		ConsultationFee: d.ConsultationFee,
	}
}
