package handler

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"mediconnect-api/internal/scheduling"
)

func (h *Handler) ListDoctors(w http.ResponseWriter, r *http.Request) {
	doctors, err := h.store.Doctors(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out := make([]doctorDTO, 0, len(doctors))
	for i := range doctors {
		out = append(out, toDoctorDTO(&doctors[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) GetDoctor(w http.ResponseWriter, r *http.Request) {
	d, err := h.store.Doctor(r.Context(), chi.URLParam(r, "doctorID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toDoctorDTO(d))
}

func (h *Handler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	templates, err := h.schedules.Templates(r.Context(), chi.URLParam(r, "doctorID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out := make([]templateDTO, 0, len(templates))
	for i := range templates {
		out = append(out, toTemplateDTO(&templates[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

type setScheduleRequest struct {
	DayOfWeek           string `json:"dayOfWeek"`
	StartTime           string `json:"startTime"`
	EndTime             string `json:"endTime"`
	SlotDurationMinutes int    `json:"slotDurationMinutes"`
	IsAvailable         *bool  `json:"isAvailable"`
}

func (h *Handler) SetSchedule(w http.ResponseWriter, r *http.Request) {
	var req setScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	day, ok := parseWeekday(req.DayOfWeek)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid dayOfWeek"})
		return
	}
	available := true
	if req.IsAvailable != nil {
		available = *req.IsAvailable
	}
	duration := req.SlotDurationMinutes
	if duration == 0 {
		duration = 30
	}

	t, err := h.schedules.SetTemplate(r.Context(), chi.URLParam(r, "doctorID"),
		day, req.StartTime, req.EndTime, duration, available)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTemplateDTO(t))
}

func (h *Handler) CreateDefaultSchedule(w http.ResponseWriter, r *http.Request) {
	doctorID := chi.URLParam(r, "doctorID")
	if err := h.schedules.CreateDefaultSchedule(r.Context(), doctorID); err != nil {
		h.writeError(w, r, err)
		return
	}
	templates, err := h.schedules.Templates(r.Context(), doctorID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out := make([]templateDTO, 0, len(templates))
	for i := range templates {
		out = append(out, toTemplateDTO(&templates[i]))
	}
	writeJSON(w, http.StatusCreated, out)
}

type generateSlotsRequest struct {
	DoctorID  string `json:"doctorId"` // empty means all doctors
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

func (h *Handler) GenerateSlots(w http.ResponseWriter, r *http.Request) {
	var req generateSlotsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	from, err := scheduling.ParseDate(req.StartDate)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	to, err := scheduling.ParseDate(req.EndDate)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if req.DoctorID != "" {
		created, err := h.generator.Generate(r.Context(), req.DoctorID, from, to)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]int{"slotsCreated": created})
		return
	}

	report, err := h.generator.GenerateForAll(r.Context(), from, to)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func parseWeekday(s string) (time.Weekday, bool) {
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.EqualFold(s, d.String()) {
			return d, true
		}
	}
	return 0, false
}
