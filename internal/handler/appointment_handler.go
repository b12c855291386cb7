package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"mediconnect-api/internal/middleware"
	"mediconnect-api/internal/model"
	"mediconnect-api/internal/scheduling"
)

// swapped by tests
var timeNow = time.Now

func (h *Handler) SlotsForDoctor(w http.ResponseWriter, r *http.Request) {
	date, err := scheduling.ParseDate(r.URL.Query().Get("date"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	slots, err := h.availability.ForDoctorOnDate(r.Context(), chi.URLParam(r, "doctorID"), date)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSlotDTOs(slots))
}

func (h *Handler) SlotsForDoctorRange(w http.ResponseWriter, r *http.Request) {
	from, err := scheduling.ParseDate(r.URL.Query().Get("start"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	to, err := scheduling.ParseDate(r.URL.Query().Get("end"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	slots, err := h.availability.ForDoctorInRange(r.Context(), chi.URLParam(r, "doctorID"), from, to)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSlotDTOs(slots))
}

func (h *Handler) SlotsBySpecialization(w http.ResponseWriter, r *http.Request) {
	date, err := scheduling.ParseDate(r.URL.Query().Get("date"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	slots, err := h.availability.BySpecialization(r.Context(), chi.URLParam(r, "specialization"), date)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSlotDTOs(slots))
}

func (h *Handler) SlotsForDate(w http.ResponseWriter, r *http.Request) {
	date, err := scheduling.ParseDate(chi.URLParam(r, "date"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	slots, err := h.availability.ForDate(r.Context(), date)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSlotDTOs(slots))
}

func (h *Handler) CheckSlot(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	date, err := scheduling.ParseDate(q.Get("date"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	available, err := h.bookings.IsSlotAvailable(r.Context(), q.Get("doctorId"), date, q.Get("time"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"available": available})
}

type bookRequest struct {
	DoctorID string `json:"doctorId"`
	Date     string `json:"date"`
	Time     string `json:"time"`
	Notes    string `json:"notes"`
}

func (h *Handler) Book(w http.ResponseWriter, r *http.Request) {
	var req bookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	date, err := scheduling.ParseDate(req.Date)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	// The caller is the patient; identity comes from the token, never
	// the request body.
	patientID, err := h.store.PatientIDForUser(r.Context(), middleware.UserID(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	a, err := h.bookings.Book(r.Context(), req.DoctorID, patientID, date, req.Time, req.Notes)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAppointmentDTO(a))
}

func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	a, err := h.bookings.Cancel(r.Context(), chi.URLParam(r, "appointmentID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAppointmentDTO(a))
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	a, err := h.bookings.UpdateStatus(r.Context(), chi.URLParam(r, "appointmentID"), req.Status)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAppointmentDTO(a))
}

func (h *Handler) GetAppointment(w http.ResponseWriter, r *http.Request) {
	a, err := h.bookings.Appointment(r.Context(), chi.URLParam(r, "appointmentID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAppointmentDTO(a))
}

// MyAppointments lists the calling patient's appointments: all by default,
// ?when=upcoming or ?when=past to filter.
func (h *Handler) MyAppointments(w http.ResponseWriter, r *http.Request) {
	patientID, err := h.store.PatientIDForUser(r.Context(), middleware.UserID(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	now := scheduling.DateOnly(timeNow())
	var appts []model.Appointment
	switch r.URL.Query().Get("when") {
	case "upcoming":
		appts, err = h.bookings.PatientUpcoming(r.Context(), patientID, now)
	case "past":
		appts, err = h.bookings.PatientPast(r.Context(), patientID, now)
	default:
		appts, err = h.bookings.PatientHistory(r.Context(), patientID)
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAppointmentDTOs(appts))
}

func (h *Handler) DoctorAppointments(w http.ResponseWriter, r *http.Request) {
	var date *time.Time
	if raw := r.URL.Query().Get("date"); raw != "" {
		d, err := scheduling.ParseDate(raw)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		date = &d
	}
	appts, err := h.bookings.DoctorAppointments(r.Context(), chi.URLParam(r, "doctorID"), date)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAppointmentDTOs(appts))
}
