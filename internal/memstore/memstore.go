// Package memstore is a mutex-guarded in-memory implementation of the
// storage ports. Service and handler tests run against it instead of
// Postgres; it mirrors the pgx store's semantics, including the atomic
// reserve and release paths and the typed errors.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"mediconnect-api/internal/model"
	"mediconnect-api/internal/scheduling"
)

type Store struct {
	mu sync.Mutex

	users         map[string]*model.User
	doctors       map[string]*model.Doctor
	patients      map[string]*model.Patient
	templates     map[string]*model.ScheduleTemplate // doctorID|day
	slots         map[string]*model.TimeSlot         // doctorID|date|start
	appointments  map[string]*model.Appointment
	refreshTokens map[string]*model.RefreshToken // by ID
}

func New() *Store {
	return &Store{
		users:         map[string]*model.User{},
		doctors:       map[string]*model.Doctor{},
		patients:      map[string]*model.Patient{},
		templates:     map[string]*model.ScheduleTemplate{},
		slots:         map[string]*model.TimeSlot{},
		appointments:  map[string]*model.Appointment{},
		refreshTokens: map[string]*model.RefreshToken{},
	}
}

func templateKey(doctorID string, day time.Weekday) string {
	return fmt.Sprintf("%s|%d", doctorID, day)
}

func slotKey(doctorID string, date time.Time, start string) string {
	return fmt.Sprintf("%s|%s|%s", doctorID, date.Format("2006-01-02"), start)
}

// --- users, doctors, patients ---

func (s *Store) CreateUser(_ context.Context, u *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Email == u.Email {
			return scheduling.Conflict("email already registered")
		}
	}
	now := time.Now()
	u.CreatedAt, u.UpdatedAt = now, now
	cp := *u
	s.users[u.ID] = &cp
	return nil
}

func (s *Store) UserByEmail(_ context.Context, email string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, scheduling.NotFound("user", email)
}

func (s *Store) UserByID(_ context.Context, id string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, scheduling.NotFound("user", id)
	}
	cp := *u
	return &cp, nil
}

func (s *Store) CreateDoctor(_ context.Context, d *model.Doctor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.doctors {
		if existing.UserID == d.UserID || existing.LicenseNumber == d.LicenseNumber {
			return scheduling.Conflict("doctor already registered")
		}
	}
	d.CreatedAt = time.Now()
	cp := *d
	s.doctors[d.ID] = &cp
	return nil
}

func (s *Store) Doctor(_ context.Context, id string) (*model.Doctor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.doctors[id]
	if !ok {
		return nil, scheduling.NotFound("doctor", id)
	}
	cp := *d
	return &cp, nil
}

func (s *Store) Doctors(_ context.Context) ([]model.Doctor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Doctor, 0, len(s.doctors))
	for _, d := range s.doctors {
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) DoctorIDForUser(_ context.Context, userID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.doctors {
		if d.UserID == userID {
			return d.ID, nil
		}
	}
	return "", scheduling.NotFound("doctor", "user "+userID)
}

func (s *Store) CreatePatient(_ context.Context, p *model.Patient) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.patients {
		if existing.UserID == p.UserID {
			return scheduling.Conflict("patient already registered")
		}
	}
	p.CreatedAt = time.Now()
	cp := *p
	s.patients[p.ID] = &cp
	return nil
}

func (s *Store) PatientIDForUser(_ context.Context, userID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.patients {
		if p.UserID == userID {
			return p.ID, nil
		}
	}
	return "", scheduling.NotFound("patient", "user "+userID)
}

// --- schedule templates ---

func (s *Store) UpsertTemplate(_ context.Context, t *model.ScheduleTemplate) (*model.ScheduleTemplate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	key := templateKey(t.DoctorID, t.DayOfWeek)
	if existing, ok := s.templates[key]; ok {
		existing.StartTime = t.StartTime
		existing.EndTime = t.EndTime
		existing.SlotDurationMinutes = t.SlotDurationMinutes
		existing.IsAvailable = t.IsAvailable
		existing.UpdatedAt = now
		cp := *existing
		return &cp, nil
	}
	cp := *t
	if cp.ID == "" {
		cp.ID = uuid.New().String()
	}
	cp.CreatedAt, cp.UpdatedAt = now, now
	s.templates[key] = &cp
	out := cp
	return &out, nil
}

func (s *Store) TemplatesByDoctor(_ context.Context, doctorID string) ([]model.ScheduleTemplate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.ScheduleTemplate
	for _, t := range s.templates {
		if t.DoctorID == doctorID {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DayOfWeek < out[j].DayOfWeek })
	return out, nil
}

func (s *Store) TemplateForDay(_ context.Context, doctorID string, day time.Weekday) (*model.ScheduleTemplate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.templates[templateKey(doctorID, day)]
	if !ok {
		return nil, scheduling.NotFound("schedule template", doctorID+"/"+day.String())
	}
	cp := *t
	return &cp, nil
}

func (s *Store) DayAvailable(_ context.Context, doctorID string, day time.Weekday) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.templates[templateKey(doctorID, day)]
	return ok && t.IsAvailable, nil
}

// --- time slots ---

func (s *Store) InsertSlot(_ context.Context, slot *model.TimeSlot) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := slotKey(slot.DoctorID, slot.SlotDate, slot.StartTime)
	if _, ok := s.slots[key]; ok {
		return false, nil
	}
	cp := *slot
	if cp.ID == "" {
		cp.ID = uuid.New().String()
	}
	s.slots[key] = &cp
	return true, nil
}

func (s *Store) SlotByKey(_ context.Context, doctorID string, date time.Time, start string) (*model.TimeSlot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	slot, ok := s.slots[slotKey(doctorID, date, start)]
	if !ok {
		return nil, scheduling.NotFound("time slot",
			fmt.Sprintf("%s/%s/%s", doctorID, date.Format("2006-01-02"), start))
	}
	cp := *slot
	return &cp, nil
}

func (s *Store) AvailableByDoctorAndDate(_ context.Context, doctorID string, date time.Time) ([]model.TimeSlot, error) {
	return s.selectSlots(func(sl *model.TimeSlot) bool {
		return sl.DoctorID == doctorID && sl.SlotDate.Equal(date) && open(sl)
	}), nil
}

func (s *Store) AvailableByDoctorAndRange(_ context.Context, doctorID string, from, to time.Time) ([]model.TimeSlot, error) {
	return s.selectSlots(func(sl *model.TimeSlot) bool {
		return sl.DoctorID == doctorID && !sl.SlotDate.Before(from) && !sl.SlotDate.After(to) && open(sl)
	}), nil
}

func (s *Store) AvailableBySpecializationAndDate(_ context.Context, specialization string, date time.Time) ([]model.TimeSlot, error) {
	s.mu.Lock()
	byDoctor := map[string]bool{}
	for id, d := range s.doctors {
		byDoctor[id] = d.Specialization == specialization
	}
	s.mu.Unlock()
	return s.selectSlots(func(sl *model.TimeSlot) bool {
		return byDoctor[sl.DoctorID] && sl.SlotDate.Equal(date) && open(sl)
	}), nil
}

func (s *Store) AvailableByDate(_ context.Context, date time.Time) ([]model.TimeSlot, error) {
	return s.selectSlots(func(sl *model.TimeSlot) bool {
		return sl.SlotDate.Equal(date) && open(sl)
	}), nil
}

func (s *Store) ExistsAvailable(_ context.Context, doctorID string, date time.Time, start string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sl, ok := s.slots[slotKey(doctorID, date, start)]
	return ok && open(sl), nil
}

func (s *Store) CountAvailable(_ context.Context, doctorID string, date time.Time) (int64, error) {
	slots, _ := s.AvailableByDoctorAndDate(context.Background(), doctorID, date)
	return int64(len(slots)), nil
}

func (s *Store) CountSlots(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.slots)), nil
}

func open(sl *model.TimeSlot) bool {
	return sl.IsAvailable && !sl.IsBooked
}

func (s *Store) selectSlots(keep func(*model.TimeSlot) bool) []model.TimeSlot {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.TimeSlot
	for _, sl := range s.slots {
		if keep(sl) {
			out = append(out, *sl)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].SlotDate.Equal(out[j].SlotDate) {
			return out[i].SlotDate.Before(out[j].SlotDate)
		}
		return out[i].StartTime < out[j].StartTime
	})
	return out
}

// --- appointments ---

// ReserveAndCreate mirrors the transactional path of the SQL store: the
// slot flip and the appointment insert happen under one lock, and the flip
// only succeeds when the slot is still available and unbooked.
func (s *Store) ReserveAndCreate(_ context.Context, a *model.Appointment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	slot, ok := s.slots[slotKey(a.DoctorID, a.Date, a.Time)]
	if !ok {
		return scheduling.NotFound("time slot",
			fmt.Sprintf("%s/%s/%s", a.DoctorID, a.Date.Format("2006-01-02"), a.Time))
	}
	if !open(slot) {
		return scheduling.Conflict("slot is not available")
	}
	slot.IsBooked = true

	now := time.Now()
	a.CreatedAt, a.UpdatedAt = now, now
	cp := *a
	s.appointments[a.ID] = &cp
	return nil
}

// PutAppointment seeds an appointment directly, bypassing slot
// reservation. Test setup only.
func (s *Store) PutAppointment(_ context.Context, a *model.Appointment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *a
	s.appointments[a.ID] = &cp
	return nil
}

func (s *Store) CancelAppointment(_ context.Context, id string) (*model.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.appointments[id]
	if !ok {
		return nil, scheduling.NotFound("appointment", id)
	}
	if a.Status != model.StatusPending && a.Status != model.StatusConfirmed {
		return nil, scheduling.Conflict(fmt.Sprintf("appointment is already %s", a.Status))
	}
	a.Status = model.StatusCancelled
	a.UpdatedAt = time.Now()
	if slot, ok := s.slots[slotKey(a.DoctorID, a.Date, a.Time)]; ok {
		slot.IsBooked = false
	}
	cp := *a
	return &cp, nil
}

func (s *Store) AppointmentByID(_ context.Context, id string) (*model.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.appointments[id]
	if !ok {
		return nil, scheduling.NotFound("appointment", id)
	}
	cp := *a
	return &cp, nil
}

func (s *Store) UpdateStatus(_ context.Context, id, from, to string) (*model.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.appointments[id]
	if !ok || a.Status != from {
		return nil, scheduling.Conflict(fmt.Sprintf("appointment is no longer %s", from))
	}
	a.Status = to
	a.UpdatedAt = time.Now()
	cp := *a
	return &cp, nil
}

func (s *Store) AppointmentsByPatient(_ context.Context, patientID string) ([]model.Appointment, error) {
	return s.selectAppointments(func(a *model.Appointment) bool {
		return a.PatientID == patientID
	}, true), nil
}

func (s *Store) UpcomingByPatient(_ context.Context, patientID string, from time.Time) ([]model.Appointment, error) {
	return s.selectAppointments(func(a *model.Appointment) bool {
		return a.PatientID == patientID && !a.Date.Before(from) && a.Status != model.StatusCancelled
	}, false), nil
}

func (s *Store) PastByPatient(_ context.Context, patientID string, before time.Time) ([]model.Appointment, error) {
	return s.selectAppointments(func(a *model.Appointment) bool {
		return a.PatientID == patientID && a.Date.Before(before)
	}, true), nil
}

func (s *Store) AppointmentsByDoctor(_ context.Context, doctorID string) ([]model.Appointment, error) {
	return s.selectAppointments(func(a *model.Appointment) bool {
		return a.DoctorID == doctorID
	}, true), nil
}

func (s *Store) AppointmentsByDoctorAndDate(_ context.Context, doctorID string, date time.Time) ([]model.Appointment, error) {
	return s.selectAppointments(func(a *model.Appointment) bool {
		return a.DoctorID == doctorID && a.Date.Equal(date)
	}, false), nil
}

func (s *Store) CountByStatus(_ context.Context, status string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, a := range s.appointments {
		if a.Status == status {
			n++
		}
	}
	return n, nil
}

func (s *Store) selectAppointments(keep func(*model.Appointment) bool, newestFirst bool) []model.Appointment {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Appointment
	for _, a := range s.appointments {
		if keep(a) {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if newestFirst {
			a, b = b, a
		}
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		return a.Time < b.Time
	})
	return out
}

// --- refresh tokens ---

func (s *Store) CreateRefreshToken(_ context.Context, userID, tokenHash string, expiresAt time.Time) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.New().String()
	s.refreshTokens[id] = &model.RefreshToken{
		ID: id, UserID: userID, TokenHash: tokenHash,
		ExpiresAt: expiresAt, CreatedAt: time.Now(),
	}
	return id, nil
}

func (s *Store) RefreshTokenByHash(_ context.Context, tokenHash string) (*model.RefreshToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rt := range s.refreshTokens {
		if rt.TokenHash == tokenHash {
			cp := *rt
			return &cp, nil
		}
	}
	return nil, scheduling.NotFound("refresh token", tokenHash[:8])
}

func (s *Store) RotateRefreshToken(_ context.Context, oldID, newID, userID, newHash string, newExpiry time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.refreshTokens[oldID]; ok {
		old.Revoked = true
		old.ReplacedBy = &newID
	}
	s.refreshTokens[newID] = &model.RefreshToken{
		ID: newID, UserID: userID, TokenHash: newHash,
		ExpiresAt: newExpiry, CreatedAt: time.Now(),
	}
	return nil
}

func (s *Store) RevokeAllRefreshTokens(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rt := range s.refreshTokens {
		if rt.UserID == userID {
			rt.Revoked = true
		}
	}
	return nil
}
