package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mediconnect-api/internal/auth"
	"mediconnect-api/internal/memstore"
	"mediconnect-api/internal/model"
	"mediconnect-api/internal/scheduling"
	"mediconnect-api/pkg/logging"
)

const testSecret = "test-secret"

func newTestServer(t *testing.T) (*memstore.Store, http.Handler) {
	t.Helper()
	ms := memstore.New()
	logger := logging.NewWithWriter("error", io.Discard)

	schedules := scheduling.NewScheduleService(ms, ms, logger)
	generator := scheduling.NewGenerator(ms, ms, ms, logger)
	availability := scheduling.NewAvailabilityService(ms, ms)
	bookings := scheduling.NewBookingService(ms, ms, ms, logger)

	h := New(ms, schedules, generator, availability, bookings, testSecret, logger)
	return ms, h.Routes(nil)
}

func doJSON(t *testing.T, srv http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	return out
}

// registerPatient creates a patient account through the API and returns
// its access token and user ID.
func registerPatient(t *testing.T, srv http.Handler, email string) (token, userID string) {
	t.Helper()
	rec := doJSON(t, srv, http.MethodPost, "/auth/register", "", map[string]any{
		"email": email, "password": "supersecret", "name": "Pat Doe",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	body := decodeBody(t, rec)
	return body["token"].(string), body["userId"].(string)
}

// seedDoctor plants a doctor with a weekday template and generated slots
// for 2026-09-07 (a Monday), 09:00-11:00 in 30-minute steps.
func seedDoctor(t *testing.T, ms *memstore.Store) string {
	t.Helper()
	ctx := context.Background()
	docID := uuid.New().String()
	require.NoError(t, ms.CreateDoctor(ctx, &model.Doctor{
		ID: docID, UserID: uuid.New().String(), Name: "Dr. Adams",
		Specialization: "Cardiology", LicenseNumber: "LIC-1", ConsultationFee: 150,
	}))

	date, err := scheduling.ParseDate("2026-09-07")
	require.NoError(t, err)
	_, err = ms.UpsertTemplate(ctx, &model.ScheduleTemplate{
		ID: uuid.New().String(), DoctorID: docID, DayOfWeek: date.Weekday(),
		StartTime: "09:00", EndTime: "11:00", SlotDurationMinutes: 30, IsAvailable: true,
	})
	require.NoError(t, err)

	g := scheduling.NewGenerator(ms, ms, ms, logging.NewWithWriter("error", io.Discard))
	_, err = g.Generate(ctx, docID, date, date)
	require.NoError(t, err)
	return docID
}

func TestHealth(t *testing.T) {
	_, srv := newTestServer(t)
	rec := doJSON(t, srv, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRegisterValidation(t *testing.T) {
	_, srv := newTestServer(t)

	cases := []struct {
		name string
		body map[string]any
	}{
		{"missing fields", map[string]any{"email": "a@b.c"}},
		{"short password", map[string]any{"email": "a@b.c", "password": "short", "name": "A"}},
		{"invalid role", map[string]any{"email": "a@b.c", "password": "supersecret", "name": "A", "role": "ADMIN"}},
		{"doctor without license", map[string]any{
			"email": "a@b.c", "password": "supersecret", "name": "A", "role": "DOCTOR",
			"specialization": "Cardiology",
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doJSON(t, srv, http.MethodPost, "/auth/register", "", tc.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	_, srv := newTestServer(t)
	registerPatient(t, srv, "dup@example.com")

	rec := doJSON(t, srv, http.MethodPost, "/auth/register", "", map[string]any{
		"email": "dup@example.com", "password": "supersecret", "name": "Other",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
	// the response must not confirm the address is registered
	assert.Equal(t, "registration failed", decodeBody(t, rec)["error"])
}

func TestRegisterDoctorCreatesProfile(t *testing.T) {
	ms, srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/auth/register", "", map[string]any{
		"email": "doc@example.com", "password": "supersecret", "name": "Dr. New",
		"role": "DOCTOR", "specialization": "Dermatology", "licenseNumber": "LIC-9",
		"consultationFee": 80.0,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	userID := decodeBody(t, rec)["userId"].(string)

	docID, err := ms.DoctorIDForUser(context.Background(), userID)
	require.NoError(t, err)
	doc, err := ms.Doctor(context.Background(), docID)
	require.NoError(t, err)
	assert.Equal(t, "Dermatology", doc.Specialization)
	assert.Equal(t, 80.0, doc.ConsultationFee)
}

func TestLogin(t *testing.T) {
	_, srv := newTestServer(t)
	registerPatient(t, srv, "pat@example.com")

	rec := doJSON(t, srv, http.MethodPost, "/auth/login", "", map[string]any{
		"email": "pat@example.com", "password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, srv, http.MethodPost, "/auth/login", "", map[string]any{
		"email": "nobody@example.com", "password": "supersecret",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, srv, http.MethodPost, "/auth/login", "", map[string]any{
		"email": "pat@example.com", "password": "supersecret",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.NotEmpty(t, body["token"])
	assert.Equal(t, model.RolePatient, body["role"])

	var refresh *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == "refresh_token" {
			refresh = c
		}
	}
	require.NotNil(t, refresh, "login sets the refresh cookie")
	assert.True(t, refresh.HttpOnly)
}

func TestRefreshRotation(t *testing.T) {
	_, srv := newTestServer(t)
	registerPatient(t, srv, "pat@example.com")

	rec := doJSON(t, srv, http.MethodPost, "/auth/login", "", map[string]any{
		"email": "pat@example.com", "password": "supersecret",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)

	refreshReq := func(cs []*http.Cookie) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/auth/refresh", nil)
		for _, c := range cs {
			req.AddCookie(c)
		}
		out := httptest.NewRecorder()
		srv.ServeHTTP(out, req)
		return out
	}

	first := refreshReq(cookies)
	require.Equal(t, http.StatusOK, first.Code, first.Body.String())
	assert.NotEmpty(t, decodeBody(t, first)["token"])

	// the old refresh token is single-use
	replay := refreshReq(cookies)
	assert.Equal(t, http.StatusUnauthorized, replay.Code)

	// the rotated one still works
	second := refreshReq(first.Result().Cookies())
	assert.Equal(t, http.StatusOK, second.Code)
}

func TestRefreshWithoutCookie(t *testing.T) {
	_, srv := newTestServer(t)
	rec := doJSON(t, srv, http.MethodPost, "/auth/refresh", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAPIRequiresAuth(t *testing.T) {
	_, srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodGet, "/api/doctors", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, srv, http.MethodGet, "/api/doctors", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGenerateSlotsRequiresAdmin(t *testing.T) {
	ms, srv := newTestServer(t)
	docID := seedDoctor(t, ms)
	patientToken, _ := registerPatient(t, srv, "pat@example.com")

	body := map[string]any{"doctorId": docID, "startDate": "2026-09-14", "endDate": "2026-09-14"}

	rec := doJSON(t, srv, http.MethodPost, "/api/admin/generate-slots", patientToken, body)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	adminToken, err := auth.MakeToken(uuid.New().String(), model.RoleAdmin, testSecret)
	require.NoError(t, err)
	rec = doJSON(t, srv, http.MethodPost, "/api/admin/generate-slots", adminToken, body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	// 2026-09-14 is the next Monday, same template: four 30-minute slots
	assert.Equal(t, float64(4), decodeBody(t, rec)["slotsCreated"])
}

func TestBookingFlow(t *testing.T) {
	ms, srv := newTestServer(t)
	docID := seedDoctor(t, ms)
	token, _ := registerPatient(t, srv, "pat@example.com")

	// browse availability
	rec := doJSON(t, srv, http.MethodGet, "/api/slots/"+docID+"?date=2026-09-07", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var slots []map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&slots))
	require.Len(t, slots, 4)
	assert.Equal(t, "Dr. Adams", slots[0]["doctorName"])

	// check then book
	rec = doJSON(t, srv, http.MethodGet,
		"/api/slots/check?doctorId="+docID+"&date=2026-09-07&time=09:00", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decodeBody(t, rec)["available"])

	rec = doJSON(t, srv, http.MethodPost, "/api/appointments/book", token, map[string]any{
		"doctorId": docID, "date": "2026-09-07", "time": "09:00", "notes": "first visit",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	booked := decodeBody(t, rec)
	assert.Equal(t, model.StatusPending, booked["status"])
	assert.Equal(t, 150.0, booked["consultationFee"])
	apptID := booked["id"].(string)

	// the same slot cannot be booked twice
	rec = doJSON(t, srv, http.MethodPost, "/api/appointments/book", token, map[string]any{
		"doctorId": docID, "date": "2026-09-07", "time": "09:00",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	// confirm, then cancel
	rec = doJSON(t, srv, http.MethodPut, "/api/appointments/"+apptID+"/status", token,
		map[string]any{"status": "CONFIRMED"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, model.StatusConfirmed, decodeBody(t, rec)["status"])

	rec = doJSON(t, srv, http.MethodPut, "/api/appointments/"+apptID+"/cancel", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, model.StatusCancelled, decodeBody(t, rec)["status"])

	// cancellation released the slot
	rec = doJSON(t, srv, http.MethodGet,
		"/api/slots/check?doctorId="+docID+"&date=2026-09-07&time=09:00", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decodeBody(t, rec)["available"])
}

func TestBookingErrorStatuses(t *testing.T) {
	ms, srv := newTestServer(t)
	docID := seedDoctor(t, ms)
	token, _ := registerPatient(t, srv, "pat@example.com")

	// malformed date
	rec := doJSON(t, srv, http.MethodPost, "/api/appointments/book", token, map[string]any{
		"doctorId": docID, "date": "07.09.2026", "time": "09:00",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// unknown doctor
	rec = doJSON(t, srv, http.MethodPost, "/api/appointments/book", token, map[string]any{
		"doctorId": "no-such-doctor", "date": "2026-09-07", "time": "09:00",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// no slot at that time
	rec = doJSON(t, srv, http.MethodPost, "/api/appointments/book", token, map[string]any{
		"doctorId": docID, "date": "2026-09-07", "time": "22:00",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateStatusCancelledRejected(t *testing.T) {
	ms, srv := newTestServer(t)
	docID := seedDoctor(t, ms)
	token, _ := registerPatient(t, srv, "pat@example.com")

	rec := doJSON(t, srv, http.MethodPost, "/api/appointments/book", token, map[string]any{
		"doctorId": docID, "date": "2026-09-07", "time": "09:00",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	apptID := decodeBody(t, rec)["id"].(string)

	rec = doJSON(t, srv, http.MethodPut, "/api/appointments/"+apptID+"/status", token,
		map[string]any{"status": "CANCELLED"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMyAppointments(t *testing.T) {
	ms, srv := newTestServer(t)
	docID := seedDoctor(t, ms)
	token, _ := registerPatient(t, srv, "pat@example.com")

	rec := doJSON(t, srv, http.MethodPost, "/api/appointments/book", token, map[string]any{
		"doctorId": docID, "date": "2026-09-07", "time": "09:30",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	// pin "today" so upcoming/past are deterministic
	restore := timeNow
	timeNow = func() time.Time { return time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC) }
	defer func() { timeNow = restore }()

	rec = doJSON(t, srv, http.MethodGet, "/api/appointments/my?when=upcoming", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var upcoming []map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&upcoming))
	require.Len(t, upcoming, 1)
	assert.Equal(t, "2026-09-07", upcoming[0]["date"])

	rec = doJSON(t, srv, http.MethodGet, "/api/appointments/my?when=past", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var past []map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&past))
	assert.Empty(t, past)
}

func TestSetScheduleEndpoint(t *testing.T) {
	ms, srv := newTestServer(t)
	docID := seedDoctor(t, ms)
	token, _ := registerPatient(t, srv, "pat@example.com")

	rec := doJSON(t, srv, http.MethodPut, "/api/schedules/"+docID, token, map[string]any{
		"dayOfWeek": "Tuesday", "startTime": "10:00", "endTime": "12:00",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decodeBody(t, rec)
	assert.Equal(t, "Tuesday", body["dayOfWeek"])
	// duration defaults to 30
	assert.Equal(t, float64(30), body["slotDurationMinutes"])

	rec = doJSON(t, srv, http.MethodPut, "/api/schedules/"+docID, token, map[string]any{
		"dayOfWeek": "Noday", "startTime": "10:00", "endTime": "12:00",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, srv, http.MethodPut, "/api/schedules/"+docID, token, map[string]any{
		"dayOfWeek": "Tuesday", "startTime": "12:00", "endTime": "10:00",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListDoctors(t *testing.T) {
	ms, srv := newTestServer(t)
	docID := seedDoctor(t, ms)
	token, _ := registerPatient(t, srv, "pat@example.com")

	rec := doJSON(t, srv, http.MethodGet, "/api/doctors", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var doctors []map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&doctors))
	require.Len(t, doctors, 1)
	assert.Equal(t, docID, doctors[0]["id"])

	rec = doJSON(t, srv, http.MethodGet, "/api/doctors/"+docID, token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, srv, http.MethodGet, "/api/doctors/missing", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
