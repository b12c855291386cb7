package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"mediconnect-api/internal/metrics"
	"mediconnect-api/internal/middleware"
	"mediconnect-api/internal/model"
	"mediconnect-api/internal/scheduling"
	"mediconnect-api/pkg/logging"
)

// Accounts is what the HTTP layer needs from the backing store beyond the
// scheduling services: user accounts, profile resolution and refresh
// tokens. Both the pgx store and the in-memory store satisfy it.
type Accounts interface {
	CreateUser(ctx context.Context, u *model.User) error
	UserByEmail(ctx context.Context, email string) (*model.User, error)
	UserByID(ctx context.Context, id string) (*model.User, error)
	CreateDoctor(ctx context.Context, d *model.Doctor) error
	CreatePatient(ctx context.Context, p *model.Patient) error
	Doctor(ctx context.Context, id string) (*model.Doctor, error)
	Doctors(ctx context.Context) ([]model.Doctor, error)
	PatientIDForUser(ctx context.Context, userID string) (string, error)
	CreateRefreshToken(ctx context.Context, userID, tokenHash string, expiresAt time.Time) (string, error)
	RefreshTokenByHash(ctx context.Context, tokenHash string) (*model.RefreshToken, error)
	RotateRefreshToken(ctx context.Context, oldID, newID, userID, newHash string, newExpiry time.Time) error
	RevokeAllRefreshTokens(ctx context.Context, userID string) error
}

// Handler binds the scheduling services to the HTTP/JSON API.
type Handler struct {
	store        Accounts
	schedules    *scheduling.ScheduleService
	generator    *scheduling.Generator
	availability *scheduling.AvailabilityService
	bookings     *scheduling.BookingService
	secret       string
	logger       *logging.Logger
}

func New(st Accounts, schedules *scheduling.ScheduleService, generator *scheduling.Generator,
	availability *scheduling.AvailabilityService, bookings *scheduling.BookingService,
	secret string, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		store:        st,
		schedules:    schedules,
		generator:    generator,
		availability: availability,
		bookings:     bookings,
		secret:       secret,
		logger:       logger,
	}
}

// Routes assembles the router. Auth endpoints are rate limited; /api is
// behind JWT auth.
func (h *Handler) Routes(rl *middleware.RateLimiter) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Group(func(pub chi.Router) {
		if rl != nil {
			pub.Use(middleware.RateLimit(rl))
		}
		pub.Post("/auth/register", h.Register)
		pub.Post("/auth/login", h.Login)
		pub.Post("/auth/refresh", h.Refresh)
		pub.Post("/auth/logout", h.Logout)
	})

	r.Route("/api", func(api chi.Router) {
		api.Use(middleware.Auth(h.secret))

		api.Get("/doctors", h.ListDoctors)
		api.Get("/doctors/{doctorID}", h.GetDoctor)

		api.Get("/schedules/{doctorID}", h.GetSchedule)
		api.Put("/schedules/{doctorID}", h.SetSchedule)
		api.Post("/schedules/{doctorID}/default", h.CreateDefaultSchedule)

		api.With(middleware.RequireRole(model.RoleAdmin)).
			Post("/admin/generate-slots", h.GenerateSlots)

		api.Get("/slots/{doctorID}", h.SlotsForDoctor)
		api.Get("/slots/{doctorID}/range", h.SlotsForDoctorRange)
		api.Get("/slots/specialization/{specialization}", h.SlotsBySpecialization)
		api.Get("/slots/date/{date}", h.SlotsForDate)
		api.Get("/slots/check", h.CheckSlot)

		api.Post("/appointments/book", h.Book)
		api.Put("/appointments/{appointmentID}/cancel", h.Cancel)
		api.Put("/appointments/{appointmentID}/status", h.UpdateStatus)
		api.Get("/appointments/my", h.MyAppointments)
		api.Get("/appointments/doctor/{doctorID}", h.DoctorAppointments)
		api.Get("/appointments/{appointmentID}", h.GetAppointment)
	})

	return r
}
