package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"mediconnect-api/internal/auth"
	"mediconnect-api/internal/model"
	"mediconnect-api/internal/scheduling"
)

const refreshTokenTTL = 7 * 24 * time.Hour

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Role     string `json:"role"`

	// Doctor-only fields.
	Specialization  string  `json:"specialization"`
	LicenseNumber   string  `json:"licenseNumber"`
	YearsExperience int     `json:"yearsExperience"`
	ConsultationFee float64 `json:"consultationFee"`
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if req.Email == "" || req.Password == "" || req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "email, password and name required"})
		return
	}
	if len(req.Password) < 8 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "password too short"})
		return
	}
	role := req.Role
	switch role {
	case "":
		role = model.RolePatient
	case model.RolePatient, model.RoleDoctor:
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid role"})
		return
	}
	if role == model.RoleDoctor && (req.Specialization == "" || req.LicenseNumber == "") {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "specialization and license number required for doctors"})
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	u := &model.User{
		ID:           uuid.New().String(),
		Email:        req.Email,
		PasswordHash: hash,
		Name:         req.Name,
		Role:         role,
	}
	if err := h.store.CreateUser(r.Context(), u); err != nil {
		// unique violation = dup email, but don't reveal that
		if scheduling.IsConflict(err) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "registration failed"})
			return
		}
		h.writeError(w, r, err)
		return
	}

	switch role {
	case model.RoleDoctor:
		err = h.store.CreateDoctor(r.Context(), &model.Doctor{
			ID:              uuid.New().String(),
			UserID:          u.ID,
			Name:            req.Name,
			Specialization:  req.Specialization,
			LicenseNumber:   req.LicenseNumber,
			YearsExperience: req.YearsExperience,
			ConsultationFee: req.ConsultationFee,
		})
	case model.RolePatient:
		err = h.store.CreatePatient(r.Context(), &model.Patient{
			ID:     uuid.New().String(),
			UserID: u.ID,
			Name:   req.Name,
		})
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	tok, err := auth.MakeToken(u.ID, u.Role, h.secret)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"userId": u.ID, "token": tok})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" || req.Password == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "email and password required"})
		return
	}

	u, err := h.store.UserByEmail(r.Context(), req.Email)
	if err != nil || !auth.CheckPassword(u.PasswordHash, req.Password) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
		return
	}

	tok, err := auth.MakeToken(u.ID, u.Role, h.secret)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	rawRefresh, tokenHash, err := auth.GenerateRefreshToken()
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if _, err := h.store.CreateRefreshToken(r.Context(), u.ID, tokenHash, time.Now().Add(refreshTokenTTL)); err != nil {
		h.writeError(w, r, err)
		return
	}
	setRefreshCookie(w, rawRefresh)

	writeJSON(w, http.StatusOK, map[string]string{
		"userId": u.ID, "name": u.Name, "role": u.Role, "token": tok,
	})
}

func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	c, err := r.Cookie("refresh_token")
	if err != nil || c.Value == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing refresh token"})
		return
	}

	rt, err := h.store.RefreshTokenByHash(r.Context(), auth.HashRefreshToken(c.Value))
	if err != nil || rt.Revoked || time.Now().After(rt.ExpiresAt) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid refresh token"})
		return
	}

	u, err := h.store.UserByID(r.Context(), rt.UserID)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid refresh token"})
		return
	}

	// rotate: old token is single-use
	newRaw, newHash, err := auth.GenerateRefreshToken()
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	newID := uuid.New().String()
	if err := h.store.RotateRefreshToken(r.Context(), rt.ID, newID, rt.UserID, newHash, time.Now().Add(refreshTokenTTL)); err != nil {
		h.writeError(w, r, err)
		return
	}
	setRefreshCookie(w, newRaw)

	tok, err := auth.MakeToken(u.ID, u.Role, h.secret)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": tok})
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie("refresh_token"); err == nil && c.Value != "" {
		if rt, err := h.store.RefreshTokenByHash(r.Context(), auth.HashRefreshToken(c.Value)); err == nil {
			_ = h.store.RevokeAllRefreshTokens(r.Context(), rt.UserID)
		}
	}
	http.SetCookie(w, &http.Cookie{
		Name: "refresh_token", Value: "", Path: "/auth/", HttpOnly: true, MaxAge: -1,
	})
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

func setRefreshCookie(w http.ResponseWriter, raw string) {
	http.SetCookie(w, &http.Cookie{
		Name:     "refresh_token",
		Value:    raw,
		Path:     "/auth/",
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   int(refreshTokenTTL / time.Second),
	})
}
