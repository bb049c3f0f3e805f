package controllers

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/approvalflow/approvalflow/internal/config"
	"github.com/approvalflow/approvalflow/internal/util"
	"github.com/approvalflow/approvalflow/pkg/approvalflow/core"
	"github.com/approvalflow/approvalflow/pkg/approvalflow/domain"
	"github.com/approvalflow/approvalflow/pkg/approvalflow/models"
)

// UserRepo defines the user persistence the auth layer needs, matching
// repository.UserRepository.
type UserRepo interface {
	FindBySessionID(sessionID string, now time.Time) (*domain.User, error)
	FindByApiKey(apiKey string) (*domain.User, error)
	FindByUsername(username string) (*domain.User, error)
	FindById(id int64) (*domain.User, error)
	FindAll() (*[]domain.User, error)
	Save(user *domain.User) (int64, error)
	CountActions(userID int64) (int, error)
	DeleteById(id int64) error
	UpdateSession(userID int64, sessionID string, expiry time.Time) error
	ClearSessionBySessionID(sessionID string) error
}

type AuthController struct {
	UserRepo UserRepo
}

func NewAuthController(userRepo UserRepo) *AuthController {
	return &AuthController{UserRepo: userRepo}
}

func (c *AuthController) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/login", c.handleLogin)
	mux.HandleFunc("POST /api/logout", c.RequireAuth(c.handleLogout))
}

// RequireAuth resolves the acting user from the session cookie or the
// X-API-Key header and stores the username in the request context. Every
// engine operation receives that user explicitly; there is no ambient
// current-user state past this middleware.
func (c *AuthController) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cookie, err := r.Cookie("sessionId"); err == nil && cookie.Value != "" {
			u, err := c.UserRepo.FindBySessionID(cookie.Value, time.Now().UTC())
			if err == nil && u != nil {
				ctx := context.WithValue(r.Context(), core.CtxKeyUsername, u.Username)
				next(w, r.WithContext(ctx))
				return
			}
		}
		apiKey := r.Header.Get("X-API-Key")
		if apiKey != "" {
			u, err := c.UserRepo.FindByApiKey(apiKey)
			if err == nil && u != nil {
				ctx := context.WithValue(r.Context(), core.CtxKeyUsername, u.Username)
				next(w, r.WithContext(ctx))
				return
			}
		}
		util.WriteJSONError(w, http.StatusUnauthorized, "Unauthorized")
	}
}

// actingUser loads the authenticated user stored in context by RequireAuth.
func (c *AuthController) actingUser(r *http.Request) (*domain.User, error) {
	username, _ := r.Context().Value(core.CtxKeyUsername).(string)
	if username == "" {
		return nil, nil
	}
	return c.UserRepo.FindByUsername(username)
}

func (c *AuthController) handleLogin(w http.ResponseWriter, r *http.Request) {
	req, err := util.DecodeJSONBody[models.LoginRequest](r)
	if err != nil {
		util.WriteJSONError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	u, err := c.UserRepo.FindByUsername(req.Username)
	if err != nil || u == nil {
		util.WriteJSONError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if u.Enabled.Valid && !u.Enabled.Bool {
		util.WriteJSONError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(req.Password)); err != nil {
		util.WriteJSONError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	sessionID := newSessionID()
	expiryHours := config.GetSystemSettingInteger(config.WEB_SESSION_EXPIRY_HOURS)
	expiry := time.Now().UTC().Add(time.Duration(expiryHours) * time.Hour)
	if err := c.UserRepo.UpdateSession(u.ID, sessionID, expiry); err != nil {
		slog.Error("Failed to store session", "error", err, "user", u.Username)
		util.WriteJSONError(w, http.StatusInternalServerError, "failed to create session")
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     "sessionId",
		Value:    sessionID,
		Path:     "/",
		Expires:  expiry,
		HttpOnly: true,
	})
	util.WriteJSONResponse(w, http.StatusOK, models.LoginResponse{SessionID: sessionID})
}

func (c *AuthController) handleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie("sessionId"); err == nil && cookie.Value != "" {
		if err := c.UserRepo.ClearSessionBySessionID(cookie.Value); err != nil {
			slog.Error("Failed to clear session", "error", err)
		}
	}
	http.SetCookie(w, &http.Cookie{Name: "sessionId", Value: "", Path: "/", MaxAge: -1})
	w.WriteHeader(http.StatusNoContent)
}

func newSessionID() string {
	b := make([]byte, 32)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
