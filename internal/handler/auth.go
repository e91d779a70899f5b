package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/mhollis/chorequest/internal/auth"
	"github.com/mhollis/chorequest/internal/email"
	"github.com/mhollis/chorequest/internal/middleware"
	"github.com/mhollis/chorequest/internal/model"
	"github.com/mhollis/chorequest/internal/store"
)

const sessionTTL = 30 * 24 * time.Hour

type AuthHandler struct {
	users      *store.UserStore
	households *store.HouseholdStore
	profiles   *store.ProfileStore
	sessions   *store.SessionStore
	resets     *store.ResetTokenStore
	settings   *store.SettingsStore
	email      *email.Client
	secure     bool
	logger     *slog.Logger
}

func NewAuthHandler(
	us *store.UserStore,
	hs *store.HouseholdStore,
	ps *store.ProfileStore,
	ss *store.SessionStore,
	rs *store.ResetTokenStore,
	sets *store.SettingsStore,
	ec *email.Client,
	secureCookies bool,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		users:      us,
		households: hs,
		profiles:   ps,
		sessions:   ss,
		resets:     rs,
		settings:   sets,
		email:      ec,
		secure:     secureCookies,
		logger:     logger,
	}
}

type registerRequest struct {
	Email         string `json:"email"`
	Password      string `json:"password"`
	Name          string `json:"name"`
	HouseholdName string `json:"household_name"`
	JoinCode      string `json:"join_code"`
}

// Register handles POST /api/auth/register. Either household_name (create a
// new family) or join_code (join an existing one) must be set.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	req.Name = strings.TrimSpace(req.Name)
	req.HouseholdName = strings.TrimSpace(req.HouseholdName)
	req.JoinCode = strings.TrimSpace(strings.ToUpper(req.JoinCode))

	if req.Email == "" || !strings.Contains(req.Email, "@") {
		writeError(w, http.StatusBadRequest, "valid email is required")
		return
	}
	if len(req.Password) < 8 {
		writeError(w, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}
	if req.HouseholdName == "" && req.JoinCode == "" {
		writeError(w, http.StatusBadRequest, "household_name or join_code is required")
		return
	}

	existing, err := h.users.GetByEmail(req.Email)
	if err != nil {
		h.logger.Error("register lookup", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if existing != nil {
		writeError(w, http.StatusConflict, "an account with this email already exists")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	user, err := h.users.Create(req.Email, string(hash), req.Name)
	if err != nil {
		h.logger.Error("create user", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	var household *model.Household
	role := auth.RoleParent
	if req.JoinCode != "" {
		household, err = h.households.GetByJoinCode(req.JoinCode)
		if err != nil {
			h.logger.Error("join code lookup", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if household == nil {
			writeError(w, http.StatusNotFound, "join code not recognized")
			return
		}
		// Joiners come in as plain members until a parent promotes them.
		role = auth.RoleMember
	} else {
		household, err = h.households.Create(req.HouseholdName)
		if err != nil {
			h.logger.Error("create household", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if err := h.settings.SeedDefaults(household.ID); err != nil {
			h.logger.Error("seed settings", "error", err)
		}
	}

	if _, err := h.households.AddMember(household.ID, user.ID, role); err != nil {
		h.logger.Error("add member", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	profileName := req.Name
	if profileName == "" {
		profileName = req.Email
	}
	kind := model.ProfileKindParent
	if role != auth.RoleParent {
		kind = model.ProfileKindChild
	}
	profile, err := h.profiles.Create(household.ID, &user.ID, profileName, kind, "#3B82F6", "😀")
	if err != nil {
		h.logger.Error("create profile", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	sess, err := h.sessions.Create(user.ID, household.ID, sessionTTL)
	if err != nil {
		h.logger.Error("create session", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if err := h.sessions.SetActiveProfile(sess.ID, &profile.ID); err != nil {
		h.logger.Error("set active profile", "error", err)
	}
	h.setSessionCookie(w, sess.Token)

	writeJSON(w, http.StatusCreated, map[string]any{
		"user":      user,
		"household": household,
		"profile":   profile,
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))

	hash, err := h.users.GetPasswordHash(req.Email)
	if err != nil {
		h.logger.Error("login lookup", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	// Compare even when the account is missing so both paths cost the same.
	if hash == "" {
		hash = "$2a$10$0000000000000000000000uGZv7yS0yKkXq3T1r7D1O3gJ5cG1dW6"
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(req.Password)) != nil {
		writeError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}

	user, err := h.users.GetByEmail(req.Email)
	if err != nil || user == nil {
		writeError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}

	households, err := h.households.ListHouseholdsForUser(user.ID)
	if err != nil || len(households) == 0 {
		writeError(w, http.StatusUnauthorized, "no household for this account")
		return
	}

	sess, err := h.sessions.Create(user.ID, households[0].ID, sessionTTL)
	if err != nil {
		h.logger.Error("create session", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	if profile, err := h.profiles.GetForUser(households[0].ID, user.ID); err == nil && profile != nil {
		if err := h.sessions.SetActiveProfile(sess.ID, &profile.ID); err != nil {
			h.logger.Error("set active profile", "error", err)
		}
	}
	h.setSessionCookie(w, sess.Token)

	writeJSON(w, http.StatusOK, map[string]any{
		"user":      user,
		"household": households[0],
	})
}

// Logout handles POST /api/auth/logout.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ac, ok := auth.FromContext(r.Context())
	if ok {
		if err := h.sessions.Delete(ac.SessionID); err != nil {
			h.logger.Error("delete session", "error", err)
		}
	}
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
	w.WriteHeader(http.StatusNoContent)
}

type resetRequestBody struct {
	Email string `json:"email"`
}

// RequestPasswordReset handles POST /api/auth/reset-request. Always responds
// 202 so the endpoint cannot be used to probe for accounts.
func (h *AuthHandler) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req resetRequestBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))

	defer writeJSON(w, http.StatusAccepted, map[string]string{"status": "ok"})

	user, err := h.users.GetByEmail(req.Email)
	if err != nil || user == nil {
		return
	}

	token, err := h.resets.Create(req.Email)
	if err != nil {
		h.logger.Error("create reset token", "error", err)
		return
	}
	if err := h.email.SendPasswordReset(req.Email, token.Token); err != nil {
		h.logger.Error("send reset email", "error", err)
	}
}

type resetBody struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

// ResetPassword handles POST /api/auth/reset.
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if len(req.Password) < 8 {
		writeError(w, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}

	token, err := h.resets.Consume(req.Token)
	if err != nil {
		h.logger.Error("consume reset token", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if token == nil {
		writeError(w, http.StatusBadRequest, "invalid or expired token")
		return
	}

	user, err := h.users.GetByEmail(token.Email)
	if err != nil || user == nil {
		writeError(w, http.StatusBadRequest, "invalid or expired token")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if err := h.users.UpdatePassword(user.ID, string(hash)); err != nil {
		h.logger.Error("update password", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "password updated"})
}

// Me handles GET /api/auth/me.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	ac, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	user, err := h.users.GetByID(ac.UserID)
	if err != nil || user == nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	household, err := h.households.GetByID(ac.HouseholdID)
	if err != nil || household == nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	resp := map[string]any{
		"user":      user,
		"household": household,
		"role":      ac.Role,
	}
	if ac.ProfileID != 0 {
		if profile, err := h.profiles.GetByID(ac.ProfileID); err == nil && profile != nil {
			resp["profile"] = profile
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(sessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
}
