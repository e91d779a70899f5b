// Package server wires stores, services, and handlers into the HTTP router.
package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/mhollis/chorequest/internal/badge"
	"github.com/mhollis/chorequest/internal/email"
	"github.com/mhollis/chorequest/internal/handler"
	"github.com/mhollis/chorequest/internal/middleware"
	"github.com/mhollis/chorequest/internal/points"
	"github.com/mhollis/chorequest/internal/push"
	"github.com/mhollis/chorequest/internal/storage"
	"github.com/mhollis/chorequest/internal/store"
	"github.com/mhollis/chorequest/internal/streak"
	"github.com/mhollis/chorequest/internal/task"
	ws "github.com/mhollis/chorequest/internal/websocket"
)

// Config carries the external service settings the server needs.
type Config struct {
	BaseURL         string
	SecureCookies   bool
	PostmarkToken   string
	EmailFrom       string
	VAPIDPublicKey  string
	VAPIDPrivateKey string
	PushSubscriber  string
	Storage         storage.Config
}

type Server struct {
	db          *sql.DB
	hub         *ws.Hub
	authH       *handler.AuthHandler
	profileH    *handler.ProfileHandler
	householdH  *handler.HouseholdHandler
	taskH       *handler.TaskHandler
	rewardH     *handler.RewardHandler
	badgeH      *handler.BadgeHandler
	notifH      *handler.NotificationHandler
	pushH       *handler.PushHandler
	proofH      *handler.ProofHandler
	sessions    *store.SessionStore
	households  *store.HouseholdStore
	profiles    *store.ProfileStore
	resets      *store.ResetTokenStore
	taskService *task.Service
	rateLimiter *middleware.RateLimiter
	logger      *slog.Logger
}

func New(db *sql.DB, cfg Config, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	userStore := store.NewUserStore(db)
	householdStore := store.NewHouseholdStore(db)
	profileStore := store.NewProfileStore(db)
	sessionStore := store.NewSessionStore(db)
	resetStore := store.NewResetTokenStore(db)
	settingsStore := store.NewSettingsStore(db)
	taskStore := store.NewTaskStore(db)
	rewardStore := store.NewRewardStore(db)
	streakStore := store.NewStreakStore(db)
	badgeStore := store.NewBadgeStore(db)
	notifStore := store.NewNotificationStore(db)
	pushStore := store.NewPushStore(db)

	emailClient := email.NewClient(cfg.PostmarkToken, cfg.EmailFrom, cfg.BaseURL)
	pushService := push.NewService(cfg.VAPIDPublicKey, cfg.VAPIDPrivateKey, cfg.PushSubscriber)
	notifier := push.NewNotifier(pushService, pushStore, logger.With("component", "push"))
	proofStore := storage.NewProofStore(cfg.Storage)

	tracker := streak.NewTracker(streakStore, logger.With("component", "streak"))
	evaluator := badge.NewEvaluator(badgeStore, streakStore, logger.With("component", "badge"))
	taskService := task.NewService(taskStore, settingsStore, tracker, evaluator, logger.With("component", "task"))
	pointsService := points.NewService(db, logger.With("component", "points"))

	rateLimiter := middleware.NewRateLimiter()

	return &Server{
		db:  db,
		hub: hub,
		authH: handler.NewAuthHandler(
			userStore, householdStore, profileStore, sessionStore, resetStore, settingsStore,
			emailClient, cfg.SecureCookies, logger.With("component", "auth"),
		),
		profileH:    handler.NewProfileHandler(profileStore, sessionStore, rateLimiter, logger.With("component", "profile")),
		householdH:  handler.NewHouseholdHandler(householdStore, settingsStore, emailClient, logger.With("component", "household")),
		taskH:       handler.NewTaskHandler(taskStore, profileStore, settingsStore, notifStore, taskService, notifier, hub, logger.With("component", "task")),
		rewardH:     handler.NewRewardHandler(rewardStore, settingsStore, notifStore, pointsService, notifier, hub, logger.With("component", "reward")),
		badgeH:      handler.NewBadgeHandler(badgeStore, streakStore, profileStore, logger.With("component", "badge")),
		notifH:      handler.NewNotificationHandler(notifStore, profileStore, logger.With("component", "notification")),
		pushH:       handler.NewPushHandler(pushStore, pushService, logger.With("component", "push")),
		proofH:      handler.NewProofHandler(proofStore, taskStore, logger.With("component", "proof")),
		sessions:    sessionStore,
		households:  householdStore,
		profiles:    profileStore,
		resets:      resetStore,
		taskService: taskService,
		rateLimiter: rateLimiter,
		logger:      logger,
	}
}

// SessionStore returns the session store for cleanup tasks.
func (s *Server) SessionStore() *store.SessionStore {
	return s.sessions
}

// ResetTokenStore returns the reset token store for cleanup tasks.
func (s *Server) ResetTokenStore() *store.ResetTokenStore {
	return s.resets
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

// TaskService returns the task service for scheduled jobs.
func (s *Server) TaskService() *task.Service {
	return s.taskService
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes
	outerMux.HandleFunc("POST /api/auth/register", s.rateLimited(s.authH.Register))
	outerMux.HandleFunc("POST /api/auth/login", s.rateLimited(s.authH.Login))
	outerMux.HandleFunc("POST /api/auth/reset-request", s.rateLimited(s.authH.RequestPasswordReset))
	outerMux.HandleFunc("POST /api/auth/reset", s.rateLimited(s.authH.ResetPassword))
	outerMux.HandleFunc("GET /health", s.healthHandler)

	// Everything else requires a session
	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	authMiddleware := middleware.RequireAuth(s.sessions, s.households, s.profiles)
	outerMux.Handle("/", authMiddleware(protectedMux))

	return middleware.RequestLogger(s.logger.With("component", "http"))(outerMux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := s.db.Ping(); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]string{"status": "degraded"})
		return
	}
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) rateLimited(h http.HandlerFunc) http.HandlerFunc {
	keyFunc := func(r *http.Request) string {
		return middleware.RealIP(r)
	}
	rl := middleware.RateLimit(s.rateLimiter, keyFunc, 10, time.Minute)
	return func(w http.ResponseWriter, r *http.Request) {
		rl(http.HandlerFunc(h)).ServeHTTP(w, r)
	}
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	parent := func(h http.HandlerFunc) http.Handler {
		return middleware.RequireParent(h)
	}

	// Session
	mux.HandleFunc("POST /api/auth/logout", s.authH.Logout)
	mux.HandleFunc("GET /api/auth/me", s.authH.Me)

	// Household
	mux.HandleFunc("GET /api/household", s.householdH.Get)
	mux.Handle("PUT /api/household", parent(s.householdH.Update))
	mux.Handle("POST /api/household/rotate-code", parent(s.householdH.RotateJoinCode))
	mux.HandleFunc("GET /api/household/members", s.householdH.ListMembers)
	mux.Handle("PUT /api/household/members/{id}", parent(s.householdH.UpdateMemberRole))
	mux.Handle("POST /api/household/invite", parent(s.householdH.Invite))
	mux.HandleFunc("GET /api/household/settings", s.householdH.GetSettings)
	mux.Handle("PUT /api/household/settings", parent(s.householdH.UpdateSetting))

	// Profiles
	mux.HandleFunc("GET /api/profiles", s.profileH.List)
	mux.Handle("POST /api/profiles", parent(s.profileH.Create))
	mux.Handle("PUT /api/profiles/order", parent(s.profileH.Reorder))
	mux.Handle("PUT /api/profiles/{id}", parent(s.profileH.Update))
	mux.Handle("DELETE /api/profiles/{id}", parent(s.profileH.Delete))
	mux.Handle("PUT /api/profiles/{id}/pin", parent(s.profileH.SetPIN))
	mux.HandleFunc("POST /api/profiles/{id}/select", s.profileH.Select)
	mux.HandleFunc("GET /api/profiles/{id}/badges", s.badgeH.Earned)
	mux.HandleFunc("GET /api/profiles/{id}/streak", s.badgeH.Streak)

	// Tasks
	mux.Handle("POST /api/tasks", parent(s.taskH.Create))
	mux.HandleFunc("GET /api/tasks", s.taskH.List)
	mux.HandleFunc("GET /api/tasks/{id}", s.taskH.Get)
	mux.Handle("PUT /api/tasks/{id}", parent(s.taskH.Update))
	mux.Handle("DELETE /api/tasks/{id}", parent(s.taskH.Delete))
	mux.HandleFunc("POST /api/tasks/{id}/status", s.taskH.SetStatus)
	mux.HandleFunc("POST /api/tasks/{id}/proof", s.proofH.Upload)

	// Rewards and claims
	mux.Handle("POST /api/rewards", parent(s.rewardH.Create))
	mux.HandleFunc("GET /api/rewards", s.rewardH.List)
	mux.Handle("PUT /api/rewards/{id}", parent(s.rewardH.Update))
	mux.Handle("DELETE /api/rewards/{id}", parent(s.rewardH.Delete))
	mux.HandleFunc("POST /api/rewards/{id}/claim", s.rewardH.Claim)
	mux.HandleFunc("GET /api/claims", s.rewardH.ListClaims)
	mux.Handle("POST /api/claims/{id}/approve", parent(s.rewardH.Approve))
	mux.Handle("POST /api/claims/{id}/reject", parent(s.rewardH.Reject))

	// Points
	mux.HandleFunc("GET /api/points/balance", s.rewardH.Balance)
	mux.HandleFunc("GET /api/points/leaderboard", s.rewardH.Leaderboard)

	// Badges
	mux.HandleFunc("GET /api/badges", s.badgeH.Catalog)

	// Notifications
	mux.HandleFunc("GET /api/notifications", s.notifH.List)
	mux.HandleFunc("POST /api/notifications/{id}/read", s.notifH.MarkRead)

	// Push
	mux.HandleFunc("GET /api/push/vapid-key", s.pushH.VAPIDKey)
	mux.HandleFunc("POST /api/push/subscribe", s.pushH.Subscribe)
	mux.HandleFunc("GET /api/push/subscriptions", s.pushH.List)
	mux.HandleFunc("DELETE /api/push/subscriptions/{id}", s.pushH.Unsubscribe)

	// WebSocket
	mux.HandleFunc("GET /ws", ws.Handle(s.hub, s.logger.With("component", "websocket")))
}
