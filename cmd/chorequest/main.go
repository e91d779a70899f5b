package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/joho/godotenv"

	"github.com/mhollis/chorequest/internal/database"
	"github.com/mhollis/chorequest/internal/logging"
	"github.com/mhollis/chorequest/internal/server"
	"github.com/mhollis/chorequest/internal/storage"
)

func main() {
	// Missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	logger := logging.Setup(os.Getenv("CHOREQUEST_LOG_LEVEL"), os.Getenv("CHOREQUEST_LOG_FORMAT"))

	port := os.Getenv("CHOREQUEST_PORT")
	if port == "" {
		port = "8080"
	}

	dbPath := os.Getenv("CHOREQUEST_DB_PATH")
	if dbPath == "" {
		dbPath = "chorequest.db"
	}

	baseURL := os.Getenv("CHOREQUEST_BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:" + port
	}

	db, err := database.Open(dbPath)
	if err != nil {
		logger.Error("open database", "path", dbPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	cfg := server.Config{
		BaseURL:         baseURL,
		SecureCookies:   os.Getenv("CHOREQUEST_SECURE_COOKIES") == "true",
		PostmarkToken:   os.Getenv("CHOREQUEST_POSTMARK_TOKEN"),
		EmailFrom:       os.Getenv("CHOREQUEST_EMAIL_FROM"),
		VAPIDPublicKey:  os.Getenv("CHOREQUEST_VAPID_PUBLIC_KEY"),
		VAPIDPrivateKey: os.Getenv("CHOREQUEST_VAPID_PRIVATE_KEY"),
		PushSubscriber:  os.Getenv("CHOREQUEST_PUSH_SUBSCRIBER"),
		Storage: storage.Config{
			Endpoint:      os.Getenv("CHOREQUEST_S3_ENDPOINT"),
			Bucket:        os.Getenv("CHOREQUEST_S3_BUCKET"),
			Region:        os.Getenv("CHOREQUEST_S3_REGION"),
			AccessKey:     os.Getenv("CHOREQUEST_S3_ACCESS_KEY"),
			SecretKey:     os.Getenv("CHOREQUEST_S3_SECRET_KEY"),
			PublicBaseURL: os.Getenv("CHOREQUEST_S3_PUBLIC_URL"),
		},
	}

	srv := server.New(db, cfg, logger)

	sched, err := gocron.NewScheduler()
	if err != nil {
		logger.Error("create scheduler", "error", err)
		os.Exit(1)
	}
	registerJobs(sched, srv, logger)
	sched.Start()
	defer sched.Shutdown()

	httpServer := &http.Server{
		Addr:         ":" + port,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		fmt.Printf("Chore Quest running at http://localhost:%s\n", port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}

func registerJobs(sched gocron.Scheduler, srv *server.Server, logger *slog.Logger) {
	log := logger.With("component", "jobs")

	// Every 15 minutes: reopen recurring chores whose next due time has passed.
	if _, err := sched.NewJob(
		gocron.DurationJob(15*time.Minute),
		gocron.NewTask(func() {
			n, err := srv.TaskService().ReopenDue(time.Now())
			if err != nil {
				log.Error("reopen recurring tasks", "error", err)
				return
			}
			if n > 0 {
				log.Info("reopened recurring tasks", "count", n)
			}
		}),
	); err != nil {
		log.Error("register reopen job", "error", err)
	}

	// Hourly: purge expired sessions and reset tokens, drop stale rate buckets.
	if _, err := sched.NewJob(
		gocron.DurationJob(time.Hour),
		gocron.NewTask(func() {
			if n, err := srv.SessionStore().DeleteExpired(); err != nil {
				log.Error("purge sessions", "error", err)
			} else if n > 0 {
				log.Info("purged expired sessions", "count", n)
			}
			if n, err := srv.ResetTokenStore().DeleteExpired(); err != nil {
				log.Error("purge reset tokens", "error", err)
			} else if n > 0 {
				log.Info("purged expired reset tokens", "count", n)
			}
			srv.RateLimiter().Cleanup()
		}),
	); err != nil {
		log.Error("register cleanup job", "error", err)
	}
}
