// Package server wires stores, the points engine, and handlers into
// the HTTP API.
package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/chorespec/chorespec/internal/events"
	"github.com/chorespec/chorespec/internal/handler"
	"github.com/chorespec/chorespec/internal/middleware"
	"github.com/chorespec/chorespec/internal/points"
	"github.com/chorespec/chorespec/internal/schedule"
	"github.com/chorespec/chorespec/internal/store"
)

type Server struct {
	db            *sql.DB
	broker        *events.Broker
	generator     *schedule.Generator
	authH         *handler.AuthHandler
	userH         *handler.UserHandler
	roleH         *handler.RoleHandler
	taskH         *handler.TaskHandler
	rewardH       *handler.RewardHandler
	transactionH  *handler.TransactionHandler
	notificationH *handler.NotificationHandler
	analyticsH    *handler.AnalyticsHandler
	settingsH     *handler.SettingsHandler
	rateLimiter   *middleware.RateLimiter
	corsOrigins   []string
	logger        *slog.Logger
}

func New(db *sql.DB, corsOrigins []string, logger *slog.Logger) *Server {
	broker := events.NewBroker(logger.With("component", "events"))
	engine := points.NewEngine(db)
	generator := schedule.NewGenerator(db, logger.With("component", "schedule"))

	userStore := store.NewUserStore(db)
	roleStore := store.NewRoleStore(db)
	taskStore := store.NewTaskStore(db)
	instanceStore := store.NewInstanceStore(db)
	rewardStore := store.NewRewardStore(db)
	transactionStore := store.NewTransactionStore(db)
	notificationStore := store.NewNotificationStore(db)
	settingsStore := store.NewSettingsStore(db)
	analyticsStore := store.NewAnalyticsStore(db)

	return &Server{
		db:        db,
		broker:    broker,
		generator: generator,
		authH:     handler.NewAuthHandler(userStore, logger.With("component", "auth")),
		userH:     handler.NewUserHandler(userStore, roleStore, rewardStore, logger.With("component", "user")),
		roleH:     handler.NewRoleHandler(roleStore, userStore, logger.With("component", "role")),
		taskH: handler.NewTaskHandler(taskStore, instanceStore, userStore, roleStore,
			notificationStore, engine, generator, broker, logger.With("component", "task")),
		rewardH: handler.NewRewardHandler(rewardStore, userStore, notificationStore,
			engine, broker, logger.With("component", "reward")),
		transactionH:  handler.NewTransactionHandler(transactionStore, userStore, logger.With("component", "transaction")),
		notificationH: handler.NewNotificationHandler(notificationStore, logger.With("component", "notification")),
		analyticsH:    handler.NewAnalyticsHandler(analyticsStore, logger.With("component", "analytics")),
		settingsH:     handler.NewSettingsHandler(settingsStore, logger.With("component", "settings")),
		rateLimiter:   middleware.NewRateLimiter(),
		corsOrigins:   corsOrigins,
		logger:        logger,
	}
}

// Broker exposes the event broker so the scheduler can publish
// daily-reset events.
func (s *Server) Broker() *events.Broker {
	return s.broker
}

// Generator exposes the instance generator for the scheduler.
func (s *Server) Generator() *schedule.Generator {
	return s.generator
}

// RateLimiter exposes the limiter for periodic cleanup.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /login/{$}", s.rateLimited(s.authH.Login))

	mux.HandleFunc("POST /users/{$}", s.userH.Create)
	mux.HandleFunc("GET /users/{$}", s.userH.List)
	mux.HandleFunc("GET /users/{id}", s.userH.Get)
	mux.HandleFunc("POST /users/{id}/goal", s.userH.SetGoal)
	mux.HandleFunc("PUT /users/{id}/language", s.userH.UpdateLanguage)
	mux.HandleFunc("GET /users/{id}/transactions", s.transactionH.ListByUser)

	mux.HandleFunc("POST /roles/{$}", s.roleH.Create)
	mux.HandleFunc("GET /roles/{$}", s.roleH.List)
	mux.HandleFunc("PUT /roles/{id}", s.roleH.Update)
	mux.HandleFunc("DELETE /roles/{id}", s.roleH.Delete)
	mux.HandleFunc("GET /roles/{id}/users", s.roleH.ListUsers)

	mux.HandleFunc("POST /tasks/{$}", s.taskH.Create)
	mux.HandleFunc("GET /tasks/{$}", s.taskH.List)
	mux.HandleFunc("PUT /tasks/{id}", s.taskH.Update)
	mux.HandleFunc("DELETE /tasks/{id}", s.taskH.Delete)
	mux.HandleFunc("GET /tasks/export", s.taskH.Export)
	mux.HandleFunc("POST /tasks/import", s.taskH.Import)
	mux.HandleFunc("GET /tasks/daily/{user_id}", s.taskH.ListDaily)
	mux.HandleFunc("GET /tasks/pending", s.taskH.ListPending)
	mux.HandleFunc("POST /tasks/{instance_id}/complete", s.taskH.Complete)
	mux.HandleFunc("POST /tasks/{instance_id}/submit-review", s.taskH.SubmitReview)
	mux.HandleFunc("POST /tasks/{instance_id}/approve", s.taskH.Approve)
	mux.HandleFunc("POST /tasks/{instance_id}/reject", s.taskH.Reject)
	mux.HandleFunc("POST /daily-reset/{$}", s.taskH.DailyReset)

	mux.HandleFunc("POST /rewards/{$}", s.rewardH.Create)
	mux.HandleFunc("GET /rewards/{$}", s.rewardH.List)
	mux.HandleFunc("POST /rewards/{id}/redeem", s.rewardH.Redeem)
	mux.HandleFunc("POST /rewards/{id}/redeem-split", s.rewardH.RedeemSplit)

	mux.HandleFunc("GET /transactions", s.transactionH.List)

	mux.HandleFunc("GET /notifications/{user_id}", s.notificationH.ListByUser)
	mux.HandleFunc("POST /notifications/{id}/read", s.notificationH.MarkRead)
	mux.HandleFunc("POST /notifications/read-all", s.notificationH.MarkAllRead)

	mux.HandleFunc("GET /analytics/weekly", s.analyticsH.Weekly)
	mux.HandleFunc("GET /analytics/distribution", s.analyticsH.Distribution)

	mux.HandleFunc("GET /settings/language/default", s.settingsH.GetDefaultLanguage)
	mux.HandleFunc("PUT /settings/language/default", s.settingsH.SetDefaultLanguage)

	mux.HandleFunc("GET /events", events.HandleSSE(s.broker))
	mux.HandleFunc("GET /ws", events.HandleWebSocket(s.broker, s.logger.With("component", "websocket")))

	mux.HandleFunc("GET /health", s.healthHandler)
	mux.Handle("GET /metrics", promhttp.Handler())

	h := middleware.CORS(s.corsOrigins)(mux)
	h = middleware.Metrics(h)
	return middleware.RequestLogger(s.logger.With("component", "http"))(h)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// rateLimited caps a handler at 10 requests per IP per minute.
func (s *Server) rateLimited(h http.HandlerFunc) http.HandlerFunc {
	rl := middleware.RateLimit(s.rateLimiter, middleware.RealIP, 10, time.Minute)
	return func(w http.ResponseWriter, r *http.Request) {
		rl(http.HandlerFunc(h)).ServeHTTP(w, r)
	}
}
