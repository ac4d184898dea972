package httpapi

import (
	"context"
	"log/slog"
	"net/http"

	"task-manager/internal/auth"
	"task-manager/internal/metrics"
	"task-manager/internal/service"
)

// RouterConfig holds what the HTTP router needs.
type RouterConfig struct {
	Users   *service.UserService
	Tasks   *service.TaskService
	Auth    *auth.Service
	Metrics *metrics.Metrics
	Logger  *slog.Logger

	// Ping checks the database for /health.
	Ping func(ctx context.Context) error

	// Origins allowed by CORS; "*" allows any.
	Origins []string

	// LoginRate and LoginBurst bound token requests per client IP.
	LoginRate  float64
	LoginBurst int

	// ClientIP decides which address identifies a caller; nil trusts no proxy.
	ClientIP *ClientIP
}

// Handler serves the API routes.
type Handler struct {
	users   *service.UserService
	tasks   *service.TaskService
	auth    *auth.Service
	metrics *metrics.Metrics
	ping    func(ctx context.Context) error
	mux     *http.ServeMux

	protect Middleware
	limit   Middleware
}

// NewRouter builds the mux and wraps it in the middleware chain:
// Recover, RequestID, ProcessTime, Metrics, Logging, CORS.
func NewRouter(cfg RouterConfig) http.Handler {
	h := &Handler{
		users:   cfg.Users,
		tasks:   cfg.Tasks,
		auth:    cfg.Auth,
		metrics: cfg.Metrics,
		ping:    cfg.Ping,
		mux:     http.NewServeMux(),
		protect: Auth(cfg.Auth),
		limit:   RateLimit(cfg.LoginRate, cfg.LoginBurst, cfg.ClientIP),
	}
	h.registerRoutes()

	return Chain(h.mux,
		Recover(cfg.Logger),
		RequestID(),
		ProcessTime(),
		Metrics(cfg.Metrics),
		Logging(cfg.Logger, cfg.ClientIP),
		CORS(cfg.Origins),
	)
}

func (h *Handler) registerRoutes() {
	h.handle("GET /health", h.handleHealth)
	h.handle("GET /metrics", h.metrics.Handler().ServeHTTP)

	h.handle("POST /api/v1/register", h.handleRegister)
	h.handle("POST /api/v1/token", h.handleToken, h.limit)
	h.handle("POST /api/v1/refresh", h.handleRefresh, h.protect)

	h.handle("GET /api/v1/users", h.handleListUsers, h.protect)
	h.handle("GET /api/v1/users/me", h.handleMe, h.protect)
	h.handle("DELETE /api/v1/users/me", h.handleDeleteMe, h.protect)
	h.handle("GET /api/v1/users/{user_id}", h.handleGetUser, h.protect)
	h.handle("PUT /api/v1/users/{user_id}", h.handleUpdateUser, h.protect)
	h.handle("GET /api/v1/users/{user_id}/categories", h.handleListCategories, h.protect)
	h.handle("PUT /api/v1/users/{user_id}/categories", h.handleUpsertCategory, h.protect)
	h.handle("DELETE /api/v1/users/{user_id}/categories/{name}", h.handleDeleteCategory, h.protect)
	h.handle("GET /api/v1/users/{user_id}/tags", h.handleListTags, h.protect)
	h.handle("PUT /api/v1/users/{user_id}/tags", h.handleUpsertTag, h.protect)
	h.handle("DELETE /api/v1/users/{user_id}/tags/{name}", h.handleDeleteTag, h.protect)

	h.handle("GET /api/v1/tasks", h.handleListTasks, h.protect)
	h.handle("POST /api/v1/tasks", h.handleCreateTask, h.protect)
	h.handle("GET /api/v1/tasks/categories", h.handleTaskCategories, h.protect)
	h.handle("GET /api/v1/tasks/{task_id}", h.handleGetTask, h.protect)
	h.handle("PUT /api/v1/tasks/{task_id}", h.handleUpdateTask, h.protect)
	h.handle("DELETE /api/v1/tasks/{task_id}", h.handleDeleteTask, h.protect)
	h.handle("POST /api/v1/tasks/{task_id}/complete", h.handleCompleteTask, h.protect)
}

// handle registers fn under pattern and records the pattern for metrics.
func (h *Handler) handle(pattern string, fn http.HandlerFunc, middlewares ...Middleware) {
	next := Chain(fn, middlewares...)
	h.mux.Handle(pattern, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		setRoute(r.Context(), pattern)
		next.ServeHTTP(w, r)
	}))
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := h.ping(r.Context()); err != nil {
		writeJSON(w, r, http.StatusServiceUnavailable, map[string]string{
			"status":   "unhealthy",
			"database": "disconnected",
		})
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]string{
		"status":   "healthy",
		"database": "connected",
	})
}
