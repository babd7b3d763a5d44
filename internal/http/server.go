// Package http wires the application's handlers, middleware and templates
// into a single HTTP server.
package http

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"spendtrack/internal/auth"
	"spendtrack/internal/config"
	"spendtrack/internal/core"
	applog "spendtrack/internal/log"
	"spendtrack/internal/storage"
	"spendtrack/web"
)

type Server struct {
	httpServer  *http.Server
	repo        *storage.SQLiteRepository
	identity    auth.Provider
	rateLimiter *rateLimiter
	cfg         *config.Config
	logger      *applog.Logger
}

func NewServer(cfg *config.Config, repo *storage.SQLiteRepository, logger *applog.Logger) *Server {
	s := &Server{
		repo: repo,
		identity: auth.Chain{
			&auth.CookieProvider{Sessions: repo},
			&auth.BearerProvider{Sessions: repo},
		},
		rateLimiter: newRateLimiter(),
		cfg:         cfg,
		logger:      logger,
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.public(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/expenses", http.StatusFound)
	}))
	mux.HandleFunc("GET /healthz", s.public(s.handleHealth))
	mux.HandleFunc("GET /readyz", s.public(s.handleReady))
	mux.Handle("GET /static/", http.FileServerFS(web.StaticFS))

	mux.HandleFunc("GET /register", s.public(s.handleRegisterForm))
	mux.HandleFunc("POST /register", s.public(s.handleRegister))
	mux.HandleFunc("GET /login", s.public(s.handleLoginForm))
	mux.HandleFunc("POST /login", s.public(s.handleLogin))
	mux.HandleFunc("POST /logout", s.protected(s.handleLogout))
	mux.HandleFunc("GET /profile", s.protected(s.handleProfile))
	mux.HandleFunc("POST /profile/theme", s.protected(s.handleSetTheme))

	mux.HandleFunc("GET /products", s.public(s.handleProductList))
	mux.HandleFunc("GET /products/{id}", s.public(s.handleProductDetail))

	mux.HandleFunc("GET /expenses", s.protected(s.handleExpenseList))
	mux.HandleFunc("GET /expenses/my", s.protected(s.handleMyExpenses))
	mux.HandleFunc("GET /expenses/new", s.protected(s.handleExpenseNew))
	mux.HandleFunc("POST /expenses", s.protected(s.handleExpenseCreate))
	mux.HandleFunc("GET /expenses/categories", s.protected(s.handleCategoryList))
	mux.HandleFunc("POST /expenses/categories", s.protected(s.handleCategoryCreate))
	mux.HandleFunc("POST /expenses/categories/{id}/delete", s.protected(s.handleCategoryDelete))
	mux.HandleFunc("GET /expenses/{id}", s.protected(s.handleExpenseDetail))
	mux.HandleFunc("GET /expenses/{id}/edit", s.protected(s.handleExpenseEditForm))
	mux.HandleFunc("POST /expenses/{id}/edit", s.protected(s.handleExpenseEdit))
	mux.HandleFunc("POST /expenses/{id}/delete", s.protected(s.handleExpenseDelete))

	s.httpServer = &http.Server{
		Addr:           ":" + cfg.Port,
		Handler:        applog.Middleware(logger)(mux),
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 16,
	}

	return s
}

// Handler exposes the configured handler for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) Start() error {
	s.logger.Info("HTTP server starting", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.rateLimiter.stop()
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintln(w, "ok")
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := s.repo.Ping(r.Context()); err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Readiness check failed", "error", err)
		http.Error(w, "database unavailable", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintln(w, "ready")
}

// renderError maps domain errors onto HTTP status codes and renders the
// shared error page.
func (s *Server) renderError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *core.ValidationError

	status := http.StatusInternalServerError
	message := "Something went wrong."

	switch {
	case errors.As(err, &ve):
		status = http.StatusUnprocessableEntity
		message = ve.Message
	case errors.Is(err, core.ErrNotFound):
		status = http.StatusNotFound
		message = "Not found."
	case errors.Is(err, core.ErrNotOwner):
		status = http.StatusForbidden
		message = "Only the owner can modify this expense."
	default:
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed", "error", err)
	}

	s.render(w, r, status, "error.html", errorData{Status: status, Message: message})
}

type errorData struct {
	Status  int
	Message string
}

// viewData is the envelope every template receives. Data carries the
// view-specific payload.
type viewData struct {
	CurrentUser string
	Theme       string
	Data        any
}

// render parses the base layout together with one view and executes it.
// Parsing per request keeps the views independent; each one redefines the
// "title" and "content" blocks.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, view string, data any) {
	tmpl, err := template.ParseFS(web.TemplatesFS, "templates/base.html", "templates/"+view)
	if err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Template parse failed", "view", view, "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	vd := viewData{Theme: themeFromRequest(r), Data: data}
	if id, ok := CurrentIdentity(r); ok {
		vd.CurrentUser = id.Username
	} else if id, ok := s.identity.Identify(r); ok {
		vd.CurrentUser = id.Username
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := tmpl.ExecuteTemplate(w, "base", vd); err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Template execution failed", "view", view, "error", err)
	}
}
