package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/liamcoop/homeloan/application"
	"github.com/liamcoop/homeloan/form"
	"github.com/liamcoop/homeloan/internal/config"
	"github.com/liamcoop/homeloan/internal/logger"
	"github.com/liamcoop/homeloan/pipeline"
	"github.com/liamcoop/homeloan/session"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// maxBodyBytes bounds JSON and form request bodies
const maxBodyBytes = 1 << 20

type Server struct {
	db         *sql.DB // nil unless the pipeline comes from postgres
	pipeline   *pipeline.Pipeline
	predictor  *pipeline.Predictor
	controller *form.Controller
	sessions   session.Store
	cookie     cookieConfig
	router     *chi.Mux
}

type cookieConfig struct {
	name string
	ttl  time.Duration
}

func NewServer(p *pipeline.Pipeline, predictor *pipeline.Predictor, sessions session.Store, cookie cookieConfig) *Server {
	s := &Server{
		pipeline:   p,
		predictor:  predictor,
		controller: form.NewController(predictor),
		sessions:   sessions,
		cookie:     cookie,
	}

	s.setupRoutes()

	return s
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(countStatus)

	// Form
	r.Get("/", s.handleForm)
	r.Post("/", s.handleFormAction)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/schema", s.handleSchema)
		r.Post("/predict", s.handlePredict)
	})

	r.Handle("/metrics", promhttp.Handler())

	s.router = r
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// countStatus feeds response codes into the logger's health counters
func countStatus(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		logger.CountHTTPStatus(ww.Status())
	})
}

// Form handlers

func (s *Server) handleForm(w http.ResponseWriter, r *http.Request) {
	id, state, issued := s.loadSession(w, r)
	if issued {
		if err := s.sessions.Save(r.Context(), id, state); err != nil {
			logger.Warn("failed to save session", "session", id, "error", err)
		}
	}
	s.renderForm(w, http.StatusOK, form.Render(state, nil))
}

func (s *Server) handleFormAction(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form submission", http.StatusBadRequest)
		return
	}

	id, state, _ := s.loadSession(w, r)

	action, err := form.ParseAction(r.PostForm.Get("action"))
	if err != nil {
		s.renderForm(w, http.StatusBadRequest, form.Render(state, form.ErrorBanner(err)))
		return
	}

	submitted := make(map[string]string, len(r.PostForm))
	for key, values := range r.PostForm {
		if key == "action" || len(values) == 0 {
			continue
		}
		submitted[key] = values[0]
	}

	next, out := s.controller.Handle(state, action, submitted)
	if err := s.sessions.Save(r.Context(), id, next); err != nil {
		logger.Error("failed to save session", "session", id, "error", err)
		s.renderForm(w, http.StatusInternalServerError, form.Render(next, form.ErrorBanner(err)))
		return
	}

	logger.Debug("form action handled", "session", id, "action", string(action), "phase", string(next.Phase))
	s.renderForm(w, http.StatusOK, form.Render(next, out.Banner))
}

// loadSession returns the session ID from the cookie, issuing a new one when
// the cookie is missing or malformed. issued reports a freshly set cookie.
func (s *Server) loadSession(w http.ResponseWriter, r *http.Request) (id string, state form.State, issued bool) {
	if c, err := r.Cookie(s.cookie.name); err == nil {
		if _, perr := uuid.Parse(c.Value); perr == nil {
			saved, err := s.sessions.Load(r.Context(), c.Value)
			if err == nil {
				return c.Value, saved, false
			}
			if !errors.Is(err, session.ErrNotFound) {
				logger.Warn("failed to load session", "session", c.Value, "error", err)
			}
			return c.Value, form.NewState(), false
		}
	}

	id = uuid.NewString()
	cookie := &http.Cookie{
		Name:     s.cookie.name,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	if s.cookie.ttl > 0 {
		cookie.MaxAge = int(s.cookie.ttl.Seconds())
	}
	http.SetCookie(w, cookie)
	return id, form.NewState(), true
}

func (s *Server) renderForm(w http.ResponseWriter, status int, v form.View) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := form.WriteHTML(w, v); err != nil {
		logger.Error("failed to render form", "error", err)
	}
}

// API handlers

// Health check handler
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:   "healthy",
		Pipeline: s.pipeline.Name(),
		Errors:   logger.TotalErrors.Load(),
		Warnings: logger.TotalWarnings.Load(),
	}

	if s.db != nil {
		if err := s.db.PingContext(r.Context()); err != nil {
			resp.Status = "unhealthy"
			resp.Database = err.Error()
			respondJSON(w, http.StatusServiceUnavailable, resp)
			return
		}
		resp.Database = "ok"
	}

	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSchema(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, newSchemaResponse())
}

// Prediction handler
func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	var raw map[string]any

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	app, err := application.New(raw)
	if err != nil {
		var verr *application.ValidationError
		if errors.As(err, &verr) {
			respondJSON(w, http.StatusUnprocessableEntity, newValidationErrorResponse(verr))
			return
		}
		respondError(w, http.StatusBadRequest, "invalid application", err)
		return
	}

	verdict, err := s.predictor.Predict(app)
	if err != nil {
		logger.Error("prediction failed", "error", err)
		respondError(w, http.StatusInternalServerError, "prediction failed", err)
		return
	}

	respondJSON(w, http.StatusOK, PredictResponse{
		Verdict:  string(verdict),
		Warnings: app.BucketWarnings(),
	})
}

// Helper functions
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string, err error) {
	response := map[string]string{
		"error": message,
	}
	if err != nil {
		response["details"] = err.Error()
	}
	respondJSON(w, status, response)
}

func openDatabase(ctx context.Context, url string) (*sql.DB, error) {
	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

func newSessionStore(ctx context.Context, cfg *config.Config) (session.Store, func(), error) {
	switch cfg.Session.Backend {
	case "redis":
		store, err := session.NewRedisStore(ctx, session.RedisConfig{
			Address:  cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			TTL:      cfg.Session.TTL,
		})
		if err != nil {
			return nil, nil, err
		}
		return store, func() { store.Close() }, nil
	default:
		return session.NewMemoryStore(cfg.Session.TTL), func() {}, nil
	}
}

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal("failed to load configuration", "error", err)
	}

	ctx := context.Background()
	if err := logger.Setup(ctx, logger.Options{
		Level:           cfg.Logging.Level,
		OTELEnabled:     cfg.Logging.OTELEnabled,
		ServiceName:     cfg.Logging.ServiceName,
		ErrorSampleRate: cfg.Logging.ErrorSampleRate,
	}); err != nil {
		logger.Fatal("failed to set up logging", "error", err)
	}
	defer logger.Shutdown(context.Background())

	var (
		db  *sql.DB
		src pipeline.Source
	)
	switch cfg.Pipeline.Source {
	case "postgres":
		db, err = openDatabase(ctx, cfg.Database.URL)
		if err != nil {
			logger.Fatal("failed to connect to database", "error", err)
		}
		defer db.Close()
		src = pipeline.NewPostgresSource(db)
	default:
		src = pipeline.FileSource{Path: cfg.Pipeline.Path}
	}

	// The pipeline is a hard startup dependency
	p, err := pipeline.Load(ctx, src)
	if err != nil {
		logger.Fatal("failed to load pipeline", "error", err)
	}

	cache := pipeline.NewInMemoryVerdictCache(pipeline.CacheConfig{
		TTL:        cfg.Pipeline.CacheTTL,
		MaxEntries: cfg.Pipeline.CacheMaxEntries,
	})
	predictor := pipeline.NewPredictor(p, pipeline.WithCache(cache))

	sessions, closeSessions, err := newSessionStore(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to create session store", "backend", cfg.Session.Backend, "error", err)
	}
	defer closeSessions()

	server := NewServer(p, predictor, sessions, cookieConfig{name: cfg.Session.CookieName, ttl: cfg.Session.TTL})
	server.db = db

	httpServer := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      server,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown handling
	go func() {
		logger.Info("server starting", "addr", httpServer.Addr, "pipeline", p.Name(), "sessions", cfg.Session.Backend)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed to start", "error", err)
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	logger.Info("server stopped")
}
