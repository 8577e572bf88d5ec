package http

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"
	"sync"
	"time"

	"granabox/internal/core"
	"granabox/internal/dashboard"
	"granabox/internal/lifecycle"
	applog "granabox/internal/log"
	"granabox/internal/middleware/ratelimit"
	"granabox/internal/middleware/security"
	"granabox/internal/middleware/trace"
	"granabox/internal/render"
	"granabox/internal/websocket"
	appweb "granabox/web"
)

// Backend is the part of the API client the handlers read from directly.
type Backend interface {
	GetItem(ctx context.Context, id int64) (core.Item, error)
	ListLabels(ctx context.Context) ([]core.Label, error)
	EnsureDefaultLabels(ctx context.Context) (int, error)
	Ping(ctx context.Context) error
}

// Options configures the server.
type Options struct {
	Addr               string
	HandlerTimeout     time.Duration
	RateLimitPerMinute int
	Location           *time.Location
	// OriginPatterns are extra websocket origins besides the page's own.
	OriginPatterns []string
}

// Deps are the collaborators the handlers use.
type Deps struct {
	Backend    Backend
	Controller *lifecycle.Controller
	Dashboard  *dashboard.Service
	Hub        *websocket.Hub
	Renderer   *render.Renderer
	Logger     *applog.Logger
}

type Server struct {
	http.Server

	backend    Backend
	controller *lifecycle.Controller
	dashboard  *dashboard.Service
	hub        *websocket.Hub
	renderer   *render.Renderer
	logger     *applog.Logger

	loc     *time.Location
	timeout time.Duration
	started time.Time

	tracer   *trace.Middleware
	limiter  *ratelimit.Limiter
	detector *security.Detector

	labelsMu    sync.Mutex
	labelsReady bool

	shutdownOnce sync.Once
}

// NewServer wires routes and middleware, returning a ready-to-run server.
func NewServer(opts Options, deps Deps) (*Server, error) {
	if deps.Backend == nil || deps.Controller == nil || deps.Dashboard == nil {
		return nil, errors.New("http: backend, controller and dashboard are required")
	}
	if opts.HandlerTimeout <= 0 {
		opts.HandlerTimeout = 7 * time.Second
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	logger := deps.Logger
	if logger == nil {
		logger = applog.Wrap(nil, applog.ComponentHTTP)
	}
	logger = logger.WithComponent(applog.ComponentHTTP)

	renderer := deps.Renderer
	if renderer == nil {
		var err error
		if renderer, err = render.New(appweb.TemplatesFS); err != nil {
			return nil, err
		}
	}
	hub := deps.Hub
	if hub == nil {
		hub = websocket.NewHub(logger)
	}

	detector := security.NewDetector()
	s := &Server{
		backend:    deps.Backend,
		controller: deps.Controller,
		dashboard:  deps.Dashboard,
		hub:        hub,
		renderer:   renderer,
		logger:     logger,
		loc:        opts.Location,
		timeout:    opts.HandlerTimeout,
		started:    time.Now(),
		tracer:     trace.NewMiddleware(logger, detector.ExtractClientIP),
		limiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: opts.RateLimitPerMinute,
			Methods:           []string{http.MethodPost, http.MethodPut, http.MethodDelete},
		}),
		detector: detector,
	}

	mux := http.NewServeMux()
	static := http.StripPrefix("/static/", http.FileServer(http.FS(appweb.Static())))
	mux.Handle("GET /static/", security.StaticCache(3600)(static))

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /ui/dashboard", s.handleDashboard)
	mux.HandleFunc("GET /ui/items/new", s.handleNewItemForm)
	mux.HandleFunc("GET /ui/items/{id}/edit", s.handleEditItemForm)
	mux.HandleFunc("GET /ui/items/{id}/delete", s.handleConfirmDelete)
	mux.HandleFunc("POST /ui/items", s.handleCreateItem)
	mux.HandleFunc("POST /ui/items/{id}", s.handleEditItem)
	mux.HandleFunc("DELETE /ui/items/{id}", s.handleDeleteItem)
	mux.HandleFunc("POST /ui/items/{id}/move", s.handleMoveItem)
	mux.HandleFunc("POST /ui/welcome/dismiss", s.handleDismissWelcome)
	mux.Handle("GET /ws", websocket.Handler(hub, opts.OriginPatterns...))

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	var handler http.Handler = mux
	handler = s.limiter.Middleware(detector.ExtractClientIP, s.onRateLimited)(handler)
	handler = detector.Middleware(handler)
	handler = security.Headers(security.DefaultHeadersConfig())(handler)
	handler = s.recoverPanics(handler)
	handler = s.tracer.Handler(handler)

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// Shutdown stops the limiter and drains the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func (s *Server) recoverPanics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				applog.FromContext(r.Context()).ErrorContext(r.Context(), "Handler panic",
					"panic", fmt.Sprint(rec),
					"stack", string(debug.Stack()),
					applog.FieldPath, r.URL.Path)
				InternalServerError("Erro interno. Tente novamente.").Write(w)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) onRateLimited(w http.ResponseWriter, r *http.Request) {
	applog.FromContext(r.Context()).WithComponent(applog.ComponentRateLimit).WarnContext(r.Context(), "Rate limit exceeded",
		applog.FieldClientIP, s.detector.ExtractClientIP(r),
		applog.FieldMethod, r.Method,
		applog.FieldPath, r.URL.Path)
	ErrorResponse(http.StatusTooManyRequests, "Muitas requisições. Aguarde um minuto.").Write(w)
}

// ensureLabels creates the default categories the first time the page is
// served. A failure is retried on the next page load.
func (s *Server) ensureLabels(ctx context.Context) {
	s.labelsMu.Lock()
	defer s.labelsMu.Unlock()
	if s.labelsReady {
		return
	}
	created, err := s.backend.EnsureDefaultLabels(ctx)
	if err != nil {
		applog.LogError(ctx, "Default labels setup failed", err, applog.ComponentHTTP, applog.OpCreate, nil)
		return
	}
	s.labelsReady = true
	if created > 0 {
		s.dashboard.InvalidateAll()
		applog.FromContext(ctx).InfoContext(ctx, "Default labels created", "count", created)
	}
}

// render executes a template into memory so errors never leave half a page.
func (s *Server) render(name string, data any) ([]byte, error) {
	var buf bytes.Buffer
	if err := s.renderer.Partial(&buf, name, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// fail maps flow errors to responses.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	ctx := r.Context()
	switch {
	case errors.Is(err, lifecycle.ErrItemRemoved):
		applog.LogError(ctx, "Item removed but series not created", err, applog.ComponentHTTP, op, nil)
		BadGatewayError("Item removido, mas a série mensal não foi criada.").
			TriggerModalClose().
			TriggerDashboardRefresh(ParsePeriod(r, s.loc)).
			Write(w)
		return
	case core.IsValidation(err):
		ErrorResponse(http.StatusUnprocessableEntity, err.Error()).Write(w)
		return
	case errors.Is(err, core.ErrNotFound):
		NotFoundError("Item não encontrado.").Write(w)
		return
	case errors.Is(err, errInvalidID):
		BadRequestError("Item inválido.").Write(w)
		return
	case errors.Is(err, context.DeadlineExceeded):
		applog.LogError(ctx, "Backend timed out", err, applog.ComponentHTTP, op, nil)
		ErrorResponse(http.StatusGatewayTimeout, "O servidor demorou para responder.").Write(w)
		return
	}
	applog.LogError(ctx, "Request failed", err, applog.ComponentHTTP, op, nil)
	BadGatewayError("Não foi possível falar com o servidor.").Write(w)
}
