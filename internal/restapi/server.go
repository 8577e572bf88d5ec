// Package restapi serves the JSON backend the dashboard talks to.
package restapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"granabox/internal/core"
	applog "granabox/internal/log"
	"granabox/internal/middleware/security"
	"granabox/internal/middleware/trace"
)

// Items is the item and label service behind the handlers.
type Items interface {
	CreateLabel(ctx context.Context, name string, isDefault bool) (core.Label, error)
	ListLabels(ctx context.Context) ([]core.Label, error)
	CreateItem(ctx context.Context, in core.ItemInput) (core.Item, error)
	GetItem(ctx context.Context, id int64, loc *time.Location) (core.Item, error)
	ListItems(ctx context.Context, loc *time.Location) ([]core.Item, error)
	ItemsByPeriod(ctx context.Context, p core.Period, status *core.Status, loc *time.Location) ([]core.Item, error)
	UpdateItem(ctx context.Context, id int64, in core.ItemInput) error
	UpdateItemStatus(ctx context.Context, id int64, status core.Status) error
	DeleteItem(ctx context.Context, id int64) error
	YearRange(ctx context.Context) (core.YearRange, error)
	Overview(ctx context.Context, p core.Period) (core.Overview, error)
	Ping(ctx context.Context) error
}

// Recurrences manages monthly series.
type Recurrences interface {
	Create(ctx context.Context, in core.ItemInput, months int) ([]core.Item, error)
	Update(ctx context.Context, id int64, in core.ItemInput) error
	End(ctx context.Context, id int64) error
}

type Options struct {
	Addr           string
	HandlerTimeout time.Duration
	// Location is used when a request carries no valid TimeZone header.
	Location *time.Location
}

type Server struct {
	http.Server

	items       Items
	recurrences Recurrences
	logger      *applog.Logger
	loc         *time.Location
	timeout     time.Duration
	tracer      *trace.Middleware
}

func NewServer(opts Options, items Items, recurrences Recurrences, logger *applog.Logger) (*Server, error) {
	if items == nil || recurrences == nil {
		return nil, errors.New("restapi: item and recurrence services are required")
	}
	if opts.HandlerTimeout <= 0 {
		opts.HandlerTimeout = 10 * time.Second
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if logger == nil {
		logger = applog.Wrap(nil, applog.ComponentHTTP)
	}
	logger = logger.WithComponent(applog.ComponentHTTP)

	detector := security.NewDetector()
	s := &Server{
		items:       items,
		recurrences: recurrences,
		logger:      logger,
		loc:         opts.Location,
		timeout:     opts.HandlerTimeout,
		tracer:      trace.NewMiddleware(logger, detector.ExtractClientIP),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /label", s.handleCreateLabel)
	mux.HandleFunc("GET /labels", s.handleListLabels)

	mux.HandleFunc("POST /item", s.handleCreateItem)
	mux.HandleFunc("GET /item", s.handleGetItem)
	mux.HandleFunc("PUT /item", s.handleUpdateItem)
	mux.HandleFunc("DELETE /item", s.handleDeleteItem)
	mux.HandleFunc("PUT /item/status", s.handleUpdateItemStatus)

	mux.HandleFunc("POST /item/recurring", s.handleCreateRecurring)
	mux.HandleFunc("PUT /item/recurring", s.handleUpdateRecurring)
	mux.HandleFunc("DELETE /item/recurring", s.handleDeleteRecurring)

	mux.HandleFunc("GET /items", s.handleListItems)
	mux.HandleFunc("GET /items/date", s.handleItemsByDate)
	mux.HandleFunc("GET /items/years", s.handleYearRange)
	mux.HandleFunc("GET /items/overview", s.handleOverview)

	mux.HandleFunc("GET /healthz", s.handleHealth)

	var handler http.Handler = mux
	handler = detector.Middleware(handler)
	handler = s.recoverPanics(handler)
	handler = s.tracer.Handler(handler)

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
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
				writeError(w, http.StatusInternalServerError, "internal error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// context bounds a handler by the configured timeout.
func (s *Server) context(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), s.timeout)
}

// location reads the TimeZone header, falling back to the server's zone.
func (s *Server) location(r *http.Request) *time.Location {
	name := r.Header.Get("TimeZone")
	if name == "" {
		return s.loc
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		applog.FromContext(r.Context()).WarnContext(r.Context(), "Unknown TimeZone header", "timezone", name)
		return s.loc
	}
	return loc
}

// fail maps service errors to status codes.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, core.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, errBadRequest), core.IsValidation(err):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		applog.LogError(r.Context(), "Request timed out", err, applog.ComponentHTTP, op, nil)
		writeError(w, http.StatusGatewayTimeout, "timeout")
	default:
		applog.LogError(r.Context(), "Request failed", err, applog.ComponentHTTP, op, nil)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
