package gateway

import (
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/oaustegard/cf-api-gateway/pkg/shared/logging"
)

// Handler authenticates, routes and forwards every request.
// It holds no mutable state besides the draining flag and is safe for concurrent use.
type Handler struct {
	table      *ServiceTable
	secrets    *ProxySecrets
	router     *Router
	forwarder  *Forwarder
	logger     logging.Logger
	healthPath string
	draining   atomic.Bool
}

type options struct {
	client     *http.Client
	logger     logging.Logger
	healthPath string
}

// Option configures a Handler
type Option func(*options)

// WithHTTPClient sets the client used for upstream calls
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) { o.client = client }
}

// WithLogger sets the logger; the handler logs under the "gateway" module
func WithLogger(logger logging.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithHealthPath enables an unauthenticated health endpoint at path (e.g. "/_gateway/health")
func WithHealthPath(path string) Option {
	return func(o *options) { o.healthPath = path }
}

// New creates a gateway handler over an immutable service table and secrets
func New(table *ServiceTable, secrets *ProxySecrets, opts ...Option) (*Handler, error) {
	if table == nil {
		return nil, ErrNoServices
	}
	if secrets == nil {
		return nil, errors.New("gateway: secrets are required")
	}

	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logging.NewSimpleLogger("gateway", logging.LevelInfo, true)
	} else {
		o.logger = o.logger.WithModule("gateway")
	}

	return &Handler{
		table:      table,
		secrets:    secrets,
		router:     NewRouter(table, secrets),
		forwarder:  NewForwarder(o.client, secrets, o.logger.WithModule("forwarder")),
		logger:     o.logger,
		healthPath: o.healthPath,
	}, nil
}

// Table returns the service table the handler routes over
func (h *Handler) Table() *ServiceTable {
	return h.table
}

// SetDraining makes the health endpoint report 503 so load balancers stop sending traffic
func (h *Handler) SetDraining() {
	h.draining.Store(true)
}

// IsDraining reports whether SetDraining was called
func (h *Handler) IsDraining() bool {
	return h.draining.Load()
}

// ServeHTTP implements http.Handler
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	rec := newResponseRecorder(w)
	requestID := requestIDFor(r)

	service, err := h.serve(rec, r)

	fields := []interface{}{
		"request_id", requestID,
		"method", r.Method,
		"path", r.URL.Path,
		"service", service,
		"status", rec.Status(),
		"bytes", rec.BytesWritten(),
		"duration", time.Since(start).Round(time.Microsecond),
	}
	var upstreamErr *UpstreamError
	switch {
	case errors.As(err, &upstreamErr):
		h.logger.Error("Upstream fetch failed", append(fields, "error", upstreamErr.Detail())...)
	case err != nil:
		h.logger.Info("Request rejected", append(fields, "reason", err.Error())...)
	default:
		h.logger.Info("Request completed", fields...)
	}
}

// serve runs the authenticate -> route -> forward pipeline.
// It returns the resolved service name (if any) and the terminal error written to w.
func (h *Handler) serve(w http.ResponseWriter, r *http.Request) (string, error) {
	if h.healthPath != "" && r.URL.Path == h.healthPath {
		h.serveHealth(w)
		return "", nil
	}

	if !Authorize(r.Header.Get("Authorization"), h.secrets.ProxyToken()) {
		writeError(w, ErrUnauthorized)
		return "", ErrUnauthorized
	}

	route, err := h.router.Route(r.URL.EscapedPath(), r.URL.RawQuery)
	if err != nil {
		writeError(w, err)
		var unavailable *ServiceUnavailableError
		if errors.As(err, &unavailable) {
			return unavailable.Service, err
		}
		return "", err
	}

	if err := h.forwarder.Forward(w, r, route); err != nil {
		writeError(w, err)
		return route.Service.Name, err
	}
	return route.Service.Name, nil
}

type healthBody struct {
	Status string `json:"status"`
}

func (h *Handler) serveHealth(w http.ResponseWriter) {
	if h.IsDraining() {
		writeJSON(w, http.StatusServiceUnavailable, healthBody{Status: "draining"})
		return
	}
	writeJSON(w, http.StatusOK, healthBody{Status: "ok"})
}
