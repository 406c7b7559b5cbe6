package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/ericselin/freshness"
	"github.com/ericselin/freshness/catalog"
	cachestatus "github.com/ericselin/freshness/pkg/cache-status"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
)

type Config struct {
	// Resolver applying the freshness policies.
	Resolver *freshness.Resolver
	// Backend answers /api/products on every request.
	Backend catalog.DataSource
	// Source the catalog pages resolve through. Backend is used if nil.
	Source catalog.DataSource
	// Process scope holding the frozen catalog.
	Process *freshness.ProcessScope
	// Logger to use. The global zerolog logger is used if nil.
	Logger *zerolog.Logger
	// Metrics exposed on /metrics. The endpoint is not mounted if nil.
	Metrics prometheus.Gatherer
	// Clock for Age headers and envelope timestamps. Defaults to time.Now.
	Now func() time.Time
}

// Server serves the products endpoint and one catalog page per freshness policy.
type Server struct {
	resolver *freshness.Resolver
	backend  catalog.DataSource
	source   catalog.DataSource
	process  *freshness.ProcessScope
	log      zerolog.Logger
	now      func() time.Time
	router   chi.Router
}

func New(config Config) *Server {
	var logger zerolog.Logger
	if config.Logger == nil {
		logger = zerolog.New(zerolog.NewConsoleWriter()).With().Timestamp().Logger()
	} else {
		logger = *config.Logger
	}
	s := &Server{
		resolver: config.Resolver,
		backend:  config.Backend,
		source:   config.Source,
		process:  config.Process,
		log:      logger.With().Str("component", "server").Logger(),
		now:      config.Now,
	}
	if s.source == nil {
		s.source = s.backend
	}
	if s.process == nil {
		s.process = freshness.NewProcessScope()
	}
	if s.now == nil {
		s.now = time.Now
	}
	s.router = s.routes(config.Metrics)
	return s
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes(metrics prometheus.Gatherer) chi.Router {
	r := chi.NewRouter()
	r.Use(hlog.NewHandler(s.log))
	r.Use(hlog.RequestIDHandler("req_id", "Request-Id"))
	r.Use(hlog.AccessHandler(logRequest))

	r.Get(catalog.ProductsPath, s.handleProducts)
	r.Route("/catalog", func(r chi.Router) {
		r.Get("/on-demand", s.catalogHandler(freshness.OnDemand))
		r.With(RequestScope).Get("/per-request", s.catalogHandler(freshness.PerRequest))
		r.Get("/frozen", s.catalogHandler(freshness.Frozen))
	})
	if metrics != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(metrics, promhttp.HandlerOpts{}))
	}
	return r
}

func logRequest(r *http.Request, status, size int, duration time.Duration) {
	hlog.FromRequest(r).Debug().
		Str("method", r.Method).
		Str("url", r.URL.String()).
		Str("sourceIp", r.RemoteAddr).
		Int("status", status).
		Int("size", size).
		Dur("duration", duration).
		Msg("Sending response to client")
}

// RequestScope opens a request scope for the duration of the request.
// Results landing after the handler returns are discarded.
func RequestScope(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		scope := freshness.NewRequestScope()
		defer scope.Close()
		hlog.FromRequest(r).Trace().Str("scope", scope.ID()).Msg("Opened request scope")
		next.ServeHTTP(w, r.WithContext(freshness.WithRequestScope(r.Context(), scope)))
	})
}

func (s *Server) handleProducts(w http.ResponseWriter, r *http.Request) {
	c, err := s.backend.FetchCatalog(r.Context())
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("Could not read catalog backend")
		writeJSON(w, http.StatusBadGateway, catalog.Envelope{
			Success:   false,
			Timestamp: s.now().UTC(),
			Error:     err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, catalog.Envelope{
		Success:   true,
		Data:      c,
		Timestamp: s.now().UTC(),
	})
}

// PageResponse is the body of a catalog page.
type PageResponse struct {
	Policy    string          `json:"policy"`
	State     string          `json:"state"`
	Data      catalog.Catalog `json:"data"`
	FetchedAt time.Time       `json:"fetchedAt"`
	Reason    string          `json:"reason,omitempty"`
	Error     string          `json:"error,omitempty"`
	Terminal  bool            `json:"terminal,omitempty"`
}

func (s *Server) scopeFor(ctx context.Context, policy freshness.Policy) freshness.Scope {
	switch policy {
	case freshness.Frozen:
		return s.process
	case freshness.PerRequest:
		if scope, ok := freshness.RequestScopeFrom(ctx); ok {
			return scope
		}
		return nil
	}
	return freshness.NoScope
}

func (s *Server) catalogHandler(policy freshness.Policy) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := hlog.FromRequest(r)
		scope := s.scopeFor(r.Context(), policy)

		res, err := s.resolver.Lookup(r.Context(), policy, s.source, scope)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				log.Debug().Err(err).Msg("Client went away before the catalog was resolved")
				return
			}
			log.Error().Err(err).Str("policy", policy.String()).Msg("Could not resolve catalog")
			http.Error(w, "Could not resolve catalog", http.StatusInternalServerError)
			return
		}

		o := res.Outcome
		state := freshness.PresentOutcome(o)

		cs := cachestatus.CacheStatus{}
		switch {
		case !policy.Cached():
			cs.Forward(cachestatus.FwdReasonBypass)
		case res.Hit:
			cs.Hit()
			cs.Key = o.ScopeID
		default:
			cs.Forward(cachestatus.FwdReasonMiss)
			cs.Stored = true
			cs.Key = o.ScopeID
		}
		w.Header().Set("Cache-Status", cs.String())
		w.Header().Set("Age", cachestatus.Age(o.FetchedAt, s.now()))
		if policy != freshness.Frozen {
			w.Header().Set("Cache-Control", "no-store")
		}

		body := PageResponse{
			Policy:    policy.String(),
			State:     state.Kind.String(),
			Data:      state.Catalog,
			FetchedAt: o.FetchedAt,
		}
		status := http.StatusOK
		if state.Kind == freshness.Failed {
			status = http.StatusBadGateway
			body.Reason = state.ReasonCode()
			body.Error = state.Reason.Error()
			body.Terminal = freshness.IsTerminal(state.Reason)
		}
		writeJSON(w, status, body)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
