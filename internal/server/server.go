package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/dkoutsos/alphapilot/internal/database"
	"github.com/dkoutsos/alphapilot/internal/modules/account"
	"github.com/dkoutsos/alphapilot/internal/modules/approvals"
	"github.com/dkoutsos/alphapilot/internal/modules/cycle"
	"github.com/dkoutsos/alphapilot/internal/modules/incidents"
	"github.com/dkoutsos/alphapilot/internal/modules/portfolio"
	"github.com/dkoutsos/alphapilot/internal/modules/risk"
	"github.com/dkoutsos/alphapilot/internal/modules/trading"
	"github.com/dkoutsos/alphapilot/internal/registry"
)

// Config holds server configuration
type Config struct {
	Port     int
	DevMode  bool
	Log      zerolog.Logger
	DB       *database.DB
	Registry *registry.Registry
}

// Server represents the HTTP server
type Server struct {
	router *chi.Mux
	server *http.Server
	log    zerolog.Logger
	db     *database.DB
	reg    *registry.Registry
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	s := &Server{
		router: chi.NewRouter(),
		log:    cfg.Log.With().Str("component", "server").Logger(),
		db:     cfg.DB,
		reg:    cfg.Registry,
	}

	s.setupMiddleware(cfg.DevMode)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware(devMode bool) {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)

	// On-demand cycle runs include an advisor round trip, so the request
	// timeout has to outlast the advisor client's.
	s.router.Use(middleware.Timeout(120 * time.Second))

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	reg := s.reg

	accountHandlers := account.NewHandlers(reg.Accounts, s.log)
	portfolioHandlers := portfolio.NewHandlers(reg.Ledger, reg.Accounts, reg.Prices, reg.Coins, s.log)
	tradingHandlers := trading.NewHandlers(reg.Trades, s.log)
	riskHandlers := risk.NewHandlers(reg.Accounts, reg.Ledger, reg.Trades, reg.Prices, reg.Coins, s.log)
	incidentHandlers := incidents.NewHandlers(reg.Incidents, s.log)
	approvalHandlers := approvals.NewHandlers(reg.Queue, s.log)
	cycleHandlers := cycle.NewHandlers(reg.Controller, s.log)

	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Route("/system", func(r chi.Router) {
			r.Get("/status", s.handleSystemStatus)
		})

		r.Route("/accounts", func(r chi.Router) {
			r.Get("/", accountHandlers.HandleList)
			r.Post("/", accountHandlers.HandleCreate)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", accountHandlers.HandleGet)
				r.Put("/environment", accountHandlers.HandleSetEnvironment)
				r.Put("/automation", accountHandlers.HandleSetAutomation)
				r.Put("/risk-settings", accountHandlers.HandleUpdateRiskSettings)

				r.Get("/portfolio", portfolioHandlers.HandleGetPortfolio)
				r.Get("/trades", tradingHandlers.HandleGetTrades)
				r.Get("/risk", riskHandlers.HandleGetStatus)
				r.Get("/incidents", incidentHandlers.HandleListForAccount)

				r.Post("/cycle", cycleHandlers.HandleRunCycle)
			})
		})

		r.Route("/decisions", func(r chi.Router) {
			r.Get("/", approvalHandlers.HandleList)
			r.Post("/{id}/approve", approvalHandlers.HandleApprove)
			r.Post("/{id}/reject", approvalHandlers.HandleReject)
		})

		r.Get("/incidents", incidentHandlers.HandleList)
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
