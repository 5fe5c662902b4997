package web

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"pdf-store-backend/internal/domain/model"
	"pdf-store-backend/internal/usecase"
)

// Pinger is what the health endpoint needs from the database pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Server struct {
	orderUC    usecase.OrderUseCase
	paymentUC  usecase.PaymentUseCase
	downloadUC usecase.DownloadUseCase
	statsUC    usecase.StatsUseCase
	catalog    *model.Catalog

	db             Pinger
	gatewayReady   bool
	frontendOrigin string

	auth          *AuthManager
	adminPassword string

	log *zerolog.Logger

	httpServer *http.Server
}

type ServerDeps struct {
	OrderUC    usecase.OrderUseCase
	PaymentUC  usecase.PaymentUseCase
	DownloadUC usecase.DownloadUseCase
	StatsUC    usecase.StatsUseCase
	Catalog    *model.Catalog

	DB             Pinger
	GatewayReady   bool
	FrontendOrigin string

	Auth          *AuthManager
	AdminPassword string
}

func NewServer(deps ServerDeps, logger *zerolog.Logger) *Server {
	l := logger.With().Str("component", "WebServer").Logger()
	return &Server{
		orderUC:        deps.OrderUC,
		paymentUC:      deps.PaymentUC,
		downloadUC:     deps.DownloadUC,
		statsUC:        deps.StatsUC,
		catalog:        deps.Catalog,
		db:             deps.DB,
		gatewayReady:   deps.GatewayReady,
		frontendOrigin: deps.FrontendOrigin,
		auth:           deps.Auth,
		adminPassword:  deps.AdminPassword,
		log:            &l,
	}
}

// Router builds the full route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.corsMiddleware)

	r.Route("/api", func(r chi.Router) {
		r.Get("/products", s.handleProducts)
		r.Post("/orders/create", s.handleCreateOrder)
		r.Post("/payments/verify", s.handleVerifyPayment)
		r.Post("/payments/webhook", s.handleWebhook)
		r.Get("/download/verify/{token}", s.handleVerifyDownload)
		r.Get("/download/{token}", s.handleDownload)
		r.Get("/health", s.handleHealth)
		r.Get("/ping", s.handlePing)

		r.Route("/admin", func(r chi.Router) {
			r.Post("/login", s.handleAdminLogin)
			r.Post("/logout", s.handleAdminLogout)
			r.Group(func(r chi.Router) {
				r.Use(s.adminAuthMiddleware)
				r.Get("/orders", s.handleAdminOrders)
				r.Get("/stats", s.handleAdminStats)
			})
		})
	})

	return r
}

// corsMiddleware admits only the configured frontend origin, with
// credentials so the admin session cookie survives cross-origin calls.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && origin == s.frontendOrigin {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Vary", "Origin")
		}
		if r.Method == http.MethodOptions {
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Razorpay-Signature")
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// adminAuthMiddleware rejects requests without a valid admin JWT.
func (s *Server) adminAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.auth == nil {
			writeError(w, http.StatusServiceUnavailable, "Admin API is not configured")
			return
		}
		if _, err := s.auth.ParseFromRequest(r); err != nil {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Start binds the listener and blocks until the server stops.
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.log.Info().Str("addr", addr).Msg("http server listening")
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
