package rest

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	core_port "search-analytics-service/internal/core/port"
)

type ServerConfig struct {
	Port           string
	AllowedOrigins []string
}

// Server - REST API of the search and analytics service.
type Server struct {
	httpServer *http.Server
	logger     core_port.LoggerPort
}

// NewRouter builds the routing tree. Exposed for handler tests.
func NewRouter(handlers *Handlers, allowedOrigins []string, baseLogger core_port.LoggerPort) http.Handler {
	r := chi.NewRouter()

	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", traceIDHeader, userIDHeader},
		ExposedHeaders:   []string{traceIDHeader},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(LoggerMiddleware(baseLogger))
	r.Use(middleware.Recoverer)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/properties/search", handlers.SearchProperties)
		r.Get("/properties/{propertyID}/booking-window", handlers.GetBookingWindow)
		r.Get("/properties/{propertyID}/performance", handlers.GetPropertyPerformance)

		r.Get("/units/{unitID}/availability", handlers.CheckAvailability)

		r.Route("/bookings", func(r chi.Router) {
			r.Post("/", handlers.CreateBooking)
			r.Get("/{bookingID}", handlers.GetBooking)
			r.Post("/{bookingID}/confirm", handlers.ConfirmBooking)
			r.Post("/{bookingID}/cancel", handlers.CancelBooking)
		})

		// called on behalf of a user through the API gateway
		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware)
			r.Get("/notifications/stream", handlers.StreamNotifications)
		})
	})

	return r
}

func NewServer(cfg ServerConfig, handlers *Handlers, baseLogger core_port.LoggerPort) *Server {
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           NewRouter(handlers, cfg.AllowedOrigins, baseLogger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &Server{
		httpServer: srv,
		logger:     baseLogger.WithFields(core_port.Fields{"component": "rest_server"}),
	}
}

// Start blocks until the server is stopped.
func (s *Server) Start() error {
	s.logger.Info("Starting REST API server", core_port.Fields{"address": s.httpServer.Addr})
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		s.logger.Error("Could not start server", err, nil)
		return fmt.Errorf("could not start server: %w", err)
	}
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping REST API server...", nil)
	return s.httpServer.Shutdown(ctx)
}
