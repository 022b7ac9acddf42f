package http

// this is entry point of the http request handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"gitlab.com/plantguard-2025.net/internal/config"
	"gitlab.com/plantguard-2025.net/internal/core/ports/primary"
	"gitlab.com/plantguard-2025.net/internal/core/services/unittest"
	"gitlab.com/plantguard-2025.net/internal/handlers"
	"gitlab.com/plantguard-2025.net/internal/handlers/unittests"
)

type ServiceProvider struct {
	unitTestService unittest.IUnitTestService
	unitTestConfig  *config.UnitTestConfig
	jwtConfig       *config.JwtConfig
}

func NewServiceProvider(
	unitTestService unittest.IUnitTestService,
	unitTestConfig *config.UnitTestConfig,
	jwtConfig *config.JwtConfig,
) *ServiceProvider {
	return &ServiceProvider{
		unitTestService: unitTestService,
		unitTestConfig:  unitTestConfig,
		jwtConfig:       jwtConfig,
	}
}

type Server struct {
	router          *mux.Router
	srv             *http.Server
	Port            int
	ServiceName     string
	ServiceProvider ServiceProvider
	logger          primary.Logger
}

func NewServer(port int, serviceName string, serviceProvider ServiceProvider, logger primary.Logger) *Server {
	return &Server{
		Port:            port,
		ServiceName:     serviceName,
		ServiceProvider: serviceProvider,
		logger:          logger,
	}
}

func (s *Server) Init() error {
	r := mux.NewRouter()
	handlers.NewHealthHandler(s.ServiceName).RegisterRoutes(r)

	guard := handlers.New(s.ServiceProvider.jwtConfig)
	if !guard.Enabled() {
		s.logger.Warn("JWT_SECRET is not set, unit test API is unauthenticated")
	}
	unittests.
		NewUnitTestHandler(s.ServiceProvider.unitTestService, s.ServiceProvider.unitTestConfig.MaxUploadBytes, s.logger).
		RegisterRoutes(r, guard.JWTMiddleware)
	s.router = r

	// Runs may take several case timeouts, so writes get no deadline
	s.srv = &http.Server{
		Addr:        fmt.Sprintf(":%d", s.Port),
		Handler:     r,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}
	return nil
}

// Handler returns the routed handler; Init must have been called.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until Stop is called. It returns nil after a clean shutdown.
func (s *Server) Start() error {
	s.logger.Info("Server listening", "addr", s.srv.Addr, "service", s.ServiceName)
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.logger.Error("Server error", "error", err)
		return err
	}
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Shutting down http server...")
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}
