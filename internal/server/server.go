package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/information-sharing-networks/passbook/internal/config"
	"github.com/information-sharing-networks/passbook/internal/crypto"
	"github.com/information-sharing-networks/passbook/internal/database"
	"github.com/information-sharing-networks/passbook/internal/logger"
	"github.com/information-sharing-networks/passbook/internal/passbook"
	passbookhandlers "github.com/information-sharing-networks/passbook/internal/passbook/handlers"
	"github.com/information-sharing-networks/passbook/internal/pkpass"
	"github.com/information-sharing-networks/passbook/internal/server/handlers"
	servermiddleware "github.com/information-sharing-networks/passbook/internal/server/middleware"
	"github.com/information-sharing-networks/passbook/internal/services"
	"github.com/information-sharing-networks/passbook/internal/store"
	"github.com/information-sharing-networks/passbook/internal/version"
)

type Server struct {
	pool     *pgxpool.Pool
	config   *config.ServerEnvironment
	logger   *slog.Logger
	router   *chi.Mux
	store    passbook.Store
	services *services.Services
	signer   *crypto.Signer
	service  *passbook.Service
	detector *passbook.ChangeDetector
	builder  *passbook.ArchiveBuilder
}

// NewServer wires the passbook engine to its store, origins and signer and registers the routes.
//
// When pool is nil the in-memory store is used.
func NewServer(
	ctx context.Context,
	pool *pgxpool.Pool,
	cfg *config.ServerEnvironment,
	logger *slog.Logger,
) (*Server, error) {
	server := &Server{
		pool:   pool,
		config: cfg,
		logger: logger,
		router: chi.NewRouter(),
	}

	var queries *database.Queries
	if pool != nil {
		server.store = store.NewPostgresStore(pool)
		queries = database.New(pool)
	} else {
		memStore, err := store.NewMemoryStore()
		if err != nil {
			return nil, fmt.Errorf("failed to create memory store: %w", err)
		}
		server.store = memStore
		logger.Warn("using the in-memory store: passes and registrations are lost on restart")
	}

	svcs, err := services.NewServices(ctx, cfg, queries, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}
	server.services = svcs

	if err := server.initSigner(); err != nil {
		return nil, fmt.Errorf("failed to initialize signer: %w", err)
	}

	var cache *passbook.ArchiveCache
	if cfg.ArchiveCacheTTL > 0 {
		cache = passbook.NewArchiveCache(cfg.ArchiveCacheTTL)
	}

	server.service = passbook.NewService(server.store, svcs.Origins)
	server.detector = passbook.NewChangeDetector(server.store, svcs.Origins)
	server.builder = passbook.NewArchiveBuilder(svcs.Origins, server.signer, passbook.ArchiveBuilderConfig{
		WebServiceURL:  cfg.WebServiceURL(),
		Policy:         pkpass.Policy{AllowMissingBarcode: cfg.AllowMissingBarcode},
		SigningTimeout: cfg.SigningTimeout,
		Cache:          cache,
	})

	server.setupMiddleware()
	server.registerRoutes()

	return server, nil
}

// initSigner loads the signing credentials and checks they are valid now.
func (s *Server) initSigner() error {
	creds, err := crypto.LoadSigningCredentials(crypto.CredentialSource{
		CertificatePath: s.config.PassCertificatePath,
		KeyPath:         s.config.PassKeyPath,
		WWDRPath:        s.config.WWDRCertificatePath,
		Passphrase:      s.config.PassKeyPassphrase,
	})
	if err != nil {
		return err
	}

	if err := creds.Check(time.Now()); err != nil {
		return err
	}

	s.signer = crypto.NewSigner(creds)
	s.logger.Info("signing credentials loaded",
		slog.String("pass_type_identifier", crypto.PassTypeIdentifier(creds.Certificate)),
		slog.String("team_identifier", crypto.TeamIdentifier(creds.Certificate)),
		slog.Time("certificate_expires", creds.Certificate.NotAfter),
	)
	return nil
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(logger.RequestLogging(s.logger))
	s.router.Use(middleware.Recoverer)
	s.router.Use(servermiddleware.SecurityHeaders(s.config.Environment))
	s.router.Use(servermiddleware.RateLimit(s.config.RateLimitRPS, s.config.RateLimitBurst))
	s.router.Use(servermiddleware.RequestSizeLimit(s.config.MaxRequestBodySize))
	s.router.Use(middleware.Timeout(s.config.RequestTimeout))
}

func (s *Server) registerRoutes() {
	s.router.Get("/health/live", handlers.HandleHealth)
	s.router.Get("/health/ready", handlers.HandleReadiness(s.store))
	s.router.Get("/version", handlers.HandleVersion(version.Get()))

	s.router.Route("/passbook", passbookhandlers.Routes(passbookhandlers.Dependencies{
		Service:       s.service,
		Detector:      s.detector,
		Builder:       s.builder,
		LogSink:       s.services.DeviceLogs,
		PublicBaseURL: s.config.PublicBaseURL,
	}))

	s.router.Route("/admin", func(r chi.Router) {
		r.Post("/passes", handlers.HandleCreatePass(s.service))
		r.Get("/passes/{passID}", handlers.HandleGetPass(s.store))
		r.Put("/passes/{passID}", handlers.HandleUpdatePass(s.store))
		r.Delete("/passes/{passID}", handlers.HandleDeletePass(s.store, s.builder))
		r.Get("/passes/{passID}/registrations", handlers.HandleListPassRegistrations(s.store))
		r.Get("/passes/{passID}/download-url", handlers.HandleGetDownloadURL(s.store, s.config.WebServiceURL()))

		r.Get("/origins", handlers.HandleListOriginTypes(s.services.Origins))
		r.Get("/origins/{originType}/{originID}/registrations", handlers.HandleListOriginRegistrations(s.store, s.services.Origins))
	})
}

// Handler returns the router; used by tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start(ctx context.Context) error {
	serverAddr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	httpServer := &http.Server{
		Addr:         serverAddr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("service listening",
			slog.String("environment", s.config.Environment),
			slog.String("address", serverAddr),
			slog.String("web_service_url", s.config.WebServiceURL()))

		err := httpServer.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			serverErrors <- fmt.Errorf("server failed to start: %w", err)
		}
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		s.logger.Info("shutdown signal received")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), s.config.ServerShutdownTimeout)
	defer shutdownCancel()

	s.logger.Info("shutting down HTTP server")

	err := httpServer.Shutdown(shutdownCtx)
	if err != nil {
		s.logger.Warn("HTTP server shutdown error",
			slog.String("error", err.Error()))
		return fmt.Errorf("HTTP server shutdown failed: %w", err)
	}

	s.logger.Info("HTTP server shutdown complete")
	return nil
}

func (s *Server) DatabaseShutdown() {
	if s.pool != nil {
		s.pool.Close()
		s.logger.Info("database connection closed")
	}
}
