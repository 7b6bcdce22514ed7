package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/mangashelf/apiserver/config"
	"github.com/mangashelf/apiserver/internal/auth"
	"github.com/mangashelf/apiserver/internal/catalog"
	"github.com/mangashelf/apiserver/internal/db"
	"github.com/mangashelf/apiserver/internal/events"
	"github.com/mangashelf/apiserver/internal/handlers"
	"github.com/mangashelf/apiserver/internal/library"
	"github.com/mangashelf/apiserver/internal/logging"
	"github.com/mangashelf/apiserver/internal/mq"
	"github.com/mangashelf/apiserver/internal/services"
	"github.com/mangashelf/apiserver/internal/storage"
	"github.com/mangashelf/apiserver/internal/store"
	"go.uber.org/zap"
)

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	mq         *mq.MQ
	log        *zap.Logger
}

// New connects every backing service and mounts the API routes.
func New(ctx context.Context, cfg config.Config, log *zap.Logger) (*Server, error) {
	if cfg.Auth.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	objects, err := storage.FromConfig(ctx, cfg.Storage)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}
	if err := objects.EnsureBucket(ctx); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("ensure upload bucket: %w", err)
	}

	broker, err := mq.FromConfig(ctx, cfg.MQ)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}
	publisher := events.NewPublisher(broker, log)

	userRepo := store.NewUserRepository(dbConn)
	mangaRepo := store.NewMangaRepository(dbConn)

	authenticator, err := auth.New(userRepo, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, log)
	if err != nil {
		_ = dbConn.Close()
		_ = broker.Close()
		return nil, err
	}
	catalogClient := catalog.New(cfg.Catalog, log)

	userService := services.NewUserService(userRepo, objects, publisher, log)
	libraryService := services.NewLibraryService(publisher)
	mangaService := services.NewMangaService(mangaRepo)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		logging.RequestLogger(log),
		middleware.Timeout(60*time.Second),
		handlers.Sessions(authenticator),
	)
	router.Get("/healthz", handlers.Healthz)
	router.Route("/api", func(r chi.Router) {
		authHandler := handlers.NewAuthHandler(authenticator, userService, log)
		r.Post("/register", authHandler.Register)
		r.Route("/auth", func(r chi.Router) {
			handlers.AuthRouter(r, authHandler)
		})
		r.Route("/profile", func(r chi.Router) {
			handlers.ProfileRouter(r, handlers.NewProfileHandler(userService, log))
		})
		r.Route("/library", func(r chi.Router) {
			aggregator := library.NewAggregator(catalogClient, log)
			handlers.LibraryRouter(r, handlers.NewLibraryHandler(libraryService, aggregator, log))
		})
		r.Route("/manga", func(r chi.Router) {
			handlers.MangaRouter(r, handlers.NewMangaHandler(mangaService, log))
		})
		r.Route("/catalog", func(r chi.Router) {
			handlers.CatalogRouter(r, handlers.NewCatalogHandler(catalogClient, log))
		})
	})
	router.Route("/uploads", func(r chi.Router) {
		handlers.UploadsRouter(r, handlers.NewUploadsHandler(objects, log))
	})

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		db:         dbConn,
		mq:         broker,
		log:        log,
	}, nil
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server. It returns nil after a graceful shutdown.
func (s *Server) Start() error {
	s.log.Info("server listening", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests, then closes the broker and database.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	if s.mq != nil {
		if closeErr := s.mq.Close(); closeErr != nil {
			s.log.Warn("close broker", zap.Error(closeErr))
		}
	}
	if s.db != nil {
		_ = s.db.Close()
	}
	return err
}
