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
	"github.com/go-chi/cors"
	"github.com/jjudge-oj/accounts/config"
	"github.com/jjudge-oj/accounts/internal/cache"
	"github.com/jjudge-oj/accounts/internal/db"
	"github.com/jjudge-oj/accounts/internal/events"
	"github.com/jjudge-oj/accounts/internal/handlers"
	"github.com/jjudge-oj/accounts/internal/logging"
	"github.com/jjudge-oj/accounts/internal/mq"
	"github.com/jjudge-oj/accounts/internal/services"
	"github.com/jjudge-oj/accounts/internal/store"
	"github.com/jjudge-oj/accounts/types"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	redis      *redis.Client
	queue      *mq.MQ
	logger     *zap.Logger
}

// New applies migrations, connects dependencies and builds the router.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	if err := db.Migrate(cfg.Database); err != nil {
		return nil, err
	}

	dbConn, err := db.Open(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	s := &Server{db: dbConn, logger: logger}

	opts := services.AccountServiceOptions{Logger: logger.Named("accounts")}

	if cfg.Redis.Addr != "" {
		s.redis, err = cache.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			s.close()
			return nil, err
		}
		opts.Cache = cache.NewViewCache[[]types.AccountView](s.redis, cfg.Redis.ListTTL, logger.Named("cache"))
	}

	s.queue, err = mq.Open(ctx, cfg.MQ)
	if err != nil {
		s.close()
		return nil, err
	}
	if s.queue != nil {
		opts.Events = events.NewPublisher(s.queue, cfg.MQ.Channel)
	}

	accountRepo := store.NewAccountRepository(dbConn, cfg.Database.Driver)
	accountService := services.NewAccountService(accountRepo, opts)

	s.router = NewRouter(RouterConfig{
		Logger:         logger,
		AccountService: accountService,
		DB:             dbConn,
		AllowedOrigins: cfg.CORSAllowedOrigins,
	})

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s, nil
}

// RouterConfig holds the dependencies of the HTTP router.
type RouterConfig struct {
	Logger         *zap.Logger
	AccountService *services.AccountService
	DB             handlers.Pinger
	AllowedOrigins []string
}

// NewRouter builds the chi router with middleware and routes.
func NewRouter(cfg RouterConfig) *chi.Mux {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		logging.RequestLogger(logger),
		middleware.Recoverer,
		middleware.Timeout(60*time.Second),
		cors.Handler(cors.Options{
			AllowedOrigins: origins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type"},
			MaxAge:         300,
		}),
	)
	router.Get("/healthz", handlers.Healthz(cfg.DB))
	router.Route("/api", func(r chi.Router) {
		handlers.AccountRouter(r, cfg.AccountService)
	})
	return router
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("server listening", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and releases dependencies.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	s.close()
	return err
}

func (s *Server) close() {
	if s.queue != nil {
		if err := s.queue.Close(); err != nil {
			s.logger.Warn("close mq failed", zap.Error(err))
		}
	}
	if s.redis != nil {
		_ = s.redis.Close()
	}
	if s.db != nil {
		_ = s.db.Close()
	}
}
