package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	pb "github.com/godilite/milestone-server/api/v1"
	"github.com/godilite/milestone-server/internal/config"
	handler "github.com/godilite/milestone-server/internal/grpc"
	"github.com/godilite/milestone-server/internal/repository"
	"github.com/godilite/milestone-server/internal/scheduler"
	"github.com/godilite/milestone-server/internal/service"
	"github.com/godilite/milestone-server/pkg/cache"
	dbbuilder "github.com/godilite/milestone-server/pkg/database"
	grpcsrv "github.com/godilite/milestone-server/pkg/grpc/server"
)

const shutdownTimeout = 10 * time.Second

// Backend is the persistence and service layer shared by the server and
// the one-shot CLI commands.
type Backend struct {
	DB      *dbbuilder.DB
	Service *service.MilestoneService
}

// OpenBackend connects to the database, applies the schema, and builds the
// milestone service.
func OpenBackend(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Backend, error) {
	if err := ensureSQLiteDir(cfg); err != nil {
		return nil, err
	}

	db, err := dbbuilder.New(
		dbbuilder.WithDriver(cfg.DBDriver),
		dbbuilder.WithDataSource(cfg.DBPath),
	)
	if err != nil {
		return nil, fmt.Errorf("database init failed: %w", err)
	}
	logger.Info("Database pool initialized",
		zap.String("driver", db.Dialect().Name()))

	if err := repository.Migrate(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("schema migration failed: %w", err)
	}

	respondents := repository.NewRespondentRepository(db)
	store := service.Storage{
		Tx:         db,
		Children:   repository.NewChildRepository(db),
		Milestones: repository.NewMilestoneRepository(db),
		Sessions:   repository.NewSessionRepository(db),
		Scores:     repository.NewScoreRepository(db),
		Runs:       repository.NewStatisticsRunRepository(db),
		Research:   repository.NewResearchRepository(db),
		Cohort:     service.EmailSuffixCohort{Respondents: respondents, Suffix: cfg.TestAccountSuffix},
	}

	return &Backend{
		DB:      db,
		Service: service.NewMilestoneService(store, cfg.Policy(), logger),
	}, nil
}

func (b *Backend) Close() error {
	return b.DB.Close()
}

// ensureSQLiteDir creates the parent directory of a sqlite database file.
func ensureSQLiteDir(cfg *config.Config) error {
	if d, err := dbbuilder.DialectFor(cfg.DBDriver); err != nil || d.Name() != "sqlite" {
		return nil
	}
	if strings.Contains(cfg.DBPath, ":memory:") || strings.HasPrefix(cfg.DBPath, "file:") {
		return nil
	}
	dir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create database directory %s: %w", dir, err)
	}
	return nil
}

type App struct {
	logger     *zap.Logger
	backend    *Backend
	cache      *cache.Cache
	grpcServer *grpcsrv.Server
	stats      *scheduler.Runner
}

type Option func(*options)

type options struct {
	grpc []grpcsrv.Option
}

// WithServerOptions appends builder options for the gRPC server, e.g. a
// bufconn listener.
func WithServerOptions(opts ...grpcsrv.Option) Option {
	return func(o *options) { o.grpc = append(o.grpc, opts...) }
}

func NewApp(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	backend, err := OpenBackend(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a := &App{logger: logger, backend: backend}

	var cacher handler.Cacher
	if cfg.CacheEnabled {
		a.cache, err = cache.New(ctx, cache.WithAddress(cfg.RedisAddr))
		if err != nil {
			a.close()
			return nil, fmt.Errorf("cache init failed: %w", err)
		}
		cacher = a.cache
		logger.Info("Cache client initialized", zap.String("addr", cfg.RedisAddr))
	}

	grpcHandlers := handler.NewGRPCHandlers(backend.Service, cacher, logger, cfg.FeedbackCacheTTL)

	serverOpts := append([]grpcsrv.Option{
		grpcsrv.WithPort(cfg.GRPCPort),
		grpcsrv.WithLogger(logger),
		grpcsrv.WithLogging(true),
		grpcsrv.WithReflection(cfg.GRPCReflectionEnabled),
	}, o.grpc...)
	a.grpcServer, err = grpcsrv.New(serverOpts...)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("failed to create gRPC server: %w", err)
	}
	a.grpcServer.RegisterServiceWithHealth(pb.ServiceName, func(s *grpc.Server) {
		pb.RegisterMilestoneServiceServer(s, grpcHandlers)
	})

	if cfg.StatsScheduleEnabled {
		a.stats, err = scheduler.New("statistics-update", cfg.StatsInterval, func(ctx context.Context) error {
			_, err := backend.Service.RunStatisticsUpdate(ctx, true)
			return err
		}, logger)
		if err != nil {
			a.close()
			return nil, err
		}
	}

	return a, nil
}

// Run serves until SIGINT/SIGTERM or until ctx is canceled.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a.logger.Info("application starting")
	g, gctx := errgroup.WithContext(ctx)

	g.Go(a.grpcServer.Serve)
	if a.stats != nil {
		g.Go(func() error { return a.stats.Run(gctx) })
	}
	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info("application shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := a.grpcServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return nil
	})

	err := g.Wait()
	a.close()
	if err != nil {
		a.logger.Error("application stopped with error", zap.Error(err))
		return err
	}
	a.logger.Info("graceful shutdown completed successfully")
	return nil
}

// Addr returns the gRPC listen address.
func (a *App) Addr() string {
	return a.grpcServer.Addr().String()
}

func (a *App) close() {
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.logger.Error("cache shutdown error", zap.Error(err))
		}
	}
	if err := a.backend.Close(); err != nil {
		a.logger.Error("database shutdown error", zap.Error(err))
	}
}
