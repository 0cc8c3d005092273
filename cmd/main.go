package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/Jamolkhon5/intake/internal/ai/intake/catalog"
	intakehandler "github.com/Jamolkhon5/intake/internal/ai/intake/handler"
	"github.com/Jamolkhon5/intake/internal/ai/intake/service"
	"github.com/Jamolkhon5/intake/internal/ai/intake/session"
	"github.com/Jamolkhon5/intake/internal/ai/llm"
	"github.com/Jamolkhon5/intake/internal/config"
	"github.com/Jamolkhon5/intake/internal/handler"
	"github.com/Jamolkhon5/intake/internal/logger"
	"github.com/Jamolkhon5/intake/internal/repository"
)

const (
	shutdownTimeout = 5 * time.Second
	sweepEvery      = 5 * time.Minute
)

func main() {
	cfg, err := config.NewConfig(".env")
	if err != nil {
		log.Fatal(err)
	}

	zl, err := logger.New(cfg.LogLevel, cfg.LogDevelopment)
	if err != nil {
		log.Fatal(err)
	}
	defer zl.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, zl); err != nil {
		zl.Fatal("server stopped", zap.Error(err))
	}
	zl.Info("server exiting")
}

func run(ctx context.Context, cfg *config.Config, zl *zap.Logger) error {
	cat := catalog.Default()

	var transcripts handler.TranscriptStore = repository.NewMemoryTranscript()
	var categories repository.CategorySource = repository.NewStaticCategories(cat)

	if cfg.HasDatabase() {
		db, err := sqlx.Connect("postgres", cfg.PostgresDSN())
		if err != nil {
			return err
		}
		defer db.Close()

		repo := repository.NewRepository(db)
		if err := repo.Migrate(ctx); err != nil {
			return err
		}
		transcripts = repo

		if cfg.CatalogSource == "postgres" {
			pg := repository.NewPostgresCategories(db)
			if err := pg.Seed(ctx, cat); err != nil {
				return err
			}
			cached, err := repository.NewCachedCategories(pg, cfg.CatalogCacheSize)
			if err != nil {
				return err
			}
			categories = cached
		}
		zl.Info("postgres connected", zap.String("host", cfg.PgHost), zap.String("catalog", cfg.CatalogSource))
	} else {
		zl.Warn("no database configured, transcripts kept in memory")
	}

	completer, vision, err := llm.New(ctx, llm.Settings{
		Provider:    cfg.LLMProvider,
		APIKey:      cfg.LLMApiKey,
		Model:       cfg.LLMModel,
		VisionModel: cfg.LLMVisionModel,
		BaseURL:     cfg.LLMBaseURL,
	})
	if err != nil {
		return err
	}
	if completer == nil {
		zl.Warn("no language model configured, using deterministic fallbacks")
	}

	engine := service.NewEngine(cat, service.Ports{
		Completer:  completer,
		Vision:     vision,
		Categories: categories,
	}, service.WithTimeout(cfg.LLMTimeout), service.WithLogger(zl))
	sessions := session.NewMemoryStore(engine)

	intake := intakehandler.NewIntakeHandler(sessions, transcripts, categories, zl)
	history := handler.NewHandler(transcripts, zl)

	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(cfg.RequestTimeout))
		intake.RegisterRoutes(r)
		history.RegisterRoutes(r)
	})
	intake.RegisterStream(r)

	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	grpcSrv := grpc.NewServer()
	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(grpcSrv, healthSrv)
	healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		zl.Info("http listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			return err
		}
		zl.Info("grpc health listening", zap.String("addr", cfg.GRPCAddr))
		return grpcSrv.Serve(lis)
	})

	g.Go(func() error {
		ticker := time.NewTicker(sweepEvery)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				if n := sessions.Sweep(cfg.SessionMaxIdle); n > 0 {
					zl.Info("idle sessions dropped", zap.Int("count", n), zap.Int("live", sessions.Len()))
				}
			}
		}
	})

	g.Go(func() error {
		<-gctx.Done()
		zl.Info("shutting down")
		healthSrv.Shutdown()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		grpcSrv.GracefulStop()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
