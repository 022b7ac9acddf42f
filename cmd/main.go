package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	"gitlab.com/plantguard-2025.net/internal/adapter/postgres/runrepository"
	"gitlab.com/plantguard-2025.net/internal/adapter/redis/reportcache"
	"gitlab.com/plantguard-2025.net/internal/config"
	"gitlab.com/plantguard-2025.net/internal/core/services/unittest"
	"gitlab.com/plantguard-2025.net/internal/engine/project"
	logger2 "gitlab.com/plantguard-2025.net/internal/global/logger"
	http2 "gitlab.com/plantguard-2025.net/internal/http"
	"gitlab.com/plantguard-2025.net/internal/plantcare"
	"gitlab.com/plantguard-2025.net/internal/schedulerengine"
)

func main() {
	InitReader()
	// Set up graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	logger2.Info("Starting unit test service")

	logger := logger2.Logger
	defer logger.Sync()
	// deferred calls do not run past os.Exit
	exit := func() {
		_ = logger.Sync()
		os.Exit(1)
	}

	sysCfg := config.NewSystemConfig()

	db, err := setupDatabase(ctx, sysCfg.PostgresConfig)
	if err != nil {
		logger.Error("Failed to set up database", "error", err)
		exit()
	}
	defer db.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     sysCfg.RedisConfig.Url,
		Password: sysCfg.RedisConfig.Password,
		DB:       sysCfg.RedisConfig.DB,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("Redis is not reachable, reports will be read from postgres", "error", err)
	}

	// SECONDARY PORTS
	runRepo := runrepository.NewRunRepository(db, sysCfg.PostgresConfig.Schema, logger)
	if err := runRepo.EnsureSchema(ctx); err != nil {
		exit()
	}
	reportCache := reportcache.NewReportCache(redisClient, sysCfg.RedisConfig.ReportTTL, sysCfg.RedisConfig.RecentLimit, logger)

	//projects
	catalog := project.NewCatalog()
	if err := plantcare.Register(catalog); err != nil {
		logger.Error("Failed to register project", "root", plantcare.Root, "error", err)
		exit()
	}

	//services
	unitTestSvc := unittest.NewUnitTestService(catalog, runRepo, reportCache, sysCfg.UnitTestConfig, logger)
	serviceProvider := http2.NewServiceProvider(unitTestSvc, sysCfg.UnitTestConfig, sysCfg.JwtConfig)

	//server
	httServer := http2.NewServer(sysCfg.HTTPConfig.Port, sysCfg.HTTPConfig.ServiceName, *serviceProvider, logger)
	if err := httServer.Init(); err != nil {
		logger.Error("Failed to init http server", "error", err)
		exit()
	}
	retention := schedulerengine.NewRetentionEngine(sysCfg.RetentionConfig, runRepo, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(httServer.Start)
	g.Go(func() error {
		if !sysCfg.DebugMode {
			retention.Start(gctx)
		}
		<-gctx.Done()
		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		retention.Stop()
		return httServer.Stop(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server stopped with error", "error", err)
		exit()
	}
	logger.Info("successfully shutdown server")
}

// setupDatabase sets up the PostgreSQL connection
func setupDatabase(ctx context.Context, cfg *config.PostgresConfig) (*sqlx.DB, error) {
	db, err := sqlx.Open("postgres", cfg.Url)
	if err != nil {
		return nil, err
	}

	// Test the connection
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

// InitReader loads <env>.env when an environment name is given, .env otherwise
func InitReader() {
	file := ".env"
	if len(os.Args) >= 2 {
		file = os.Args[1] + ".env"
	}

	if err := godotenv.Load(file); err != nil {
		if len(os.Args) >= 2 {
			log.Fatalf("Error loading %s file", file)
		}
		log.Printf("No %s file, using process environment", file)
	}
}
