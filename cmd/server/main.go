package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	httpadapter "github.com/contractflow/contractflow/internal/adapter/http"
	"github.com/contractflow/contractflow/internal/adapter/memory"
	"github.com/contractflow/contractflow/internal/adapter/persistence"
	"github.com/contractflow/contractflow/internal/adapter/render"
	"github.com/contractflow/contractflow/internal/adapter/storage"
	"github.com/contractflow/contractflow/internal/config"
	"github.com/contractflow/contractflow/internal/infra/jwt"
	"github.com/contractflow/contractflow/internal/infra/logger"
	"github.com/contractflow/contractflow/internal/infra/metrics"
	"github.com/contractflow/contractflow/internal/infra/password"
	"github.com/contractflow/contractflow/internal/infra/ratelimit"
	"github.com/contractflow/contractflow/internal/ports"
	"github.com/contractflow/contractflow/internal/usecase"
)

func main() {
	ctx := context.Background()

	// A missing .env is fine; the environment may already be populated
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	structuredLogger := logger.NewStructuredLogger(logger.LoggerConfig{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		ServiceName: "contractflow",
	})
	structuredLogger.Info(ctx, "Application starting", map[string]interface{}{
		"env":            cfg.Server.Environment,
		"store_driver":   cfg.Database.Driver,
		"storage_driver": cfg.Storage.Driver,
	})

	// Stores
	var (
		contracts ports.ContractStore
		actors    ports.ActorRepository
		health    func(ctx context.Context) error
	)
	switch cfg.Database.Driver {
	case "memory":
		actorRepo := memory.NewActorRepository()
		contracts = memory.NewStore(actorRepo)
		actors = actorRepo
		structuredLogger.Warn(ctx, "Using in-memory store; data is lost on restart", nil)
	default:
		db, err := openDatabase(ctx, cfg)
		if err != nil {
			structuredLogger.Error(ctx, "Failed to connect to database", err, map[string]interface{}{
				"host":   cfg.Database.Host,
				"dbname": cfg.Database.DBName,
			})
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()
		structuredLogger.Info(ctx, "Database connection established", map[string]interface{}{
			"host":   cfg.Database.Host,
			"dbname": cfg.Database.DBName,
		})

		contracts = persistence.NewPostgresContractStore(db)
		actors = persistence.NewPostgresActorRepository(db)
		health = db.PingContext
	}

	blobs, err := openBlobStorage(ctx, cfg)
	if err != nil {
		structuredLogger.Error(ctx, "Failed to initialize attachment storage", err, map[string]interface{}{
			"driver": cfg.Storage.Driver,
		})
		log.Fatalf("Failed to initialize attachment storage: %v", err)
	}

	renderer, err := render.NewPDFRenderer(render.PDFOptions{FontPath: cfg.Storage.PDFFontPath})
	if err != nil {
		log.Fatalf("Failed to initialize PDF renderer: %v", err)
	}
	if !renderer.HasUnicodeFont() {
		structuredLogger.Warn(ctx, "No PDF font configured; exports use English labels", map[string]interface{}{
			"env": "PDF_FONT_PATH",
		})
	}

	// Services
	tokenService, err := jwt.NewJWTService(jwt.Config{
		Secret:         cfg.Security.JWTSecret,
		Algorithm:      cfg.Security.JWTAlgorithm,
		AccessTokenTTL: cfg.Security.JWTExpiration,
		Issuer:         "contractflow",
	})
	if err != nil {
		log.Fatalf("Failed to initialize JWT service: %v", err)
	}
	passwordService := password.NewBcryptPasswordService(cfg.Security.BcryptCost)

	rateLimitService, err := ratelimit.NewRateLimitService(ctx, ratelimit.Config{
		Enabled:       cfg.Security.RateLimitEnabled,
		RedisAddr:     cfg.GetRedisAddr(),
		RedisPassword: cfg.Redis.Password,
		RedisDB:       cfg.Redis.DB,
		Requests:      cfg.Security.RateLimitRequests,
		Window:        cfg.Security.RateLimitWindow,
		LoginAttempts: cfg.Security.LoginAttempts,
		LoginWindow:   cfg.Security.LoginWindow,
		BlockDuration: cfg.Security.LoginBlockDuration,
	}, structuredLogger)
	if err != nil {
		structuredLogger.Error(ctx, "Failed to initialize rate limit service; continuing without it", err, map[string]interface{}{
			"redis_addr": cfg.GetRedisAddr(),
		})
		rateLimitService = ratelimit.NoopRateLimitService{}
	}
	throttle := ratelimit.NewLoginThrottle(
		rateLimitService,
		cfg.Security.LoginAttempts,
		cfg.Security.LoginWindow,
		cfg.Security.LoginBlockDuration,
	)

	// Use cases
	engine := usecase.NewContractEngine(contracts, blobs, metrics.NewTransitionRecorder(), structuredLogger)
	queries := usecase.NewContractQueryService(contracts, renderer)
	attachments := usecase.NewAttachmentUseCase(contracts, blobs, structuredLogger, cfg.Storage.MaxUploadBytes)
	actorUseCase := usecase.NewActorUseCase(actors, passwordService, structuredLogger)
	authUseCase := usecase.NewAuthUseCase(actors, passwordService, tokenService, throttle, structuredLogger)

	var expiryJob *usecase.ExpiryJob
	if cfg.Scheduler.ExpiryEnabled {
		expiryJob = usecase.NewExpiryJob(
			engine,
			contracts,
			actors,
			cfg.Scheduler.SystemUsername,
			cfg.Scheduler.ExpirySchedule,
			structuredLogger,
		)
		expiryJob.OnSweep(func(d time.Duration) {
			metrics.ExpirySweepDuration.Observe(d.Seconds())
		})
		if err := expiryJob.Start(); err != nil {
			log.Fatalf("Failed to start expiry job: %v", err)
		}
	}

	deps := httpadapter.Dependencies{
		Auth:        authUseCase,
		Actors:      actorUseCase,
		Engine:      engine,
		Queries:     queries,
		Attachments: attachments,
		Health:      health,
		Logger:      structuredLogger,
	}
	if cfg.Security.RateLimitEnabled {
		deps.RateLimit = rateLimitService
	}

	server := httpadapter.NewServer(httpadapter.ServerConfig{
		Host:              cfg.Server.Host,
		Port:              cfg.Server.Port,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
		CORSOrigins:       cfg.Security.CORSOrigins,
		CORSCredentials:   cfg.Security.CORSCredentials,
		MaxUploadBytes:    cfg.Storage.MaxUploadBytes,
		RateLimitRequests: cfg.Security.RateLimitRequests,
		RateLimitWindow:   cfg.Security.RateLimitWindow,
	}, deps)

	go func() {
		if err := server.Start(); err != nil {
			structuredLogger.Error(ctx, "Server failed to start", err, map[string]interface{}{
				"host": cfg.Server.Host,
				"port": cfg.Server.Port,
			})
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	structuredLogger.Info(ctx, "Shutting down server...", nil)

	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		structuredLogger.Error(ctx, "Server forced to shutdown", err, nil)
	}
	if expiryJob != nil {
		expiryJob.Stop(shutdownCtx)
	}
	structuredLogger.Info(ctx, "Server exited", nil)
}

func openDatabase(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.GetDatabaseURL())
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(cfg.Database.MaxConnections)
	db.SetMaxIdleConns(cfg.Database.MaxConnections / 2)
	db.SetConnMaxIdleTime(cfg.Database.MaxIdleTime)

	pingCtx, cancel := context.WithTimeout(ctx, cfg.Database.ConnectTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func openBlobStorage(ctx context.Context, cfg *config.Config) (ports.BlobStorage, error) {
	if cfg.Storage.Driver != "minio" {
		localStorage, err := storage.NewLocalStorage(cfg.Storage.UploadDir)
		if err != nil {
			return nil, err
		}
		return localStorage, nil
	}

	minioStorage, err := storage.NewMinioStorage(storage.MinioConfig{
		Endpoint:  cfg.Storage.MinioEndpoint,
		AccessKey: cfg.Storage.MinioAccessKey,
		SecretKey: cfg.Storage.MinioSecretKey,
		Bucket:    cfg.Storage.MinioBucket,
		UseSSL:    cfg.Storage.MinioUseSSL,
	})
	if err != nil {
		return nil, err
	}
	if err := minioStorage.EnsureBucket(ctx); err != nil {
		return nil, err
	}
	return minioStorage, nil
}
