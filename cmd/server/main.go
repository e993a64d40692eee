package main // Entry point package

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/resort-reservation/internal/config"
	"github.com/iliyamo/resort-reservation/internal/database"
	"github.com/iliyamo/resort-reservation/internal/handler"
	"github.com/iliyamo/resort-reservation/internal/logger"
	mw "github.com/iliyamo/resort-reservation/internal/middleware"
	"github.com/iliyamo/resort-reservation/internal/repository"
	"github.com/iliyamo/resort-reservation/internal/router"
	"github.com/iliyamo/resort-reservation/internal/service"
)

func main() {
	_ = godotenv.Load() // .env is optional

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config", "err", err)
		os.Exit(1)
	}
	log := logger.New(os.Stdout, cfg.Env, cfg.LogLevel)

	if err := run(cfg, log); err != nil {
		log.Error("server stopped", "err", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cacheCfg := config.LoadCacheConfig()
	rateCfg := config.LoadRateLimitConfig()

	var rdb *redis.Client
	if cfg.StoreDriver == config.StoreRedis || cacheCfg.Enabled || rateCfg.Enabled {
		client, err := config.NewRedisClient(ctx)
		if err != nil {
			if cfg.StoreDriver == config.StoreRedis {
				return err
			}
			log.Warn("redis unavailable, cache and rate limit disabled", "err", err)
		} else {
			rdb = client
			defer rdb.Close()
		}
	}

	store, closeStore, err := openStore(ctx, cfg, rdb, log)
	if err != nil {
		return err
	}
	defer closeStore()

	var publisher service.Publisher = service.NopPublisher{}
	if cfg.EventsEnabled {
		publisher = service.NewAMQPPublisher(cfg.AMQPURL, log)
	}

	svc, err := service.NewReservationService(ctx, store, log, service.WithPublisher(publisher))
	if err != nil {
		return err
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
	}))
	e.Use(requestLogger(log))
	e.Use(mw.NewTokenBucket(rateCfg, rdb, log))
	e.Use(mw.NewRedisCache(cacheCfg, rdb, log))

	router.RegisterRoutes(e, handler.NewReservationHandler(svc, log))

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := e.Shutdown(shutdownCtx); err != nil {
			log.Error("failed to stop http server", "err", err)
		}
	}()

	addr := ":" + cfg.Port
	log.Info("listening", "addr", addr, "env", cfg.Env, "store", cfg.StoreDriver, "events", cfg.EventsEnabled)
	if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	log.Info("server stopped gracefully")
	return nil
}

// openStore builds the record store named by cfg.StoreDriver.  The returned
// func releases its resources.
func openStore(ctx context.Context, cfg config.Config, rdb *redis.Client, log *slog.Logger) (repository.Store, func(), error) {
	switch cfg.StoreDriver {
	case config.StoreMySQL:
		db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
		if err != nil {
			return nil, nil, fmt.Errorf("open database: %w", err)
		}
		if err := database.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("migrate: %w", err)
		}
		return repository.NewReservationRepo(db, log), func() { _ = db.Close() }, nil
	case config.StoreRedis:
		return repository.NewRedisStore(rdb, cfg.RedisStoreKey, log), func() {}, nil
	default:
		return repository.NewFileStore(cfg.DataFile, log), func() {}, nil
	}
}

// requestLogger bridges Echo's request logger to slog.
func requestLogger(log *slog.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogRemoteIP:  true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
				"request_id", v.RequestID,
				"remote_ip", v.RemoteIP,
			}
			if v.Error != nil {
				log.Error("request", append(attrs, "err", v.Error)...)
				return nil
			}
			log.Info("request", attrs...)
			return nil
		},
	})
}
