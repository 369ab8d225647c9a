package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/moritahiro/wearmarket-backend/api/routes"
	"github.com/moritahiro/wearmarket-backend/internal/cart"
	"github.com/moritahiro/wearmarket-backend/internal/grades"
	"github.com/moritahiro/wearmarket-backend/internal/notifications"
	"github.com/moritahiro/wearmarket-backend/internal/orders"
	"github.com/moritahiro/wearmarket-backend/internal/users"
	"github.com/moritahiro/wearmarket-backend/pkg/auth/session"
	"github.com/moritahiro/wearmarket-backend/pkg/config"
	"github.com/moritahiro/wearmarket-backend/pkg/db"
	"github.com/moritahiro/wearmarket-backend/pkg/logger"
	"github.com/moritahiro/wearmarket-backend/pkg/metrics"
	"github.com/moritahiro/wearmarket-backend/pkg/migrate"
	"github.com/moritahiro/wearmarket-backend/pkg/outbox"
	"github.com/moritahiro/wearmarket-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	gradeTable, err := grades.Load(context.Background(), dbClient.DB())
	if err != nil {
		logg.Error(context.Background(), "failed to load grade table", err)
		os.Exit(1)
	}

	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)
	checkoutMetrics := metrics.NewCheckoutMetrics(prometheus.DefaultRegisterer)

	ordersService, err := orders.NewService(
		dbClient,
		orders.NewRepository(dbClient.DB()),
		users.NewRepository(dbClient.DB()),
		cart.NewRepository(dbClient.DB()),
		gradeTable,
		outboxService,
		checkoutMetrics,
		logg,
		cfg.Checkout.TxTimeout,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	notificationsService, err := notifications.NewService(notifications.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create notifications service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(cfg, logg, redisClient, sessionManager, ordersService, notificationsService),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
