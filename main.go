package main

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

	"github.com/gin-gonic/gin"
	"github.com/vapecity/vapecity-api/bot"
	"github.com/vapecity/vapecity-api/config"
	"github.com/vapecity/vapecity-api/jobs"
	"github.com/vapecity/vapecity-api/logging"
	"github.com/vapecity/vapecity-api/metrics"
	"github.com/vapecity/vapecity-api/models"
	"github.com/vapecity/vapecity-api/services"
)

const shutdownTimeout = 10 * time.Second

var errNoDatabase = errors.New("database is not connected")

func main() {
	if err := run(); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	config.SetConfig(cfg)

	logger := logging.NewLogger(cfg.LogLevel)
	slog.SetDefault(logger)
	services.SetLogger(logger)
	metrics.Registry(cfg.MetricsNamespace)
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	logger.Info("starting VapeCity API server", "env", cfg.GoEnv, "order_flow", cfg.OrderFlow)

	// Connect to database
	if err := config.ConnectDatabase(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	db := config.GetDB()
	if err := models.Migrate(db); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	logger.Info("database migration completed")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	storage, err := newStorage(ctx, cfg)
	if err != nil {
		return err
	}
	services.InitFileStorage(storage)

	reservations, err := newReservationService(cfg, storage, logger)
	if err != nil {
		return err
	}
	services.InitReservationService(reservations)
	images, err := services.NewImageGenerator(ctx, cfg)
	if err != nil {
		return err
	}
	services.SetImageGenerator(images)

	sellerBot := bot.NewManager(db, reservations, bot.ManagerOptions{
		FallbackToken: cfg.SellerBotToken,
		Logger:        logger,
	})
	reservations.SetNotifier(sellerBot)
	services.SetBotRunner(sellerBot)
	if err := sellerBot.Start(""); err != nil {
		logger.Warn("seller bot not started", "error", err)
	}

	customerBot := startCustomerBot(ctx, cfg, logger)

	jobs.NewExpirySweeper(reservations, cfg.ExpirySweepInterval, logger).Start(ctx)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           newRouter(cfg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server is running", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
	case <-ctx.Done():
		logger.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}

	sellerBot.Stop()
	if customerBot != nil {
		customerBot.Stop()
	}
	sellerBot.Wait()
	return nil
}

func newStorage(ctx context.Context, cfg *config.Config) (services.FileStorage, error) {
	if cfg.StorageBackend == "s3" {
		storage, err := services.NewS3Storage(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize S3 storage: %w", err)
		}
		return storage, nil
	}
	storage, err := services.NewLocalStorage(cfg.UploadDir)
	if err != nil {
		return nil, err
	}
	return storage, nil
}

func newReservationService(cfg *config.Config, storage services.FileStorage, logger *slog.Logger) (*services.ReservationService, error) {
	flow, err := models.FlowByName(cfg.OrderFlow)
	if err != nil {
		return nil, err
	}
	fees, err := cfg.ParseDeliveryFees()
	if err != nil {
		return nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	return services.NewReservationService(config.GetDB(), services.ReservationOptions{
		Flow:     flow,
		Fees:     fees,
		Storage:  storage,
		Location: loc,
		Logger:   logger,
	}), nil
}

// startCustomerBot starts the welcome bot when a token is configured
func startCustomerBot(ctx context.Context, cfg *config.Config, logger *slog.Logger) *bot.Poller {
	if cfg.CustomerBotToken == "" {
		logger.Info("customer bot disabled, CUSTOMER_BOT_TOKEN is not set")
		return nil
	}
	client, err := bot.NewTelegramClient(cfg.CustomerBotToken)
	if err != nil {
		logger.Warn("customer bot not started", "error", err)
		return nil
	}
	handler := bot.NewCustomerBot(cfg.WebAppURL, cfg.WelcomeSticker, logger)
	poller := bot.NewPoller("customer", client, handler, logger.With("component", "customer_bot"))
	poller.Start(ctx)
	return poller
}

func botStatus() gin.H {
	runner := services.GetBotRunner()
	return gin.H{
		"enabled": runner != nil,
		"running": runner != nil && runner.IsRunning(),
	}
}
