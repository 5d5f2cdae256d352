package cmd

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/plugins/migratecmd"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"receipt-verifier/config"
	"receipt-verifier/internal/handlers"
	"receipt-verifier/internal/receipt"
	"receipt-verifier/internal/services"
	"receipt-verifier/monitoring"
	"receipt-verifier/security"
	"receipt-verifier/utils"
)

func Start() error {
	app := pocketbase.New()

	// Load configuration
	cfg := config.LoadConfig()

	// Enable migrations
	migratecmd.MustRegister(app, app.RootCmd, migratecmd.Config{
		Automigrate: cfg.Environment == "development",
	})

	app.RootCmd.AddCommand(newVerifyCommand(cfg))

	app.OnServe().BindFunc(func(se *core.ServeEvent) error {
		ctx, cancel := context.WithCancel(context.Background())

		// Initialize Redis
		redisClient, err := utils.NewRedisClient(ctx, cfg.RedisURL, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			cancel()
			return err
		}

		app.OnTerminate().BindFunc(func(e *core.TerminateEvent) error {
			cancel()
			redisClient.Close()
			return e.Next()
		})

		monitor := monitoring.NewMonitor(redisClient)
		go monitor.Run(ctx)

		var notifier services.Notifier
		if cfg.PubNubEnabled() {
			notifier = services.NewPubNubNotifier(services.PubNubConfig{
				PublishKey:   cfg.PubNubPublishKey,
				SubscribeKey: cfg.PubNubSubscribeKey,
				SecretKey:    cfg.PubNubSecretKey,
				UserID:       cfg.PubNubUserID,
			})
		}

		// Initialize services
		verifier := newVerifier(cfg, app.Logger(), monitor)
		receiptService := services.NewReceiptService(verifier, services.NewIntegratorStore(app), notifier, monitor, app.Logger())

		// Initialize handlers
		receiptHandler := handlers.NewReceiptHandler(receiptService)

		verifyLimiter := security.NewRateLimiter(redisClient, "verify", cfg.VerifyRateLimit, cfg.RateLimitWindow).
			OnDeny(monitor.TrackRateLimited)

		// Receipt endpoints
		se.Router.POST("/api/v1/receipts/verify", receiptHandler.VerifyReceipt).
			Bind(apis.RequireAuth()).
			BindFunc(verifyLimiter.RequestHandler())

		// Health check
		se.Router.GET("/health", func(e *core.RequestEvent) error {
			if err := utils.RedisHealthCheck(e.Request.Context(), redisClient); err != nil {
				return e.JSON(http.StatusServiceUnavailable, map[string]string{
					"status": "unhealthy",
					"error":  err.Error(),
				})
			}
			return e.JSON(http.StatusOK, map[string]string{"status": "healthy"})
		})

		if cfg.EnableMetrics {
			metricsLimiter := security.NewRateLimiter(redisClient, "metrics", cfg.MetricsRateLimit, cfg.RateLimitWindow).
				OnDeny(monitor.TrackRateLimited)
			go serveMetrics(ctx, ":"+cfg.MetricsPort, metricsLimiter, app.Logger())
		}

		log.Println("Server routes registered")

		return se.Next()
	})

	return app.Start()
}

// newVerifier builds the receipt verifier from config. monitor may be nil.
func newVerifier(cfg *config.Config, logger *slog.Logger, monitor *monitoring.Monitor) *receipt.Verifier {
	var breaker receipt.Breaker
	if cfg.BreakerEnabled {
		breaker = utils.NewCircuitBreaker("cashapp", utils.BreakerSettings{
			MaxRequests:  uint32(cfg.BreakerMaxRequests),
			Interval:     cfg.BreakerInterval,
			Timeout:      cfg.BreakerTimeout,
			FailureRatio: cfg.BreakerFailureRatio,
			OnStateChange: func(name string, from, to utils.State) {
				logger.Warn("provider circuit breaker changed state", "provider", name, "from", from.String(), "to", to.String())
				if monitor != nil {
					monitor.TrackBreakerState(name, int(to))
				}
			},
		})
	}

	return receipt.New(receipt.Config{
		ReceiptBaseURL:     cfg.ReceiptBaseURL,
		ReceiptJSONBaseURL: cfg.ReceiptJSONBaseURL,
		HTTPClient:         &http.Client{Timeout: cfg.ProviderTimeout},
		Breaker:            breaker,
		Logger:             logger,
	})
}

// serveMetrics exposes prometheus metrics on a separate listener until ctx
// is done.
func serveMetrics(ctx context.Context, addr string, limiter *security.RateLimiter, logger *slog.Logger) {
	e := echo.New()
	e.Use(limiter.EchoMiddleware())
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	srv := &http.Server{
		Addr:              addr,
		Handler:           e,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	logger.Info("starting metrics server", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("metrics server stopped", "error", err)
	}
}
