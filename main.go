package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"popart_backend/core"
	"popart_backend/core/validation"
	"popart_backend/imagegen"
	"popart_backend/imaging"
	"popart_backend/logging"
	"popart_backend/mailer"
	"popart_backend/metrics"
	"popart_backend/orderflow"
	"popart_backend/payments"
	"popart_backend/shutdown"
	"popart_backend/webapi"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// Service management commands (install/uninstall/...) exit here.
	if HandleServiceCommand(os.Args) {
		return
	}

	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		// Use fmt here since logger isn't initialized yet
		fmt.Printf("Warning: .env file not found: %v\n", err)
	}

	// Determine if running in development mode
	isDevelopment := os.Getenv("DEV_MODE") == "true"

	// Initialize structured logger early
	logger, err := logging.NewLogger(isDevelopment, "app.log")
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(core.ExitCodeError)
	}
	defer func() {
		if syncErr := logger.Sync(); syncErr != nil {
			fmt.Printf("Failed to sync logger: %v\n", syncErr)
		}
	}()

	// When launched by the Windows service manager, the service lifecycle
	// owns the run loop.
	ranAsService, err := RunAsService()
	if err != nil {
		logger.Fatal("Service run failed", zap.Error(err))
	}
	if ranAsService {
		return
	}

	// Report configuration gaps before serving. Missing credentials are
	// not fatal: the affected endpoints report a configuration error and
	// the rest of the API stays up.
	runStartupValidation(logger)

	config, err := core.LoadConfig()
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	logger.Info("Configuration loaded",
		zap.String("image_provider", config.ImageProvider),
		zap.String("host", config.Host),
		zap.Int("port", config.Port),
		zap.Duration("poll_interval", config.PollInterval),
		zap.Duration("poll_timeout", config.PollTimeout),
		zap.Duration("long_poll_timeout", config.LongPollTimeout),
		zap.Int64("max_upload_bytes", config.MaxUploadBytes),
		zap.Int("max_image_edge", config.MaxImageEdge),
		zap.String("catalog_file", config.CatalogPath),
		zap.Bool("stripe_configured", config.StripeSecretKey != ""),
		zap.Bool("webhook_configured", config.StripeWebhookSecret != ""),
		zap.Bool("mailer_configured", config.ResendAPIKey != ""),
		zap.Bool("dev_mode", isDevelopment),
	)

	server, err := buildServer(config, logger)
	if err != nil {
		logger.Fatal("Failed to build server", zap.Error(err))
	}

	manager := shutdown.NewManager(logger)
	manager.Register("http server", 0, server.Shutdown)
	manager.Start()

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", server.Addr()))
		if err := server.Start(); err != nil {
			logger.Error("HTTP server failed", zap.Error(err))
			manager.InitiateShutdown()
		}
	}()

	manager.Wait()

	if err := manager.Shutdown(); err != nil {
		logger.Sync()
		os.Exit(core.ExitCodeError)
	}

	logger.Info("Goodbye!")
	if code := manager.ExitCode(); code != core.ExitCodeSuccess {
		logger.Sync()
		os.Exit(code)
	}
}

// runStartupValidation runs the configuration validation suite and logs a
// summary. Failures are downgraded to warnings: a partially configured
// deployment (e.g. webhook processing only) is a supported mode, and each
// endpoint fails fast at request time when its credential is missing.
func runStartupValidation(logger *logging.Logger) {
	logger.Info("Starting startup validation...")

	suite := validation.NewValidationSuite().
		WithShowProgress(true)

	result := suite.Validate()

	if !result.Success {
		logger.Warn("Configuration validation found gaps",
			zap.Int("passed", result.PassedSteps),
			zap.Int("failed", result.FailedSteps),
			zap.Duration("duration", result.Duration),
		)

		for _, step := range result.Steps {
			if step.Status == validation.StepFailed {
				logger.Warn("Validation step failed",
					zap.String("step", step.Name),
					zap.String("message", step.Message),
					zap.Error(step.Error),
				)
			}
		}

		logger.Warn("Endpoints depending on missing credentials will report a configuration error")
		return
	}

	logger.Info("Configuration validation passed",
		zap.Int("checks_passed", result.PassedSteps),
		zap.Duration("duration", result.Duration),
	)
}

// buildServer wires the configured components into the HTTP server. Each
// optional integration (generation provider, Stripe, Resend) is only wired
// when its credential is present; the API disables the rest per endpoint.
func buildServer(config *core.Config, logger *logging.Logger) (*webapi.Server, error) {
	catalog, err := orderflow.LoadCatalog(config.CatalogPath)
	if err != nil {
		return nil, fmt.Errorf("loading catalog: %w", err)
	}

	encoder := imaging.NewEncoder(config.MaxUploadBytes, config.MaxImageEdge)

	provider, statusSource, err := buildProvider(config, logger)
	if err != nil {
		return nil, err
	}

	var dispatcher *imagegen.Dispatcher
	if provider != nil {
		var opts []imagegen.DispatcherOption
		if uploader := imagegen.NewImgBBUploader(config, logger); uploader != nil {
			opts = append(opts, imagegen.WithUploader(uploader))
		}
		dispatcher, err = imagegen.NewDispatcher(provider, logger, opts...)
		if err != nil {
			return nil, fmt.Errorf("building dispatcher: %w", err)
		}
	}

	var poller *imagegen.Poller
	if statusSource != nil {
		poller, err = imagegen.NewPoller(statusSource, imagegen.PollerConfig{
			Interval:    config.PollInterval,
			Budget:      config.PollTimeout,
			BatchBudget: config.LongPollTimeout,
		}, nil, logger)
		if err != nil {
			return nil, fmt.Errorf("building poller: %w", err)
		}
	}

	var checkout *payments.CheckoutCreator
	if config.StripeSecretKey != "" {
		client, err := payments.NewSessionClient(config.StripeSecretKey)
		if err != nil {
			return nil, fmt.Errorf("building Stripe client: %w", err)
		}
		checkout, err = payments.NewCheckoutCreator(client, logger)
		if err != nil {
			return nil, fmt.Errorf("building checkout creator: %w", err)
		}
	} else {
		logger.Warn("STRIPE_SECRET_KEY not set, checkout endpoint disabled")
	}

	var mail *mailer.Mailer
	if config.ResendAPIKey != "" {
		sender, err := mailer.NewResendSender(config.ResendAPIKey, logger)
		if err != nil {
			return nil, fmt.Errorf("building mail sender: %w", err)
		}
		mail, err = mailer.NewMailer(sender, mailer.Config{
			From:       config.MailFrom,
			SystemFrom: config.MailSystemFrom,
			AdminEmail: config.AdminEmail,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("building mailer: %w", err)
		}
	} else {
		logger.Warn("RESEND_API_KEY not set, order emails disabled")
	}

	var fulfillment *payments.FulfillmentHandler
	if config.StripeWebhookSecret != "" && mail != nil {
		fulfillment, err = payments.NewFulfillmentHandler(config.StripeWebhookSecret, mail, logger)
		if err != nil {
			return nil, fmt.Errorf("building fulfillment handler: %w", err)
		}
	} else if config.StripeWebhookSecret == "" {
		logger.Warn("STRIPE_WEBHOOK_SECRET not set, payment webhook disabled")
	}

	var pipeline *orderflow.Pipeline
	if dispatcher != nil {
		pipeline, err = orderflow.NewPipeline(dispatcher, poller, checkout, logger)
		if err != nil {
			return nil, fmt.Errorf("building pipeline: %w", err)
		}
	}

	api := webapi.NewAPI(webapi.APIConfig{
		Catalog:        catalog,
		Encoder:        encoder,
		Dispatcher:     dispatcher,
		StatusSource:   statusSource,
		Poller:         poller,
		Pipeline:       pipeline,
		Checkout:       checkout,
		Fulfillment:    fulfillment,
		Mailer:         mail,
		Metrics:        metrics.NewStore(metrics.DefaultStoreConfig(), time.Now()),
		MaxUploadBytes: config.MaxUploadBytes,
		Logger:         logger,
	})

	serverConfig := webapi.DefaultServerConfig()
	serverConfig.Host = config.Host
	serverConfig.Port = config.Port

	return webapi.NewServer(serverConfig, api, logger)
}

// buildProvider selects the generation provider from IMAGE_PROVIDER. A
// missing credential returns nil providers rather than an error so the
// server can start with generation disabled.
func buildProvider(config *core.Config, logger *logging.Logger) (imagegen.Provider, imagegen.StatusSource, error) {
	switch config.ImageProvider {
	case core.ProviderOpenAI:
		if config.OpenAIAPIKey == "" {
			logger.Warn("OPENAI_API_KEY not set, generation endpoint disabled")
			return nil, nil, nil
		}
		provider, err := imagegen.NewOpenAIProvider(config)
		if err != nil {
			return nil, nil, fmt.Errorf("building OpenAI provider: %w", err)
		}
		return provider, nil, nil

	default:
		if config.NanoBananaAPIKey == "" {
			logger.Warn("NANOBANANA_API_KEY not set, generation endpoint disabled")
			return nil, nil, nil
		}
		provider, err := imagegen.NewNanoBananaProvider(config, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("building NanoBanana provider: %w", err)
		}
		return provider, provider, nil
	}
}

// serveUntilDone runs the wired server until ctx is cancelled, then shuts
// it down gracefully. Used by the Windows service lifecycle.
func serveUntilDone(ctx context.Context, logger *logging.Logger) error {
	config, err := core.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	server, err := buildServer(config, logger)
	if err != nil {
		return err
	}

	errChan := make(chan error, 1)
	go func() {
		errChan <- server.Start()
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		return server.Shutdown(context.Background())
	}
}
