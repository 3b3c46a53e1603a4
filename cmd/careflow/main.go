package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/clivihealth/careflow/internal/api"
	"github.com/clivihealth/careflow/internal/engine"
	"github.com/clivihealth/careflow/internal/genai"
	"github.com/clivihealth/careflow/internal/messaging"
	"github.com/clivihealth/careflow/internal/session"
	"github.com/clivihealth/careflow/internal/store"
	"github.com/clivihealth/careflow/internal/telegram"
	"github.com/clivihealth/careflow/internal/twiliowhatsapp"
	"github.com/clivihealth/careflow/internal/util"
	"github.com/clivihealth/careflow/internal/whatsapp"
)

const (
	// DefaultStateDir is the default directory for careflow state data.
	DefaultStateDir = "/var/lib/careflow"
	// DefaultDBFileName is the default SQLite database filename.
	DefaultDBFileName = "careflow.db"
	// DefaultWhatsmeowDBFileName is the default whatsmeow session database filename.
	DefaultWhatsmeowDBFileName = "whatsmeow.db"
)

func main() {
	initializeLogger()

	config := loadEnvironmentConfig()
	flags := parseCommandLineFlags(config)

	if err := ensureDirectoriesExist(flags); err != nil {
		slog.Error("Failed to create required directories", "error", err)
		os.Exit(1)
	}

	slog.Info("Bootstrapping careflow with configured modules")
	if err := run(flags); err != nil {
		slog.Error("careflow failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("careflow exited successfully")
}

// Config holds environment configuration.
type Config struct {
	StateDir        string
	DatabaseURL     string
	WhatsmeowDSN    string
	OpenAIKey       string
	APIAddr         string
	TelegramToken   string
	IdleTimeout     time.Duration
	FallbackTimeout time.Duration
	UseWhatsmeow    bool
	UseTwilio       bool
}

// Flags holds command line flag values.
type Flags struct {
	stateDir        *string
	dbDSN           *string
	whatsmeowDSN    *string
	qrOutput        *string
	numeric         *bool
	openaiKey       *string
	apiAddr         *string
	telegramToken   *string
	idleTimeout     *time.Duration
	fallbackTimeout *time.Duration
	useWhatsmeow    *bool
	useTwilio       *bool
}

// initializeLogger sets up structured logging.
func initializeLogger() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	slog.SetDefault(logger)
}

// loadEnvironmentConfig loads configuration from environment variables and the .env file.
func loadEnvironmentConfig() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	} else {
		slog.Debug("successfully loaded .env file")
	}

	config := Config{
		StateDir:        os.Getenv("CAREFLOW_STATE_DIR"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		WhatsmeowDSN:    os.Getenv("WHATSAPP_DB_DSN"),
		OpenAIKey:       os.Getenv("OPENAI_API_KEY"),
		APIAddr:         os.Getenv("API_ADDR"),
		TelegramToken:   os.Getenv("TELEGRAM_BOT_TOKEN"),
		IdleTimeout:     util.ParseDurationEnv("SESSION_IDLE_TIMEOUT", session.DefaultIdleTimeout),
		FallbackTimeout: util.ParseDurationEnv("FALLBACK_TIMEOUT", engine.DefaultFallbackTimeout),
		UseWhatsmeow:    util.ParseBoolEnv("WHATSAPP_ENABLED", false),
		UseTwilio:       util.ParseBoolEnv("TWILIO_ENABLED", false),
	}

	if config.StateDir == "" {
		config.StateDir = DefaultStateDir
		slog.Debug("No CAREFLOW_STATE_DIR set, using default", "default_state_dir", config.StateDir)
	}
	if config.DatabaseURL == "" {
		config.DatabaseURL = filepath.Join(config.StateDir, DefaultDBFileName)
		slog.Debug("No DATABASE_URL provided, defaulting to SQLite", "sqlite_path", config.DatabaseURL)
	}
	if config.WhatsmeowDSN == "" {
		config.WhatsmeowDSN = filepath.Join(config.StateDir, DefaultWhatsmeowDBFileName)
	}

	slog.Debug("environment variables loaded",
		"CAREFLOW_STATE_DIR", config.StateDir,
		"DATABASE_URL_SET", config.DatabaseURL != "",
		"OPENAI_API_KEY_SET", config.OpenAIKey != "",
		"TELEGRAM_BOT_TOKEN_SET", config.TelegramToken != "",
		"API_ADDR", config.APIAddr,
		"WHATSAPP_ENABLED", config.UseWhatsmeow,
		"TWILIO_ENABLED", config.UseTwilio)

	return config
}

// parseCommandLineFlags parses command line arguments with environment defaults.
func parseCommandLineFlags(config Config) Flags {
	flags := Flags{
		stateDir:        flag.String("state-dir", config.StateDir, "state directory for careflow data (overrides $CAREFLOW_STATE_DIR)"),
		dbDSN:           flag.String("db-dsn", config.DatabaseURL, "database DSN for the session store (overrides $DATABASE_URL)"),
		whatsmeowDSN:    flag.String("whatsapp-db-dsn", config.WhatsmeowDSN, "database DSN for the whatsmeow session (overrides $WHATSAPP_DB_DSN)"),
		qrOutput:        flag.String("qr-output", "", "path to write WhatsApp login QR code"),
		numeric:         flag.Bool("numeric-code", false, "use numeric WhatsApp login code instead of QR code"),
		openaiKey:       flag.String("openai-api-key", config.OpenAIKey, "OpenAI API key (overrides $OPENAI_API_KEY)"),
		apiAddr:         flag.String("api-addr", config.APIAddr, "API server address (overrides $API_ADDR)"),
		telegramToken:   flag.String("telegram-token", config.TelegramToken, "Telegram bot token (overrides $TELEGRAM_BOT_TOKEN)"),
		idleTimeout:     flag.Duration("idle-timeout", config.IdleTimeout, "session idle timeout (overrides $SESSION_IDLE_TIMEOUT)"),
		fallbackTimeout: flag.Duration("fallback-timeout", config.FallbackTimeout, "generative fallback timeout (overrides $FALLBACK_TIMEOUT)"),
		useWhatsmeow:    flag.Bool("whatsapp", config.UseWhatsmeow, "enable the whatsmeow WhatsApp transport (overrides $WHATSAPP_ENABLED)"),
		useTwilio:       flag.Bool("twilio", config.UseTwilio, "enable the Twilio WhatsApp transport (overrides $TWILIO_ENABLED)"),
	}
	flag.Parse()

	slog.Debug("flags parsed",
		"stateDir", *flags.stateDir,
		"dbDSN_set", *flags.dbDSN != "",
		"openaiKeySet", *flags.openaiKey != "",
		"telegramTokenSet", *flags.telegramToken != "",
		"apiAddr", *flags.apiAddr,
		"idleTimeout", *flags.idleTimeout,
		"whatsapp", *flags.useWhatsmeow,
		"twilio", *flags.useTwilio)

	return flags
}

// ensureDirectoriesExist creates the state directory for file-based storage.
func ensureDirectoriesExist(flags Flags) error {
	if store.DetectDSNType(*flags.dbDSN) == "sqlite" {
		stateDir := filepath.Dir(*flags.dbDSN)
		if err := os.MkdirAll(stateDir, 0755); err != nil {
			slog.Error("Failed to create state directory", "error", err, "state_dir", stateDir)
			return err
		}
	}
	return nil
}

// buildStore opens the session store matching the DSN type.
func buildStore(flags Flags) (store.Store, error) {
	dsn := *flags.dbDSN
	if dsn == "" {
		slog.Debug("No database DSN provided, using in-memory store")
		return store.NewInMemoryStore(), nil
	}
	if store.DetectDSNType(dsn) == "postgres" {
		slog.Debug("Detected PostgreSQL DSN, configuring PostgreSQL store")
		return store.NewPostgresStore(store.WithPostgresDSN(dsn))
	}
	slog.Debug("Detected SQLite DSN, configuring SQLite store", "db_path", dsn)
	return store.NewSQLiteStore(store.WithSQLiteDSN(dsn))
}

// buildTransports assembles the enabled channel transports.
func buildTransports(flags Flags) ([]messaging.Service, *messaging.TwilioService, error) {
	var services []messaging.Service
	var twilioSvc *messaging.TwilioService

	if *flags.telegramToken != "" {
		bot, err := telegram.NewBot(telegram.WithToken(*flags.telegramToken))
		if err != nil {
			return nil, nil, err
		}
		services = append(services, messaging.NewTelegramService(bot))
		slog.Info("Telegram transport configured")
	}

	if *flags.useTwilio {
		client, err := twiliowhatsapp.NewClient()
		if err != nil {
			return nil, nil, err
		}
		twilioSvc = messaging.NewTwilioService(client, nil)
		services = append(services, twilioSvc)
		slog.Info("Twilio WhatsApp transport configured")
	}

	if *flags.useWhatsmeow {
		waOpts := []whatsapp.Option{whatsapp.WithDBDSN(*flags.whatsmeowDSN)}
		if *flags.qrOutput != "" {
			waOpts = append(waOpts, whatsapp.WithQRCodeOutput(*flags.qrOutput))
		}
		if *flags.numeric {
			waOpts = append(waOpts, whatsapp.WithNumericCode())
		}
		client, err := whatsapp.NewClient(waOpts...)
		if err != nil {
			return nil, nil, err
		}
		services = append(services, messaging.NewWhatsAppService(client))
		slog.Info("Whatsmeow WhatsApp transport configured")
	}

	return services, twilioSvc, nil
}

func run(flags Flags) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := buildStore(flags)
	if err != nil {
		return err
	}
	defer st.Close()

	pages, err := engine.BuildPageSet()
	if err != nil {
		return err
	}
	slog.Info("Conversation pages loaded", "count", pages.Len())

	var genaiClient engine.GenAIClient
	if *flags.openaiKey != "" {
		client, err := genai.NewClient(genai.WithAPIKey(*flags.openaiKey))
		if err != nil {
			return err
		}
		genaiClient = client
	} else {
		slog.Warn("No OpenAI API key configured, generative fallback disabled")
	}

	dispatcher := engine.NewAgentDispatcher(genaiClient, *flags.fallbackTimeout)
	router := engine.NewRouter(pages, engine.NewEmergencyDetector(), dispatcher)
	manager := session.NewManager(st, router, session.WithIdleTimeout(*flags.idleTimeout))

	services, twilioSvc, err := buildTransports(flags)
	if err != nil {
		return err
	}
	handler := messaging.NewHandler(manager, services...)
	if err := handler.Start(ctx); err != nil {
		return err
	}
	defer handler.Stop()

	apiOpts := []api.Option{api.WithStore(st)}
	if *flags.apiAddr != "" {
		apiOpts = append(apiOpts, api.WithAddr(*flags.apiAddr))
	}
	if twilioSvc != nil {
		apiOpts = append(apiOpts, api.WithTwilioService(twilioSvc))
	}
	server := api.NewServer(apiOpts...)
	return server.Run(ctx)
}
