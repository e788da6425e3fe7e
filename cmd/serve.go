package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/planit/planit/db"
	"github.com/planit/planit/internal/chatbot"
	"github.com/planit/planit/internal/config"
	"github.com/planit/planit/internal/log"
	"github.com/planit/planit/internal/observability"
	"github.com/planit/planit/internal/points"
	"github.com/planit/planit/internal/task"
	"github.com/planit/planit/internal/thread"
	"github.com/planit/planit/internal/web"
	"github.com/planit/planit/internal/web/handlers"
)

// Server timeout configuration.
const (
	readHeaderTimeout = 10 * time.Second
	readTimeout       = 30 * time.Second
	writeTimeout      = handlers.SSETimeout + time.Minute
	idleTimeout       = 2 * time.Minute
	shutdownTimeout   = 30 * time.Second
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(parent context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := log.New(log.Config{Level: cfg.SlogLevel(), JSON: cfg.LogJSON})
	logger.Info("starting planit server", "version", Version, "config", cfg)

	ctx, cancel := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	stopTracing, err := observability.Setup(ctx, observability.Config{
		Endpoint:    cfg.OTLPEndpoint,
		Environment: cfg.Environment,
		ServiceName: cfg.ServiceName,
	})
	if err != nil {
		return fmt.Errorf("setting up tracing: %w", err)
	}
	defer func() {
		if err := stopTracing(context.Background()); err != nil {
			logger.Warn("tracing shutdown error", "error", err)
		}
	}()

	if err := db.Migrate(cfg.DatabaseURL()); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL())
	if err != nil {
		return fmt.Errorf("creating connection pool: %w", err)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}

	bot, err := buildChatbot(ctx, cfg, logger)
	if err != nil {
		return err
	}

	server, err := web.NewServer(web.ServerConfig{
		Logger:  logger,
		DB:      pool,
		Tasks:   task.NewStore(pool, logger),
		Threads: thread.NewStore(pool, logger),
		Points:  points.NewStore(pool, logger),
		Bot:     bot,
	})
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}

	logger.Info("HTTP server ready",
		"addr", cfg.ListenAddr,
		"api", "/api/*",
		"health", "/health, /ready",
		"chatbot_ready", bot.Ready(),
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down HTTP server")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down server: %w", err)
		}
		<-errCh
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("HTTP server: %w", err)
	}
}

// buildChatbot assembles the chat pipeline. A missing API key is not
// fatal: the server still runs and chat endpoints report the assistant
// as unavailable.
func buildChatbot(ctx context.Context, cfg *config.Config, logger log.Logger) (*chatbot.Chatbot, error) {
	registry, err := chatbot.NewRegistry()
	if err != nil {
		return nil, fmt.Errorf("building tool registry: %w", err)
	}

	var model chatbot.Model
	if cfg.GeminiAPIKey == "" {
		logger.Warn("GEMINI_API_KEY not set, chat assistant disabled")
	} else {
		gemini, err := chatbot.NewGemini(ctx, cfg.GeminiAPIKey, cfg.ModelName, registry)
		if err != nil {
			return nil, fmt.Errorf("creating model client: %w", err)
		}
		model = gemini
	}

	bot, err := chatbot.New(chatbot.Config{
		Model:         model,
		Registry:      registry,
		Executor:      chatbot.NewExecutor(cfg.InternalAPIBaseURL, nil, logger),
		Logger:        logger,
		MaxTurns:      cfg.MaxTurns,
		HistoryWindow: cfg.MaxHistoryMessages,
	})
	if err != nil {
		return nil, fmt.Errorf("creating chatbot: %w", err)
	}
	return bot, nil
}
