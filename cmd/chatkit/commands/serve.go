package commands

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/chatkit-ai/chatkit/internal/agent"
	"github.com/chatkit-ai/chatkit/internal/chat"
	"github.com/chatkit-ai/chatkit/internal/config"
	"github.com/chatkit-ai/chatkit/internal/event"
	"github.com/chatkit-ai/chatkit/internal/logging"
	"github.com/chatkit-ai/chatkit/internal/server"
	"github.com/chatkit-ai/chatkit/internal/storage"
)

var (
	servePort int
	serveDir  string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the chatkit HTTP server",
	Long: `Start chatkit as an HTTP server exposing session management,
message streaming, and the event stream.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to listen on (overrides config)")
	serveCmd.Flags().StringVar(&serveDir, "directory", "", "Project directory to load config from")
}

func runServe(cmd *cobra.Command, args []string) error {
	dir := serveDir
	if dir == "" {
		var err error
		dir, err = os.Getwd()
		if err != nil {
			return err
		}
	}

	cfg, err := config.Load(dir)
	if err != nil {
		return err
	}
	if cfg.LogLevel != "" {
		logging.Init(logging.Config{Level: logging.ParseLevel(cfg.LogLevel), Pretty: prettyLog})
	}
	if servePort > 0 {
		cfg.Port = servePort
	}

	settings := config.NewSettings(cfg)
	registry := agent.NewRegistry()
	registry.Register("default", &agent.Echo{})

	bus := event.NewBus()
	defer bus.Close()

	store := storage.New(cfg.DataDir, "sessions")
	persister := chat.NewPersister(store, time.Duration(cfg.PersistDelayMS)*time.Millisecond)

	manager, err := chat.NewManager(settings, registry, bus, persister, cfg.SessionLimit)
	if err != nil {
		return err
	}

	ctx := context.Background()
	if err := manager.Rehydrate(ctx); err != nil {
		logging.Warn().Err(err).Msg("failed to rehydrate sessions")
	}

	serverConfig := server.DefaultConfig()
	serverConfig.Port = cfg.Port

	srv := server.New(serverConfig, manager, settings, registry, bus)

	go func() {
		logging.Info().Int("port", cfg.Port).Msg("chatkit server listening")
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logging.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Error().Err(err).Msg("server shutdown error")
	}

	// Cancel in-flight turns and flush pending snapshots before exit.
	manager.Close(shutdownCtx)

	logging.Info().Msg("server stopped")
	return nil
}
