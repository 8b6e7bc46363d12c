package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"qkd-demo/configs"
	"qkd-demo/server"
)

var (
	logger = logrus.New()
)

func main() {
	if err := run(); err != nil {
		logger.Fatalf("Error running server: %v", err)
	}
}

func run() error {
	var configPath, listen, redisURL string
	var verbose, noJournal bool

	flagSet := pflag.NewFlagSet("qkd-server", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "config.jsonc", "path to JSONC config file")
	flagSet.StringVar(&listen, "listen", "", "listen address (default: server_address from config)")
	flagSet.StringVar(&redisURL, "redis", "", "redis URL for the event journal (default: redis_url from config)")
	flagSet.BoolVar(&noJournal, "no-journal", false, "run without the redis event journal")
	flagSet.BoolVarP(&verbose, "verbose", "v", false, "log every event")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	cfg, err := configs.Load(configPath)
	if err != nil {
		return err
	}
	if listen == "" {
		listen = cfg.ServerAddress
	}
	if redisURL != "" {
		cfg.RedisURL = redisURL
	}
	logger.SetLevel(logrus.InfoLevel)
	if verbose || cfg.Verbose {
		logger.SetLevel(logrus.DebugLevel)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var journal server.Journal
	if !noJournal {
		redisJournal, err := server.NewRedisJournal(ctx, cfg.RedisURL, cfg.AppName)
		if err != nil {
			return fmt.Errorf("failed to open journal: %w", err)
		}
		// The session protocol does not survive a restart, so neither does the exchange
		if err := redisJournal.Reset(ctx); err != nil {
			redisJournal.Close()
			return fmt.Errorf("failed to reset journal: %w", err)
		}
		journal = redisJournal
	}

	s := server.NewServer(ctx, journal, server.NewMetrics(), logger)
	defer s.Close()

	httpServer := &http.Server{Addr: listen, Handler: s.Router()}
	go func() {
		<-ctx.Done()
		logger.Info("Closing server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	logger.Infof("WebSocket server running on ws://%s%s", listen, configs.WebSocketPath)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("error starting server: %w", err)
	}
	return nil
}
