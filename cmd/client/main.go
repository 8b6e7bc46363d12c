package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"qkd-demo/client"
	"qkd-demo/configs"
)

var logger = logrus.New()

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var configPath, serverAddress, logFile string
	var verbose bool

	flagSet := pflag.NewFlagSet("qkd-client", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "config.jsonc", "path to JSONC config file")
	flagSet.StringVar(&serverAddress, "server", "", "relay host:port (default: server_address from config)")
	flagSet.StringVar(&logFile, "log-file", "", "write logs to this file (default: discard)")
	flagSet.BoolVarP(&verbose, "verbose", "v", false, "debug logging")
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
	if serverAddress != "" {
		cfg.ServerAddress = serverAddress
	}

	// The terminal belongs to gocui
	logger.SetOutput(io.Discard)
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		defer f.Close()
		logger.SetOutput(f)
	}
	if verbose || cfg.Verbose {
		logger.SetLevel(logrus.DebugLevel)
	}
	client.SetLogger(logger)

	if err := client.NewApp(cfg).Run(context.Background()); err != nil {
		return err
	}
	logger.Info("Application exited.")
	return nil
}
