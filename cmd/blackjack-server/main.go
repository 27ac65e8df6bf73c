package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/lox/blackjacktable/internal/game"
	"github.com/lox/blackjacktable/internal/server"
	"github.com/lox/blackjacktable/internal/store"
)

var CLI struct {
	Config   string `short:"c" long:"config" default:"blackjack-server.hcl" help:"Path to HCL configuration file"`
	Addr     string `short:"a" long:"addr" help:"Server address to bind to (overrides config)"`
	LogLevel string `short:"l" long:"log-level" help:"Log level (overrides config)"`
}

func main() {
	ctx := kong.Parse(&CLI)

	cfg, err := server.LoadConfig(CLI.Config)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		ctx.Exit(1)
	}

	// Apply command line overrides
	if CLI.Addr != "" {
		cfg.Server.Address = CLI.Addr
	}
	if CLI.LogLevel != "" {
		cfg.Server.LogLevel = CLI.LogLevel
	}

	if err := cfg.Validate(); err != nil {
		fmt.Printf("Invalid configuration: %v\n", err)
		ctx.Exit(1)
	}

	logger := log.New(os.Stderr)
	switch cfg.Server.LogLevel {
	case "debug":
		logger.SetLevel(log.DebugLevel)
	case "info":
		logger.SetLevel(log.InfoLevel)
	case "warn":
		logger.SetLevel(log.WarnLevel)
	case "error":
		logger.SetLevel(log.ErrorLevel)
	default:
		logger.SetLevel(log.InfoLevel)
	}

	logger.Info("Starting Blackjack Server",
		"addr", cfg.ListenAddress(),
		"startingBalance", cfg.Game.StartingBalance,
		"maxSeats", cfg.Game.MaxSeats,
		"turnTimeout", cfg.TurnTimeout())

	st := store.New(logger)
	svc := game.NewService(st, logger,
		game.WithStartingBalance(cfg.Game.StartingBalance),
		game.WithMaxSeats(cfg.Game.MaxSeats))

	wsServer := server.NewServer(cfg, svc, logger, quartz.NewReal())

	// Handle graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		logger.Info("Shutting down server...")
		if err := wsServer.Stop(); err != nil {
			logger.Error("Shutdown error", "error", err)
		}
	}()

	// Start server (this blocks)
	if err := wsServer.Start(); err != nil {
		logger.Error("Server failed", "error", err)
		ctx.Exit(1)
	}
}
