// Copyright 2026 The Holdq Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/holdq/holdq/hostlink"
	"github.com/holdq/holdq/lib/clock"
	"github.com/holdq/holdq/lib/config"
	"github.com/holdq/holdq/lib/metrics"
	"github.com/holdq/holdq/lib/process"
)

func main() {
	if err := run(); err != nil {
		process.Fatal(err)
	}
}

func run() error {
	var (
		configPath string
		debug      bool
	)
	flags := pflag.NewFlagSet("holdqd", pflag.ContinueOnError)
	flags.StringVar(&configPath, "config", os.Getenv("HOLDQ_CONFIG"), "path to holdq.yaml (default $HOLDQ_CONFIG)")
	flags.BoolVar(&debug, "debug", false, "log at debug level regardless of the config")
	if err := flags.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.LoadFile(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	level := slog.LevelInfo
	if debug || cfg.Debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if configPath == "" {
		logger.Warn("no configuration file; using defaults and operator changes will not be saved")
	}
	for _, adjustment := range cfg.Adjustments() {
		logger.Warn("configuration adjusted", "adjustment", adjustment)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	listener, err := hostlink.Listen(cfg.Paths.HostSocket, hostlink.DefaultCallTimeout, logger)
	if err != nil {
		return fmt.Errorf("listening for the host: %w", err)
	}
	defer listener.Close()

	d := &daemon{
		clock:      clock.Real(),
		config:     cfg,
		configPath: configPath,
		metrics:    metrics.New(),
		logger:     logger,
	}

	logger.Info("holdqd waiting for host", "socket", listener.Path())
	for {
		link, err := listener.Accept(ctx)
		if err != nil {
			if ctx.Err() != nil {
				logger.Info("shutting down")
				return nil
			}
			return fmt.Errorf("accepting host: %w", err)
		}
		if err := d.serve(ctx, link); err != nil {
			return err
		}
		if ctx.Err() != nil {
			logger.Info("shutting down")
			return nil
		}
		logger.Warn("host disconnected; waiting for it to reconnect")
	}
}
