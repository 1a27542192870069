package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"contextos/internal/adapters"
	"contextos/internal/config"
	"contextos/internal/logging"
	"contextos/internal/pipeline"
	"contextos/internal/prompt"
	"contextos/internal/session"
	"contextos/internal/tools"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the engine with the interactive console",
	Long: `Starts the signal pipeline, the session handler, the configured
adapters, and the config hot-reload watcher, then reads console
commands from stdin until interrupted.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	if err := initLogging(cfg); err != nil {
		return fmt.Errorf("initializing logging: %w", err)
	}
	defer logging.Sync()

	log := logging.Get(logging.CategoryBoot)
	log.Infow("starting contextos",
		"version", version,
		"config", cfgPath,
		"provider", cfg.Engine.Provider,
		"model", cfg.Engine.Model)

	renderer, err := prompt.NewRenderer()
	if err != nil {
		return fmt.Errorf("loading prompt templates: %w", err)
	}

	engine, err := buildEngine(cfg, renderer)
	if err != nil {
		return fmt.Errorf("building engine: %w", err)
	}

	console := newConsole(os.Stdout)
	handler := session.NewHandler(cfg.Session, engine.Agent, console)

	dispatcher := adapters.NewDispatcher()
	dispatcher.Register(
		adapters.NewFileDrop(cfg.Adapters.FileDrop.Path),
		cfg.Adapters.FileDrop.Enabled,
	)

	pipe := pipeline.New(cfg.Pipeline, engine, handler, dispatcher)

	watcher, err := config.NewWatcher(cfgPath, func(next *config.Config) {
		reloaded, rerr := buildEngine(next, renderer)
		if rerr != nil {
			logging.Get(logging.CategoryConfig).Errorw("engine rebuild failed, keeping previous", "error", rerr)
			return
		}
		pipe.Reload(reloaded)
		handler.SetExecutor(reloaded.Agent)
	})
	if err != nil {
		return fmt.Errorf("creating config watcher: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	handler.Start(ctx)
	if err := pipe.Start(ctx); err != nil {
		handler.Stop()
		return fmt.Errorf("starting pipeline: %w", err)
	}
	if err := watcher.Start(); err != nil {
		log.Warnw("config hot-reload unavailable", "error", err)
	}

	console.runLoop(ctx, stop, pipe, handler)

	log.Infow("shutting down")
	watcher.Stop()
	pipe.Stop()
	handler.Stop()
	return nil
}

// buildEngine assembles the processing stages from one config snapshot.
// Also called on hot reload, where a fresh engine replaces the running
// one atomically.
func buildEngine(cfg *config.Config, renderer *prompt.Renderer) (*pipeline.Engine, error) {
	registry := tools.NewRegistry()
	engine, err := pipeline.NewEngine(cfg, registry, renderer)
	if err != nil {
		return nil, err
	}
	if err := tools.RegisterBuiltins(registry, engine.Client, renderer, cfg.Tools); err != nil {
		return nil, err
	}
	return engine, nil
}

func initLogging(cfg *config.Config) error {
	level := cfg.Logging.Level
	if verbose {
		level = "debug"
	}
	return logging.Initialize(logging.Options{
		Level:       level,
		Development: cfg.Logging.Development,
		Disabled:    cfg.Logging.Disabled,
	})
}
