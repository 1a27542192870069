// Package logging provides categorized structured logging for
// contextos. Each subsystem logs through a named zap logger; category
// enablement and level come from the logging section of the config.
package logging

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category names a logging subsystem.
type Category string

const (
	CategoryBoot     Category = "boot"     // startup/shutdown
	CategoryPipeline Category = "pipeline" // queue and consumer loop
	CategoryIntent   Category = "intent"   // detection and classification
	CategoryAgent    Category = "agent"    // ReAct loop
	CategorySession  Category = "session"  // session lifecycle
	CategoryTools    Category = "tools"    // tool execution
	CategoryAPI      Category = "api"      // LLM API calls
	CategoryConfig   Category = "config"   // config load and hot reload
	CategoryAdapters Category = "adapters" // signal producers
)

var (
	mu      sync.RWMutex
	root    = zap.NewNop()
	loggers = make(map[Category]*zap.SugaredLogger)
)

// Options controls logger construction.
type Options struct {
	// Level is one of debug, info, warn, error. Defaults to info.
	Level string

	// Development switches to the human-readable console encoder.
	Development bool

	// Disabled categories log nothing regardless of level.
	Disabled map[string]bool
}

// Initialize installs the process-wide loggers. Safe to call again on
// config reload; existing Get handles pick up the new backend lazily.
func Initialize(opts Options) error {
	var cfg zap.Config
	if opts.Development {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}

	level := zapcore.InfoLevel
	if opts.Level != "" {
		if err := level.Set(opts.Level); err != nil {
			return err
		}
	}
	cfg.Level = zap.NewAtomicLevelAt(level)

	logger, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return err
	}

	mu.Lock()
	defer mu.Unlock()
	root = logger
	loggers = make(map[Category]*zap.SugaredLogger)
	for cat, off := range opts.Disabled {
		if off {
			loggers[Category(cat)] = zap.NewNop().Sugar()
		}
	}
	return nil
}

// Get returns the logger for a category, creating a named child on
// first use. Before Initialize it returns a no-op logger, which keeps
// tests silent.
func Get(cat Category) *zap.SugaredLogger {
	mu.RLock()
	if l, ok := loggers[cat]; ok {
		mu.RUnlock()
		return l
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if l, ok := loggers[cat]; ok {
		return l
	}
	l := root.Named(string(cat)).Sugar()
	loggers[cat] = l
	return l
}

// Sync flushes buffered log entries. Called on shutdown.
func Sync() {
	mu.RLock()
	defer mu.RUnlock()
	_ = root.Sync()
}
