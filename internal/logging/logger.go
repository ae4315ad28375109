// Package logging provides config-driven categorized logging for cvranon.
// Each category is a named child of the root zap logger; categories are
// silent unless debug_mode is on and the category is enabled.
package logging

import (
	"fmt"
	"sync"
	"time"

	"cvranon/internal/config"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category represents a log category/system
type Category string

const (
	CategoryBoot     Category = "boot"     // CLI startup, config resolution
	CategoryIO       Category = "io"       // File adapters (CSV, Parquet, atomic writes)
	CategoryClassify Category = "classify" // Signatures, style audit, rarity
	CategoryPlanner  Category = "planner"  // Aggregation planning and coverage
	CategoryBalance  Category = "balance"  // Near-unanimous correction
	CategoryVerify   Category = "verify"   // Tally verification
	CategoryLedger   Category = "ledger"   // Run ledger persistence
)

var (
	loggers   = make(map[Category]*zap.Logger)
	loggersMu sync.RWMutex
	root      = zap.NewNop()
	cfg       config.LoggingConfig
	cfgMu     sync.RWMutex
)

// Initialize installs the root logger and category toggles.
// Should be called once at startup.
func Initialize(base *zap.Logger, lc config.LoggingConfig) {
	if base == nil {
		base = zap.NewNop()
	}

	cfgMu.Lock()
	cfg = lc
	cfgMu.Unlock()

	loggersMu.Lock()
	root = base
	loggers = make(map[Category]*zap.Logger)
	loggersMu.Unlock()

	Get(CategoryBoot).Debug("category logging initialized",
		zap.Bool("debug_mode", lc.DebugMode),
		zap.Int("category_overrides", len(lc.Categories)))
}

// NewRoot builds the process root logger from the logging config.
// verbose forces debug level.
func NewRoot(lc config.LoggingConfig, verbose bool) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if lc.Format == "console" {
		zc.Encoding = "console"
		zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	if lc.Level != "" {
		level, err := zapcore.ParseLevel(lc.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", lc.Level, err)
		}
		zc.Level = zap.NewAtomicLevelAt(level)
	}
	if verbose {
		zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return zc.Build()
}

// IsCategoryEnabled returns whether a specific category is enabled
func IsCategoryEnabled(category Category) bool {
	cfgMu.RLock()
	defer cfgMu.RUnlock()
	return cfg.IsCategoryEnabled(string(category))
}

// Get returns (or creates) a logger for the given category.
// Returns a no-op logger if debug mode is disabled or category is disabled.
func Get(category Category) *zap.Logger {
	if !IsCategoryEnabled(category) {
		return zap.NewNop()
	}

	loggersMu.RLock()
	if l, ok := loggers[category]; ok {
		loggersMu.RUnlock()
		return l
	}
	loggersMu.RUnlock()

	loggersMu.Lock()
	defer loggersMu.Unlock()

	// Double-check after acquiring write lock
	if l, ok := loggers[category]; ok {
		return l
	}
	l := root.Named(string(category))
	loggers[category] = l
	return l
}

// Sync flushes every category logger and the root.
func Sync() {
	loggersMu.RLock()
	defer loggersMu.RUnlock()
	for _, l := range loggers {
		_ = l.Sync()
	}
	_ = root.Sync()
}

// =============================================================================
// TIMING HELPERS
// =============================================================================

// Timer helps measure operation duration
type Timer struct {
	category Category
	op       string
	start    time.Time
}

// StartTimer begins timing an operation
func StartTimer(category Category, operation string) *Timer {
	return &Timer{
		category: category,
		op:       operation,
		start:    time.Now(),
	}
}

// Stop ends the timer and logs the duration
func (t *Timer) Stop() time.Duration {
	elapsed := time.Since(t.start)
	Get(t.category).Debug("operation completed", zap.String("op", t.op), zap.Duration("elapsed", elapsed))
	return elapsed
}

// StopWithThreshold logs warning if duration exceeds threshold
func (t *Timer) StopWithThreshold(threshold time.Duration) time.Duration {
	elapsed := time.Since(t.start)
	if elapsed > threshold {
		Get(t.category).Warn("slow operation",
			zap.String("op", t.op),
			zap.Duration("elapsed", elapsed),
			zap.Duration("threshold", threshold))
	} else {
		Get(t.category).Debug("operation completed", zap.String("op", t.op), zap.Duration("elapsed", elapsed))
	}
	return elapsed
}
