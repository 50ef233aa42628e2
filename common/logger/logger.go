// Package logger sets up the process-wide zap logger. Domain packages never
// reach for the global directly in request-path code; it is threaded through
// constructors. The global exists for cmd/ wiring and tests that don't care.
package logger

import (
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/routex/routex/common/config"
)

var (
	global *zap.Logger
	once   sync.Once
)

// New builds a logger from the given level/format, honoring per-module
// overrides the caller has already resolved into level.
func New(level, format string) *zap.Logger {
	var cfg zap.Config
	if format == "json" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(strings.ToLower(level))); err != nil {
		lvl = zapcore.InfoLevel
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	l, err := cfg.Build()
	if err != nil {
		panic(err)
	}
	return l
}

// L returns the process-wide logger, building it from config on first use.
func L() *zap.Logger {
	once.Do(func() {
		level := config.LogLevel
		if config.DebugEnabled {
			level = "debug"
		}
		format := config.LogFormat
		if config.Environment == "production" {
			format = "json"
		}
		global = New(level, format)
	})
	return global
}

// ForModule applies a LOG_LEVEL_<NAME> override on top of the base logger,
// giving each module its own level knob.
func ForModule(base *zap.Logger, name string) *zap.Logger {
	override := config.LogLevel
	if v, ok := lookupModuleLevel(name); ok {
		override = v
	}
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(strings.ToLower(override))); err != nil {
		return base.Named(name)
	}
	return base.WithOptions(zap.IncreaseLevel(lvl)).Named(name)
}

func lookupModuleLevel(name string) (string, bool) {
	key := "LOG_LEVEL_" + strings.ToUpper(name)
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return v, true
}
