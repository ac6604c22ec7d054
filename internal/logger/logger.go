package logger

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Global logger instance
var (
	Log zerolog.Logger
)

// Initialize sets up the global logger with configuration
func Initialize(level string, pretty bool) {
	// Parse log level
	logLevel, err := zerolog.ParseLevel(level)
	if err != nil {
		logLevel = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(logLevel)

	// Configure output format
	if pretty {
		// Pretty console output for development
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		})
	} else {
		// JSON output for production
		zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	}

	// Set global logger
	Log = log.With().
		Str("service", "clustercore").
		Logger()

	Log.Info().
		Str("level", logLevel.String()).
		Bool("pretty", pretty).
		Msg("Logger initialized")
}

// GetLogger returns the global logger instance
func GetLogger() *zerolog.Logger {
	return &Log
}

// Schema creates a logger for schema-registry events (C1).
func Schema() *zerolog.Logger {
	l := Log.With().Str("component", "schema").Logger()
	return &l
}

// Resolver creates a logger for path-resolution events (C2).
func Resolver() *zerolog.Logger {
	l := Log.With().Str("component", "resolver").Logger()
	return &l
}

// Plugin creates a logger for plugin registry and plugin-handler events (C3).
func Plugin() *zerolog.Logger {
	l := Log.With().Str("component", "plugin").Logger()
	return &l
}

// Executor creates a logger for fan-out/fan-in dispatch events (C4).
func Executor() *zerolog.Logger {
	l := Log.With().Str("component", "executor").Logger()
	return &l
}

// Collective creates a logger for collective (peer) dispatch events (C5).
func Collective() *zerolog.Logger {
	l := Log.With().Str("component", "collective").Logger()
	return &l
}

// ConfigManager creates a logger for attribute/user persistence events.
func ConfigManager() *zerolog.Logger {
	l := Log.With().Str("component", "configmanager").Logger()
	return &l
}

// Discovery creates a logger for the discovery collaborator.
func Discovery() *zerolog.Logger {
	l := Log.With().Str("component", "discovery").Logger()
	return &l
}

// HTTP creates a logger for the illustrative HTTP front end.
func HTTP() *zerolog.Logger {
	l := Log.With().Str("component", "http").Logger()
	return &l
}
