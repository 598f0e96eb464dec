package app

import (
	"log/slog"
	"os"
)

// NewLogger builds the process logger from LOG_FORMAT: "json" for shipped
// logs, anything else for local text output. Source locations are attached
// only outside json mode; aggregators get the service attribute instead.
func NewLogger(cfg *Config) *slog.Logger {
	if cfg != nil && cfg.LogFormat == "json" {
		handler := slog.NewJSONHandler(os.Stdout, nil)
		return slog.New(handler).With(slog.String("service", "tablero"))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{AddSource: true}))
}
