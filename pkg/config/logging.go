package config

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// SetupLogging 按配置安装全局 slog Logger
func SetupLogging(w io.Writer, lc LogConfig) error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(lc.Level)); err != nil {
		return fmt.Errorf("invalid log.level %q: %w", lc.Level, err)
	}

	opts := &slog.HandlerOptions{Level: level}

	var h slog.Handler
	switch strings.ToLower(lc.Format) {
	case "json":
		h = slog.NewJSONHandler(w, opts)
	case "text", "":
		h = slog.NewTextHandler(w, opts)
	default:
		return fmt.Errorf("invalid log.format %q", lc.Format)
	}

	slog.SetDefault(slog.New(h))
	return nil
}
