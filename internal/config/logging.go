package config

import (
	"io"
	"log/slog"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Level maps log_level to a slog level. Verbose forces debug.
func (c *Config) Level() slog.Level {
	if c.Verbose {
		return slog.LevelDebug
	}
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger builds the JSON logger writing to console and, when log_file
// is set, to a rotating file as well. The returned closer releases the
// file and is nil without one.
func (c *Config) NewLogger(console io.Writer) (*slog.Logger, io.Closer) {
	out := console
	var closer io.Closer
	if c.LogFile != "" {
		rotating := &lumberjack.Logger{
			Filename:   c.LogFile,
			MaxSize:    c.LogMaxSizeMB,
			MaxBackups: c.LogMaxBackups,
			MaxAge:     c.LogMaxAgeDays,
			Compress:   c.LogCompress,
			LocalTime:  true,
		}
		out = io.MultiWriter(console, rotating)
		closer = rotating
	}
	return slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{Level: c.Level()})), closer
}
