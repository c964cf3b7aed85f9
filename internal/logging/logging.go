package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// LogFileName is the name of the active log file inside the log directory.
const LogFileName = "docsmcp.log"

// Config contains logging configuration.
type Config struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string
	// FilePath is the path to the log file. Empty means no file logging.
	FilePath string
	// MaxSizeMB is the maximum size in MB before rotation (default: 10).
	MaxSizeMB int
	// MaxFiles is the maximum number of rotated files to keep (default: 5).
	MaxFiles int
	// Stderr receives a copy of every record when non-nil.
	Stderr io.Writer
}

// LogPath returns the active log file inside dir.
func LogPath(dir string) string {
	return filepath.Join(dir, LogFileName)
}

// DefaultConfig returns file logging into dir at info level, mirrored to
// stderr.
func DefaultConfig(dir string) Config {
	return Config{
		Level:     "info",
		FilePath:  LogPath(dir),
		MaxSizeMB: 10,
		MaxFiles:  5,
		Stderr:    os.Stderr,
	}
}

// DebugConfig returns configuration for --debug.
func DebugConfig(dir string) Config {
	cfg := DefaultConfig(dir)
	cfg.Level = "debug"
	return cfg
}

// Setup builds a JSON logger for cfg and returns it with a cleanup
// function that flushes and closes the log file.
func Setup(cfg Config) (*slog.Logger, func(), error) {
	var (
		writers []io.Writer
		rw      *RotatingWriter
	)
	if cfg.FilePath != "" {
		if cfg.MaxSizeMB <= 0 {
			cfg.MaxSizeMB = 10
		}
		if cfg.MaxFiles <= 0 {
			cfg.MaxFiles = 5
		}
		w, err := NewRotatingWriter(cfg.FilePath, cfg.MaxSizeMB, cfg.MaxFiles)
		if err != nil {
			return nil, nil, err
		}
		rw = w
		writers = append(writers, w)
	}
	if cfg.Stderr != nil {
		writers = append(writers, cfg.Stderr)
	}

	var output io.Writer
	switch len(writers) {
	case 0:
		output = io.Discard
	case 1:
		output = writers[0]
	default:
		output = io.MultiWriter(writers...)
	}

	handler := slog.NewJSONHandler(output, &slog.HandlerOptions{
		Level: LevelFromString(cfg.Level),
	})

	cleanup := func() {
		if rw != nil {
			_ = rw.Sync()
			_ = rw.Close()
		}
	}
	return slog.New(handler), cleanup, nil
}

// NewConsole returns a compact text logger for interactive commands.
// Only records at level or above reach w.
func NewConsole(w io.Writer, level string) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: LevelFromString(level),
	}))
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// LevelFromString converts a level name to slog.Level. Unknown names map
// to info.
func LevelFromString(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
