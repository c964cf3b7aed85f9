package logging

import (
	"log/slog"
)

// SetupServe initializes logging for the MCP server.
//
// Records go to the log file under dir only. The stdio transport owns
// stdout, and some MCP clients treat stderr output as a failed launch.
// The returned logger is also installed as the slog default so library
// code logging through slog lands in the same file.
func SetupServe(dir, level string) (*slog.Logger, func(), error) {
	cfg := Config{
		Level:     level,
		FilePath:  LogPath(dir),
		MaxSizeMB: 10,
		MaxFiles:  5,
	}

	logger, cleanup, err := Setup(cfg)
	if err != nil {
		return nil, nil, err
	}
	slog.SetDefault(logger)

	logger.Info("serve logging initialized",
		slog.String("log_file", cfg.FilePath),
		slog.String("level", LevelFromString(level).String()))

	return logger, cleanup, nil
}
