package logx

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger returns a zerolog logger configured for console output on stderr.
// Stdout is reserved for command output (listings, extracted PGN).
func NewLogger() zerolog.Logger {
	return NewLoggerTo(os.Stderr, levelFromEnv())
}

// NewLoggerTo returns a console logger writing to w at the given level.
func NewLoggerTo(w io.Writer, level zerolog.Level) zerolog.Logger {
	output := zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: time.RFC3339,
	}
	zerolog.CallerMarshalFunc = func(pc uintptr, file string, line int) string {
		// Extract just the filename, not the full path
		short := file
		for i := len(file) - 1; i > 0; i-- {
			if file[i] == '/' {
				short = file[i+1:]
				break
			}
		}
		// Pad to 24 characters for alignment
		return fmt.Sprintf("%-24s", fmt.Sprintf("%s:%d", short, line))
	}
	return zerolog.New(output).Level(level).With().Timestamp().Caller().Logger()
}

// levelFromEnv reads CHESSGRAPH_LOG_LEVEL (debug, info, warn, error). Defaults to info.
func levelFromEnv() zerolog.Level {
	if s := os.Getenv("CHESSGRAPH_LOG_LEVEL"); s != "" {
		if lvl, err := zerolog.ParseLevel(s); err == nil {
			return lvl
		}
	}
	return zerolog.InfoLevel
}
