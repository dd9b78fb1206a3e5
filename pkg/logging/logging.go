// Package logging sets up agentconf's zerolog logger.
//
// Records go to the console at the level chosen by -v and are appended as
// JSON to agentconf.log in the state directory, the same directory that
// holds the install manifest.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	// AppName names the state directory and log file
	AppName = "agentconf"

	// EnvStateDir relocates agentconf's state directory, log file included
	EnvStateDir = "AGENTCONF_STATE_DIR"
)

// Level maps the -v count to a log level: warnings by default, then info,
// debug and trace.
func Level(verbosity int) zerolog.Level {
	switch {
	case verbosity <= 0:
		return zerolog.WarnLevel
	case verbosity == 1:
		return zerolog.InfoLevel
	case verbosity == 2:
		return zerolog.DebugLevel
	default:
		return zerolog.TraceLevel
	}
}

// SetupLogger installs the global logger for a CLI run, writing to stderr
// and the log file.
func SetupLogger(verbosity int) {
	Configure(os.Stderr, verbosity)
}

// Configure installs the global logger with console output on w and returns
// the log file path. When the log file cannot be opened the run continues
// with console output only.
func Configure(w io.Writer, verbosity int) string {
	zerolog.SetGlobalLevel(Level(verbosity))

	console := zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: time.Kitchen,
		NoColor:    os.Getenv("NO_COLOR") != "",
	}

	path := LogFilePath()
	file, fileErr := openLogFile(path)
	var out io.Writer = console
	if fileErr == nil {
		out = zerolog.MultiLevelWriter(console, file)
	}

	ctx := zerolog.New(out).With().Timestamp()
	if verbosity >= 2 {
		ctx = ctx.Caller()
	}
	log.Logger = ctx.Logger()

	if fileErr != nil {
		log.Warn().Err(fileErr).Str("path", path).Msg("Logging to console only")
	}
	log.Debug().Int("verbosity", verbosity).Str("logFile", path).Msg("Logger initialized")
	return path
}

// GetLogger returns the global logger tagged with component
func GetLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// LogFilePath puts the log next to the manifest: AGENTCONF_STATE_DIR if
// set, then XDG_STATE_HOME/agentconf, then ~/.local/state/agentconf.
func LogFilePath() string {
	if dir := os.Getenv(EnvStateDir); dir != "" {
		return filepath.Join(dir, AppName+".log")
	}
	base := os.Getenv("XDG_STATE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return AppName + ".log"
		}
		base = filepath.Join(home, ".local", "state")
	}
	return filepath.Join(base, AppName, AppName+".log")
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("cannot create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("cannot open log file: %w", err)
	}
	return f, nil
}

// LogOperationStart logs at debug level that operation began and returns
// the func that logs its completion with the elapsed time.
func LogOperationStart(logger zerolog.Logger, operation string) func() {
	start := time.Now()
	logger.Debug().Str("operation", operation).Msg("Operation started")
	return func() {
		logger.Debug().
			Str("operation", operation).
			Dur("duration", time.Since(start)).
			Msg("Operation completed")
	}
}
