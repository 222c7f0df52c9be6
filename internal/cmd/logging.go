package cmd

import (
	"os"

	"log/slog"

	"github.com/spf13/viper"
)

var logger *slog.Logger

// initLogging sets up the process-wide slog logger. Verbose mode lowers the
// level to Debug.
func initLogging() {
	level := slog.LevelInfo
	if viper.GetBool("verbose") {
		level = slog.LevelDebug
	}

	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}
