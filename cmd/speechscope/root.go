package main

import (
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/snarg/speechscope/internal/config"
	"github.com/spf13/cobra"
)

var overrides config.Overrides

var rootCmd = &cobra.Command{
	Use:   "speechscope",
	Short: "Transcribe spoken media and score each sentence for AI-generated text",
	Long: `speechscope takes a media URL, captures a snapshot, extracts and
transcribes its audio with speaker labels, splits the transcript into
sentences and scores each one for the likelihood it was machine-generated.
Results are stored as JSON run records retrievable by id.`,
	SilenceUsage: true,
}

func init() {
	f := rootCmd.PersistentFlags()
	f.StringVar(&overrides.EnvFile, "env-file", "", "path to .env file (default .env)")
	f.StringVar(&overrides.LogLevel, "log-level", "", "log level: debug, info, warn, error")
	f.StringVar(&overrides.DataDir, "data-dir", "", "artifact and result directory")
	f.StringVar(&overrides.DatabaseURL, "database-url", "", "Postgres DSN for the primary result store")
}

// loadConfig reads configuration and builds the root logger writing to out.
func loadConfig(out io.Writer) (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load(overrides)
	if err != nil {
		early := zerolog.New(os.Stderr).With().Timestamp().Logger()
		early.Error().Err(err).Msg("failed to load config")
		return nil, early, err
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log := zerolog.New(out).With().Timestamp().Logger().Level(level)
	return cfg, log, nil
}
