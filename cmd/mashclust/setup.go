package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"mashclust/internal/config"
	mcerrors "mashclust/internal/errors"
	"mashclust/internal/slogutil"
)

// flagBinding ties a command flag to a config key. Changed flags override
// the config file and environment.
type flagBinding struct {
	flag string
	key  string
}

// session is the per-command state shared by every subcommand.
type session struct {
	cfg    *config.Config
	logger *slog.Logger
	closer io.Closer
}

func (s *session) Close() {
	if s.closer != nil {
		_ = s.closer.Close()
	}
}

// setup loads configuration, applies bound flags, validates the result and
// builds the logger.
func setup(cmd *cobra.Command, bindings ...flagBinding) (*session, error) {
	cfg, v, err := config.Load(configPath, ".")
	if err != nil {
		return nil, configErr(err)
	}

	if len(bindings) > 0 {
		for _, b := range bindings {
			f := cmd.Flags().Lookup(b.flag)
			if f == nil {
				continue
			}
			if err := v.BindPFlag(b.key, f); err != nil {
				return nil, configErr(err)
			}
		}
		cfg = &config.Config{}
		if err := v.Unmarshal(cfg); err != nil {
			return nil, configErr(err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, configErr(err)
	}

	level := slogutil.LevelFromString(cfg.Logging.Level)
	if verbosity > 0 || quiet {
		level = slogutil.LevelFromVerbosity(verbosity, quiet)
	}
	format := cfg.Logging.Format
	if logFormat != "" {
		format = logFormat
	}

	logger, closer, err := slogutil.NewFromOptions(os.Stderr, slogutil.Options{
		Level:   level,
		Format:  format,
		LogFile: logFile,
	})
	if err != nil {
		return nil, mcerrors.New(mcerrors.InvalidConfig, "cannot open log file "+logFile, err)
	}
	slog.SetDefault(logger)

	return &session{cfg: cfg, logger: logger, closer: closer}, nil
}

func configErr(err error) error {
	var ce *config.ConfigError
	if errors.As(err, &ce) {
		return mcerrors.New(mcerrors.InvalidConfig, "invalid configuration", err, mcerrors.GetSuggestedFixes(mcerrors.InvalidConfig)...)
	}
	return mcerrors.New(mcerrors.InvalidConfig, "failed to load configuration", err)
}

// commandContext is cancelled on SIGINT or SIGTERM so running tools are
// stopped and partial state is saved.
func commandContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// apiKeyEnv returns the environment entries that pass the NCBI key to the
// datasets tool.
func apiKeyEnv(cfg *config.Config) []string {
	if cfg.Download.APIKey == "" {
		return nil
	}
	return []string{config.APIKeyEnv + "=" + cfg.Download.APIKey}
}
