package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/microfeed/microfeed/internal/auth"
	"github.com/microfeed/microfeed/internal/config"
)

var (
	// Version information (set via ldflags during build)
	Version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "microfeed",
	Short:   "MicroFeed - realtime micro-post feed client",
	Version: Version,
}

// setup loads configuration and builds the logger shared by all commands.
func setup() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zapcore.InfoLevel
	}
	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	logger, err := zapCfg.Build()
	if err != nil {
		return nil, nil, err
	}

	return cfg, logger, nil
}

// signIn installs the identity from the configured access token.
func signIn(cfg *config.Config, session *auth.Manager) (*auth.Identity, error) {
	if cfg.AuthToken == "" {
		return nil, fmt.Errorf("AUTH_TOKEN is required, sign in to the auth service first")
	}
	id, err := session.SignIn(cfg.AuthToken)
	if err != nil {
		return nil, fmt.Errorf("signing in: %w", err)
	}
	return id, nil
}
