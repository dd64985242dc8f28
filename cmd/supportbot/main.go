package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/phuslu/log"
	"github.com/spf13/cobra"

	"supportbot/internal/config"
	"supportbot/internal/logging"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:           "supportbot",
	Short:         "Documentation support bot backed by retrieval-augmented generation",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "Path to YAML config file (optional; uses ./config.yaml or ~/.config/supportbot/config.yaml if not provided)")
	rootCmd.AddCommand(serveCmd, chatCmd, ingestCmd)
}

func main() {
	_ = godotenv.Load()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// loadConfig reads the configuration and installs the process logger.
func loadConfig() (*config.AppConfig, error) {
	var (
		cfg  *config.AppConfig
		path = cfgPath
		err  error
	)
	if path == "" {
		cfg, path, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format, os.Stderr)
	log.Debug().Str("path", path).Str("vector_store", cfg.VectorStore.Type).Msg("config loaded")
	return cfg, nil
}
