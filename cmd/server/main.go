package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	config "github.com/maheshrc27/campaignflow/configs"
	"github.com/maheshrc27/campaignflow/internal/logging"
	"github.com/spf13/cobra"
)

var (
	cfg    *config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "campaignflow",
	Short: "campaignflow - scheduled email campaigns and social posts",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if err := godotenv.Load(); err != nil {
			slog.Info("no .env file loaded", "error", err)
		}
		cfg = config.LoadConfig()
		logger = logging.New(cfg.LogLevel, cfg.LogFormat)
		slog.SetDefault(logger)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(sweepCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
