package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/tripmazer/wayfarer/internal/cli"
	"github.com/tripmazer/wayfarer/internal/config"
	"github.com/tripmazer/wayfarer/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:   "wayfarer",
	Short: "Wayfarer plans trips within a budget",
	Long: `Wayfarer turns a free-text travel request into a trip plan.
The budget is split across transport, lodging, itinerary and dining searches,
and money a search does not need moves on to the ones still to run.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().StringP("config", "c", "", "Config file (.yaml, .yml or .toml)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", "", "Log format: text or json")
}

// loadConfig reads the config file and environment, then applies the global flags.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		path = os.Getenv("WAYFARER_CONFIG")
	}
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, err
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.Log.Level = level
	}
	if format, _ := cmd.Flags().GetString("log-format"); format != "" {
		cfg.Log.Format = logging.Format(format)
	}
	return cfg, cfg.Validate()
}

func loadApp(cmd *cobra.Command, override func(*config.Config)) (*cli.App, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	if override != nil {
		override(&cfg)
	}
	return cli.NewApp(cmd.Context(), cfg)
}
