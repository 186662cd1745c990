package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	transit "github.com/lily-mara/transit-kindle"
	"github.com/lily-mara/transit-kindle/config"
	"github.com/lily-mara/transit-kindle/siri"
	"github.com/lily-mara/transit-kindle/snapshot"
)

var rootCmd = &cobra.Command{
	Use:          "transit-kindle",
	Short:        "Transit arrival board data pipeline",
	Long:         "Fetches, caches and groups near-real-time transit arrivals for configured stops",
	SilenceUsage: true,
}

var (
	configPath string
	verbose    bool
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "stops.yml", "Path to config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.AddCommand(pollCmd)
	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(arrivalsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func setupLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger
}

func buildPipeline() (*transit.Pipeline, error) {
	logger := setupLogger()

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	store, err := openStore(cfg.Cache)
	if err != nil {
		return nil, fmt.Errorf("opening snapshot store: %w", err)
	}

	client := siri.NewClient(cfg.APIKey)

	return transit.NewPipeline(client, store, cfg, logger), nil
}

func openStore(cfg config.CacheConfig) (snapshot.Store, error) {
	directory := cfg.Directory
	if directory == "" {
		directory = "."
	}

	switch cfg.Backend {
	case "", "filesystem":
		return snapshot.NewFilesystem(directory), nil
	case "memory":
		return snapshot.NewMemory(), nil
	case "sqlite":
		return snapshot.NewSQLiteStore(snapshot.SQLiteConfig{OnDisk: true, Directory: directory})
	case "postgres":
		return snapshot.NewPostgresStore(cfg.DSN, false)
	}

	return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
}
