package main

import (
	"flag"
	"log/slog"
	"os"

	"github.com/otebe/matrix/internal/config"
	"github.com/otebe/matrix/internal/server"
)

func main() {
	envConfig := config.LoadEnv()

	configPath := flag.String("config", envConfig.ConfigPath, "Path to the YAML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err, "path", *configPath)
		os.Exit(1)
	}

	// Start logs its own failures
	if err := server.Start(cfg); err != nil {
		os.Exit(1)
	}
}
