package cli

import (
	"fmt"

	"github.com/otebe/matrix/internal/config"
	"github.com/otebe/matrix/internal/database"
	"github.com/otebe/matrix/internal/migrations"
)

// LoadConfig reads the configuration file named by the environment
func LoadConfig() (*config.Config, error) {
	envConfig := config.LoadEnv()
	cfg, err := config.Load(envConfig.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

// OpenDatabase loads the configuration, connects to the database and applies migrations
func OpenDatabase() (*config.Config, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, err
	}

	if err := database.ConnectDB(cfg); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := migrations.RunMigrations(cfg); err != nil {
		database.CloseDB()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return cfg, nil
}
