package bootstrap

import (
	"log/slog"

	"github.com/osse101/CardVault_Go/internal/config"
	"github.com/osse101/CardVault_Go/internal/logger"
)

// SetupLogger installs the default slog handler from the application config.
// Source locations are only added in development.
func SetupLogger(cfg *config.Config) {
	logger.InitLogger(logger.NewConfig(
		cfg.LogLevel,
		cfg.LogFormat,
		cfg.ServiceName,
		cfg.Version,
		cfg.Environment,
		cfg.IsDevelopment(),
	))

	slog.Info(LogMsgStartingCardVault,
		"environment", cfg.Environment,
		"log_level", cfg.LogLevel,
		"log_format", cfg.LogFormat,
		"version", cfg.Version)

	slog.Debug(LogMsgConfigurationLoaded,
		"db_host", cfg.DBHost,
		"db_port", cfg.DBPort,
		"db_name", cfg.DBName,
		"port", cfg.Port,
		"nats", cfg.NATSURL != "")
}
