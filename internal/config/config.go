package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type HTTPConfig struct {
	Host string
	Port int
}

type DBConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime string
}

type AuthConfig struct {
	AccessSecret string
}

type ContractsConfig struct {
	PublicBaseURL       string
	DefaultValidityDays int
	MaxValidityDays     int
	PollAttempts        int
	PollInterval        time.Duration
	NotifyWebhookURL    string
}

type Config struct {
	Environment string
	HTTP        HTTPConfig
	DB          DBConfig
	Auth        AuthConfig
	Contracts   ContractsConfig
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("app")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("./deploy")
	v.AddConfigPath("./internal/config")
	v.AutomaticEnv()

	_ = v.ReadInConfig()

	cfg := &Config{
		Environment: v.GetString("APP_ENV"),
		HTTP: HTTPConfig{
			Host: v.GetString("HTTP_HOST"),
			Port: v.GetInt("HTTP_PORT"),
		},
		DB: DBConfig{
			DSN:             v.GetString("DB_DSN"),
			MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: v.GetString("DB_CONN_MAX_LIFETIME"),
		},
		Auth: AuthConfig{
			AccessSecret: v.GetString("JWT_ACCESS_SECRET"),
		},
		Contracts: ContractsConfig{
			PublicBaseURL:       v.GetString("CONTRACTS_PUBLIC_BASE_URL"),
			DefaultValidityDays: v.GetInt("CONTRACTS_DEFAULT_VALIDITY_DAYS"),
			MaxValidityDays:     v.GetInt("CONTRACTS_MAX_VALIDITY_DAYS"),
			PollAttempts:        v.GetInt("CONTRACTS_POLL_ATTEMPTS"),
			PollInterval:        v.GetDuration("CONTRACTS_POLL_INTERVAL"),
			NotifyWebhookURL:    v.GetString("CONTRACTS_NOTIFY_WEBHOOK_URL"),
		},
	}

	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.HTTP.Host == "" {
		cfg.HTTP.Host = "0.0.0.0"
	}
	if cfg.HTTP.Port == 0 {
		cfg.HTTP.Port = 7094
	}
	if cfg.Contracts.DefaultValidityDays == 0 {
		cfg.Contracts.DefaultValidityDays = 7
	}
	if cfg.Contracts.MaxValidityDays == 0 {
		cfg.Contracts.MaxValidityDays = 30
	}
	if cfg.Contracts.PollAttempts == 0 {
		cfg.Contracts.PollAttempts = 5
	}
	if cfg.Contracts.PollInterval == 0 {
		cfg.Contracts.PollInterval = 2 * time.Second
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validate(cfg *Config) error {
	if cfg.DB.DSN == "" {
		return fmt.Errorf("DB_DSN is required")
	}
	if cfg.Auth.AccessSecret == "" {
		return fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	if cfg.Contracts.DefaultValidityDays < 1 || cfg.Contracts.DefaultValidityDays > cfg.Contracts.MaxValidityDays {
		return fmt.Errorf("CONTRACTS_DEFAULT_VALIDITY_DAYS must be between 1 and %d", cfg.Contracts.MaxValidityDays)
	}
	return nil
}
