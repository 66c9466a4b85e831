package config

import (
	"fmt"

	"github.com/spf13/viper"
)

type HTTPConfig struct {
	Host string
	Port int
}

type AIConfig struct {
	BaseURL string
}

type Config struct {
	Environment  string
	HTTP         HTTPConfig
	DatabaseURL  string
	AI           AIConfig
	IngestAPIKey string
}

// Load reads runtime configuration from the environment, with an optional
// app.env file for local development.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("app")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.AutomaticEnv()

	_ = v.ReadInConfig()

	cfg := &Config{
		Environment: v.GetString("APP_ENV"),
		HTTP: HTTPConfig{
			Host: v.GetString("HTTP_HOST"),
			Port: v.GetInt("PORT"),
		},
		DatabaseURL: v.GetString("DATABASE_URL"),
		AI: AIConfig{
			BaseURL: v.GetString("AI_BASE_URL"),
		},
		IngestAPIKey: v.GetString("INGEST_API_KEY"),
	}

	if cfg.HTTP.Host == "" {
		cfg.HTTP.Host = "0.0.0.0"
	}
	if cfg.HTTP.Port == 0 {
		cfg.HTTP.Port = 8000
	}
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.AI.BaseURL == "" {
		cfg.AI.BaseURL = "http://ai:8001"
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func validate(cfg *Config) error {
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	return nil
}
