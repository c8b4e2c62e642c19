package main

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config is the yaml application configuration. Environment variables
// override the file for deployment-specific values.
type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Generator struct {
		BaseURL string `yaml:"base_url"`
	} `yaml:"generator"`
	NATS struct {
		URL string `yaml:"url"`
	} `yaml:"nats"`
	Voting struct {
		DotBudget int `yaml:"dot_budget"`
	} `yaml:"voting"`
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func loadConfig(path string) (*Config, error) {
	var config Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	config.Server.Port = getEnv("PORT", defaultString(config.Server.Port, "8080"))
	config.Generator.BaseURL = getEnv("GENERATOR_URL", defaultString(config.Generator.BaseURL, "http://localhost:8090"))
	config.NATS.URL = getEnv("NATS_URL", defaultString(config.NATS.URL, "nats://localhost:4222"))
	if config.Voting.DotBudget == 0 {
		config.Voting.DotBudget = getEnvAsInt("DOT_BUDGET", 5)
	}

	return &config, nil
}

func defaultString(v, fallback string) string {
	if v != "" {
		return v
	}
	return fallback
}
