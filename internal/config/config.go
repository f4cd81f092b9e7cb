// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"github.com/aristath/qhybrid/internal/domain"
	"github.com/aristath/qhybrid/internal/utils"
)

// Config holds application configuration
type Config struct {
	Port           int
	LogLevel       string
	DevMode        bool
	AllowedOrigins []string

	MaxQubits       int
	CoherenceTime   time.Duration
	DecoherenceRate float64
	Seed            int64

	Tier1Capacity     int
	Tier2Capacity     int
	Tier3Capacity     int
	DefaultMemorySize int

	HistoryLimit         int
	MaxTimeSteps         int
	HistoryRetention     time.Duration
	StatusReportSchedule string
	RetentionSchedule    string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Port:           getEnvAsInt("QSIM_PORT", 8080),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		DevMode:        getEnvAsBool("DEV_MODE", false),
		AllowedOrigins: utils.ParseCSV(getEnv("QSIM_ALLOWED_ORIGINS", "*")),

		MaxQubits:       getEnvAsInt("QSIM_MAX_QUBITS", 64),
		CoherenceTime:   time.Duration(getEnvAsInt("QSIM_COHERENCE_TIME_MS", 1000)) * time.Millisecond,
		DecoherenceRate: getEnvAsFloat("QSIM_DECOHERENCE_RATE", 0.001),
		Seed:            int64(getEnvAsInt("QSIM_SEED", 0)),

		Tier1Capacity:     getEnvAsInt("QSIM_TIER1_CAPACITY", 32),
		Tier2Capacity:     getEnvAsInt("QSIM_TIER2_CAPACITY", 128),
		Tier3Capacity:     getEnvAsInt("QSIM_TIER3_CAPACITY", 512),
		DefaultMemorySize: getEnvAsInt("QSIM_DEFAULT_MEMORY_SIZE", 1024),

		HistoryLimit:         getEnvAsInt("QSIM_HISTORY_LIMIT", 1000),
		MaxTimeSteps:         getEnvAsInt("QSIM_MAX_TIME_STEPS", 10000),
		HistoryRetention:     getEnvAsDuration("QSIM_HISTORY_RETENTION", 24*time.Hour),
		StatusReportSchedule: getEnv("QSIM_STATUS_REPORT_SCHEDULE", "@every 30s"),
		RetentionSchedule:    getEnv("QSIM_RETENTION_SCHEDULE", "@every 10m"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate rejects values the simulation cannot run with
func (c *Config) Validate() error {
	var errs domain.ValidationErrors
	add := func(field, message string) {
		errs = append(errs, domain.ValidationError{Field: field, Message: message})
	}

	if c.Port <= 0 || c.Port > 65535 {
		add("QSIM_PORT", "must be in [1, 65535]")
	}
	if c.MaxQubits <= 0 {
		add("QSIM_MAX_QUBITS", "must be greater than 0")
	}
	if c.CoherenceTime <= 0 {
		add("QSIM_COHERENCE_TIME_MS", "must be greater than 0")
	}
	if c.DecoherenceRate < 0 {
		add("QSIM_DECOHERENCE_RATE", "must not be negative")
	}
	for name, capacity := range map[string]int{
		"QSIM_TIER1_CAPACITY": c.Tier1Capacity,
		"QSIM_TIER2_CAPACITY": c.Tier2Capacity,
		"QSIM_TIER3_CAPACITY": c.Tier3Capacity,
	} {
		if capacity <= 0 {
			add(name, "must be greater than 0")
		}
	}
	if c.DefaultMemorySize < 0 {
		add("QSIM_DEFAULT_MEMORY_SIZE", "must not be negative")
	}
	if c.HistoryLimit < 0 {
		add("QSIM_HISTORY_LIMIT", "must not be negative")
	}
	if c.MaxTimeSteps <= 0 {
		add("QSIM_MAX_TIME_STEPS", "must be greater than 0")
	}
	if c.HistoryRetention <= 0 {
		add("QSIM_HISTORY_RETENTION", "must be greater than 0")
	}
	for name, spec := range map[string]string{
		"QSIM_STATUS_REPORT_SCHEDULE": c.StatusReportSchedule,
		"QSIM_RETENTION_SCHEDULE":     c.RetentionSchedule,
	} {
		if _, err := cron.ParseStandard(spec); err != nil {
			add(name, fmt.Sprintf("invalid schedule %q", spec))
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
