// Package config reads the checkout server settings from flags and the
// environment. Environment variables win over flags.
package config

import (
	"flag"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the server settings.
type Config struct {
	RunAddress        string        `env:"RUN_ADDRESS"`
	DatabasePath      string        `env:"DATABASE_PATH"`
	LimitsFile        string        `env:"LIMITS_FILE"`
	LoanWindow        time.Duration `env:"LOAN_WINDOW"`
	AccrualInterval   time.Duration `env:"ACCRUAL_INTERVAL"`
	CountdownInterval time.Duration `env:"COUNTDOWN_INTERVAL"`
	LogLevel          string        `env:"LOG_LEVEL"`
}

// Parse reads flags from args (without the program name), then applies
// any set environment variables on top.
func Parse(args []string) (*Config, error) {
	cfg := &Config{}

	fs := flag.NewFlagSet("checkout", flag.ContinueOnError)
	fs.StringVar(&cfg.RunAddress, "a", ":8080", "address and port for HTTP server")
	fs.StringVar(&cfg.DatabasePath, "d", "checkout.db", "SQLite database path (\":memory:\" for in-memory)")
	fs.StringVar(&cfg.LimitsFile, "l", "", "JSON or YAML borrowing limits file")
	fs.DurationVar(&cfg.LoanWindow, "w", 2*time.Hour, "checkout window before an item is due")
	fs.DurationVar(&cfg.AccrualInterval, "i", time.Hour, "late fee accrual pass interval")
	fs.DurationVar(&cfg.CountdownInterval, "t", time.Second, "countdown feed tick interval")
	fs.StringVar(&cfg.LogLevel, "log-level", "info", "log level (debug, info, warn, error)")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if cfg.LoanWindow <= 0 {
		return nil, fmt.Errorf("loan window must be positive, got %v", cfg.LoanWindow)
	}
	if cfg.AccrualInterval <= 0 {
		return nil, fmt.Errorf("accrual interval must be positive, got %v", cfg.AccrualInterval)
	}
	if cfg.CountdownInterval <= 0 {
		return nil, fmt.Errorf("countdown interval must be positive, got %v", cfg.CountdownInterval)
	}

	return cfg, nil
}
