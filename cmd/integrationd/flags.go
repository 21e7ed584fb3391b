package main

import (
	"flag"
	"fmt"
	"os"
	"time"
)

// CLIConfig holds command-line configuration. Everything else is resolved
// from the environment by package config, per the external interfaces'
// single-entry-point, no-subcommands CLI.
type CLIConfig struct {
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
	ShowVersion     bool
	ShowHelp        bool
}

func parseFlags() *CLIConfig {
	cfg := &CLIConfig{}

	flag.StringVar(&cfg.LogLevel, "log-level", "info", "Log level: debug, info, warn, error")
	flag.StringVar(&cfg.LogFormat, "log-format", "json", "Log format: json, text")
	flag.DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout", 5*time.Second, "Grace period for in-flight transport I/O during shutdown")
	flag.BoolVar(&cfg.ShowVersion, "version", false, "Show version information")
	flag.BoolVar(&cfg.ShowVersion, "v", false, "Show version information")
	flag.BoolVar(&cfg.ShowHelp, "help", false, "Show help information")
	flag.BoolVar(&cfg.ShowHelp, "h", false, "Show help information")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "%s: an edge-event integration daemon\n\n", appName)
		fmt.Fprintf(os.Stderr, "Usage: %s [flags]\n\n", appName)
		fmt.Fprintf(os.Stderr, "All behavior beyond logging is configured via environment variables.\n\n")
		flag.PrintDefaults()
	}

	flag.Parse()
	return cfg
}
