package config

import (
	"flag"
	"fmt"
	"io"
	"strings"
)

// parseFlags overlays command-line flags onto cfg.
//
// Supported flags:
//
//	-a string   listen address, ":8080" or "8080"
//	-d string   SQLite database path
func parseFlags(cfg *Config, args []string) error {
	fs := flag.NewFlagSet("cool-todo", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.Addr, "a", cfg.Addr, "address and port to run server")
	fs.StringVar(&cfg.DatabasePath, "d", cfg.DatabasePath, "SQLite database path")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}

	if cfg.Addr != "" && !strings.Contains(cfg.Addr, ":") {
		cfg.Addr = ":" + cfg.Addr
	}
	return nil
}
