package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/mockforge/mockforge/internal/app"
)

func main() {
	cfg := app.DefaultConfig()
	flag.StringVar(&cfg.RootDir, "root", cfg.RootDir, "root directory for endpoint definitions")
	flag.IntVar(&cfg.Port, "port", cfg.Port, "HTTP server port")
	flag.IntVar(&cfg.TraceSize, "trace-size", cfg.TraceSize, "number of trace entries to keep")
	flag.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (debug, info, warn, error)")
	flag.IntVar(&cfg.CacheEntries, "cache-entries", cfg.CacheEntries, "maximum number of cached responses")
	flag.DurationVar(&cfg.CacheTTL, "cache-ttl", cfg.CacheTTL, "time-to-live for cached responses")
	flag.Parse()

	a, err := app.New(cfg)
	if err != nil {
		_, err := fmt.Fprintf(os.Stderr, "failed to initialize: %v\n", err)
		if err != nil {
			return
		}
		os.Exit(1)
	}

	if err := a.Run(context.Background()); err != nil {
		_, err := fmt.Fprintf(os.Stderr, "error: %v\n", err)
		if err != nil {
			return
		}
		os.Exit(1)
	}
}
