// Package engine parses engine command flags and composes the analytics
// runtime entrypoint.
package engine

import (
	"context"
	"flag"
	"fmt"
	"time"

	entrypoint "github.com/maanavrajesh/Tartan-Hacks-26/internal/platform/cmd"
	"github.com/maanavrajesh/Tartan-Hacks-26/internal/services/engine/app"
)

// Config holds engine command configuration.
type Config struct {
	HTTPAddr          string        `env:"VISIONXI_ENGINE_HTTP_ADDR"          envDefault:":4000"`
	BusURL            string        `env:"VISIONXI_ENGINE_BUS_URL"            envDefault:"ws://localhost:8080/ws"`
	DBPath            string        `env:"VISIONXI_ENGINE_DB_PATH"            envDefault:"data/engine.db"`
	DrillsPath        string        `env:"VISIONXI_ENGINE_DRILLS_PATH"`
	BroadcastInterval time.Duration `env:"VISIONXI_ENGINE_BROADCAST_INTERVAL" envDefault:"5s"`
	IngestPath        string
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}

	fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "engine HTTP listen address")
	fs.StringVar(&cfg.BusURL, "bus-url", cfg.BusURL, "event bus websocket URL")
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "sqlite database path")
	fs.StringVar(&cfg.DrillsPath, "drills", cfg.DrillsPath, "drill catalog YAML path, embedded catalog when empty")
	fs.DurationVar(&cfg.BroadcastInterval, "broadcast-interval", cfg.BroadcastInterval, "live stats broadcast cadence")
	fs.StringVar(&cfg.IngestPath, "ingest", cfg.IngestPath, "JSONL capture to replay instead of serving")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run builds the engine app and starts the analytics runtime.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceEngine, func(context.Context) error {
		if err := app.Run(ctx, app.Config{
			HTTPAddr:          cfg.HTTPAddr,
			BusURL:            cfg.BusURL,
			DBPath:            cfg.DBPath,
			DrillsPath:        cfg.DrillsPath,
			BroadcastInterval: cfg.BroadcastInterval,
			IngestPath:        cfg.IngestPath,
		}); err != nil {
			return fmt.Errorf("serve engine: %w", err)
		}
		return nil
	})
}
