// Package bus parses bus relay command flags and composes the relay
// entrypoint.
package bus

import (
	"context"
	"flag"
	"fmt"

	entrypoint "github.com/maanavrajesh/Tartan-Hacks-26/internal/platform/cmd"
	server "github.com/maanavrajesh/Tartan-Hacks-26/internal/services/bus/app"
)

// Config holds bus relay command configuration.
type Config struct {
	HTTPAddr  string `env:"VISIONXI_BUS_HTTP_ADDR"  envDefault:":8080"`
	MaxBuffer int    `env:"VISIONXI_BUS_MAX_BUFFER" envDefault:"2000"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}

	fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "bus relay HTTP listen address")
	fs.IntVar(&cfg.MaxBuffer, "max-buffer", cfg.MaxBuffer, "replay buffer capacity")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run builds the relay app and starts the fan-out transport.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceBus, func(context.Context) error {
		if err := server.Run(ctx, server.Config{
			HTTPAddr:  cfg.HTTPAddr,
			MaxBuffer: cfg.MaxBuffer,
		}); err != nil {
			return fmt.Errorf("serve bus relay: %w", err)
		}
		return nil
	})
}
