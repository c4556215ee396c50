// Package main starts the event bus relay and handles termination.
//
// The relay is the shared websocket fabric between the vision producer, the
// analytics engine, and any dashboard clients.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	buscmd "github.com/maanavrajesh/Tartan-Hacks-26/internal/cmd/bus"
)

func main() {
	cfg, err := buscmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatalf("parse flags: %v", err)
	}
	log.SetPrefix("[BUS] ")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := buscmd.Run(ctx, cfg); err != nil {
		log.Fatalf("failed to serve: %v", err)
	}
}
