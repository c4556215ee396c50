package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/maanavrajesh/Tartan-Hacks-26/internal/platform/timeouts"
	"github.com/maanavrajesh/Tartan-Hacks-26/internal/services/engine/domain"
	"github.com/maanavrajesh/Tartan-Hacks-26/internal/services/engine/storage/sqlite"
)

const (
	defaultHTTPAddr          = ":4000"
	defaultBusURL            = "ws://localhost:8080/ws"
	defaultDBPath            = "data/engine.db"
	defaultBroadcastInterval = 5 * time.Second
)

// Config defines the inputs for the engine process.
type Config struct {
	HTTPAddr          string
	BusURL            string
	DBPath            string
	DrillsPath        string
	BroadcastInterval time.Duration
	IngestPath        string
	ReadHeaderTimeout time.Duration
	ShutdownTimeout   time.Duration
}

// Server hosts the engine process: the bus link, the broadcast loop, and
// the HTTP query API over one shared store and orchestrator.
type Server struct {
	httpAddr          string
	busURL            string
	broadcastInterval time.Duration
	shutdownTimeout   time.Duration
	httpServer        *http.Server
	store             *sqlite.Store
	orchestrator      *Orchestrator
	busClient         *BusClient
	ingestPath        string
}

// NewServer opens the store, loads the drill catalog, and wires the
// orchestrator to the bus client.
func NewServer(config Config) (*Server, error) {
	httpAddr := strings.TrimSpace(config.HTTPAddr)
	if httpAddr == "" {
		httpAddr = defaultHTTPAddr
	}
	busURL := strings.TrimSpace(config.BusURL)
	if busURL == "" {
		busURL = defaultBusURL
	}
	dbPath := strings.TrimSpace(config.DBPath)
	if dbPath == "" {
		dbPath = defaultDBPath
	}
	if config.BroadcastInterval <= 0 {
		config.BroadcastInterval = defaultBroadcastInterval
	}
	if config.ReadHeaderTimeout <= 0 {
		config.ReadHeaderTimeout = timeouts.ReadHeader
	}
	if config.ShutdownTimeout <= 0 {
		config.ShutdownTimeout = timeouts.Shutdown
	}

	if dir := filepath.Dir(dbPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	store, err := sqlite.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open engine store: %w", err)
	}

	catalog, err := loadCatalog(config.DrillsPath)
	if err != nil {
		store.Close()
		return nil, err
	}

	busClient, err := NewBusClient(busURL)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("init bus client: %w", err)
	}

	orchestrator, err := NewOrchestrator(store, catalog, busClient, time.Now)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("init orchestrator: %w", err)
	}

	httpServer := &http.Server{
		Addr:              httpAddr,
		Handler:           NewHandler(orchestrator, store),
		ReadHeaderTimeout: config.ReadHeaderTimeout,
	}

	return &Server{
		httpAddr:          httpAddr,
		busURL:            busURL,
		broadcastInterval: config.BroadcastInterval,
		shutdownTimeout:   config.ShutdownTimeout,
		httpServer:        httpServer,
		store:             store,
		orchestrator:      orchestrator,
		busClient:         busClient,
		ingestPath:        strings.TrimSpace(config.IngestPath),
	}, nil
}

func loadCatalog(path string) (*domain.DrillCatalog, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		catalog, err := domain.DefaultDrillCatalog()
		if err != nil {
			return nil, fmt.Errorf("load embedded drill catalog: %w", err)
		}
		return catalog, nil
	}
	catalog, err := domain.LoadDrillCatalog(path)
	if err != nil {
		return nil, fmt.Errorf("load drill catalog %s: %w", path, err)
	}
	return catalog, nil
}

// Run creates and serves an engine until the context ends. With an ingest
// path configured it replays the capture and exits instead of serving.
func Run(ctx context.Context, config Config) error {
	server, err := NewServer(config)
	if err != nil {
		return fmt.Errorf("init engine: %w", err)
	}
	defer server.Close()

	if server.ingestPath != "" {
		count, err := server.orchestrator.IngestFile(ctx, server.ingestPath)
		if err != nil {
			return fmt.Errorf("ingest %s: %w", server.ingestPath, err)
		}
		log.Printf("ingested %d events from %s", count, server.ingestPath)
		return nil
	}

	if err := server.ListenAndServe(ctx); err != nil {
		return fmt.Errorf("serve engine: %w", err)
	}
	return nil
}

// ListenAndServe runs the bus link, the broadcast loop, and the HTTP
// server until the context ends.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if s == nil {
		return errors.New("engine server is nil")
	}
	if ctx == nil {
		return errors.New("context is required")
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go s.busClient.Run(runCtx, s.orchestrator.Handle)
	go s.orchestrator.RunBroadcastLoop(runCtx, s.broadcastInterval)

	serveErr := make(chan error, 1)
	log.Printf("engine listening on %s, bus %s", s.httpAddr, s.busURL)
	go func() {
		serveErr <- s.httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		err := s.httpServer.Shutdown(shutdownCtx)
		shutdownCancel()
		if err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve http: %w", err)
	}
}

// Close releases the store.
func (s *Server) Close() {
	if s == nil {
		return
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			log.Printf("close engine store: %v", err)
		}
	}
}
