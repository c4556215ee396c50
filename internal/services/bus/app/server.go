// Package server hosts the event bus relay: a websocket hub that fans every
// inbound frame out to all connected clients and keeps a bounded replay
// buffer for late joiners.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/websocket"

	"github.com/maanavrajesh/Tartan-Hacks-26/internal/platform/httpx"
	"github.com/maanavrajesh/Tartan-Hacks-26/internal/platform/timeouts"
)

// defaultMaxBuffer bounds the replay buffer; the oldest message is evicted
// once full.
const defaultMaxBuffer = 2000

// Config defines the inputs for the bus relay process.
type Config struct {
	HTTPAddr          string
	MaxBuffer         int
	ReadHeaderTimeout time.Duration
	ShutdownTimeout   time.Duration
}

// Server hosts the relay HTTP/WebSocket process. The relay is intentionally
// dumb transport: it validates frames as JSON and fans them out without
// inspecting message semantics.
type Server struct {
	httpAddr        string
	shutdownTimeout time.Duration
	httpServer      *http.Server
	hub             *hub
}

type hub struct {
	mu        sync.Mutex
	clients   map[*websocket.Conn]struct{}
	buffer    []json.RawMessage
	maxBuffer int
}

func newHub(maxBuffer int) *hub {
	if maxBuffer <= 0 {
		maxBuffer = defaultMaxBuffer
	}
	return &hub{
		clients:   make(map[*websocket.Conn]struct{}),
		maxBuffer: maxBuffer,
	}
}

func (h *hub) join(conn *websocket.Conn) {
	h.mu.Lock()
	h.clients[conn] = struct{}{}
	count := len(h.clients)
	h.mu.Unlock()
	log.Printf("client connected, total %d", count)
}

func (h *hub) leave(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.clients, conn)
	count := len(h.clients)
	h.mu.Unlock()
	log.Printf("client disconnected, total %d", count)
}

func (h *hub) clientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// broadcast records the frame and fans it out to every client, the sender
// included. Slow or dead clients fail their own send without blocking the
// rest.
func (h *hub) broadcast(frame json.RawMessage) {
	h.mu.Lock()
	h.buffer = append(h.buffer, frame)
	if len(h.buffer) > h.maxBuffer {
		h.buffer = h.buffer[len(h.buffer)-h.maxBuffer:]
	}
	recipients := make([]*websocket.Conn, 0, len(h.clients))
	for conn := range h.clients {
		recipients = append(recipients, conn)
	}
	h.mu.Unlock()

	for _, conn := range recipients {
		if err := websocket.Message.Send(conn, string(frame)); err != nil {
			log.Printf("fan-out send: %v", err)
		}
	}
}

func (h *hub) replay() []json.RawMessage {
	h.mu.Lock()
	defer h.mu.Unlock()
	events := make([]json.RawMessage, len(h.buffer))
	copy(events, h.buffer)
	return events
}

func (h *hub) handleConn(conn *websocket.Conn) {
	defer func() {
		h.leave(conn)
		_ = conn.Close()
	}()
	h.join(conn)

	for {
		var frame []byte
		if err := websocket.Message.Receive(conn, &frame); err != nil {
			return
		}
		var message json.RawMessage
		if err := json.Unmarshal(frame, &message); err != nil {
			// Non-JSON frames are dropped without closing the connection.
			continue
		}
		h.broadcast(message)
	}
}

type healthPayload struct {
	OK      bool `json:"ok"`
	Clients int  `json:"clients"`
}

type replayPayload struct {
	Count  int               `json:"count"`
	Events []json.RawMessage `json:"events"`
}

// NewHandler builds the relay routes.
func NewHandler(maxBuffer int) http.Handler {
	handler, _ := newHandler(maxBuffer)
	return handler
}

func newHandler(maxBuffer int) (http.Handler, *hub) {
	h := newHub(maxBuffer)
	mux := http.NewServeMux()

	mux.Handle(http.MethodGet+" /ws", websocket.Handler(h.handleConn))

	mux.HandleFunc(http.MethodGet+" /health", func(w http.ResponseWriter, _ *http.Request) {
		_ = httpx.WriteJSON(w, http.StatusOK, healthPayload{OK: true, Clients: h.clientCount()})
	})

	mux.HandleFunc(http.MethodGet+" /replay", func(w http.ResponseWriter, _ *http.Request) {
		events := h.replay()
		_ = httpx.WriteJSON(w, http.StatusOK, replayPayload{Count: len(events), Events: events})
	})

	return httpx.Chain(mux, httpx.RecoverPanic()), h
}

// NewServer builds a configured relay server.
func NewServer(config Config) (*Server, error) {
	httpAddr := strings.TrimSpace(config.HTTPAddr)
	if httpAddr == "" {
		return nil, errors.New("http address is required")
	}
	if config.ReadHeaderTimeout <= 0 {
		config.ReadHeaderTimeout = timeouts.ReadHeader
	}
	if config.ShutdownTimeout <= 0 {
		config.ShutdownTimeout = timeouts.Shutdown
	}

	handler, h := newHandler(config.MaxBuffer)
	httpServer := &http.Server{
		Addr:              httpAddr,
		Handler:           handler,
		ReadHeaderTimeout: config.ReadHeaderTimeout,
	}

	return &Server{
		httpAddr:        httpAddr,
		shutdownTimeout: config.ShutdownTimeout,
		httpServer:      httpServer,
		hub:             h,
	}, nil
}

// Run creates and serves a relay until the context ends.
func Run(ctx context.Context, config Config) error {
	server, err := NewServer(config)
	if err != nil {
		return fmt.Errorf("init bus relay: %w", err)
	}

	if err := server.ListenAndServe(ctx); err != nil {
		return fmt.Errorf("serve bus relay: %w", err)
	}
	return nil
}

// ListenAndServe runs the HTTP server until the context ends.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if s == nil {
		return errors.New("bus relay server is nil")
	}
	if ctx == nil {
		return errors.New("context is required")
	}

	serveErr := make(chan error, 1)
	log.Printf("bus relay listening on %s", s.httpAddr)
	go func() {
		serveErr <- s.httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		err := s.httpServer.Shutdown(shutdownCtx)
		cancel()
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
