package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"sync"
	"time"

	"golang.org/x/net/websocket"

	"github.com/maanavrajesh/Tartan-Hacks-26/internal/platform/timeouts"
	"github.com/maanavrajesh/Tartan-Hacks-26/internal/services/engine/domain"
)

// BusClient maintains the engine's websocket link to the event bus. It
// redials on a fixed interval after any failure and drops outbound messages
// while disconnected rather than queueing them.
type BusClient struct {
	busURL string
	origin string
	redial time.Duration

	mu   sync.Mutex
	conn *websocket.Conn
}

// NewBusClient validates the bus address. The address must be a ws or wss
// URL; the dial origin is derived from it.
func NewBusClient(busURL string) (*BusClient, error) {
	parsed, err := url.Parse(busURL)
	if err != nil {
		return nil, fmt.Errorf("parse bus url: %w", err)
	}
	switch parsed.Scheme {
	case "ws":
		parsed.Scheme = "http"
	case "wss":
		parsed.Scheme = "https"
	default:
		return nil, fmt.Errorf("bus url scheme %q is not ws or wss", parsed.Scheme)
	}
	parsed.Path = ""
	parsed.RawQuery = ""

	return &BusClient{
		busURL: busURL,
		origin: parsed.String(),
		redial: timeouts.BusRedial,
	}, nil
}

// Run dials the bus and feeds every inbound message to handle until the
// context ends. Connection loss triggers a redial after the retry interval;
// frames that are not valid envelopes are skipped.
func (c *BusClient) Run(ctx context.Context, handle func(context.Context, domain.Envelope) error) {
	if c == nil || handle == nil {
		return
	}
	for {
		if ctx.Err() != nil {
			return
		}

		conn, err := websocket.Dial(c.busURL, "", c.origin)
		if err != nil {
			log.Printf("bus dial %s: %v", c.busURL, err)
			if !c.waitRedial(ctx) {
				return
			}
			continue
		}
		log.Printf("bus connected %s", c.busURL)
		c.setConn(conn)

		c.readLoop(ctx, conn, handle)
		c.setConn(nil)
		conn.Close()

		if ctx.Err() != nil {
			return
		}
		log.Printf("bus disconnected, retrying in %s", c.redial)
		if !c.waitRedial(ctx) {
			return
		}
	}
}

func (c *BusClient) readLoop(ctx context.Context, conn *websocket.Conn, handle func(context.Context, domain.Envelope) error) {
	for {
		var frame []byte
		if err := websocket.Message.Receive(conn, &frame); err != nil {
			return
		}
		envelope, err := domain.ParseEnvelope(frame)
		if err != nil {
			continue
		}
		if err := handle(ctx, envelope); err != nil {
			log.Printf("handle %s session=%s: %v", envelope.Type, envelope.SessionID, err)
		}
	}
}

// Publish sends one envelope over the current connection. It reports false
// when no connection is up or the send fails; dropped messages are not
// retried.
func (c *BusClient) Publish(envelope domain.Envelope) bool {
	if c == nil {
		return false
	}
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return false
	}

	frame, err := json.Marshal(envelope)
	if err != nil {
		log.Printf("encode %s envelope: %v", envelope.Type, err)
		return false
	}
	if err := websocket.Message.Send(conn, string(frame)); err != nil {
		log.Printf("bus send %s: %v", envelope.Type, err)
		return false
	}
	return true
}

func (c *BusClient) setConn(conn *websocket.Conn) {
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
}

func (c *BusClient) waitRedial(ctx context.Context) bool {
	timer := time.NewTimer(c.redial)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
