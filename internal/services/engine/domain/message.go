// Package domain holds the analytics engine's core types and rules: bus
// message envelopes, vision windows, event derivation, running session
// aggregates, and the rule-based insight composer.
package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Type identifies the type of a bus message.
type Type string

// Inbound message types consumed by the engine.
const (
	// TypeSessionStarted records the start of a coaching session.
	TypeSessionStarted Type = "session.started"
	// TypeVisionWindow carries one time-windowed vision-analysis result.
	TypeVisionWindow Type = "vision.window"
	// TypeClickRequest asks for a coaching insight at a moment of interest.
	TypeClickRequest Type = "click.request"
	// TypeSessionEnded records the end of a coaching session.
	TypeSessionEnded Type = "session.ended"
)

// Outbound message types republished by the engine.
const (
	// TypeEventDetected carries a thresholded signal derived from a window.
	TypeEventDetected Type = "event.detected"
	// TypeInsightGenerated carries a synthesized coaching insight.
	TypeInsightGenerated Type = "insight.generated"
	// TypeStatsLive carries a periodic aggregate snapshot for an active session.
	TypeStatsLive Type = "stats.live"
	// TypeStatsFinal carries the terminal aggregate snapshot for a session.
	TypeStatsFinal Type = "stats.final"
)

// Session modes.
const (
	ModeTeam   = "team"
	ModePlayer = "player"
)

// Envelope is the wire format every bus message travels in. Ts is unix
// seconds with fractional precision.
type Envelope struct {
	Type      Type            `json:"type"`
	SessionID string          `json:"sessionId"`
	Ts        float64         `json:"ts"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// NewEnvelope builds an outbound envelope, encoding payload as JSON.
func NewEnvelope(msgType Type, sessionID string, ts float64, payload any) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("encode %s payload: %w", msgType, err)
	}
	return Envelope{
		Type:      msgType,
		SessionID: sessionID,
		Ts:        ts,
		Payload:   raw,
	}, nil
}

// ParseEnvelope decodes a raw bus frame. It rejects frames without a type so
// callers can drop them without further inspection.
func ParseEnvelope(data []byte) (Envelope, error) {
	var envelope Envelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return Envelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	if strings.TrimSpace(string(envelope.Type)) == "" {
		return Envelope{}, fmt.Errorf("envelope type is required")
	}
	return envelope, nil
}

// SessionStartedPayload is the payload of a session.started message.
type SessionStartedPayload struct {
	Mode        string `json:"mode,omitempty"`
	PlayerLabel string `json:"playerLabel,omitempty"`
}

// ClickPayload is the payload of a click.request message.
type ClickPayload struct {
	Mode     string `json:"mode,omitempty"`
	Question string `json:"question,omitempty"`
	Source   string `json:"source,omitempty"`
}

// EventDetectedPayload is the payload of an event.detected message.
type EventDetectedPayload struct {
	Event    string  `json:"event"`
	Severity float64 `json:"severity"`
	Label    string  `json:"label"`
}
