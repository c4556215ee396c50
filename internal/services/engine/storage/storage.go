// Package storage defines the durable persistence boundary for the
// analytics engine: sessions, windows, derived events, insights, and stat
// snapshots. All tables are append-only except sessions, which upsert.
package storage

import (
	"context"
	"encoding/json"
)

// SessionRecord is one coaching session's metadata. A duplicate start
// overwrites the prior metadata for the same id; records are never deleted.
type SessionRecord struct {
	SessionID   string  `json:"sessionId"`
	StartedAt   float64 `json:"startedAt"`
	Mode        string  `json:"mode"`
	PlayerLabel string  `json:"playerLabel,omitempty"`
}

// WindowRecord is one persisted vision window row, append-only in arrival
// order.
type WindowRecord struct {
	ID         int64    `json:"id"`
	SessionID  string   `json:"sessionId"`
	T0         float64  `json:"t0"`
	T1         float64  `json:"t1"`
	EventType  string   `json:"event_type"`
	Pressure   *float64 `json:"pressure"`
	Confidence float64  `json:"confidence"`
	RiskFlag   string   `json:"risk_flag"`
	Note       string   `json:"note,omitempty"`
	Evidence   string   `json:"evidence,omitempty"`
}

// EventRecord is one persisted derived event.
type EventRecord struct {
	ID        int64   `json:"id"`
	SessionID string  `json:"sessionId"`
	Ts        float64 `json:"ts"`
	Event     string  `json:"event"`
	Severity  float64 `json:"severity"`
	Label     string  `json:"label"`
}

// InsightRecord is one persisted insight. Body holds the full composed
// insight as JSON; Title is duplicated for listing without decoding.
type InsightRecord struct {
	ID        int64           `json:"id"`
	SessionID string          `json:"sessionId"`
	Ts        float64         `json:"ts"`
	Title     string          `json:"title"`
	Body      json.RawMessage `json:"json"`
}

// StatRecord is one persisted stat snapshot, live or final.
type StatRecord struct {
	ID        int64           `json:"id"`
	SessionID string          `json:"sessionId"`
	Ts        float64         `json:"ts"`
	Kind      string          `json:"kind"`
	Payload   json.RawMessage `json:"json"`
}

// Store persists engine state. List methods return newest first; WindowsNear
// returns the windows whose t1 falls within radius seconds of ts, in insert
// order.
type Store interface {
	UpsertSession(ctx context.Context, session SessionRecord) error
	AppendWindow(ctx context.Context, window WindowRecord) error
	AppendEvent(ctx context.Context, event EventRecord) error
	AppendInsight(ctx context.Context, insight InsightRecord) error
	AppendStat(ctx context.Context, stat StatRecord) error
	ListSessions(ctx context.Context) ([]SessionRecord, error)
	ListStats(ctx context.Context, sessionID string) ([]StatRecord, error)
	ListInsights(ctx context.Context, sessionID string) ([]InsightRecord, error)
	WindowsNear(ctx context.Context, sessionID string, ts float64, radius float64) ([]WindowRecord, error)
}
