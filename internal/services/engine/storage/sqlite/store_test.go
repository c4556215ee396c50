package sqlite

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/maanavrajesh/Tartan-Hacks-26/internal/services/engine/storage"
)

func TestUpsertSessionOverwritesMetadata(t *testing.T) {
	store := openTempStore(t)

	if err := store.UpsertSession(context.Background(), storage.SessionRecord{
		SessionID: "s1",
		StartedAt: 100,
		Mode:      "team",
	}); err != nil {
		t.Fatalf("upsert session: %v", err)
	}
	if err := store.UpsertSession(context.Background(), storage.SessionRecord{
		SessionID:   "s1",
		StartedAt:   120,
		Mode:        "player",
		PlayerLabel: "p7",
	}); err != nil {
		t.Fatalf("upsert session again: %v", err)
	}

	sessions, err := store.ListSessions(context.Background())
	if err != nil {
		t.Fatalf("list sessions: %v", err)
	}
	if len(sessions) != 1 {
		t.Fatalf("sessions len = %d, want 1", len(sessions))
	}
	if sessions[0].Mode != "player" || sessions[0].StartedAt != 120 || sessions[0].PlayerLabel != "p7" {
		t.Fatalf("session = %+v, want overwritten metadata", sessions[0])
	}
}

func TestUpsertSessionValidation(t *testing.T) {
	store := openTempStore(t)

	if err := store.UpsertSession(context.Background(), storage.SessionRecord{}); err == nil {
		t.Fatal("expected validation error for empty session")
	}
}

func TestWindowsNearSelectsByT1Radius(t *testing.T) {
	store := openTempStore(t)
	pressure := 0.4

	for _, window := range []storage.WindowRecord{
		{SessionID: "s1", T0: 7, T1: 8, EventType: "pass", RiskFlag: "none", Confidence: 0.5},
		{SessionID: "s1", T0: 10, T1: 11, EventType: "turnover", RiskFlag: "none", Confidence: 0.8, Pressure: &pressure},
		{SessionID: "s1", T0: 12, T1: 13, EventType: "shot", RiskFlag: "knee", Confidence: 0.7, Note: "rushed"},
		{SessionID: "s1", T0: 14, T1: 15, EventType: "pass", RiskFlag: "none", Confidence: 0.9},
		{SessionID: "s2", T0: 10, T1: 11, EventType: "press", RiskFlag: "none", Confidence: 0.7},
	} {
		if err := store.AppendWindow(context.Background(), window); err != nil {
			t.Fatalf("append window: %v", err)
		}
	}

	windows, err := store.WindowsNear(context.Background(), "s1", 11, 2)
	if err != nil {
		t.Fatalf("windows near: %v", err)
	}
	if len(windows) != 2 {
		t.Fatalf("windows len = %d, want 2", len(windows))
	}
	if windows[0].EventType != "turnover" || windows[1].EventType != "shot" {
		t.Fatalf("windows = %+v, want turnover then shot", windows)
	}
	if windows[0].Pressure == nil || *windows[0].Pressure != 0.4 {
		t.Fatalf("pressure = %v, want 0.4", windows[0].Pressure)
	}
	if windows[1].Note != "rushed" {
		t.Fatalf("note = %q, want %q", windows[1].Note, "rushed")
	}
}

func TestWindowsNearMissingPressureStaysNil(t *testing.T) {
	store := openTempStore(t)

	if err := store.AppendWindow(context.Background(), storage.WindowRecord{
		SessionID: "s1", T0: 10, T1: 11, EventType: "pass", RiskFlag: "none", Confidence: 0.5,
	}); err != nil {
		t.Fatalf("append window: %v", err)
	}

	windows, err := store.WindowsNear(context.Background(), "s1", 11, 2)
	if err != nil {
		t.Fatalf("windows near: %v", err)
	}
	if len(windows) != 1 {
		t.Fatalf("windows len = %d, want 1", len(windows))
	}
	if windows[0].Pressure != nil {
		t.Fatalf("pressure = %v, want nil", *windows[0].Pressure)
	}
}

func TestListStatsNewestFirst(t *testing.T) {
	store := openTempStore(t)

	for _, stat := range []storage.StatRecord{
		{SessionID: "s1", Ts: 100, Kind: "live", Payload: json.RawMessage(`{"riskCount":0}`)},
		{SessionID: "s1", Ts: 200, Kind: "final", Payload: json.RawMessage(`{"riskCount":1}`)},
	} {
		if err := store.AppendStat(context.Background(), stat); err != nil {
			t.Fatalf("append stat: %v", err)
		}
	}

	stats, err := store.ListStats(context.Background(), "s1")
	if err != nil {
		t.Fatalf("list stats: %v", err)
	}
	if len(stats) != 2 {
		t.Fatalf("stats len = %d, want 2", len(stats))
	}
	if stats[0].Kind != "final" || stats[1].Kind != "live" {
		t.Fatalf("stats order = %s, %s, want final then live", stats[0].Kind, stats[1].Kind)
	}
}

func TestAppendStatRejectsUnknownKind(t *testing.T) {
	store := openTempStore(t)

	err := store.AppendStat(context.Background(), storage.StatRecord{
		SessionID: "s1", Ts: 100, Kind: "hourly", Payload: json.RawMessage(`{}`),
	})
	if err == nil {
		t.Fatal("expected error for unknown snapshot kind")
	}
}

func TestListInsightsNewestFirst(t *testing.T) {
	store := openTempStore(t)

	for _, insight := range []storage.InsightRecord{
		{SessionID: "s1", Ts: 10, Title: "Pass Moment", Body: json.RawMessage(`{"title":"Pass Moment"}`)},
		{SessionID: "s1", Ts: 20, Title: "Turnover Moment", Body: json.RawMessage(`{"title":"Turnover Moment"}`)},
	} {
		if err := store.AppendInsight(context.Background(), insight); err != nil {
			t.Fatalf("append insight: %v", err)
		}
	}

	insights, err := store.ListInsights(context.Background(), "s1")
	if err != nil {
		t.Fatalf("list insights: %v", err)
	}
	if len(insights) != 2 {
		t.Fatalf("insights len = %d, want 2", len(insights))
	}
	if insights[0].Title != "Turnover Moment" {
		t.Fatalf("insights[0].title = %q, want newest first", insights[0].Title)
	}

	var body map[string]any
	if err := json.Unmarshal(insights[0].Body, &body); err != nil {
		t.Fatalf("decode insight body: %v", err)
	}
	if body["title"] != "Turnover Moment" {
		t.Fatalf("body = %v", body)
	}
}

func TestAppendEventValidation(t *testing.T) {
	store := openTempStore(t)

	if err := store.AppendEvent(context.Background(), storage.EventRecord{SessionID: "s1"}); err == nil {
		t.Fatal("expected validation error for event without a name")
	}
}

func openTempStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "engine.db")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Fatalf("close store: %v", err)
		}
	})
	return store
}
