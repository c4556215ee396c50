// Package app wires the analytics engine runtime: the session orchestrator,
// the bus client, the live broadcast loop, batch ingestion, and the query
// API.
package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/maanavrajesh/Tartan-Hacks-26/internal/services/engine/domain"
	"github.com/maanavrajesh/Tartan-Hacks-26/internal/services/engine/storage"
)

// Publisher sends an envelope to the event bus. The boolean result reports
// whether a send was attempted on a live connection; false means the message
// was dropped, which is accepted semantics while the bus link is down.
type Publisher interface {
	Publish(envelope domain.Envelope) bool
}

// Orchestrator owns per-session lifecycle. It routes inbound bus messages,
// maintains live aggregates and the active-session set, persists derived
// state, and republishes derived signals.
//
// One mutex serializes the four shared resources: the live stats map, the
// store handle, the active set, and the publisher. The bus read loop, the
// broadcast ticker, and HTTP handlers all funnel through it.
type Orchestrator struct {
	mu        sync.Mutex
	store     storage.Store
	catalog   *domain.DrillCatalog
	publisher Publisher
	live      map[string]*domain.LiveStats
	active    map[string]struct{}
	clock     func() time.Time
}

// NewOrchestrator creates an orchestrator with empty session state.
func NewOrchestrator(store storage.Store, catalog *domain.DrillCatalog, publisher Publisher, clock func() time.Time) (*Orchestrator, error) {
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if catalog == nil {
		return nil, fmt.Errorf("drill catalog is required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("publisher is required")
	}
	if clock == nil {
		clock = time.Now
	}
	return &Orchestrator{
		store:     store,
		catalog:   catalog,
		publisher: publisher,
		live:      make(map[string]*domain.LiveStats),
		active:    make(map[string]struct{}),
		clock:     clock,
	}, nil
}

// Handle routes one inbound envelope. Unrecognized message types are
// ignored. Malformed payloads are dropped without error; store failures
// surface so the caller can log them for that single message.
func (o *Orchestrator) Handle(ctx context.Context, envelope domain.Envelope) error {
	if o == nil {
		return fmt.Errorf("orchestrator is not configured")
	}
	o.mu.Lock()
	defer o.mu.Unlock()

	switch envelope.Type {
	case domain.TypeSessionStarted:
		return o.handleSessionStarted(ctx, envelope)
	case domain.TypeVisionWindow:
		return o.handleVisionWindow(ctx, envelope)
	case domain.TypeClickRequest:
		_, err := o.generateInsightLocked(ctx, envelope.SessionID, envelope.Ts, clickMode(envelope), clickQuestion(envelope))
		return err
	case domain.TypeSessionEnded:
		return o.handleSessionEnded(ctx, envelope)
	default:
		return nil
	}
}

func (o *Orchestrator) handleSessionStarted(ctx context.Context, envelope domain.Envelope) error {
	var payload domain.SessionStartedPayload
	if len(envelope.Payload) > 0 {
		if err := json.Unmarshal(envelope.Payload, &payload); err != nil {
			return nil
		}
	}
	if payload.Mode == "" {
		payload.Mode = domain.ModeTeam
	}

	if err := o.store.UpsertSession(ctx, storage.SessionRecord{
		SessionID:   envelope.SessionID,
		StartedAt:   envelope.Ts,
		Mode:        payload.Mode,
		PlayerLabel: payload.PlayerLabel,
	}); err != nil {
		return fmt.Errorf("persist session start: %w", err)
	}
	o.active[envelope.SessionID] = struct{}{}
	return nil
}

func (o *Orchestrator) handleVisionWindow(ctx context.Context, envelope domain.Envelope) error {
	window, err := domain.ParseWindow(envelope)
	if err != nil {
		// Malformed windows are dropped, never surfaced.
		return nil
	}

	if err := o.store.AppendWindow(ctx, storage.WindowRecord{
		SessionID:  window.SessionID,
		T0:         window.T0,
		T1:         window.T1,
		EventType:  window.EventType,
		Pressure:   window.Pressure,
		Confidence: window.Confidence,
		RiskFlag:   window.RiskFlag,
		Note:       window.Note,
		Evidence:   window.Evidence,
	}); err != nil {
		return fmt.Errorf("persist window: %w", err)
	}

	o.liveStatsLocked(envelope.SessionID).Update(window)

	for _, derived := range domain.DeriveEvents(window) {
		if err := o.store.AppendEvent(ctx, storage.EventRecord{
			SessionID: envelope.SessionID,
			Ts:        envelope.Ts,
			Event:     derived.Event,
			Severity:  derived.Severity,
			Label:     derived.Label,
		}); err != nil {
			return fmt.Errorf("persist derived event: %w", err)
		}
		o.publishLocked(domain.TypeEventDetected, envelope.SessionID, envelope.Ts, domain.EventDetectedPayload{
			Event:    derived.Event,
			Severity: derived.Severity,
			Label:    derived.Label,
		})
	}
	return nil
}

func (o *Orchestrator) handleSessionEnded(ctx context.Context, envelope domain.Envelope) error {
	snapshot := o.liveStatsLocked(envelope.SessionID).Snapshot()
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("encode final snapshot: %w", err)
	}

	if err := o.store.AppendStat(ctx, storage.StatRecord{
		SessionID: envelope.SessionID,
		Ts:        envelope.Ts,
		Kind:      domain.SnapshotKindFinal,
		Payload:   payload,
	}); err != nil {
		return fmt.Errorf("persist final snapshot: %w", err)
	}
	o.publishLocked(domain.TypeStatsFinal, envelope.SessionID, envelope.Ts, snapshot)

	// The live stats entry stays resident so late queries still resolve;
	// only the broadcast membership ends here.
	delete(o.active, envelope.SessionID)
	return nil
}

// GenerateInsight composes, persists, and publishes an insight for the
// moment of interest. It serves both click.request bus messages and the
// manual POST /click trigger, which share one handling path. The returned
// envelope is the insight.generated message.
func (o *Orchestrator) GenerateInsight(ctx context.Context, sessionID string, ts float64, mode string, question string) (domain.Envelope, error) {
	if o == nil {
		return domain.Envelope{}, fmt.Errorf("orchestrator is not configured")
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.generateInsightLocked(ctx, sessionID, ts, mode, question)
}

func (o *Orchestrator) generateInsightLocked(ctx context.Context, sessionID string, ts float64, mode string, question string) (domain.Envelope, error) {
	if mode == "" {
		mode = domain.ModeTeam
	}

	windowRecords, err := o.store.WindowsNear(ctx, sessionID, ts, domain.InsightSliceRadius)
	if err != nil {
		return domain.Envelope{}, fmt.Errorf("load window slice: %w", err)
	}
	windows := make([]domain.Window, 0, len(windowRecords))
	for _, record := range windowRecords {
		windows = append(windows, domain.Window{
			SessionID:  record.SessionID,
			T0:         record.T0,
			T1:         record.T1,
			EventType:  record.EventType,
			Pressure:   record.Pressure,
			Confidence: record.Confidence,
			RiskFlag:   record.RiskFlag,
			Note:       record.Note,
			Evidence:   record.Evidence,
		})
	}

	insight := domain.ComposeInsight(windows, mode, question, o.catalog)
	body, err := json.Marshal(insight)
	if err != nil {
		return domain.Envelope{}, fmt.Errorf("encode insight: %w", err)
	}

	if err := o.store.AppendInsight(ctx, storage.InsightRecord{
		SessionID: sessionID,
		Ts:        ts,
		Title:     insight.Title,
		Body:      body,
	}); err != nil {
		return domain.Envelope{}, fmt.Errorf("persist insight: %w", err)
	}

	envelope := domain.Envelope{
		Type:      domain.TypeInsightGenerated,
		SessionID: sessionID,
		Ts:        ts,
		Payload:   body,
	}
	if !o.publisher.Publish(envelope) {
		log.Printf("insight.generated publish skipped session=%s ts=%v", sessionID, ts)
	}
	return envelope, nil
}

// BroadcastLive persists and publishes a live snapshot for every active
// session. Called on the broadcast cadence; safe against an empty set.
func (o *Orchestrator) BroadcastLive(ctx context.Context) {
	if o == nil {
		return
	}
	o.mu.Lock()
	defer o.mu.Unlock()

	ts := float64(o.clock().UnixMilli()) / 1000
	for sessionID := range o.active {
		snapshot := o.liveStatsLocked(sessionID).Snapshot()
		payload, err := json.Marshal(snapshot)
		if err != nil {
			log.Printf("encode live snapshot session=%s: %v", sessionID, err)
			continue
		}
		if err := o.store.AppendStat(ctx, storage.StatRecord{
			SessionID: sessionID,
			Ts:        ts,
			Kind:      domain.SnapshotKindLive,
			Payload:   payload,
		}); err != nil {
			log.Printf("persist live snapshot session=%s: %v", sessionID, err)
			continue
		}
		o.publishLocked(domain.TypeStatsLive, sessionID, ts, snapshot)
	}
}

// RunBroadcastLoop emits live snapshots on a fixed cadence until the
// context ends. This is the engine's only scheduled behavior.
func (o *Orchestrator) RunBroadcastLoop(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = defaultBroadcastInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			o.BroadcastLive(ctx)
		}
	}
}

// ActiveSessions reports the ids currently in the broadcast set.
func (o *Orchestrator) ActiveSessions() []string {
	if o == nil {
		return nil
	}
	o.mu.Lock()
	defer o.mu.Unlock()

	ids := make([]string, 0, len(o.active))
	for sessionID := range o.active {
		ids = append(ids, sessionID)
	}
	return ids
}

func (o *Orchestrator) liveStatsLocked(sessionID string) *domain.LiveStats {
	stats, ok := o.live[sessionID]
	if !ok {
		stats = domain.NewLiveStats()
		o.live[sessionID] = stats
	}
	return stats
}

func (o *Orchestrator) publishLocked(msgType domain.Type, sessionID string, ts float64, payload any) {
	envelope, err := domain.NewEnvelope(msgType, sessionID, ts, payload)
	if err != nil {
		log.Printf("encode %s payload session=%s: %v", msgType, sessionID, err)
		return
	}
	if !o.publisher.Publish(envelope) {
		log.Printf("%s publish skipped session=%s ts=%v", msgType, sessionID, ts)
	}
}

func clickMode(envelope domain.Envelope) string {
	var payload domain.ClickPayload
	if len(envelope.Payload) > 0 {
		_ = json.Unmarshal(envelope.Payload, &payload)
	}
	return payload.Mode
}

func clickQuestion(envelope domain.Envelope) string {
	var payload domain.ClickPayload
	if len(envelope.Payload) > 0 {
		_ = json.Unmarshal(envelope.Payload, &payload)
	}
	return payload.Question
}
