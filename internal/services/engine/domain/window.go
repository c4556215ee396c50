package domain

import (
	"encoding/json"
	"fmt"
)

// RiskNone is the sentinel risk flag meaning no elevated injury risk.
const RiskNone = "none"

// EventTypeNone is the sentinel event type for windows without a clear event.
const EventTypeNone = "none"

// Window is one fixed time-slice of vision-model output describing an
// inferred tactical event candidate.
type Window struct {
	SessionID  string
	T0         float64
	T1         float64
	EventType  string
	Pressure   *float64
	Confidence float64
	RiskFlag   string
	Note       string
	Evidence   string
}

// windowPayload mirrors the vision.window payload shape on the wire. The
// model output itself arrives nested under "json".
type windowPayload struct {
	T0   float64    `json:"t0"`
	T1   float64    `json:"t1"`
	JSON windowJSON `json:"json"`
}

type windowJSON struct {
	EventType    string          `json:"event_type"`
	Pressure     json.RawMessage `json:"pressure"`
	Confidence   json.RawMessage `json:"confidence"`
	RiskFlag     string          `json:"risk_flag"`
	CoachingNote string          `json:"coaching_note"`
	Evidence     string          `json:"evidence"`
}

// ParseWindow extracts a Window from a vision.window envelope. Missing or
// non-numeric model fields fall back to their sentinels: event type "none",
// confidence 0, risk flag "none", pressure absent.
func ParseWindow(envelope Envelope) (Window, error) {
	if envelope.Type != TypeVisionWindow {
		return Window{}, fmt.Errorf("envelope type %q is not %s", envelope.Type, TypeVisionWindow)
	}
	if len(envelope.Payload) == 0 {
		return Window{}, fmt.Errorf("vision window payload is required")
	}

	var payload windowPayload
	if err := json.Unmarshal(envelope.Payload, &payload); err != nil {
		return Window{}, fmt.Errorf("decode vision window payload: %w", err)
	}

	window := Window{
		SessionID:  envelope.SessionID,
		T0:         payload.T0,
		T1:         payload.T1,
		EventType:  payload.JSON.EventType,
		RiskFlag:   payload.JSON.RiskFlag,
		Note:       payload.JSON.CoachingNote,
		Evidence:   payload.JSON.Evidence,
		Confidence: numericOrZero(payload.JSON.Confidence),
		Pressure:   numericOrNil(payload.JSON.Pressure),
	}
	if window.EventType == "" {
		window.EventType = EventTypeNone
	}
	if window.RiskFlag == "" {
		window.RiskFlag = RiskNone
	}
	return window, nil
}

func numericOrZero(raw json.RawMessage) float64 {
	if value := numericOrNil(raw); value != nil {
		return *value
	}
	return 0
}

func numericOrNil(raw json.RawMessage) *float64 {
	if len(raw) == 0 {
		return nil
	}
	var value float64
	if err := json.Unmarshal(raw, &value); err != nil {
		return nil
	}
	return &value
}
