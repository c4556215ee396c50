package domain

// Derivation thresholds. A window yields an "event" signal when the model is
// confident enough, and a separate "risk" signal when it flagged an injury
// pattern. The two derivations are independent.
const (
	// EventConfidenceThreshold is the exclusive lower bound on confidence
	// for deriving an event-category signal.
	EventConfidenceThreshold = 0.6
	// RiskSeverity is the fixed severity of every risk-category signal.
	RiskSeverity = 0.7
	// RiskEvent is the event name used for risk-category signals.
	RiskEvent = "risk"
)

// DerivedEvent is a discrete thresholded signal computed from a window.
type DerivedEvent struct {
	Event    string
	Severity float64
	Label    string
}

// DeriveEvents computes zero, one, or two derived events from a window.
// Event-category signals carry the window confidence as severity; risk
// signals carry RiskSeverity and the risk flag as label.
func DeriveEvents(window Window) []DerivedEvent {
	var events []DerivedEvent
	if window.EventType != EventTypeNone && window.Confidence > EventConfidenceThreshold {
		events = append(events, DerivedEvent{
			Event:    window.EventType,
			Severity: window.Confidence,
			Label:    window.EventType,
		})
	}
	if window.RiskFlag != "" && window.RiskFlag != RiskNone {
		events = append(events, DerivedEvent{
			Event:    RiskEvent,
			Severity: RiskSeverity,
			Label:    window.RiskFlag,
		})
	}
	return events
}
