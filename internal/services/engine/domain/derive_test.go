package domain

import "testing"

func TestDeriveEventsConfidenceAboveThreshold(t *testing.T) {
	events := DeriveEvents(Window{EventType: "turnover", Confidence: 0.8, RiskFlag: RiskNone})
	if len(events) != 1 {
		t.Fatalf("events = %v, want exactly one", events)
	}
	if events[0].Event != "turnover" {
		t.Fatalf("event = %q, want %q", events[0].Event, "turnover")
	}
	if events[0].Severity != 0.8 {
		t.Fatalf("severity = %v, want confidence 0.8", events[0].Severity)
	}
	if events[0].Label != "turnover" {
		t.Fatalf("label = %q, want %q", events[0].Label, "turnover")
	}
}

func TestDeriveEventsConfidenceAtThreshold(t *testing.T) {
	if events := DeriveEvents(Window{EventType: "pass", Confidence: 0.6, RiskFlag: RiskNone}); len(events) != 0 {
		t.Fatalf("events = %v, want none at threshold", events)
	}
}

func TestDeriveEventsNoneTypeNeverDerives(t *testing.T) {
	if events := DeriveEvents(Window{EventType: EventTypeNone, Confidence: 0.95, RiskFlag: RiskNone}); len(events) != 0 {
		t.Fatalf("events = %v, want none for sentinel type", events)
	}
}

func TestDeriveEventsRiskFlag(t *testing.T) {
	events := DeriveEvents(Window{EventType: "shot", Confidence: 0.2, RiskFlag: "ankle"})
	if len(events) != 1 {
		t.Fatalf("events = %v, want exactly one", events)
	}
	if events[0].Event != RiskEvent {
		t.Fatalf("event = %q, want %q", events[0].Event, RiskEvent)
	}
	if events[0].Severity != RiskSeverity {
		t.Fatalf("severity = %v, want %v", events[0].Severity, RiskSeverity)
	}
	if events[0].Label != "ankle" {
		t.Fatalf("label = %q, want %q", events[0].Label, "ankle")
	}
}

func TestDeriveEventsBothCategoriesIndependently(t *testing.T) {
	events := DeriveEvents(Window{EventType: "tackle", Confidence: 0.9, RiskFlag: "knee"})
	if len(events) != 2 {
		t.Fatalf("events = %v, want two", events)
	}
	if events[0].Event != "tackle" || events[1].Event != RiskEvent {
		t.Fatalf("events = %v, want tackle then risk", events)
	}
}
