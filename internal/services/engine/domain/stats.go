package domain

// LiveStats accumulates running aggregates for one session. It is cumulative
// since session start; there is no windowing or decay. Counters reset with
// the process: stats are not rehydrated from storage after a restart.
type LiveStats struct {
	counts        map[string]int
	order         []string
	pressureSum   float64
	pressureCount int
	riskCount     int
}

// StatSnapshot is a point-in-time read of a session's aggregates. The JSON
// field names match the stats payload published on the bus.
type StatSnapshot struct {
	Counts      map[string]int `json:"counts"`
	AvgPressure float64        `json:"avgPressure"`
	TopEvent    string         `json:"topEvent"`
	RiskCount   int            `json:"riskCount"`
}

// Snapshot kinds persisted to storage.
const (
	SnapshotKindLive  = "live"
	SnapshotKindFinal = "final"
)

// NewLiveStats creates an empty aggregate tracker.
func NewLiveStats() *LiveStats {
	return &LiveStats{counts: make(map[string]int)}
}

// Update folds one window into the aggregates. Unknown or missing event
// types count under the "none" sentinel.
func (s *LiveStats) Update(window Window) {
	if s == nil {
		return
	}
	eventType := window.EventType
	if eventType == "" {
		eventType = EventTypeNone
	}
	if _, seen := s.counts[eventType]; !seen {
		s.order = append(s.order, eventType)
	}
	s.counts[eventType]++

	if window.Pressure != nil {
		s.pressureSum += *window.Pressure
		s.pressureCount++
	}
	if window.RiskFlag != "" && window.RiskFlag != RiskNone {
		s.riskCount++
	}
}

// Snapshot returns the current aggregates. The top event is the type with
// the strictly highest count; ties keep the first-encountered type, and an
// empty tracker reports "none". Pure read, no side effects.
func (s *LiveStats) Snapshot() StatSnapshot {
	snapshot := StatSnapshot{
		Counts:   make(map[string]int),
		TopEvent: EventTypeNone,
	}
	if s == nil {
		return snapshot
	}

	topCount := 0
	for _, eventType := range s.order {
		count := s.counts[eventType]
		snapshot.Counts[eventType] = count
		if count > topCount {
			topCount = count
			snapshot.TopEvent = eventType
		}
	}
	if s.pressureCount > 0 {
		snapshot.AvgPressure = s.pressureSum / float64(s.pressureCount)
	}
	snapshot.RiskCount = s.riskCount
	return snapshot
}
