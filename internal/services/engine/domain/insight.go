package domain

import (
	"fmt"
	"math"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// InsightSliceRadius is the retrospective half-width, in seconds, of the
// window slice examined around a moment of interest.
const InsightSliceRadius = 2.0

// Fixed insight copy. The composer is deliberately rule-based; any LLM
// enrichment happens outside this engine.
const (
	injuryNoteCopy      = "This pattern may increase risk; reduce load and focus on clean mechanics."
	whyTurnoverCopy     = "Turnovers here trigger dangerous transitions."
	whyDefaultCopy      = "This moment affects decision speed and team shape."
	titleNoClearEvent   = "No Clear Event"
	whatNeutralFormat   = "%s had a neutral phase with no clear event."
	whatEventFormat     = "%s had a %s under pressure."
	subjectPlayer       = "You"
	subjectTeam         = "Your team"
	improveScanEarlier  = "Scan earlier before the ball arrives."
	improveFirstTouch   = "Use first touch away from pressure."
	improveSimpleOutlet = "Choose the simple outlet if options are tight."
)

var titleCaser = cases.Title(language.English)

// Insight is a synthesized, human-readable coaching recommendation tied to a
// moment in a session. Immutable once composed.
type Insight struct {
	Title        string   `json:"title"`
	WhatHappened string   `json:"what_happened"`
	WhyItMatters string   `json:"why_it_matters"`
	HowToImprove []string `json:"how_to_improve"`
	InjuryNote   *string  `json:"injury_note"`
	Drill        Drill    `json:"drill"`
	Evidence     Evidence `json:"evidence"`
	Question     *string  `json:"question"`
}

// Evidence lists the rounded window end timestamps that support an insight.
type Evidence struct {
	Windows []int `json:"windows"`
	Events  []int `json:"events"`
}

// ComposeInsight synthesizes a coaching insight from the window slice around
// the moment of interest. The dominant event type is the one with the
// highest tally, ties kept by encounter order; an empty slice yields the
// "none" dominant and the fallback drill.
func ComposeInsight(windows []Window, mode string, question string, catalog *DrillCatalog) Insight {
	counts := make(map[string]int)
	var order []string
	riskFlag := RiskNone
	evidenceWindows := make([]int, 0, len(windows))

	for _, window := range windows {
		eventType := window.EventType
		if eventType == "" {
			eventType = EventTypeNone
		}
		if _, seen := counts[eventType]; !seen {
			order = append(order, eventType)
		}
		counts[eventType]++
		if window.RiskFlag != "" && window.RiskFlag != RiskNone {
			riskFlag = window.RiskFlag
		}
		evidenceWindows = append(evidenceWindows, int(math.Round(window.T1)))
	}

	// The dominant seed competes at its own tallied count, so a type that
	// merely ties "none" never displaces it, while ties between other types
	// keep the first-encountered one.
	dominant := EventTypeNone
	for _, eventType := range order {
		if counts[eventType] > counts[dominant] {
			dominant = eventType
		}
	}

	subject := subjectTeam
	if mode == ModePlayer {
		subject = subjectPlayer
	}

	title := titleNoClearEvent
	whatHappened := fmt.Sprintf(whatNeutralFormat, subject)
	if dominant != EventTypeNone {
		title = titleCaser.String(dominant) + " Moment"
		whatHappened = fmt.Sprintf(whatEventFormat, subject, dominant)
	}

	whyItMatters := whyDefaultCopy
	if dominant == "turnover" {
		whyItMatters = whyTurnoverCopy
	}

	var injuryNote *string
	if riskFlag != RiskNone {
		note := injuryNoteCopy
		injuryNote = &note
	}

	var questionRef *string
	if question != "" {
		questionRef = &question
	}

	return Insight{
		Title:        title,
		WhatHappened: whatHappened,
		WhyItMatters: whyItMatters,
		HowToImprove: []string{improveScanEarlier, improveFirstTouch, improveSimpleOutlet},
		InjuryNote:   injuryNote,
		Drill:        catalog.Get(dominant),
		Evidence:     Evidence{Windows: evidenceWindows, Events: []int{}},
		Question:     questionRef,
	}
}
