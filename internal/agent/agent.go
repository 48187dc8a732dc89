// Package agent implements the stateful risk decision engine.
//
// Every risk observation is run through a 4-state severity machine with
// asymmetric (hysteresis) thresholds, a velocity estimate over the recent
// score history, and a cooldown-gated intervention policy. The engine always
// produces a decision: bad input is corrected in place and degraded
// persistence is logged, never surfaced to the caller.
//
// Observations are processed in arrival order. Caller-supplied timestamps
// may race or skew across clients; the engine records whatever arrives and
// does not reorder, which means skewed timestamps can under- or over-trigger
// cooldowns. Known limitation.
package agent

import (
	"time"
)

// State is a severity tier in the risk state machine.
type State string

const (
	StateSafe         State = "safe"
	StateCaution      State = "caution"
	StateElevatedRisk State = "elevated_risk"
	StateHighRisk     State = "high_risk"
)

// severityOrder fixes the total order of states, least to most severe.
var severityOrder = []State{StateSafe, StateCaution, StateElevatedRisk, StateHighRisk}

// Severity returns the state's position in the severity order (0 = safe).
// Unknown states rank as safe.
func (s State) Severity() int {
	for i, st := range severityOrder {
		if st == s {
			return i
		}
	}
	return 0
}

// Valid reports whether s is one of the four known states.
func (s State) Valid() bool {
	for _, st := range severityOrder {
		if st == s {
			return true
		}
	}
	return false
}

// Action is the intervention recommended for a state.
type Action string

const (
	ActionMonitor             Action = "monitor"
	ActionSilentCheckin       Action = "silent_checkin"
	ActionSuggestRoute        Action = "suggest_route"
	ActionRecommendEscalation Action = "recommend_escalation"
)

// Location is a latitude/longitude pair. Used only for echoing back and for
// the bounded location-history diagnostic, never for transition logic.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Observation is one scored risk reading handed to the engine.
type Observation struct {
	Location  Location  `json:"location"`
	Timestamp time.Time `json:"timestamp"`
	RiskScore float64   `json:"riskScore"`
	RiskLevel string    `json:"riskLevel"` // advisory label from the scorer; score is authoritative
}

// Alert is a user-facing intervention emitted past the cooldown gate.
type Alert struct {
	ID        string    `json:"id"`
	Type      Action    `json:"type"`
	Priority  int       `json:"priority"`
	Message   string    `json:"message"`
	RiskScore float64   `json:"riskScore"`
	Location  Location  `json:"location"`
	Timestamp time.Time `json:"timestamp"`
}

// Decision is the engine's verdict on a single observation.
// Alert is nil when no intervention surfaced (safe state or cooldown).
type Decision struct {
	State        State     `json:"state"`
	Action       Action    `json:"action"`
	Priority     int       `json:"priority"`
	RiskScore    float64   `json:"riskScore"` // clamped
	RiskVelocity float64   `json:"riskVelocity"`
	Message      string    `json:"message"`
	Alert        *Alert    `json:"alert,omitempty"`
	Location     Location  `json:"location"`
	Timestamp    time.Time `json:"timestamp"`
}

// Status is the read-only state summary.
type Status struct {
	CurrentState         State   `json:"currentState"`
	RiskScore            float64 `json:"riskScore"`
	RiskVelocity         float64 `json:"riskVelocity"`
	AlertCount           int64   `json:"alertCount"`
	LocationHistoryCount int64   `json:"locationHistoryCount"`
}

// Sink receives every decision after the engine commits it. Implementations
// must be fast or hand off internally; a slow sink delays callers but never
// affects decisions.
type Sink interface {
	OnDecision(d *Decision)
}
