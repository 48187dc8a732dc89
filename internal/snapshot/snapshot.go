// Package snapshot makes engine state durable across restarts.
//
// A snapshot is a structured JSON document: unknown fields are ignored and
// missing fields default, so documents stay readable across minor engine
// versions. Corruption is never fatal — a store that cannot read a prior
// snapshot hands back the default state and the engine proceeds.
package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Known state labels. Kept as plain strings so the schema does not depend on
// engine internals.
var knownStates = map[string]bool{
	"safe":          true,
	"caution":       true,
	"elevated_risk": true,
	"high_risk":     true,
}

// HistoryPoint is one (timestamp, score) sample. It marshals as a two-element
// array [unix_seconds, score] to keep the document compact.
type HistoryPoint struct {
	Timestamp time.Time
	Score     float64
}

// MarshalJSON encodes the point as [unix_seconds, score].
func (p HistoryPoint) MarshalJSON() ([]byte, error) {
	ts := float64(p.Timestamp.UnixNano()) / float64(time.Second)
	return json.Marshal([2]float64{ts, p.Score})
}

// UnmarshalJSON decodes [unix_seconds, score].
func (p *HistoryPoint) UnmarshalJSON(data []byte) error {
	var pair [2]float64
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	sec := int64(pair[0])
	nsec := int64((pair[0] - float64(sec)) * float64(time.Second))
	p.Timestamp = time.Unix(sec, nsec).UTC()
	p.Score = pair[1]
	return nil
}

// Snapshot is the persisted engine state.
type Snapshot struct {
	CurrentState         string               `json:"current_state"`
	RiskHistory          []HistoryPoint       `json:"risk_history"`
	LastAlertTime        map[string]time.Time `json:"last_alert_time"`
	AlertCount           int64                `json:"alert_count"`
	LocationHistoryCount int64                `json:"location_history_count"`
	LastRiskScore        float64              `json:"last_risk_score"`
}

// Default returns the initial engine state: safe, empty histories.
func Default() *Snapshot {
	return &Snapshot{
		CurrentState:  "safe",
		LastAlertTime: make(map[string]time.Time),
	}
}

// Validate checks structural sanity. A failing snapshot is discarded in
// favor of the default, never repaired in place.
func (s *Snapshot) Validate() error {
	if !knownStates[s.CurrentState] {
		return fmt.Errorf("unknown state %q", s.CurrentState)
	}
	if s.AlertCount < 0 {
		return fmt.Errorf("negative alert count %d", s.AlertCount)
	}
	if s.LocationHistoryCount < 0 {
		return fmt.Errorf("negative location history count %d", s.LocationHistoryCount)
	}
	for _, p := range s.RiskHistory {
		if p.Score < 0 || p.Score > 1 {
			return fmt.Errorf("history score %f outside [0,1]", p.Score)
		}
	}
	return nil
}

// normalize fills fields that may be missing from older documents.
func (s *Snapshot) normalize() {
	if s.CurrentState == "" {
		s.CurrentState = "safe"
	}
	if s.LastAlertTime == nil {
		s.LastAlertTime = make(map[string]time.Time)
	}
}

// Store persists and restores engine snapshots.
//
// Save failures must be recoverable: implementations log and return the
// error, and the caller treats in-memory state as authoritative. Load never
// fails hard — absent or unreadable snapshots yield Default().
type Store interface {
	Save(ctx context.Context, s *Snapshot) error
	Load(ctx context.Context) (*Snapshot, error)
}
