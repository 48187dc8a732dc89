package realtime

import (
	"time"

	"github.com/choksi2212/sitara/internal/agent"
)

// Sink bridges the engine's decision stream onto the hub.
type Sink struct {
	hub *Hub
}

// NewSink wraps a hub as an engine decision sink.
func NewSink(hub *Hub) *Sink {
	return &Sink{hub: hub}
}

// OnDecision broadcasts the decision, and the alert separately when one was
// emitted so alert-only subscribers see it.
func (s *Sink) OnDecision(d *agent.Decision) {
	s.hub.Broadcast(&Event{
		Type:      EventDecision,
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"state":        string(d.State),
			"action":       string(d.Action),
			"priority":     d.Priority,
			"riskScore":    d.RiskScore,
			"riskVelocity": d.RiskVelocity,
			"message":      d.Message,
			"alerted":      d.Alert != nil,
			"latitude":     d.Location.Latitude,
			"longitude":    d.Location.Longitude,
			"observedAt":   d.Timestamp,
		},
	})

	if d.Alert != nil {
		s.hub.Broadcast(&Event{
			Type:      EventAlert,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"id":        d.Alert.ID,
				"alertType": string(d.Alert.Type),
				"priority":  d.Alert.Priority,
				"message":   d.Alert.Message,
				"riskScore": d.Alert.RiskScore,
				"latitude":  d.Alert.Location.Latitude,
				"longitude": d.Alert.Location.Longitude,
			},
		})
	}
}
