// Package decisionlog records engine decisions for analytics.
//
// The log is a best-effort audit sink: writes happen off the decision path
// and a failing or absent backing store never affects the decisions
// themselves.
package decisionlog

import (
	"context"
	"log/slog"
	"time"

	"github.com/choksi2212/sitara/internal/agent"
	"github.com/choksi2212/sitara/internal/idgen"
	"github.com/choksi2212/sitara/internal/retry"
)

// Record is one logged decision.
type Record struct {
	ID           string    `json:"id"`
	State        string    `json:"state"`
	Action       string    `json:"action"`
	Priority     int       `json:"priority"`
	RiskScore    float64   `json:"riskScore"`
	RiskVelocity float64   `json:"riskVelocity"`
	Alerted      bool      `json:"alerted"`
	Message      string    `json:"message"`
	Latitude     float64   `json:"latitude"`
	Longitude    float64   `json:"longitude"`
	ObservedAt   time.Time `json:"observedAt"`
}

// Store persists decision records.
type Store interface {
	Record(ctx context.Context, r *Record) error
	ListRecent(ctx context.Context, limit int) ([]*Record, error)
}

// Sink adapts a Store to the engine's decision stream. Writes are
// asynchronous and best-effort.
type Sink struct {
	store  Store
	logger *slog.Logger
}

// NewSink creates a decision-log sink backed by the given store.
func NewSink(store Store, logger *slog.Logger) *Sink {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sink{store: store, logger: logger}
}

// OnDecision records the decision without blocking the caller.
func (s *Sink) OnDecision(d *agent.Decision) {
	rec := &Record{
		ID:           idgen.WithPrefix("dec_"),
		State:        string(d.State),
		Action:       string(d.Action),
		Priority:     d.Priority,
		RiskScore:    d.RiskScore,
		RiskVelocity: d.RiskVelocity,
		Alerted:      d.Alert != nil,
		Message:      d.Message,
		Latitude:     d.Location.Latitude,
		Longitude:    d.Location.Longitude,
		ObservedAt:   d.Timestamp,
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		err := retry.Do(ctx, 3, 200*time.Millisecond, func() error {
			return s.store.Record(ctx, rec)
		})
		if err != nil {
			s.logger.Warn("decision log write failed", "error", err, "id", rec.ID)
		}
	}()
}
