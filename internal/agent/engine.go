package agent

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/choksi2212/sitara/internal/idgen"
	"github.com/choksi2212/sitara/internal/logging"
	"github.com/choksi2212/sitara/internal/metrics"
	"github.com/choksi2212/sitara/internal/snapshot"
	"github.com/choksi2212/sitara/internal/syncutil"
)

// Engine is the process-wide risk decision engine. It owns the FSM state,
// the bounded history buffers, and the cooldown bookkeeping. All of it is
// guarded by a single context-aware mutex: one observation runs the full
// read-modify-write cycle (transition, velocity, gate, persist) exclusively,
// so concurrent callers can never interleave inside it.
type Engine struct {
	cfg    Config
	logger *slog.Logger
	store  snapshot.Store
	mu     *syncutil.ContextMutex
	sinks  []Sink

	// Guarded by mu.
	state         State
	history       *sampleRing
	lastScore     float64
	velocity      float64
	lastAlertTime map[Action]time.Time
	alertCount    int64
	locations     []Location
	locationCount int64
}

// New creates an engine, restoring prior state from the snapshot store.
// A missing or unreadable snapshot yields the default state (safe, empty
// histories); restore problems are never fatal.
func New(ctx context.Context, cfg Config, store snapshot.Store, logger *slog.Logger) (*Engine, error) {
	if store == nil {
		store = snapshot.NewMemoryStore()
	}
	if logger == nil {
		logger = slog.Default()
	}
	cfg = cfg.withDefaults()

	e := &Engine{
		cfg:           cfg,
		logger:        logger,
		store:         store,
		mu:            syncutil.NewContextMutex(),
		history:       newSampleRing(cfg.HistoryWindow),
		state:         StateSafe,
		lastAlertTime: make(map[Action]time.Time),
	}

	snap, err := store.Load(ctx)
	if err != nil {
		// Stores recover corruption themselves; an error here is unexpected
		// but still not fatal.
		logger.Warn("snapshot load failed, starting from defaults", "error", err)
		snap = snapshot.Default()
	}
	e.restore(snap)

	logger.Info("risk engine initialized",
		"state", e.state,
		"history_len", e.history.Len(),
		"alert_count", e.alertCount,
	)
	return e, nil
}

// WithSinks attaches decision sinks (alert stream, decision log, status
// mirror). Must be called before the engine starts serving observations.
func (e *Engine) WithSinks(sinks ...Sink) *Engine {
	e.sinks = append(e.sinks, sinks...)
	return e
}

// Observe runs one observation through the engine and returns the decision.
//
// The only error return is lock acquisition failing because ctx was
// cancelled; in that case no state was touched and no lock is held. Once the
// critical section is entered the caller always gets a decision — input
// problems are corrected in place and persistence failures are swallowed.
func (e *Engine) Observe(ctx context.Context, obs Observation) (*Decision, error) {
	d, err := e.observeCritical(ctx, obs)
	if err != nil {
		return nil, err
	}

	// Sinks run outside the critical section on a committed copy.
	for _, s := range e.sinks {
		s.OnDecision(d)
	}
	return d, nil
}

// observeCritical runs the decision cycle under the engine lock. The unlock
// is deferred so a panic mid-cycle cannot strand the lock and deadlock every
// later observation.
func (e *Engine) observeCritical(ctx context.Context, obs Observation) (*Decision, error) {
	unlock, err := e.mu.Lock(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire engine lock: %w", err)
	}
	defer unlock()

	timer := prometheus.NewTimer(metrics.ObserveDuration)
	defer timer.ObserveDuration()

	return e.observeLocked(ctx, obs), nil
}

// log returns the engine logger, tagged with the caller's request ID when
// one is present in the context.
func (e *Engine) log(ctx context.Context) *slog.Logger {
	if id := logging.RequestID(ctx); id != "" {
		return e.logger.With("request_id", id)
	}
	return e.logger
}

// observeLocked is the full decision cycle. Caller holds the lock.
func (e *Engine) observeLocked(ctx context.Context, obs Observation) *Decision {
	log := e.log(ctx)

	ts := obs.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	score := obs.RiskScore
	if score < 0 || score > 1 {
		log.Warn("risk score outside [0,1], clamping",
			"score", obs.RiskScore,
			"level", obs.RiskLevel,
		)
		score = clamp01(score)
	}

	if obs.Location == (Location{}) {
		log.Debug("observation carries a zero location")
	}

	prev := e.state
	next := e.cfg.nextState(prev, score)
	if next != prev {
		log.Info("state transition", "from", prev, "to", next, "score", score)
		metrics.StateTransitionsTotal.WithLabelValues(string(prev), string(next)).Inc()
	}

	e.history.Append(Sample{Timestamp: ts, Score: score})
	velocity := riskVelocity(e.history.Tail(e.cfg.VelocitySample), e.cfg.Epsilon)

	action, priority := actionFor(next)
	message := e.cfg.message(next, velocity)

	var alert *Alert
	if next != StateSafe {
		if e.cfg.shouldEmit(next, prev, e.lastAlertTime[action], ts) {
			alert = &Alert{
				ID:        idgen.WithPrefix("alert_"),
				Type:      action,
				Priority:  priority,
				Message:   message,
				RiskScore: score,
				Location:  obs.Location,
				Timestamp: ts,
			}
			e.lastAlertTime[action] = ts
			e.alertCount++
			metrics.AlertsEmittedTotal.WithLabelValues(string(action)).Inc()
			log.Info("alert emitted", "type", action, "priority", priority, "score", score)
		} else {
			metrics.AlertsSuppressedTotal.WithLabelValues(string(action)).Inc()
			log.Debug("alert suppressed by cooldown", "type", action, "score", score)
		}
	}

	e.state = next
	e.lastScore = score
	e.velocity = velocity
	e.locations = append(e.locations, obs.Location)
	if len(e.locations) > e.cfg.LocationWindow {
		e.locations = e.locations[len(e.locations)-e.cfg.LocationWindow:]
	}
	e.locationCount++

	metrics.DecisionsTotal.WithLabelValues(string(next)).Inc()
	metrics.RiskScore.Set(score)
	metrics.RiskVelocity.Set(velocity)

	e.saveLocked(ctx)

	return &Decision{
		State:        next,
		Action:       action,
		Priority:     priority,
		RiskScore:    score,
		RiskVelocity: velocity,
		Message:      message,
		Alert:        alert,
		Location:     obs.Location,
		Timestamp:    ts,
	}
}

// nextState applies the hysteresis transition rules. Escalation follows the
// upgrade thresholds and may skip tiers; de-escalation moves exactly one
// tier when the current state's downgrade threshold is crossed.
func (c Config) nextState(current State, score float64) State {
	implied := StateSafe
	switch {
	case score >= c.UpgradeHigh:
		implied = StateHighRisk
	case score >= c.UpgradeElevated:
		implied = StateElevatedRisk
	case score >= c.UpgradeCaution:
		implied = StateCaution
	}
	if implied.Severity() > current.Severity() {
		return implied
	}

	switch current {
	case StateHighRisk:
		if score < c.DowngradeHigh {
			return StateElevatedRisk
		}
	case StateElevatedRisk:
		if score < c.DowngradeElevated {
			return StateCaution
		}
	case StateCaution:
		if score < c.DowngradeCaution {
			return StateSafe
		}
	}
	return current
}

// Status returns the read-only state summary.
func (e *Engine) Status() Status {
	unlock, _ := e.mu.Lock(context.Background())
	defer unlock()

	return Status{
		CurrentState:         e.state,
		RiskScore:            e.lastScore,
		RiskVelocity:         e.velocity,
		AlertCount:           e.alertCount,
		LocationHistoryCount: e.locationCount,
	}
}

// Reset restores the engine to defaults and persists immediately. Used for
// testing, demos, and operator-triggered recovery.
func (e *Engine) Reset(ctx context.Context) error {
	unlock, err := e.mu.Lock(ctx)
	if err != nil {
		return fmt.Errorf("acquire engine lock: %w", err)
	}
	defer unlock()

	e.state = StateSafe
	e.history = newSampleRing(e.cfg.HistoryWindow)
	e.lastScore = 0
	e.velocity = 0
	e.lastAlertTime = make(map[Action]time.Time)
	e.alertCount = 0
	e.locations = nil
	e.locationCount = 0

	if err := e.store.Save(ctx, e.toSnapshot()); err != nil {
		return fmt.Errorf("persist reset state: %w", err)
	}
	e.logger.Info("engine reset to defaults")
	return nil
}

// saveLocked persists the current state. Failures are logged and swallowed;
// the in-memory state stays authoritative for this process lifetime.
func (e *Engine) saveLocked(ctx context.Context) {
	if err := e.store.Save(ctx, e.toSnapshot()); err != nil {
		metrics.SnapshotSavesTotal.WithLabelValues("error").Inc()
		e.log(ctx).Error("snapshot save failed, continuing on in-memory state", "error", err)
		return
	}
	metrics.SnapshotSavesTotal.WithLabelValues("ok").Inc()
}

// toSnapshot converts in-memory state to the persisted document form.
// Caller holds the lock.
func (e *Engine) toSnapshot() *snapshot.Snapshot {
	samples := e.history.Snapshot()
	hist := make([]snapshot.HistoryPoint, len(samples))
	for i, s := range samples {
		hist[i] = snapshot.HistoryPoint{Timestamp: s.Timestamp, Score: s.Score}
	}

	last := make(map[string]time.Time, len(e.lastAlertTime))
	for a, t := range e.lastAlertTime {
		last[string(a)] = t
	}

	return &snapshot.Snapshot{
		CurrentState:         string(e.state),
		RiskHistory:          hist,
		LastAlertTime:        last,
		AlertCount:           e.alertCount,
		LocationHistoryCount: e.locationCount,
		LastRiskScore:        e.lastScore,
	}
}

// restore loads persisted state into the engine. Called once from New,
// before the engine is shared.
func (e *Engine) restore(snap *snapshot.Snapshot) {
	if s := State(snap.CurrentState); s.Valid() {
		e.state = s
	}

	samples := make([]Sample, len(snap.RiskHistory))
	for i, p := range snap.RiskHistory {
		samples[i] = Sample{Timestamp: p.Timestamp, Score: p.Score}
	}
	e.history.Restore(samples)

	for name, t := range snap.LastAlertTime {
		e.lastAlertTime[Action(name)] = t
	}
	e.alertCount = snap.AlertCount
	e.locationCount = snap.LocationHistoryCount
	e.lastScore = snap.LastRiskScore
	e.velocity = riskVelocity(e.history.Tail(e.cfg.VelocitySample), e.cfg.Epsilon)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
