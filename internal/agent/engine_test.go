package agent

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/choksi2212/sitara/internal/logging"
	"github.com/choksi2212/sitara/internal/snapshot"
)

var t0 = time.Date(2026, 3, 14, 21, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger { return logging.Discard() }

func newTestEngine(t *testing.T, store snapshot.Store) *Engine {
	t.Helper()
	if store == nil {
		store = snapshot.NewMemoryStore()
	}
	e, err := New(context.Background(), DefaultConfig(), store, discardLogger())
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return e
}

func observeAt(t *testing.T, e *Engine, score float64, at time.Time) *Decision {
	t.Helper()
	d, err := e.Observe(context.Background(), Observation{
		Location:  Location{Latitude: 12.97, Longitude: 77.59},
		Timestamp: at,
		RiskScore: score,
	})
	if err != nil {
		t.Fatalf("observe(%f): %v", score, err)
	}
	return d
}

func TestEndToEndScenario(t *testing.T) {
	e := newTestEngine(t, nil)

	scores := []float64{0.10, 0.20, 0.35, 0.50, 0.70, 0.90}
	wantStates := []State{StateSafe, StateSafe, StateCaution, StateCaution, StateElevatedRisk, StateHighRisk}

	var lastVelocity float64
	for i, score := range scores {
		d := observeAt(t, e, score, t0.Add(time.Duration(i)*time.Minute))
		if d.State != wantStates[i] {
			t.Errorf("observation %d (score %.2f): state = %s, want %s", i, score, d.State, wantStates[i])
		}
		if i >= 1 && d.RiskVelocity <= lastVelocity {
			t.Errorf("observation %d: velocity %.4f not strictly above previous %.4f", i, d.RiskVelocity, lastVelocity)
		}
		lastVelocity = d.RiskVelocity
	}
}

func TestHysteresisNonFlap(t *testing.T) {
	e := newTestEngine(t, nil)

	// Oscillates inside the caution dead-zone: only one upward transition,
	// no downward ones, since nothing drops below the 0.28 downgrade line.
	scores := []float64{0.30, 0.34, 0.31, 0.35, 0.32}
	var states []State
	for i, score := range scores {
		d := observeAt(t, e, score, t0.Add(time.Duration(i)*10*time.Second))
		states = append(states, d.State)
	}

	upward, downward := 0, 0
	prev := StateSafe
	for _, s := range states {
		if s.Severity() > prev.Severity() {
			upward++
		}
		if s.Severity() < prev.Severity() {
			downward++
		}
		prev = s
	}

	if upward != 1 {
		t.Errorf("upward transitions = %d, want exactly 1 (states: %v)", upward, states)
	}
	if downward != 0 {
		t.Errorf("downward transitions = %d, want 0 (states: %v)", downward, states)
	}
}

func TestDeterminism(t *testing.T) {
	for i := 0; i < 3; i++ {
		e := newTestEngine(t, nil)
		observeAt(t, e, 0.70, t0)
		d := observeAt(t, e, 0.64, t0.Add(time.Minute))
		if d.State != StateElevatedRisk {
			t.Fatalf("run %d: state = %s, want elevated_risk", i, d.State)
		}
	}
}

func TestEscalationSkipsTiers(t *testing.T) {
	e := newTestEngine(t, nil)

	d := observeAt(t, e, 0.90, t0)
	if d.State != StateHighRisk {
		t.Errorf("safe + 0.90 should jump straight to high_risk, got %s", d.State)
	}
	if d.Alert == nil {
		t.Error("jump to high_risk should emit an alert")
	}
}

func TestDeescalationOneTierPerObservation(t *testing.T) {
	e := newTestEngine(t, nil)

	observeAt(t, e, 0.90, t0)
	d := observeAt(t, e, 0.05, t0.Add(time.Minute))
	if d.State != StateElevatedRisk {
		t.Errorf("high_risk + 0.05 should step down one tier to elevated_risk, got %s", d.State)
	}
	d = observeAt(t, e, 0.05, t0.Add(2*time.Minute))
	if d.State != StateCaution {
		t.Errorf("second low observation should reach caution, got %s", d.State)
	}
	d = observeAt(t, e, 0.05, t0.Add(3*time.Minute))
	if d.State != StateSafe {
		t.Errorf("third low observation should reach safe, got %s", d.State)
	}
}

func TestPriorityMonotoneWithSeverity(t *testing.T) {
	prev := -1
	for _, s := range []State{StateSafe, StateCaution, StateElevatedRisk, StateHighRisk} {
		_, p := actionFor(s)
		if p <= prev {
			t.Errorf("priority for %s = %d, not strictly above %d", s, p, prev)
		}
		prev = p
	}
}

func TestCooldownSuppression(t *testing.T) {
	e := newTestEngine(t, nil)

	d1 := observeAt(t, e, 0.70, t0)
	if d1.State != StateElevatedRisk || d1.Alert == nil {
		t.Fatalf("first elevated observation should alert, got state=%s alert=%v", d1.State, d1.Alert)
	}

	// Second elevated observation 30s later sits inside the 90s cooldown.
	d2 := observeAt(t, e, 0.70, t0.Add(30*time.Second))
	if d2.State != StateElevatedRisk {
		t.Fatalf("state = %s, want elevated_risk", d2.State)
	}
	if d2.Alert != nil {
		t.Error("second alert within cooldown should be suppressed")
	}
	if d2.Message == "" {
		t.Error("suppressed decision must still carry a message")
	}

	if got := e.Status().AlertCount; got != 1 {
		t.Errorf("alert count = %d, want 1", got)
	}

	// Past the cooldown the same state may alert again.
	d3 := observeAt(t, e, 0.70, t0.Add(2*time.Minute))
	if d3.Alert == nil {
		t.Error("alert past cooldown window should be emitted")
	}
}

func TestEscalationBypassesCooldown(t *testing.T) {
	e := newTestEngine(t, nil)

	// Arm the suggest_route cooldown.
	d := observeAt(t, e, 0.70, t0)
	if d.Alert == nil {
		t.Fatal("expected initial suggest_route alert")
	}

	// Escalation to high_risk 10s later must break through immediately.
	d = observeAt(t, e, 0.90, t0.Add(10*time.Second))
	if d.State != StateHighRisk {
		t.Fatalf("state = %s, want high_risk", d.State)
	}
	if d.Alert == nil {
		t.Fatal("escalation must bypass the active cooldown")
	}
	if d.Alert.Type != ActionRecommendEscalation {
		t.Errorf("alert type = %s, want recommend_escalation", d.Alert.Type)
	}
}

func TestReescalationBypassesSameTypeCooldown(t *testing.T) {
	e := newTestEngine(t, nil)

	observeAt(t, e, 0.90, t0) // high_risk, arms 30s escalation cooldown
	observeAt(t, e, 0.79, t0.Add(5*time.Second)) // drops to elevated_risk

	// Back to high_risk 10s after the first escalation alert: the cooldown
	// is still active but the transition is upward, so it must emit.
	d := observeAt(t, e, 0.90, t0.Add(10*time.Second))
	if d.Alert == nil {
		t.Fatal("upward re-entry into high_risk must bypass its own cooldown")
	}
}

func TestSafeNeverAlerts(t *testing.T) {
	e := newTestEngine(t, nil)

	for i := 0; i < 5; i++ {
		d := observeAt(t, e, 0.10, t0.Add(time.Duration(i)*time.Minute))
		if d.State != StateSafe {
			t.Fatalf("state = %s, want safe", d.State)
		}
		if d.Alert != nil {
			t.Fatal("safe state must never emit alerts")
		}
		if d.Action != ActionMonitor {
			t.Errorf("action = %s, want monitor", d.Action)
		}
	}
	if got := e.Status().AlertCount; got != 0 {
		t.Errorf("alert count = %d, want 0", got)
	}
}

func TestScoreClamping(t *testing.T) {
	e := newTestEngine(t, nil)

	d := observeAt(t, e, 1.4, t0)
	if d.RiskScore != 1.0 {
		t.Errorf("score 1.4 should clamp to 1.0, got %f", d.RiskScore)
	}
	if d.State != StateHighRisk {
		t.Errorf("clamped score 1.0 should escalate to high_risk, got %s", d.State)
	}

	e2 := newTestEngine(t, nil)
	d = observeAt(t, e2, -0.3, t0)
	if d.RiskScore != 0.0 {
		t.Errorf("score -0.3 should clamp to 0.0, got %f", d.RiskScore)
	}
	if d.State != StateSafe {
		t.Errorf("clamped score 0.0 should stay safe, got %s", d.State)
	}
}

func TestStatePersistsAcrossRestart(t *testing.T) {
	store := snapshot.NewMemoryStore()

	e1 := newTestEngine(t, store)
	observeAt(t, e1, 0.70, t0)
	observeAt(t, e1, 0.75, t0.Add(time.Minute))
	before := e1.Status()

	e2 := newTestEngine(t, store)
	after := e2.Status()

	if after.CurrentState != before.CurrentState {
		t.Errorf("restored state = %s, want %s", after.CurrentState, before.CurrentState)
	}
	if after.RiskScore != before.RiskScore {
		t.Errorf("restored score = %f, want %f", after.RiskScore, before.RiskScore)
	}
	if after.AlertCount != before.AlertCount {
		t.Errorf("restored alert count = %d, want %d", after.AlertCount, before.AlertCount)
	}
	if after.LocationHistoryCount != before.LocationHistoryCount {
		t.Errorf("restored location count = %d, want %d", after.LocationHistoryCount, before.LocationHistoryCount)
	}

	// Cooldown bookkeeping survives too: an elevated observation right
	// after restart is still inside the window.
	d := observeAt(t, e2, 0.70, t0.Add(90*time.Second))
	if d.Alert != nil {
		t.Error("cooldown should survive a restart")
	}
}

func TestReset(t *testing.T) {
	store := snapshot.NewMemoryStore()
	e := newTestEngine(t, store)

	observeAt(t, e, 0.90, t0)
	if e.Status().CurrentState != StateHighRisk {
		t.Fatal("setup: expected high_risk")
	}

	if err := e.Reset(context.Background()); err != nil {
		t.Fatalf("reset: %v", err)
	}

	st := e.Status()
	if st.CurrentState != StateSafe || st.AlertCount != 0 || st.LocationHistoryCount != 0 {
		t.Errorf("reset status = %+v, want defaults", st)
	}

	// Reset persists immediately: a fresh engine sees defaults.
	e2 := newTestEngine(t, store)
	if e2.Status().CurrentState != StateSafe {
		t.Error("reset state should have been persisted")
	}
}

func TestObserveCancelledContext(t *testing.T) {
	e := newTestEngine(t, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := e.Observe(ctx, Observation{RiskScore: 0.5, Timestamp: t0}); err == nil {
		t.Fatal("expected error for cancelled context")
	}

	// The lock must not be left held.
	if _, err := e.Observe(context.Background(), Observation{RiskScore: 0.5, Timestamp: t0}); err != nil {
		t.Fatalf("engine unusable after cancelled caller: %v", err)
	}
}

func TestConcurrentObservations(t *testing.T) {
	e := newTestEngine(t, nil)

	const workers, perWorker = 8, 25
	done := make(chan struct{})
	for w := 0; w < workers; w++ {
		go func(w int) {
			defer func() { done <- struct{}{} }()
			for i := 0; i < perWorker; i++ {
				_, err := e.Observe(context.Background(), Observation{
					RiskScore: 0.70,
					Timestamp: t0.Add(time.Duration(w*perWorker+i) * time.Second),
				})
				if err != nil {
					t.Error(err)
					return
				}
			}
		}(w)
	}
	for w := 0; w < workers; w++ {
		<-done
	}

	st := e.Status()
	if st.LocationHistoryCount != workers*perWorker {
		t.Errorf("observation count = %d, want %d", st.LocationHistoryCount, workers*perWorker)
	}
	// Exact alert count depends on interleaving, but the cooldown gate must
	// have suppressed the vast majority of 200 observations within ~3 minutes.
	if st.AlertCount < 1 || st.AlertCount > 10 {
		t.Errorf("alert count = %d, want a small number of cooldown-gated alerts", st.AlertCount)
	}
}

type captureSink struct {
	decisions []*Decision
}

func (c *captureSink) OnDecision(d *Decision) { c.decisions = append(c.decisions, d) }

func TestSinksReceiveCommittedDecisions(t *testing.T) {
	e := newTestEngine(t, nil)
	sink := &captureSink{}
	e.WithSinks(sink)

	observeAt(t, e, 0.40, t0)
	observeAt(t, e, 0.70, t0.Add(time.Minute))

	if len(sink.decisions) != 2 {
		t.Fatalf("sink saw %d decisions, want 2", len(sink.decisions))
	}
	if sink.decisions[1].State != StateElevatedRisk {
		t.Errorf("sink decision state = %s, want elevated_risk", sink.decisions[1].State)
	}
}

// panicOnceStore blows up on the first save and behaves afterwards.
type panicOnceStore struct {
	panicked bool
}

func (s *panicOnceStore) Load(ctx context.Context) (*snapshot.Snapshot, error) {
	return snapshot.Default(), nil
}

func (s *panicOnceStore) Save(ctx context.Context, snap *snapshot.Snapshot) error {
	if !s.panicked {
		s.panicked = true
		panic("save exploded")
	}
	return nil
}

func TestObserve_LockReleasedAfterPanic(t *testing.T) {
	e := newTestEngine(t, &panicOnceStore{})

	func() {
		defer func() {
			if recover() == nil {
				t.Fatal("expected the first observation to panic")
			}
		}()
		_, _ = e.Observe(context.Background(), Observation{Timestamp: t0, RiskScore: 0.5})
	}()

	// The lock must not be stranded: a later observation has to get through
	// well before this deadline.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := e.Observe(ctx, Observation{Timestamp: t0.Add(time.Minute), RiskScore: 0.5}); err != nil {
		t.Fatalf("engine lock not released after panic: %v", err)
	}
}

func TestObserve_ZeroLocationAccepted(t *testing.T) {
	e := newTestEngine(t, nil)

	d, err := e.Observe(context.Background(), Observation{Timestamp: t0, RiskScore: 0.4})
	if err != nil {
		t.Fatalf("observe: %v", err)
	}
	if d.Location != (Location{}) {
		t.Errorf("decision location = %+v, want zero value", d.Location)
	}
	if got := e.Status().LocationHistoryCount; got != 1 {
		t.Errorf("location history count = %d, want 1", got)
	}
}
