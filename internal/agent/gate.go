package agent

import "time"

// actionFor maps a state to its canonical intervention and priority.
// Priorities strictly increase with severity.
func actionFor(s State) (Action, int) {
	switch s {
	case StateCaution:
		return ActionSilentCheckin, 1
	case StateElevatedRisk:
		return ActionSuggestRoute, 2
	case StateHighRisk:
		return ActionRecommendEscalation, 3
	default:
		return ActionMonitor, 0
	}
}

// shouldEmit decides whether an alert surfaces for the new state, given the
// last emission time for its action type.
//
// Rules, in order:
//   - safe never alerts and does no cooldown bookkeeping
//   - an upward transition always breaks through a stale cooldown
//   - otherwise emission is suppressed inside the action's cooldown window
func (c Config) shouldEmit(newState, prevState State, lastEmitted, at time.Time) bool {
	if newState == StateSafe {
		return false
	}
	if newState.Severity() > prevState.Severity() {
		return true
	}
	if lastEmitted.IsZero() {
		return true
	}
	action, _ := actionFor(newState)
	return at.Sub(lastEmitted) >= c.cooldown(action)
}

// message builds the guidance string for a decision. A velocity above the
// rapid-rise threshold switches to the urgent variant at equal state.
func (c Config) message(s State, velocity float64) string {
	rising := velocity > c.RapidRiseVelocity
	switch s {
	case StateCaution:
		if rising {
			return "Risk increasing rapidly. Monitoring situation closely."
		}
		return "Slight caution advised. Remain aware."
	case StateElevatedRisk:
		if rising {
			return "Risk increasing rapidly. Consider taking a safer route now."
		}
		return "Consider taking a safer route. Alternative routes available."
	case StateHighRisk:
		if rising {
			return "High risk environment and risk still rising. Take safety actions now."
		}
		return "High risk environment detected. Consider safety actions."
	default:
		return "Environment appears safe. Continue monitoring."
	}
}
