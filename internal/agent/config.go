package agent

import "time"

// Default thresholds and windows. Upgrade thresholds sit above their
// downgrade counterparts so scores hovering near a boundary cannot flap the
// state machine.
const (
	DefaultUpgradeCaution  = 0.33
	DefaultUpgradeElevated = 0.66
	DefaultUpgradeHigh     = 0.85

	DefaultDowngradeHigh     = 0.80 // high_risk -> elevated_risk below this
	DefaultDowngradeElevated = 0.60 // elevated_risk -> caution below this
	DefaultDowngradeCaution  = 0.28 // caution -> safe below this

	DefaultHistoryWindow  = 20
	DefaultVelocitySample = 5
	DefaultLocationWindow = 100

	DefaultRapidRiseVelocity = 0.2 // score per minute

	DefaultCooldownSilentCheckin       = 120 * time.Second
	DefaultCooldownSuggestRoute        = 90 * time.Second
	DefaultCooldownRecommendEscalation = 30 * time.Second

	// DefaultEpsilon floors the elapsed time between history samples so
	// duplicate or non-monotonic timestamps never divide by zero.
	DefaultEpsilon = time.Second
)

// Config holds all engine tunables. Zero values are replaced with the
// documented defaults by withDefaults, so a zero Config is usable.
type Config struct {
	// Upgrade thresholds (score rising). Escalation applies immediately and
	// may skip tiers.
	UpgradeCaution  float64
	UpgradeElevated float64
	UpgradeHigh     float64

	// Downgrade thresholds (score falling). De-escalation moves one tier
	// per observation.
	DowngradeHigh     float64
	DowngradeElevated float64
	DowngradeCaution  float64

	// HistoryWindow is the max number of (timestamp, score) samples kept
	// for velocity estimation (W).
	HistoryWindow int

	// VelocitySample is how many recent samples feed the regression (K <= W).
	VelocitySample int

	// LocationWindow bounds the retained location diagnostic history.
	LocationWindow int

	// RapidRiseVelocity is the per-minute velocity above which messages
	// flag a rapidly rising risk.
	RapidRiseVelocity float64

	// Per-action cooldowns. The monitor action never alerts and has none.
	CooldownSilentCheckin       time.Duration
	CooldownSuggestRoute        time.Duration
	CooldownRecommendEscalation time.Duration

	// Epsilon floors elapsed time in velocity math.
	Epsilon time.Duration
}

// DefaultConfig returns the engine defaults.
func DefaultConfig() Config {
	return Config{}.withDefaults()
}

func (c Config) withDefaults() Config {
	if c.UpgradeCaution == 0 {
		c.UpgradeCaution = DefaultUpgradeCaution
	}
	if c.UpgradeElevated == 0 {
		c.UpgradeElevated = DefaultUpgradeElevated
	}
	if c.UpgradeHigh == 0 {
		c.UpgradeHigh = DefaultUpgradeHigh
	}
	if c.DowngradeHigh == 0 {
		c.DowngradeHigh = DefaultDowngradeHigh
	}
	if c.DowngradeElevated == 0 {
		c.DowngradeElevated = DefaultDowngradeElevated
	}
	if c.DowngradeCaution == 0 {
		c.DowngradeCaution = DefaultDowngradeCaution
	}
	if c.HistoryWindow <= 0 {
		c.HistoryWindow = DefaultHistoryWindow
	}
	if c.VelocitySample <= 0 {
		c.VelocitySample = DefaultVelocitySample
	}
	if c.VelocitySample > c.HistoryWindow {
		c.VelocitySample = c.HistoryWindow
	}
	if c.LocationWindow <= 0 {
		c.LocationWindow = DefaultLocationWindow
	}
	if c.RapidRiseVelocity == 0 {
		c.RapidRiseVelocity = DefaultRapidRiseVelocity
	}
	if c.CooldownSilentCheckin == 0 {
		c.CooldownSilentCheckin = DefaultCooldownSilentCheckin
	}
	if c.CooldownSuggestRoute == 0 {
		c.CooldownSuggestRoute = DefaultCooldownSuggestRoute
	}
	if c.CooldownRecommendEscalation == 0 {
		c.CooldownRecommendEscalation = DefaultCooldownRecommendEscalation
	}
	if c.Epsilon <= 0 {
		c.Epsilon = DefaultEpsilon
	}
	return c
}

// cooldown returns the anti-spam window for an action. Zero means the action
// is never rate limited (and never alerts).
func (c Config) cooldown(a Action) time.Duration {
	switch a {
	case ActionSilentCheckin:
		return c.CooldownSilentCheckin
	case ActionSuggestRoute:
		return c.CooldownSuggestRoute
	case ActionRecommendEscalation:
		return c.CooldownRecommendEscalation
	default:
		return 0
	}
}
