// Package scorer produces a situational risk score from location context.
//
// The production model lives behind the Scorer interface. Heuristic is a
// deterministic stand-in that weights the same features the trained model
// consumes, so the rest of the service runs end to end without model files.
package scorer

import "math"

// Risk level bands over the score range.
const (
	LevelLow    = "low"
	LevelMedium = "medium"
	LevelHigh   = "high"
)

// Input is the feature context for one assessment. Use Defaults() and
// override the fields the caller actually knows.
type Input struct {
	Hour              int     // 0-23, local time of the observation
	DayOfWeek         int     // 0 = Monday .. 6 = Sunday
	RoadType          string  // footpath, highway, main_road, residential
	POIDensity        float64 // points of interest nearby
	PoliceDistanceM   float64 // metres to nearest police station
	HospitalDistanceM float64 // metres to nearest hospital
	IntersectionCount int
	DeadEndNearby     bool
	LightingScore     float64 // 0 (dark) .. 1 (well lit)
	CrowdDensity      float64 // estimated people nearby
}

// Defaults returns the same fallback context the assessment API assumes when
// a client sends no context block.
func Defaults() Input {
	return Input{
		RoadType:          "residential",
		POIDensity:        5.0,
		PoliceDistanceM:   1000.0,
		HospitalDistanceM: 1000.0,
		IntersectionCount: 3,
		LightingScore:     0.6,
		CrowdDensity:      10.0,
	}
}

// Scorer maps a feature context to a risk score in [0,1] and a level band.
type Scorer interface {
	Score(in Input) (score float64, level string)
}

// LevelFor bands a score: below 0.33 is low, below 0.66 medium, else high.
func LevelFor(score float64) string {
	switch {
	case score < 0.33:
		return LevelLow
	case score < 0.66:
		return LevelMedium
	default:
		return LevelHigh
	}
}

// Heuristic is a deterministic rule-based Scorer.
type Heuristic struct{}

// NewHeuristic creates the rule-based scorer.
func NewHeuristic() *Heuristic {
	return &Heuristic{}
}

// Score weights temporal and spatial features into a single risk score.
// Same input always yields the same output.
func (h *Heuristic) Score(in Input) (float64, string) {
	isNight := in.Hour >= 21 || in.Hour < 6
	isLateNight := in.Hour >= 0 && in.Hour < 6
	isEvening := in.Hour >= 17 && in.Hour < 21

	// Isolation grows as POIs and intersections thin out, worse near a
	// dead end. With default context this lands near 0.02.
	deadEnd := 0.0
	if in.DeadEndNearby {
		deadEnd = 1.0
	}
	isolation := (1 / (in.POIDensity + 1)) * (1 / (float64(in.IntersectionCount) + 1)) * (deadEnd + 0.5)

	score := 0.12

	if isNight {
		score += 0.22
	}
	if isLateNight {
		score += 0.10
	}
	if isEvening {
		score += 0.06
	}

	score += 0.60 * math.Min(isolation, 1)
	score += 0.20 * (1 - clamp01(in.LightingScore))

	if in.PoliceDistanceM > 1000 {
		score += 0.08
	}
	if isNight && in.POIDensity < 3 {
		score += 0.10
	}
	if isNight && in.PoliceDistanceM > 1000 {
		score += 0.06
	}

	switch in.RoadType {
	case "footpath":
		score += 0.12
	case "highway":
		score += 0.08
	case "main_road":
		score -= 0.04
	}

	// Crowds damp risk, saturating around 20 people.
	score -= 0.12 * math.Min(in.CrowdDensity/20, 1)

	score = clamp01(score)
	return score, LevelFor(score)
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
