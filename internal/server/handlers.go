package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/choksi2212/sitara/internal/agent"
	"github.com/choksi2212/sitara/internal/logging"
	"github.com/choksi2212/sitara/internal/realtime"
	"github.com/choksi2212/sitara/internal/scorer"
	"github.com/choksi2212/sitara/internal/traces"
	"github.com/choksi2212/sitara/internal/validation"
)

// LocationInput is the location block of an assessment request.
type LocationInput struct {
	Latitude  *float64 `json:"latitude" binding:"required"`
	Longitude *float64 `json:"longitude" binding:"required"`
	Timestamp string   `json:"timestamp"` // RFC 3339, defaults to server time
}

// ContextFeatures carries optional scene context. Missing fields fall back
// to the scorer defaults.
type ContextFeatures struct {
	Hour                  *int     `json:"hour"`
	DayOfWeek             *int     `json:"day_of_week"`
	RoadType              string   `json:"road_type"`
	POIDensity            *float64 `json:"poi_density"`
	PoliceStationDistance *float64 `json:"police_station_distance"`
	HospitalDistance      *float64 `json:"hospital_distance"`
	IntersectionCount     *int     `json:"intersection_count"`
	DeadEndNearby         *int     `json:"dead_end_nearby"`
	LightingScore         *float64 `json:"lighting_score"`
	CrowdDensity          *float64 `json:"crowd_density"`
}

// AssessRiskRequest is the body of POST /api/assess-risk.
type AssessRiskRequest struct {
	Location LocationInput    `json:"location" binding:"required"`
	Context  *ContextFeatures `json:"context"`
}

// AssessRiskResponse pairs the scorer output with the engine decision.
type AssessRiskResponse struct {
	RiskScore     float64         `json:"risk_score"`
	RiskLevel     string          `json:"risk_level"`
	AgentDecision *agent.Decision `json:"agent_decision"`
	Timestamp     string          `json:"timestamp"`
	Location      agent.Location  `json:"location"`
}

func (s *Server) infoHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"name":        "SITARA API",
		"description": "Agentic Situational Risk Intelligence Platform",
		"version":     "1.0.0",
		"status":      "online",
	})
}

// assessRiskHandler scores the submitted location context and runs the
// result through the decision engine.
func (s *Server) assessRiskHandler(c *gin.Context) {
	ctx, span := traces.StartSpan(c.Request.Context(), "assess_risk")
	defer span.End()

	var req AssessRiskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Invalid request body: location.latitude and location.longitude are required",
		})
		return
	}

	validators := []func() *validation.ValidationError{
		validation.ValidLatitude("location.latitude", *req.Location.Latitude),
		validation.ValidLongitude("location.longitude", *req.Location.Longitude),
	}
	validators = append(validators, s.contextValidators(req.Context)...)
	if errs := validation.Validate(validators...); len(errs) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_failed",
			"message": errs.Error(),
			"details": errs,
		})
		return
	}

	at := time.Now().UTC()
	if req.Location.Timestamp != "" {
		if parsed, err := time.Parse(time.RFC3339, req.Location.Timestamp); err == nil {
			at = parsed.UTC()
		} else {
			logging.L(ctx).Warn("unparseable observation timestamp, using server time",
				"timestamp", req.Location.Timestamp,
			)
		}
	}

	score, level := s.riskScorer.Score(s.scorerInput(req.Context, at))
	span.SetAttributes(traces.RiskScore(score), traces.RiskLevel(level))

	decision, err := s.engine.Observe(ctx, agent.Observation{
		Location: agent.Location{
			Latitude:  *req.Location.Latitude,
			Longitude: *req.Location.Longitude,
		},
		Timestamp: at,
		RiskScore: score,
		RiskLevel: level,
	})
	if err != nil {
		// Lock acquisition lost to client cancellation; nothing was decided.
		logging.L(ctx).Warn("observation abandoned", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":   "observation_cancelled",
			"message": "Assessment was cancelled before the engine processed it",
		})
		return
	}

	span.SetAttributes(traces.RiskState(string(decision.State)))
	if decision.Alert != nil {
		span.SetAttributes(traces.AlertID(decision.Alert.ID), traces.AlertType(string(decision.Alert.Type)))
	}

	c.JSON(http.StatusOK, AssessRiskResponse{
		RiskScore:     score,
		RiskLevel:     level,
		AgentDecision: decision,
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Location:      decision.Location,
	})
}

// contextValidators builds the optional-field validators for a context block.
func (s *Server) contextValidators(fc *ContextFeatures) []func() *validation.ValidationError {
	if fc == nil {
		return nil
	}
	return []func() *validation.ValidationError{
		validation.ValidHour("context.hour", fc.Hour),
		validation.ValidDayOfWeek("context.day_of_week", fc.DayOfWeek),
		validation.ValidRoadType("context.road_type", fc.RoadType),
		validation.ValidUnitInterval("context.lighting_score", fc.LightingScore),
		validation.NonNegative("context.poi_density", fc.POIDensity),
		validation.NonNegative("context.police_station_distance", fc.PoliceStationDistance),
		validation.NonNegative("context.hospital_distance", fc.HospitalDistance),
		validation.NonNegative("context.crowd_density", fc.CrowdDensity),
	}
}

// scorerInput merges the request context over the scorer defaults. Hour and
// day of week fall back to the observation time.
func (s *Server) scorerInput(fc *ContextFeatures, at time.Time) scorer.Input {
	in := scorer.Defaults()
	in.Hour = at.Hour()
	in.DayOfWeek = (int(at.Weekday()) + 6) % 7 // Monday = 0

	if fc == nil {
		return in
	}
	if fc.Hour != nil {
		in.Hour = *fc.Hour
	}
	if fc.DayOfWeek != nil {
		in.DayOfWeek = *fc.DayOfWeek
	}
	if fc.RoadType != "" {
		in.RoadType = strings.ToLower(fc.RoadType)
	}
	if fc.POIDensity != nil {
		in.POIDensity = *fc.POIDensity
	}
	if fc.PoliceStationDistance != nil {
		in.PoliceDistanceM = *fc.PoliceStationDistance
	}
	if fc.HospitalDistance != nil {
		in.HospitalDistanceM = *fc.HospitalDistance
	}
	if fc.IntersectionCount != nil {
		in.IntersectionCount = *fc.IntersectionCount
	}
	if fc.DeadEndNearby != nil {
		in.DeadEndNearby = *fc.DeadEndNearby != 0
	}
	if fc.LightingScore != nil {
		in.LightingScore = *fc.LightingScore
	}
	if fc.CrowdDensity != nil {
		in.CrowdDensity = *fc.CrowdDensity
	}
	return in
}

// agentStateHandler returns the engine's read-only status summary.
func (s *Server) agentStateHandler(c *gin.Context) {
	status := s.engine.Status()
	c.JSON(http.StatusOK, gin.H{
		"current_state":          status.CurrentState,
		"risk_score":             status.RiskScore,
		"risk_velocity":          status.RiskVelocity,
		"alert_count":            status.AlertCount,
		"location_history_count": status.LocationHistoryCount,
	})
}

// agentResetHandler restores the engine to defaults and persists immediately.
func (s *Server) agentResetHandler(c *gin.Context) {
	ctx := c.Request.Context()

	if err := s.engine.Reset(ctx); err != nil {
		logging.L(ctx).Error("engine reset failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "reset_failed",
			"message": "Failed to reset agent state",
		})
		return
	}

	s.realtimeHub.Broadcast(&realtime.Event{
		Type:      realtime.EventReset,
		Timestamp: time.Now(),
		Data:      gin.H{"message": "agent state reset"},
	})
	c.JSON(http.StatusOK, gin.H{
		"status":  "reset",
		"message": "Agent state restored to defaults",
	})
}

// recentDecisionsHandler returns the latest decision log records.
func (s *Server) recentDecisionsHandler(c *gin.Context) {
	ctx := c.Request.Context()

	limit := 50
	records, err := s.decisionStore.ListRecent(ctx, limit)
	if err != nil {
		logging.L(ctx).Error("decision log read failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Failed to read decision log",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"decisions": records,
		"count":     len(records),
	})
}

// -----------------------------------------------------------------------------
// Health handlers
// -----------------------------------------------------------------------------

// HealthResponse for health check endpoints
type HealthResponse struct {
	Status    string                 `json:"status"`
	Version   string                 `json:"version"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
	Timestamp string                 `json:"timestamp"`
}

// CheckResult is one backend probe in the health response.
type CheckResult struct {
	Status    string `json:"status"`
	LatencyMS int64  `json:"latency_ms"`
	Detail    string `json:"detail,omitempty"`
}

func (s *Server) healthHandler(c *gin.Context) {
	// Per-probe timeouts are enforced by the registry.
	healthy, statuses := s.healthReg.CheckAll(c.Request.Context())

	checks := make(map[string]CheckResult, len(statuses))
	for _, st := range statuses {
		res := CheckResult{Status: "healthy", LatencyMS: st.Latency.Milliseconds()}
		if !st.Healthy {
			res.Status = "unhealthy"
			res.Detail = st.Detail
		}
		checks[st.Name] = res
	}

	status := "healthy"
	httpStatus := http.StatusOK
	if !healthy {
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
	}

	c.JSON(httpStatus, HealthResponse{
		Status:    status,
		Version:   "1.0.0",
		Checks:    checks,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) livenessHandler(c *gin.Context) {
	if !s.healthy.Load() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "alive"})
}

func (s *Server) readinessHandler(c *gin.Context) {
	if !s.ready.Load() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
