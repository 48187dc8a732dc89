// Package statuscache mirrors the latest engine status into Redis.
//
// The mirror is a read-only diagnostic for dashboards and companion
// processes. The engine's in-process state stays authoritative; hysteresis
// and cooldown decisions are never read back from here.
package statuscache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/choksi2212/sitara/internal/agent"
	"github.com/choksi2212/sitara/internal/retry"
)

const (
	statusKey    = "sitara:agent:status"
	alertChannel = "sitara:alerts"
	statusTTL    = 5 * time.Minute
	writeTimeout = 2 * time.Second
)

// Mirror writes engine status to Redis after each committed decision.
type Mirror struct {
	client *redis.Client
	logger *slog.Logger
}

// New connects to Redis and returns the status mirror.
func New(ctx context.Context, redisURL string, logger *slog.Logger) (*Mirror, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	opts.PoolSize = 10
	opts.MinIdleConns = 2

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	if logger == nil {
		logger = slog.Default()
	}
	return &Mirror{client: client, logger: logger}, nil
}

func (m *Mirror) Close() error {
	return m.client.Close()
}

func (m *Mirror) Ping(ctx context.Context) error {
	return m.client.Ping(ctx).Err()
}

// OnDecision mirrors the decision asynchronously. Failures are logged and
// dropped; the mirror is best-effort.
func (m *Mirror) OnDecision(d *agent.Decision) {
	status := map[string]interface{}{
		"state":         string(d.State),
		"action":        string(d.Action),
		"priority":      d.Priority,
		"risk_score":    d.RiskScore,
		"risk_velocity": d.RiskVelocity,
		"alerted":       d.Alert != nil,
		"lat":           d.Location.Latitude,
		"lng":           d.Location.Longitude,
		"observed_at":   d.Timestamp.Unix(),
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		defer cancel()

		err := retry.Do(ctx, 2, 50*time.Millisecond, func() error {
			pipe := m.client.Pipeline()
			pipe.HSet(ctx, statusKey, status)
			pipe.Expire(ctx, statusKey, statusTTL)

			if d.Alert != nil {
				payload, merr := json.Marshal(d.Alert)
				if merr == nil {
					pipe.Publish(ctx, alertChannel, payload)
				}
			}

			_, execErr := pipe.Exec(ctx)
			return execErr
		})
		if err != nil {
			m.logger.Warn("status mirror write failed", "error", err)
		}
	}()
}
