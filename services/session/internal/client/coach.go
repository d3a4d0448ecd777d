package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/akulebyakin/sdc-cloud-sports-coaching/pkg/httpclient"
)

// RatingNotification carries a recomputed coach reputation to the coach
// service.
type RatingNotification struct {
	CoachID       int64   `json:"coach_id"`
	Rating        float64 `json:"rating"`
	TotalSessions int     `json:"total_sessions"`
}

// CoachClient calls the coach service's reputation endpoint through a circuit
// breaker. A 2xx response means the notification was applied (or deliberately
// ignored as stale); anything else is a transport failure for the caller to
// log.
type CoachClient struct {
	http    *httpclient.CircuitBreakerClient
	baseURL string
	timeout time.Duration
	logger  *slog.Logger
}

// NewCoachClient creates a client for the coach service.
func NewCoachClient(cbClient *httpclient.CircuitBreakerClient, baseURL string, timeout time.Duration, logger *slog.Logger) *CoachClient {
	return &CoachClient{
		http:    cbClient,
		baseURL: baseURL,
		timeout: timeout,
		logger:  logger,
	}
}

// Notify posts the recomputed average and session count to the coach service.
func (c *CoachClient) Notify(ctx context.Context, n RatingNotification) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal rating notification: %w", err)
	}

	url := c.baseURL + "/api/v1/coaches/rating"
	resp, err := c.http.Post(ctx, url, "application/json", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("notify coach %d: %w", n.CoachID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if err := httpclient.ParseResponseError(resp, "coach-service"); err != nil {
			return fmt.Errorf("notify coach %d: %w", n.CoachID, err)
		}
		return fmt.Errorf("notify coach %d: unexpected status %d", n.CoachID, resp.StatusCode)
	}

	c.logger.DebugContext(ctx, "coach reputation notification delivered",
		slog.Int64("coach_id", n.CoachID),
		slog.Float64("rating", n.Rating),
		slog.Int("total_sessions", n.TotalSessions),
	)

	return nil
}
