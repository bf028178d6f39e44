package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/splax/heatlens/internal/domain"
)

const defaultStreamInterval = time.Minute

// Broadcaster delivers payloads to the subscribers of a site.
type Broadcaster interface {
	Broadcast(siteID string, payload []byte)
	Topics() []string
}

// InsightSource produces insight reports; *Service satisfies it.
type InsightSource interface {
	Insights(ctx context.Context, siteID string, days int) (domain.InsightReport, error)
}

// StreamEvent is the payload pushed to live insight subscribers.
type StreamEvent struct {
	Type   string               `json:"type"`
	Report domain.InsightReport `json:"report"`
}

// Watcher periodically regenerates insight reports for every subscribed site and
// broadcasts them.
type Watcher struct {
	source   InsightSource
	hub      Broadcaster
	logger   *slog.Logger
	interval time.Duration
	days     int
}

// NewWatcher builds a Watcher. A non-positive interval falls back to one minute.
func NewWatcher(source InsightSource, hub Broadcaster, logger *slog.Logger, interval time.Duration, days int) *Watcher {
	if interval <= 0 {
		interval = defaultStreamInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		source:   source,
		hub:      hub,
		logger:   logger.With("component", "insight-watcher"),
		interval: interval,
		days:     days,
	}
}

// Run publishes on every tick until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *Watcher) tick(ctx context.Context) {
	for _, siteID := range w.hub.Topics() {
		if err := w.Publish(ctx, siteID); err != nil {
			w.logger.Warn("insight publish failed", "site_id", siteID, "error", err)
		}
	}
}

// Publish regenerates the report for siteID and broadcasts it to its subscribers.
func (w *Watcher) Publish(ctx context.Context, siteID string) error {
	payload, err := w.Payload(ctx, siteID)
	if err != nil {
		return err
	}
	w.hub.Broadcast(siteID, payload)
	return nil
}

// Payload renders the current report for siteID as a stream event.
func (w *Watcher) Payload(ctx context.Context, siteID string) ([]byte, error) {
	report, err := w.source.Insights(ctx, siteID, w.days)
	if err != nil {
		return nil, fmt.Errorf("generate insights: %w", err)
	}
	payload, err := json.Marshal(StreamEvent{Type: "insights", Report: report})
	if err != nil {
		return nil, fmt.Errorf("encode insights: %w", err)
	}
	return payload, nil
}
