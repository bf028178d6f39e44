package repository

import (
	"context"
	"errors"
	"time"

	"github.com/splax/heatlens/internal/domain"
)

// ErrCacheMiss reports that a cache holds no entry for a key.
var ErrCacheMiss = errors.New("repository: cache miss")

// TelemetryRepository reads stored visitor telemetry. Implementations must be safe for
// concurrent readers.
type TelemetryRepository interface {
	// ListPageviews returns the newest matching pageviews, at most q.Limit, with their
	// scroll and click records attached.
	ListPageviews(ctx context.Context, q domain.PageviewQuery) ([]domain.Pageview, error)
}

// SnapshotCache stores computed snapshots for a short time.
type SnapshotCache interface {
	GetSnapshot(ctx context.Context, key string) (domain.HeatmapSnapshot, bool, error)
	SetSnapshot(ctx context.Context, key string, snapshot domain.HeatmapSnapshot, ttl time.Duration) error
}
