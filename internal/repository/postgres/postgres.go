package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/splax/heatlens/internal/domain"
	"github.com/splax/heatlens/internal/repository"
)

const defaultPageviewLimit = 5000

// Repository reads stored telemetry from PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// New constructs a Repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

var _ repository.TelemetryRepository = (*Repository)(nil)

// ListPageviews returns the newest pageviews matching q together with their scroll and
// click records. An empty Path selects every path of the site and an empty Device selects
// every device.
func (r *Repository) ListPageviews(ctx context.Context, q domain.PageviewQuery) ([]domain.Pageview, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = defaultPageviewLimit
	}
	// Rows stored without a device are classified from their user agent after the read.
	const query = `SELECT id, site_id, session_id, path, page_height, user_agent, device, created_at
	FROM pageviews
	WHERE site_id = $1
		AND ($2 = '' OR path = $2)
		AND ($3 = '' OR device = $3 OR device = '')
		AND created_at >= $4 AND created_at < $5
	ORDER BY created_at DESC, id DESC
	LIMIT $6`
	rows, err := r.pool.Query(ctx, query, q.SiteID, q.Path, q.Device, q.Start, q.End, limit)
	if err != nil {
		return nil, fmt.Errorf("query pageviews: %w", err)
	}
	defer rows.Close()

	pageviews := make([]domain.Pageview, 0)
	index := make(map[int64]int)
	for rows.Next() {
		var pv domain.Pageview
		if err := rows.Scan(&pv.ID, &pv.SiteID, &pv.SessionID, &pv.Path, &pv.PageHeight, &pv.UserAgent, &pv.Device, &pv.CreatedAt); err != nil {
			return nil, err
		}
		if pv.Device == "" {
			pv.Device = domain.DeviceFromUserAgent(pv.UserAgent)
		}
		if q.Device != "" && pv.Device != q.Device {
			continue
		}
		index[pv.ID] = len(pageviews)
		pageviews = append(pageviews, pv)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(pageviews) == 0 {
		return pageviews, nil
	}

	ids := make([]int64, 0, len(pageviews))
	for _, pv := range pageviews {
		ids = append(ids, pv.ID)
	}
	if err := r.attachScrolls(ctx, ids, pageviews, index); err != nil {
		return nil, err
	}
	if err := r.attachClicks(ctx, ids, pageviews, index); err != nil {
		return nil, err
	}
	return pageviews, nil
}

func (r *Repository) attachScrolls(ctx context.Context, ids []int64, pageviews []domain.Pageview, index map[int64]int) error {
	const query = `SELECT pageview_id, max_depth, dwell_ms, COALESCE(zones, ''), created_at
	FROM scroll_events
	WHERE pageview_id = ANY($1)
	ORDER BY id`
	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		return fmt.Errorf("query scroll events: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			pageviewID int64
			rec        domain.ScrollRecord
			zones      string
		)
		if err := rows.Scan(&pageviewID, &rec.MaxDepth, &rec.DwellMs, &zones, &rec.CreatedAt); err != nil {
			return err
		}
		if v, ok := ParseZones(zones); ok {
			rec.Zones = &v
		}
		if i, ok := index[pageviewID]; ok {
			pageviews[i].Scrolls = append(pageviews[i].Scrolls, rec)
		}
	}
	return rows.Err()
}

func (r *Repository) attachClicks(ctx context.Context, ids []int64, pageviews []domain.Pageview, index map[int64]int) error {
	const query = `SELECT pageview_id, x, y, selector, is_rage, created_at
	FROM click_events
	WHERE pageview_id = ANY($1)
	ORDER BY id`
	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		return fmt.Errorf("query click events: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			pageviewID int64
			rec        domain.ClickRecord
		)
		if err := rows.Scan(&pageviewID, &rec.X, &rec.Y, &rec.Selector, &rec.IsRage, &rec.CreatedAt); err != nil {
			return err
		}
		if i, ok := index[pageviewID]; ok {
			pageviews[i].Clicks = append(pageviews[i].Clicks, rec)
		}
	}
	return rows.Err()
}
