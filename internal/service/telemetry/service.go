// Package telemetry aggregates stored visitor telemetry into heatmap snapshots, compares
// periods and derives insights.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/splax/heatlens/internal/domain"
	"github.com/splax/heatlens/internal/repository"
)

const (
	defaultPageLimit   = 5000
	defaultInsightDays = 14
	maxInsightDays     = 180
	defaultLookback    = 30 * 24 * time.Hour
	cacheKeyPrefix     = "heatlens:snapshot:"
)

var (
	// ErrSiteRequired indicates a selection without a site id.
	ErrSiteRequired = errors.New("site_id required")
	// ErrPathRequired indicates a selection without a path.
	ErrPathRequired = errors.New("path required")
	// ErrInvalidDevice indicates an unknown device filter.
	ErrInvalidDevice = errors.New("device must be desktop, mobile or tablet")
	// ErrInvalidRange indicates a period whose end is not after its start.
	ErrInvalidRange = errors.New("invalid date range")
	// ErrOverlappingRanges indicates comparison periods that share time.
	ErrOverlappingRanges = errors.New("comparison periods overlap")
)

// Selection identifies the telemetry a snapshot is computed from.
type Selection struct {
	SiteID string
	Path   string
	Device string
	Period domain.Period
}

// Options tunes the service.
type Options struct {
	PageLimit   int
	ClickCells  int
	CacheTTL    time.Duration
	InsightDays int
}

// Service resolves telemetry from the store and runs the aggregation engine over it.
type Service struct {
	repo   repository.TelemetryRepository
	cache  repository.SnapshotCache
	logger *slog.Logger
	opts   Options
	now    func() time.Time
}

// New constructs a Service. cache may be nil to disable snapshot caching.
func New(repo repository.TelemetryRepository, cache repository.SnapshotCache, logger *slog.Logger, opts Options) *Service {
	if opts.PageLimit <= 0 {
		opts.PageLimit = defaultPageLimit
	}
	if opts.ClickCells <= 0 {
		opts.ClickCells = defaultClickCells
	}
	if opts.InsightDays <= 0 {
		opts.InsightDays = defaultInsightDays
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:   repo,
		cache:  cache,
		logger: logger.With("component", "telemetry"),
		opts:   opts,
		now:    time.Now,
	}
}

// Snapshot aggregates the telemetry of one site path over a period.
func (s *Service) Snapshot(ctx context.Context, sel Selection) (domain.HeatmapSnapshot, error) {
	sel, err := s.normalise(sel)
	if err != nil {
		return domain.HeatmapSnapshot{}, err
	}
	return s.snapshot(ctx, sel)
}

// Compare aggregates two disjoint periods of the same site path and reports the changes.
func (s *Service) Compare(ctx context.Context, siteID, path, device string, a, b domain.Period) (domain.Comparison, error) {
	selA, err := s.normalise(Selection{SiteID: siteID, Path: path, Device: device, Period: a})
	if err != nil {
		return domain.Comparison{}, err
	}
	selB, err := s.normalise(Selection{SiteID: siteID, Path: path, Device: device, Period: b})
	if err != nil {
		return domain.Comparison{}, err
	}
	if selA.Period.Start.Before(selB.Period.End) && selB.Period.Start.Before(selA.Period.End) {
		return domain.Comparison{}, ErrOverlappingRanges
	}
	snapA, err := s.snapshot(ctx, selA)
	if err != nil {
		return domain.Comparison{}, err
	}
	snapB, err := s.snapshot(ctx, selB)
	if err != nil {
		return domain.Comparison{}, err
	}
	return CompareSnapshots(snapA, snapB), nil
}

// Insights compares the most recent half of a days-long lookback with the half before it.
func (s *Service) Insights(ctx context.Context, siteID string, days int) (domain.InsightReport, error) {
	siteID = strings.TrimSpace(siteID)
	if siteID == "" {
		return domain.InsightReport{}, ErrSiteRequired
	}
	if days <= 0 {
		days = s.opts.InsightDays
	}
	if days < 2 {
		days = 2
	}
	if days > maxInsightDays {
		days = maxInsightDays
	}

	now := s.now().UTC()
	half := time.Duration(days) * 24 * time.Hour / 2
	mid := now.Add(-half)
	current, err := s.repo.ListPageviews(ctx, domain.PageviewQuery{SiteID: siteID, Start: mid, End: now, Limit: s.opts.PageLimit})
	if err != nil {
		return domain.InsightReport{}, fmt.Errorf("list current pageviews: %w", err)
	}
	previous, err := s.repo.ListPageviews(ctx, domain.PageviewQuery{SiteID: siteID, Start: mid.Add(-half), End: mid, Limit: s.opts.PageLimit})
	if err != nil {
		return domain.InsightReport{}, fmt.Errorf("list previous pageviews: %w", err)
	}

	insights, summary := GenerateInsights(current, previous)
	return domain.InsightReport{
		ID:          uuid.NewString(),
		SiteID:      siteID,
		Days:        days,
		Insights:    insights,
		Summary:     summary,
		GeneratedAt: now,
	}, nil
}

func (s *Service) snapshot(ctx context.Context, sel Selection) (domain.HeatmapSnapshot, error) {
	key := cacheKey(sel)
	if s.cache != nil {
		cached, ok, err := s.cache.GetSnapshot(ctx, key)
		if err != nil {
			s.logger.Warn("snapshot cache read failed", "error", err, "site_id", sel.SiteID)
		} else if ok {
			return cached, nil
		}
	}

	records, err := s.repo.ListPageviews(ctx, domain.PageviewQuery{
		SiteID: sel.SiteID,
		Path:   sel.Path,
		Device: sel.Device,
		Start:  sel.Period.Start,
		End:    sel.Period.End,
		Limit:  s.opts.PageLimit,
	})
	if err != nil {
		return domain.HeatmapSnapshot{}, fmt.Errorf("list pageviews: %w", err)
	}
	snap := Aggregate(records, s.opts.ClickCells)

	if s.cache != nil && s.opts.CacheTTL > 0 {
		if err := s.cache.SetSnapshot(ctx, key, snap, s.opts.CacheTTL); err != nil {
			s.logger.Warn("snapshot cache write failed", "error", err, "site_id", sel.SiteID)
		}
	}
	return snap, nil
}

// normalise trims identifiers, validates them and fills a default period ending at the
// current minute.
func (s *Service) normalise(sel Selection) (Selection, error) {
	sel.SiteID = strings.TrimSpace(sel.SiteID)
	sel.Path = strings.TrimSpace(sel.Path)
	sel.Device = strings.ToLower(strings.TrimSpace(sel.Device))
	if sel.SiteID == "" {
		return sel, ErrSiteRequired
	}
	if sel.Path == "" {
		return sel, ErrPathRequired
	}
	if !domain.ValidDevice(sel.Device) {
		return sel, ErrInvalidDevice
	}
	if sel.Period.End.IsZero() {
		sel.Period.End = openEnd(s.now())
	}
	if sel.Period.Start.IsZero() {
		sel.Period.Start = sel.Period.End.Add(-defaultLookback)
	}
	sel.Period.Start = sel.Period.Start.UTC()
	sel.Period.End = sel.Period.End.UTC()
	if !sel.Period.End.After(sel.Period.Start) {
		return sel, ErrInvalidRange
	}
	return sel, nil
}

// openEnd rounds now up to the next whole minute so open-ended windows share a cache key
// for the rest of that minute.
func openEnd(now time.Time) time.Time {
	end := now.Truncate(time.Minute)
	if end.Before(now) {
		end = end.Add(time.Minute)
	}
	return end
}

// IsValidationError reports whether err stems from a rejected selection.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrSiteRequired) ||
		errors.Is(err, ErrPathRequired) ||
		errors.Is(err, ErrInvalidDevice) ||
		errors.Is(err, ErrInvalidRange) ||
		errors.Is(err, ErrOverlappingRanges)
}

func cacheKey(sel Selection) string {
	return fmt.Sprintf("%s%s|%s|%s|%d|%d", cacheKeyPrefix, sel.SiteID, sel.Path, sel.Device,
		sel.Period.Start.Unix(), sel.Period.End.Unix())
}
