//go:build integration

package postgres_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/splax/heatlens/internal/app/migrate"
	"github.com/splax/heatlens/internal/domain"
	"github.com/splax/heatlens/internal/repository/postgres"
	"github.com/splax/heatlens/internal/service/telemetry"
)

const pgPort = nat.Port("5432/tcp")

func startPostgres(t *testing.T, ctx context.Context) string {
	t.Helper()
	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{string(pgPort)},
		Env: map[string]string{
			"POSTGRES_USER":     "heatlens",
			"POSTGRES_PASSWORD": "heatlens",
			"POSTGRES_DB":       "heatlens",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").WithOccurrence(2).WithStartupTimeout(60 * time.Second),
	}
	pg, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{ContainerRequest: req, Started: true})
	if err != nil {
		t.Fatalf("start postgres: %v", err)
	}
	t.Cleanup(func() { _ = pg.Terminate(context.Background()) })

	port, err := pg.MappedPort(ctx, pgPort)
	if err != nil {
		t.Fatalf("mapped port: %v", err)
	}
	host, err := pg.Host(ctx)
	if err != nil {
		t.Fatalf("container host: %v", err)
	}
	return fmt.Sprintf("postgres://heatlens:heatlens@%s:%s/heatlens?sslmode=disable", host, port.Port())
}

func seed(t *testing.T, ctx context.Context, pool *pgxpool.Pool, base time.Time) {
	t.Helper()
	type visit struct {
		session, path, ua, device string
		at                        time.Time
		depth                     int
		zones                     *string
		clicks                    [][2]int
	}
	zones := "[100,90,80,40,30,20,10,5,5,0]"
	visits := []visit{
		{session: "s1", path: "/", ua: "Mozilla/5.0 (Windows NT 10.0)", device: "desktop", at: base, depth: 10, zones: &zones, clicks: [][2]int{{12, 12}, {34, 34}}},
		{session: "s2", path: "/", ua: "Mozilla/5.0 (iPhone) Mobile", at: base.Add(time.Hour), depth: 95},
		{session: "s2", path: "/pricing", ua: "Mozilla/5.0 (Windows NT 10.0)", device: "desktop", at: base.Add(2 * time.Hour), depth: 50},
		{session: "s3", path: "/", ua: "Mozilla/5.0 (Windows NT 10.0)", device: "desktop", at: base.Add(-48 * time.Hour), depth: 100},
	}
	for _, v := range visits {
		var id int64
		err := pool.QueryRow(ctx, `INSERT INTO pageviews (site_id, session_id, path, page_height, user_agent, device, created_at)
			VALUES ('site', $1, $2, 2400, $3, $4, $5) RETURNING id`, v.session, v.path, v.ua, v.device, v.at).Scan(&id)
		if err != nil {
			t.Fatalf("insert pageview: %v", err)
		}
		if _, err := pool.Exec(ctx, `INSERT INTO scroll_events (pageview_id, max_depth, dwell_ms, zones, created_at)
			VALUES ($1, $2, 4000, $3, $4)`, id, v.depth, v.zones, v.at); err != nil {
			t.Fatalf("insert scroll: %v", err)
		}
		for _, c := range v.clicks {
			if _, err := pool.Exec(ctx, `INSERT INTO click_events (pageview_id, x, y, selector, created_at)
				VALUES ($1, $2, $3, '#cta', $4)`, id, c[0], c[1], v.at); err != nil {
				t.Fatalf("insert click: %v", err)
			}
		}
	}
}

func TestRepositoryAgainstPostgres(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	dsn := startPostgres(t, ctx)
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer pool.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	runner, err := migrate.New(pool, dsn, "", logger)
	if err != nil {
		t.Fatalf("migration runner: %v", err)
	}
	defer runner.Close()
	if err := runner.Ensure(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	base := time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)
	seed(t, ctx, pool, base)
	repo := postgres.New(pool)
	day := domain.PageviewQuery{SiteID: "site", Start: base.Add(-time.Hour), End: base.Add(24 * time.Hour)}

	all, err := repo.ListPageviews(ctx, day)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 pageviews in range, got %d", len(all))
	}
	if all[0].Path != "/pricing" {
		t.Fatalf("expected newest first, got %s", all[0].Path)
	}

	homeQuery := day
	homeQuery.Path = "/"
	home, err := repo.ListPageviews(ctx, homeQuery)
	if err != nil {
		t.Fatalf("list home: %v", err)
	}
	if len(home) != 2 {
		t.Fatalf("expected 2 home pageviews, got %d", len(home))
	}
	first := home[1]
	if len(first.Scrolls) != 1 || first.Scrolls[0].Zones == nil || first.Scrolls[0].Zones[0] != 100 {
		t.Fatalf("expected scroll with zones, got %+v", first.Scrolls)
	}
	if len(first.Clicks) != 2 {
		t.Fatalf("expected clicks attached, got %+v", first.Clicks)
	}

	mobileQuery := homeQuery
	mobileQuery.Device = domain.DeviceMobile
	mobile, err := repo.ListPageviews(ctx, mobileQuery)
	if err != nil {
		t.Fatalf("list mobile: %v", err)
	}
	if len(mobile) != 1 || mobile[0].Device != domain.DeviceMobile {
		t.Fatalf("expected the user agent classified mobile visit, got %+v", mobile)
	}

	svc := telemetry.New(repo, nil, logger, telemetry.Options{})
	snap, err := svc.Snapshot(ctx, telemetry.Selection{SiteID: "site", Path: "/", Period: domain.Period{Start: day.Start, End: day.End}})
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if snap.TotalPV != 2 || snap.FVExitRate != 50 || snap.BottomReachRate != 50 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
	if len(snap.ClickMap) != 1 || snap.ClickMap[0].Count != 2 {
		t.Fatalf("unexpected click map %+v", snap.ClickMap)
	}
}
