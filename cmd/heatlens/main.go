package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/term"

	"github.com/splax/heatlens/internal/service/estimate"
	apiclient "github.com/splax/heatlens/pkg/api/client"
	"github.com/splax/heatlens/pkg/config"
	jwtpkg "github.com/splax/heatlens/pkg/jwt"
)

type cliConfig struct {
	APIBaseURL  string `json:"api_base_url"`
	AccessToken string `json:"access_token"`
}

const (
	defaultAPIBase = "http://localhost:4000"
	requestTimeout = 30 * time.Second
)

var buildVersion = "dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	if err := config.LoadEnvFile(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}
	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "login":
		err = commandLogin(args)
	case "token":
		err = commandToken(args, os.Stdout)
	case "estimate":
		err = commandEstimate(args, os.Stdout)
	case "snapshot":
		err = commandSnapshot(args, os.Stdout)
	case "compare":
		err = commandCompare(args, os.Stdout)
	case "insights":
		err = commandInsights(args, os.Stdout)
	case "version", "--version", "-v":
		printVersion()
		return
	case "help", "-h", "--help":
		printUsage()
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func commandLogin(args []string) error {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	token := fs.String("token", "", "Bearer token issued by 'heatlens token'")
	apiBase := fs.String("api", "", "API base URL (default http://localhost:4000)")
	fs.Parse(args)

	if strings.TrimSpace(*token) == "" {
		return errors.New("--token is required")
	}
	cfg, _ := loadConfig()
	if strings.TrimSpace(*apiBase) != "" {
		cfg.APIBaseURL = *apiBase
	}
	cfg.AccessToken = strings.TrimSpace(*token)
	if err := saveConfig(cfg); err != nil {
		return err
	}
	fmt.Println("credentials saved")
	return nil
}

func commandToken(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("token", flag.ExitOnError)
	subject := fs.String("subject", "operator", "Token subject")
	sites := fs.String("sites", "", "Comma separated site ids the token may read (empty for all)")
	ttl := fs.Duration("ttl", 24*time.Hour, "Token lifetime")
	secret := fs.String("secret", "", "Signing secret (defaults to JWT_SECRET, then a terminal prompt)")
	save := fs.Bool("save", false, "Store the token in the CLI config")
	fs.Parse(args)

	key := strings.TrimSpace(*secret)
	if key == "" {
		key = config.GetString("JWT_SECRET", "")
	}
	if key == "" {
		prompted, err := promptSecret()
		if err != nil {
			return err
		}
		key = strings.TrimSpace(prompted)
	}
	if key == "" {
		return errors.New("--secret or JWT_SECRET is required")
	}
	token, err := jwtpkg.GenerateToken(*subject, splitList(*sites), key, *ttl)
	if err != nil {
		return err
	}
	if *save {
		cfg, _ := loadConfig()
		cfg.AccessToken = token
		if err := saveConfig(cfg); err != nil {
			return err
		}
	}
	fmt.Fprintln(out, token)
	return nil
}

// promptSecret reads the signing secret from the terminal without echo.
var promptSecret = func() (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("--secret or JWT_SECRET is required when stdin is not a terminal")
	}
	fmt.Fprint(os.Stderr, "Signing secret: ")
	bytes, err := term.ReadPassword(fd)
	fmt.Fprint(os.Stderr, "\n")
	if err != nil {
		return "", fmt.Errorf("read secret: %w", err)
	}
	return string(bytes), nil
}

func commandEstimate(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("estimate", flag.ExitOnError)
	file := fs.String("file", "", "HTML file to estimate ('-' for stdin)")
	pageURL := fs.String("url", "", "Source URL of the page")
	remote := fs.Bool("remote", false, "Estimate through the API instead of locally")
	preview := fs.String("preview", "", "Write the sanitized preview HTML to this path")
	limit := fs.Int("targets", 50, "Maximum click targets to return")
	fs.Parse(args)

	if strings.TrimSpace(*file) == "" {
		return errors.New("--file is required")
	}
	raw, err := readInput(*file)
	if err != nil {
		return err
	}

	var result any
	var sanitized string
	if *remote {
		client, token, err := remoteClient()
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		res, err := client.Estimate(ctx, token, *pageURL, string(raw))
		if err != nil {
			return err
		}
		result, sanitized = res, res.SanitizedHTML
	} else {
		res := estimate.New(*limit).EstimateHTML(string(raw), *pageURL)
		result, sanitized = res, res.SanitizedHTML
	}
	if strings.TrimSpace(*preview) != "" {
		if err := os.WriteFile(*preview, []byte(sanitized), 0o644); err != nil {
			return fmt.Errorf("write preview: %w", err)
		}
	}
	return printJSON(out, result)
}

func commandSnapshot(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("snapshot", flag.ExitOnError)
	q := bindSelection(fs)
	start := fs.String("start", "", "Range start (RFC3339 or YYYY-MM-DD)")
	end := fs.String("end", "", "Range end, inclusive day or RFC3339")
	fs.Parse(args)

	query, err := q.build()
	if err != nil {
		return err
	}
	if query.Range, err = parseRange(*start, *end); err != nil {
		return err
	}
	client, token, err := remoteClient()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	snap, err := client.Snapshot(ctx, token, query)
	if err != nil {
		return err
	}
	return printJSON(out, snap)
}

func commandCompare(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("compare", flag.ExitOnError)
	q := bindSelection(fs)
	startA := fs.String("start-a", "", "Period A start")
	endA := fs.String("end-a", "", "Period A end")
	startB := fs.String("start-b", "", "Period B start")
	endB := fs.String("end-b", "", "Period B end")
	fs.Parse(args)

	query, err := q.build()
	if err != nil {
		return err
	}
	a, err := parseRange(*startA, *endA)
	if err != nil {
		return err
	}
	b, err := parseRange(*startB, *endB)
	if err != nil {
		return err
	}
	if a.Start.IsZero() || a.End.IsZero() || b.Start.IsZero() || b.End.IsZero() {
		return errors.New("--start-a, --end-a, --start-b and --end-b are required")
	}
	client, token, err := remoteClient()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	cmp, err := client.Compare(ctx, token, query, a, b)
	if err != nil {
		return err
	}
	return printJSON(out, cmp)
}

func commandInsights(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("insights", flag.ExitOnError)
	site := fs.String("site", "", "Site identifier")
	days := fs.Int("days", 0, "Lookback in days (server default when 0)")
	fs.Parse(args)

	if strings.TrimSpace(*site) == "" {
		return errors.New("--site is required")
	}
	client, token, err := remoteClient()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	report, err := client.Insights(ctx, token, *site, *days)
	if err != nil {
		return err
	}
	if len(report.Insights) == 0 {
		fmt.Fprintf(out, "%s: %s\n", report.SiteID, report.Summary)
		return nil
	}
	return printJSON(out, report)
}

type selectionFlags struct {
	site   *string
	path   *string
	device *string
}

func bindSelection(fs *flag.FlagSet) selectionFlags {
	return selectionFlags{
		site:   fs.String("site", "", "Site identifier"),
		path:   fs.String("path", "", "Page path"),
		device: fs.String("device", "", "Device filter (desktop|mobile|tablet)"),
	}
}

func (s selectionFlags) build() (apiclient.SnapshotQuery, error) {
	if strings.TrimSpace(*s.site) == "" || strings.TrimSpace(*s.path) == "" {
		return apiclient.SnapshotQuery{}, errors.New("--site and --path are required")
	}
	return apiclient.SnapshotQuery{SiteID: *s.site, Path: *s.path, Device: *s.device}, nil
}

// parseRange reads RFC3339 or calendar-day bounds; a calendar-day end covers the whole day.
func parseRange(start, end string) (apiclient.Range, error) {
	var r apiclient.Range
	var err error
	if r.Start, err = parseDate(start, false); err != nil {
		return r, err
	}
	if r.End, err = parseDate(end, true); err != nil {
		return r, err
	}
	return r, nil
}

func parseDate(value string, end bool) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	day, err := time.Parse(apiclient.DateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", value)
	}
	if end {
		day = day.AddDate(0, 0, 1)
	}
	return day, nil
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

func remoteClient() (*apiclient.Client, string, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, "", err
	}
	client, err := apiclient.New(cfg.APIBaseURL)
	if err != nil {
		return nil, "", err
	}
	return client, strings.TrimSpace(cfg.AccessToken), nil
}

func printJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func loadConfig() (cliConfig, error) {
	path, err := configPath()
	if err != nil {
		return cliConfig{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cliConfig{APIBaseURL: config.GetString("HEATLENS_API", defaultAPIBase)}, nil
		}
		return cliConfig{}, err
	}
	var cfg cliConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cliConfig{}, err
	}
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = config.GetString("HEATLENS_API", defaultAPIBase)
	}
	return cfg, nil
}

func saveConfig(cfg cliConfig) error {
	path, err := configPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func configPath() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "heatlens", "config.json"), nil
}

func printUsage() {
	fmt.Printf("heatlens CLI %s\n\n", buildVersion)
	fmt.Print(`Usage:
	heatlens token [--subject name] [--sites a,b] [--ttl 24h] [--secret s] [--save]
	heatlens login --token <jwt> [--api http://localhost:4000]
	heatlens estimate --file page.html [--url https://example.com/] [--remote] [--preview out.html]
	heatlens snapshot --site <id> --path </pricing> [--device mobile] [--start 2024-01-01] [--end 2024-01-31]
	heatlens compare --site <id> --path <path> --start-a D --end-a D --start-b D --end-b D
	heatlens insights --site <id> [--days 14]
	heatlens version
`)
}

func printVersion() {
	fmt.Println(strings.TrimSpace(buildVersion))
}
