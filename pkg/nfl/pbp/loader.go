package pbp

import (
	"compress/gzip"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/spreadline/gridiron/pkg/logging"
)

const (
	// DefaultBaseURL hosts the nflverse play-by-play releases.
	DefaultBaseURL = "https://github.com/nflverse/nflverse-data/releases/download/pbp"

	defaultRateLimit = 2.0 // requests per second
	defaultBurst     = 1
)

// requiredColumns must all be present in a play-by-play export before any
// row is parsed. A missing column invalidates the whole file, not just the
// rows that reference it: a silently absent flag column would read as a
// confident false on every play instead of as missing data.
var requiredColumns = []string{
	"game_id",
	"season",
	"week",
	"posteam",
	"defteam",
	"down",
	"ydstogo",
	"yardline_100",
	"qtr",
	"half_seconds_remaining",
	"score_differential",
	"pass",
	"rush",
	"yards_gained",
	"touchdown",
	"first_down",
	"field_goal_attempt",
	"kick_distance",
	"field_goal_result",
	"epa",
}

// MissingColumnsError reports a play-by-play file that lacks columns the
// model depends on.
type MissingColumnsError struct {
	Path    string
	Columns []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("play-by-play file %s missing required columns: %s",
		e.Path, strings.Join(e.Columns, ", "))
}

// Loader fetches and parses season play-by-play CSVs, caching downloads on
// disk so repeated runs in the same week stay offline.
type Loader struct {
	baseURL    string
	cacheDir   string
	cacheTTL   time.Duration
	httpClient *http.Client
	limiter    *rate.Limiter
}

// LoaderOption configures the loader.
type LoaderOption func(*Loader)

// WithBaseURL sets a custom release URL.
func WithBaseURL(url string) LoaderOption {
	return func(l *Loader) {
		l.baseURL = url
	}
}

// WithCacheDir sets the directory for cached season files.
func WithCacheDir(dir string) LoaderOption {
	return func(l *Loader) {
		l.cacheDir = dir
	}
}

// WithCacheTTL sets how long a cached season file is considered fresh.
func WithCacheTTL(ttl time.Duration) LoaderOption {
	return func(l *Loader) {
		l.cacheTTL = ttl
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) LoaderOption {
	return func(l *Loader) {
		l.httpClient = client
	}
}

// WithRateLimit sets custom rate limiting for release downloads.
func WithRateLimit(rps float64, burst int) LoaderOption {
	return func(l *Loader) {
		l.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// NewLoader creates a play-by-play loader.
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{
		baseURL:  DefaultBaseURL,
		cacheDir: filepath.Join(os.TempDir(), "gridiron-pbp"),
		cacheTTL: 24 * time.Hour,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
		limiter: rate.NewLimiter(rate.Limit(defaultRateLimit), defaultBurst),
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// LoadSeason returns the full play-by-play dataset for a season, downloading
// and caching the nflverse export if no fresh copy exists on disk.
func (l *Loader) LoadSeason(ctx context.Context, season int) (*Dataset, error) {
	path := filepath.Join(l.cacheDir, fmt.Sprintf("play_by_play_%d.csv.gz", season))

	if !l.fresh(path) {
		if err := l.download(ctx, season, path); err != nil {
			return nil, err
		}
	}

	return l.LoadFile(path)
}

// LoadFile parses a local play-by-play CSV (optionally gzip-compressed).
func (l *Loader) LoadFile(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open play-by-play file: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("open gzip stream: %w", err)
		}
		defer gz.Close()
		r = gz
	}

	return parse(r, path)
}

func (l *Loader) fresh(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return time.Since(info.ModTime()) < l.cacheTTL
}

func (l *Loader) download(ctx context.Context, season int, path string) error {
	if err := l.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	url := fmt.Sprintf("%s/play_by_play_%d.csv.gz", l.baseURL, season)
	logging.Get().WithField("url", url).Info("Downloading play-by-play data")

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download error %d for season %d", resp.StatusCode, season)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	tmp := path + ".tmp"
	out, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create cache file: %w", err)
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		os.Remove(tmp)
		return fmt.Errorf("write cache file: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close cache file: %w", err)
	}

	return os.Rename(tmp, path)
}

func parse(r io.Reader, path string) (*Dataset, error) {
	cr := csv.NewReader(r)
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[name] = i
	}

	var missing []string
	for _, col := range requiredColumns {
		if _, ok := idx[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, &MissingColumnsError{Path: path, Columns: missing}
	}

	col := func(rec []string, name string) string {
		i, ok := idx[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return rec[i]
	}

	ds := &Dataset{}
	skipped := 0
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}

		epa, ok := parseFloat(col(rec, "epa"))
		offense := col(rec, "posteam")
		defense := col(rec, "defteam")
		if !ok || offense == "" || defense == "" {
			// Kickoffs, timeouts, and end-of-period rows carry no EPA.
			skipped++
			continue
		}

		p := Play{
			GameID:            col(rec, "game_id"),
			Season:            parseInt(col(rec, "season")),
			Week:              parseInt(col(rec, "week")),
			Offense:           offense,
			Defense:           defense,
			Down:              parseInt(col(rec, "down")),
			YardsToGo:         parseInt(col(rec, "ydstogo")),
			YardlineToGoal:    parseInt(col(rec, "yardline_100")),
			Quarter:           parseInt(col(rec, "qtr")),
			ScoreDifferential: parseInt(col(rec, "score_differential")),
			IsPass:            parseFlag(col(rec, "pass")),
			IsRush:            parseFlag(col(rec, "rush")),
			YardsGained:       parseInt(col(rec, "yards_gained")),
			Touchdown:         parseFlag(col(rec, "touchdown")),
			FirstDown:         parseFlag(col(rec, "first_down")),
			FieldGoalAttempt:  parseFlag(col(rec, "field_goal_attempt")),
			KickDistance:      parseInt(col(rec, "kick_distance")),
			FieldGoalMade:     col(rec, "field_goal_result") == "made",
			EPA:               epa,
		}
		if hsr, ok := parseFloat(col(rec, "half_seconds_remaining")); ok {
			p.HalfSecondsRemaining = hsr
		}

		if ds.Season == 0 {
			ds.Season = p.Season
		}
		ds.Plays = append(ds.Plays, p)
	}

	logging.Get().WithFields(map[string]interface{}{
		"path":    path,
		"plays":   len(ds.Plays),
		"skipped": skipped,
	}).Debug("Parsed play-by-play file")

	return ds, nil
}

// parseFloat handles nflverse missing-value markers.
func parseFloat(s string) (float64, bool) {
	if s == "" || s == "NA" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func parseInt(s string) int {
	v, ok := parseFloat(s)
	if !ok {
		return 0
	}
	return int(v)
}

func parseFlag(s string) bool {
	v, ok := parseFloat(s)
	return ok && v == 1
}
