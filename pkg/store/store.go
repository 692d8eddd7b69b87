// Package store persists predictions and recommendations to SQLite for
// historical tracking and closing-line-value analysis.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/spreadline/gridiron/pkg/logging"
	"github.com/spreadline/gridiron/pkg/nfl/predict"
	"github.com/spreadline/gridiron/pkg/nfl/signal"
)

const schema = `
CREATE TABLE IF NOT EXISTS predictions (
	id TEXT PRIMARY KEY,
	home_team TEXT NOT NULL,
	away_team TEXT NOT NULL,
	game_date TEXT NOT NULL,
	analyzed_at TEXT NOT NULL,
	margin REAL NOT NULL,
	win_probability REAL NOT NULL,
	predicted_winner TEXT NOT NULL,
	confidence TEXT NOT NULL,
	insufficient_data INTEGER NOT NULL DEFAULT 0,
	breakdown TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS recommendations (
	id TEXT PRIMARY KEY,
	matchup TEXT NOT NULL,
	created_at TEXT NOT NULL,
	tier TEXT NOT NULL,
	side TEXT NOT NULL,
	model_margin REAL NOT NULL,
	market_spread REAL NOT NULL,
	edge_points REAL NOT NULL,
	edge_percent REAL NOT NULL,
	full_kelly REAL NOT NULL,
	stake_fraction REAL NOT NULL,
	stake TEXT NOT NULL,
	bankroll TEXT NOT NULL,
	reasons TEXT NOT NULL,
	warnings TEXT NOT NULL,
	closing_spread REAL,
	clv_points REAL
);

CREATE INDEX IF NOT EXISTS idx_predictions_matchup ON predictions(home_team, away_team);
CREATE INDEX IF NOT EXISTS idx_recommendations_tier ON recommendations(tier);
`

// Store wraps the SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and ensures the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	logging.Get().WithField("path", path).Debug("Store opened")
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SavePrediction writes one prediction row. The analysis timestamp and the
// scheduled game date are stored as separate columns.
func (s *Store) SavePrediction(ctx context.Context, r *predict.Result) error {
	breakdown, err := json.Marshal(r.Breakdown)
	if err != nil {
		return fmt.Errorf("marshal breakdown: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO predictions
			(id, home_team, away_team, game_date, analyzed_at, margin,
			 win_probability, predicted_winner, confidence, insufficient_data, breakdown)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.HomeTeam, r.AwayTeam,
		r.GameDate.Format(time.RFC3339), r.AnalyzedAt.Format(time.RFC3339),
		r.Margin, r.WinProbability, r.PredictedWinner, string(r.Confidence),
		boolToInt(r.InsufficientData), string(breakdown),
	)
	if err != nil {
		return fmt.Errorf("save prediction %s: %w", r.ID, err)
	}
	return nil
}

// SaveRecommendation writes one recommendation row.
func (s *Store) SaveRecommendation(ctx context.Context, r *signal.Recommendation) error {
	reasons, err := json.Marshal(r.Reasons)
	if err != nil {
		return fmt.Errorf("marshal reasons: %w", err)
	}
	warnings, err := json.Marshal(r.Warnings)
	if err != nil {
		return fmt.Errorf("marshal warnings: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO recommendations
			(id, matchup, created_at, tier, side, model_margin, market_spread,
			 edge_points, edge_percent, full_kelly, stake_fraction, stake,
			 bankroll, reasons, warnings)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Matchup, r.CreatedAt.Format(time.RFC3339),
		string(r.Tier), r.Side, r.ModelMargin, r.MarketSpread,
		r.EdgePoints, r.EdgePercent, r.FullKelly, r.StakeFraction,
		r.Stake.String(), r.Bankroll.String(), string(reasons), string(warnings),
	)
	if err != nil {
		return fmt.Errorf("save recommendation %s: %w", r.ID, err)
	}
	return nil
}

// RecordClosingLine attaches the closing spread to a recommendation and
// computes its closing line value in points. Positive CLV means the line
// moved toward the recommended side after the bet.
func (s *Store) RecordClosingLine(ctx context.Context, recID string, closingSpread float64) error {
	var side, matchup string
	var placed float64
	row := s.db.QueryRowContext(ctx,
		`SELECT matchup, side, market_spread FROM recommendations WHERE id = ?`, recID)
	if err := row.Scan(&matchup, &side, &placed); err != nil {
		return fmt.Errorf("recommendation %s: %w", recID, err)
	}

	clv := closingSpread - placed
	if isHomeSide(matchup, side) {
		clv = placed - closingSpread
	}

	_, err := s.db.ExecContext(ctx,
		`UPDATE recommendations SET closing_spread = ?, clv_points = ? WHERE id = ?`,
		closingSpread, clv, recID)
	if err != nil {
		return fmt.Errorf("record closing line for %s: %w", recID, err)
	}
	return nil
}

// AverageCLV returns the mean closing line value over all settled
// recommendations, and how many there were.
func (s *Store) AverageCLV(ctx context.Context) (float64, int, error) {
	var avg sql.NullFloat64
	var n int
	row := s.db.QueryRowContext(ctx,
		`SELECT AVG(clv_points), COUNT(clv_points) FROM recommendations WHERE clv_points IS NOT NULL`)
	if err := row.Scan(&avg, &n); err != nil {
		return 0, 0, fmt.Errorf("average clv: %w", err)
	}
	return avg.Float64, n, nil
}

// PredictionRow is one stored prediction, flattened for reporting.
type PredictionRow struct {
	ID              string
	HomeTeam        string
	AwayTeam        string
	GameDate        time.Time
	AnalyzedAt      time.Time
	Margin          float64
	WinProbability  float64
	PredictedWinner string
	Confidence      string
}

// RecentPredictions returns the latest predictions, newest analysis first.
func (s *Store) RecentPredictions(ctx context.Context, limit int) ([]PredictionRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, home_team, away_team, game_date, analyzed_at, margin,
		       win_probability, predicted_winner, confidence
		FROM predictions ORDER BY analyzed_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list predictions: %w", err)
	}
	defer rows.Close()

	var out []PredictionRow
	for rows.Next() {
		var r PredictionRow
		var gameDate, analyzedAt string
		if err := rows.Scan(&r.ID, &r.HomeTeam, &r.AwayTeam, &gameDate, &analyzedAt,
			&r.Margin, &r.WinProbability, &r.PredictedWinner, &r.Confidence); err != nil {
			return nil, fmt.Errorf("scan prediction: %w", err)
		}
		r.GameDate, _ = time.Parse(time.RFC3339, gameDate)
		r.AnalyzedAt, _ = time.Parse(time.RFC3339, analyzedAt)
		out = append(out, r)
	}
	return out, rows.Err()
}

// RecommendationRow is one stored recommendation, flattened for reporting.
type RecommendationRow struct {
	ID            string
	Matchup       string
	CreatedAt     time.Time
	Tier          string
	Side          string
	EdgePoints    float64
	StakeFraction float64
	Stake         decimal.Decimal
	ClosingSpread sql.NullFloat64
	CLVPoints     sql.NullFloat64
}

// RecommendationsByTier returns stored recommendations for one tier.
func (s *Store) RecommendationsByTier(ctx context.Context, tier string) ([]RecommendationRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, matchup, created_at, tier, side, edge_points,
		       stake_fraction, stake, closing_spread, clv_points
		FROM recommendations WHERE tier = ? ORDER BY created_at DESC`, tier)
	if err != nil {
		return nil, fmt.Errorf("list recommendations: %w", err)
	}
	defer rows.Close()

	var out []RecommendationRow
	for rows.Next() {
		var r RecommendationRow
		var createdAt, stake string
		if err := rows.Scan(&r.ID, &r.Matchup, &createdAt, &r.Tier, &r.Side,
			&r.EdgePoints, &r.StakeFraction, &stake, &r.ClosingSpread, &r.CLVPoints); err != nil {
			return nil, fmt.Errorf("scan recommendation: %w", err)
		}
		r.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		r.Stake, _ = decimal.NewFromString(stake)
		out = append(out, r)
	}
	return out, rows.Err()
}

// isHomeSide reports whether side is the home team of an away@home matchup.
func isHomeSide(matchup, side string) bool {
	for i := 0; i < len(matchup); i++ {
		if matchup[i] == '@' {
			return matchup[i+1:] == side
		}
	}
	return false
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
