package report

import (
	"bytes"
	"encoding/csv"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/spreadline/gridiron/pkg/nfl/card"
	"github.com/spreadline/gridiron/pkg/nfl/predict"
	"github.com/spreadline/gridiron/pkg/nfl/signal"
)

func sampleCard() *card.Card {
	return &card.Card{
		Season:   2025,
		Week:     12,
		BuiltAt:  time.Date(2025, 11, 18, 9, 0, 0, 0, time.UTC),
		Bankroll: decimal.NewFromInt(10000),
		Entries: []card.Entry{
			{
				Matchup: "BUF@KC",
				Prediction: &predict.Result{
					HomeTeam:        "KC",
					AwayTeam:        "BUF",
					GameDate:        time.Date(2025, 11, 23, 18, 0, 0, 0, time.UTC),
					AnalyzedAt:      time.Date(2025, 11, 18, 9, 0, 0, 0, time.UTC),
					Margin:          4.5,
					WinProbability:  0.75,
					PredictedWinner: "KC",
					Confidence:      predict.ConfidenceMedium,
				},
				Recommendation: &signal.Recommendation{
					Matchup:       "BUF@KC",
					Tier:          signal.TierStrong,
					Side:          "KC",
					ModelMargin:   4.5,
					MarketSpread:  -1.0,
					EdgePoints:    3.5,
					EdgePercent:   350,
					StakeFraction: 0.02,
					Stake:         decimal.NewFromInt(200),
					Bankroll:      decimal.NewFromInt(10000),
					Reasons:       []string{"model margin +4.5 vs market -1.0"},
					Warnings:      []string{"line crosses a key number between model and market, stake reduced"},
				},
			},
			{
				Matchup:    "ZZZ@KC",
				Err:        errors.New("unknown team"),
				ErrMessage: "unknown team",
			},
		},
	}
}

func TestWriteTextIncludesSignalAndWarnings(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteText(&buf, sampleCard()); err != nil {
		t.Fatalf("WriteText: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"week 12",
		"BUF@KC",
		"STRONG",
		"KC by 4.5",
		"edge 3.5 pts",
		"! line crosses a key number",
		"ZZZ@KC  FAILED: unknown team",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("text output missing %q:\n%s", want, out)
		}
	}
}

func TestWriteCSVRowsIncludeFailures(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, sampleCard()); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	if len(rows) != 3 { // header + success + failure
		t.Fatalf("rows = %d, want 3", len(rows))
	}

	header := rows[0]
	if header[0] != "matchup" || header[len(header)-1] != "error" {
		t.Errorf("unexpected header: %v", header)
	}

	success := rows[1]
	if success[0] != "BUF@KC" || success[1] != "STRONG" || success[2] != "KC" {
		t.Errorf("unexpected success row: %v", success)
	}
	// Game date and analysis time stay distinct columns.
	if success[10] == success[11] {
		t.Errorf("game_date and analyzed_at identical: %v", success)
	}

	failure := rows[2]
	if failure[0] != "ZZZ@KC" || failure[len(failure)-1] != "unknown team" {
		t.Errorf("unexpected failure row: %v", failure)
	}
}
