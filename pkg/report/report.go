// Package report renders a betting card for humans (text) and for
// historical tracking (CSV rows).
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/spreadline/gridiron/pkg/nfl/card"
)

var printer = message.NewPrinter(language.AmericanEnglish)

// WriteText renders the card as a readable report: plays first, sorted by
// edge, then passes, then failures.
func WriteText(w io.Writer, c *card.Card) error {
	bankroll, _ := c.Bankroll.Float64()
	header := printer.Sprintf("BETTING CARD | week %d, season %d | bankroll $%.2f", c.Week, c.Season, bankroll)
	if _, err := fmt.Fprintf(w, "%s\n%s\n", header, strings.Repeat("=", len(header))); err != nil {
		return err
	}

	for _, e := range c.Entries {
		if e.Err != nil {
			if _, err := fmt.Fprintf(w, "\n%s  FAILED: %s\n", e.Matchup, e.ErrMessage); err != nil {
				return err
			}
			continue
		}
		if err := writeEntry(w, e); err != nil {
			return err
		}
	}
	return nil
}

func writeEntry(w io.Writer, e card.Entry) error {
	rec := e.Recommendation
	pred := e.Prediction

	stake, _ := rec.Stake.Float64()
	if _, err := printer.Fprintf(w, "\n%s  [%s]\n", e.Matchup, rec.Tier); err != nil {
		return err
	}
	if _, err := printer.Fprintf(w,
		"  model %s by %.1f (win prob %.1f%%, confidence %s)\n  market %+.1f | edge %.1f pts (%.1f%%) on %s\n  stake $%.2f (%.2f%% of bankroll)\n",
		pred.PredictedWinner, abs(pred.Margin), pred.WinProbability*100, pred.Confidence,
		rec.MarketSpread, rec.EdgePoints, rec.EdgePercent, rec.Side,
		stake, rec.StakeFraction*100); err != nil {
		return err
	}
	for _, r := range rec.Reasons {
		if _, err := fmt.Fprintf(w, "  + %s\n", r); err != nil {
			return err
		}
	}
	for _, warn := range rec.Warnings {
		if _, err := fmt.Fprintf(w, "  ! %s\n", warn); err != nil {
			return err
		}
	}
	return nil
}

// csvHeader is the column layout for the machine-readable export.
var csvHeader = []string{
	"matchup", "tier", "side", "confidence",
	"model_margin", "market_spread", "edge_points", "edge_percent",
	"stake_fraction", "stake", "game_date", "analyzed_at", "warnings", "error",
}

// WriteCSV writes one row per card entry, failed matchups included so the
// historical record shows what was attempted.
func WriteCSV(w io.Writer, c *card.Card) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}

	for _, e := range c.Entries {
		if e.Err != nil {
			row := make([]string, len(csvHeader))
			row[0] = e.Matchup
			row[len(row)-1] = e.ErrMessage
			if err := cw.Write(row); err != nil {
				return err
			}
			continue
		}
		rec, pred := e.Recommendation, e.Prediction
		row := []string{
			e.Matchup,
			string(rec.Tier),
			rec.Side,
			string(pred.Confidence),
			formatFloat(pred.Margin),
			formatFloat(rec.MarketSpread),
			formatFloat(rec.EdgePoints),
			formatFloat(rec.EdgePercent),
			formatFloat(rec.StakeFraction),
			rec.Stake.String(),
			pred.GameDate.Format("2006-01-02"),
			pred.AnalyzedAt.Format("2006-01-02T15:04:05Z07:00"),
			strings.Join(rec.Warnings, "; "),
			"",
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
