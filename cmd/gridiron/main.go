// gridiron is a CLI tool for building a weekly betting card from NFL
// play-by-play data and externally sourced matchup context.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/shopspring/decimal"

	"github.com/spreadline/gridiron/pkg/logging"
	"github.com/spreadline/gridiron/pkg/metrics"
	"github.com/spreadline/gridiron/pkg/nfl/card"
	"github.com/spreadline/gridiron/pkg/nfl/game"
	"github.com/spreadline/gridiron/pkg/nfl/pbp"
	"github.com/spreadline/gridiron/pkg/report"
	"github.com/spreadline/gridiron/pkg/store"
)

var (
	// Input flags
	season       = flag.Int("season", 2025, "Season to load play-by-play data for")
	week         = flag.Int("week", 0, "Week label for the card")
	pbpFile      = flag.String("pbp", "", "Local play-by-play CSV (skips the download)")
	matchupsFile = flag.String("matchups", "", "JSON file with matchup contexts and market lines")

	// Output flags
	csvFile = flag.String("csv", "", "Write the machine-readable card to this CSV file")
	dbPath  = flag.String("db", "", "SQLite database for prediction history")

	// Config flags
	bankroll = flag.Float64("bankroll", 10000, "Bankroll in dollars")
	logLevel = flag.String("log-level", "info", "Log level")
	dev      = flag.Bool("dev", false, "Developer-friendly log output")
)

// matchupInput is one entry of the -matchups JSON array.
type matchupInput struct {
	Context game.MatchupContext `json:"context"`
	Line    game.MarketLine     `json:"line"`
}

func main() {
	flag.Parse()
	log := logging.Init(*logLevel, *dev)

	if *matchupsFile == "" {
		fmt.Fprintln(os.Stderr, "usage: gridiron -matchups games.json [-season 2025] [-bankroll 10000]")
		os.Exit(2)
	}

	inputs, err := loadMatchups(*matchupsFile)
	if err != nil {
		log.WithError(err).Fatal("Failed to load matchups")
	}

	ds, err := loadDataset()
	if err != nil {
		log.WithError(err).Fatal("Failed to load play-by-play data")
	}
	log.WithField("plays", len(ds.Plays)).Info("Play-by-play data loaded")

	reqs := make([]card.Request, len(inputs))
	for i := range inputs {
		reqs[i] = card.Request{Context: &inputs[i].Context, Line: &inputs[i].Line}
	}

	pm := metrics.NewPipelineMetrics()
	builder := card.NewBuilder(nil, nil, nil, nil, pm)
	c := builder.Build(ds, *week, reqs, decimal.NewFromFloat(*bankroll))

	if err := report.WriteText(os.Stdout, c); err != nil {
		log.WithError(err).Fatal("Failed to render card")
	}

	if *csvFile != "" {
		if err := exportCSV(c, *csvFile); err != nil {
			log.WithError(err).Error("Failed to export CSV")
		} else {
			log.WithField("path", *csvFile).Info("Card exported")
		}
	}

	if *dbPath != "" {
		if err := persist(c, *dbPath); err != nil {
			log.WithError(err).Error("Failed to persist card")
		}
	}
}

func loadMatchups(path string) ([]matchupInput, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read matchups file: %w", err)
	}
	var inputs []matchupInput
	if err := json.Unmarshal(data, &inputs); err != nil {
		return nil, fmt.Errorf("parse matchups file: %w", err)
	}
	if len(inputs) == 0 {
		return nil, fmt.Errorf("matchups file %s is empty", path)
	}
	return inputs, nil
}

func loadDataset() (*pbp.Dataset, error) {
	loader := pbp.NewLoader()
	if *pbpFile != "" {
		return loader.LoadFile(*pbpFile)
	}
	return loader.LoadSeason(context.Background(), *season)
}

func exportCSV(c *card.Card, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return report.WriteCSV(f, c)
}

func persist(c *card.Card, path string) error {
	s, err := store.Open(path)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := context.Background()
	for _, e := range c.Entries {
		if e.Err != nil {
			continue
		}
		if err := s.SavePrediction(ctx, e.Prediction); err != nil {
			return err
		}
		if err := s.SaveRecommendation(ctx, e.Recommendation); err != nil {
			return err
		}
	}
	return nil
}
