package signal

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/spreadline/gridiron/pkg/nfl/game"
	"github.com/spreadline/gridiron/pkg/nfl/predict"
)

func prediction(margin, winProb float64, conf predict.Confidence) *predict.Result {
	return &predict.Result{
		ID:             "test",
		HomeTeam:       "KC",
		AwayTeam:       "MIA",
		Margin:         margin,
		WinProbability: winProb,
		Confidence:     conf,
	}
}

func bankroll() decimal.Decimal {
	return decimal.NewFromInt(10000)
}

func TestTierBoundaries(t *testing.T) {
	g := NewGenerator(nil)

	tests := []struct {
		edge float64
		want Tier
	}{
		{3.0, TierStrong},
		{2.999, TierMedium},
		{2.5, TierMedium},
		{1.5, TierLean},
		{1.49, TierNoPlay},
	}
	for _, tt := range tests {
		pred := prediction(tt.edge, 0.55, predict.ConfidenceMedium)
		r, err := g.Generate(pred, &game.MarketLine{Spread: 0}, bankroll())
		if err != nil {
			t.Fatalf("Generate(edge=%v): %v", tt.edge, err)
		}
		if r.Tier != tt.want {
			t.Errorf("edge %v: tier = %s, want %s", tt.edge, r.Tier, tt.want)
		}
	}
}

func TestPickemEdgePercentFallback(t *testing.T) {
	g := NewGenerator(nil)

	pred := prediction(1.5, 0.55, predict.ConfidenceMedium)
	r, err := g.Generate(pred, &game.MarketLine{Spread: 0}, bankroll())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	// Pick-em: edge percent scales against the reference spread of 3.0.
	want := 1.5 / 3.0 * 100
	if math.Abs(r.EdgePercent-want) > 1e-9 {
		t.Errorf("edge percent = %v, want %v", r.EdgePercent, want)
	}
}

func TestEdgePercentAgainstMarket(t *testing.T) {
	g := NewGenerator(nil)

	pred := prediction(6.0, 0.65, predict.ConfidenceMedium)
	r, err := g.Generate(pred, &game.MarketLine{Spread: -4.0}, bankroll())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if math.Abs(r.EdgePoints-2.0) > 1e-9 {
		t.Errorf("edge points = %v, want 2.0", r.EdgePoints)
	}
	if math.Abs(r.EdgePercent-50.0) > 1e-9 {
		t.Errorf("edge percent = %v, want 50", r.EdgePercent)
	}
}

func TestSideSelection(t *testing.T) {
	g := NewGenerator(nil)

	// Model likes the home team more than the market does.
	home := prediction(6.0, 0.65, predict.ConfidenceMedium)
	r, err := g.Generate(home, &game.MarketLine{Spread: -4.0}, bankroll())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if r.Side != "KC" {
		t.Errorf("side = %s, want KC", r.Side)
	}

	// Model likes the away team.
	away := prediction(-5.0, 0.35, predict.ConfidenceMedium)
	r, err = g.Generate(away, &game.MarketLine{Spread: 2.0}, bankroll())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if r.Side != "MIA" {
		t.Errorf("side = %s, want MIA", r.Side)
	}
	if math.Abs(r.EdgePoints-3.0) > 1e-9 {
		t.Errorf("edge points = %v, want 3.0", r.EdgePoints)
	}
}

func TestQuarterKellyAtEvenMoney(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AmericanOdds = 100 // even money, b = 1.0
	g := NewGenerator(&cfg)

	// Margin 6.5 vs market -5.0 keeps both margins between the 3 and 7
	// key numbers, so no key-number halving applies.
	pred := prediction(6.5, 0.6, predict.ConfidenceHigh)
	r, err := g.Generate(pred, &game.MarketLine{Spread: -5.0}, bankroll())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if math.Abs(r.FullKelly-0.2) > 1e-9 {
		t.Errorf("full Kelly = %v, want 0.2", r.FullKelly)
	}
	if math.Abs(r.StakeFraction-0.05) > 1e-9 {
		t.Errorf("stake fraction = %v, want quarter-Kelly 0.05", r.StakeFraction)
	}
	if !r.Stake.Equal(decimal.NewFromInt(500)) {
		t.Errorf("stake = %s, want 500", r.Stake)
	}
}

func TestKeyNumberHalvesStake(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AmericanOdds = 100
	g := NewGenerator(&cfg)

	// Model margin 6.5, market margin 2.5: the pair straddles 3.
	pred := prediction(6.5, 0.6, predict.ConfidenceHigh)
	r, err := g.Generate(pred, &game.MarketLine{Spread: -2.5}, bankroll())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if math.Abs(r.StakeFraction-0.025) > 1e-9 {
		t.Errorf("stake fraction = %v, want halved 0.025", r.StakeFraction)
	}
	found := false
	for _, w := range r.Warnings {
		if strings.Contains(w, "key number") {
			found = true
		}
	}
	if !found {
		t.Errorf("warnings = %v, want key-number warning", r.Warnings)
	}
}

func TestStakeCeiling(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AmericanOdds = 300 // generous odds to force a huge Kelly
	g := NewGenerator(&cfg)

	pred := prediction(6.5, 0.9, predict.ConfidenceHigh)
	r, err := g.Generate(pred, &game.MarketLine{Spread: -5.0}, bankroll())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if r.StakeFraction > 0.05+1e-9 {
		t.Errorf("stake fraction = %v, exceeds 5%% ceiling", r.StakeFraction)
	}
}

func TestLowConfidenceStakeCeiling(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AmericanOdds = 100
	g := NewGenerator(&cfg)

	// STRONG edge but LOW confidence: stake must stay under the floor
	// ceiling and carry warnings, not silently zero out.
	pred := prediction(6.5, 0.7, predict.ConfidenceLow)
	r, err := g.Generate(pred, &game.MarketLine{Spread: -2.0}, bankroll())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if r.Tier != TierStrong {
		t.Fatalf("tier = %s, want STRONG", r.Tier)
	}
	if r.StakeFraction > 0.005+1e-9 {
		t.Errorf("stake fraction = %v, exceeds LOW-confidence ceiling", r.StakeFraction)
	}
	if r.StakeFraction <= 0 {
		t.Error("stake zeroed silently instead of capped")
	}
	found := false
	for _, w := range r.Warnings {
		if strings.Contains(w, "low model confidence") {
			found = true
		}
	}
	if !found {
		t.Errorf("warnings = %v, want low-confidence warning", r.Warnings)
	}
}

func TestNoPlayHasNoStake(t *testing.T) {
	g := NewGenerator(nil)

	pred := prediction(1.0, 0.55, predict.ConfidenceMedium)
	r, err := g.Generate(pred, &game.MarketLine{Spread: 0}, bankroll())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if r.Tier != TierNoPlay {
		t.Fatalf("tier = %s, want NO PLAY", r.Tier)
	}
	if !r.Stake.IsZero() {
		t.Errorf("stake = %s, want zero", r.Stake)
	}
}

func TestEquallyInjuredTeamsStillWarn(t *testing.T) {
	g := NewGenerator(nil)

	// Equal injury burdens net to zero in the breakdown; the warning keys
	// on the combined impact, not the differential.
	pred := prediction(6.0, 0.65, predict.ConfidenceMedium)
	pred.Breakdown = []predict.Component{{Name: "injuries", EPA: 0}}
	pred.InjuryImpact = -0.060

	r, err := g.Generate(pred, &game.MarketLine{Spread: -4.0}, bankroll())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	found := false
	for _, w := range r.Warnings {
		if strings.Contains(w, "injury") {
			found = true
		}
	}
	if !found {
		t.Errorf("warnings = %v, want injury dependence flagged", r.Warnings)
	}
}

func TestIncompletePredictionErrors(t *testing.T) {
	g := NewGenerator(nil)

	pred := prediction(math.NaN(), 0.6, predict.ConfidenceMedium)
	_, err := g.Generate(pred, &game.MarketLine{Spread: -3}, bankroll())
	var incomplete *IncompletePredictionError
	if !errors.As(err, &incomplete) {
		t.Fatalf("expected IncompletePredictionError, got %v", err)
	}
	if incomplete.Field != "margin" {
		t.Errorf("field = %s, want margin", incomplete.Field)
	}
	if !strings.Contains(err.Error(), "MIA@KC") {
		t.Errorf("error %q does not name the matchup", err)
	}

	pred = prediction(3.0, 0, predict.ConfidenceMedium)
	_, err = g.Generate(pred, &game.MarketLine{Spread: -3}, bankroll())
	if !errors.As(err, &incomplete) {
		t.Fatalf("expected IncompletePredictionError, got %v", err)
	}
	if incomplete.Field != "win_probability" {
		t.Errorf("field = %s, want win_probability", incomplete.Field)
	}
}

func TestInjuryAndWeatherWarnings(t *testing.T) {
	g := NewGenerator(nil)

	pred := prediction(6.0, 0.65, predict.ConfidenceMedium)
	pred.InjuryImpact = -0.02
	pred.EnvironmentImpact = -0.02

	r, err := g.Generate(pred, &game.MarketLine{Spread: -4.0}, bankroll())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	var injury, weather bool
	for _, w := range r.Warnings {
		if strings.Contains(w, "injury") {
			injury = true
		}
		if strings.Contains(w, "weather") {
			weather = true
		}
	}
	if !injury || !weather {
		t.Errorf("warnings = %v, want injury and weather dependence flagged", r.Warnings)
	}
}
