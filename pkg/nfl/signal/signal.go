// Package signal compares a model prediction to the sportsbook line,
// classifies the edge, and sizes a stake with Kelly-derived risk controls.
package signal

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/spreadline/gridiron/pkg/logging"
	"github.com/spreadline/gridiron/pkg/nfl/game"
	"github.com/spreadline/gridiron/pkg/nfl/predict"
)

// Tier classifies the strength of a betting signal.
type Tier string

const (
	TierStrong Tier = "STRONG"
	TierMedium Tier = "MEDIUM"
	TierLean   Tier = "LEAN"
	TierNoPlay Tier = "NO PLAY"
)

// Config holds the signal thresholds and sizing policy.
type Config struct {
	// Edge thresholds in points. Ties go to the higher threshold's tier;
	// anything below LeanEdge is a pass.
	StrongEdge float64
	MediumEdge float64
	LeanEdge   float64

	// KellyFraction scales the full Kelly stake (0.25 = quarter-Kelly).
	KellyFraction float64

	// MaxStakePct is the hard bankroll ceiling regardless of Kelly output.
	MaxStakePct float64

	// KeyNumbers are margins where outcomes cluster; crossing one between
	// model and market halves the stake.
	KeyNumbers          []float64
	KeyNumberMultiplier float64

	// LowConfidenceStakePct caps the stake on LOW-confidence predictions.
	LowConfidenceStakePct float64

	// PickemEpsilon bounds the spread treated as a true pick-em, and
	// PickemReferenceSpread is the fixed denominator used for the edge
	// percentage there, since a ratio against zero is meaningless.
	PickemEpsilon         float64
	PickemReferenceSpread float64

	// AmericanOdds prices the spread bet (-110 is standard juice).
	AmericanOdds int
}

// DefaultConfig returns the standard signal policy.
func DefaultConfig() Config {
	return Config{
		StrongEdge:            3.0,
		MediumEdge:            2.5,
		LeanEdge:              1.5,
		KellyFraction:         0.25,
		MaxStakePct:           0.05,
		KeyNumbers:            []float64{3, 7},
		KeyNumberMultiplier:   0.5,
		LowConfidenceStakePct: 0.005,
		PickemEpsilon:         0.01,
		PickemReferenceSpread: 3.0,
		AmericanOdds:          -110,
	}
}

// IncompletePredictionError rejects a prediction missing a field the sizing
// math needs. Nothing is defaulted; the recommendation fails by itself.
type IncompletePredictionError struct {
	Matchup string
	Field   string
}

func (e *IncompletePredictionError) Error() string {
	return fmt.Sprintf("prediction for %s missing %s, cannot size a recommendation", e.Matchup, e.Field)
}

// Recommendation is one immutable sizing decision for a (prediction, line,
// bankroll) triple.
type Recommendation struct {
	ID        string    `json:"id"`
	Matchup   string    `json:"matchup"`
	CreatedAt time.Time `json:"created_at"`

	Tier Tier   `json:"tier"`
	Side string `json:"side"` // team to back

	ModelMargin  float64 `json:"model_margin"`  // home minus away
	MarketSpread float64 `json:"market_spread"` // book convention, negative = home favored
	EdgePoints   float64 `json:"edge_points"`
	EdgePercent  float64 `json:"edge_percent"`

	FullKelly     float64         `json:"full_kelly"`
	StakeFraction float64         `json:"stake_fraction"`
	Stake         decimal.Decimal `json:"stake"`
	Bankroll      decimal.Decimal `json:"bankroll"`

	Reasons  []string `json:"reasons"`
	Warnings []string `json:"warnings"`
}

// Generator turns predictions into betting recommendations. Stateless; each
// call is a pure function of its three inputs.
type Generator struct {
	config Config
	log    *logrus.Logger
}

// NewGenerator creates a signal generator. A nil config uses the defaults.
func NewGenerator(config *Config) *Generator {
	cfg := DefaultConfig()
	if config != nil {
		cfg = *config
	}
	return &Generator{config: cfg, log: logging.Get()}
}

// Generate compares the prediction to the market line and sizes a stake.
func (g *Generator) Generate(pred *predict.Result, line *game.MarketLine, bankroll decimal.Decimal) (*Recommendation, error) {
	if pred == nil {
		return nil, fmt.Errorf("nil prediction")
	}
	matchup := pred.AwayTeam + "@" + pred.HomeTeam
	if line == nil {
		return nil, fmt.Errorf("no market line for %s", matchup)
	}
	if err := line.Validate(); err != nil {
		return nil, fmt.Errorf("market line for %s: %w", matchup, err)
	}
	if math.IsNaN(pred.Margin) || math.IsInf(pred.Margin, 0) {
		return nil, &IncompletePredictionError{Matchup: matchup, Field: "margin"}
	}
	if math.IsNaN(pred.WinProbability) || pred.WinProbability <= 0 || pred.WinProbability >= 1 {
		return nil, &IncompletePredictionError{Matchup: matchup, Field: "win_probability"}
	}

	r := &Recommendation{
		ID:           uuid.NewString(),
		Matchup:      matchup,
		CreatedAt:    time.Now().UTC(),
		ModelMargin:  pred.Margin,
		MarketSpread: line.Spread,
		Bankroll:     bankroll,
		Stake:        decimal.Zero,
	}

	// Positive edge backs the home side: the market spread plus the model
	// margin is how many points of value the home line holds.
	signedEdge := line.Spread + pred.Margin
	r.EdgePoints = math.Abs(signedEdge)
	if signedEdge >= 0 {
		r.Side = pred.HomeTeam
	} else {
		r.Side = pred.AwayTeam
	}

	r.EdgePercent = g.edgePercent(r.EdgePoints, line.Spread)
	r.Tier = g.tier(r.EdgePoints)

	r.Reasons = append(r.Reasons, fmt.Sprintf("model margin %+.1f vs market %+.1f: %.1f points of value on %s",
		pred.Margin, line.Spread, r.EdgePoints, r.Side))

	g.collectWarnings(r, pred, line)

	if r.Tier == TierNoPlay {
		r.Reasons = append(r.Reasons, fmt.Sprintf("edge %.2f below actionable threshold %.1f", r.EdgePoints, g.config.LeanEdge))
		return r, nil
	}

	g.size(r, pred)

	g.log.WithFields(logrus.Fields{
		"matchup": matchup,
		"tier":    r.Tier,
		"side":    r.Side,
		"edge":    r.EdgePoints,
		"stake":   r.Stake,
	}).Info("Recommendation generated")

	return r, nil
}

// edgePercent reports the edge relative to the market line, or to the fixed
// reference spread when the market is a true pick-em. Dividing by a
// near-zero spread is a designed branch, not a guarded fault.
func (g *Generator) edgePercent(edgePoints, marketSpread float64) float64 {
	denom := math.Abs(marketSpread)
	if denom <= g.config.PickemEpsilon {
		denom = g.config.PickemReferenceSpread
	}
	return edgePoints / denom * 100
}

func (g *Generator) tier(edgePoints float64) Tier {
	switch {
	case edgePoints >= g.config.StrongEdge:
		return TierStrong
	case edgePoints >= g.config.MediumEdge:
		return TierMedium
	case edgePoints >= g.config.LeanEdge:
		return TierLean
	default:
		return TierNoPlay
	}
}

func (g *Generator) size(r *Recommendation, pred *predict.Result) {
	p := pred.WinProbability
	if r.Side == pred.AwayTeam {
		p = 1 - p
	}

	b := payout(g.config.AmericanOdds)
	full := (b*p - (1 - p)) / b
	r.FullKelly = full
	if full <= 0 {
		r.Reasons = append(r.Reasons, "model probability does not clear the price, no stake")
		return
	}

	stake := full * g.config.KellyFraction
	r.Reasons = append(r.Reasons, fmt.Sprintf("quarter-Kelly of full %.3f at %+d odds", full, g.config.AmericanOdds))

	if g.crossesKeyNumber(pred.Margin, -r.MarketSpread) {
		stake *= g.config.KeyNumberMultiplier
	}

	if stake > g.config.MaxStakePct {
		stake = g.config.MaxStakePct
	}

	if pred.Confidence == predict.ConfidenceLow && stake > g.config.LowConfidenceStakePct {
		stake = g.config.LowConfidenceStakePct
		r.Warnings = append(r.Warnings, fmt.Sprintf("stake capped at %.1f%% of bankroll for LOW confidence", stake*100))
	}

	r.StakeFraction = stake
	r.Stake = r.Bankroll.Mul(decimal.NewFromFloat(stake)).Round(2)
}

// crossesKeyNumber reports whether the model and market margins straddle or
// sit on a key number on either side of zero.
func (g *Generator) crossesKeyNumber(modelMargin, marketMargin float64) bool {
	for _, k := range g.config.KeyNumbers {
		for _, key := range []float64{k, -k} {
			a := modelMargin - key
			b := marketMargin - key
			if a*b <= 0 {
				return true
			}
		}
	}
	return false
}

func (g *Generator) collectWarnings(r *Recommendation, pred *predict.Result, line *game.MarketLine) {
	if g.crossesKeyNumber(pred.Margin, -line.Spread) {
		r.Warnings = append(r.Warnings, "line crosses a key number between model and market, stake reduced")
	}
	if pred.Confidence == predict.ConfidenceLow {
		r.Warnings = append(r.Warnings, "low model confidence")
	}
	if pred.InjuryImpact != 0 {
		r.Warnings = append(r.Warnings, "edge depends on injury report inputs")
	}
	if pred.EnvironmentImpact != 0 {
		r.Warnings = append(r.Warnings, "edge depends on forecast weather inputs")
	}
	if len(pred.MissingInputs) > 0 {
		r.Warnings = append(r.Warnings, fmt.Sprintf("prediction built without: %v", pred.MissingInputs))
	}
}

// payout converts American odds to decimal payout odds minus one.
func payout(american int) float64 {
	if american > 0 {
		return float64(american) / 100
	}
	return 100 / math.Abs(float64(american))
}
