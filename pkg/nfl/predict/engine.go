// Package predict composes team efficiency profiles with the situational
// adjustment modules into a calibrated spread, win probability, and
// confidence label.
package predict

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/spreadline/gridiron/pkg/logging"
	"github.com/spreadline/gridiron/pkg/nfl/adjust"
	"github.com/spreadline/gridiron/pkg/nfl/epa"
	"github.com/spreadline/gridiron/pkg/nfl/game"
)

// Confidence labels a prediction's reliability.
type Confidence string

const (
	ConfidenceLow    Confidence = "LOW"
	ConfidenceMedium Confidence = "MEDIUM"
	ConfidenceHigh   Confidence = "HIGH"
)

// Config holds the calibration constants.
type Config struct {
	// EPAPerPoint converts a net EPA differential to a point spread.
	EPAPerPoint float64

	// LogisticSlope maps the spread to a win probability.
	LogisticSlope float64

	// Confidence thresholds on absolute predicted margin.
	HighConfidenceMargin   float64
	MediumConfidenceMargin float64

	// ConflictRatio downgrades confidence one level when the combined
	// situational adjustment opposes the efficiency differential by at
	// least this share of its magnitude.
	ConflictRatio float64

	// GlobalNonEPACap bounds the combined effect of every non-efficiency
	// adjustment so situational factors never swamp measured play.
	GlobalNonEPACap float64
}

// DefaultConfig returns the calibrated prediction constants.
func DefaultConfig() Config {
	return Config{
		EPAPerPoint:            0.04,
		LogisticSlope:          0.25,
		HighConfidenceMargin:   7,
		MediumConfidenceMargin: 3,
		ConflictRatio:          0.25,
		GlobalNonEPACap:        0.060,
	}
}

// Component is one itemized contribution to the final differential.
type Component struct {
	Name   string  `json:"name"`
	EPA    float64 `json:"epa"`
	Points float64 `json:"points"`
}

// Result is one immutable prediction for a matchup. Margin is the predicted
// home-minus-away point margin: positive means the home team is favored.
// AnalyzedAt and GameDate are distinct on purpose; a Tuesday analysis of a
// Sunday game must record both.
type Result struct {
	ID         string    `json:"id"`
	HomeTeam   string    `json:"home_team"`
	AwayTeam   string    `json:"away_team"`
	GameDate   time.Time `json:"game_date"`
	AnalyzedAt time.Time `json:"analyzed_at"`

	Margin          float64    `json:"margin"`
	WinProbability  float64    `json:"win_probability"` // home team
	PredictedWinner string     `json:"predicted_winner"`
	Confidence      Confidence `json:"confidence"`

	Breakdown []Component `json:"breakdown"`

	// EnvironmentImpact is the total scoring effect of weather across both
	// teams. It cancels out of the margin but flags forecast dependence.
	EnvironmentImpact float64 `json:"environment_impact"`

	// InjuryImpact is the combined injury penalty across both teams. Equal
	// reports on both sides cancel out of the margin, but the prediction
	// still rests on injury inputs.
	InjuryImpact float64 `json:"injury_impact"`

	// InsufficientData marks a prediction built on sentinel profiles.
	// Confidence is forced to LOW and MissingInputs names the gaps.
	InsufficientData bool     `json:"insufficient_data"`
	MissingInputs    []string `json:"missing_inputs,omitempty"`
}

// Engine produces predictions. It is stateless; each call is a pure
// function of its inputs plus the construction-time configuration.
type Engine struct {
	config  Config
	modules *adjust.Modules
	log     *logrus.Logger
}

// NewEngine creates a prediction engine. Nil arguments use defaults.
func NewEngine(config *Config, modules *adjust.Modules) *Engine {
	cfg := DefaultConfig()
	if config != nil {
		cfg = *config
	}
	if modules == nil {
		modules = adjust.NewModules(nil)
	}
	return &Engine{config: cfg, modules: modules, log: logging.Get()}
}

// Predict composes the profiles and context into a prediction. The
// composition order is fixed: base efficiency differential, then every
// additive adjustment under the global cap, then rivalry compression on the
// accumulated net. Compression must run last because it operates on the
// net differential, not on any single input.
func (e *Engine) Predict(home, away *epa.TeamEfficiencyProfile, ctx *game.MatchupContext) (*Result, error) {
	if ctx == nil {
		return nil, fmt.Errorf("predict: nil matchup context")
	}
	if home == nil || away == nil {
		return nil, fmt.Errorf("predict %s: nil team profile", ctx.Matchup())
	}
	if err := ctx.Validate(); err != nil {
		return nil, err
	}

	r := &Result{
		ID:         uuid.NewString(),
		HomeTeam:   ctx.HomeTeam,
		AwayTeam:   ctx.AwayTeam,
		GameDate:   ctx.GameDate,
		AnalyzedAt: time.Now().UTC(),
	}

	if home.InsufficientData {
		r.InsufficientData = true
		r.MissingInputs = append(r.MissingInputs, ctx.HomeTeam+" efficiency profile")
	}
	if away.InsufficientData {
		r.InsufficientData = true
		r.MissingInputs = append(r.MissingInputs, ctx.AwayTeam+" efficiency profile")
	}

	baseDiff := home.NetEPA() - away.NetEPA()
	r.Breakdown = append(r.Breakdown, e.component("base_efficiency", baseDiff))

	deltas := e.modules.All(ctx)
	var nonEPA float64
	for _, d := range deltas {
		nonEPA += d.Net()
		r.Breakdown = append(r.Breakdown, e.component(d.Name, d.Net()))
		switch d.Name {
		case "weather":
			r.EnvironmentImpact = d.Home + d.Away
		case "injuries":
			r.InjuryImpact = d.Home + d.Away
		}
	}

	capped := clampAbs(nonEPA, e.config.GlobalNonEPACap)
	if capped != nonEPA {
		r.Breakdown = append(r.Breakdown, e.component("global_adjustment_cap", capped-nonEPA))
		e.log.WithFields(logrus.Fields{
			"matchup": ctx.Matchup(),
			"raw":     nonEPA,
			"capped":  capped,
		}).Info("Global adjustment cap applied")
	}

	netDiff := baseDiff + capped

	if rivalry := ctx.IsDivisionRivalry(); rivalry {
		compressed := e.modules.CompressRivalry(netDiff, true)
		r.Breakdown = append(r.Breakdown, e.component("division_rivalry", compressed-netDiff))
		netDiff = compressed
	}

	r.Margin = netDiff / e.config.EPAPerPoint
	r.WinProbability = 1 / (1 + math.Exp(-e.config.LogisticSlope*r.Margin))

	if r.Margin >= 0 {
		r.PredictedWinner = ctx.HomeTeam
	} else {
		r.PredictedWinner = ctx.AwayTeam
	}

	r.Confidence = e.confidence(r, baseDiff, capped)

	e.log.WithFields(logrus.Fields{
		"matchup":    ctx.Matchup(),
		"margin":     r.Margin,
		"win_prob":   r.WinProbability,
		"confidence": r.Confidence,
	}).Info("Prediction complete")

	return r, nil
}

// confidence grades the prediction by margin, forced to LOW whenever an
// input profile was the insufficient-data sentinel and downgraded one level
// when the situational adjustments pull hard against measured efficiency.
func (e *Engine) confidence(r *Result, baseDiff, adjustments float64) Confidence {
	if r.InsufficientData {
		return ConfidenceLow
	}

	abs := math.Abs(r.Margin)
	level := ConfidenceLow
	switch {
	case abs > e.config.HighConfidenceMargin:
		level = ConfidenceHigh
	case abs > e.config.MediumConfidenceMargin:
		level = ConfidenceMedium
	}

	opposed := baseDiff*adjustments < 0 &&
		math.Abs(adjustments) >= e.config.ConflictRatio*math.Abs(baseDiff)
	if opposed {
		level = downgrade(level)
	}
	return level
}

func downgrade(c Confidence) Confidence {
	if c == ConfidenceHigh {
		return ConfidenceMedium
	}
	return ConfidenceLow
}

func (e *Engine) component(name string, epaValue float64) Component {
	return Component{Name: name, EPA: epaValue, Points: epaValue / e.config.EPAPerPoint}
}

func clampAbs(v, limit float64) float64 {
	return math.Max(-limit, math.Min(limit, v))
}
