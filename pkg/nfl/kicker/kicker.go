// Package kicker rates placekickers from field-goal attempts by distance
// bucket and converts the home/away quality gap into an EPA-equivalent
// differential for the prediction pipeline.
package kicker

import (
	"math"

	"github.com/spreadline/gridiron/pkg/nfl/game"
	"github.com/spreadline/gridiron/pkg/nfl/pbp"
)

// Bucket is a field-goal distance range.
type Bucket int

const (
	Short Bucket = iota // under 40 yards
	Mid                 // 40-49 yards
	Long                // 50 and beyond
	numBuckets
)

// Config holds the rating parameters.
type Config struct {
	// LeaguePct is the baseline make rate per bucket.
	LeaguePct [numBuckets]float64

	// BucketWeights scale each bucket's over/under-performance. Long legs
	// separate kickers more than chip shots do.
	BucketWeights [numBuckets]float64

	// MinAttempts per bucket before a kicker's own rate is trusted over
	// the league baseline.
	MinAttempts int

	// ScoreToEPA converts a weighted make-rate surplus to EPA per play.
	ScoreToEPA float64

	// ClutchWeight blends in the late-game make rate for playoff games.
	ClutchWeight float64

	// EliteBonus is a manual per-team EPA bump for recognized elite
	// kickers, applied on top of the measured rate.
	EliteBonus map[string]float64

	// Weather multipliers applied to the final differential.
	WindMultiplier   float64 // wind above WindThresholdMPH
	PrecipMultiplier float64
	ColdMultiplier   float64 // temperature below freezing

	WindThresholdMPH float64
}

// DefaultConfig returns the calibrated kicker parameters.
func DefaultConfig() Config {
	return Config{
		LeaguePct:     [numBuckets]float64{0.92, 0.78, 0.62},
		BucketWeights: [numBuckets]float64{0.20, 0.35, 0.45},
		MinAttempts:   3,
		ScoreToEPA:    0.05,
		ClutchWeight:  0.30,
		EliteBonus: map[string]float64{
			"BAL": 0.005, // Tucker-tier boot
			"KC":  0.003,
		},
		WindMultiplier:   0.70,
		PrecipMultiplier: 0.85,
		ColdMultiplier:   0.90,
		WindThresholdMPH: 15,
	}
}

// Rating is one team's kicker performance summary.
type Rating struct {
	Team     string          `json:"team"`
	Attempts [numBuckets]int `json:"attempts"`
	Made     [numBuckets]int `json:"made"`

	// ClutchAttempts/ClutchMade cover fourth-quarter and two-minute kicks.
	ClutchAttempts int `json:"clutch_attempts"`
	ClutchMade     int `json:"clutch_made"`

	// Score is the weighted make-rate surplus over league baseline.
	Score float64 `json:"score"`
}

// Analyzer rates kickers from play-by-play data.
type Analyzer struct {
	config Config
}

// NewAnalyzer creates an analyzer. A nil config uses the defaults.
func NewAnalyzer(config *Config) *Analyzer {
	cfg := DefaultConfig()
	if config != nil {
		cfg = *config
	}
	return &Analyzer{config: cfg}
}

func bucketFor(distance int) Bucket {
	switch {
	case distance < 40:
		return Short
	case distance < 50:
		return Mid
	default:
		return Long
	}
}

// Rate summarizes a team's field-goal attempts in the dataset.
func (a *Analyzer) Rate(ds *pbp.Dataset, team string) Rating {
	r := Rating{Team: team}
	if ds == nil {
		r.Score = a.score(&r)
		return r
	}

	for _, p := range ds.OffenseFor(team) {
		if !p.FieldGoalAttempt || p.KickDistance <= 0 {
			continue
		}
		b := bucketFor(p.KickDistance)
		r.Attempts[b]++
		if p.FieldGoalMade {
			r.Made[b]++
		}
		if p.Quarter == 4 || (p.HalfSecondsRemaining > 0 && p.HalfSecondsRemaining <= 120) {
			r.ClutchAttempts++
			if p.FieldGoalMade {
				r.ClutchMade++
			}
		}
	}

	r.Score = a.score(&r)
	return r
}

// score computes the weighted surplus over league baseline, falling back to
// the baseline itself (zero surplus) for thin buckets.
func (a *Analyzer) score(r *Rating) float64 {
	var s float64
	for b := Short; b < numBuckets; b++ {
		if r.Attempts[b] < a.config.MinAttempts {
			continue
		}
		pct := float64(r.Made[b]) / float64(r.Attempts[b])
		s += a.config.BucketWeights[b] * (pct - a.config.LeaguePct[b])
	}
	return s
}

// Differential converts two ratings into a home-minus-away EPA-equivalent
// edge, weather-adjusted and clutch-weighted for playoff games. The result
// is uncapped; the adjustment module applies the hard cap.
func (a *Analyzer) Differential(home, away Rating, wx game.Weather, playoff bool) float64 {
	homeScore := home.Score + a.config.EliteBonus[home.Team]
	awayScore := away.Score + a.config.EliteBonus[away.Team]

	diff := (homeScore - awayScore) * a.config.ScoreToEPA / a.totalWeight()

	if playoff {
		diff = (1-a.config.ClutchWeight)*diff + a.config.ClutchWeight*a.clutchDiff(home, away)
	}

	if !wx.Dome {
		if wx.WindMPH > a.config.WindThresholdMPH {
			diff *= a.config.WindMultiplier
		}
		if wx.Precipitation {
			diff *= a.config.PrecipMultiplier
		}
		if wx.TemperatureF < 32 {
			diff *= a.config.ColdMultiplier
		}
	}

	return diff
}

func (a *Analyzer) totalWeight() float64 {
	var w float64
	for b := Short; b < numBuckets; b++ {
		w += a.config.BucketWeights[b]
	}
	if w == 0 {
		return 1
	}
	return w
}

func (a *Analyzer) clutchDiff(home, away Rating) float64 {
	return (clutchPct(home) - clutchPct(away)) * a.config.ScoreToEPA
}

func clutchPct(r Rating) float64 {
	if r.ClutchAttempts < 2 {
		return 0
	}
	pct := float64(r.ClutchMade) / float64(r.ClutchAttempts)
	return math.Max(-1, math.Min(1, pct-0.80))
}
