// Package adjust holds the situational adjustment modules. Each module is a
// pure function of the matchup context returning a bounded per-team EPA
// delta; the prediction engine sums the deltas and applies the rivalry
// compression to the accumulated net differential.
package adjust

import (
	"math"

	"github.com/spreadline/gridiron/pkg/nfl/game"
	"github.com/spreadline/gridiron/pkg/nfl/teams"
)

// Delta is one module's contribution, split per team so symmetric effects
// (weather) stay visible in the breakdown even when their net is zero.
type Delta struct {
	Name string  `json:"name"`
	Home float64 `json:"home"`
	Away float64 `json:"away"`
}

// Net is the home-minus-away effect on the EPA differential.
func (d Delta) Net() float64 {
	return d.Home - d.Away
}

// Config holds every module's constants and caps.
type Config struct {
	HomeFieldEPA float64
	AltitudeEPA  float64

	FanNoiseBaseEPA float64
	FanNoiseLoudEPA float64
	FanNoiseDomeEPA float64
	FanNoiseCap     float64

	RestEPAPerDay float64
	RestCap       float64

	InjuryPositionWeights map[game.Position]float64
	InjuryStatusWeights   map[game.InjuryStatus]float64
	BackupWeight          float64
	InjuryPerTeamCap      float64

	ColdPenaltyEPA   float64
	WindPenaltyEPA   float64
	PrecipPenaltyEPA float64
	ColdThresholdF   float64
	WindThresholdMPH float64
	WeatherCap       float64

	TravelTZPenalty     map[int]float64
	ShortWeekMultiplier float64
	TravelCap           float64 // most negative allowed penalty

	KickerCap float64

	RivalryCompression float64
}

// DefaultConfig returns the calibrated adjustment constants.
func DefaultConfig() Config {
	return Config{
		HomeFieldEPA: 0.029,
		AltitudeEPA:  0.018,

		FanNoiseBaseEPA: 0.004,
		FanNoiseLoudEPA: 0.003,
		FanNoiseDomeEPA: 0.002,
		FanNoiseCap:     0.009,

		RestEPAPerDay: 0.005,
		RestCap:       0.035,

		InjuryPositionWeights: map[game.Position]float64{
			game.PosQB:  0.040,
			game.PosRB:  0.010,
			game.PosWR1: 0.020,
			game.PosWR2: 0.012,
			game.PosTE:  0.025,
			game.PosLT:  0.030,
			game.PosRT:  0.025,
			game.PosC:   0.020,
			game.PosG:   0.015,
			game.PosDE:  0.025,
			game.PosDT:  0.015,
			game.PosLB:  0.010,
			game.PosCB1: 0.018,
			game.PosCB2: 0.012,
			game.PosS:   0.012,
			game.PosK:   0.005,
		},
		InjuryStatusWeights: map[game.InjuryStatus]float64{
			game.StatusOut:          1.0,
			game.StatusDoubtful:     0.8,
			game.StatusQuestionable: 0.5,
			game.StatusProbable:     0.2,
		},
		BackupWeight:     0.3,
		InjuryPerTeamCap: 0.030,

		ColdPenaltyEPA:   -0.010,
		WindPenaltyEPA:   -0.015,
		PrecipPenaltyEPA: -0.010,
		ColdThresholdF:   32,
		WindThresholdMPH: 15,
		WeatherCap:       0.030,

		TravelTZPenalty: map[int]float64{
			0: 0,
			1: -0.007,
			2: -0.012,
			3: -0.018,
		},
		ShortWeekMultiplier: 1.5,
		TravelCap:           -0.027,

		KickerCap: 0.015,

		RivalryCompression: 0.18,
	}
}

// Modules evaluates the adjustment set against one matchup context.
type Modules struct {
	config Config
}

// NewModules creates the module set. A nil config uses the defaults.
func NewModules(config *Config) *Modules {
	cfg := DefaultConfig()
	if config != nil {
		cfg = *config
	}
	return &Modules{config: cfg}
}

// HomeField credits the fixed home-field value, plus the altitude bonus at
// recognized high-altitude venues. Neutral-site games get neither.
func (m *Modules) HomeField(ctx *game.MatchupContext) Delta {
	d := Delta{Name: "home_field"}
	if ctx.NeutralSite {
		return d
	}
	d.Home = m.config.HomeFieldEPA
	if info, err := teams.Lookup(ctx.HomeTeam); err == nil && info.HighAltitude {
		d.Home += m.config.AltitudeEPA
	}
	return d
}

// FanNoise credits the home crowd: a base boost, extra at known loud venues
// and domes, capped.
func (m *Modules) FanNoise(ctx *game.MatchupContext) Delta {
	d := Delta{Name: "fan_noise"}
	if ctx.NeutralSite {
		return d
	}
	boost := m.config.FanNoiseBaseEPA
	if info, err := teams.Lookup(ctx.HomeTeam); err == nil {
		if info.LoudStadium {
			boost += m.config.FanNoiseLoudEPA
		}
		if info.Dome {
			boost += m.config.FanNoiseDomeEPA
		}
	}
	d.Home = math.Min(boost, m.config.FanNoiseCap)
	return d
}

// Rest credits the better-rested team per extra day, capped in both
// directions.
func (m *Modules) Rest(ctx *game.MatchupContext) Delta {
	d := Delta{Name: "rest_differential"}
	adj := float64(ctx.RestDifferential()) * m.config.RestEPAPerDay
	d.Home = clampAbs(adj, m.config.RestCap)
	return d
}

// Injuries converts each team's injury report into a position-weighted,
// status-scaled penalty, capped per team.
func (m *Modules) Injuries(ctx *game.MatchupContext) Delta {
	return Delta{
		Name: "injuries",
		Home: -m.teamInjuryImpact(ctx.HomeInjuries),
		Away: -m.teamInjuryImpact(ctx.AwayInjuries),
	}
}

func (m *Modules) teamInjuryImpact(report []game.Injury) float64 {
	var impact float64
	for _, inj := range report {
		w := m.config.InjuryPositionWeights[inj.Position] * m.config.InjuryStatusWeights[inj.Status]
		if !inj.Starter {
			w *= m.config.BackupWeight
		}
		impact += w
	}
	return clampAbs(impact, m.config.InjuryPerTeamCap)
}

// Weather penalizes cold, wind, and precipitation. The penalty hits both
// teams equally, so its net differential effect is zero; it is still
// reported for the scoring-environment breakdown. Dome games are exempt.
func (m *Modules) Weather(ctx *game.MatchupContext) Delta {
	d := Delta{Name: "weather"}
	if ctx.Weather.Dome {
		return d
	}
	var impact float64
	if ctx.Weather.TemperatureF < m.config.ColdThresholdF {
		impact += m.config.ColdPenaltyEPA
	}
	if ctx.Weather.WindMPH > m.config.WindThresholdMPH {
		impact += m.config.WindPenaltyEPA
	}
	if ctx.Weather.Precipitation {
		impact += m.config.PrecipPenaltyEPA
	}
	impact = clampAbs(impact, m.config.WeatherCap)
	d.Home = impact / 2
	d.Away = impact / 2
	return d
}

// Travel penalizes the away team per timezone crossed, worse on a short
// week, floored at the travel cap.
func (m *Modules) Travel(ctx *game.MatchupContext) Delta {
	d := Delta{Name: "travel"}
	gap, err := teams.TimezoneGap(ctx.HomeTeam, ctx.AwayTeam)
	if err != nil {
		return d
	}
	penalty := m.config.TravelTZPenalty[gap]
	if ctx.ShortWeek {
		penalty *= m.config.ShortWeekMultiplier
	}
	if penalty < m.config.TravelCap {
		penalty = m.config.TravelCap
	}
	d.Away = penalty
	return d
}

// Kicker applies the supplied kicker-quality differential under its hard
// cap. The cap keeps a great leg relevant in close games without letting it
// dominate the model.
func (m *Modules) Kicker(ctx *game.MatchupContext) Delta {
	return Delta{
		Name: "kicker",
		Home: clampAbs(ctx.KickerEdge, m.config.KickerCap),
	}
}

// All evaluates every additive module. The rivalry compression is not in
// this list: it is multiplicative on the accumulated net differential and
// must run after the sum.
func (m *Modules) All(ctx *game.MatchupContext) []Delta {
	return []Delta{
		m.HomeField(ctx),
		m.FanNoise(ctx),
		m.Rest(ctx),
		m.Injuries(ctx),
		m.Weather(ctx),
		m.Travel(ctx),
		m.Kicker(ctx),
	}
}

// CompressRivalry shrinks a net differential toward zero for division
// games. Division matchups play closer than raw efficiency suggests.
func (m *Modules) CompressRivalry(netDiff float64, rivalry bool) float64 {
	if !rivalry {
		return netDiff
	}
	return netDiff * (1 - m.config.RivalryCompression)
}

func clampAbs(v, limit float64) float64 {
	return math.Max(-limit, math.Min(limit, v))
}
