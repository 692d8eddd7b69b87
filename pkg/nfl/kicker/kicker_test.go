package kicker

import (
	"math"
	"testing"

	"github.com/spreadline/gridiron/pkg/nfl/game"
	"github.com/spreadline/gridiron/pkg/nfl/pbp"
)

func fgPlay(team string, distance int, made bool, quarter int) pbp.Play {
	return pbp.Play{
		GameID:           "g1",
		Offense:          team,
		Defense:          "OPP",
		FieldGoalAttempt: true,
		KickDistance:     distance,
		FieldGoalMade:    made,
		Quarter:          quarter,
	}
}

func TestRateBucketsAttempts(t *testing.T) {
	ds := &pbp.Dataset{Plays: []pbp.Play{
		fgPlay("SF", 25, true, 1),
		fgPlay("SF", 44, true, 2),
		fgPlay("SF", 52, false, 4),
		fgPlay("SF", 55, true, 4),
		{GameID: "g1", Offense: "SF", Defense: "OPP", EPA: 0.1}, // not a kick
	}}

	r := NewAnalyzer(nil).Rate(ds, "SF")

	if r.Attempts[Short] != 1 || r.Attempts[Mid] != 1 || r.Attempts[Long] != 2 {
		t.Errorf("attempts = %v, want [1 1 2]", r.Attempts)
	}
	if r.Made[Long] != 1 {
		t.Errorf("long made = %d, want 1", r.Made[Long])
	}
	if r.ClutchAttempts != 2 || r.ClutchMade != 1 {
		t.Errorf("clutch = %d/%d, want 1/2", r.ClutchMade, r.ClutchAttempts)
	}
}

func TestScoreIgnoresThinBuckets(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinAttempts = 3

	ds := &pbp.Dataset{Plays: []pbp.Play{
		fgPlay("SF", 55, true, 1),
		fgPlay("SF", 55, true, 1),
	}}

	r := NewAnalyzer(&cfg).Rate(ds, "SF")
	if r.Score != 0 {
		t.Errorf("score = %v, want 0 for sub-minimum sample", r.Score)
	}
}

func TestDifferentialFavorsBetterKicker(t *testing.T) {
	a := NewAnalyzer(nil)

	better := Rating{Team: "SF", Score: 0.10}
	worse := Rating{Team: "NYJ", Score: -0.05}

	diff := a.Differential(better, worse, game.Weather{TemperatureF: 60}, false)
	if diff <= 0 {
		t.Errorf("differential = %v, want positive for better home kicker", diff)
	}

	flipped := a.Differential(worse, better, game.Weather{TemperatureF: 60}, false)
	if math.Abs(diff+flipped) > 1e-9 {
		t.Errorf("differential not antisymmetric: %v vs %v", diff, flipped)
	}
}

func TestDifferentialWeatherDiscounts(t *testing.T) {
	a := NewAnalyzer(nil)
	home := Rating{Team: "SF", Score: 0.10}
	away := Rating{Team: "NYJ", Score: 0.0}

	calm := a.Differential(home, away, game.Weather{TemperatureF: 60}, false)
	windy := a.Differential(home, away, game.Weather{TemperatureF: 60, WindMPH: 20}, false)
	if windy >= calm {
		t.Errorf("wind should discount the edge: calm=%v windy=%v", calm, windy)
	}

	dome := a.Differential(home, away, game.Weather{TemperatureF: 60, WindMPH: 20, Dome: true}, false)
	if math.Abs(dome-calm) > 1e-9 {
		t.Errorf("dome game should ignore weather: dome=%v calm=%v", dome, calm)
	}
}

func TestEliteBonusApplies(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EliteBonus = map[string]float64{"BAL": 0.005}
	a := NewAnalyzer(&cfg)

	even := Rating{Team: "NYJ", Score: 0}
	elite := Rating{Team: "BAL", Score: 0}

	diff := a.Differential(elite, even, game.Weather{TemperatureF: 60}, false)
	if diff <= 0 {
		t.Errorf("differential = %v, want positive for elite-tier kicker", diff)
	}
}
