package adjust

import (
	"math"
	"math/rand"
	"testing"

	"github.com/spreadline/gridiron/pkg/nfl/game"
)

func baseContext() *game.MatchupContext {
	return &game.MatchupContext{
		HomeTeam:     "KC",
		AwayTeam:     "BUF",
		Weather:      game.Weather{TemperatureF: 50},
		HomeRestDays: 7,
		AwayRestDays: 7,
	}
}

func TestHomeFieldAndAltitude(t *testing.T) {
	m := NewModules(nil)

	d := m.HomeField(baseContext())
	if math.Abs(d.Net()-0.029) > 1e-9 {
		t.Errorf("home field = %v, want 0.029", d.Net())
	}

	den := baseContext()
	den.HomeTeam = "DEN"
	d = m.HomeField(den)
	if math.Abs(d.Net()-(0.029+0.018)) > 1e-9 {
		t.Errorf("Denver home field = %v, want 0.047", d.Net())
	}

	neutral := baseContext()
	neutral.NeutralSite = true
	if d := m.HomeField(neutral); d.Net() != 0 {
		t.Errorf("neutral site home field = %v, want 0", d.Net())
	}
}

func TestFanNoiseCapped(t *testing.T) {
	m := NewModules(nil)

	// KC is loud but open-air: base + loud = 0.007.
	d := m.FanNoise(baseContext())
	if math.Abs(d.Net()-0.007) > 1e-9 {
		t.Errorf("KC fan noise = %v, want 0.007", d.Net())
	}

	// MIN is loud and a dome: base + loud + dome = 0.009 = cap.
	ctx := baseContext()
	ctx.HomeTeam = "MIN"
	d = m.FanNoise(ctx)
	if d.Net() > 0.009+1e-9 {
		t.Errorf("fan noise = %v, exceeds cap 0.009", d.Net())
	}
}

func TestRestCapped(t *testing.T) {
	m := NewModules(nil)

	ctx := baseContext()
	ctx.HomeRestDays = 14
	ctx.AwayRestDays = 6
	d := m.Rest(ctx)
	if math.Abs(d.Net()-0.035) > 1e-9 {
		t.Errorf("rest = %v, want capped 0.035", d.Net())
	}

	ctx.HomeRestDays = 4
	ctx.AwayRestDays = 20
	d = m.Rest(ctx)
	if math.Abs(d.Net()+0.035) > 1e-9 {
		t.Errorf("rest = %v, want capped -0.035", d.Net())
	}

	ctx.HomeRestDays = 9
	ctx.AwayRestDays = 7
	d = m.Rest(ctx)
	if math.Abs(d.Net()-0.010) > 1e-9 {
		t.Errorf("rest = %v, want 0.010", d.Net())
	}
}

func TestInjuriesWeightedAndCapped(t *testing.T) {
	m := NewModules(nil)

	ctx := baseContext()
	ctx.HomeInjuries = []game.Injury{
		{Position: game.PosWR1, Status: game.StatusQuestionable, Starter: true},
	}
	d := m.Injuries(ctx)
	if math.Abs(d.Home-(-0.020*0.5)) > 1e-9 {
		t.Errorf("home injury impact = %v, want -0.010", d.Home)
	}

	// A decimated roster still caps at the per-team maximum.
	ctx.HomeInjuries = []game.Injury{
		{Position: game.PosQB, Status: game.StatusOut, Starter: true},
		{Position: game.PosLT, Status: game.StatusOut, Starter: true},
		{Position: game.PosWR1, Status: game.StatusOut, Starter: true},
		{Position: game.PosC, Status: game.StatusOut, Starter: true},
	}
	d = m.Injuries(ctx)
	if math.Abs(d.Home) > 0.030+1e-9 {
		t.Errorf("home injury impact = %v, exceeds cap 0.030", d.Home)
	}

	// Backups weigh less than starters.
	ctx.HomeInjuries = []game.Injury{{Position: game.PosRB, Status: game.StatusOut, Starter: false}}
	d = m.Injuries(ctx)
	if math.Abs(d.Home-(-0.010*0.3)) > 1e-9 {
		t.Errorf("backup injury impact = %v, want -0.003", d.Home)
	}
}

func TestWeatherSymmetricAndCapped(t *testing.T) {
	m := NewModules(nil)

	ctx := baseContext()
	ctx.Weather = game.Weather{TemperatureF: 20, WindMPH: 22, Precipitation: true}
	d := m.Weather(ctx)
	if d.Net() != 0 {
		t.Errorf("weather net = %v, want 0 (symmetric)", d.Net())
	}
	total := d.Home + d.Away
	if math.Abs(total) > 0.030+1e-9 {
		t.Errorf("weather impact = %v, exceeds cap 0.030", total)
	}
	// Raw impact -0.035 (cold, wind, precip) capped to -0.030.
	if math.Abs(total-(-0.030)) > 1e-9 {
		t.Errorf("weather impact = %v, want -0.030", total)
	}

	ctx.Weather.Dome = true
	if d := m.Weather(ctx); d.Home != 0 || d.Away != 0 {
		t.Errorf("dome weather = %+v, want zero", d)
	}
}

func TestTravelPenalty(t *testing.T) {
	m := NewModules(nil)

	// SEA traveling to KC crosses two timezones.
	ctx := baseContext()
	ctx.AwayTeam = "SEA"
	d := m.Travel(ctx)
	if math.Abs(d.Away-(-0.012)) > 1e-9 {
		t.Errorf("travel = %v, want -0.012", d.Away)
	}
	if math.Abs(d.Net()-0.012) > 1e-9 {
		t.Errorf("travel net = %v, want +0.012 for home", d.Net())
	}

	// Short week multiplies, then the cap floors a cross-country trip.
	ctx.ShortWeek = true
	d = m.Travel(ctx)
	if math.Abs(d.Away-(-0.018)) > 1e-9 {
		t.Errorf("short-week travel = %v, want -0.018", d.Away)
	}

	ctx.HomeTeam = "MIA"
	ctx.AwayTeam = "SF"
	d = m.Travel(ctx)
	if math.Abs(d.Away-(-0.027)) > 1e-9 {
		t.Errorf("capped travel = %v, want -0.027", d.Away)
	}
}

func TestKickerHardCap(t *testing.T) {
	m := NewModules(nil)

	ctx := baseContext()
	ctx.KickerEdge = 0.2 // absurd input, cap must hold
	if d := m.Kicker(ctx); math.Abs(d.Net()-0.015) > 1e-9 {
		t.Errorf("kicker = %v, want capped 0.015", d.Net())
	}
	ctx.KickerEdge = -0.2
	if d := m.Kicker(ctx); math.Abs(d.Net()+0.015) > 1e-9 {
		t.Errorf("kicker = %v, want capped -0.015", d.Net())
	}
	ctx.KickerEdge = 0.008
	if d := m.Kicker(ctx); math.Abs(d.Net()-0.008) > 1e-9 {
		t.Errorf("kicker = %v, want uncapped 0.008", d.Net())
	}
}

func TestCompressRivalry(t *testing.T) {
	m := NewModules(nil)

	if got := m.CompressRivalry(0, true); got != 0 {
		t.Errorf("compressing zero differential = %v, want 0", got)
	}
	if got := m.CompressRivalry(0.10, false); got != 0.10 {
		t.Errorf("non-rivalry compression = %v, want unchanged", got)
	}
	if got := m.CompressRivalry(0.10, true); math.Abs(got-0.082) > 1e-9 {
		t.Errorf("rivalry compression = %v, want 0.082", got)
	}
	if got := m.CompressRivalry(-0.10, true); math.Abs(got+0.082) > 1e-9 {
		t.Errorf("rivalry compression = %v, want -0.082", got)
	}
}

func TestAdditiveOrderIndependence(t *testing.T) {
	m := NewModules(nil)

	ctx := baseContext()
	ctx.AwayTeam = "SEA"
	ctx.HomeRestDays = 10
	ctx.AwayRestDays = 6
	ctx.KickerEdge = 0.01
	ctx.Weather = game.Weather{TemperatureF: 25, WindMPH: 18}
	ctx.HomeInjuries = []game.Injury{{Position: game.PosLT, Status: game.StatusOut, Starter: true}}

	deltas := m.All(ctx)

	var want float64
	for _, d := range deltas {
		want += d.Net()
	}

	rng := rand.New(rand.NewSource(1))
	for trial := 0; trial < 20; trial++ {
		shuffled := append([]Delta(nil), deltas...)
		rng.Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})
		var got float64
		for _, d := range shuffled {
			got += d.Net()
		}
		if math.Abs(got-want) > 1e-12 {
			t.Fatalf("permuted sum = %v, want %v", got, want)
		}
	}
}
