// Package game defines the externally supplied facts about one matchup: the
// teams, venue situation, injuries, weather, rest, and the market line the
// model is compared against.
package game

import (
	"fmt"
	"time"

	"github.com/spreadline/gridiron/pkg/nfl/teams"
)

// Position identifies an injury-relevant roster position.
type Position string

const (
	PosQB  Position = "QB"
	PosRB  Position = "RB"
	PosWR1 Position = "WR1"
	PosWR2 Position = "WR2"
	PosTE  Position = "TE"
	PosLT  Position = "LT"
	PosRT  Position = "RT"
	PosC   Position = "C"
	PosG   Position = "G"
	PosDE  Position = "DE"
	PosDT  Position = "DT"
	PosLB  Position = "LB"
	PosCB1 Position = "CB1"
	PosCB2 Position = "CB2"
	PosS   Position = "S"
	PosK   Position = "K"
)

// InjuryStatus is the official game-status designation.
type InjuryStatus string

const (
	StatusOut          InjuryStatus = "OUT"
	StatusDoubtful     InjuryStatus = "DOUBTFUL"
	StatusQuestionable InjuryStatus = "QUESTIONABLE"
	StatusProbable     InjuryStatus = "PROBABLE"
)

// Injury is one listed player on a team's injury report.
type Injury struct {
	Position Position     `json:"position"`
	Status   InjuryStatus `json:"status"`
	Starter  bool         `json:"starter"`
}

// Weather holds game-time conditions. Dome games should carry calm values;
// the weather module skips them via the Dome flag.
type Weather struct {
	TemperatureF  float64 `json:"temperature_f"`
	WindMPH       float64 `json:"wind_mph"`
	Precipitation bool    `json:"precipitation"`
	Dome          bool    `json:"dome"`
}

// MatchupContext carries everything situational about one game. It is
// supplied wholesale by the caller and validated once at the boundary; the
// analytics core never infers any of these facts.
type MatchupContext struct {
	HomeTeam string    `json:"home_team"`
	AwayTeam string    `json:"away_team"`
	GameDate time.Time `json:"game_date"`
	Playoff  bool      `json:"playoff"`

	Weather Weather `json:"weather"`

	HomeRestDays int  `json:"home_rest_days"`
	AwayRestDays int  `json:"away_rest_days"`
	ShortWeek    bool `json:"short_week"` // away team on a short turnaround

	HomeInjuries []Injury `json:"home_injuries,omitempty"`
	AwayInjuries []Injury `json:"away_injuries,omitempty"`

	// KickerEdge is the home-minus-away kicker quality differential in
	// EPA-equivalent per play, before the module cap. Typically produced
	// by the kicker analytics package.
	KickerEdge float64 `json:"kicker_edge"`

	NeutralSite bool `json:"neutral_site"`
}

// InvalidContextError rejects a malformed MatchupContext. The request is not
// recoverable; the caller must fix the input.
type InvalidContextError struct {
	Matchup string
	Field   string
	Reason  string
}

func (e *InvalidContextError) Error() string {
	return fmt.Sprintf("invalid matchup context for %s: %s: %s", e.Matchup, e.Field, e.Reason)
}

// Matchup formats the context's away-at-home identifier.
func (c *MatchupContext) Matchup() string {
	return c.AwayTeam + "@" + c.HomeTeam
}

// Validate checks the context at the boundary so later stages can assume a
// well-formed input.
func (c *MatchupContext) Validate() error {
	fail := func(field, reason string) error {
		return &InvalidContextError{Matchup: c.Matchup(), Field: field, Reason: reason}
	}

	if !teams.IsValid(c.HomeTeam) {
		return fail("home_team", fmt.Sprintf("unknown team %q", c.HomeTeam))
	}
	if !teams.IsValid(c.AwayTeam) {
		return fail("away_team", fmt.Sprintf("unknown team %q", c.AwayTeam))
	}
	if c.HomeTeam == c.AwayTeam {
		return fail("away_team", "home and away teams are identical")
	}
	if c.Weather.WindMPH < 0 {
		return fail("weather.wind_mph", "negative wind speed")
	}
	if c.Weather.TemperatureF < -30 || c.Weather.TemperatureF > 130 {
		return fail("weather.temperature_f", "outside plausible range")
	}
	if c.HomeRestDays < 0 || c.AwayRestDays < 0 {
		return fail("rest_days", "negative rest days")
	}
	for _, inj := range append(append([]Injury{}, c.HomeInjuries...), c.AwayInjuries...) {
		switch inj.Status {
		case StatusOut, StatusDoubtful, StatusQuestionable, StatusProbable:
		default:
			return fail("injuries", fmt.Sprintf("unknown injury status %q", inj.Status))
		}
	}
	return nil
}

// IsDivisionRivalry reports whether the two teams share a division.
func (c *MatchupContext) IsDivisionRivalry() bool {
	rivals, err := teams.AreDivisionRivals(c.HomeTeam, c.AwayTeam)
	if err != nil {
		return false
	}
	return rivals
}

// RestDifferential is home rest days minus away rest days.
func (c *MatchupContext) RestDifferential() int {
	return c.HomeRestDays - c.AwayRestDays
}

// MarketLine is the externally sourced sportsbook line for the matchup.
// Spread is from the home team's perspective: negative means the home team
// is favored.
type MarketLine struct {
	Spread    float64   `json:"spread"`
	Book      string    `json:"book,omitempty"`
	FetchedAt time.Time `json:"fetched_at,omitempty"`
}

// Validate applies basic range sanity; the line is otherwise trusted.
func (m *MarketLine) Validate() error {
	if m.Spread < -30 || m.Spread > 30 {
		return fmt.Errorf("market spread %.1f outside plausible range", m.Spread)
	}
	return nil
}
