// Package epa reduces play-by-play records into per-team efficiency
// profiles: season and recent-form EPA per play, situational splits, and a
// strength-of-schedule correction.
package epa

import (
	"errors"
	"math"

	"github.com/spreadline/gridiron/pkg/logging"
	"github.com/spreadline/gridiron/pkg/nfl/pbp"
)

// ErrInsufficientData marks a profile built from too small a sample. It is
// carried on the profile itself so a batch run keeps going; downstream
// consumers must treat the profile as missing data, not as a zero-EPA team.
var ErrInsufficientData = errors.New("insufficient play data for team")

// Config holds the aggregation parameters.
type Config struct {
	// RecentGames is the recent-form window size.
	RecentGames int

	// RecentFormWeight is the share of the blended figure taken from the
	// recent window. The remainder comes from the full season.
	RecentFormWeight float64

	// EPAClamp bounds every per-play EPA average in the profile. Figures
	// outside [-EPAClamp, +EPAClamp] are clamped before use.
	EPAClamp float64

	// MinPlays is the smallest per-window sample treated as real signal.
	MinPlays int

	// SOSWeight scales the opponent-strength correction.
	SOSWeight float64

	// ExplosiveYards is the gain threshold for an explosive play.
	ExplosiveYards int

	// RedZoneYardline marks the red zone (yards from the goal line).
	RedZoneYardline int

	// TwoMinuteSeconds marks the two-minute drill (half seconds remaining).
	TwoMinuteSeconds float64
}

// DefaultConfig returns the calibrated aggregation parameters.
func DefaultConfig() Config {
	return Config{
		RecentGames:      4,
		RecentFormWeight: 0.70,
		EPAClamp:         0.5,
		MinPlays:         50,
		SOSWeight:        0.30,
		ExplosiveYards:   20,
		RedZoneYardline:  20,
		TwoMinuteSeconds: 120,
	}
}

// SituationalRates are the conditional splits for one team's offense.
type SituationalRates struct {
	ThirdDownEPA      float64 `json:"third_down_epa"`
	ThirdDownConvRate float64 `json:"third_down_conv_rate"`
	RedZoneEPA        float64 `json:"red_zone_epa"`
	RedZoneTDRate     float64 `json:"red_zone_td_rate"`
	FourthQuarterEPA  float64 `json:"fourth_quarter_epa"`
	TwoMinuteEPA      float64 `json:"two_minute_epa"`
	ExplosivePlayRate float64 `json:"explosive_play_rate"`
}

// TeamEfficiencyProfile is one team's efficiency snapshot for an analysis
// window. All per-play EPA figures are clamped to the configured range.
// Profiles are built fresh per prediction and never mutated afterwards.
type TeamEfficiencyProfile struct {
	Team string `json:"team"`

	// Season means. Offensive EPA is per offensive snap; defensive EPA is
	// per snap allowed, so lower is better.
	OffensiveEPA float64 `json:"offensive_epa"`
	DefensiveEPA float64 `json:"defensive_epa"`

	// Recent-form means over the last RecentGames games.
	RecentOffensiveEPA float64 `json:"recent_offensive_epa"`
	RecentDefensiveEPA float64 `json:"recent_defensive_epa"`

	Situational SituationalRates `json:"situational"`

	// OpponentAdjustment is the net strength-of-schedule correction,
	// already weighted, to add to the blended net figure.
	OpponentAdjustment float64 `json:"opponent_adjustment"`

	OffensivePlays int `json:"offensive_plays"`
	DefensivePlays int `json:"defensive_plays"`

	// InsufficientData marks a sentinel profile. Its EPA fields are not
	// meaningful and must not be read as a real zero-EPA team.
	InsufficientData bool     `json:"insufficient_data"`
	MissingWindows   []string `json:"missing_windows,omitempty"`

	recentWeight float64
}

// BlendedOffense is the recent-form-weighted offensive EPA per play.
func (p *TeamEfficiencyProfile) BlendedOffense() float64 {
	return p.recentWeight*p.RecentOffensiveEPA + (1-p.recentWeight)*p.OffensiveEPA
}

// BlendedDefense is the recent-form-weighted defensive EPA allowed per play.
func (p *TeamEfficiencyProfile) BlendedDefense() float64 {
	return p.recentWeight*p.RecentDefensiveEPA + (1-p.recentWeight)*p.DefensiveEPA
}

// NetEPA is the opponent-adjusted net efficiency per play.
func (p *TeamEfficiencyProfile) NetEPA() float64 {
	return p.BlendedOffense() - p.BlendedDefense() + p.OpponentAdjustment
}

// Err returns ErrInsufficientData for sentinel profiles, nil otherwise.
func (p *TeamEfficiencyProfile) Err() error {
	if p.InsufficientData {
		return ErrInsufficientData
	}
	return nil
}

// Aggregator builds TeamEfficiencyProfiles from a play-by-play dataset.
type Aggregator struct {
	config Config
}

// NewAggregator creates an aggregator. A nil config uses the defaults.
func NewAggregator(config *Config) *Aggregator {
	cfg := DefaultConfig()
	if config != nil {
		cfg = *config
	}
	return &Aggregator{config: cfg}
}

// Profile reduces the dataset to one team's efficiency profile. A missing or
// undersized sample yields a sentinel profile, never a fabricated zero.
func (a *Aggregator) Profile(ds *pbp.Dataset, team string) *TeamEfficiencyProfile {
	p := &TeamEfficiencyProfile{Team: team, recentWeight: a.config.RecentFormWeight}

	if ds == nil {
		return a.insufficient(p, "season")
	}

	offense := ds.OffenseFor(team)
	defense := ds.DefenseFor(team)
	p.OffensivePlays = len(offense)
	p.DefensivePlays = len(defense)

	if len(offense) < a.config.MinPlays || len(defense) < a.config.MinPlays {
		return a.insufficient(p, "season")
	}

	p.OffensiveEPA = a.clamp(meanEPA(offense))
	p.DefensiveEPA = a.clamp(meanEPA(defense))

	recent := ds.RecentGames(team, a.config.RecentGames)
	recentOff := filterOffense(recent, team)
	recentDef := filterDefense(recent, team)
	if len(recentOff) == 0 || len(recentDef) == 0 {
		// No recent window; the blend degrades to the season figure.
		p.RecentOffensiveEPA = p.OffensiveEPA
		p.RecentDefensiveEPA = p.DefensiveEPA
		p.MissingWindows = append(p.MissingWindows, "recent_form")
	} else {
		p.RecentOffensiveEPA = a.clamp(meanEPA(recentOff))
		p.RecentDefensiveEPA = a.clamp(meanEPA(recentDef))
	}

	p.Situational = a.situational(offense)
	p.OpponentAdjustment = a.scheduleStrength(ds, team, offense, defense)

	return p
}

func (a *Aggregator) insufficient(p *TeamEfficiencyProfile, window string) *TeamEfficiencyProfile {
	p.InsufficientData = true
	p.MissingWindows = append(p.MissingWindows, window)
	logging.Get().WithFields(map[string]interface{}{
		"team":   p.Team,
		"window": window,
	}).Warn("Insufficient play data, emitting sentinel profile")
	return p
}

func (a *Aggregator) situational(offense []pbp.Play) SituationalRates {
	var s SituationalRates

	var third, redZone, fourthQ, twoMin []pbp.Play
	conversions, redZoneTDs, explosive := 0, 0, 0
	for _, p := range offense {
		if p.Down == 3 {
			third = append(third, p)
			if p.FirstDown || p.Touchdown {
				conversions++
			}
		}
		if p.YardlineToGoal > 0 && p.YardlineToGoal <= a.config.RedZoneYardline {
			redZone = append(redZone, p)
			if p.Touchdown {
				redZoneTDs++
			}
		}
		if p.Quarter == 4 {
			fourthQ = append(fourthQ, p)
		}
		if p.HalfSecondsRemaining > 0 && p.HalfSecondsRemaining <= a.config.TwoMinuteSeconds {
			twoMin = append(twoMin, p)
		}
		if p.YardsGained >= a.config.ExplosiveYards {
			explosive++
		}
	}

	if len(third) > 0 {
		s.ThirdDownEPA = a.clamp(meanEPA(third))
		s.ThirdDownConvRate = float64(conversions) / float64(len(third))
	}
	if len(redZone) > 0 {
		s.RedZoneEPA = a.clamp(meanEPA(redZone))
		s.RedZoneTDRate = float64(redZoneTDs) / float64(len(redZone))
	}
	if len(fourthQ) > 0 {
		s.FourthQuarterEPA = a.clamp(meanEPA(fourthQ))
	}
	if len(twoMin) > 0 {
		s.TwoMinuteEPA = a.clamp(meanEPA(twoMin))
	}
	if len(offense) > 0 {
		s.ExplosivePlayRate = float64(explosive) / float64(len(offense))
	}

	return s
}

// scheduleStrength corrects raw EPA for the quality of opposition faced.
// Offense vs stingy defenses is better than its raw number; defense tested
// by strong offenses is better than its raw number. Both corrections are
// relative to league average and scaled by SOSWeight.
func (a *Aggregator) scheduleStrength(ds *pbp.Dataset, team string, offense, defense []pbp.Play) float64 {
	leagueAvg := meanEPA(ds.Plays)

	opponentsFacedByOffense := make(map[string]bool)
	for _, p := range offense {
		opponentsFacedByOffense[p.Defense] = true
	}
	opponentsFacedByDefense := make(map[string]bool)
	for _, p := range defense {
		opponentsFacedByDefense[p.Offense] = true
	}

	// Average EPA allowed by the defenses this offense faced.
	var oppDefSum float64
	var oppDefN int
	for _, p := range ds.Plays {
		if opponentsFacedByOffense[p.Defense] && p.Offense != team {
			oppDefSum += p.EPA
			oppDefN++
		}
	}

	// Average EPA gained by the offenses this defense faced.
	var oppOffSum float64
	var oppOffN int
	for _, p := range ds.Plays {
		if opponentsFacedByDefense[p.Offense] && p.Defense != team {
			oppOffSum += p.EPA
			oppOffN++
		}
	}

	var adj float64
	if oppDefN > 0 {
		adj += a.config.SOSWeight * (leagueAvg - oppDefSum/float64(oppDefN))
	}
	if oppOffN > 0 {
		adj += a.config.SOSWeight * (oppOffSum/float64(oppOffN) - leagueAvg)
	}
	return adj
}

func (a *Aggregator) clamp(v float64) float64 {
	return math.Max(-a.config.EPAClamp, math.Min(a.config.EPAClamp, v))
}

func meanEPA(plays []pbp.Play) float64 {
	if len(plays) == 0 {
		return 0
	}
	var sum float64
	for _, p := range plays {
		sum += p.EPA
	}
	return sum / float64(len(plays))
}

func filterOffense(plays []pbp.Play, team string) []pbp.Play {
	var out []pbp.Play
	for _, p := range plays {
		if p.Offense == team {
			out = append(out, p)
		}
	}
	return out
}

func filterDefense(plays []pbp.Play, team string) []pbp.Play {
	var out []pbp.Play
	for _, p := range plays {
		if p.Defense == team {
			out = append(out, p)
		}
	}
	return out
}
