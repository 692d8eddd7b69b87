// Package pbp defines the play-by-play data contract the analytics core
// consumes, and a loader for nflverse-shaped CSV exports.
package pbp

// Play is a single offensive snap with its precomputed expected-points-added
// value. Fields mirror the nflverse play-by-play column set the model needs;
// anything else in the source data is ignored.
type Play struct {
	GameID  string
	Season  int
	Week    int
	Offense string // posteam
	Defense string // defteam

	Down                 int
	YardsToGo            int
	YardlineToGoal       int // yards from the opponent end zone (yardline_100)
	Quarter              int
	HalfSecondsRemaining float64
	ScoreDifferential    int

	IsPass      bool
	IsRush      bool
	YardsGained int
	Touchdown   bool
	FirstDown   bool

	// Field goal fields (zero-valued on non-kick plays).
	FieldGoalAttempt bool
	KickDistance     int
	FieldGoalMade    bool

	EPA float64
}

// Dataset is one season (or season slice) of plays.
type Dataset struct {
	Season int
	Plays  []Play
}

// OffenseFor returns the plays where team had possession.
func (d *Dataset) OffenseFor(team string) []Play {
	return d.filter(func(p Play) bool { return p.Offense == team })
}

// DefenseFor returns the plays where team was defending.
func (d *Dataset) DefenseFor(team string) []Play {
	return d.filter(func(p Play) bool { return p.Defense == team })
}

// GameIDs returns the distinct game IDs involving team, in dataset order.
// nflverse exports are ordered chronologically, so the tail of this slice is
// the team's most recent games.
func (d *Dataset) GameIDs(team string) []string {
	seen := make(map[string]bool)
	var ids []string
	for _, p := range d.Plays {
		if p.Offense != team && p.Defense != team {
			continue
		}
		if !seen[p.GameID] {
			seen[p.GameID] = true
			ids = append(ids, p.GameID)
		}
	}
	return ids
}

// RecentGames returns all plays from team's last n games.
func (d *Dataset) RecentGames(team string, n int) []Play {
	ids := d.GameIDs(team)
	if len(ids) > n {
		ids = ids[len(ids)-n:]
	}
	recent := make(map[string]bool, len(ids))
	for _, id := range ids {
		recent[id] = true
	}
	return d.filter(func(p Play) bool {
		return recent[p.GameID] && (p.Offense == team || p.Defense == team)
	})
}

func (d *Dataset) filter(keep func(Play) bool) []Play {
	var out []Play
	for _, p := range d.Plays {
		if keep(p) {
			out = append(out, p)
		}
	}
	return out
}
