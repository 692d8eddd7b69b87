// Package teams holds NFL team metadata: divisions, timezones, and venue
// traits used by the situational adjustment modules.
package teams

import "fmt"

// Division identifies one of the eight NFL divisions.
type Division string

const (
	AFCEast  Division = "AFC_EAST"
	AFCNorth Division = "AFC_NORTH"
	AFCSouth Division = "AFC_SOUTH"
	AFCWest  Division = "AFC_WEST"
	NFCEast  Division = "NFC_EAST"
	NFCNorth Division = "NFC_NORTH"
	NFCSouth Division = "NFC_SOUTH"
	NFCWest  Division = "NFC_WEST"
)

// Timezone is a coarse US timezone bucket used for travel adjustments.
type Timezone string

const (
	Eastern  Timezone = "ET"
	Central  Timezone = "CT"
	Mountain Timezone = "MT"
	Pacific  Timezone = "PT"
)

// tzOrder maps timezones to an east-to-west ordinal for gap computation.
var tzOrder = map[Timezone]int{
	Eastern:  0,
	Central:  1,
	Mountain: 2,
	Pacific:  3,
}

// Info describes one team.
type Info struct {
	Abbreviation string
	Division     Division
	Timezone     Timezone

	// Venue traits (home games only).
	HighAltitude bool // recognized high-altitude venue (Mile High)
	Dome         bool
	LoudStadium  bool
	ColdWeather  bool
}

var registry = map[string]Info{
	// AFC East
	"BUF": {Abbreviation: "BUF", Division: AFCEast, Timezone: Eastern, LoudStadium: true, ColdWeather: true},
	"MIA": {Abbreviation: "MIA", Division: AFCEast, Timezone: Eastern},
	"NE":  {Abbreviation: "NE", Division: AFCEast, Timezone: Eastern, ColdWeather: true},
	"NYJ": {Abbreviation: "NYJ", Division: AFCEast, Timezone: Eastern},

	// AFC North
	"BAL": {Abbreviation: "BAL", Division: AFCNorth, Timezone: Eastern},
	"CIN": {Abbreviation: "CIN", Division: AFCNorth, Timezone: Eastern},
	"CLE": {Abbreviation: "CLE", Division: AFCNorth, Timezone: Eastern},
	"PIT": {Abbreviation: "PIT", Division: AFCNorth, Timezone: Eastern},

	// AFC South
	"HOU": {Abbreviation: "HOU", Division: AFCSouth, Timezone: Central},
	"IND": {Abbreviation: "IND", Division: AFCSouth, Timezone: Eastern},
	"JAX": {Abbreviation: "JAX", Division: AFCSouth, Timezone: Eastern},
	"TEN": {Abbreviation: "TEN", Division: AFCSouth, Timezone: Central},

	// AFC West
	"DEN": {Abbreviation: "DEN", Division: AFCWest, Timezone: Mountain, HighAltitude: true, ColdWeather: true},
	"KC":  {Abbreviation: "KC", Division: AFCWest, Timezone: Central, LoudStadium: true},
	"LV":  {Abbreviation: "LV", Division: AFCWest, Timezone: Pacific, Dome: true},
	"LAC": {Abbreviation: "LAC", Division: AFCWest, Timezone: Pacific},

	// NFC East
	"DAL": {Abbreviation: "DAL", Division: NFCEast, Timezone: Central, LoudStadium: true},
	"NYG": {Abbreviation: "NYG", Division: NFCEast, Timezone: Eastern},
	"PHI": {Abbreviation: "PHI", Division: NFCEast, Timezone: Eastern, LoudStadium: true},
	"WAS": {Abbreviation: "WAS", Division: NFCEast, Timezone: Eastern},

	// NFC North
	"CHI": {Abbreviation: "CHI", Division: NFCNorth, Timezone: Central, ColdWeather: true},
	"DET": {Abbreviation: "DET", Division: NFCNorth, Timezone: Eastern, Dome: true},
	"GB":  {Abbreviation: "GB", Division: NFCNorth, Timezone: Central, LoudStadium: true, ColdWeather: true},
	"MIN": {Abbreviation: "MIN", Division: NFCNorth, Timezone: Central, Dome: true, LoudStadium: true},

	// NFC South
	"ATL": {Abbreviation: "ATL", Division: NFCSouth, Timezone: Eastern, Dome: true},
	"CAR": {Abbreviation: "CAR", Division: NFCSouth, Timezone: Eastern},
	"NO":  {Abbreviation: "NO", Division: NFCSouth, Timezone: Central, Dome: true, LoudStadium: true},
	"TB":  {Abbreviation: "TB", Division: NFCSouth, Timezone: Eastern},

	// NFC West
	"ARI": {Abbreviation: "ARI", Division: NFCWest, Timezone: Mountain, Dome: true},
	"LA":  {Abbreviation: "LA", Division: NFCWest, Timezone: Pacific, Dome: true},
	"SF":  {Abbreviation: "SF", Division: NFCWest, Timezone: Pacific},
	"SEA": {Abbreviation: "SEA", Division: NFCWest, Timezone: Pacific, LoudStadium: true},
}

// Lookup returns the metadata for a team abbreviation.
func Lookup(abbr string) (Info, error) {
	info, ok := registry[abbr]
	if !ok {
		return Info{}, fmt.Errorf("unknown team abbreviation %q", abbr)
	}
	return info, nil
}

// IsValid reports whether abbr is a rostered NFL team.
func IsValid(abbr string) bool {
	_, ok := registry[abbr]
	return ok
}

// All returns every registered team abbreviation.
func All() []string {
	abbrs := make([]string, 0, len(registry))
	for abbr := range registry {
		abbrs = append(abbrs, abbr)
	}
	return abbrs
}

// AreDivisionRivals reports whether two teams share a division.
func AreDivisionRivals(a, b string) (bool, error) {
	ta, err := Lookup(a)
	if err != nil {
		return false, err
	}
	tb, err := Lookup(b)
	if err != nil {
		return false, err
	}
	return a != b && ta.Division == tb.Division, nil
}

// TimezoneGap returns the absolute number of timezone buckets between two
// teams' home markets (0-3).
func TimezoneGap(a, b string) (int, error) {
	ta, err := Lookup(a)
	if err != nil {
		return 0, err
	}
	tb, err := Lookup(b)
	if err != nil {
		return 0, err
	}
	gap := tzOrder[ta.Timezone] - tzOrder[tb.Timezone]
	if gap < 0 {
		gap = -gap
	}
	return gap, nil
}
