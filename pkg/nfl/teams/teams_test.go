package teams

import "testing"

func TestRegistryCoversAllTeams(t *testing.T) {
	if n := len(All()); n != 32 {
		t.Fatalf("registry has %d teams, want 32", n)
	}

	perDivision := make(map[Division]int)
	for _, abbr := range All() {
		info, err := Lookup(abbr)
		if err != nil {
			t.Fatalf("Lookup(%s): %v", abbr, err)
		}
		perDivision[info.Division]++
	}
	for div, n := range perDivision {
		if n != 4 {
			t.Errorf("division %s has %d teams, want 4", div, n)
		}
	}
}

func TestLookupUnknownTeam(t *testing.T) {
	if _, err := Lookup("XYZ"); err == nil {
		t.Error("expected error for unknown abbreviation")
	}
	if IsValid("XYZ") {
		t.Error("IsValid(XYZ) = true")
	}
	if !IsValid("KC") {
		t.Error("IsValid(KC) = false")
	}
}

func TestAreDivisionRivals(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"KC", "DEN", true},
		{"KC", "LV", true},
		{"KC", "BUF", false},
		{"GB", "CHI", true},
		{"KC", "KC", false},
	}
	for _, tt := range tests {
		got, err := AreDivisionRivals(tt.a, tt.b)
		if err != nil {
			t.Fatalf("AreDivisionRivals(%s, %s): %v", tt.a, tt.b, err)
		}
		if got != tt.want {
			t.Errorf("AreDivisionRivals(%s, %s) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestTimezoneGap(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"NE", "SEA", 3},
		{"SEA", "NE", 3},
		{"KC", "DEN", 1},
		{"KC", "CHI", 0},
		{"DEN", "SF", 1},
	}
	for _, tt := range tests {
		got, err := TimezoneGap(tt.a, tt.b)
		if err != nil {
			t.Fatalf("TimezoneGap(%s, %s): %v", tt.a, tt.b, err)
		}
		if got != tt.want {
			t.Errorf("TimezoneGap(%s, %s) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestVenueTraits(t *testing.T) {
	den, _ := Lookup("DEN")
	if !den.HighAltitude {
		t.Error("DEN should be high altitude")
	}

	min, _ := Lookup("MIN")
	if !min.Dome || !min.LoudStadium {
		t.Errorf("MIN traits = %+v, want dome and loud", min)
	}

	mia, _ := Lookup("MIA")
	if mia.HighAltitude || mia.Dome || mia.ColdWeather {
		t.Errorf("MIA traits = %+v, want none set", mia)
	}
}
