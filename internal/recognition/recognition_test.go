package recognition

import (
	"math"
	"testing"
)

func TestRecognize(t *testing.T) {
	cases := []struct {
		entryTitle  string
		chapterName string
		current     float64
		want        float64
	}{
		// explicit "ep." marker
		{"Mokushiroku Alice", "Mokushiroku Alice Vol.1 Ep. 4: Misrepresentation", -1, 4},
		{"My Title", "ep. 4", -1, 4},
		{"My Title", "Ep.4", -1, 4},

		// first bare number
		{"Bleach", "Bleach 567: Down With Snowwhite", -1, 567},
		{"Solanin", "Solanin 028 Vol. 2", -1, 28},

		// volume/version noise stripped
		{"Prison School", "Prison School 12 v.1", -1, 12},
		{"Onepunch-Man", "Onepunch-Man Punch Ver002 028", -1, 28},
		{"X", "X Vol.3 Ch.4", -1, 4},

		// decimal separators
		{"X", "X 28.5", -1, 28.5},
		{"X", "X 28,5", -1, 28.5},
		{"X", "X 28-5", -1, 28.5},

		// named suffixes
		{"Berserk", "Berserk 28 extra", -1, 28.99},
		{"X", "X 28 omake", -1, 28.98},
		{"X", "X 28 special", -1, 28.97},

		// the title strip removes every occurrence, so a one-letter title
		// eats into suffix words ("extra" -> "etra") and only the bare
		// number survives
		{"X", "X 28 extra", -1, 28},

		// alpha postfix: a=.1, b=.2, ... letters past j collapse to .0
		{"X", "X 28a", -1, 28.1},
		{"X", "X 28b", -1, 28.2},
		{"X", "X 28.c", -1, 28.3},
		{"X", "X 28z", -1, 28},

		// entry title digits must not be misread
		{"Ayame 14", "Ayame 14 1 - The journey begins", -1, 1},

		// suffix with no leading number run yields nothing
		{"X", "Chapter omake", -1, -1},
		{"X", "Special edition", -1, -1},

		// pinned values are never overwritten
		{"X", "X 99", 12, 12},
		{"X", "X 99", 0.4, 0.4},
		{"X", "X 99", -2, -2},

		// nothing recognizable
		{"X", "no numbers here", -1, -1},
	}

	for _, tc := range cases {
		t.Run(tc.chapterName, func(t *testing.T) {
			got := Recognize(tc.entryTitle, tc.chapterName, tc.current)
			if math.Abs(got-tc.want) > 1e-9 {
				t.Errorf("Recognize(%q, %q, %v) = %v, want %v", tc.entryTitle, tc.chapterName, tc.current, got, tc.want)
			}
		})
	}
}
