// Package recognition extracts a numeric chapter/episode ordinal from a
// free-text chapter name. Sources rarely agree on naming, so this is a
// heuristic cascade: strip noise, prefer an explicit "ep." marker, then fall
// back to the first bare number run.
package recognition

import (
	"regexp"
	"strconv"
	"strings"
)

const numberPattern = `([0-9]+)(\.[0-9]+)?(\.?[a-z]+)?`

var (
	// Explicit marker: "Mokushiroku Alice Vol.1 Ep. 4: Misrepresentation" -> 4
	basic = regexp.MustCompile(`ep\. *` + numberPattern)

	// First number anywhere: "Bleach 567: Down With Snowwhite" -> 567
	number = regexp.MustCompile(numberPattern)

	// Volume/version/season noise: "Prison School 12 v.1 vol004 version1243" -> "Prison School 12"
	unwanted = regexp.MustCompile(`\b(?:v|ver|vol|version|volume|season|s)[^a-z]?[0-9]+`)

	// Whitespace before a suffix word keeps it attached to the number run:
	// "One Piece 12 special" -> "One Piece 12special"
	unwantedWhiteSpace = regexp.MustCompile(`\s(extra|special|omake)`)
)

// Recognize returns the chapter number found in chapterName, or current when
// nothing can be extracted. A current of -2 (explicitly unknown) or > -1
// (already recognized) is pinned and returned unchanged; pass -1 for "not
// recognized yet".
func Recognize(entryTitle, chapterName string, current float64) float64 {
	if current == -2 || current > -1 {
		return current
	}

	name := strings.ToLower(chapterName)

	// Remove the entry title so its digits are never misread as a chapter
	// number.
	name = strings.TrimSpace(strings.ReplaceAll(name, strings.ToLower(entryTitle), ""))

	// Commas and hyphens act as decimal separators in the wild.
	name = strings.ReplaceAll(name, ",", ".")
	name = strings.ReplaceAll(name, "-", ".")

	name = unwantedWhiteSpace.ReplaceAllString(name, "$1")
	name = unwanted.ReplaceAllString(name, "")

	if m := basic.FindStringSubmatch(name); m != nil {
		return numberFromMatch(m)
	}
	if m := number.FindStringSubmatch(name); m != nil {
		return numberFromMatch(m)
	}

	return current
}

func numberFromMatch(m []string) float64 {
	initial, _ := strconv.ParseFloat(m[1], 64)
	return initial + fractionalAddition(m[2], m[3])
}

// fractionalAddition maps the decimal or alpha suffix groups to the value
// added to the integer part. Named suffixes get fixed slots just under the
// next whole number so they sort after regular sub-chapters.
func fractionalAddition(decimal, alpha string) float64 {
	if decimal != "" {
		v, _ := strconv.ParseFloat(decimal, 64)
		return v
	}

	if alpha != "" {
		if strings.Contains(alpha, "extra") {
			return 0.99
		}
		if strings.Contains(alpha, "omake") {
			return 0.98
		}
		if strings.Contains(alpha, "special") {
			return 0.97
		}

		trimmed := strings.TrimLeft(alpha, ".")
		if len(trimmed) == 1 {
			return alphaPostfix(trimmed[0])
		}
	}

	return 0
}

// alphaPostfix: x.a -> x.1, x.b -> x.2, etc.
func alphaPostfix(c byte) float64 {
	n := int(c) - 'a' + 1
	if n >= 10 {
		return 0
	}
	return float64(n) / 10
}
