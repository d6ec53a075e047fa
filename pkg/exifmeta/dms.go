package exifmeta

import (
	"fmt"
	"slices"
	"strings"

	"github.com/codeGROOVE-dev/instaprobe/pkg/profile"
)

// Rational is an EXIF rational number.
type Rational struct {
	Num int64
	Den int64
}

// value returns the rational as a float, or "num/0" when the denominator is zero.
func (r Rational) value() any {
	if r.Den == 0 {
		return fmt.Sprintf("%d/0", r.Num)
	}
	return float64(r.Num) / float64(r.Den)
}

// ToDecimal converts a degrees/minutes/seconds triple into decimal degrees.
// Southern and western hemisphere references negate the result. It reports
// false for fewer than three components or a zero denominator.
func ToDecimal(dms []Rational, ref string) (float64, bool) {
	return toDecimal(dms, ref, "s", "south", "w", "west")
}

// toDecimal negates the result when ref is one of negRefs.
func toDecimal(dms []Rational, ref string, negRefs ...string) (float64, bool) {
	if len(dms) < 3 {
		return 0, false
	}
	var parts [3]float64
	for i := range parts {
		if dms[i].Den == 0 {
			return 0, false
		}
		parts[i] = float64(dms[i].Num) / float64(dms[i].Den)
	}
	deg := parts[0] + parts[1]/60 + parts[2]/3600
	if slices.Contains(negRefs, strings.ToLower(strings.TrimSpace(strings.TrimRight(ref, "\x00")))) {
		deg = -deg
	}
	return deg, true
}

// Coordinates converts GPS latitude and longitude triples with their
// hemisphere references into a coordinate pair. Latitude flips only on S,
// longitude only on W.
func Coordinates(lat []Rational, latRef string, lon []Rational, lonRef string) (profile.Coordinates, bool) {
	la, ok := toDecimal(lat, latRef, "s", "south")
	if !ok {
		return profile.Coordinates{}, false
	}
	lo, ok := toDecimal(lon, lonRef, "w", "west")
	if !ok {
		return profile.Coordinates{}, false
	}
	return profile.Coordinates{Lat: la, Lon: lo}, true
}
