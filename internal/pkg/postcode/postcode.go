// Package postcode normalises UK postcode input before geocoding.
package postcode

import (
	"regexp"
	"strings"
)

var (
	nonAlnum = regexp.MustCompile(`[^A-Za-z0-9]`)
	// outward code then the inward code: digit + two letters
	ukShape = regexp.MustCompile(`^[A-Z]{1,2}[0-9][A-Z0-9]?[0-9][A-Z]{2}$`)
)

// NormaliseUK formats tokens that look like UK postcodes ("ls270bn" →
// "LS27 0BN", "M314qn" → "M31 4QN"). Anything else, such as a full address
// or place name, is returned trimmed but otherwise untouched, so the
// geocoder still sees the original query.
func NormaliseUK(value string) string {
	if value == "" {
		return value
	}

	raw := strings.ToUpper(nonAlnum.ReplaceAllString(value, ""))

	if len(raw) < 5 || len(raw) > 7 || !ukShape.MatchString(raw) {
		return strings.TrimSpace(value)
	}

	return raw[:len(raw)-3] + " " + raw[len(raw)-3:]
}
