// Package phone validates, normalizes and splits Swedish phone numbers as
// entered by users.
package phone

import (
	"regexp"
	"strings"
)

// CountryPrefix is the international prefix for Sweden. Numbers carrying it
// are rewritten to the national form with a single leading zero.
const CountryPrefix = "+46"

// groupPattern splits a national number into its area code and subscriber
// part. Patterns are tried in order and the first match wins.
type groupPattern struct {
	re *regexp.Regexp
}

var groupPatterns = []groupPattern{
	// Stockholm: 08 + 7 digits
	{re: regexp.MustCompile(`^(08)(\d{7})$`)},
	// 3-digit area codes (mobile 07x included)
	{re: regexp.MustCompile(`^(0\d{2})(\d{5,7})$`)},
	// 4-digit area codes
	{re: regexp.MustCompile(`^(0\d{3})(\d{4,6})$`)},
}

// nationalLength matches any national number accepted by one of groupPatterns.
var nationalLength = regexp.MustCompile(`^(08\d{7}|0\d{2}\d{5,7}|0\d{3}\d{4,6})$`)

// StripSpaces removes every whitespace character from s.
func StripSpaces(s string) string {
	return strings.Join(strings.Fields(s), "")
}

// toNational replaces a leading country prefix with a single zero.
func toNational(s string) string {
	if strings.HasPrefix(s, CountryPrefix) {
		return "0" + s[len(CountryPrefix):]
	}
	return s
}

// Normalize returns the canonical dashed form of raw, e.g.
// "+46 70 123 45 67" -> "070-1234567". Input matching none of the group
// patterns is returned stripped and prefix-converted but otherwise unchanged.
func Normalize(raw string) string {
	num := toNational(StripSpaces(raw))
	for _, p := range groupPatterns {
		if p.re.MatchString(num) {
			return p.re.ReplaceAllString(num, "$1-$2")
		}
	}
	return num
}
