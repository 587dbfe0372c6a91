package participant

import (
	"fmt"
	"regexp"
	"strconv"
)

var (
	screeningIDPattern     = regexp.MustCompile(`(?i)^S(\d+)$`)
	randomizationIDPattern = regexp.MustCompile(`(?i)^R(\d+)$`)
)

func nextToken(prefix string, pattern *regexp.Regexp, existing []string) string {
	max := 0
	for _, id := range existing {
		m := pattern.FindStringSubmatch(id)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		if n > max {
			max = n
		}
	}
	return fmt.Sprintf("%s%d", prefix, max+1)
}

// NextScreeningID returns the next sequential screening identifier given all
// identifiers currently assigned. Tokens that do not match S<n> are ignored.
func NextScreeningID(existing []string) string {
	return nextToken("S", screeningIDPattern, existing)
}

// NextRandomizationID returns the next sequential randomization identifier.
func NextRandomizationID(existing []string) string {
	return nextToken("R", randomizationIDPattern, existing)
}
