// Package scoring rates canonical lead records on a 0-100 scale. The
// rubric is the pricing basis for settlement and must stay stable: filter
// thresholds stored on import configs assume these exact weights.
package scoring

import (
	"fmt"
	"regexp"
)

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern = regexp.MustCompile(`^\+?[\d\s\-()]{10,}$`)
)

// Score applies the additive quality rubric:
//
//	valid email              +30
//	plausible phone          +25
//	first and last name      +20 (one of the two: +10)
//	address with city+state  +15
//	demographics with >2 keys +10
//
// The total is capped at 100. Pure and deterministic.
func Score(lead map[string]any) int {
	score := 0
	if emailPattern.MatchString(asString(lead["email"])) {
		score += 30
	}
	if phonePattern.MatchString(asString(lead["phone"])) {
		score += 25
	}
	hasFirst := asString(lead["first_name"]) != ""
	hasLast := asString(lead["last_name"]) != ""
	switch {
	case hasFirst && hasLast:
		score += 20
	case hasFirst || hasLast:
		score += 10
	}
	if address, ok := lead["address"].(map[string]any); ok {
		if asString(address["city"]) != "" && asString(address["state"]) != "" {
			score += 15
		}
	}
	if demographics, ok := lead["demographics"].(map[string]any); ok && len(demographics) > 2 {
		score += 10
	}
	if score > 100 {
		score = 100
	}
	return score
}

func asString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return fmt.Sprint(v)
	}
}
