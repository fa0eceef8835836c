package anthropic

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Amount is a dollar amount decoded from a decimal string. Decoding never
// fails: null, empty or unparsable values decode to 0.
type Amount float64

// UnmarshalJSON accepts a JSON string, number or null.
func (a *Amount) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		// Not a string; fall back to the raw token (number or null).
		s = string(b)
	}
	*a = Amount(ParseAmount(s))
	return nil
}

// ParseAmount parses a decimal amount, returning 0 for anything that is
// not a finite number.
func ParseAmount(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
