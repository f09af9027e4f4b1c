package constants

import (
	"strings"
)

type Stamp string

const (
	StampBB    Stamp = "BB"
	StampAB    Stamp = "AB"
	StampFK    Stamp = "FK"
	StampS     Stamp = "S"
	StampOther Stamp = "other"
)

var allStamps = []Stamp{
	StampBB,
	StampAB,
	StampFK,
	StampS,
	StampOther,
}

func StampCodes() []string {
	result := make([]string, len(allStamps))
	for i, s := range allStamps {
		result[i] = string(s)
	}
	return result
}

// CanonicalizeStamp maps model output onto the closed stamp set.
// Unrecognized non-empty input becomes StampOther with ok=false.
func CanonicalizeStamp(input string) (Stamp, bool) {
	normalized := strings.ToUpper(strings.TrimSpace(input))
	if normalized == "" {
		return "", false
	}

	synonyms := map[string]Stamp{
		"B.B.":  StampBB,
		"A.B.":  StampAB,
		"F.K.":  StampFK,
		"S.":    StampS,
		"OTHER": StampOther,
	}
	if s, ok := synonyms[normalized]; ok {
		return s, true
	}

	for _, s := range allStamps {
		if normalized == strings.ToUpper(string(s)) {
			return s, true
		}
	}
	return StampOther, false
}
