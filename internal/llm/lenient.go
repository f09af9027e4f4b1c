package llm

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"math"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/docuextract/constants"
	"github.com/joseph-ayodele/docuextract/internal/common"
)

var (
	stringFields = []string{"name", "address", "postalcode", "city", "birthday", "date", "time", "stamp"}
	boolFields   = []string{"handwritten", "signed"}
)

// StripCodeFences removes ```json / ``` markers and any prose around the JSON object.
func StripCodeFences(text string) string {
	s := strings.TrimSpace(text)
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```JSON", "")
	s = strings.ReplaceAll(s, "```", "")
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "{") {
		return s
	}
	start, end := strings.IndexByte(s, '{'), strings.LastIndexByte(s, '}')
	if start >= 0 && end > start {
		return s[start : end+1]
	}
	return s
}

// ParseModelOutput turns the model's free-form text into DocumentFields.
// Undecodable or schema-violating output is a MalformedResponse carrying the raw text.
// Soft format violations are returned as warnings and never fail the parse.
func ParseModelOutput(text string, logger *slog.Logger) (DocumentFields, []string, error) {
	cleaned := StripCodeFences(text)

	normalized, _, err := NormalizeAndSanitizeJSON([]byte(cleaned), logger)
	if err != nil {
		return DocumentFields{}, nil, common.MalformedResponseError("Failed to parse AI response", text, err)
	}
	if err := ValidateDocumentJSON(normalized); err != nil {
		return DocumentFields{}, nil, common.MalformedResponseError("AI response does not match the expected fields", text, err)
	}

	var out DocumentFields
	if err := json.Unmarshal(normalized, &out); err != nil {
		return DocumentFields{}, nil, common.MalformedResponseError("Failed to parse AI response", text, err)
	}
	return out, SanitizeFields(&out), nil
}

// NormalizeAndSanitizeJSON
// - Renames known synonyms (postalCode -> postalcode, documentDate -> date)
// - Turns blank / "null" strings into null and numbers into strings for text fields
// - Coerces yes/no strings to booleans and confidence to an integer in 0..100
// - Canonicalizes the stamp code
// - Removes unknown keys
func NormalizeAndSanitizeJSON(raw []byte, logger *slog.Logger) ([]byte, []string, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, nil, fmt.Errorf("sanitize: decode: %w", err)
	}
	if m == nil {
		return nil, nil, fmt.Errorf("sanitize: expected a JSON object")
	}

	dropped := make([]string, 0, 8)
	renamed := func(to string, from ...string) {
		for _, f := range from {
			v, ok := m[f]
			if !ok {
				continue
			}
			if _, exists := m[to]; !exists {
				m[to] = v
			}
			delete(m, f)
			dropped = append(dropped, f+"->"+to)
		}
	}

	// 1) rename synonyms to the schema
	renamed("postalcode", "postalCode", "postal_code", "zip", "zipcode", "plz")
	renamed("date", "documentDate", "document_date")
	renamed("birthday", "birthdate", "birth_date", "dateOfBirth", "date_of_birth")
	renamed("name", "fullName", "full_name")
	renamed("signed", "signature", "is_signed")
	renamed("handwritten", "is_handwritten")

	// 2) text fields: trim, null out blanks, stringify numbers
	for _, k := range stringFields {
		v, ok := m[k]
		if !ok {
			continue
		}
		switch t := v.(type) {
		case nil:
		case string:
			s := strings.TrimSpace(t)
			if s == "" || strings.EqualFold(s, "null") || strings.EqualFold(s, "n/a") {
				m[k] = nil
			} else {
				m[k] = s
			}
		case float64:
			m[k] = strconv.FormatFloat(t, 'f', -1, 64)
			dropped = append(dropped, k+"(number)")
		default:
			m[k] = nil
			dropped = append(dropped, k+"(type)")
		}
	}

	// 3) booleans
	for _, k := range boolFields {
		v, ok := m[k]
		if !ok {
			continue
		}
		switch t := v.(type) {
		case bool:
		case nil:
			m[k] = false
		case string:
			m[k] = truthy(t)
			dropped = append(dropped, k+"(string)")
		case float64:
			m[k] = t != 0
		default:
			m[k] = false
			dropped = append(dropped, k+"(type)")
		}
	}

	// 4) confidence: integer 0..100; fractions in (0,1) are read as ratios
	if v, ok := m["confidence"]; ok {
		switch t := v.(type) {
		case float64:
			m["confidence"] = normalizeConfidence(t)
		case string:
			f, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(t), "%"), 64)
			if err != nil {
				delete(m, "confidence")
				dropped = append(dropped, "confidence(unparseable)")
			} else {
				m["confidence"] = normalizeConfidence(f)
			}
		default:
			delete(m, "confidence")
			dropped = append(dropped, "confidence(type)")
		}
	}

	// 5) stamp: closed set, unknown codes become "other"
	if s, ok := m["stamp"].(string); ok && (strings.EqualFold(s, "none") || strings.EqualFold(s, "kein")) {
		m["stamp"] = nil
	} else if ok {
		stamp, known := constants.CanonicalizeStamp(s)
		m["stamp"] = string(stamp)
		if !known {
			dropped = append(dropped, "stamp("+s+"->other)")
		}
	}

	// 6) remove unknown keys
	allowed := map[string]struct{}{"confidence": {}}
	for _, k := range stringFields {
		allowed[k] = struct{}{}
	}
	for _, k := range boolFields {
		allowed[k] = struct{}{}
	}
	for k := range maps.Clone(m) {
		if _, ok := allowed[k]; !ok {
			delete(m, k)
			dropped = append(dropped, k+"(unknown)")
		}
	}

	out, err := json.Marshal(m)
	if err != nil {
		return nil, dropped, fmt.Errorf("sanitize: encode: %w", err)
	}
	if len(dropped) > 0 {
		logger.Warn("llm.extract.normalize_sanitize", "dropped", dropped)
	}
	return out, dropped, nil
}

func normalizeConfidence(f float64) int {
	if f > 0 && f < 1 {
		f *= 100
	}
	c := int(math.Round(f))
	if c < 0 {
		return 0
	}
	if c > 100 {
		return 100
	}
	return c
}

func truthy(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "yes", "ja", "y", "1":
		return true
	}
	return false
}
