package llm

import (
	"strings"

	"github.com/joseph-ayodele/docuextract/constants"
)

const (
	HeavyModel = "models/gemini-2.5-pro"
	LightModel = "models/gemini-2.5-flash"

	// FamilyMarker identifies usable models in a provider listing.
	FamilyMarker = "gemini"
	// GenerateMethod is the capability a fallback model must declare when method metadata exists.
	GenerateMethod = "generateContent"
)

// SelectModel picks the heavier model for handwritten or mixed documents; override wins when set.
func SelectModel(t constants.DocumentType, override string) string {
	if o := strings.TrimSpace(override); o != "" {
		return o
	}
	if t.NeedsHighCapability() {
		return HeavyModel
	}
	return LightModel
}

// BareModelName drops the "models/" resource prefix.
func BareModelName(name string) string {
	return strings.TrimPrefix(strings.TrimSpace(name), "models/")
}

// PickCandidate returns the first listed model that contains marker and declares GenerateMethod,
// falling back to the first that only contains marker. The model named exclude is never picked.
func PickCandidate(models []ModelDescriptor, marker, exclude string) (string, bool) {
	marker = strings.ToLower(marker)
	exclude = BareModelName(exclude)

	eligible := func(m ModelDescriptor) bool {
		return m.Name != "" &&
			strings.Contains(strings.ToLower(m.Name), marker) &&
			BareModelName(m.Name) != exclude
	}
	for _, m := range models {
		if eligible(m) && supports(m.SupportedGenerationMethods, GenerateMethod) {
			return m.Name, true
		}
	}
	for _, m := range models {
		if eligible(m) {
			return m.Name, true
		}
	}
	return "", false
}

// Candidates lists every model that contains marker, in listing order.
func Candidates(models []ModelDescriptor, marker string) []string {
	marker = strings.ToLower(marker)
	out := make([]string, 0, len(models))
	for _, m := range models {
		if strings.Contains(strings.ToLower(m.Name), marker) {
			out = append(out, m.Name)
		}
	}
	return out
}

func supports(methods []string, method string) bool {
	for _, m := range methods {
		if m == method {
			return true
		}
	}
	return false
}
