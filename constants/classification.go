package constants

import "strings"

// DocumentType is the coarse hint the classifier produces for model selection.
type DocumentType string

const (
	DocumentTypeTyped       DocumentType = "typed"
	DocumentTypeHandwritten DocumentType = "handwritten"
	DocumentTypeMixed       DocumentType = "mixed"
)

var allDocumentTypes = []DocumentType{
	DocumentTypeTyped,
	DocumentTypeHandwritten,
	DocumentTypeMixed,
}

// DocumentTypes returns the valid hints as strings.
func DocumentTypes() []string {
	result := make([]string, len(allDocumentTypes))
	for i, t := range allDocumentTypes {
		result[i] = string(t)
	}
	return result
}

// ParseDocumentType is case-insensitive; unknown or empty input is reported as not ok.
func ParseDocumentType(input string) (DocumentType, bool) {
	normalized := strings.ToLower(strings.TrimSpace(input))
	for _, t := range allDocumentTypes {
		if normalized == string(t) {
			return t, true
		}
	}
	return "", false
}

// NeedsHighCapability is true for hints that route to the heavier model.
func (t DocumentType) NeedsHighCapability() bool {
	return t == DocumentTypeHandwritten || t == DocumentTypeMixed
}
