package llm

import (
	"strings"

	"github.com/joseph-ayodele/docuextract/constants"
)

// BuildExtractionPrompt composes the instruction sent alongside the PDF.
// The document-type hint only nudges handwriting handling; the field set never changes.
func BuildExtractionPrompt(req ExtractRequest) string {
	parts := []string{
		"You are a highly accurate document data extraction system.",
		"Extract the following fields from this document and return ONLY a JSON object with this exact structure:",
		"",
		"{",
		`  "name": "Full name of the person",`,
		`  "address": "Full street address",`,
		`  "postalcode": "5-digit postal code",`,
		`  "city": "City name",`,
		`  "birthday": "Date in DD.MM.YYYY format",`,
		`  "date": "Document date in DD.MM.YYYY format",`,
		`  "time": "Time in HH:MM format",`,
		`  "handwritten": boolean,`,
		`  "signed": boolean,`,
		`  "stamp": "Stamp identifier (` + strings.Join(constants.StampCodes(), ", ") + `)",`,
		`  "confidence": integer 0-100`,
		"}",
		"",
		"Rules:",
		"- Extract exactly what you see",
		"- Postalcode must be exactly 5 digits",
		"- Use DD.MM.YYYY format for dates",
		"- Use HH:MM format for time",
		"- Return confidence: 0-100 based on clarity",
		"- If a field is not found, use null",
	}

	switch req.DocumentType {
	case constants.DocumentTypeHandwritten:
		parts = append(parts, "- The document is mostly handwritten; read handwriting carefully and prefer null over guessing")
	case constants.DocumentTypeMixed:
		parts = append(parts, "- The document mixes printed and handwritten text; handwritten entries usually fill printed form fields")
	default:
		parts = append(parts, "- Be precise with handwriting recognition")
	}

	parts = append(parts, "", "Return ONLY valid JSON, no markdown, no explanation.")
	return strings.Join(parts, "\n")
}
