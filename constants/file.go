package constants

import (
	"path/filepath"
	"strings"
)

const (
	PDFMIMEType  = "application/pdf"
	PDFExtension = "pdf"

	// MaxUploadBytes is the largest payload accepted for a single document.
	MaxUploadBytes int64 = 10 * 1024 * 1024
)

// AllowedExtensions holds the file extensions accepted for ingestion.
var AllowedExtensions = map[string]struct{}{
	PDFExtension: {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// IsPDF accepts a file when either the extension or the declared MIME type says PDF.
func IsPDF(name, mimeType string) bool {
	if NormalizeExt(filepath.Ext(name)) == PDFExtension {
		return true
	}
	mt := strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	return mt == PDFMIMEType
}
