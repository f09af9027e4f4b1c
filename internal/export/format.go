package export

import (
	"strings"
	"time"

	"github.com/joseph-ayodele/docuextract/internal/common"
)

type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
	FormatXLSX Format = "xlsx"
)

// ParseFormat defaults to JSON when s is empty.
func ParseFormat(s string) (Format, error) {
	f := strings.ToLower(strings.TrimSpace(s))
	err := common.NewValidator().
		Field("format", f, common.OneOf(string(FormatCSV), string(FormatJSON), string(FormatXLSX))).
		Err()
	if err != nil {
		return "", err
	}
	if f == "" {
		return FormatJSON, nil
	}
	return Format(f), nil
}

// FileName is docuextract-YYYY-MM-DD.<ext>.
func (f Format) FileName(now time.Time) string {
	return "docuextract-" + now.Format("2006-01-02") + "." + string(f)
}

func (f Format) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "application/json"
}
