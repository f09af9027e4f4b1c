package llm

import (
	"regexp"
	"strings"
	"time"
)

var (
	rePostalCode = regexp.MustCompile(`^\d{5}$`)
	reDate       = regexp.MustCompile(`^\d{2}\.\d{2}\.\d{4}$`)
	reClock      = regexp.MustCompile(`^\d{2}:\d{2}$`)
)

// SanitizeFields applies the soft format rules. Offending values are kept as-is;
// each violation is reported so the caller can mark the result low confidence.
func SanitizeFields(f *DocumentFields) []string {
	var warnings []string

	if f.PostalCode != nil {
		s := strings.ReplaceAll(strings.TrimSpace(*f.PostalCode), " ", "")
		if rePostalCode.MatchString(s) {
			f.PostalCode = &s
		} else {
			warnings = append(warnings, "postalcode: expected exactly 5 digits")
		}
	}

	checkDate := func(field string, v *string) {
		if v == nil {
			return
		}
		if !reDate.MatchString(*v) {
			warnings = append(warnings, field+": expected DD.MM.YYYY")
			return
		}
		if _, err := time.Parse("02.01.2006", *v); err != nil {
			warnings = append(warnings, field+": not a calendar date")
		}
	}
	checkDate("birthday", f.Birthday)
	checkDate("date", f.Date)

	if f.Time != nil {
		if !reClock.MatchString(*f.Time) {
			warnings = append(warnings, "time: expected HH:MM")
		} else if _, err := time.Parse("15:04", *f.Time); err != nil {
			warnings = append(warnings, "time: not a clock time")
		}
	}

	return warnings
}
