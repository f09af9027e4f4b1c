package constants

import "testing"

func TestIsPDF(t *testing.T) {
	cases := []struct {
		name, mime string
		want       bool
	}{
		{"scan.pdf", "", true},
		{"SCAN.PDF", "application/octet-stream", true},
		{"scan", "application/pdf", true},
		{"scan.bin", "application/pdf; charset=binary", true},
		{"photo.png", "image/png", false},
		{"notes.txt", "", false},
	}
	for _, c := range cases {
		if got := IsPDF(c.name, c.mime); got != c.want {
			t.Errorf("IsPDF(%q, %q) = %v, want %v", c.name, c.mime, got, c.want)
		}
	}
}

func TestCanonicalizeStamp(t *testing.T) {
	cases := []struct {
		in     string
		want   Stamp
		wantOK bool
	}{
		{"bb", StampBB, true},
		{" F.K. ", StampFK, true},
		{"other", StampOther, true},
		{"XY", StampOther, false},
		{"", "", false},
	}
	for _, c := range cases {
		got, ok := CanonicalizeStamp(c.in)
		if got != c.want || ok != c.wantOK {
			t.Errorf("CanonicalizeStamp(%q) = (%q, %v), want (%q, %v)", c.in, got, ok, c.want, c.wantOK)
		}
	}
}

func TestDocumentTypeRouting(t *testing.T) {
	if DocumentTypeTyped.NeedsHighCapability() {
		t.Errorf("typed should use the light model")
	}
	for _, dt := range []DocumentType{DocumentTypeHandwritten, DocumentTypeMixed} {
		if !dt.NeedsHighCapability() {
			t.Errorf("%s should use the heavy model", dt)
		}
	}
	if _, ok := ParseDocumentType("Handwritten"); !ok {
		t.Errorf("ParseDocumentType should be case-insensitive")
	}
	if _, ok := ParseDocumentType("scribbled"); ok {
		t.Errorf("ParseDocumentType accepted an unknown hint")
	}
}

func TestStatusHelpers(t *testing.T) {
	if !StatusFailed.Terminal() || !StatusCompleted.Terminal() {
		t.Errorf("completed and failed must be terminal")
	}
	if StatusRateLimited.Terminal() {
		t.Errorf("rate-limited is a pause, not terminal")
	}
	if st, ok := ParseDocumentStatus("rate-limited"); !ok || st != StatusRateLimited {
		t.Errorf("ParseDocumentStatus(rate-limited) = %q, %v", st, ok)
	}
}
