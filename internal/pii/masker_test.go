package pii

import (
	"strings"
	"testing"
)

func TestMask_Entities(t *testing.T) {
	m := NewMasker(true)

	tests := []struct {
		name   string
		in     string
		marker string
	}{
		{"email", "contact anna.schmidt@example.de for details", "[EMAIL]"},
		{"iban", "transfer to DE89 3704 0044 0532 0130 00 today", "[IBAN]"},
		{"card", "paid with 4111 1111 1111 1111 yesterday", "[CARD]"},
		{"phone", "call +49 30 123456 tomorrow", "[PHONE]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := m.Mask(tt.in)
			if !res.DidMask {
				t.Fatalf("Mask(%q) did not mask", tt.in)
			}
			if !strings.Contains(res.Masked, tt.marker) {
				t.Errorf("Mask(%q) = %q, want marker %s", tt.in, res.Masked, tt.marker)
			}
			if res.Count < 1 {
				t.Errorf("Count = %d, want >= 1", res.Count)
			}
		})
	}
}

func TestMask_CleanText(t *testing.T) {
	m := NewMasker(true)
	in := "What is the warranty period for the solar inverter?"
	res := m.Mask(in)
	if res.DidMask || res.Count != 0 {
		t.Errorf("clean text was masked: %+v", res)
	}
	if res.Masked != in {
		t.Errorf("Masked = %q, want input unchanged", res.Masked)
	}
}

func TestMask_Disabled(t *testing.T) {
	m := NewMasker(false)
	in := "mail me at someone@example.com"
	res := m.Mask(in)
	if res.DidMask || res.Masked != in {
		t.Errorf("disabled masker altered text: %+v", res)
	}
}

func TestMask_CountsMultiple(t *testing.T) {
	m := NewMasker(true)
	res := m.Mask("a@b.de and c@d.de wrote to +49 89 555-0137")
	if res.Count != 3 {
		t.Errorf("Count = %d, want 3 (%q)", res.Count, res.Masked)
	}
}
