// Package pii detects and masks personally identifiable information
// before text reaches the reasoning pipeline or the index. The rest of
// the system treats masked output as an opaque string.
package pii

import "regexp"

// Result reports the outcome of one masking pass.
type Result struct {
	Masked  string
	Count   int
	DidMask bool
}

// pattern pairs a detector with its replacement marker.
type pattern struct {
	re     *regexp.Regexp
	marker string
}

// Detection order matters: IBANs and card numbers are matched before
// generic phone digits so a single number is only masked once.
var patterns = []pattern{
	{regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`), "[EMAIL]"},
	{regexp.MustCompile(`\b[A-Z]{2}\d{2}[ ]?(?:[A-Z0-9]{4}[ ]?){2,7}[A-Z0-9]{1,4}\b`), "[IBAN]"},
	{regexp.MustCompile(`\b(?:\d{4}[ \-]){3}\d{3,4}\b`), "[CARD]"},
	{regexp.MustCompile(`(?:\+\d{1,3}[ \-/]?)?\(?\d{2,5}\)?[ \-/]\d{3,}(?:[ \-/]?\d+)*`), "[PHONE]"},
}

// Masker applies regex-based PII masking. Disabled maskers pass text
// through untouched.
type Masker struct {
	enabled bool
}

// NewMasker creates a masker.
func NewMasker(enabled bool) *Masker {
	return &Masker{enabled: enabled}
}

// Mask replaces detected entities with fixed markers and reports how
// many were found.
func (m *Masker) Mask(text string) Result {
	if !m.enabled || text == "" {
		return Result{Masked: text}
	}

	count := 0
	masked := text
	for _, p := range patterns {
		masked = p.re.ReplaceAllStringFunc(masked, func(string) string {
			count++
			return p.marker
		})
	}

	return Result{Masked: masked, Count: count, DidMask: count > 0}
}
