package detect

import (
	"context"
	"fmt"
	"regexp"
)

// pattern pairs an entity type with the expression that finds it. Order
// matters: earlier patterns claim their spans first, so the email pattern
// runs before the generic phone pattern.
type pattern struct {
	entityType string
	re         *regexp.Regexp
}

var localPatterns = []pattern{
	{"Email_Address", regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)},
	{"SSN", regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`)},
	{"IBAN", regexp.MustCompile(`\b[A-Z]{2}\d{2}[A-Z0-9]{11,30}\b`)},
	{"Phone_Number", regexp.MustCompile(`\+\d[\d\s\-()]{7,}\d`)},
	{"Credit_Card", regexp.MustCompile(`\b(?:\d[ \-]?){13,16}\b`)},
}

// RegexDetector is the offline detection mode: pattern-based recognition of
// structured PII (emails, cards, SSNs, IBANs, phone numbers). It cannot find
// names or addresses; that needs the remote service.
//
// Tokens are numbered per call, starting from 1 each time, which makes them
// deliberately unstable across calls. That is faithful to the upstream
// detection contract and exactly what a token registry compensates for.
type RegexDetector struct{}

// NewRegexDetector returns the offline pattern detector.
func NewRegexDetector() *RegexDetector {
	return &RegexDetector{}
}

// Detect scans text against the built-in patterns. It never fails and
// ignores ctx; the signature matches the Detector contract.
func (d *RegexDetector) Detect(ctx context.Context, text string) ([]Entity, error) {
	var out []Entity
	counters := make(map[string]int)
	claimed := make([]bool, len(text))
	seen := make(map[string]bool) // value already emitted this call

	for _, p := range localPatterns {
		for _, loc := range p.re.FindAllStringIndex(text, -1) {
			if overlaps(claimed, loc[0], loc[1]) {
				continue
			}
			mark(claimed, loc[0], loc[1])

			value := text[loc[0]:loc[1]]
			if seen[value] {
				continue
			}
			seen[value] = true

			counters[p.entityType]++
			out = append(out, Entity{
				Type:       p.entityType,
				Value:      value,
				Token:      fmt.Sprintf("<%s_%d>", p.entityType, counters[p.entityType]),
				Confidence: 1.0,
			})
		}
	}
	return out, nil
}

func overlaps(claimed []bool, start, end int) bool {
	for i := start; i < end; i++ {
		if claimed[i] {
			return true
		}
	}
	return false
}

func mark(claimed []bool, start, end int) {
	for i := start; i < end; i++ {
		claimed[i] = true
	}
}
