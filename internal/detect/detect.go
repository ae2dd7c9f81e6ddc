// Package detect defines the PII detection contract and the two built-in
// detectors: a remote HTTP detection service and an offline regex fallback.
//
// Detector tokens are provisional. Independent Detect calls are free to
// number the same value differently; consumers that need stable tokens run
// detections through a registry.
package detect

import "context"

// Entity is one detected PII span. Type and Value are always set; Token is
// the detector's provisional placeholder for this call, and Confidence is
// optional (zero when the detector does not score). Detector vocabularies
// are open-ended, so Type is a free-form tag, not an enum.
type Entity struct {
	Type       string  `json:"type"`
	Value      string  `json:"value"`
	Token      string  `json:"token"`
	Confidence float64 `json:"confidence,omitempty"`
}

// Detector finds PII entities in free text.
type Detector interface {
	Detect(ctx context.Context, text string) ([]Entity, error)
}
