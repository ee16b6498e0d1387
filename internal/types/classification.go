package types

import "image"

// ModelID identifies one classifier of the local ensemble.
type ModelID string

// ClassificationCandidate is one model's best guess.
type ClassificationCandidate struct {
	Label       string  `json:"food_name"`
	Confidence  float64 `json:"confidence"`
	SourceModel ModelID `json:"model"`
}

// EnsembleResult is the winning candidate plus every candidate, ranked by
// confidence. An empty result (no label, zero confidence, no candidates)
// means every model failed.
type EnsembleResult struct {
	Label       string                    `json:"label"`
	Confidence  float64                   `json:"confidence"`
	Model       ModelID                   `json:"model"`
	Predictions []ClassificationCandidate `json:"all_predictions"`
}

// Empty reports whether no model produced a prediction.
func (r EnsembleResult) Empty() bool {
	return r.Label == "" && len(r.Predictions) == 0
}

// FoodImage carries the uploaded photo both as raw bytes (for the oracle)
// and decoded (for the local models).
type FoodImage struct {
	Filename string
	MIMEType string
	Data     []byte
	Image    image.Image
}
