// Package oracle wraps the external vision-language service that identifies
// food in a photo and produces its nutritional analysis.
package oracle

import (
	"context"

	"github.com/pageza/foodscan/backend/internal/types"
)

// Attribution labels for records produced without a trusted local prediction.
const (
	AttributionOracle   = "Gemini API"
	AttributionFallback = "Gemini API (fallback)"
	VerifiedSuffix      = " (Verified by Gemini)"
)

// AnalysisRequest selects the analysis prompt. An empty FoodName asks the
// oracle to identify and analyze the food itself (full analysis); otherwise
// the food is known and only its nutrition is requested (detailed analysis).
type AnalysisRequest struct {
	FoodName string
	// Confidence is echoed into the record. Nil lets the oracle report its own.
	Confidence *float64
	// ModelUsed is written to the record's modelUsed field.
	ModelUsed string
}

// Full reports whether the request asks for a full analysis.
func (r AnalysisRequest) Full() bool {
	return r.FoodName == ""
}

// Oracle is the external food identifier and nutrition analyst.
type Oracle interface {
	// Identify returns a bare food name for the image.
	Identify(ctx context.Context, img types.FoodImage) (string, error)
	// Verify asks whether the image shows label.
	Verify(ctx context.Context, img types.FoodImage, label string) (bool, error)
	// Analyze returns a validated FoodRecord. Failures are *types.AnalysisError.
	Analyze(ctx context.Context, img types.FoodImage, req AnalysisRequest) (*types.FoodRecord, error)
}

// Advisor produces free-form advice for a record and a list of conditions.
type Advisor interface {
	Recommend(ctx context.Context, record *types.FoodRecord, conditions []string) ([]string, error)
}
