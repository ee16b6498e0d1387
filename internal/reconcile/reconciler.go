// Package reconcile settles one food identity from the local ensemble and the
// oracle, and obtains the nutritional record for it.
package reconcile

import (
	"context"
	"fmt"
	"image"
	"strings"

	"go.uber.org/zap"

	"github.com/pageza/foodscan/backend/internal/oracle"
	"github.com/pageza/foodscan/backend/internal/types"
)

// Policy names accepted by New.
const (
	PolicyLocalFirst  = "local-first"
	PolicyOracleFirst = "oracle-first"
)

// Decision records which branch produced the outcome.
type Decision string

const (
	DecisionTrusted         Decision = "trusted"
	DecisionVerified        Decision = "verified"
	DecisionVerifyRejected  Decision = "verify_rejected"
	DecisionLowConfidence   Decision = "low_confidence"
	DecisionOutOfVocabulary Decision = "out_of_vocabulary"
	DecisionNoPrediction    Decision = "no_local_prediction"
	DecisionMatched         Decision = "matched"
	DecisionMismatch        Decision = "mismatch"
	DecisionIdentifyFailed  Decision = "identify_failed"
)

// Classifier is the local ensemble.
type Classifier interface {
	Predict(ctx context.Context, img image.Image) types.EnsembleResult
}

// Thresholds are the confidence boundaries of the local-first policy.
type Thresholds struct {
	Low    float64
	Verify float64
}

// DefaultThresholds returns 0.7 and 0.85.
func DefaultThresholds() Thresholds {
	return Thresholds{Low: 0.7, Verify: 0.85}
}

// Outcome is the settled record plus the local evidence behind it.
type Outcome struct {
	Record   *types.FoodRecord
	Decision Decision
	Ensemble types.EnsembleResult
	// LocalAttempt is the discarded local prediction, if there was one.
	LocalAttempt *types.EnsembleResult
}

// Reconciler produces the FoodRecord for an image.
type Reconciler interface {
	Reconcile(ctx context.Context, img types.FoodImage) (*Outcome, error)
}

// New returns the reconciler for policy. An empty policy means local-first.
func New(policy string, classifier Classifier, o oracle.Oracle, th Thresholds, logger *zap.Logger) (Reconciler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	b := base{classifier: classifier, oracle: o, logger: logger}
	switch strings.ToLower(strings.TrimSpace(policy)) {
	case "", PolicyLocalFirst:
		return &LocalFirst{base: b, thresholds: th}, nil
	case PolicyOracleFirst:
		return &OracleFirst{base: b}, nil
	default:
		return nil, fmt.Errorf("unknown reconcile policy %q", policy)
	}
}

type base struct {
	classifier Classifier
	oracle     oracle.Oracle
	logger     *zap.Logger
}

func (b *base) predict(ctx context.Context, img types.FoodImage) types.EnsembleResult {
	if b.classifier == nil || img.Image == nil {
		return types.EnsembleResult{Predictions: []types.ClassificationCandidate{}}
	}
	return b.classifier.Predict(ctx, img.Image)
}

// full asks the oracle to identify and analyze the food on its own.
func (b *base) full(ctx context.Context, img types.FoodImage, attribution string) (*types.FoodRecord, error) {
	record, err := b.oracle.Analyze(ctx, img, oracle.AnalysisRequest{ModelUsed: attribution})
	if err != nil {
		return nil, asAnalysisError(err)
	}
	return record, nil
}

// detailed analyzes a known food and falls back to one full analysis.
func (b *base) detailed(ctx context.Context, img types.FoodImage, name string, confidence *float64, attribution string) (*types.FoodRecord, error) {
	record, err := b.oracle.Analyze(ctx, img, oracle.AnalysisRequest{
		FoodName:   name,
		Confidence: confidence,
		ModelUsed:  attribution,
	})
	if err == nil {
		return record, nil
	}

	b.logger.Warn("detailed analysis failed, falling back to full analysis",
		zap.String("food", name),
		zap.Error(err))
	return b.full(ctx, img, oracle.AttributionFallback)
}

func asAnalysisError(err error) error {
	if types.KindOf(err) != "" {
		return err
	}
	return types.NewAnalysisError(types.FailureOracleUnavailable, "Failed to analyze food image", err)
}

func modelAttribution(id types.ModelID) string {
	return strings.ToUpper(string(id))
}
