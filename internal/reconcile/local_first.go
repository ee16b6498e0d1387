package reconcile

import (
	"context"

	"go.uber.org/zap"

	"github.com/pageza/foodscan/backend/internal/classifier"
	"github.com/pageza/foodscan/backend/internal/oracle"
	"github.com/pageza/foodscan/backend/internal/types"
)

// LocalFirst trusts a confident in-vocabulary ensemble label, verifies a
// medium-confidence one with the oracle, and otherwise defers to a full
// oracle analysis.
type LocalFirst struct {
	base
	thresholds Thresholds
}

func (r *LocalFirst) Reconcile(ctx context.Context, img types.FoodImage) (*Outcome, error) {
	res := r.predict(ctx, img)
	out := &Outcome{Ensemble: res}

	switch {
	case res.Empty():
		out.Decision = DecisionNoPrediction
		r.logger.Info("no local prediction, using oracle")

	case !classifier.InVocabulary(res.Label):
		out.Decision = DecisionOutOfVocabulary
		r.logger.Info("local label outside vocabulary, using oracle", zap.String("label", res.Label))

	case res.Confidence < r.thresholds.Low:
		out.Decision = DecisionLowConfidence
		out.LocalAttempt = &res
		r.logger.Info("local confidence too low, using oracle",
			zap.String("label", res.Label),
			zap.Float64("confidence", res.Confidence))

	case res.Confidence < r.thresholds.Verify:
		name := classifier.FormatLabel(res.Label)
		confirmed, err := r.oracle.Verify(ctx, img, name)
		if err != nil {
			r.logger.Warn("verification failed", zap.String("food", name), zap.Error(err))
			confirmed = false
		}
		if confirmed {
			out.Decision = DecisionVerified
			return r.settle(ctx, img, out, name, modelAttribution(res.Model)+oracle.VerifiedSuffix)
		}
		out.Decision = DecisionVerifyRejected
		out.LocalAttempt = &res
		r.logger.Info("oracle rejected local label", zap.String("food", name))

	default:
		out.Decision = DecisionTrusted
		r.logger.Info("trusting local prediction",
			zap.String("label", res.Label),
			zap.Float64("confidence", res.Confidence),
			zap.String("model", string(res.Model)))
		return r.settle(ctx, img, out, classifier.FormatLabel(res.Label), modelAttribution(res.Model))
	}

	record, err := r.full(ctx, img, oracle.AttributionOracle)
	if err != nil {
		return nil, err
	}
	out.Record = record
	return out, nil
}

func (r *LocalFirst) settle(ctx context.Context, img types.FoodImage, out *Outcome, name, attribution string) (*Outcome, error) {
	confidence := out.Ensemble.Confidence
	record, err := r.detailed(ctx, img, name, &confidence, attribution)
	if err != nil {
		return nil, err
	}
	out.Record = record
	return out, nil
}
