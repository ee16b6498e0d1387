package reconcile

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pageza/foodscan/backend/internal/oracle"
	"github.com/pageza/foodscan/backend/internal/types"
)

// OracleFirst takes the food name from the oracle and uses the ensemble only
// to decide attribution.
type OracleFirst struct {
	base
}

func (r *OracleFirst) Reconcile(ctx context.Context, img types.FoodImage) (*Outcome, error) {
	var (
		name        string
		identifyErr error
		res         types.EnsembleResult
	)

	var g errgroup.Group
	g.Go(func() error {
		name, identifyErr = r.oracle.Identify(ctx, img)
		return nil
	})
	g.Go(func() error {
		res = r.predict(ctx, img)
		return nil
	})
	_ = g.Wait()

	out := &Outcome{Ensemble: res}
	name = strings.TrimSpace(name)

	if identifyErr != nil || name == "" {
		out.Decision = DecisionIdentifyFailed
		if !res.Empty() {
			out.LocalAttempt = &res
		}
		r.logger.Warn("oracle identification failed, using full analysis", zap.Error(identifyErr))
		record, err := r.full(ctx, img, oracle.AttributionOracle)
		if err != nil {
			return nil, err
		}
		out.Record = record
		return out, nil
	}

	var (
		attribution = oracle.AttributionOracle
		confidence  *float64
	)
	if !res.Empty() && LabelsMatch(res.Label, name) {
		out.Decision = DecisionMatched
		attribution = modelAttribution(res.Model)
		c := res.Confidence
		confidence = &c
	} else {
		out.Decision = DecisionMismatch
		if !res.Empty() {
			out.LocalAttempt = &res
		}
	}
	r.logger.Info("oracle identification reconciled",
		zap.String("oracle_label", name),
		zap.String("local_label", res.Label),
		zap.String("decision", string(out.Decision)))

	record, err := r.detailed(ctx, img, name, confidence, attribution)
	if err != nil {
		return nil, err
	}
	out.Record = record
	return out, nil
}
