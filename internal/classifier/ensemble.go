// Package classifier runs the local food-image ensemble: preprocessing,
// checkpoint resolution, model caching and max-confidence selection.
package classifier

import (
	"context"
	"fmt"
	"image"
	"math"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pageza/foodscan/backend/internal/types"
)

// DefaultLowConfidence is the confidence below which the ensemble is not trusted.
const DefaultLowConfidence = 0.7

// Ensemble queries every model and keeps the most confident prediction.
type Ensemble struct {
	cache  *ModelCache
	order  []types.ModelID
	low    float64
	logger *zap.Logger
}

// NewEnsemble creates an ensemble over ModelOrder. A non-positive low
// threshold uses DefaultLowConfidence.
func NewEnsemble(cache *ModelCache, low float64, logger *zap.Logger) *Ensemble {
	if low <= 0 {
		low = DefaultLowConfidence
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ensemble{cache: cache, order: ModelOrder, low: low, logger: logger}
}

// ShouldUseOracle reports whether confidence is too low to trust.
func (e *Ensemble) ShouldUseOracle(confidence float64) bool {
	return confidence < e.low
}

// Predict runs all models concurrently. Models that cannot be loaded or fail
// to predict are skipped; when every model fails the result is empty.
func (e *Ensemble) Predict(ctx context.Context, img image.Image) types.EnsembleResult {
	input := Preprocess(img)

	slots := make([]*types.ClassificationCandidate, len(e.order))
	var g errgroup.Group
	for i, id := range e.order {
		g.Go(func() error {
			c, err := e.predictOne(ctx, id, input)
			if err != nil {
				e.logger.Warn("model prediction skipped", zap.String("model", string(id)), zap.Error(err))
				return nil
			}
			slots[i] = c
			return nil
		})
	}
	_ = g.Wait()

	candidates := make([]types.ClassificationCandidate, 0, len(slots))
	for _, c := range slots {
		if c != nil {
			candidates = append(candidates, *c)
		}
	}
	if len(candidates) == 0 {
		return types.EnsembleResult{Predictions: []types.ClassificationCandidate{}}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Confidence > candidates[j].Confidence
	})
	best := candidates[0]
	return types.EnsembleResult{
		Label:       best.Label,
		Confidence:  best.Confidence,
		Model:       best.SourceModel,
		Predictions: candidates,
	}
}

func (e *Ensemble) predictOne(ctx context.Context, id types.ModelID, input Tensor) (*types.ClassificationCandidate, error) {
	m, err := e.cache.GetOrLoad(ctx, id)
	if err != nil {
		return nil, err
	}
	logits, err := m.Forward(ctx, input)
	if err != nil {
		return nil, err
	}
	if len(logits) != len(Labels) {
		return nil, fmt.Errorf("expected %d logits, got %d", len(Labels), len(logits))
	}

	idx, p := argmax(softmax(logits))
	return &types.ClassificationCandidate{
		Label:       Labels[idx],
		Confidence:  p,
		SourceModel: id,
	}, nil
}

func softmax(logits []float32) []float64 {
	maxLogit := math.Inf(-1)
	for _, l := range logits {
		maxLogit = math.Max(maxLogit, float64(l))
	}
	probs := make([]float64, len(logits))
	var sum float64
	for i, l := range logits {
		probs[i] = math.Exp(float64(l) - maxLogit)
		sum += probs[i]
	}
	for i := range probs {
		probs[i] /= sum
	}
	return probs
}

// argmax returns the first index holding the maximum.
func argmax(values []float64) (int, float64) {
	best, bestVal := 0, math.Inf(-1)
	for i, v := range values {
		if v > bestVal {
			best, bestVal = i, v
		}
	}
	return best, bestVal
}

// Models lists each model with its checkpoint path and presence on disk.
func (e *Ensemble) Models() []ModelStatus {
	out := make([]ModelStatus, 0, len(e.order))
	for _, id := range e.order {
		p, _ := e.cache.store.Path(id)
		out = append(out, ModelStatus{
			ID:         id,
			Checkpoint: p,
			Present:    e.cache.store.Present(id),
			Loaded:     e.cache.Loaded(id),
		})
	}
	return out
}

// ModelStatus describes one ensemble member.
type ModelStatus struct {
	ID         types.ModelID `json:"id"`
	Checkpoint string        `json:"checkpoint"`
	Present    bool          `json:"present"`
	Loaded     bool          `json:"loaded"`
}
