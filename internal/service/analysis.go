package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/pageza/foodscan/backend/internal/health"
	"github.com/pageza/foodscan/backend/internal/reconcile"
	"github.com/pageza/foodscan/backend/internal/types"
)

// AnalysisService settles the food identity and scores it against a profile.
type AnalysisService struct {
	reconciler reconcile.Reconciler
	assessor   *health.Assessor
	logger     *zap.Logger
}

// NewAnalysisService creates an AnalysisService.
func NewAnalysisService(reconciler reconcile.Reconciler, assessor *health.Assessor, logger *zap.Logger) *AnalysisService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnalysisService{reconciler: reconciler, assessor: assessor, logger: logger}
}

// Analyze returns the response envelope, or an *types.AnalysisError.
func (s *AnalysisService) Analyze(ctx context.Context, img types.FoodImage, profile types.HealthProfile) (*types.AnalysisResponse, error) {
	if len(img.Data) == 0 && img.Image == nil {
		return nil, types.NewAnalysisError(types.FailureInvalidInput, "No image provided", nil)
	}
	profile.Diseases = CleanDiseases(profile.Diseases)

	outcome, err := s.reconciler.Reconcile(ctx, img)
	if err != nil {
		s.logger.Error("food identification failed", zap.String("file", img.Filename), zap.Error(err))
		return nil, err
	}

	s.logger.Info("food identified",
		zap.String("food", outcome.Record.FoodName),
		zap.String("model_used", outcome.Record.ModelUsed),
		zap.String("decision", string(outcome.Decision)))

	assessment, err := s.assessor.Assess(profile, outcome.Record)
	if err != nil {
		s.logger.Error("health assessment failed", zap.Error(err))
		return nil, err
	}

	return &types.AnalysisResponse{
		FoodAnalysis:     outcome.Record,
		HealthAssessment: assessment,
		Success:          true,
	}, nil
}

// CleanDiseases trims entries and drops empty ones.
func CleanDiseases(diseases []string) []string {
	out := make([]string, 0, len(diseases))
	for _, d := range diseases {
		if d = strings.TrimSpace(d); d != "" {
			out = append(out, d)
		}
	}
	return out
}

// SplitDiseases parses a comma separated condition list.
func SplitDiseases(raw string) []string {
	return CleanDiseases(strings.Split(raw, ","))
}
