package service

import (
	"context"

	"github.com/pageza/foodscan/backend/internal/types"
)

// AnalysisServiceInterface runs the whole pipeline for one photo.
type AnalysisServiceInterface interface {
	Analyze(ctx context.Context, img types.FoodImage, profile types.HealthProfile) (*types.AnalysisResponse, error)
}
