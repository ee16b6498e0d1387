package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/pageza/foodscan/backend/config"
	"github.com/pageza/foodscan/backend/internal/classifier"
	"github.com/pageza/foodscan/backend/internal/mocks"
	"github.com/pageza/foodscan/backend/internal/types"
)

func writeJPEG(t *testing.T) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 16, 16)), nil))
	path := filepath.Join(t.TempDir(), "lunch.jpg")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

func TestAnalyzeFile(t *testing.T) {
	profile := types.HealthProfile{HeightCM: 180, WeightKG: 95, Diseases: []string{"obesity"}}
	resp := &types.AnalysisResponse{
		FoodAnalysis:     &types.FoodRecord{FoodName: "French Fries"},
		HealthAssessment: &types.HealthAssessmentResult{OverallHealthScore: 2.5},
		Success:          true,
	}

	t.Run("should print the envelope with advice", func(t *testing.T) {
		analysis := &mocks.MockAnalysisService{}
		analysis.On("Analyze", mock.Anything,
			mock.MatchedBy(func(img types.FoodImage) bool {
				return img.Filename == "lunch.jpg" && img.MIMEType == "image/jpeg"
			}), profile).Return(resp, nil)
		advisor := &mocks.MockAdvisor{}
		advisor.On("Recommend", mock.Anything, resp.FoodAnalysis, []string{"obesity"}).
			Return([]string{"Swap fries for a side salad"}, nil)

		var out bytes.Buffer
		require.NoError(t, analyzeFile(context.Background(), &out, analysis, advisor, writeJPEG(t), profile))

		var got map[string]any
		require.NoError(t, json.Unmarshal(out.Bytes(), &got))
		assert.Equal(t, true, got["success"])
		assert.Equal(t, []any{"Swap fries for a side salad"}, got["advice"])
		assert.Equal(t, 2.5, got["healthAssessment"].(map[string]any)["overallHealthScore"])
		analysis.AssertExpectations(t)
		advisor.AssertExpectations(t)
	})

	t.Run("should omit advice without an advisor", func(t *testing.T) {
		analysis := &mocks.MockAnalysisService{}
		analysis.On("Analyze", mock.Anything, mock.Anything, profile).Return(resp, nil)

		var out bytes.Buffer
		require.NoError(t, analyzeFile(context.Background(), &out, analysis, nil, writeJPEG(t), profile))
		assert.NotContains(t, out.String(), "advice")
	})

	t.Run("should print the error body", func(t *testing.T) {
		analysis := &mocks.MockAnalysisService{}
		failure := types.NewAnalysisError(types.FailureOracleUnavailable, "Failed to analyze food image", errors.New("deadline exceeded"))
		analysis.On("Analyze", mock.Anything, mock.Anything, profile).Return(nil, failure)

		var out bytes.Buffer
		err := analyzeFile(context.Background(), &out, analysis, nil, writeJPEG(t), profile)
		assert.Equal(t, types.FailureOracleUnavailable, types.KindOf(err))
		assert.JSONEq(t, `{"error":"Failed to analyze food image","details":"deadline exceeded"}`, out.String())
	})

	t.Run("should reject a file that is not an image", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "notes.txt")
		require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))

		var out bytes.Buffer
		err := analyzeFile(context.Background(), &out, &mocks.MockAnalysisService{}, nil, path, profile)
		assert.Equal(t, types.FailureInvalidInput, types.KindOf(err))
	})
}

func TestApplyPolicy(t *testing.T) {
	t.Run("should normalize the flag like the environment variable", func(t *testing.T) {
		cfg := &config.Config{ReconcilePolicy: "local-first"}
		applyPolicy(cfg, " Oracle-First ")
		assert.Equal(t, "oracle-first", cfg.ReconcilePolicy)
	})

	t.Run("should keep the configured policy without a flag", func(t *testing.T) {
		cfg := &config.Config{ReconcilePolicy: "oracle-first"}
		applyPolicy(cfg, "")
		assert.Equal(t, "oracle-first", cfg.ReconcilePolicy)
	})
}

func TestWriteModels(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, writeModels(&out, []classifier.ModelStatus{
		{ID: classifier.ConvNeXt, Checkpoint: "models/best_model_ConvNeXt-B.pth", Present: true},
		{ID: classifier.ViT, Checkpoint: "models/best_model_ViT-B-16.pth"},
	}))

	lines := bytes.Split(bytes.TrimSpace(out.Bytes()), []byte("\n"))
	require.Len(t, lines, 3)
	assert.Contains(t, string(lines[1]), "convnext")
	assert.Contains(t, string(lines[1]), "yes")
	assert.Contains(t, string(lines[2]), "no")
}
