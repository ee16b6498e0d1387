package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pageza/foodscan/backend/config"
	"github.com/pageza/foodscan/backend/internal/classifier"
	"github.com/pageza/foodscan/backend/internal/database"
	"github.com/pageza/foodscan/backend/internal/middleware"
	"github.com/pageza/foodscan/backend/internal/oracle"
	"github.com/pageza/foodscan/backend/internal/service"
	"github.com/pageza/foodscan/backend/internal/types"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <image>",
	Short: "Analyze a food photo for a health profile",
	Long:  "Analyze identifies the food in the photo, fetches its nutritional analysis and prints the same JSON the API returns.",
	Args:  cobra.ExactArgs(1),
	RunE:  runAnalyze,
}

var (
	analyzeHeight   float64
	analyzeWeight   float64
	analyzeDiseases string
	analyzePolicy   string
	analyzeAdvice   bool
)

func init() {
	analyzeCmd.Flags().Float64Var(&analyzeHeight, "height", 0, "Height in centimeters")
	analyzeCmd.Flags().Float64Var(&analyzeWeight, "weight", 0, "Weight in kilograms")
	analyzeCmd.Flags().StringVar(&analyzeDiseases, "diseases", "", "Comma separated health conditions")
	analyzeCmd.Flags().StringVar(&analyzePolicy, "policy", "", "Reconcile policy (local-first or oracle-first); overrides RECONCILE_POLICY")
	analyzeCmd.Flags().BoolVar(&analyzeAdvice, "advice", false, "Also ask the oracle for free-form advice")

	rootCmd.AddCommand(analyzeCmd)
}

// applyPolicy overrides the configured policy when the flag is set.
func applyPolicy(cfg *config.Config, flag string) {
	if policy := config.NormalizePolicy(flag); policy != "" {
		cfg.ReconcilePolicy = policy
	}
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	applyPolicy(cfg, analyzePolicy)
	if err := config.ValidateConfig(cfg); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	rdb, err := database.NewRedisClient(ctx, cfg.RedisURL, logger)
	if err != nil {
		logger.Warn("analysis cache disabled", zap.Error(err))
	}
	var pipeline *service.Pipeline
	if rdb != nil {
		defer rdb.Close()
		pipeline, err = service.NewPipeline(ctx, cfg, rdb, logger)
	} else {
		pipeline, err = service.NewPipeline(ctx, cfg, nil, logger)
	}
	if err != nil {
		return err
	}

	var advisor oracle.Advisor
	if analyzeAdvice {
		advisor = pipeline.Advisor
	}
	profile := types.HealthProfile{
		HeightCM: analyzeHeight,
		WeightKG: analyzeWeight,
		Diseases: service.SplitDiseases(analyzeDiseases),
	}
	return analyzeFile(ctx, os.Stdout, pipeline.Analysis, advisor, args[0], profile)
}

// analyzeOutput is the API envelope plus optional oracle advice.
type analyzeOutput struct {
	*types.AnalysisResponse
	Advice []string `json:"advice,omitempty"`
}

// analyzeFile prints the analysis of the image at path as indented JSON. On
// failure the error body is printed as well and the error is returned.
func analyzeFile(ctx context.Context, out io.Writer, analysis service.AnalysisServiceInterface, advisor oracle.Advisor, path string, profile types.HealthProfile) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")

	fail := func(err error) error {
		var ae *types.AnalysisError
		if errors.As(err, &ae) {
			enc.Encode(middleware.ErrorResponse{Error: ae.Message, Details: ae.Details})
		} else {
			enc.Encode(middleware.ErrorResponse{Error: err.Error()})
		}
		return err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fail(types.NewAnalysisError(types.FailureInvalidInput, "No image provided", err))
	}
	decoded, format, err := classifier.DecodeImage(data)
	if err != nil {
		return fail(types.NewAnalysisError(types.FailureInvalidInput, "Invalid image", err))
	}

	resp, err := analysis.Analyze(ctx, types.FoodImage{
		Filename: filepath.Base(path),
		MIMEType: "image/" + format,
		Data:     data,
		Image:    decoded,
	}, profile)
	if err != nil {
		return fail(err)
	}

	result := analyzeOutput{AnalysisResponse: resp}
	if advisor != nil {
		// Recommend returns a generic tip alongside any error.
		result.Advice, _ = advisor.Recommend(ctx, resp.FoodAnalysis, profile.Diseases)
	}
	return enc.Encode(result)
}
