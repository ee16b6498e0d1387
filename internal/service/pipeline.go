package service

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/pageza/foodscan/backend/config"
	"github.com/pageza/foodscan/backend/internal/classifier"
	"github.com/pageza/foodscan/backend/internal/health"
	"github.com/pageza/foodscan/backend/internal/oracle"
	"github.com/pageza/foodscan/backend/internal/reconcile"
)

// Pipeline is every component of the analysis pipeline, built from config.
type Pipeline struct {
	Analysis *AnalysisService
	Ensemble *classifier.Ensemble
	Oracle   oracle.Oracle
	Advisor  oracle.Advisor
}

// NewPipeline wires the ensemble, oracle, reconciler and scorer. rdb may be
// nil, in which case analyses are not cached.
func NewPipeline(ctx context.Context, cfg *config.Config, rdb redis.Cmdable, logger *zap.Logger) (*Pipeline, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	ensemble, err := NewEnsemble(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	gemini, err := oracle.NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, logger.Named("oracle"))
	if err != nil {
		return nil, fmt.Errorf("failed to create oracle: %w", err)
	}
	var o oracle.Oracle = oracle.WithRetry(gemini, cfg.OracleTimeout, cfg.OracleMaxRetries, cfg.OracleBackoff, logger.Named("oracle"))
	if rdb != nil {
		o = oracle.WithCache(o, rdb, cfg.AnalysisCacheTTL, logger.Named("oracle_cache"))
	}

	reconciler, err := reconcile.New(cfg.ReconcilePolicy, ensemble, o, reconcile.Thresholds{
		Low:    cfg.ConfidenceLow,
		Verify: cfg.ConfidenceVerify,
	}, logger.Named("reconcile"))
	if err != nil {
		return nil, err
	}

	keywords, err := health.LoadKeywordSets(cfg.ScoringRulesFile)
	if err != nil {
		return nil, err
	}
	assessor := health.NewAssessor(keywords, logger.Named("health"))

	logger.Info("analysis pipeline ready",
		zap.String("policy", cfg.ReconcilePolicy),
		zap.String("models_dir", cfg.ModelsDir),
		zap.String("oracle_model", cfg.GeminiModel),
		zap.Bool("analysis_cache", rdb != nil))

	return &Pipeline{
		Analysis: NewAnalysisService(reconciler, assessor, logger.Named("analysis")),
		Ensemble: ensemble,
		Oracle:   o,
		Advisor:  gemini,
	}, nil
}

// NewEnsemble builds the local ensemble: checkpoint store (backed by S3 when
// a bucket is configured), inference loader and model cache.
func NewEnsemble(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*classifier.Ensemble, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	s3cfg, err := config.NewS3Config(ctx, cfg)
	if err != nil {
		return nil, err
	}
	var store *classifier.CheckpointStore
	if s3cfg != nil {
		store = classifier.NewCheckpointStore(cfg.ModelsDir, s3cfg.Client, s3cfg.BucketName, s3cfg.Prefix, logger.Named("checkpoints"))
	} else {
		store = classifier.NewCheckpointStore(cfg.ModelsDir, nil, "", "", logger.Named("checkpoints"))
	}
	loader := classifier.NewInferenceLoader(cfg.ModelServerURL, logger.Named("inference"))
	cache := classifier.NewModelCache(store, loader, logger.Named("models"))
	return classifier.NewEnsemble(cache, cfg.ConfidenceLow, logger.Named("ensemble")), nil
}
