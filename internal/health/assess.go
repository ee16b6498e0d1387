// Package health turns a food record and a consumer's body metrics and
// conditions into suitability, quality and overall health scores.
package health

import (
	"fmt"
	"runtime/debug"

	"go.uber.org/zap"

	"github.com/pageza/foodscan/backend/internal/recommend"
	"github.com/pageza/foodscan/backend/internal/types"
)

// Assessor is the health scorer. It holds only configuration and is safe for
// concurrent use.
type Assessor struct {
	keywords KeywordSets
	activity ActivityLevel
	logger   *zap.Logger
}

// NewAssessor creates an Assessor. A nil keywords map uses the defaults.
func NewAssessor(keywords KeywordSets, logger *zap.Logger) *Assessor {
	if keywords == nil {
		keywords = DefaultKeywordSets()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Assessor{keywords: keywords, activity: Moderate, logger: logger}
}

// Assess runs the full assessment and overwrites record's quality-cycle
// health score with the computed food quality. Any internal failure is
// returned as a scoring_failed AnalysisError and no partial result.
func (a *Assessor) Assess(profile types.HealthProfile, record *types.FoodRecord) (result *types.HealthAssessmentResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("health assessment panicked",
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()))
			result = nil
			err = types.NewAnalysisError(types.FailureScoring, "Failed to perform health assessment", fmt.Errorf("%v", r))
		}
	}()

	if record == nil {
		return nil, types.NewAnalysisError(types.FailureScoring, "Failed to perform health assessment", fmt.Errorf("no food record"))
	}

	bmi, category, bmiOK := CalculateBMI(profile.HeightCM, profile.WeightKG)
	dailyCalories, caloriesOK := CalculateCalorieNeeds(profile.HeightCM, profile.WeightKG, a.activity)
	foodCalories := record.CalorieCount()

	suitability := a.AssessSuitability(profile.Diseases, record, category)

	caloriePercentage := 0.0
	if caloriesOK && dailyCalories != 0 {
		caloriePercentage = round(foodCalories/dailyCalories*100, 1)
	}

	quality := a.FoodQuality(record, category)
	record.FoodQualityCycle.HealthScore = quality

	recommendations := recommend.Generate(recommend.Input{
		BMICategory:       category,
		Diseases:          profile.Diseases,
		Suitability:       suitability,
		FoodName:          record.FoodName,
		Calories:          foodCalories,
		CaloriePercentage: caloriePercentage,
		QualityScore:      quality,
	})

	overall := OverallHealthScore(category, suitability.SuitabilityScore, quality, suitability.IsJunkFood)

	conditions := profile.Diseases
	if len(conditions) == 0 {
		conditions = []string{"None reported"}
	}

	result = &types.HealthAssessmentResult{
		BMICategory:        category,
		FoodCalories:       foodCalories,
		CaloriePercentage:  caloriePercentage,
		Suitability:        suitability,
		Recommendations:    recommendations,
		OverallHealthScore: overall,
		HealthConditions:   conditions,
	}
	if bmiOK {
		result.BMI = &bmi
	}
	if caloriesOK {
		result.DailyCalorieNeeds = &dailyCalories
	}

	a.logger.Debug("health assessment complete",
		zap.String("food", record.FoodName),
		zap.String("bmi_category", category),
		zap.Float64("suitability", suitability.SuitabilityScore),
		zap.Float64("quality", quality),
		zap.Float64("overall", overall))

	return result, nil
}
