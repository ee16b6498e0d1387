package types

import "github.com/pageza/foodscan/backend/internal/nutrient"

// FoodRecord is the settled identity and nutrition profile of the pictured food.
// It is created by the oracle step, its quality score is overwritten once by
// the health scorer, and it is read-only afterwards.
type FoodRecord struct {
	FoodName             string               `json:"foodName" validate:"required"`
	Confidence           float64              `json:"confidence" validate:"gte=0"`
	Calories             nutrient.Amount      `json:"calories"`
	Ingredients          []string             `json:"ingredients"`
	NutritionalBreakdown NutritionalBreakdown `json:"nutritionalBreakdown"`
	FoodQualityCycle     FoodQualityCycle     `json:"foodQualityCycle"`
	PortionSize          string               `json:"portionSize,omitempty"`
	MealType             string               `json:"mealType,omitempty"`
	ModelUsed            string               `json:"modelUsed"`
}

// NutritionalBreakdown keeps quantities with their units ("35g", "900mg").
type NutritionalBreakdown struct {
	Protein       nutrient.Amount `json:"protein"`
	Carbohydrates nutrient.Amount `json:"carbohydrates"`
	Fats          nutrient.Amount `json:"fats"`
	SaturatedFat  nutrient.Amount `json:"saturatedFat"`
	Fiber         nutrient.Amount `json:"fiber"`
	Sugar         nutrient.Amount `json:"sugar"`
	Sodium        nutrient.Amount `json:"sodium"`
	Vitamins      []string        `json:"vitamins"`
	Minerals      []string        `json:"minerals"`
}

// FoodQualityCycle describes freshness and preparation. HealthScore is on a 0-10 scale.
type FoodQualityCycle struct {
	Freshness         string   `json:"freshness,omitempty"`
	Preparation       string   `json:"preparation,omitempty"`
	HealthScore       float64  `json:"healthScore"`
	QualityIndicators []string `json:"qualityIndicators"`
}

// CalorieCount is the coarse calorie magnitude of the record.
func (r *FoodRecord) CalorieCount() float64 {
	return r.Calories.Value()
}
