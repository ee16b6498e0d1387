package types

// BMI categories.
const (
	CategoryUnderweight = "Underweight"
	CategoryNormal      = "Normal weight"
	CategoryOverweight  = "Overweight"
	CategoryObese       = "Obese"
	CategoryUnknown     = "Unknown"
)

// HealthProfile is the consumer's body metrics and declared conditions for one request.
type HealthProfile struct {
	HeightCM float64  `json:"height"`
	WeightKG float64  `json:"weight"`
	Diseases []string `json:"diseases"`
}

// SuitabilityAssessment is the disease- and BMI-conditioned fitness of a food.
type SuitabilityAssessment struct {
	Suitable         bool     `json:"suitable"`
	Warnings         []string `json:"warnings"`
	SuitabilityScore float64  `json:"suitabilityScore"`
	IsJunkFood       bool     `json:"isJunkFood"`
}

// HealthAssessmentResult is the terminal output of the health scorer.
// BMI and DailyCalorieNeeds are nil when height or weight is not positive.
type HealthAssessmentResult struct {
	BMI                *float64              `json:"bmi"`
	BMICategory        string                `json:"bmiCategory"`
	DailyCalorieNeeds  *float64              `json:"dailyCalorieNeeds"`
	FoodCalories       float64               `json:"foodCalories"`
	CaloriePercentage  float64               `json:"caloriePercentage"`
	Suitability        SuitabilityAssessment `json:"suitability"`
	Recommendations    []string              `json:"recommendations"`
	OverallHealthScore float64               `json:"overallHealthScore"`
	HealthConditions   []string              `json:"healthConditions"`
}

// AnalysisResponse is the success envelope returned to callers.
type AnalysisResponse struct {
	FoodAnalysis     *FoodRecord             `json:"foodAnalysis"`
	HealthAssessment *HealthAssessmentResult `json:"healthAssessment"`
	Success          bool                    `json:"success"`
}

// IsOverweightOrObese reports whether the category triggers weight-management rules.
func IsOverweightOrObese(category string) bool {
	return category == CategoryOverweight || category == CategoryObese
}
