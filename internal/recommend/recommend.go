// Package recommend turns scorer outputs into a short, ordered list of advice.
package recommend

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pageza/foodscan/backend/internal/types"
)

// MaxRecommendations caps the list; extra entries are dropped, never reordered.
const MaxRecommendations = 7

// Input is everything the rules read.
type Input struct {
	BMICategory       string
	Diseases          []string
	Suitability       types.SuitabilityAssessment
	FoodName          string
	Calories          float64
	CaloriePercentage float64
	QualityScore      float64
}

// Generate applies the rules in a fixed order: weight-and-junk warnings, BMI
// guidance, calorie share alerts, condition alerts, the suitability warning
// pointer, food quality guidance and finally positive reinforcement.
func Generate(in Input) []string {
	junk := in.Suitability.IsJunkFood
	var out []string

	if types.IsOverweightOrObese(in.BMICategory) && junk {
		out = append(out,
			fmt.Sprintf("🚫 AVOID THIS FOOD: %s is junk food and will worsen your weight condition", in.FoodName),
			"💡 Choose grilled, steamed, or baked options with vegetables instead",
			"🏃 Increase physical activity to burn excess calories",
		)
	}

	switch in.BMICategory {
	case types.CategoryUnderweight:
		out = append(out, "✅ Increase caloric intake with nutrient-dense foods like nuts, avocados, and lean proteins")
		if !junk {
			out = append(out, "✅ This food can be part of your weight gain diet")
		}
	case types.CategoryOverweight:
		if !junk && in.Calories < 500 {
			out = append(out, "✅ Good choice! Focus on similar low-calorie, nutritious meals")
		}
		out = append(out, "🎯 Target: Reduce 500 calories per day for healthy weight loss")
		if in.CaloriePercentage > 35 {
			out = append(out, "⚠️ This meal is a large portion of your daily calories - reduce serving size")
		}
	case types.CategoryObese:
		if junk {
			out = append(out, "🚨 CRITICAL: This food will significantly hinder your weight loss goals")
		}
		out = append(out,
			"💪 Urgent: Adopt a calorie deficit diet (500-1000 cal/day reduction)",
			"🥗 Prioritize: Vegetables, lean proteins, whole grains, and fruits",
		)
		if in.Calories > 400 {
			out = append(out, fmt.Sprintf("❌ This %s cal meal is too high - aim for 300-400 cal per meal", strconv.FormatFloat(in.Calories, 'f', -1, 64)))
		}
	}

	switch {
	case in.CaloriePercentage > 50:
		out = append(out, "⚠️ HIGH CALORIE ALERT: This is >50% of your daily needs - skip or drastically reduce portion")
	case in.CaloriePercentage > 40:
		out = append(out, "⚠️ This meal uses 40%+ of daily calories - balance with light meals")
	}

	for _, disease := range in.Diseases {
		d := strings.ToLower(disease)
		if strings.Contains(d, "diabetes") && junk {
			out = append(out, "🚨 DIABETIC ALERT: Junk food causes dangerous blood sugar spikes")
		}
		if strings.Contains(d, "heart") && junk {
			out = append(out, "❤️ HEART RISK: High-fat processed foods increase cardiovascular risk")
		}
	}

	if len(in.Suitability.Warnings) > 0 {
		out = append(out, "⚠️ HEALTH WARNINGS: Review all warnings above carefully before consuming")
	}

	switch {
	case in.QualityScore < 4:
		out = append(out, "❌ POOR FOOD QUALITY: Choose fresher, less processed alternatives")
	case in.QualityScore < 6:
		out = append(out, "⚠️ Consider healthier preparation methods (grilled, steamed, baked)")
	}

	if !junk && in.Suitability.Suitable && in.QualityScore >= 7 {
		out = append(out, "✅ EXCELLENT CHOICE! This food aligns well with your health goals")
		if in.BMICategory == types.CategoryNormal {
			out = append(out, "👍 Keep making healthy choices like this to maintain your weight")
		}
	}

	if len(out) == 0 {
		out = append(out, "💡 Maintain a balanced diet with variety in nutrients")
	}

	if len(out) > MaxRecommendations {
		out = out[:MaxRecommendations]
	}
	return out
}
