package health

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pageza/foodscan/backend/internal/types"
)

// foodFacts is the subset of a FoodRecord the rules look at, extracted once.
type foodFacts struct {
	name         string
	ingredients  []string
	calories     float64
	protein      float64
	fiber        float64
	sugar        float64
	sodium       float64
	fat          float64
	saturatedFat float64
}

func factsOf(record *types.FoodRecord) foodFacts {
	nb := record.NutritionalBreakdown
	ingredients := make([]string, 0, len(record.Ingredients))
	for _, ing := range record.Ingredients {
		ingredients = append(ingredients, strings.ToLower(ing))
	}
	return foodFacts{
		name:         strings.ToLower(record.FoodName),
		ingredients:  ingredients,
		calories:     record.CalorieCount(),
		protein:      nb.Protein.Value(),
		fiber:        nb.Fiber.Value(),
		sugar:        nb.Sugar.Value(),
		sodium:       nb.Sodium.Value(),
		fat:          nb.Fats.Value(),
		saturatedFat: nb.SaturatedFat.Value(),
	}
}

// suitabilityState accumulates deductions and warnings in evaluation order.
type suitabilityState struct {
	score    float64
	warnings []string
	// penalized records that the junk-food deduction already fired, so later
	// rules with the same root cause only warn.
	penalized bool
}

func (s *suitabilityState) deduct(points float64, warning string) {
	s.score -= points
	s.warnings = append(s.warnings, warning)
}

func (s *suitabilityState) warn(warning string) {
	s.warnings = append(s.warnings, warning)
}

func (s *suitabilityState) warnedAbout(topic string) bool {
	for _, w := range s.warnings {
		if strings.Contains(strings.ToLower(w), topic) {
			return true
		}
	}
	return false
}

// AssessSuitability scores how fit the food is for the given conditions and
// BMI category, starting at 10 and deducting per rule.
func (a *Assessor) AssessSuitability(diseases []string, record *types.FoodRecord, bmiCategory string) types.SuitabilityAssessment {
	f := factsOf(record)
	texts := append([]string{f.name}, f.ingredients...)

	unhealthy := a.keywords.Match(SetJunk, texts...)
	healthy := a.keywords.Match(SetHealthy, texts...)
	junk := unhealthy && !healthy

	s := &suitabilityState{score: 10, warnings: []string{}}

	if junk {
		s.deduct(2, "⚠️ This appears to be processed/junk food")
		s.penalized = true
	}

	if types.IsOverweightOrObese(bmiCategory) {
		a.applyWeightRules(s, f, unhealthy, bmiCategory)
	}

	for _, disease := range diseases {
		a.applyDiseaseRules(s, f, unhealthy, strings.ToLower(strings.TrimSpace(disease)))
	}

	if f.sodium > 1000 && !s.warnedAbout("sodium") {
		s.deduct(1.5, fmt.Sprintf("⚠️ Extremely high sodium (%smg) - Daily limit is 2300mg", num(f.sodium)))
	}
	if f.sugar > 30 && !s.warnedAbout("sugar") {
		s.deduct(1.5, fmt.Sprintf("⚠️ Very high sugar content (%sg) - Limit sugar intake", num(f.sugar)))
	}
	if f.fat > 35 && !s.warnedAbout("fat") {
		s.deduct(0.5, fmt.Sprintf("⚠️ High fat content (%sg)", num(f.fat)))
	}

	score := clamp(s.score, 0, 10)
	return types.SuitabilityAssessment{
		Suitable:         score >= 5,
		Warnings:         s.warnings,
		SuitabilityScore: score,
		IsJunkFood:       junk,
	}
}

func (a *Assessor) applyWeightRules(s *suitabilityState, f foodFacts, unhealthy bool, bmiCategory string) {
	notRecommended := fmt.Sprintf("❌ Not recommended for %s individuals - high in unhealthy fats/calories", bmiCategory)
	switch {
	case unhealthy && !s.penalized:
		s.deduct(2, notRecommended)
	case unhealthy:
		s.warn(notRecommended)
	}

	if f.calories > 700 {
		s.deduct(1.5, fmt.Sprintf("⚠️ High calorie content (%s cal) - May hinder weight management", num(f.calories)))
	}

	if a.keywords.Match(SetFried, f.name) {
		if !s.penalized {
			s.score -= 1.5
		}
		s.warn("❌ Fried foods are not recommended for weight management")
	}
}

func (a *Assessor) applyDiseaseRules(s *suitabilityState, f foodFacts, unhealthy bool, disease string) {
	if strings.Contains(disease, "diabetes") || strings.Contains(disease, "diabetic") {
		switch {
		case f.sugar > 20:
			s.deduct(2.5, fmt.Sprintf("❌ High sugar content (%sg) - Dangerous for diabetes", num(f.sugar)))
		case f.sugar > 15:
			s.deduct(1, fmt.Sprintf("⚠️ Moderate sugar content (%sg) - Monitor intake", num(f.sugar)))
		}
		if unhealthy && !s.penalized {
			s.deduct(1.5, "❌ Processed foods can spike blood sugar levels")
		}
	}

	if strings.Contains(disease, "hypertension") || strings.Contains(disease, "blood pressure") {
		switch {
		case f.sodium > 800:
			s.deduct(2.5, fmt.Sprintf("❌ Very high sodium (%smg) - Dangerous for hypertension", num(f.sodium)))
		case f.sodium > 500:
			s.deduct(1.5, fmt.Sprintf("⚠️ High sodium (%smg) - Monitor intake", num(f.sodium)))
		}
	}

	if strings.Contains(disease, "heart") || strings.Contains(disease, "cardiac") {
		switch {
		case f.fat > 25 || f.saturatedFat > 12:
			s.deduct(2.5, "❌ High fat content - Not suitable for heart conditions")
		case f.fat > 20 || f.saturatedFat > 10:
			s.deduct(1, "⚠️ Moderate fat content - Monitor intake")
		}
		if unhealthy && !s.penalized {
			s.deduct(1.5, "❌ Processed foods increase cardiovascular risk")
		}
	}

	if strings.Contains(disease, "obesity") {
		const worsen = "❌ STRONGLY NOT RECOMMENDED - Junk food will worsen obesity"
		switch {
		case unhealthy && !s.penalized:
			s.deduct(2.5, worsen)
		case unhealthy:
			s.warn(worsen)
		}
		if f.calories > 600 {
			s.deduct(1.5, fmt.Sprintf("❌ High calorie meal (%s cal) - Choose lower calorie options", num(f.calories)))
		}
	}
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
