package health

import (
	"github.com/pageza/foodscan/backend/internal/types"
)

// FoodQuality scores the intrinsic quality of the food on 0-10, starting from
// a neutral 5. Keyword matches look at the food name only; the junk and
// healthy adjustments are independent and both apply when both sets match.
func (a *Assessor) FoodQuality(record *types.FoodRecord, bmiCategory string) float64 {
	f := factsOf(record)
	score := 5.0

	junk := a.keywords.Match(SetJunk, f.name)
	if junk {
		score -= 2
	}
	if a.keywords.Match(SetHealthy, f.name) {
		score += 2.5
	}

	switch {
	case f.protein > 25:
		score += 1.5
	case f.protein > 15:
		score += 0.5
	}

	switch {
	case f.fiber > 8:
		score += 1.5
	case f.fiber > 5:
		score += 0.5
	}

	switch {
	case f.sugar < 8:
		score += 1.5
	case f.sugar < 15:
		score += 0.5
	case f.sugar > 30:
		score -= 1.5
	}

	switch {
	case f.sodium < 300:
		score += 1.5
	case f.sodium < 500:
		score += 0.5
	case f.sodium > 1000:
		score -= 1.5
	}

	switch {
	case f.fat < 12:
		score += 1
	case f.fat > 35:
		score -= 1
	}

	if types.IsOverweightOrObese(bmiCategory) {
		if f.calories > 700 {
			score -= 1
		}
		if junk {
			score -= 0.5
		}
	}

	return clamp(round(score, 1), 0, 10)
}

var bmiScores = map[string]float64{
	types.CategoryNormal:      10,
	types.CategoryUnderweight: 7,
	types.CategoryOverweight:  6,
	types.CategoryObese:       4,
}

// junkCeiling caps the overall score of junk food for overweight and obese profiles.
const junkCeiling = 4.0

// OverallHealthScore blends BMI, suitability and quality into one 0-10 score.
func OverallHealthScore(bmiCategory string, suitability, quality float64, junk bool) float64 {
	bmiScore, ok := bmiScores[bmiCategory]
	if !ok {
		bmiScore = 5
	}

	var overall float64
	if types.IsOverweightOrObese(bmiCategory) && junk {
		overall = min(junkCeiling, 0.5*suitability+0.5*quality)
	} else {
		overall = 0.25*bmiScore + 0.45*suitability + 0.30*quality
	}
	return round(clamp(overall, 0, 10), 1)
}
