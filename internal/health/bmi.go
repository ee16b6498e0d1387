package health

import (
	"math"
	"strings"

	"github.com/pageza/foodscan/backend/internal/types"
)

// Gender selects the Mifflin-St Jeor constant.
type Gender string

const (
	Male   Gender = "male"
	Female Gender = "female"
)

// ActivityLevel selects the calorie multiplier applied to BMR.
type ActivityLevel string

const (
	Sedentary  ActivityLevel = "sedentary"
	Light      ActivityLevel = "light"
	Moderate   ActivityLevel = "moderate"
	Active     ActivityLevel = "active"
	VeryActive ActivityLevel = "very_active"
)

const (
	defaultAge    = 30
	defaultGender = Male
)

var activityMultipliers = map[ActivityLevel]float64{
	Sedentary:  1.2,
	Light:      1.375,
	Moderate:   1.55,
	Active:     1.725,
	VeryActive: 1.9,
}

// CalculateBMI returns the BMI rounded to two decimals and its category.
// ok is false, and the category "Unknown", when height or weight is not positive.
func CalculateBMI(heightCM, weightKG float64) (bmi float64, category string, ok bool) {
	if heightCM <= 0 || weightKG <= 0 {
		return 0, types.CategoryUnknown, false
	}

	heightM := heightCM / 100
	bmi = weightKG / (heightM * heightM)

	switch {
	case bmi < 18.5:
		category = types.CategoryUnderweight
	case bmi < 25:
		category = types.CategoryNormal
	case bmi < 30:
		category = types.CategoryOverweight
	default:
		category = types.CategoryObese
	}
	return round(bmi, 2), category, true
}

// CalculateBMR applies the Mifflin-St Jeor equation.
func CalculateBMR(heightCM, weightKG float64, age int, gender Gender) (float64, bool) {
	if heightCM <= 0 || weightKG <= 0 {
		return 0, false
	}

	bmr := 10*weightKG + 6.25*heightCM - 5*float64(age)
	if strings.EqualFold(string(gender), string(Male)) {
		bmr += 5
	} else {
		bmr -= 161
	}
	return round(bmr, 2), true
}

// CalculateCalorieNeeds multiplies the BMR of a 30 year old male by the
// activity multiplier. Unknown levels use the moderate multiplier.
func CalculateCalorieNeeds(heightCM, weightKG float64, level ActivityLevel) (float64, bool) {
	bmr, ok := CalculateBMR(heightCM, weightKG, defaultAge, defaultGender)
	if !ok {
		return 0, false
	}

	multiplier, found := activityMultipliers[level]
	if !found {
		multiplier = activityMultipliers[Moderate]
	}
	return round(bmr*multiplier, 0), true
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.RoundToEven(v*p) / p
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
