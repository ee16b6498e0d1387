package oracle

import (
	"fmt"
	"strconv"
	"strings"
)

const healthScoreGuidance = `IMPORTANT INSTRUCTIONS FOR HEALTH SCORE:
- Junk/Fast Food (fried, processed, high fat/sugar/sodium): healthScore MUST be LOW (1-4)
- Moderately Healthy (some good nutrients but also some concerns): healthScore 5-6
- Healthy Food (fresh, grilled, steamed, vegetables, fruits, lean protein): healthScore 7-10

Examples:
- Pizza, burgers, fried chicken, donuts, fries: 1-3
- Pasta, curry with rice, sandwiches: 5-6
- Salads, grilled fish, steamed vegetables, fresh fruits: 8-10`

const recordShape = `{
  "foodName": %s,
  "confidence": %s,
  "calories": (realistic calorie estimate for the visible portion, number),
  "ingredients": ["main ingredients visible or typical for this dish"],
  "nutritionalBreakdown": {
    "protein": "Xg",
    "carbohydrates": "Xg",
    "fats": "Xg",
    "saturatedFat": "Xg",
    "fiber": "Xg",
    "sugar": "Xg",
    "sodium": "Xmg",
    "vitamins": ["Vitamin A", "Vitamin C"],
    "minerals": ["Iron", "Calcium"]
  },
  "foodQualityCycle": {
    "freshness": "High/Medium/Low based on appearance",
    "preparation": "How it is cooked (fried/grilled/steamed/baked/raw)",
    "healthScore": (1-10, BE STRICT with junk food),
    "qualityIndicators": ["what makes it healthy or unhealthy"]
  },
  "portionSize": "approximate serving size with weight",
  "mealType": "Breakfast/Lunch/Dinner/Snack"
}`

func detailedPrompt(foodName string, confidence *float64) string {
	conf := "(your confidence from 0 to 1 that the image shows this food)"
	if confidence != nil {
		conf = strconv.FormatFloat(*confidence, 'f', -1, 64)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "This is an image of %s. Provide a comprehensive and ACCURATE nutritional analysis.\n\n", foodName)
	b.WriteString(healthScoreGuidance)
	b.WriteString("\n\nReturn in this JSON format:\n")
	fmt.Fprintf(&b, recordShape, strconv.Quote(foodName), conf)
	b.WriteString("\n\nBE REALISTIC and STRICT with healthScore for unhealthy foods!\nReturn ONLY valid JSON without markdown formatting.")
	return b.String()
}

func fullPrompt() string {
	var b strings.Builder
	b.WriteString("Analyze this food image and provide a comprehensive, ACCURATE nutritional analysis.\n\n")
	b.WriteString(healthScoreGuidance)
	b.WriteString("\n\nReturn in JSON format:\n")
	fmt.Fprintf(&b, recordShape, `"Exact name of the dish"`, "(your confidence from 0 to 1)")
	b.WriteString("\n\nReturn ONLY valid JSON. No markdown, no code blocks.")
	return b.String()
}

func verifyPrompt(label string) string {
	return fmt.Sprintf("Is this image showing %s? Answer with just 'YES' or 'NO'.", label)
}

func identifyPrompt() string {
	return "What food is shown in this image? Answer with only the name of the dish, no other text."
}

func recommendPrompt(recordJSON string, conditions []string) string {
	c := "None"
	if len(conditions) > 0 {
		c = strings.Join(conditions, ", ")
	}
	return fmt.Sprintf(`Based on this food analysis: %s
And these health conditions: %s

Provide 3-5 specific recommendations for this person regarding this food.
Return as a JSON array of strings.
Example: ["recommendation1", "recommendation2", "recommendation3"]
Return ONLY valid JSON without any markdown formatting.`, recordJSON, c)
}
