package oracle

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/xeipuuv/gojsonschema"

	"github.com/pageza/foodscan/backend/internal/types"
)

var (
	jsonFence = regexp.MustCompile("```json\\s*")
	anyFence  = regexp.MustCompile("```\\s*")

	validate = validator.New()
)

const recordSchemaTemplate = `{
  "type": "object",
  "required": [%s],
  "properties": {
    "foodName": {"type": "string", "minLength": 1},
    "confidence": {"type": "number", "minimum": 0},
    "calories": {"type": ["number", "string", "null"]},
    "ingredients": {"type": "array", "items": {"type": "string"}},
    "nutritionalBreakdown": {"type": "object"},
    "foodQualityCycle": {"type": "object"}
  }
}`

var (
	detailedRequired = []string{"foodName", "confidence", "calories", "ingredients", "nutritionalBreakdown"}
	fullRequired     = append(append([]string{}, detailedRequired...), "foodQualityCycle")

	detailedSchema = gojsonschema.NewStringLoader(recordSchema(detailedRequired))
	fullSchema     = gojsonschema.NewStringLoader(recordSchema(fullRequired))
)

func recordSchema(required []string) string {
	quoted := make([]string, len(required))
	for i, f := range required {
		quoted[i] = `"` + f + `"`
	}
	return fmt.Sprintf(recordSchemaTemplate, strings.Join(quoted, ", "))
}

// stripFences removes markdown code fences around a model response.
func stripFences(text string) string {
	text = jsonFence.ReplaceAllString(strings.TrimSpace(text), "")
	text = anyFence.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

// parseRecord turns an oracle response into a validated FoodRecord. Text that
// is not JSON is oracle_malformed; JSON missing a required field is
// oracle_incomplete.
func parseRecord(text string, full bool) (*types.FoodRecord, error) {
	body := stripFences(text)

	var raw any
	if err := json.Unmarshal([]byte(body), &raw); err != nil {
		return nil, types.NewAnalysisError(types.FailureOracleMalformed, "Failed to parse AI response", err)
	}

	schema := detailedSchema
	if full {
		schema = fullSchema
	}
	result, err := gojsonschema.Validate(schema, gojsonschema.NewGoLoader(raw))
	if err != nil {
		return nil, types.NewAnalysisError(types.FailureOracleMalformed, "Failed to parse AI response", err)
	}
	if !result.Valid() {
		problems := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			problems = append(problems, desc.String())
		}
		return nil, types.NewAnalysisError(types.FailureOracleIncomplete, "Incomplete AI response",
			fmt.Errorf("%s", strings.Join(problems, "; ")))
	}

	var record types.FoodRecord
	if err := json.Unmarshal([]byte(body), &record); err != nil {
		return nil, types.NewAnalysisError(types.FailureOracleMalformed, "Failed to parse AI response", err)
	}
	if err := validate.Struct(&record); err != nil {
		return nil, types.NewAnalysisError(types.FailureOracleIncomplete, "Incomplete AI response", err)
	}
	return &record, nil
}

// parseAdvice decodes a JSON array of strings.
func parseAdvice(text string) ([]string, error) {
	var advice []string
	if err := json.Unmarshal([]byte(stripFences(text)), &advice); err != nil {
		return nil, types.NewAnalysisError(types.FailureOracleMalformed, "Failed to parse AI response", err)
	}
	return advice, nil
}
