package health

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Keyword set names.
const (
	SetJunk    = "junk"
	SetHealthy = "healthy"
	SetFried   = "fried"
)

// KeywordSets maps a set name to lowercase keywords matched as
// case-insensitive substrings of a food name or ingredient.
type KeywordSets map[string][]string

// DefaultKeywordSets returns the built-in sets.
func DefaultKeywordSets() KeywordSets {
	return KeywordSets{
		SetJunk: {
			"fried", "deep fried", "crispy", "burger", "fries", "pizza",
			"donut", "cake", "pastry", "ice cream", "candy", "chips", "soda",
			"fast food", "junk", "processed", "nugget", "hot dog", "bacon",
			"milkshake", "cookie", "brownie", "nachos", "taco bell", "mcdonald",
			"kfc", "wings", "cheesy", "creamy sauce", "mayo", "breaded",
		},
		SetHealthy: {
			"salad", "vegetable", "fruit", "grilled", "steamed", "baked",
			"whole grain", "lean", "fresh", "green", "organic", "smoothie",
			"quinoa", "brown rice", "oatmeal", "yogurt", "nuts", "seeds",
			"fish", "chicken breast", "tofu", "lentils", "beans",
		},
		SetFried: {"fried", "deep fried", "crispy", "breaded"},
	}
}

// LoadKeywordSets reads a YAML mapping of set name to keyword list and lays
// it over the defaults. Sets missing from the file keep their defaults.
func LoadKeywordSets(path string) (KeywordSets, error) {
	sets := DefaultKeywordSets()
	if path == "" {
		return sets, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read keyword sets %s: %w", path, err)
	}

	var fromFile map[string][]string
	if err := yaml.Unmarshal(data, &fromFile); err != nil {
		return nil, fmt.Errorf("failed to parse keyword sets %s: %w", path, err)
	}

	for name, words := range fromFile {
		normalized := make([]string, 0, len(words))
		for _, w := range words {
			w = strings.ToLower(strings.TrimSpace(w))
			if w != "" {
				normalized = append(normalized, w)
			}
		}
		sets[strings.ToLower(name)] = normalized
	}
	return sets, nil
}

// Match reports whether any keyword of the named set occurs in any of texts.
func (k KeywordSets) Match(set string, texts ...string) bool {
	for _, word := range k[set] {
		for _, text := range texts {
			if strings.Contains(strings.ToLower(text), word) {
				return true
			}
		}
	}
	return false
}
