package reconcile

import "strings"

var labelReplacer = strings.NewReplacer(" ", "_", "-", "_")

// NormalizeLabel lowercases and turns spaces and hyphens into underscores.
func NormalizeLabel(label string) string {
	return labelReplacer.Replace(strings.ToLower(strings.TrimSpace(label)))
}

// LabelsMatch reports whether two labels are equal after normalization or
// one contains the other.
func LabelsMatch(a, b string) bool {
	na, nb := NormalizeLabel(a), NormalizeLabel(b)
	if na == "" || nb == "" {
		return false
	}
	return na == nb || strings.Contains(na, nb) || strings.Contains(nb, na)
}
