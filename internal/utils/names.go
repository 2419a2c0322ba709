package utils

import "strings"

func NormalizeName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	for strings.Contains(name, "  ") {
		name = strings.ReplaceAll(name, "  ", " ")
	}
	return name
}

// NameSimilarity scores two person names by token overlap in [0,1].
// "Smith, John" and "john smith" score 1.0.
func NameSimilarity(a, b string) float64 {
	ta := nameTokens(a)
	tb := nameTokens(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}
	set := map[string]struct{}{}
	for _, t := range ta {
		set[t] = struct{}{}
	}
	matched := 0
	for _, t := range tb {
		if _, ok := set[t]; ok {
			matched++
		}
	}
	denom := len(ta)
	if len(tb) > denom {
		denom = len(tb)
	}
	return float64(matched) / float64(denom)
}

func nameTokens(name string) []string {
	name = strings.ReplaceAll(NormalizeName(name), ",", " ")
	parts := strings.Fields(name)
	var out []string
	for _, p := range parts {
		p = strings.Trim(p, ".")
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
