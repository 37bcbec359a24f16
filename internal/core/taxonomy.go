package core

import "strings"

// OtherSubCategory is the fallback label present in every pillar.
const OtherSubCategory = "Other"

// SubCategories maps each pillar to its closed list of subcategory labels.
var SubCategories = map[Pillar][]string{
	Essential: {"Housing", "Groceries", "Health", "Education", "Transport", "Bills", OtherSubCategory},
	Lifestyle: {"Leisure", "Restaurants", "Travel", "Subscriptions", "Shopping", "Personal Care", OtherSubCategory},
	Goals:     {"Investments", "Emergency Fund", "Retirement", "Debt Payment", "Dreams", OtherSubCategory},
}

// Labels returns every known subcategory label once, in pillar order.
func Labels() []string {
	seen := map[string]struct{}{}
	var out []string
	for _, p := range Pillars {
		for _, l := range SubCategories[p] {
			if _, ok := seen[l]; ok {
				continue
			}
			seen[l] = struct{}{}
			out = append(out, l)
		}
	}
	return out
}

// MatchSubCategory returns the known label equal to s, or OtherSubCategory.
func MatchSubCategory(s string) string {
	s = strings.TrimSpace(s)
	for _, l := range Labels() {
		if l == s {
			return l
		}
	}
	return OtherSubCategory
}

// PillarOf finds the first pillar whose list contains label. The shared
// OtherSubCategory resolves to Essential.
func PillarOf(label string) (Pillar, bool) {
	for _, p := range Pillars {
		for _, l := range SubCategories[p] {
			if l == label {
				return p, true
			}
		}
	}
	return "", false
}

// ValidSubCategory reports whether label belongs to pillar p.
func ValidSubCategory(p Pillar, label string) bool {
	for _, l := range SubCategories[p] {
		if l == label {
			return true
		}
	}
	return false
}
