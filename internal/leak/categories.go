package leak

// FallbackCategory receives transactions whose category is blank.
const FallbackCategory = "Other"

// DefaultAllowedCategories is the fixed bucket list used for leak and
// threshold analysis. Insurance and tax flows are deliberately not part
// of leak detection.
func DefaultAllowedCategories() []string {
	return []string{
		"Food & Dining",
		"Cafe",
		"Groceries",
		"Entertainment",
		"Transportation",
		"Fashion & Beauty",
		"Household",
		"Housing & Telecom",
		"Health",
		"Education",
		"Events & Dues",
		"Other",
	}
}

// CategoryFilter restricts analysis to an allowed category set.
type CategoryFilter struct {
	allowed map[string]struct{}
}

// NewCategoryFilter builds a filter from an allow-list.
func NewCategoryFilter(allowed []string) *CategoryFilter {
	set := make(map[string]struct{}, len(allowed))
	for _, name := range allowed {
		set[name] = struct{}{}
	}
	return &CategoryFilter{allowed: set}
}

// Map returns the analysis bucket for a raw category, or false when the
// category is excluded from leak analysis entirely. Blank categories
// fall back to the catch-all bucket.
func (f *CategoryFilter) Map(raw string) (string, bool) {
	name := raw
	if name == "" {
		name = FallbackCategory
	}
	if _, ok := f.allowed[name]; !ok {
		return "", false
	}
	return name, true
}
