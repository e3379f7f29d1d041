package forecast

// SeasonalityMode selects how seasonal effects combine with the trend.
type SeasonalityMode string

const (
	// Additive seasonality is modeled on the raw daily amounts.
	Additive SeasonalityMode = "additive"
	// Multiplicative seasonality is modeled on the log scale so seasonal
	// swings grow with the trend level.
	Multiplicative SeasonalityMode = "multiplicative"
)

// ModelSpec holds the model configuration for one category class.
// The configuration is category-conditioned on purpose: weekly-cadence
// categories (dining, cafe) and monthly-cadence categories (transport,
// utilities) need different seasonal structure, and using a single
// global configuration measurably degrades forecast quality.
type ModelSpec struct {
	Mode               SeasonalityMode
	WeeklySeasonality  bool
	MonthlySeasonality bool
}

// CategoryClasses maps category names to their model class.
type CategoryClasses struct {
	// Weekly lists categories with a strong weekly cadence.
	Weekly []string
	// Monthly lists categories with a monthly cadence.
	Monthly []string
}

// DefaultCategoryClasses returns the built-in category classification.
func DefaultCategoryClasses() CategoryClasses {
	return CategoryClasses{
		Weekly:  []string{"Food & Dining", "Cafe"},
		Monthly: []string{"Transportation", "Utilities", "Housing & Telecom"},
	}
}

// SpecFor returns the model configuration for a category.
func (c CategoryClasses) SpecFor(category string) ModelSpec {
	for _, name := range c.Weekly {
		if name == category {
			return ModelSpec{
				Mode:              Additive,
				WeeklySeasonality: true,
			}
		}
	}
	for _, name := range c.Monthly {
		if name == category {
			return ModelSpec{
				Mode:               Additive,
				MonthlySeasonality: true,
			}
		}
	}
	return ModelSpec{
		Mode:              Multiplicative,
		WeeklySeasonality: true,
	}
}
