package models

// Uncategorized is the category assigned to articles matching nothing in
// the taxonomy. It is never persisted as a graph edge.
const Uncategorized = "Uncategorized"

// CategoryScore holds the weighted match result for a single category.
// Subcategory weights are round(1/n, 4) for a category with n
// subcategories; TotalScore is the rounded sum of recorded weights.
type CategoryScore struct {
	Category      string             `json:"category"`
	TotalScore    float64            `json:"total_score"`
	Subcategories map[string]float64 `json:"subcategories"`
}

// CategoryScoreMap is the per-article scoring result, ordered by
// TotalScore descending with encounter order preserved on ties.
type CategoryScoreMap []CategoryScore

// NewUncategorizedScoreMap returns the singleton result used when no
// taxonomy entry matched.
func NewUncategorizedScoreMap() CategoryScoreMap {
	return CategoryScoreMap{
		{
			Category:      Uncategorized,
			TotalScore:    0.0,
			Subcategories: map[string]float64{},
		},
	}
}

// IsUncategorized reports whether the map is the no-match singleton.
func (m CategoryScoreMap) IsUncategorized() bool {
	return len(m) == 1 && m[0].Category == Uncategorized
}

// CategorySelection is one category/subcategory pair chosen by the
// classifier for a breaking news item.
type CategorySelection struct {
	Category    string `json:"category"`
	Subcategory string `json:"subcategory"`
}
