// -----------------------------------------------------------------------
// Category Scorer - Deterministic weighted multi-label scoring of article
// text against the controlled taxonomy
// -----------------------------------------------------------------------

package scoring

import (
	"math"
	"sort"
	"strings"

	"github.com/ternarybob/flashback/internal/common"
	"github.com/ternarybob/flashback/internal/models"
	"github.com/ternarybob/flashback/internal/taxonomy"
)

// Scorer computes a weighted category/subcategory score map for an
// article. It is a pure function over its inputs: no side effects, safe
// for concurrent use.
type Scorer struct {
	taxonomy             *taxonomy.Taxonomy
	minSubcategoryWeight float64
	minCategoryScore     float64
}

// NewScorer creates a scorer over the given taxonomy and thresholds.
func NewScorer(tax *taxonomy.Taxonomy, cfg common.ScoringConfig) *Scorer {
	return &Scorer{
		taxonomy:             tax,
		minSubcategoryWeight: cfg.SubcategoryMinWeight,
		minCategoryScore:     cfg.CategoryMinScore,
	}
}

// Score maps extracted keywords plus full text onto the taxonomy.
//
// Each subcategory of a category with n subcategories contributes a fixed
// weight of round(1/n, 4) when its term appears verbatim in the combined
// search-term set; weights at or below the configured minimum are
// discarded. A category is retained when its rounded total reaches the
// category minimum. No match anywhere yields the Uncategorized singleton.
// The result is ordered by total score descending, preserving taxonomy
// order on ties.
func (s *Scorer) Score(keywords []string, fullText string) models.CategoryScoreMap {
	terms := buildSearchTerms(keywords, fullText)

	var results models.CategoryScoreMap
	for _, category := range s.taxonomy.Categories() {
		weight := roundTo(1.0/float64(len(category.Subcategories)), 4)

		subcategories := make(map[string]float64)
		total := 0.0
		for _, subcategory := range category.Subcategories {
			if !terms[strings.ToLower(subcategory)] {
				continue
			}
			if weight <= s.minSubcategoryWeight {
				continue
			}
			subcategories[subcategory] = weight
			total += weight
		}

		total = roundTo(total, 2)
		if total >= s.minCategoryScore {
			results = append(results, models.CategoryScore{
				Category:      category.Name,
				TotalScore:    total,
				Subcategories: subcategories,
			})
		}
	}

	if len(results) == 0 {
		return models.NewUncategorizedScoreMap()
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].TotalScore > results[j].TotalScore
	})

	return results
}

// buildSearchTerms combines normalized keywords with the whitespace tokens
// of the lowercased full text. Multi-word keywords survive as single terms,
// which is how multi-word subcategories match.
func buildSearchTerms(keywords []string, fullText string) map[string]bool {
	terms := make(map[string]bool)
	for _, keyword := range keywords {
		keyword = strings.ToLower(strings.TrimSpace(keyword))
		if keyword != "" {
			terms[keyword] = true
		}
	}
	for _, token := range strings.Fields(strings.ToLower(fullText)) {
		terms[token] = true
	}
	return terms
}

func roundTo(value float64, places int) float64 {
	factor := math.Pow(10, float64(places))
	return math.Round(value*factor) / factor
}
