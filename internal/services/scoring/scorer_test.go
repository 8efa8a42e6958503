package scoring

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/flashback/internal/common"
	"github.com/ternarybob/flashback/internal/models"
	"github.com/ternarybob/flashback/internal/taxonomy"
)

func defaultScoringConfig() common.ScoringConfig {
	return common.ScoringConfig{
		SubcategoryMinWeight: 0.05,
		CategoryMinScore:     0.1,
	}
}

func mustParseTaxonomy(t *testing.T, yaml string) *taxonomy.Taxonomy {
	t.Helper()
	tax, err := taxonomy.Parse([]byte(yaml))
	require.NoError(t, err)
	return tax
}

func TestScoreNoMatch(t *testing.T) {
	tax := mustParseTaxonomy(t, `
categories:
  - name: Rates
    subcategories: [fed, ecb, boe, boj]
`)
	scorer := NewScorer(tax, defaultScoringConfig())

	result := scorer.Score([]string{"weather", "football"}, "a quiet day in sports")

	require.Len(t, result, 1)
	assert.True(t, result.IsUncategorized())
	assert.Equal(t, models.Uncategorized, result[0].Category)
	assert.Equal(t, 0.0, result[0].TotalScore)
	assert.Empty(t, result[0].Subcategories)
}

func TestScoreWeights(t *testing.T) {
	tax := mustParseTaxonomy(t, `
categories:
  - name: Rates
    subcategories: [fed, ecb, boe, boj]
`)
	scorer := NewScorer(tax, defaultScoringConfig())

	// Two of four subcategories match: weight 1/4 each.
	result := scorer.Score(nil, "the fed and the ecb held steady")

	require.Len(t, result, 1)
	assert.Equal(t, "Rates", result[0].Category)
	assert.Equal(t, 0.5, result[0].TotalScore)
	assert.Equal(t, map[string]float64{"fed": 0.25, "ecb": 0.25}, result[0].Subcategories)
}

func TestScoreCategoryThreshold(t *testing.T) {
	// 16 subcategories: one match contributes round(1/16, 4) = 0.0625,
	// total rounds to 0.06 and the category fails the 0.1 minimum.
	subs := []string{
		"s01", "s02", "s03", "s04", "s05", "s06", "s07", "s08",
		"s09", "s10", "s11", "s12", "s13", "s14", "s15", "s16",
	}
	tax := mustParseTaxonomy(t, "categories:\n  - name: Wide\n    subcategories: ["+strings.Join(subs, ", ")+"]")
	scorer := NewScorer(tax, defaultScoringConfig())

	result := scorer.Score(nil, "only s01 appears here")

	assert.True(t, result.IsUncategorized())
}

func TestScoreSubcategoryMinWeight(t *testing.T) {
	// 25 subcategories: weight 0.04 never exceeds the 0.05 minimum, so
	// the category can never qualify regardless of matches.
	var subs []string
	for _, c := range "abcdefghijklmnopqrstuvwxy" {
		subs = append(subs, string(c)+"term")
	}
	tax := mustParseTaxonomy(t, "categories:\n  - name: Oversized\n    subcategories: ["+strings.Join(subs, ", ")+"]")
	scorer := NewScorer(tax, defaultScoringConfig())

	result := scorer.Score(subs, "")

	assert.True(t, result.IsUncategorized())
}

func TestScoreOrdering(t *testing.T) {
	tax := mustParseTaxonomy(t, `
categories:
  - name: First
    subcategories: [alpha, beta, gamma, delta]
  - name: Second
    subcategories: [oil, gold, copper, silver]
`)
	scorer := NewScorer(tax, defaultScoringConfig())

	// Second matches three subcategories (0.75), First matches one (0.25).
	result := scorer.Score(nil, "alpha oil gold copper")

	require.Len(t, result, 2)
	assert.Equal(t, "Second", result[0].Category)
	assert.Equal(t, 0.75, result[0].TotalScore)
	assert.Equal(t, "First", result[1].Category)
	assert.Equal(t, 0.25, result[1].TotalScore)
}

func TestScoreTiesKeepTaxonomyOrder(t *testing.T) {
	tax := mustParseTaxonomy(t, `
categories:
  - name: First
    subcategories: [alpha, beta]
  - name: Second
    subcategories: [oil, gold]
`)
	scorer := NewScorer(tax, defaultScoringConfig())

	result := scorer.Score(nil, "alpha oil")

	require.Len(t, result, 2)
	assert.Equal(t, "First", result[0].Category)
	assert.Equal(t, "Second", result[1].Category)
}

func TestScoreMultiWordKeyword(t *testing.T) {
	tax := mustParseTaxonomy(t, `
categories:
  - name: Rates
    subcategories: [rate hike, rate cut]
`)
	scorer := NewScorer(tax, defaultScoringConfig())

	// "rate hike" cannot match via whitespace tokens; it arrives as an
	// extracted keyword phrase.
	result := scorer.Score([]string{"Rate Hike"}, "the central bank moved today")

	require.Len(t, result, 1)
	assert.Equal(t, "Rates", result[0].Category)
	assert.Equal(t, map[string]float64{"rate hike": 0.5}, result[0].Subcategories)
}

func TestScoreEmbeddedTaxonomy(t *testing.T) {
	tax, err := taxonomy.Load()
	require.NoError(t, err)
	scorer := NewScorer(tax, defaultScoringConfig())

	result := scorer.Score(
		[]string{"rate hike", "interest rates"},
		"Fed hikes rates by 50bps amid inflation fears",
	)

	require.False(t, result.IsUncategorized())
	categories := make([]string, 0, len(result))
	for _, score := range result {
		categories = append(categories, score.Category)
	}
	assert.Contains(t, categories, "Inflation")
	assert.Contains(t, categories, "Interest Rates")
}
