package classifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/flashback/internal/models"
)

func TestUnwrapFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", `[("A", "b")]`, `[("A", "b")]`},
		{"fenced json", "```json\n[(\"A\", \"b\")]\n```", `[("A", "b")]`},
		{"fenced no tag", "```\n{\"x\": 1}\n```", `{"x": 1}`},
		{"fenced uppercase", "```JSON\n[]\n```", `[]`},
		{"embedded fence", "Here you go:\n```json\n[1, 2]\n```\nHope that helps.", `[1, 2]`},
		{"whitespace", "  \n[(\"A\", \"b\")]\n  ", `[("A", "b")]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, unwrapFences(tt.in))
		})
	}
}

func TestExtractList(t *testing.T) {
	assert.Equal(t, `[("A", "b")]`, extractList(`[("A", "b")]`))

	multi := "The relevant categories are:\n[(\"A\", \"b\")]\nLet me know if you need more."
	assert.Equal(t, `[("A", "b")]`, extractList(multi))

	// No list anywhere: input passes through for the parser to reject.
	assert.Equal(t, "no list here", extractList("no list here"))
}

func TestParseCategoryList(t *testing.T) {
	selections, err := ParseCategoryList(`[("Interest Rates", "fed"), ("Inflation", "cpi")]`)
	require.NoError(t, err)
	assert.Equal(t, []models.CategorySelection{
		{Category: "Interest Rates", Subcategory: "fed"},
		{Category: "Inflation", Subcategory: "cpi"},
	}, selections)
}

func TestParseCategoryListSingleQuotes(t *testing.T) {
	selections, err := ParseCategoryList(`[('Interest Rates', 'fed')]`)
	require.NoError(t, err)
	assert.Equal(t, []models.CategorySelection{
		{Category: "Interest Rates", Subcategory: "fed"},
	}, selections)
}

func TestParseCategoryListTrailingComma(t *testing.T) {
	selections, err := ParseCategoryList(`[("A", "b"),]`)
	require.NoError(t, err)
	assert.Len(t, selections, 1)
}

func TestParseCategoryListEmpty(t *testing.T) {
	selections, err := ParseCategoryList(`[]`)
	require.NoError(t, err)
	assert.Empty(t, selections)
}

func TestParseCategoryListEscapedQuote(t *testing.T) {
	selections, err := ParseCategoryList(`[("Bob\'s Category", "sub")]`)
	require.NoError(t, err)
	assert.Equal(t, "Bob's Category", selections[0].Category)
}

func TestParseCategoryListRejectsMalformed(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"prose", "I could not find any categories."},
		{"missing paren", `[("A", "b"]`},
		{"bare words", `[(A, b)]`},
		{"unterminated string", `[("A, "b")]`},
		{"trailing content", `[("A", "b")] + extra()`},
		{"nested call", `[("A", "b"), open("/etc/passwd")]`},
		{"unterminated list", `[("A", "b")`},
		{"three elements", `[("A", "b", "c")]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCategoryList(tt.input)
			assert.Error(t, err)
		})
	}
}

func TestParseRelevanceList(t *testing.T) {
	input := `[
		{"article_id": "art_1", "reasoning": "Same rate shock pattern"},
		{"article_id": "art_2", "reasoning": "Comparable inflation print"}
	]`

	items, err := ParseRelevanceList(input)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "art_1", items[0].ArticleID)
	assert.Equal(t, "Same rate shock pattern", items[0].Reasoning)
}

func TestParseRelevanceListRejectsMissingID(t *testing.T) {
	_, err := ParseRelevanceList(`[{"reasoning": "no id here"}]`)
	assert.Error(t, err)

	_, err = ParseRelevanceList(`not json at all`)
	assert.Error(t, err)
}

func TestParseMarketImpact(t *testing.T) {
	input := `{
		"historical_event": "2022-06-15: Fed 75bps hike",
		"market_index": "S&P 500",
		"impact_1d": -0.03,
		"impact_1w": -0.01,
		"impact_1m": 0.02
	}`

	impact, err := ParseMarketImpact(input)
	require.NoError(t, err)
	assert.Equal(t, "2022-06-15: Fed 75bps hike", impact.HistoricalEvent)
	assert.Equal(t, "S&P 500", impact.MarketIndex)
	assert.Equal(t, -0.03, impact.Impact1D)
}

func TestParseMarketImpactRejectsIncomplete(t *testing.T) {
	_, err := ParseMarketImpact(`{"market_index": "DAX"}`)
	assert.Error(t, err)

	_, err = ParseMarketImpact(`[]`)
	assert.Error(t, err)
}

func TestExtractObject(t *testing.T) {
	input := "Here is the projection:\n{\"historical_event\": \"x\"}\nDone."
	assert.Equal(t, `{"historical_event": "x"}`, extractObject(input))
}
