package classifier

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/flashback/internal/interfaces"
	"github.com/ternarybob/flashback/internal/models"
	"github.com/ternarybob/flashback/internal/services/llm"
	"github.com/ternarybob/flashback/internal/taxonomy"
)

// scriptedGenerator returns canned responses in order. A nil error with an
// empty response list repeats the last response.
type scriptedGenerator struct {
	responses []string
	errs      []error
	calls     int
	prompts   []string
}

func (g *scriptedGenerator) GenerateText(ctx context.Context, req *interfaces.GenerationRequest) (string, error) {
	idx := g.calls
	g.calls++
	g.prompts = append(g.prompts, req.Prompt)

	if idx < len(g.errs) && g.errs[idx] != nil {
		return "", g.errs[idx]
	}
	if idx < len(g.responses) {
		return g.responses[idx], nil
	}
	if len(g.responses) > 0 {
		return g.responses[len(g.responses)-1], nil
	}
	return "", errors.New("no scripted response")
}

func fastRetryConfig() *llm.RetryConfig {
	return &llm.RetryConfig{
		MaxAttempts:       3,
		InitialBackoff:    time.Millisecond,
		MaxBackoff:        10 * time.Millisecond,
		BackoffMultiplier: 2.0,
	}
}

func testTaxonomy(t *testing.T) *taxonomy.Taxonomy {
	t.Helper()
	tax, err := taxonomy.Parse([]byte(`
categories:
  - name: Interest Rates
    subcategories: [fed, rate hike, central bank]
  - name: Inflation
    subcategories: [cpi, inflation]
`))
	require.NoError(t, err)
	return tax
}

func newTestClient(t *testing.T, gen interfaces.TextGenerator) *Client {
	t.Helper()
	return NewClient(gen, testTaxonomy(t), fastRetryConfig(), "", nil)
}

func TestSelectCategories(t *testing.T) {
	gen := &scriptedGenerator{
		responses: []string{`[("Interest Rates", "fed"), ("Inflation", "cpi")]`},
	}
	client := newTestClient(t, gen)

	selections := client.SelectCategories(context.Background(), "Fed hikes rates")

	assert.Equal(t, []models.CategorySelection{
		{Category: "Interest Rates", Subcategory: "fed"},
		{Category: "Inflation", Subcategory: "cpi"},
	}, selections)
	assert.Equal(t, 1, gen.calls)
	assert.Contains(t, gen.prompts[0], "Fed hikes rates")
	assert.Contains(t, gen.prompts[0], "Interest Rates: fed, rate hike, central bank")
}

func TestSelectCategoriesDropsUnknownPairs(t *testing.T) {
	gen := &scriptedGenerator{
		responses: []string{`[("Interest Rates", "fed"), ("Astrology", "mars"), ("Interest Rates", "FED")]`},
	}
	client := newTestClient(t, gen)

	selections := client.SelectCategories(context.Background(), "news")

	// The invented pair is dropped, the case-variant duplicate collapses.
	assert.Equal(t, []models.CategorySelection{
		{Category: "Interest Rates", Subcategory: "fed"},
	}, selections)
}

func TestSelectCategoriesRecoversOnRetry(t *testing.T) {
	gen := &scriptedGenerator{
		responses: []string{
			`I think the category is Interest Rates.`,
			`[("Interest Rates", "fed")]`,
		},
	}
	client := newTestClient(t, gen)

	selections := client.SelectCategories(context.Background(), "news")

	assert.Len(t, selections, 1)
	assert.Equal(t, 2, gen.calls)
}

func TestSelectCategoriesFallsBackEmpty(t *testing.T) {
	gen := &scriptedGenerator{
		errs: []error{
			errors.New("boom"),
			errors.New("boom"),
			errors.New("boom"),
		},
	}
	client := newTestClient(t, gen)

	selections := client.SelectCategories(context.Background(), "news")

	assert.Empty(t, selections)
	assert.Equal(t, 3, gen.calls)
}

func TestSelectCategoriesFencedResponse(t *testing.T) {
	gen := &scriptedGenerator{
		responses: []string{"```json\n[(\"Inflation\", \"cpi\")]\n```"},
	}
	client := newTestClient(t, gen)

	selections := client.SelectCategories(context.Background(), "news")

	assert.Equal(t, []models.CategorySelection{
		{Category: "Inflation", Subcategory: "cpi"},
	}, selections)
}

func candidateFixture(id, heading string) models.Candidate {
	return models.Candidate{
		Article: models.Article{
			ArticleID: id,
			Heading:   heading,
			URL:       "https://example.com/" + id,
			FullText:  "full text of " + id,
		},
		Score: 0.5,
	}
}

func TestFilterRelevantReRanks(t *testing.T) {
	candidates := []models.Candidate{
		candidateFixture("art_a", "A"),
		candidateFixture("art_b", "B"),
		candidateFixture("art_c", "C"),
	}
	gen := &scriptedGenerator{
		responses: []string{`[
			{"article_id": "art_c", "reasoning": "closest precedent"},
			{"article_id": "art_x", "reasoning": "invented by the model"},
			{"article_id": "art_a", "reasoning": "same sector"},
			{"article_id": "art_c", "reasoning": "duplicate"}
		]`},
	}
	client := newTestClient(t, gen)

	relevant := client.FilterRelevant(context.Background(), "news", candidates)

	// Ranking follows the returned id order, the invented id and the
	// duplicate are dropped, b was not selected.
	require.Len(t, relevant, 2)
	assert.Equal(t, "art_c", relevant[0].ArticleID)
	assert.Equal(t, "closest precedent", relevant[0].Reasoning)
	assert.Equal(t, "art_a", relevant[1].ArticleID)
	assert.Equal(t, "same sector", relevant[1].Reasoning)
}

func TestFilterRelevantFallsBackToCandidates(t *testing.T) {
	candidates := []models.Candidate{
		candidateFixture("art_a", "A"),
		candidateFixture("art_b", "B"),
	}
	gen := &scriptedGenerator{
		responses: []string{"not json", "still not json", "nope"},
	}
	client := newTestClient(t, gen)

	relevant := client.FilterRelevant(context.Background(), "news", candidates)

	require.Len(t, relevant, 2)
	assert.Equal(t, "art_a", relevant[0].ArticleID)
	assert.Empty(t, relevant[0].Reasoning)
	assert.Equal(t, 3, gen.calls)
}

func TestFilterRelevantEmptyCandidates(t *testing.T) {
	gen := &scriptedGenerator{}
	client := newTestClient(t, gen)

	relevant := client.FilterRelevant(context.Background(), "news", nil)

	assert.Empty(t, relevant)
	assert.Equal(t, 0, gen.calls)
}

func TestFilterRelevantPromptUsesPreviews(t *testing.T) {
	long := candidateFixture("art_a", "A")
	long.FullText = strings.Repeat("x", 500)
	empty := candidateFixture("art_b", "B")
	empty.FullText = ""

	gen := &scriptedGenerator{
		responses: []string{`[{"article_id": "art_a", "reasoning": "r"}]`},
	}
	client := newTestClient(t, gen)

	client.FilterRelevant(context.Background(), "news", []models.Candidate{long, empty})

	require.Len(t, gen.prompts, 1)
	assert.NotContains(t, gen.prompts[0], long.FullText)
	assert.Contains(t, gen.prompts[0], "No content available")
}

func TestGenerateReport(t *testing.T) {
	gen := &scriptedGenerator{
		responses: []string{"# FINANCIAL INTELLIGENCE REPORT\n\n## Executive Summary\nMarkets will react."},
	}
	client := newTestClient(t, gen)

	report := client.GenerateReport(context.Background(), "news", []models.RelevantArticle{
		{Article: models.Article{ArticleID: "art_a", Heading: "A", LastUpdated: time.Date(2020, 3, 12, 0, 0, 0, 0, time.UTC)}},
	})

	assert.Contains(t, report, "Executive Summary")
	assert.Contains(t, gen.prompts[0], "ARTICLE 1 - 2020-03-12")
}

func TestGenerateReportFallback(t *testing.T) {
	gen := &scriptedGenerator{
		errs: []error{
			errors.New("quota exceeded"),
			errors.New("quota exceeded"),
			errors.New("quota exceeded"),
		},
	}
	client := newTestClient(t, gen)

	report := client.GenerateReport(context.Background(), "news", nil)

	assert.Equal(t, FallbackReport, report)
	assert.Equal(t, 3, gen.calls)
}

func TestProjectMarketImpact(t *testing.T) {
	gen := &scriptedGenerator{
		responses: []string{"```json\n{\"historical_event\": \"2020-03-12: COVID crash\", \"market_index\": \"S&P 500\", \"impact_1d\": -0.095, \"impact_1w\": -0.15, \"impact_1m\": -0.125}\n```"},
	}
	client := newTestClient(t, gen)

	impact := client.ProjectMarketImpact(context.Background(), "news", nil)

	assert.Equal(t, "2020-03-12: COVID crash", impact.HistoricalEvent)
	assert.Equal(t, -0.095, impact.Impact1D)
}

func TestProjectMarketImpactFallback(t *testing.T) {
	gen := &scriptedGenerator{
		responses: []string{"no json", "no json", "no json"},
	}
	client := newTestClient(t, gen)

	impact := client.ProjectMarketImpact(context.Background(), "news", nil)

	assert.Equal(t, "Unable to determine comparable event", impact.HistoricalEvent)
	assert.Equal(t, "S&P 500", impact.MarketIndex)
	assert.Equal(t, 0.0, impact.Impact1D)
}
