package classifier

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ternarybob/flashback/internal/models"
)

const (
	// previewChars is the article text length embedded in the relevance prompt
	previewChars = 200
	// contextChars is the article text length embedded in the report and impact prompts
	contextChars = 300
	// maxContextArticles caps the articles embedded in the report prompt
	maxContextArticles = 10
	// maxImpactArticles caps the articles embedded in the impact prompt
	maxImpactArticles = 5
)

// buildCategoryPrompt asks the model to pick taxonomy pairs for a news item.
// taxonomyText is one "Category: sub1, sub2" line per category.
func buildCategoryPrompt(newsText, taxonomyText string) string {
	return fmt.Sprintf(`Analyze this news article and select ONLY the most relevant categories and subcategories strictly from the Categories Keywords provided below:
News: %s

Categories Keywords:
%s

Return strictly in this exact format without any markdown or code blocks:
[("Category1", "Subcategory1"), ("Category2", "Subcategory2"), ...]

Only include categories that are highly relevant to the content.`, newsText, taxonomyText)
}

// candidateSummary is the candidate shape embedded in the relevance prompt.
// Only the identifying fields and a short preview go to the model; full text
// stays local.
type candidateSummary struct {
	ArticleID string `json:"article_id"`
	Heading   string `json:"heading"`
	URL       string `json:"url"`
	Preview   string `json:"preview"`
}

// buildRelevancePrompt asks the model to filter and rank candidates against
// the breaking news.
func buildRelevancePrompt(newsText string, candidates []models.Candidate) (string, error) {
	summaries := make([]candidateSummary, 0, len(candidates))
	for _, c := range candidates {
		summaries = append(summaries, candidateSummary{
			ArticleID: c.ArticleID,
			Heading:   c.Heading,
			URL:       c.URL,
			Preview:   c.Preview(previewChars),
		})
	}

	data, err := json.MarshalIndent(summaries, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode candidate summaries: %w", err)
	}

	return fmt.Sprintf(`ACT as a senior financial analyst with expertise in market pattern recognition and historical comparison.

1. ANALYZE this breaking financial news thoroughly:
%s

2. From these historical articles, IDENTIFY ONLY those that are financial news and DIRECTLY RELEVANT to the breaking news and STRONGLY CORRELATED to it:
%s

3. RETURN ONLY the relevant articles in this exact format - an array of objects with article_id and reasoning:
[
    {
        "article_id": "id1",
        "reasoning": "Brief explanation of how this article relates to the breaking news"
    },
    {
        "article_id": "id2",
        "reasoning": "Brief explanation of how this article relates to the breaking news"
    }
]

Articles should be sorted by relevance (most relevant first).
Only include articles with STRONG topical relevance. Prioritize quality over quantity.`, newsText, string(data)), nil
}

// buildReportPrompt asks the model for the full analyst report in markdown.
func buildReportPrompt(newsText string, articles []models.RelevantArticle) string {
	if len(articles) > maxContextArticles {
		articles = articles[:maxContextArticles]
	}

	formatted := make([]string, 0, len(articles))
	for i, article := range articles {
		dateStr := "Unknown date"
		if !article.LastUpdated.IsZero() {
			dateStr = article.LastUpdated.Format("2006-01-02")
		}
		formatted = append(formatted, fmt.Sprintf(`ARTICLE %d - %s
HEADING: %s
URL: %s
CONTENT: %s...`, i+1, dateStr, article.Heading, article.URL, article.Preview(contextChars)))
	}

	historicalContext := strings.Join(formatted, "\n\n")

	return fmt.Sprintf(`ACT as a managing director at a top investment bank producing a formal financial report. You're analyzing breaking news in the context of historical events.

CURRENT EVENT:
%s

HISTORICAL CONTEXT:
%s

GENERATE a comprehensive financial analysis report with these EXACT SECTIONS:

# FINANCIAL INTELLIGENCE REPORT
## Executive Summary
[3-4 sentence summary of the current event and its likely market impact]

## Current Situation Analysis
- **Key Market Entities**: [Companies, sectors, instruments affected]
- **Primary Catalysts**: [Specific factors driving the current situation]
- **Quantitative Assessment**: [Key financial metrics, changes, percentages]

## Historical Precedent Analysis
- **Most Comparable Events**: [2-3 similar historical examples with exact dates]
- **Market Response Patterns**: [Documented price movements, volatility metrics]
- **Duration & Magnitude**: [Typical timelines of impact and percentage changes]

## Comparative Market Analysis
| Factor | Current Event | Historical Precedent | Differential |
|--------|--------------|---------------------|-------------|
| [Factor 1] | [Current data] | [Historical data] | [Difference] |
| [Factor 2] | [Current data] | [Historical data] | [Difference] |
| [Factor 3] | [Current data] | [Historical data] | [Difference] |

## Risk Assessment
- **Primary Risks**: [Rank-ordered risks]
- **Mitigating Factors**: [Potential stabilizing forces]
- **Probability Distribution**: [Most likely scenario and probability]

## Market Outlook
- **Short-term Projection** (0-30 days): [Specific market predictions]
- **Medium-term Outlook** (1-6 months): [Expected developments]
- **Long-term Considerations**: [Structural impacts]

## Strategic Recommendations
- **For Institutional Investors**: [2-3 specific actions]
- **For Retail Investors**: [2-3 specific actions]
- **Key Performance Indicators**: [Metrics to monitor]

ENSURE all analysis is:
- Grounded in referenced historical precedent
- Quantitative where possible (specific percentages, timeframes, metrics)
- Professional in tone appropriate for institutional clients
- Free of speculative language without factual basis`, newsText, historicalContext)
}

// impactContext is the article shape embedded in the impact prompt.
type impactContext struct {
	Heading string `json:"heading"`
	Date    string `json:"date"`
	Content string `json:"content"`
}

// buildImpactPrompt asks the model for the projected index impact of the
// closest historical precedent.
func buildImpactPrompt(newsText string, articles []models.RelevantArticle) (string, error) {
	if len(articles) > maxImpactArticles {
		articles = articles[:maxImpactArticles]
	}

	contexts := make([]impactContext, 0, len(articles))
	for _, article := range articles {
		dateStr := ""
		if !article.LastUpdated.IsZero() {
			dateStr = article.LastUpdated.Format("2006-01-02")
		}
		contexts = append(contexts, impactContext{
			Heading: article.Heading,
			Date:    dateStr,
			Content: article.Preview(contextChars),
		})
	}

	data, err := json.Marshal(contexts)
	if err != nil {
		return "", fmt.Errorf("failed to encode impact context: %w", err)
	}

	return fmt.Sprintf(`Based on this breaking news and historical precedents, project the market impact.

Breaking News:
%s

Historical Articles:
%s

Return ONLY a JSON object with these exact keys:
{
    "historical_event": "YYYY-MM-DD: Brief description of comparable event",
    "market_index": "Name of most relevant index",
    "impact_1d": percentage change as decimal (e.g., 0.02 for 2%% gain, -0.03 for 3%% loss),
    "impact_1w": percentage change as decimal,
    "impact_1m": percentage change as decimal
}`, newsText, string(data)), nil
}

// impactSystemInstruction primes the model for the impact projection call.
const impactSystemInstruction = "You are a financial analyst specializing in market impact assessment."
