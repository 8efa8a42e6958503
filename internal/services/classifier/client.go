package classifier

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/flashback/internal/common"
	"github.com/ternarybob/flashback/internal/interfaces"
	"github.com/ternarybob/flashback/internal/models"
	"github.com/ternarybob/flashback/internal/services/llm"
	"github.com/ternarybob/flashback/internal/taxonomy"
)

// FallbackReport is returned when report generation fails on every attempt.
const FallbackReport = "# FINANCIAL INTELLIGENCE REPORT\n\n## Notice\n\nWe're currently experiencing high demand on our analysis systems. Our team is working to generate your financial intelligence report as soon as possible.\n\nIn the meantime, please review the historical precedent articles below, which contain valuable insights related to your query.\n\nThank you for your patience."

// fallbackCandidateCount is how many candidates pass through unranked when
// relevance filtering fails on every attempt.
const fallbackCandidateCount = 10

// Client runs the model-backed pipeline operations: category selection,
// relevance filtering, report generation, and market impact projection.
// Every operation retries transient failures and degrades to a documented
// fallback instead of returning an error.
type Client struct {
	generator interfaces.TextGenerator
	taxonomy  *taxonomy.Taxonomy
	retry     *llm.RetryConfig
	model     string
	logger    arbor.ILogger
}

// NewClient creates a classifier client. model may be empty to use the
// generator's default provider and model.
func NewClient(generator interfaces.TextGenerator, tax *taxonomy.Taxonomy, retry *llm.RetryConfig, model string, logger arbor.ILogger) *Client {
	if retry == nil {
		retry = llm.NewDefaultRetryConfig()
	}
	if logger == nil {
		logger = common.GetLogger()
	}
	return &Client{
		generator: generator,
		taxonomy:  tax,
		retry:     retry,
		model:     model,
		logger:    logger,
	}
}

// NewClientFromConfig creates a classifier client with retry behavior taken
// from application configuration.
func NewClientFromConfig(generator interfaces.TextGenerator, tax *taxonomy.Taxonomy, cfg *common.LLMConfig, logger arbor.ILogger) *Client {
	return NewClient(generator, tax, llm.NewRetryConfig(cfg), "", logger)
}

// generate runs one operation's generate-and-parse cycle under the retry
// policy. parse validates and consumes the response; a parse failure counts
// as a failed attempt the same as an API error.
func (c *Client) generate(ctx context.Context, operation, prompt, systemInstruction string, parse func(string) error) error {
	var lastErr error

	for attempt := 0; attempt < c.retry.MaxAttempts; attempt++ {
		if attempt > 0 {
			var apiDelay time.Duration
			if llm.IsRateLimitError(lastErr) {
				apiDelay = llm.ExtractRetryDelay(lastErr)
			}
			backoff := c.retry.Backoff(attempt-1, apiDelay)

			c.logger.Warn().
				Str("operation", operation).
				Int("attempt", attempt).
				Dur("backoff", backoff).
				Err(lastErr).
				Msg("Retrying model operation")

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}

		text, err := c.generator.GenerateText(ctx, &interfaces.GenerationRequest{
			Prompt:            prompt,
			SystemInstruction: systemInstruction,
			Model:             c.model,
		})
		if err != nil {
			lastErr = err
			continue
		}

		if err := parse(text); err != nil {
			lastErr = err
			continue
		}

		return nil
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operation, c.retry.MaxAttempts, lastErr)
}

// SelectCategories maps breaking news text onto taxonomy pairs. Pairs the
// model invents outside the taxonomy are dropped. Returns an empty slice
// when every attempt fails; the caller treats that as "no categories".
func (c *Client) SelectCategories(ctx context.Context, newsText string) []models.CategorySelection {
	prompt := buildCategoryPrompt(newsText, c.taxonomy.PromptText())

	var selections []models.CategorySelection
	err := c.generate(ctx, "category selection", prompt, "", func(text string) error {
		parsed, err := ParseCategoryList(extractList(unwrapFences(text)))
		if err != nil {
			return err
		}
		selections = c.filterToTaxonomy(parsed)
		return nil
	})
	if err != nil {
		c.logger.Error().Err(err).Msg("Category selection failed, continuing without categories")
		return []models.CategorySelection{}
	}

	return selections
}

// filterToTaxonomy drops selections not present in the taxonomy and
// duplicate pairs, preserving order.
func (c *Client) filterToTaxonomy(selections []models.CategorySelection) []models.CategorySelection {
	kept := make([]models.CategorySelection, 0, len(selections))
	seen := make(map[string]bool, len(selections))
	for _, sel := range selections {
		if !c.taxonomy.Contains(sel.Category, sel.Subcategory) {
			c.logger.Warn().
				Str("category", sel.Category).
				Str("subcategory", sel.Subcategory).
				Msg("Dropping selection outside taxonomy")
			continue
		}
		key := strings.ToLower(sel.Category) + "|" + strings.ToLower(sel.Subcategory)
		if seen[key] {
			continue
		}
		seen[key] = true
		kept = append(kept, sel)
	}
	return kept
}

// FilterRelevant judges candidates against the breaking news and returns
// the relevant ones in the model's ranking order with reasoning attached.
// The ranking is enforced in code from the returned ids: ids that match no
// candidate are dropped, duplicates keep their first position. When every
// attempt fails, the first candidates pass through unranked.
func (c *Client) FilterRelevant(ctx context.Context, newsText string, candidates []models.Candidate) []models.RelevantArticle {
	if len(candidates) == 0 {
		return []models.RelevantArticle{}
	}

	prompt, err := buildRelevancePrompt(newsText, candidates)
	if err != nil {
		c.logger.Error().Err(err).Msg("Failed to build relevance prompt")
		return c.fallbackRelevant(candidates)
	}

	byID := make(map[string]models.Candidate, len(candidates))
	for _, candidate := range candidates {
		byID[candidate.ArticleID] = candidate
	}

	var relevant []models.RelevantArticle
	err = c.generate(ctx, "relevance filtering", prompt, "", func(text string) error {
		items, err := ParseRelevanceList(extractList(unwrapFences(text)))
		if err != nil {
			return err
		}

		ranked := make([]models.RelevantArticle, 0, len(items))
		seen := make(map[string]bool, len(items))
		for _, item := range items {
			candidate, ok := byID[item.ArticleID]
			if !ok {
				c.logger.Warn().
					Str("article_id", item.ArticleID).
					Msg("Dropping unknown article id from relevance result")
				continue
			}
			if seen[item.ArticleID] {
				continue
			}
			seen[item.ArticleID] = true
			ranked = append(ranked, models.RelevantArticle{
				Article:   candidate.Article,
				Reasoning: item.Reasoning,
			})
		}
		relevant = ranked
		return nil
	})
	if err != nil {
		c.logger.Error().Err(err).Msg("Relevance filtering failed, passing candidates through unranked")
		return c.fallbackRelevant(candidates)
	}

	return relevant
}

func (c *Client) fallbackRelevant(candidates []models.Candidate) []models.RelevantArticle {
	limit := fallbackCandidateCount
	if len(candidates) < limit {
		limit = len(candidates)
	}
	articles := make([]models.RelevantArticle, 0, limit)
	for _, candidate := range candidates[:limit] {
		articles = append(articles, models.RelevantArticle{Article: candidate.Article})
	}
	return articles
}

// GenerateReport produces the markdown analyst report. When every attempt
// fails, a canned notice report is returned so presentation never blocks.
func (c *Client) GenerateReport(ctx context.Context, newsText string, articles []models.RelevantArticle) string {
	prompt := buildReportPrompt(newsText, articles)

	var report string
	err := c.generate(ctx, "report generation", prompt, "", func(text string) error {
		trimmed := strings.TrimSpace(text)
		if trimmed == "" {
			return fmt.Errorf("empty report")
		}
		report = trimmed
		return nil
	})
	if err != nil {
		c.logger.Error().Err(err).Msg("Report generation failed, returning fallback report")
		return FallbackReport
	}

	return report
}

// ProjectMarketImpact estimates the index impact of the closest historical
// precedent. The zero-valued fallback names no comparable event.
func (c *Client) ProjectMarketImpact(ctx context.Context, newsText string, articles []models.RelevantArticle) *models.MarketImpact {
	fallback := &models.MarketImpact{
		HistoricalEvent: "Unable to determine comparable event",
		MarketIndex:     "S&P 500",
	}

	prompt, err := buildImpactPrompt(newsText, articles)
	if err != nil {
		c.logger.Error().Err(err).Msg("Failed to build impact prompt")
		return fallback
	}

	var impact *models.MarketImpact
	err = c.generate(ctx, "market impact projection", prompt, impactSystemInstruction, func(text string) error {
		parsed, err := ParseMarketImpact(extractObject(unwrapFences(text)))
		if err != nil {
			return err
		}
		impact = parsed
		return nil
	})
	if err != nil {
		c.logger.Error().Err(err).Msg("Market impact projection failed, returning fallback")
		return fallback
	}

	return impact
}
