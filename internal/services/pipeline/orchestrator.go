package pipeline

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/flashback/internal/common"
	"github.com/ternarybob/flashback/internal/interfaces"
	"github.com/ternarybob/flashback/internal/models"
)

// User-facing notices for early pipeline termination.
const (
	NoticeNoCategories = "No matching categories were found for this news article. You might want to try a different news article."
	NoticeNoArticles   = "No articles found for the selected categories. You might want to try a different news article."
	NoticeNoRelevant   = "No historically relevant articles found. Try a different news article with more specific financial details."
)

// Analyst is the model-backed operation set the orchestrator drives. All
// operations degrade internally and never return errors.
type Analyst interface {
	SelectCategories(ctx context.Context, newsText string) []models.CategorySelection
	FilterRelevant(ctx context.Context, newsText string, candidates []models.Candidate) []models.RelevantArticle
	GenerateReport(ctx context.Context, newsText string, articles []models.RelevantArticle) string
	ProjectMarketImpact(ctx context.Context, newsText string, articles []models.RelevantArticle) *models.MarketImpact
}

// Orchestrator runs one report request through the pipeline stages. All
// stages are sequential and request state stays local, so a single
// Orchestrator serves concurrent requests without locking.
type Orchestrator struct {
	analyst  Analyst
	store    interfaces.ArticleStore
	cache    interfaces.ReportCache
	config   common.RetrievalConfig
	validate *validator.Validate
	logger   arbor.ILogger
}

// NewOrchestrator creates a pipeline orchestrator. cache may be nil to
// disable report caching.
func NewOrchestrator(analyst Analyst, store interfaces.ArticleStore, cache interfaces.ReportCache, config common.RetrievalConfig, logger arbor.ILogger) *Orchestrator {
	if logger == nil {
		logger = common.GetLogger()
	}
	if config.CandidateLimit <= 0 {
		config.CandidateLimit = 10
	}
	return &Orchestrator{
		analyst:  analyst,
		store:    store,
		cache:    cache,
		config:   config,
		validate: validator.New(),
		logger:   logger,
	}
}

// GenerateReport processes one input end to end. Input is either breaking
// news text or a pre-filtered JSON article list; the result always reaches
// a presentable state and carries a notice instead of an error when a stage
// comes up empty.
func (o *Orchestrator) GenerateReport(ctx context.Context, input string) *models.PipelineResult {
	result := &models.PipelineResult{State: models.StateIdle}

	if provided, ok := o.detectProvidedArticles(input); ok {
		o.runProvidedPath(ctx, input, provided, result)
	} else {
		o.runTextPath(ctx, input, result)
	}

	result.State = models.StatePresenting
	return result
}

// detectProvidedArticles decides whether the input is a pre-filtered
// article list: a JSON array where every element carries a non-empty
// article_id and reasoning. Anything else, including malformed JSON,
// falls back to the text path.
func (o *Orchestrator) detectProvidedArticles(input string) ([]models.ProvidedArticle, bool) {
	trimmed := strings.TrimSpace(input)
	if !strings.HasPrefix(trimmed, "[") || !strings.HasSuffix(trimmed, "]") {
		return nil, false
	}

	var provided []models.ProvidedArticle
	if err := json.Unmarshal([]byte(trimmed), &provided); err != nil {
		return nil, false
	}
	if len(provided) == 0 {
		return nil, false
	}
	for _, item := range provided {
		if err := o.validate.Struct(item); err != nil {
			return nil, false
		}
	}
	return provided, true
}

// runProvidedPath resolves the provided ids against the store, reattaches
// the caller's reasoning, and proceeds straight to report generation.
func (o *Orchestrator) runProvidedPath(ctx context.Context, input string, provided []models.ProvidedArticle, result *models.PipelineResult) {
	result.State = models.StateReasoningProvided

	ids := make([]string, 0, len(provided))
	reasoning := make(map[string]string, len(provided))
	for _, item := range provided {
		ids = append(ids, item.ArticleID)
		reasoning[item.ArticleID] = item.Reasoning
	}

	articles, err := o.store.FetchByIDs(ctx, ids)
	if err != nil {
		o.logger.Error().Err(err).Msg("Failed to fetch provided articles")
		articles = nil
	}

	relevant := make([]models.RelevantArticle, 0, len(articles))
	for _, article := range articles {
		relevant = append(relevant, models.RelevantArticle{
			Article:   article,
			Reasoning: reasoning[article.ArticleID],
		})
	}
	result.Articles = relevant

	if len(relevant) == 0 {
		result.Notice = NoticeNoArticles
		return
	}

	o.generateAndCache(ctx, input, relevant, result)
}

// runTextPath is the full pipeline: category selection, retrieval,
// relevance filtering, report generation.
func (o *Orchestrator) runTextPath(ctx context.Context, input string, result *models.PipelineResult) {
	result.State = models.StateCategorySelecting
	categories := o.analyst.SelectCategories(ctx, input)
	result.Categories = categories

	if len(categories) == 0 {
		result.Notice = NoticeNoCategories
		return
	}

	result.State = models.StateRetrieving
	candidates := o.retrieve(ctx, categories)
	if len(candidates) == 0 {
		result.Notice = NoticeNoArticles
		return
	}

	result.State = models.StateFiltering
	relevant := o.analyst.FilterRelevant(ctx, input, candidates)
	result.Articles = relevant

	if len(relevant) == 0 {
		result.Notice = NoticeNoRelevant
		return
	}

	o.generateAndCache(ctx, input, relevant, result)
}

// retrieve fetches candidates for the selected pairs. Default mode queries
// the first pair only; all_pairs fans out across every selection and
// deduplicates by article id, keeping the higher scored edge first.
func (o *Orchestrator) retrieve(ctx context.Context, categories []models.CategorySelection) []models.Candidate {
	selections := categories[:1]
	if o.config.AllPairs {
		selections = categories
	}

	var candidates []models.Candidate
	seen := make(map[string]bool)
	for _, selection := range selections {
		fetched, err := o.store.FetchBySubcategory(ctx, selection.Subcategory, o.config.CandidateLimit)
		if err != nil {
			o.logger.Error().
				Err(err).
				Str("subcategory", selection.Subcategory).
				Msg("Candidate retrieval failed")
			continue
		}
		for _, candidate := range fetched {
			if seen[candidate.ArticleID] {
				continue
			}
			seen[candidate.ArticleID] = true
			candidates = append(candidates, candidate)
		}
	}
	return candidates
}

// generateAndCache runs report generation and impact projection, then
// persists the result. Neither step can terminate the pipeline.
func (o *Orchestrator) generateAndCache(ctx context.Context, input string, relevant []models.RelevantArticle, result *models.PipelineResult) {
	result.State = models.StateReportGenerating
	result.Report = o.analyst.GenerateReport(ctx, input, relevant)
	result.Impact = o.analyst.ProjectMarketImpact(ctx, input, relevant)

	result.ReportID = common.NewReportID()
	if o.cache != nil {
		err := o.cache.SaveReport(ctx, &models.CachedReport{
			ID:       result.ReportID,
			Input:    input,
			Report:   result.Report,
			Articles: relevant,
		})
		if err != nil {
			o.logger.Error().Err(err).Str("report_id", result.ReportID).Msg("Failed to cache report")
		}
	}
}
