package neo4j

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/flashback/internal/common"
	"github.com/ternarybob/flashback/internal/interfaces"
	"github.com/ternarybob/flashback/internal/models"
)

// ArticleStorage implements the ArticleStore interface against Neo4j.
// The graph shape is Article-[:BELONGS_TO {score}]->Subcategory with
// Category-[:HAS_SUBCATEGORY]->Subcategory; relevance retrieval reads the
// BELONGS_TO edge score, never an article property.
type ArticleStorage struct {
	db     *GraphDB
	logger arbor.ILogger
}

// NewArticleStorage creates a new ArticleStorage instance
func NewArticleStorage(db *GraphDB, logger arbor.ILogger) interfaces.ArticleStore {
	if logger == nil {
		logger = common.GetLogger()
	}
	return &ArticleStorage{
		db:     db,
		logger: logger,
	}
}

var _ interfaces.ArticleStore = (*ArticleStorage)(nil)

// FetchBySubcategory returns the top scoring articles attached to the named
// subcategory, case-insensitive, ordered by edge score descending.
func (s *ArticleStorage) FetchBySubcategory(ctx context.Context, subcategory string, limit int) ([]models.Candidate, error) {
	session := s.db.session(ctx)
	defer session.Close(ctx)

	query := `
		MATCH (a:Article)-[r:BELONGS_TO]->(sc:Subcategory)
		WHERE toLower(sc.name) = toLower($subcategory)
		RETURN a.article_id AS article_id, a.heading AS heading, a.url AS url,
		       a.full_text AS full_text, r.score AS score, a.last_updated AS last_updated
		ORDER BY r.score DESC
		LIMIT $limit`

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, map[string]any{
			"subcategory": subcategory,
			"limit":       limit,
		})
		if err != nil {
			return nil, err
		}

		var candidates []models.Candidate
		for res.Next(ctx) {
			record := res.Record()
			candidates = append(candidates, models.Candidate{
				Article: articleFromRecord(record),
				Score:   floatValue(record, "score"),
			})
		}
		return candidates, res.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch articles for subcategory %q: %w", subcategory, err)
	}

	candidates := result.([]models.Candidate)
	s.logger.Debug().
		Str("subcategory", subcategory).
		Int("count", len(candidates)).
		Msg("Fetched candidate articles")

	return candidates, nil
}

// FetchByIDs looks up each article id in order. Ids that resolve to no
// article are omitted from the result.
func (s *ArticleStorage) FetchByIDs(ctx context.Context, ids []string) ([]models.Article, error) {
	session := s.db.session(ctx)
	defer session.Close(ctx)

	query := `
		MATCH (a:Article {article_id: $article_id})
		RETURN a.article_id AS article_id, a.heading AS heading, a.url AS url,
		       a.full_text AS full_text, a.last_updated AS last_updated`

	articles := make([]models.Article, 0, len(ids))
	for _, id := range ids {
		result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
			res, err := tx.Run(ctx, query, map[string]any{"article_id": id})
			if err != nil {
				return nil, err
			}
			record, err := res.Single(ctx)
			if err != nil {
				// Zero rows is a miss, not an error.
				return nil, nil
			}
			article := articleFromRecord(record)
			return &article, nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to fetch article %q: %w", id, err)
		}
		if article, ok := result.(*models.Article); ok && article != nil {
			articles = append(articles, *article)
		} else {
			s.logger.Warn().Str("article_id", id).Msg("Article id not found in store")
		}
	}

	return articles, nil
}

// CreateArticle stores a new article node. The id is generated here when
// the article does not carry one.
func (s *ArticleStorage) CreateArticle(ctx context.Context, article models.Article) (string, error) {
	session := s.db.session(ctx)
	defer session.Close(ctx)

	articleID := article.ArticleID
	if articleID == "" {
		articleID = common.NewArticleID()
	}
	lastUpdated := article.LastUpdated
	if lastUpdated.IsZero() {
		lastUpdated = time.Now().UTC()
	}

	query := `
		CREATE (a:Article {
			article_id: $article_id,
			heading: $heading,
			url: $url,
			full_text: $full_text,
			last_updated: $last_updated
		})
		RETURN a.article_id AS article_id`

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, map[string]any{
			"article_id":   articleID,
			"heading":      article.Heading,
			"url":          article.URL,
			"full_text":    article.FullText,
			"last_updated": lastUpdated,
		})
		if err != nil {
			return nil, err
		}
		return res.Single(ctx)
	})
	if err != nil {
		return "", fmt.Errorf("failed to create article: %w", err)
	}

	return articleID, nil
}

// AttachCategories upserts the category structure for an article. Category
// and subcategory nodes are merged so repeated ingestion shares them; the
// BELONGS_TO edge score is set to the latest value, not accumulated.
func (s *ArticleStorage) AttachCategories(ctx context.Context, articleID string, scores models.CategoryScoreMap) error {
	session := s.db.session(ctx)
	defer session.Close(ctx)

	categoryQuery := `
		MERGE (c:Category {name: $name})
		SET c.total_score = $score,
		    c.last_updated = datetime()`

	subcategoryQuery := `
		MATCH (a:Article {article_id: $article_id})
		MERGE (sc:Subcategory {name: $subcat})
		MERGE (c:Category {name: $cat})
		MERGE (c)-[:HAS_SUBCATEGORY]->(sc)
		MERGE (a)-[r:BELONGS_TO]->(sc)
		SET r.score = $score,
		    r.last_updated = datetime()`

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		for _, category := range scores {
			if category.Category == models.Uncategorized {
				continue
			}

			if _, err := tx.Run(ctx, categoryQuery, map[string]any{
				"name":  category.Category,
				"score": category.TotalScore,
			}); err != nil {
				return nil, err
			}

			for subcategory, score := range category.Subcategories {
				if _, err := tx.Run(ctx, subcategoryQuery, map[string]any{
					"article_id": articleID,
					"subcat":     subcategory,
					"cat":        category.Category,
					"score":      score,
				}); err != nil {
					return nil, err
				}
			}
		}
		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("failed to attach categories to article %q: %w", articleID, err)
	}

	return nil
}

// ResetCategories removes every article-to-subcategory edge. Article nodes
// and the category structure stay in place.
func (s *ArticleStorage) ResetCategories(ctx context.Context) (int, error) {
	session := s.db.session(ctx)
	defer session.Close(ctx)

	query := `
		MATCH (:Article)-[r:BELONGS_TO]->(:Subcategory)
		DELETE r
		RETURN count(r) AS removed`

	result, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, nil)
		if err != nil {
			return nil, err
		}
		record, err := res.Single(ctx)
		if err != nil {
			return 0, err
		}
		return intValue(record, "removed"), nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to reset category edges: %w", err)
	}

	removed := result.(int)
	s.logger.Info().Int("removed", removed).Msg("Removed article category edges")
	return removed, nil
}

// Close releases the underlying driver
func (s *ArticleStorage) Close(ctx context.Context) error {
	return s.db.Close(ctx)
}

// articleFromRecord maps a query record onto an Article. Missing or
// mistyped fields yield zero values rather than errors.
func articleFromRecord(record *neo4j.Record) models.Article {
	return models.Article{
		ArticleID:   stringValue(record, "article_id"),
		Heading:     stringValue(record, "heading"),
		URL:         stringValue(record, "url"),
		FullText:    stringValue(record, "full_text"),
		LastUpdated: timeValue(record, "last_updated"),
	}
}

func stringValue(record *neo4j.Record, key string) string {
	if raw, ok := record.Get(key); ok {
		if s, ok := raw.(string); ok {
			return s
		}
	}
	return ""
}

func floatValue(record *neo4j.Record, key string) float64 {
	if raw, ok := record.Get(key); ok {
		switch v := raw.(type) {
		case float64:
			return v
		case int64:
			return float64(v)
		}
	}
	return 0
}

func intValue(record *neo4j.Record, key string) int {
	if raw, ok := record.Get(key); ok {
		if v, ok := raw.(int64); ok {
			return int(v)
		}
	}
	return 0
}

func timeValue(record *neo4j.Record, key string) time.Time {
	if raw, ok := record.Get(key); ok {
		if t, ok := raw.(time.Time); ok {
			return t
		}
	}
	return time.Time{}
}
