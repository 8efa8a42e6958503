package interfaces

import (
	"context"

	"github.com/ternarybob/flashback/internal/models"
)

// ArticleStore defines operations against the article graph store.
// Implementations open one session per operation and release it on every
// exit path; they never share transactions across operations.
type ArticleStore interface {
	// FetchBySubcategory returns articles attached to the named subcategory
	// (case-insensitive exact match), ordered by the BELONGS_TO edge score
	// descending and truncated to limit.
	FetchBySubcategory(ctx context.Context, subcategory string, limit int) ([]models.Candidate, error)

	// FetchByIDs looks up each id in order and returns the matching
	// articles. Unknown ids are silently omitted; the result preserves the
	// order of the ids that resolved.
	FetchByIDs(ctx context.Context, ids []string) ([]models.Article, error)

	// CreateArticle stores a new article node and returns its generated id.
	CreateArticle(ctx context.Context, article models.Article) (string, error)

	// AttachCategories upserts the category structure for an article:
	// categories and subcategories are merged (created if absent) and the
	// article's BELONGS_TO edge score is set, not accumulated. The
	// Uncategorized entry is never persisted.
	AttachCategories(ctx context.Context, articleID string, scores models.CategoryScoreMap) error

	// ResetCategories removes every article-to-subcategory edge in the
	// store. Article nodes and the taxonomy structure are left intact.
	ResetCategories(ctx context.Context) (int, error)

	// Close releases the underlying driver. Called once at shutdown.
	Close(ctx context.Context) error
}
