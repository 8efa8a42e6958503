package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/flashback/internal/common"
	"github.com/ternarybob/flashback/internal/models"
	"github.com/ternarybob/flashback/internal/services/scoring"
	"github.com/ternarybob/flashback/internal/taxonomy"
)

type recordingStore struct {
	articles  []models.Article
	scores    map[string]models.CategoryScoreMap
	createErr error
	nextID    int
}

func (r *recordingStore) FetchBySubcategory(ctx context.Context, subcategory string, limit int) ([]models.Candidate, error) {
	return nil, errors.New("not implemented")
}

func (r *recordingStore) FetchByIDs(ctx context.Context, ids []string) ([]models.Article, error) {
	return nil, errors.New("not implemented")
}

func (r *recordingStore) CreateArticle(ctx context.Context, article models.Article) (string, error) {
	if r.createErr != nil {
		return "", r.createErr
	}
	r.nextID++
	id := article.ArticleID
	if id == "" {
		id = common.NewArticleID()
	}
	article.ArticleID = id
	r.articles = append(r.articles, article)
	return id, nil
}

func (r *recordingStore) AttachCategories(ctx context.Context, articleID string, scores models.CategoryScoreMap) error {
	if r.scores == nil {
		r.scores = make(map[string]models.CategoryScoreMap)
	}
	r.scores[articleID] = scores
	return nil
}

func (r *recordingStore) ResetCategories(ctx context.Context) (int, error) { return 0, nil }

func (r *recordingStore) Close(ctx context.Context) error { return nil }

func newTestService(t *testing.T, store *recordingStore, dir string) *Service {
	t.Helper()
	tax, err := taxonomy.Load()
	require.NoError(t, err)
	scorer := scoring.NewScorer(tax, common.ScoringConfig{
		SubcategoryMinWeight: 0.05,
		CategoryMinScore:     0.1,
	})
	return NewService(store, scorer, common.IngestConfig{Dir: dir}, nil)
}

func writeCSV(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

func TestIngestDirectory(t *testing.T) {
	dir := t.TempDir()
	writeCSV(t, dir, "articles.csv", `Date,Headline,URL,Full Text,Sentiment,Keywords
2020-03-12,Markets plunge on pandemic fears,https://example.com/1,Stocks fell sharply as inflation and cpi data rattled investors,negative,"inflation, cpi"
2020-03-13,,https://example.com/2,No headline row,neutral,
`)
	writeCSV(t, dir, "notes.txt", "not a csv")

	store := &recordingStore{}
	service := newTestService(t, store, dir)

	result, err := service.IngestDirectory(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, result.FilesProcessed)
	assert.Equal(t, 1, result.ArticlesCreated)
	assert.Equal(t, 1, result.RowsSkipped)

	require.Len(t, store.articles, 1)
	article := store.articles[0]
	assert.Equal(t, "Markets plunge on pandemic fears", article.Heading)
	assert.Equal(t, "https://example.com/1", article.URL)
	assert.Equal(t, 2020, article.LastUpdated.Year())

	scores := store.scores[article.ArticleID]
	require.NotEmpty(t, scores)
	assert.False(t, scores.IsUncategorized())
	assert.Equal(t, "Inflation", scores[0].Category)
}

func TestIngestFileMissingHeadlineColumn(t *testing.T) {
	dir := t.TempDir()
	writeCSV(t, dir, "bad.csv", "Title,Body\nx,y\n")

	store := &recordingStore{}
	service := newTestService(t, store, dir)

	_, _, err := service.IngestFile(context.Background(), filepath.Join(dir, "bad.csv"))
	assert.Error(t, err)
}

func TestIngestContinuesAfterStoreFailure(t *testing.T) {
	dir := t.TempDir()
	writeCSV(t, dir, "articles.csv", `Date,Headline,URL,Full Text,Keywords
2020-01-01,First,u,text,
2020-01-02,Second,u,text,
`)

	store := &recordingStore{createErr: errors.New("down")}
	service := newTestService(t, store, dir)

	result, err := service.IngestDirectory(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, result.ArticlesCreated)
	assert.Equal(t, 2, result.RowsSkipped)
}

func TestCleanKeywords(t *testing.T) {
	assert.Equal(t, []string{"rate hike", "cpi"}, cleanKeywords(" Rate Hike ,, CPI ,"))
	assert.Nil(t, cleanKeywords(""))
}

func TestIngestMissingDirectory(t *testing.T) {
	store := &recordingStore{}
	service := newTestService(t, store, "/nonexistent/path")

	_, err := service.IngestDirectory(context.Background())
	assert.Error(t, err)
}
