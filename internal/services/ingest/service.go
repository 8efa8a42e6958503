package ingest

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/flashback/internal/common"
	"github.com/ternarybob/flashback/internal/interfaces"
	"github.com/ternarybob/flashback/internal/models"
	"github.com/ternarybob/flashback/internal/services/scoring"
)

// Result summarizes one ingestion run
type Result struct {
	FilesProcessed  int `json:"files_processed"`
	ArticlesCreated int `json:"articles_created"`
	RowsSkipped     int `json:"rows_skipped"`
}

// Service loads pre-scraped article CSV files into the graph store. Each
// row is scored against the taxonomy, stored as an Article node, and wired
// to subcategories with weighted edges.
//
// Expected columns (matched by header name, extra columns ignored):
// Date, Headline, URL, Full Text, Keywords.
type Service struct {
	store  interfaces.ArticleStore
	scorer *scoring.Scorer
	config common.IngestConfig
	logger arbor.ILogger
}

// NewService creates an ingest service
func NewService(store interfaces.ArticleStore, scorer *scoring.Scorer, config common.IngestConfig, logger arbor.ILogger) *Service {
	if logger == nil {
		logger = common.GetLogger()
	}
	return &Service{
		store:  store,
		scorer: scorer,
		config: config,
		logger: logger,
	}
}

// dateLayouts are tried in order when parsing the Date column
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"02/01/2006",
}

// IngestDirectory processes every CSV file in the configured directory
func (s *Service) IngestDirectory(ctx context.Context) (*Result, error) {
	return s.IngestDir(ctx, s.config.Dir)
}

// IngestDir processes every CSV file in dir
func (s *Service) IngestDir(ctx context.Context, dir string) (*Result, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read ingest directory %q: %w", dir, err)
	}

	result := &Result{}
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".csv") {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		created, skipped, err := s.IngestFile(ctx, path)
		if err != nil {
			s.logger.Error().Err(err).Str("file", path).Msg("Failed to ingest file")
			continue
		}

		result.FilesProcessed++
		result.ArticlesCreated += created
		result.RowsSkipped += skipped
		s.logger.Info().
			Str("file", entry.Name()).
			Int("created", created).
			Int("skipped", skipped).
			Msg("Ingested article file")
	}

	return result, nil
}

// IngestFile processes a single CSV file and returns created and skipped
// row counts. Rows with no headline are skipped; a failed store write
// skips the row and continues.
func (s *Service) IngestFile(ctx context.Context, path string) (int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to open %q: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read header of %q: %w", path, err)
	}
	columns := columnIndex(header)
	if _, ok := columns["headline"]; !ok {
		return 0, 0, fmt.Errorf("%q has no Headline column", path)
	}

	created, skipped := 0, 0
	for {
		if err := ctx.Err(); err != nil {
			return created, skipped, err
		}

		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			s.logger.Warn().Err(err).Str("file", path).Msg("Skipping malformed CSV row")
			skipped++
			continue
		}

		if err := s.ingestRow(ctx, columns, row); err != nil {
			s.logger.Warn().Err(err).Str("file", path).Msg("Skipping row")
			skipped++
			continue
		}
		created++
	}

	return created, skipped, nil
}

func (s *Service) ingestRow(ctx context.Context, columns map[string]int, row []string) error {
	headline := field(columns, row, "headline")
	if headline == "" {
		return fmt.Errorf("row has no headline")
	}
	fullText := field(columns, row, "full text")

	keywords := cleanKeywords(field(columns, row, "keywords"))
	scores := s.scorer.Score(keywords, fullText)

	article := models.Article{
		Heading:     headline,
		URL:         field(columns, row, "url"),
		FullText:    fullText,
		LastUpdated: parseDate(field(columns, row, "date")),
	}

	articleID, err := s.store.CreateArticle(ctx, article)
	if err != nil {
		return fmt.Errorf("failed to create article %q: %w", headline, err)
	}

	if err := s.store.AttachCategories(ctx, articleID, scores); err != nil {
		return fmt.Errorf("failed to attach categories to %q: %w", headline, err)
	}

	return nil
}

// cleanKeywords splits a comma-separated keyword column into lowercase
// trimmed terms, dropping empty entries.
func cleanKeywords(text string) []string {
	if text == "" {
		return nil
	}
	var keywords []string
	for _, kw := range strings.Split(text, ",") {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" {
			keywords = append(keywords, kw)
		}
	}
	return keywords
}

// columnIndex maps lowercase header names to their positions
func columnIndex(header []string) map[string]int {
	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}
	return columns
}

func field(columns map[string]int, row []string, name string) string {
	idx, ok := columns[name]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func parseDate(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	return time.Time{}
}
