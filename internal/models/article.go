package models

import (
	"time"
)

// Article represents a historical news article stored in the graph.
// ArticleID is generated once at ingestion and never reused.
type Article struct {
	ArticleID   string    `json:"article_id"`
	Heading     string    `json:"heading"`
	URL         string    `json:"url"`
	FullText    string    `json:"full_text"`
	LastUpdated time.Time `json:"last_updated"`
}

// Candidate is an article retrieved for relevance filtering. Score is the
// BELONGS_TO edge weight for the queried subcategory, not an article
// property; the same article carries a different score per subcategory edge.
type Candidate struct {
	Article
	Score float64 `json:"score"`
}

// RelevantArticle is an article judged relevant to the breaking news,
// annotated with the model's reasoning. Order reflects relevance rank,
// most relevant first.
type RelevantArticle struct {
	Article
	Reasoning string `json:"reasoning,omitempty"`
}

// ProvidedArticle is one element of a pre-filtered input list. Both fields
// are required for the input to be recognized as the bypass path.
type ProvidedArticle struct {
	ArticleID string `json:"article_id" validate:"required"`
	Reasoning string `json:"reasoning" validate:"required"`
}

// Preview returns the first n characters of the article text for prompt
// embedding. Articles with no content yield a placeholder.
func (a Article) Preview(n int) string {
	if a.FullText == "" {
		return "No content available"
	}
	if len(a.FullText) <= n {
		return a.FullText
	}
	return a.FullText[:n]
}
