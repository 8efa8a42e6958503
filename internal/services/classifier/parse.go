package classifier

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/ternarybob/flashback/internal/models"
)

// Model responses are untrusted text. Everything in this file parses them
// with strict grammars that fail closed: anything outside the expected
// shape is an error, never interpreted or executed.

// fencePattern matches a response wrapped in a single markdown code fence,
// with an optional language tag.
var fencePattern = regexp.MustCompile(`(?s)^\s*` + "```" + `(?:[a-zA-Z]+)?\s*\n?(.*?)\n?\s*` + "```" + `\s*$`)

// unwrapFences removes markdown code fences from a model response
func unwrapFences(s string) string {
	s = strings.TrimSpace(s)

	if matches := fencePattern.FindStringSubmatch(s); len(matches) > 1 {
		return strings.TrimSpace(matches[1])
	}

	// Fence embedded mid-response: take the first fenced block.
	if idx := strings.Index(s, "```"); idx >= 0 {
		rest := s[idx+3:]
		if nl := strings.IndexByte(rest, '\n'); nl >= 0 && !strings.ContainsAny(rest[:nl], " \t") {
			// Skip a language tag on the fence line.
			if end := strings.Index(rest, "```"); end > nl {
				return strings.TrimSpace(rest[nl:end])
			}
		}
		if end := strings.Index(rest, "```"); end >= 0 {
			return strings.TrimSpace(rest[:end])
		}
	}

	return s
}

// extractList locates the bracketed list in a response: the whole trimmed
// response if it is already a list, otherwise the first line that is one.
// Falls back to the input unchanged so the strict parser produces the error.
func extractList(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]") {
		return s
	}
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			return line
		}
	}
	return s
}

// extractObject locates the outermost JSON object in a response.
func extractObject(s string) string {
	s = strings.TrimSpace(s)
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start >= 0 && end > start {
		return s[start : end+1]
	}
	return s
}

// tupleScanner walks a tuple-list literal one byte at a time.
type tupleScanner struct {
	input string
	pos   int
}

func (t *tupleScanner) skipSpace() {
	for t.pos < len(t.input) {
		switch t.input[t.pos] {
		case ' ', '\t', '\n', '\r':
			t.pos++
		default:
			return
		}
	}
}

func (t *tupleScanner) expect(c byte) error {
	t.skipSpace()
	if t.pos >= len(t.input) || t.input[t.pos] != c {
		return fmt.Errorf("expected %q at position %d", string(c), t.pos)
	}
	t.pos++
	return nil
}

func (t *tupleScanner) peek() (byte, bool) {
	t.skipSpace()
	if t.pos >= len(t.input) {
		return 0, false
	}
	return t.input[t.pos], true
}

// scanString reads a single- or double-quoted string with backslash escapes.
func (t *tupleScanner) scanString() (string, error) {
	t.skipSpace()
	if t.pos >= len(t.input) {
		return "", fmt.Errorf("expected string at position %d", t.pos)
	}
	quote := t.input[t.pos]
	if quote != '"' && quote != '\'' {
		return "", fmt.Errorf("expected quote at position %d", t.pos)
	}
	t.pos++

	var sb strings.Builder
	for t.pos < len(t.input) {
		c := t.input[t.pos]
		switch c {
		case '\\':
			if t.pos+1 >= len(t.input) {
				return "", fmt.Errorf("dangling escape at position %d", t.pos)
			}
			sb.WriteByte(t.input[t.pos+1])
			t.pos += 2
		case quote:
			t.pos++
			return sb.String(), nil
		default:
			sb.WriteByte(c)
			t.pos++
		}
	}
	return "", fmt.Errorf("unterminated string starting at quote")
}

// ParseCategoryList parses a tuple-list literal of category pairs:
//
//	[("Category1", "Subcategory1"), ("Category2", "Subcategory2")]
//
// Single quotes are accepted in place of double quotes and a trailing comma
// is tolerated. Anything else is an error.
func ParseCategoryList(s string) ([]models.CategorySelection, error) {
	t := &tupleScanner{input: s}

	if err := t.expect('['); err != nil {
		return nil, fmt.Errorf("invalid category list: %w", err)
	}

	var selections []models.CategorySelection
	for {
		c, ok := t.peek()
		if !ok {
			return nil, fmt.Errorf("invalid category list: unterminated list")
		}
		if c == ']' {
			t.pos++
			break
		}

		if err := t.expect('('); err != nil {
			return nil, fmt.Errorf("invalid category list: %w", err)
		}
		category, err := t.scanString()
		if err != nil {
			return nil, fmt.Errorf("invalid category list: %w", err)
		}
		if err := t.expect(','); err != nil {
			return nil, fmt.Errorf("invalid category list: %w", err)
		}
		subcategory, err := t.scanString()
		if err != nil {
			return nil, fmt.Errorf("invalid category list: %w", err)
		}
		if err := t.expect(')'); err != nil {
			return nil, fmt.Errorf("invalid category list: %w", err)
		}

		selections = append(selections, models.CategorySelection{
			Category:    category,
			Subcategory: subcategory,
		})

		c, ok = t.peek()
		if !ok {
			return nil, fmt.Errorf("invalid category list: unterminated list")
		}
		switch c {
		case ',':
			t.pos++
		case ']':
		default:
			return nil, fmt.Errorf("invalid category list: unexpected %q at position %d", string(c), t.pos)
		}
	}

	t.skipSpace()
	if t.pos != len(t.input) {
		return nil, fmt.Errorf("invalid category list: trailing content at position %d", t.pos)
	}

	return selections, nil
}

// ParseRelevanceList parses the relevance filter's JSON array. Every element
// must carry a non-empty article_id.
func ParseRelevanceList(s string) ([]models.ProvidedArticle, error) {
	var items []models.ProvidedArticle
	if err := json.Unmarshal([]byte(s), &items); err != nil {
		return nil, fmt.Errorf("failed to parse relevance list: %w", err)
	}
	for i, item := range items {
		if item.ArticleID == "" {
			return nil, fmt.Errorf("relevance list element %d missing article_id", i)
		}
	}
	return items, nil
}

// ParseMarketImpact parses the impact projection's JSON object.
func ParseMarketImpact(s string) (*models.MarketImpact, error) {
	var impact models.MarketImpact
	if err := json.Unmarshal([]byte(s), &impact); err != nil {
		return nil, fmt.Errorf("failed to parse market impact: %w", err)
	}
	if impact.HistoricalEvent == "" {
		return nil, fmt.Errorf("market impact missing historical_event")
	}
	return &impact, nil
}
