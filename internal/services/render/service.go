package render

import (
	"bytes"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"

	"github.com/ternarybob/flashback/internal/common"
)

// Service renders generated report markdown into delivery formats. Reports
// are heading, list and table heavy, so both renderers carry the GFM table
// extension.
type Service struct {
	md     goldmark.Markdown
	logger arbor.ILogger
}

// NewService creates a render service
func NewService(logger arbor.ILogger) *Service {
	if logger == nil {
		logger = common.GetLogger()
	}
	return &Service{
		md: goldmark.New(
			goldmark.WithExtensions(extension.Table, extension.Strikethrough, extension.Linkify),
			goldmark.WithParserOptions(
				parser.WithAutoHeadingID(),
			),
		),
		logger: logger,
	}
}

// RenderHTML converts report markdown to an HTML fragment
func (s *Service) RenderHTML(markdown string) (string, error) {
	var buf bytes.Buffer
	if err := s.md.Convert([]byte(markdown), &buf); err != nil {
		return "", fmt.Errorf("failed to render markdown to HTML: %w", err)
	}
	return buf.String(), nil
}

// RenderPDF converts report markdown to a PDF document. title is set as
// PDF metadata; the document heading comes from the markdown itself.
func (s *Service) RenderPDF(markdown, title string) ([]byte, error) {
	s.logger.Debug().
		Int("markdown_len", len(markdown)).
		Str("title", title).
		Msg("Rendering report PDF")

	source := []byte(markdown)
	doc := s.md.Parser().Parse(text.NewReader(source))

	w := newReportWriter(source, title)
	if err := w.write(doc); err != nil {
		return nil, fmt.Errorf("failed to render PDF: %w", err)
	}

	data, err := w.output()
	if err != nil {
		return nil, fmt.Errorf("failed to produce PDF output: %w", err)
	}

	s.logger.Debug().Int("pdf_size", len(data)).Msg("Report PDF rendered")
	return data, nil
}
