package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleReport = `# FINANCIAL INTELLIGENCE REPORT
## Executive Summary
Markets are expected to **react sharply** to the announcement.

## Comparative Market Analysis
| Factor | Current Event | Historical Precedent | Differential |
|--------|--------------|---------------------|-------------|
| Rate | 5.5% | 5.25% | +0.25% |

## Risk Assessment
- **Primary Risks**: liquidity squeeze
- **Mitigating Factors**: central bank backstop
`

func TestRenderHTML(t *testing.T) {
	service := NewService(nil)

	html, err := service.RenderHTML(sampleReport)
	require.NoError(t, err)

	assert.Contains(t, html, "<h1")
	assert.Contains(t, html, "FINANCIAL INTELLIGENCE REPORT")
	assert.Contains(t, html, "<table>")
	assert.Contains(t, html, "<strong>react sharply</strong>")
	assert.Contains(t, html, "<li>")
}

func TestRenderPDF(t *testing.T) {
	service := NewService(nil)

	data, err := service.RenderPDF(sampleReport, "Financial Intelligence Report")
	require.NoError(t, err)

	require.NotEmpty(t, data)
	assert.Equal(t, "%PDF", string(data[:4]))
}

func TestRenderPDFEmptyMarkdown(t *testing.T) {
	service := NewService(nil)

	data, err := service.RenderPDF("", "empty")
	require.NoError(t, err)
	assert.NotEmpty(t, data)
}
