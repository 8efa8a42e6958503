package render

import (
	"github.com/go-pdf/fpdf"
	"github.com/yuin/goldmark/ast"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

const (
	pageMargin    = 12.0
	bodyFontSize  = 9.0
	tableFontSize = 8.0
	lineHeight    = 5.0
	contentWidth  = 186.0 // A4 width minus margins
)

// reportWriter walks the markdown AST and emits PDF primitives. One writer
// serves one document.
type reportWriter struct {
	pdf       *fpdf.Fpdf
	source    []byte
	bold      bool
	italic    bool
	listDepth int
}

func newReportWriter(source []byte, title string) *reportWriter {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(title, true)
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(true, pageMargin)
	pdf.AddPage()
	pdf.SetFont("Arial", "", bodyFontSize)

	return &reportWriter{
		pdf:    pdf,
		source: source,
	}
}

func (w *reportWriter) write(doc ast.Node) error {
	return ast.Walk(doc, w.walk)
}

func (w *reportWriter) output() ([]byte, error) {
	var buf []byte
	writer := &sliceWriter{buf: &buf}
	if err := w.pdf.Output(writer); err != nil {
		return nil, err
	}
	return buf, nil
}

type sliceWriter struct {
	buf *[]byte
}

func (s *sliceWriter) Write(p []byte) (int, error) {
	*s.buf = append(*s.buf, p...)
	return len(p), nil
}

func (w *reportWriter) bodyFont() {
	style := ""
	if w.bold {
		style += "B"
	}
	if w.italic {
		style += "I"
	}
	w.pdf.SetFont("Arial", style, bodyFontSize)
}

func (w *reportWriter) walk(n ast.Node, entering bool) (ast.WalkStatus, error) {
	switch node := n.(type) {
	case *ast.Heading:
		w.writeHeading(node, entering)
	case *ast.Paragraph:
		if !entering {
			w.pdf.Ln(7)
		}
	case *ast.Text:
		if entering {
			w.pdf.Write(lineHeight, string(node.Text(w.source)))
		}
	case *ast.Emphasis:
		if node.Level == 2 {
			w.bold = entering
		} else {
			w.italic = entering
		}
		w.bodyFont()
	case *ast.CodeSpan:
		return w.writeCodeSpan(node, entering)
	case *ast.FencedCodeBlock:
		if entering {
			w.writeCodeLines(node.Lines())
			return ast.WalkSkipChildren, nil
		}
	case *ast.CodeBlock:
		if entering {
			w.writeCodeLines(node.Lines())
			return ast.WalkSkipChildren, nil
		}
	case *ast.List:
		if entering {
			w.listDepth++
		} else {
			w.listDepth--
			if w.listDepth == 0 {
				w.pdf.Ln(2)
			}
		}
	case *ast.ListItem:
		if entering {
			w.pdf.Ln(lineHeight)
			w.pdf.SetX(pageMargin + float64(w.listDepth)*4)
			w.pdf.Write(lineHeight, "- ")
		}
	case *ast.ThematicBreak:
		if entering {
			w.pdf.Ln(3)
			y := w.pdf.GetY()
			w.pdf.Line(pageMargin, y, pageMargin+contentWidth, y)
			w.pdf.Ln(3)
		}
	case *extast.Table:
		if entering {
			w.writeTable(node)
			return ast.WalkSkipChildren, nil
		}
	}
	return ast.WalkContinue, nil
}

func (w *reportWriter) writeHeading(n *ast.Heading, entering bool) {
	if entering {
		w.pdf.Ln(6)
		size := 10.0
		switch n.Level {
		case 1:
			size = 15
		case 2:
			size = 12
		case 3:
			size = 11
		}
		w.pdf.SetFont("Arial", "B", size)
		return
	}
	w.pdf.Ln(6)
	w.bodyFont()
}

func (w *reportWriter) writeCodeSpan(n *ast.CodeSpan, entering bool) (ast.WalkStatus, error) {
	if entering {
		w.pdf.SetFont("Courier", "", bodyFontSize)
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			if textNode, ok := c.(*ast.Text); ok {
				w.pdf.Write(lineHeight, string(textNode.Segment.Value(w.source)))
			}
		}
	} else {
		w.bodyFont()
	}
	return ast.WalkSkipChildren, nil
}

func (w *reportWriter) writeCodeLines(lines *text.Segments) {
	w.pdf.Ln(2)
	w.pdf.SetFont("Courier", "", bodyFontSize)
	w.pdf.SetFillColor(245, 245, 245)
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		w.pdf.MultiCell(0, lineHeight, string(seg.Value(w.source)), "", "L", true)
	}
	w.pdf.SetFillColor(255, 255, 255)
	w.bodyFont()
	w.pdf.Ln(2)
}

// writeTable renders a GFM table. Column widths follow the widest cell in
// each column, scaled to the content width; cell text is truncated to one
// line with an ellipsis.
func (w *reportWriter) writeTable(n *extast.Table) {
	rows := w.collectRows(n)
	if len(rows) == 0 || len(rows[0]) == 0 {
		return
	}

	widths := w.columnWidths(rows)

	w.pdf.Ln(2)
	for i, row := range rows {
		if i == 0 {
			w.pdf.SetFont("Arial", "B", tableFontSize)
			w.pdf.SetFillColor(230, 230, 230)
		} else {
			w.pdf.SetFont("Arial", "", tableFontSize)
			w.pdf.SetFillColor(255, 255, 255)
		}

		for j := range widths {
			cell := ""
			if j < len(row) {
				cell = w.fitCell(row[j], widths[j]-2)
			}
			w.pdf.CellFormat(widths[j], lineHeight+2, cell, "1", 0, "L", i == 0, 0, "")
		}
		w.pdf.Ln(lineHeight + 2)
	}
	w.pdf.Ln(2)
	w.bodyFont()
}

// collectRows flattens the table into cell text. The header node carries
// its cells directly, the same shape as a body row.
func (w *reportWriter) collectRows(n *extast.Table) [][]string {
	var rows [][]string
	for child := n.FirstChild(); child != nil; child = child.NextSibling() {
		switch child.(type) {
		case *extast.TableHeader, *extast.TableRow:
			rows = append(rows, w.cellTexts(child))
		}
	}
	return rows
}

func (w *reportWriter) cellTexts(row ast.Node) []string {
	var cells []string
	for cell := row.FirstChild(); cell != nil; cell = cell.NextSibling() {
		if _, ok := cell.(*extast.TableCell); ok {
			cells = append(cells, string(cell.Text(w.source)))
		}
	}
	return cells
}

// columnWidths sizes columns by their widest cell, then scales the set to
// exactly fill the content width.
func (w *reportWriter) columnWidths(rows [][]string) []float64 {
	cols := len(rows[0])
	widths := make([]float64, cols)

	w.pdf.SetFont("Arial", "B", tableFontSize)
	for _, row := range rows {
		for j, cell := range row {
			if j >= cols {
				break
			}
			if width := w.pdf.GetStringWidth(cell) + 4; width > widths[j] {
				widths[j] = width
			}
		}
	}

	const minWidth = 14.0
	total := 0.0
	for j := range widths {
		if widths[j] < minWidth {
			widths[j] = minWidth
		}
		total += widths[j]
	}

	scale := contentWidth / total
	for j := range widths {
		widths[j] *= scale
		if widths[j] < minWidth {
			widths[j] = minWidth
		}
	}
	return widths
}

// fitCell truncates cell text to the given width, appending an ellipsis
// when anything was cut.
func (w *reportWriter) fitCell(cell string, width float64) string {
	if w.pdf.GetStringWidth(cell) <= width {
		return cell
	}
	for len(cell) > 1 && w.pdf.GetStringWidth(cell+"...") > width {
		cell = cell[:len(cell)-1]
	}
	return cell + "..."
}
