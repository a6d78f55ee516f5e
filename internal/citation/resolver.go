package citation

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/redlinehq/redline/internal/document"
)

// Resolver maps parsed citations to actual document content.
type Resolver struct {
	logger *slog.Logger
}

// NewResolver creates a resolver. A nil logger falls back to slog.Default.
func NewResolver(logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{logger: logger}
}

// Resolve is a convenience wrapper using the default logger.
func Resolve(citations []Citation, doc *document.Document) []Citation {
	return NewResolver(nil).Resolve(citations, doc)
}

// Resolve fills ResolvedContent for every citation. Missing lines and pages
// become sentinel text rather than errors so context building never breaks.
// Page citations additionally get LineNumbers populated from the document;
// this is the one case where resolution enriches structure, not just content.
func (r *Resolver) Resolve(citations []Citation, doc *document.Document) []Citation {
	out := make([]Citation, len(citations))
	copy(out, citations)

	if doc.IsEmpty() {
		for i := range out {
			out[i].ResolvedContent = NoDocumentSentinel
		}
		return out
	}

	for i := range out {
		c := &out[i]
		switch c.Type {
		case TypeLine:
			c.ResolvedContent = r.resolveLine(c, doc)
		case TypeRange:
			c.ResolvedContent = r.resolveRange(c, doc)
		case TypePage:
			c.ResolvedContent = r.resolvePage(c, doc)
		default:
			r.logger.Warn("unknown citation type", "type", c.Type, "reference", c.Reference)
			c.ResolvedContent = NotFoundSentinel
		}
	}
	return out
}

func (r *Resolver) resolveLine(c *Citation, doc *document.Document) string {
	if len(c.LineNumbers) == 0 {
		return NotFoundSentinel
	}
	n := c.LineNumbers[0]
	line, ok := doc.Line(n)
	if !ok {
		return fmt.Sprintf("Line %d: %s", n, NotFoundSentinel)
	}
	return fmt.Sprintf("Line %d: %s", n, line.Text)
}

func (r *Resolver) resolveRange(c *Citation, doc *document.Document) string {
	if len(c.LineNumbers) == 0 {
		return NotFoundSentinel
	}
	lo := c.LineNumbers[0]
	hi := c.LineNumbers[len(c.LineNumbers)-1]

	var parts []string
	for i := range doc.Lines {
		l := &doc.Lines[i]
		if l.LineNumber >= lo && l.LineNumber <= hi {
			parts = append(parts, fmt.Sprintf("Line %d: %s", l.LineNumber, l.Text))
		}
	}
	if len(parts) == 0 {
		return fmt.Sprintf("Lines %d-%d: %s", lo, hi, NotFoundSentinel)
	}
	return strings.Join(parts, "\n")
}

func (r *Resolver) resolvePage(c *Citation, doc *document.Document) string {
	page, ok := pageNumberFromReference(c.Reference)
	if !ok {
		return NotFoundSentinel
	}

	nums := doc.LinesOnPage(page)
	if len(nums) == 0 {
		c.LineNumbers = []int{}
		return fmt.Sprintf("Page %d: %s", page, NotFoundSentinel)
	}
	c.LineNumbers = nums

	parts := make([]string, 0, len(nums)+1)
	parts = append(parts, fmt.Sprintf("Page %d:", page))
	for _, n := range nums {
		if l, ok := doc.Line(n); ok {
			parts = append(parts, fmt.Sprintf("Line %d: %s", n, l.Text))
		}
	}
	return strings.Join(parts, "\n")
}

// pageNumberFromReference extracts the numeric suffix from a page token.
func pageNumberFromReference(ref string) (int, bool) {
	m := pagePattern.FindStringSubmatch(ref)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

// FormatAsContext renders resolved citations as a banner-delimited block for
// inclusion in the language-model context. Zero citations produce the empty
// string so no empty scaffolding pollutes the context.
func FormatAsContext(citations []Citation) string {
	if len(citations) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString(contextBannerOpen)
	sb.WriteString("\n")
	for i, c := range citations {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(c.ResolvedContent)
	}
	sb.WriteString("\n")
	sb.WriteString(contextBannerClose)
	return sb.String()
}
