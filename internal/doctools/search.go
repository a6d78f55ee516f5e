package doctools

import (
	"sort"
	"strings"

	"github.com/redlinehq/redline/internal/document"
	"github.com/redlinehq/redline/internal/providers"
)

const (
	// DefaultSearchLimit is used when the model omits a limit.
	DefaultSearchLimit = 5
	// MaxSearchLimit caps the result set regardless of the requested limit.
	MaxSearchLimit = 20
)

// SearchMatch is one matching line.
type SearchMatch struct {
	LineNumber int     `json:"line_number"`
	Text       string  `json:"text"`
	Score      float64 `json:"score"`
}

// SearchResult is the serializable output of doc_search.
type SearchResult struct {
	Success bool          `json:"success"`
	Query   string        `json:"query"`
	Matches []SearchMatch `json:"matches"`
	Error   string        `json:"error,omitempty"`
}

func searchTool() providers.Tool {
	return providers.Tool{
		Type: "function",
		Function: providers.ToolFunction{
			Name:        string(ToolSearch),
			Description: "Search the document for lines containing the query (case-insensitive substring match). Returns line numbers with snippets so you can decide where to read or edit.",
			Parameters: mustMarshal(map[string]any{
				"type": "object",
				"properties": map[string]any{
					"query": map[string]any{
						"type":        "string",
						"description": "Text to search for",
					},
					"limit": map[string]any{
						"type":        "integer",
						"description": "Maximum number of matches to return (default 5, max 20)",
						"maximum":     MaxSearchLimit,
					},
				},
				"required": []string{"query"},
			}),
		},
	}
}

// Search performs a case-insensitive substring match over all line text.
// Locked lines are not filtered here: results are line numbers plus
// snippets used to decide where to act, not content handed wholesale to
// the model; read and analyze do the filtering.
//
// Exact full-line matches score 1.0, partial matches 0.5. Results are
// sorted by score descending and truncated to min(limit, MaxSearchLimit).
func (e *Engine) Search(query string, doc *document.Document, limit int) *SearchResult {
	result := &SearchResult{Success: true, Query: query, Matches: []SearchMatch{}}

	if query == "" {
		return result
	}
	if doc.IsEmpty() {
		return result
	}

	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	if limit > MaxSearchLimit {
		limit = MaxSearchLimit
	}

	needle := strings.ToLower(query)
	for i := range doc.Lines {
		l := &doc.Lines[i]
		haystack := strings.ToLower(l.Text)
		if !strings.Contains(haystack, needle) {
			continue
		}
		score := 0.5
		if strings.TrimSpace(haystack) == strings.TrimSpace(needle) {
			score = 1.0
		}
		result.Matches = append(result.Matches, SearchMatch{
			LineNumber: l.LineNumber,
			Text:       l.Text,
			Score:      score,
		})
	}

	sort.SliceStable(result.Matches, func(i, j int) bool {
		return result.Matches[i].Score > result.Matches[j].Score
	})
	if len(result.Matches) > limit {
		result.Matches = result.Matches[:limit]
	}

	e.logger.Debug("document search", "query", query, "matches", len(result.Matches))
	return result
}
