package citation

import (
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strconv"
)

// Token grammar, case-insensitive. Ranges are matched before singles so that
// "@l5-10" never decomposes into a stray "@l5".
var (
	rangePattern = regexp.MustCompile(`(?i)@(?:line|l)(\d+)-(\d+)`)
	linePattern  = regexp.MustCompile(`(?i)@(?:line|l)(\d+)`)
	pagePattern  = regexp.MustCompile(`(?i)@(?:page|p)(\d+)`)
)

// Parser extracts citations from free chat text.
type Parser struct {
	logger *slog.Logger
}

// NewParser creates a parser. A nil logger falls back to slog.Default.
func NewParser(logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{logger: logger}
}

// Parse is a convenience wrapper using the default logger.
func Parse(text string) []Citation {
	return NewParser(nil).Parse(text)
}

type parsedToken struct {
	citation Citation
	pos      int
}

// Parse extracts all citations from text in first-seen order.
//
// Precedence: ranges are collected first; a single-line token whose number
// already lies inside an accepted range is subsumed by it. Duplicate tokens
// addressing the same span keep only the first occurrence. Invalid ranges
// (start > end) are dropped with a warning. Parse never fails: malformed or
// empty input yields an empty list, since this runs on arbitrary user text.
func (p *Parser) Parse(text string) []Citation {
	if text == "" {
		return nil
	}

	var tokens []parsedToken
	seen := make(map[string]bool)

	// Spans covered by range tokens (valid or not), so the single-line
	// pattern never re-matches the head of a range token.
	type span struct{ start, end int }
	var rangeSpans []span
	var accepted [][2]int // accepted [start, end] line intervals

	for _, m := range rangePattern.FindAllStringSubmatchIndex(text, -1) {
		rangeSpans = append(rangeSpans, span{m[0], m[1]})
		ref := text[m[0]:m[1]]
		start, _ := strconv.Atoi(text[m[2]:m[3]])
		end, _ := strconv.Atoi(text[m[4]:m[5]])
		if start > end {
			p.logger.Warn("dropping invalid range citation", "reference", ref, "start", start, "end", end)
			continue
		}
		key := fmt.Sprintf("range:%d-%d", start, end)
		if seen[key] {
			continue
		}
		seen[key] = true
		accepted = append(accepted, [2]int{start, end})

		nums := make([]int, 0, end-start+1)
		for n := start; n <= end; n++ {
			nums = append(nums, n)
		}
		tokens = append(tokens, parsedToken{
			citation: Citation{Type: TypeRange, Reference: ref, LineNumbers: nums},
			pos:      m[0],
		})
	}

	inRangeToken := func(pos int) bool {
		for _, s := range rangeSpans {
			if pos >= s.start && pos < s.end {
				return true
			}
		}
		return false
	}
	subsumed := func(n int) bool {
		for _, iv := range accepted {
			if n >= iv[0] && n <= iv[1] {
				return true
			}
		}
		return false
	}

	for _, m := range linePattern.FindAllStringSubmatchIndex(text, -1) {
		if inRangeToken(m[0]) {
			continue
		}
		n, _ := strconv.Atoi(text[m[2]:m[3]])
		if subsumed(n) {
			continue
		}
		key := fmt.Sprintf("line:%d", n)
		if seen[key] {
			continue
		}
		seen[key] = true
		tokens = append(tokens, parsedToken{
			citation: Citation{Type: TypeLine, Reference: text[m[0]:m[1]], LineNumbers: []int{n}},
			pos:      m[0],
		})
	}

	for _, m := range pagePattern.FindAllStringSubmatchIndex(text, -1) {
		n, _ := strconv.Atoi(text[m[2]:m[3]])
		key := fmt.Sprintf("page:%d", n)
		if seen[key] {
			continue
		}
		seen[key] = true
		// Page citations resolve against the document, not the text; the
		// page-to-line mapping is filled in by the resolver.
		tokens = append(tokens, parsedToken{
			citation: Citation{Type: TypePage, Reference: text[m[0]:m[1]], LineNumbers: []int{}},
			pos:      m[0],
		})
	}

	sort.SliceStable(tokens, func(i, j int) bool { return tokens[i].pos < tokens[j].pos })

	out := make([]Citation, 0, len(tokens))
	for _, t := range tokens {
		out = append(out, t.citation)
	}
	return out
}
