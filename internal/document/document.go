// Package document holds the in-memory representation of an uploaded
// document reduced to a flat list of numbered lines. Parsers that produce
// the line list from DOCX/PDF/LaTeX/Markdown live outside this module;
// everything here operates on the already-parsed form.
package document

import (
	"fmt"
	"sort"
)

// Line is one addressable line of a document.
type Line struct {
	// LineNumber is unique and dense (1-based) within the current document.
	// Re-established after every insert/delete via Renumber.
	LineNumber int    `json:"lineNumber"`
	Text       string `json:"text"`
	// PageNumber is >= 1 and monotonic non-decreasing across the sequence.
	PageNumber int `json:"pageNumber"`
	// IsLocked excludes the line from every read and edit path exposed to
	// the language model.
	IsLocked         bool     `json:"isLocked"`
	IsPlaceholder    bool     `json:"isPlaceholder,omitempty"`
	PlaceholderNames []string `json:"placeholderNames,omitempty"`
}

// Metadata describes the document as a whole.
// TotalLines must equal len(Lines) after every mutation.
type Metadata struct {
	TotalLines   int    `json:"totalLines"`
	TotalPages   int    `json:"totalPages"`
	SourceFormat string `json:"sourceFormat,omitempty"`
	FileName     string `json:"fileName,omitempty"`
}

// Document is an ordered sequence of lines plus metadata. Line numbers are
// the addressing key; order is reading order.
type Document struct {
	ID       string   `json:"id,omitempty"`
	Lines    []Line   `json:"lines"`
	Metadata Metadata `json:"metadata"`
}

// IsEmpty reports whether the document has no lines.
func (d *Document) IsEmpty() bool {
	return d == nil || len(d.Lines) == 0
}

// Line returns the line with the given number, or false if absent.
func (d *Document) Line(n int) (*Line, bool) {
	if d == nil {
		return nil, false
	}
	for i := range d.Lines {
		if d.Lines[i].LineNumber == n {
			return &d.Lines[i], true
		}
	}
	return nil, false
}

// Renumber re-establishes dense 1..K line numbering in the current relative
// order and recomputes metadata. Call after any structural mutation.
func (d *Document) Renumber() {
	for i := range d.Lines {
		d.Lines[i].LineNumber = i + 1
	}
	d.Metadata.TotalLines = len(d.Lines)
	maxPage := 0
	for i := range d.Lines {
		if d.Lines[i].PageNumber > maxPage {
			maxPage = d.Lines[i].PageNumber
		}
	}
	d.Metadata.TotalPages = maxPage
}

// Clone returns a deep copy. Mutating the clone never affects the original.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	out := &Document{
		ID:       d.ID,
		Metadata: d.Metadata,
		Lines:    make([]Line, len(d.Lines)),
	}
	copy(out.Lines, d.Lines)
	for i := range out.Lines {
		if len(d.Lines[i].PlaceholderNames) > 0 {
			out.Lines[i].PlaceholderNames = append([]string(nil), d.Lines[i].PlaceholderNames...)
		}
	}
	return out
}

// Validate checks structural invariants: dense 1..K numbering, page numbers
// >= 1 and monotonic non-decreasing, metadata consistent with the line list.
func (d *Document) Validate() error {
	if d == nil {
		return fmt.Errorf("document is nil")
	}
	prevPage := 0
	for i := range d.Lines {
		l := &d.Lines[i]
		if l.LineNumber != i+1 {
			return fmt.Errorf("line at index %d has number %d, want %d", i, l.LineNumber, i+1)
		}
		if l.PageNumber < 1 {
			return fmt.Errorf("line %d has page number %d, want >= 1", l.LineNumber, l.PageNumber)
		}
		if l.PageNumber < prevPage {
			return fmt.Errorf("line %d page number %d decreases from %d", l.LineNumber, l.PageNumber, prevPage)
		}
		prevPage = l.PageNumber
	}
	if d.Metadata.TotalLines != len(d.Lines) {
		return fmt.Errorf("metadata totalLines %d != %d lines", d.Metadata.TotalLines, len(d.Lines))
	}
	return nil
}

// LinesOnPage returns the line numbers whose page equals page, in order.
func (d *Document) LinesOnPage(page int) []int {
	var nums []int
	for i := range d.Lines {
		if d.Lines[i].PageNumber == page {
			nums = append(nums, d.Lines[i].LineNumber)
		}
	}
	return nums
}

// SortByNumber restores line-number order after an out-of-order build, such
// as an upload that supplies explicit line numbers.
func (d *Document) SortByNumber() {
	sort.SliceStable(d.Lines, func(i, j int) bool {
		return d.Lines[i].LineNumber < d.Lines[j].LineNumber
	})
}
