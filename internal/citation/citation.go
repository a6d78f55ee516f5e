// Package citation implements the inline reference sub-language that lets a
// chat message address document lines, ranges, and pages (@line10, @l5-10,
// @page3), and resolves those references against a document.
package citation

// Type classifies a citation.
type Type string

const (
	TypeLine  Type = "line"
	TypeRange Type = "range"
	TypePage  Type = "page"
)

// Citation is a structured reference extracted from free chat text.
type Citation struct {
	Type Type `json:"type"`
	// Reference is the original token text as it appeared in the message.
	Reference string `json:"reference"`
	// LineNumbers is the resolved (or to-resolve) set of line numbers.
	// Empty for page citations until resolution fills it in from the document.
	LineNumbers []int `json:"lineNumbers"`
	// ResolvedContent is the human-readable rendering, empty until resolved.
	ResolvedContent string `json:"resolvedContent,omitempty"`
}

// Sentinel strings used when a reference cannot be resolved. These are soft
// data handed to the language model, never errors.
const (
	NotFoundSentinel    = "[Not found]"
	NoDocumentSentinel  = "[Document not available]"
	contextBannerOpen   = "--- Referenced Content ---"
	contextBannerClose  = "--- End Referenced Content ---"
)
