package endpoints

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/redlinehq/redline/internal/api"
	"github.com/redlinehq/redline/internal/citation"
	"github.com/redlinehq/redline/internal/docstore"
	"github.com/redlinehq/redline/internal/svcctx"
)

// PreviewCitationsRequest is the body of POST /api/citations/preview.
type PreviewCitationsRequest struct {
	Text string `json:"text"`
	// DocumentID resolves citations against a stored document; when empty
	// only parsing happens and resolved content is omitted.
	DocumentID string `json:"document_id,omitempty"`
}

// PreviewCitationsResponse lists the parsed (and optionally resolved)
// citations plus the rendered context block.
type PreviewCitationsResponse struct {
	Citations []citation.Citation `json:"citations"`
	Context   string              `json:"context,omitempty"`
}

// PreviewCitationsEndpoint handles POST /api/citations/preview. Clients use
// it to show users which parts of the document a message references before
// sending the message into a chat turn.
type PreviewCitationsEndpoint struct{}

func (e *PreviewCitationsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/citations/preview", e.handler
}

func (e *PreviewCitationsEndpoint) RequiresReady() bool { return true }

func (e *PreviewCitationsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	var req PreviewCitationsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}

	citations := citation.Parse(req.Text)

	resp := PreviewCitationsResponse{Citations: citations}
	if req.DocumentID != "" {
		store := svcctx.StoreFrom(r.Context())
		doc, err := store.Get(req.DocumentID)
		if err != nil {
			if errors.Is(err, docstore.ErrNotFound) {
				writeError(w, http.StatusNotFound, err.Error())
				return
			}
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		resp.Citations = citation.Resolve(citations, doc)
		resp.Context = citation.FormatAsContext(resp.Citations)
	}

	writeJSON(w, http.StatusOK, resp)
}

func (e *PreviewCitationsEndpoint) Command(getServerURL func() string) *cobra.Command {
	var docID string
	cmd := &cobra.Command{
		Use:   "citations <text>",
		Short: "Parse citation tokens (@line12, @l5-10, @page3) out of a message",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp PreviewCitationsResponse
			body := PreviewCitationsRequest{Text: args[0], DocumentID: docID}
			if err := client.Post(cmd.Context(), "/api/citations/preview", body, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().StringVar(&docID, "document", "", "Resolve against this stored document")
	return cmd
}
