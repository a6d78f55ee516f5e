package endpoints

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/redlinehq/redline/internal/api"
	"github.com/redlinehq/redline/internal/docstore"
	"github.com/redlinehq/redline/internal/document"
	"github.com/redlinehq/redline/internal/svcctx"
)

// CreateDocumentRequest is the body of POST /api/documents. Line numbers
// are assigned by the server in the order lines appear, unless the lines
// carry explicit line_number values; then they are ordered by those before
// dense renumbering. All lines or none must carry one.
type CreateDocumentRequest struct {
	FileName     string              `json:"file_name"`
	SourceFormat string              `json:"source_format,omitempty"`
	Lines        []CreateDocumentLine `json:"lines"`
}

// CreateDocumentLine is one line of an uploaded document.
type CreateDocumentLine struct {
	Text       string `json:"text"`
	LineNumber int    `json:"line_number,omitempty"`
	PageNumber int    `json:"page_number,omitempty"`
	IsLocked   bool   `json:"is_locked,omitempty"`
}

// CreateDocumentResponse returns the stored document's identity.
type CreateDocumentResponse struct {
	ID         string `json:"id"`
	TotalLines int    `json:"total_lines"`
	TotalPages int    `json:"total_pages"`
}

// CreateDocumentEndpoint handles POST /api/documents.
type CreateDocumentEndpoint struct{}

func (e *CreateDocumentEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/documents", e.handler
}

func (e *CreateDocumentEndpoint) RequiresReady() bool { return true }

func (e *CreateDocumentEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	var req CreateDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	if len(req.Lines) == 0 {
		writeError(w, http.StatusBadRequest, "document must have at least one line")
		return
	}

	doc := &document.Document{
		Metadata: document.Metadata{
			FileName:     req.FileName,
			SourceFormat: req.SourceFormat,
		},
	}
	explicit := 0
	for i, l := range req.Lines {
		n := i + 1
		if l.LineNumber > 0 {
			n = l.LineNumber
			explicit++
		}
		doc.Lines = append(doc.Lines, document.Line{
			LineNumber: n,
			Text:       l.Text,
			PageNumber: l.PageNumber,
			IsLocked:   l.IsLocked,
		})
	}
	if explicit > 0 && explicit != len(req.Lines) {
		writeError(w, http.StatusBadRequest, "either every line or no line may carry line_number")
		return
	}
	doc.SortByNumber()

	// Page numbers are clamped to monotonic non-decreasing in reading order.
	page := 1
	for i := range doc.Lines {
		if doc.Lines[i].PageNumber > page {
			page = doc.Lines[i].PageNumber
		}
		doc.Lines[i].PageNumber = page
	}
	doc.Renumber()

	store := svcctx.StoreFrom(r.Context())
	id, err := store.Put(doc)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, CreateDocumentResponse{
		ID:         id,
		TotalLines: doc.Metadata.TotalLines,
		TotalPages: doc.Metadata.TotalPages,
	})
}

func (e *CreateDocumentEndpoint) Command(getServerURL func() string) *cobra.Command {
	var fileName string
	cmd := &cobra.Command{
		Use:   "create <file>",
		Short: "Upload a plain-text file as a new document (one line per text line)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			name := fileName
			if name == "" {
				name = args[0]
			}
			req := CreateDocumentRequest{FileName: name, SourceFormat: "text"}
			for _, text := range strings.Split(strings.TrimRight(string(data), "\n"), "\n") {
				req.Lines = append(req.Lines, CreateDocumentLine{Text: text, PageNumber: 1})
			}

			client := api.NewClient(getServerURL())
			var resp CreateDocumentResponse
			if err := client.Post(cmd.Context(), "/api/documents", req, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().StringVar(&fileName, "name", "", "Override the stored file name")
	return cmd
}

// ListDocumentsEndpoint handles GET /api/documents.
type ListDocumentsEndpoint struct{}

func (e *ListDocumentsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/documents", e.handler
}

func (e *ListDocumentsEndpoint) RequiresReady() bool { return true }

func (e *ListDocumentsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	store := svcctx.StoreFrom(r.Context())
	writeJSON(w, http.StatusOK, store.List())
}

func (e *ListDocumentsEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "documents",
		Short: "List stored documents",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp []docstore.Summary
			if err := client.Get(cmd.Context(), "/api/documents", &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// GetDocumentEndpoint handles GET /api/documents/{id}.
type GetDocumentEndpoint struct{}

func (e *GetDocumentEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/documents/{id}", e.handler
}

func (e *GetDocumentEndpoint) RequiresReady() bool { return true }

func (e *GetDocumentEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "document id is required")
		return
	}

	store := svcctx.StoreFrom(r.Context())
	doc, err := store.Get(id)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, doc)
}

func (e *GetDocumentEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "document <id>",
		Short: "Get a document by ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var doc document.Document
			if err := client.Get(cmd.Context(), "/api/documents/"+args[0], &doc); err != nil {
				return err
			}
			return api.Output(doc)
		},
	}
}

// DeleteDocumentEndpoint handles DELETE /api/documents/{id}.
type DeleteDocumentEndpoint struct{}

func (e *DeleteDocumentEndpoint) Route() (string, string, http.HandlerFunc) {
	return "DELETE", "/api/documents/{id}", e.handler
}

func (e *DeleteDocumentEndpoint) RequiresReady() bool { return true }

func (e *DeleteDocumentEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "document id is required")
		return
	}

	store := svcctx.StoreFrom(r.Context())
	if err := store.Delete(id); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"deleted": id})
}

func (e *DeleteDocumentEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			if err := client.Delete(cmd.Context(), "/api/documents/"+args[0]); err != nil {
				return err
			}
			fmt.Printf("Deleted %s\n", args[0])
			return nil
		},
	}
}
