package endpoints

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"github.com/redlinehq/redline/internal/api"
	"github.com/redlinehq/redline/internal/docstore"
	"github.com/redlinehq/redline/internal/svcctx"
	"github.com/redlinehq/redline/internal/turn"
)

// ChatRequest is the body of POST /api/documents/{id}/chat.
type ChatRequest struct {
	Message string `json:"message"`
	// Provider selects a configured backend; empty uses the default.
	Provider string `json:"provider,omitempty"`
	// Model overrides the configured default model for this turn.
	Model string `json:"model,omitempty"`
	// CustomInstructions are standing preferences delivered to the model
	// alongside the system prompt (tone, formatting, constraints).
	CustomInstructions string `json:"custom_instructions,omitempty"`
}

// ChatResponse is the outcome of one chat turn.
type ChatResponse struct {
	Reply   string        `json:"reply"`
	Actions []turn.Action `json:"actions"`
	Edited  bool          `json:"edited"`
}

// ChatEndpoint handles POST /api/documents/{id}/chat: it runs one full
// turn against the stored document and commits the outcome.
type ChatEndpoint struct{}

func (e *ChatEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/documents/{id}/chat", e.handler
}

func (e *ChatEndpoint) RequiresReady() bool { return true }

func (e *ChatEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "document id is required")
		return
	}

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	store := svcctx.StoreFrom(r.Context())
	registry := svcctx.RegistryFrom(r.Context())
	logger := svcctx.LoggerFrom(r.Context())

	doc, err := store.Get(id)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	history, err := store.History(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	client, err := registry.Default()
	if req.Provider != "" {
		client, err = registry.Get(req.Provider)
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	model := req.Model
	if model == "" {
		if mgr := svcctx.ConfigFrom(r.Context()); mgr != nil {
			model = mgr.Get().Defaults.Model
		}
	}

	engine := turn.NewEngine(client, logger)
	resp, err := engine.Run(r.Context(), &turn.Request{
		Document:           doc,
		Message:            req.Message,
		History:            history,
		Model:              model,
		CustomInstructions: req.CustomInstructions,
	})
	if err != nil {
		// A backend failure is the turn's one fatal error; the document
		// is left exactly as it was.
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	if err := store.Commit(id, resp.Document, resp.History); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, ChatResponse{
		Reply:   resp.Reply,
		Actions: resp.Actions,
		Edited:  resp.Edited(),
	})
}

func (e *ChatEndpoint) Command(getServerURL func() string) *cobra.Command {
	var provider, model, instructions string
	cmd := &cobra.Command{
		Use:   "chat <doc-id> <message>",
		Short: "Run a chat turn against a document",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp ChatResponse
			body := ChatRequest{
				Message:            args[1],
				Provider:           provider,
				Model:              model,
				CustomInstructions: instructions,
			}
			if err := client.Post(cmd.Context(), "/api/documents/"+args[0]+"/chat", body, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().StringVar(&provider, "provider", "", "Provider name (default: configured default)")
	cmd.Flags().StringVar(&model, "model", "", "Model override")
	cmd.Flags().StringVar(&instructions, "instructions", "", "Standing instructions sent with the system prompt")
	return cmd
}
