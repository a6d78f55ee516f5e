// Package docstore keeps the working set of documents and per-document
// conversation history. Persistence and format-preserving export belong to
// callers; the store only guarantees consistent snapshots.
package docstore

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/redlinehq/redline/internal/document"
	"github.com/redlinehq/redline/internal/providers"
)

// ErrNotFound is returned when a document id is unknown.
var ErrNotFound = fmt.Errorf("document not found")

// Entry is one stored document plus its conversation.
type Entry struct {
	Document  *document.Document  `json:"document"`
	History   []providers.Message `json:"-"`
	CreatedAt time.Time           `json:"created_at"`
	UpdatedAt time.Time           `json:"updated_at"`
}

// Store is an in-memory document store safe for concurrent use. Documents
// are cloned on the way in and out, so two requests never share line slices.
type Store struct {
	mu      sync.RWMutex
	entries map[string]*Entry
	logger  *slog.Logger
}

// New creates an empty store.
func New(logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		entries: make(map[string]*Entry),
		logger:  logger,
	}
}

// Put stores a document. An empty ID gets a generated UUID; an existing ID
// replaces the prior version and keeps its conversation history.
func (s *Store) Put(doc *document.Document) (string, error) {
	if doc == nil {
		return "", fmt.Errorf("nil document")
	}
	if err := doc.Validate(); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := doc.ID
	if id == "" {
		id = uuid.New().String()
	}

	stored := doc.Clone()
	stored.ID = id

	now := time.Now().UTC()
	if prev, ok := s.entries[id]; ok {
		prev.Document = stored
		prev.UpdatedAt = now
	} else {
		s.entries[id] = &Entry{Document: stored, CreatedAt: now, UpdatedAt: now}
	}

	s.logger.Debug("stored document", "id", id, "lines", len(stored.Lines))
	return id, nil
}

// Get returns a clone of the document with the given id.
func (s *Store) Get(id string) (*document.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return entry.Document.Clone(), nil
}

// History returns a copy of the conversation for a document.
func (s *Store) History(id string) ([]providers.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	out := make([]providers.Message, len(entry.History))
	copy(out, entry.History)
	return out, nil
}

// Commit records the outcome of a completed turn: the updated history and,
// when the turn edited the document, the new authoritative version.
func (s *Store) Commit(id string, doc *document.Document, history []providers.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	if doc != nil {
		stored := doc.Clone()
		stored.ID = id
		entry.Document = stored
	}
	entry.History = make([]providers.Message, len(history))
	copy(entry.History, history)
	entry.UpdatedAt = time.Now().UTC()
	return nil
}

// Delete removes a document. Deleting an unknown id is an error so callers
// can distinguish a no-op from a typo.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(s.entries, id)
	s.logger.Debug("deleted document", "id", id)
	return nil
}

// Summary is a lightweight listing row.
type Summary struct {
	ID         string    `json:"id"`
	FileName   string    `json:"file_name"`
	TotalLines int       `json:"total_lines"`
	TotalPages int       `json:"total_pages"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// List returns summaries for all stored documents, ordered by id.
func (s *Store) List() []Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Summary, 0, len(s.entries))
	for id, entry := range s.entries {
		out = append(out, Summary{
			ID:         id,
			FileName:   entry.Document.Metadata.FileName,
			TotalLines: entry.Document.Metadata.TotalLines,
			TotalPages: entry.Document.Metadata.TotalPages,
			UpdatedAt:  entry.UpdatedAt,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len returns the number of stored documents.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
