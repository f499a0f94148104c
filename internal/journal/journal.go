// Package journal keeps the ordered log of pending change descriptions
// that feed the generated commit message.
package journal

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/lucasnoah/preflight/internal/fsx"
)

// Entry is one pending change description.
type Entry struct {
	Text      string `json:"text"`
	CreatedAt string `json:"created_at"`
}

// Store persists the journal as JSON under the engine's artifact directory.
type Store struct {
	path string
}

// NewStore creates a Store for the repository at repoRoot.
func NewStore(repoRoot string) *Store {
	return &Store{path: filepath.Join(repoRoot, ".preflight", "journal.json")}
}

// Append adds an entry to the end of the journal.
func (s *Store) Append(text string) error {
	if text == "" {
		return fmt.Errorf("journal entry must not be empty")
	}
	entries, err := s.List()
	if err != nil {
		return err
	}
	entries = append(entries, Entry{
		Text:      text,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	})
	return fsx.WriteJSON(s.path, entries)
}

// List returns all entries in order. A missing journal is empty, not an
// error.
func (s *Store) List() ([]Entry, error) {
	var entries []Entry
	if err := fsx.ReadJSON(s.path, &entries); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return entries, nil
}

// Texts returns just the entry descriptions, in order.
func (s *Store) Texts() ([]string, error) {
	entries, err := s.List()
	if err != nil {
		return nil, err
	}
	texts := make([]string, 0, len(entries))
	for _, e := range entries {
		texts = append(texts, e.Text)
	}
	return texts, nil
}

// Clear removes every entry.
func (s *Store) Clear() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("clear journal: %w", err)
	}
	return nil
}
