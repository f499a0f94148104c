package journal

import (
	"testing"
)

func TestAppendAndList(t *testing.T) {
	s := NewStore(t.TempDir())

	if err := s.Append("add retry budget to runner"); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := s.Append("fix flaky websocket test"); err != nil {
		t.Fatalf("append: %v", err)
	}

	entries, err := s.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Text != "add retry budget to runner" {
		t.Errorf("entries out of order: %q first", entries[0].Text)
	}
	if entries[0].CreatedAt == "" {
		t.Errorf("missing timestamp")
	}

	texts, err := s.Texts()
	if err != nil {
		t.Fatalf("texts: %v", err)
	}
	if len(texts) != 2 || texts[1] != "fix flaky websocket test" {
		t.Errorf("texts = %v", texts)
	}
}

func TestAppendRejectsEmpty(t *testing.T) {
	s := NewStore(t.TempDir())
	if err := s.Append(""); err == nil {
		t.Fatal("expected error for empty entry")
	}
}

func TestListMissingJournalIsEmpty(t *testing.T) {
	s := NewStore(t.TempDir())
	entries, err := s.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if entries != nil {
		t.Errorf("expected nil entries, got %v", entries)
	}
}

func TestClear(t *testing.T) {
	s := NewStore(t.TempDir())
	if err := s.Append("something"); err != nil {
		t.Fatal(err)
	}
	if err := s.Clear(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	entries, err := s.List()
	if err != nil || len(entries) != 0 {
		t.Errorf("journal not empty after clear: %v, %v", entries, err)
	}
	// Clearing an already-empty journal is fine.
	if err := s.Clear(); err != nil {
		t.Errorf("second clear: %v", err)
	}
}
