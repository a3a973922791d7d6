package store

import (
	"errors"
	"path/filepath"
	"sync"
	"testing"
)

func newStore(t *testing.T) *ConversationStore {
	t.Helper()
	s, err := NewConversationStore(filepath.Join(t.TempDir(), "conversations.json"))
	if err != nil {
		t.Fatalf("NewConversationStore: %v", err)
	}
	return s
}

func TestCreateAndList(t *testing.T) {
	s := newStore(t)
	c1, err := s.Create("trip to Rome")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	c2, err := s.Create("research")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	f, err := s.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(f.Conversations) != 2 {
		t.Fatalf("conversations: %d", len(f.Conversations))
	}
	if len(f.Order) != 2 || f.Order[0] != c1.ID || f.Order[1] != c2.ID {
		t.Fatalf("order: %v", f.Order)
	}
}

func TestAddMessage(t *testing.T) {
	s := newStore(t)
	c, _ := s.Create("chat")
	got, err := s.AddMessage(c.ID, ChatMessage{Role: "user", Content: "hi"})
	if err != nil {
		t.Fatalf("AddMessage: %v", err)
	}
	if len(got.Messages) != 1 || got.Messages[0].Content != "hi" {
		t.Fatalf("messages: %+v", got.Messages)
	}
	if _, err := s.AddMessage("missing", ChatMessage{Role: "user", Content: "x"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteRemovesFromOrder(t *testing.T) {
	s := newStore(t)
	c1, _ := s.Create("a")
	c2, _ := s.Create("b")
	if err := s.Delete(c1.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	f, _ := s.List()
	if len(f.Conversations) != 1 || f.Conversations[0].ID != c2.ID {
		t.Fatalf("conversations: %+v", f.Conversations)
	}
	if len(f.Order) != 1 || f.Order[0] != c2.ID {
		t.Fatalf("order: %v", f.Order)
	}
	if err := s.Delete("missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestReorderValidatesIDs(t *testing.T) {
	s := newStore(t)
	c1, _ := s.Create("a")
	c2, _ := s.Create("b")
	if err := s.Reorder([]string{c2.ID, c1.ID}); err != nil {
		t.Fatalf("Reorder: %v", err)
	}
	f, _ := s.List()
	if f.Order[0] != c2.ID {
		t.Fatalf("order not applied: %v", f.Order)
	}
	if err := s.Reorder([]string{"nope"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestConcurrentMutations(t *testing.T) {
	s := newStore(t)
	c, _ := s.Create("busy")
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.AddMessage(c.ID, ChatMessage{Role: "user", Content: "m"})
		}()
	}
	wg.Wait()
	f, _ := s.List()
	if len(f.Conversations[0].Messages) != 20 {
		t.Fatalf("messages lost: %d", len(f.Conversations[0].Messages))
	}
}
