package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
)

// ChatMessage is one stored chat turn.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Conversation is one stored conversation.
type Conversation struct {
	ID        string        `json:"id"`
	Title     string        `json:"title"`
	Messages  []ChatMessage `json:"messages"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// File is the entire on-disk store. Order lists conversation ids in the
// user's preferred display order.
type File struct {
	Conversations []Conversation `json:"conversations"`
	Order         []string       `json:"order"`
}

var ErrNotFound = errors.New("conversation not found")

// ConversationStore persists all conversations in one JSON file. Every
// mutation reads the whole file, changes it in memory and writes it back
// atomically under an exclusive lock.
type ConversationStore struct {
	path string
	mu   sync.Mutex
}

func NewConversationStore(path string) (*ConversationStore, error) {
	if path == "" {
		return nil, fmt.Errorf("conversation store: path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return &ConversationStore{path: path}, nil
}

// withLock serializes access against both goroutines (mutex) and other
// processes (flock on a sidecar lock file).
func (s *ConversationStore) withLock(fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, err := os.OpenFile(s.path+".lock", os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return err
	}
	defer lock.Close()
	if err := syscall.Flock(int(lock.Fd()), syscall.LOCK_EX); err != nil {
		return fmt.Errorf("locking store: %w", err)
	}
	defer syscall.Flock(int(lock.Fd()), syscall.LOCK_UN)

	return fn()
}

func (s *ConversationStore) read() (File, error) {
	var f File
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return File{}, nil
		}
		return File{}, err
	}
	if len(data) == 0 {
		return File{}, nil
	}
	if err := json.Unmarshal(data, &f); err != nil {
		return File{}, fmt.Errorf("corrupt conversation store: %w", err)
	}
	return f, nil
}

// write replaces the store atomically: write a temp file, then rename.
func (s *ConversationStore) write(f File) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".conversations-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}

// List returns the whole store.
func (s *ConversationStore) List() (File, error) {
	var f File
	err := s.withLock(func() error {
		var e error
		f, e = s.read()
		return e
	})
	return f, err
}

// Replace overwrites the whole store.
func (s *ConversationStore) Replace(f File) error {
	return s.withLock(func() error { return s.write(f) })
}

// Reorder replaces the display order. Unknown ids are rejected.
func (s *ConversationStore) Reorder(ids []string) error {
	return s.withLock(func() error {
		f, err := s.read()
		if err != nil {
			return err
		}
		known := map[string]bool{}
		for _, c := range f.Conversations {
			known[c.ID] = true
		}
		for _, id := range ids {
			if !known[id] {
				return fmt.Errorf("%w: %s", ErrNotFound, id)
			}
		}
		f.Order = ids
		return s.write(f)
	})
}

// Create appends a new empty conversation and returns it.
func (s *ConversationStore) Create(title string) (Conversation, error) {
	now := time.Now().UTC()
	conv := Conversation{ID: uuid.NewString(), Title: title, CreatedAt: now, UpdatedAt: now}
	err := s.withLock(func() error {
		f, err := s.read()
		if err != nil {
			return err
		}
		f.Conversations = append(f.Conversations, conv)
		f.Order = append(f.Order, conv.ID)
		return s.write(f)
	})
	return conv, err
}

// AddMessage appends one message to a conversation.
func (s *ConversationStore) AddMessage(id string, m ChatMessage) (Conversation, error) {
	var out Conversation
	err := s.withLock(func() error {
		f, err := s.read()
		if err != nil {
			return err
		}
		for i := range f.Conversations {
			if f.Conversations[i].ID != id {
				continue
			}
			f.Conversations[i].Messages = append(f.Conversations[i].Messages, m)
			f.Conversations[i].UpdatedAt = time.Now().UTC()
			out = f.Conversations[i]
			return s.write(f)
		}
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	})
	return out, err
}

// Delete removes a conversation and its order entry.
func (s *ConversationStore) Delete(id string) error {
	return s.withLock(func() error {
		f, err := s.read()
		if err != nil {
			return err
		}
		idx := -1
		for i := range f.Conversations {
			if f.Conversations[i].ID == id {
				idx = i
				break
			}
		}
		if idx < 0 {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		f.Conversations = append(f.Conversations[:idx], f.Conversations[idx+1:]...)
		order := f.Order[:0]
		for _, oid := range f.Order {
			if oid != id {
				order = append(order, oid)
			}
		}
		f.Order = order
		return s.write(f)
	})
}
