// Package memstore provides an in-memory ConversationStore used by tests
// and as the server default when no data directory is configured.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	core "ari/internal/assistant/ports"
	"ari/internal/assistant/ports/storage"
	id "ari/internal/utils/id"
)

// Store keeps conversations in process memory. Reads return deep copies so
// callers can mutate results without racing the store.
type Store struct {
	mu            sync.RWMutex
	conversations map[string]*storage.Conversation
}

var _ storage.ConversationStore = (*Store)(nil)

// New constructs an empty in-memory store.
func New() *Store {
	return &Store{conversations: make(map[string]*storage.Conversation)}
}

func (s *Store) Create(ctx context.Context, title string) (*storage.Conversation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	now := time.Now()
	conv := &storage.Conversation{
		ID:          id.NewConversationID(),
		Title:       title,
		Turns:       []core.ConversationTurn{},
		Preferences: core.DefaultPreferences(),
		Metadata:    make(map[string]string),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	s.mu.Lock()
	s.conversations[conv.ID] = clone(conv)
	s.mu.Unlock()

	return conv, nil
}

func (s *Store) Get(ctx context.Context, convID string) (*storage.Conversation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.conversations[convID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return clone(conv), nil
}

func (s *Store) Save(ctx context.Context, conv *storage.Conversation) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	saved := clone(conv)
	if saved.CreatedAt.IsZero() {
		saved.CreatedAt = time.Now()
	}
	saved.UpdatedAt = time.Now()

	s.mu.Lock()
	s.conversations[saved.ID] = saved
	s.mu.Unlock()

	return nil
}

func (s *Store) AppendTurn(ctx context.Context, convID string, turn core.ConversationTurn) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[convID]
	if !ok {
		return storage.ErrNotFound
	}
	conv.Turns = append(conv.Turns, turn)
	conv.UpdatedAt = time.Now()
	return nil
}

func (s *Store) SaveArtifact(ctx context.Context, convID string, artifact core.Artifact) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[convID]
	if !ok {
		return storage.ErrNotFound
	}
	conv.Artifacts = append(conv.Artifacts, artifact)
	conv.UpdatedAt = time.Now()
	return nil
}

// List returns conversation IDs ordered by most recently updated.
func (s *Store) List(ctx context.Context, limit, offset int) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	convs := make([]*storage.Conversation, 0, len(s.conversations))
	for _, conv := range s.conversations {
		convs = append(convs, conv)
	}
	s.mu.RUnlock()

	sort.Slice(convs, func(i, j int) bool {
		if convs[i].UpdatedAt.Equal(convs[j].UpdatedAt) {
			return convs[i].ID < convs[j].ID
		}
		return convs[i].UpdatedAt.After(convs[j].UpdatedAt)
	})

	ids := make([]string, 0, len(convs))
	for _, conv := range convs {
		ids = append(ids, conv.ID)
	}
	return paginate(ids, limit, offset), nil
}

func (s *Store) Delete(ctx context.Context, convID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.conversations, convID)
	s.mu.Unlock()
	return nil
}

func paginate(ids []string, limit, offset int) []string {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(ids) {
		return []string{}
	}
	ids = ids[offset:]
	if limit > 0 && limit < len(ids) {
		ids = ids[:limit]
	}
	return ids
}

func clone(conv *storage.Conversation) *storage.Conversation {
	out := *conv
	out.Turns = append([]core.ConversationTurn(nil), conv.Turns...)
	out.Artifacts = append([]core.Artifact(nil), conv.Artifacts...)
	if conv.Metadata != nil {
		out.Metadata = make(map[string]string, len(conv.Metadata))
		for k, v := range conv.Metadata {
			out.Metadata[k] = v
		}
	}
	for i := range out.Artifacts {
		out.Artifacts[i].Tags = append([]string(nil), out.Artifacts[i].Tags...)
	}
	return &out
}
