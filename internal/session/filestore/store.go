// Package filestore persists conversations as one JSON document per
// conversation under a base directory. The default CLI store.
package filestore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	core "ari/internal/assistant/ports"
	"ari/internal/assistant/ports/storage"
	"ari/internal/logging"
	id "ari/internal/utils/id"
)

// conversationIDPattern guards IDs that become file names.
var conversationIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

type store struct {
	baseDir string
	logger  logging.Logger
}

var _ storage.ConversationStore = (*store)(nil)

// New creates a file-backed conversation store rooted at baseDir.
// A leading "~/" expands to the user home directory.
func New(baseDir string) storage.ConversationStore {
	if strings.HasPrefix(baseDir, "~/") {
		home, _ := os.UserHomeDir()
		baseDir = filepath.Join(home, baseDir[2:])
	}
	_ = os.MkdirAll(baseDir, 0755) // Ignore error - directory may already exist
	return &store{
		baseDir: baseDir,
		logger:  logging.NewComponentLogger("ConversationFileStore"),
	}
}

func (s *store) Create(ctx context.Context, title string) (*storage.Conversation, error) {
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

	data, err := json.MarshalIndent(conv, "", "  ")
	if err != nil {
		return nil, err
	}

	// Create file exclusively so an ID collision cannot overwrite history
	f, err := os.OpenFile(s.path(conv.ID), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("create conversation file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if _, err := f.Write(data); err != nil {
		return nil, fmt.Errorf("write conversation: %w", err)
	}

	return conv, nil
}

func (s *store) Get(ctx context.Context, convID string) (*storage.Conversation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !isSafeConversationID(convID) {
		return nil, storage.ErrNotFound
	}

	data, err := os.ReadFile(s.path(convID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("read conversation %s: %w", convID, err)
	}

	var conv storage.Conversation
	if err := json.Unmarshal(data, &conv); err != nil {
		s.logger.Error("Failed to decode conversation file %s: %v. Preview: %s",
			convID, err, previewJSON(data))
		return nil, fmt.Errorf("decode conversation %s: %w", convID, err)
	}
	return &conv, nil
}

func (s *store) Save(ctx context.Context, conv *storage.Conversation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if conv == nil {
		return fmt.Errorf("conversation cannot be nil")
	}
	if !isSafeConversationID(conv.ID) {
		return fmt.Errorf("invalid conversation ID")
	}

	if conv.CreatedAt.IsZero() {
		conv.CreatedAt = time.Now()
	}
	conv.UpdatedAt = time.Now()

	data, err := json.MarshalIndent(conv, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path(conv.ID), data, 0644)
}

func (s *store) AppendTurn(ctx context.Context, convID string, turn core.ConversationTurn) error {
	conv, err := s.Get(ctx, convID)
	if err != nil {
		return err
	}
	conv.Turns = append(conv.Turns, turn)
	return s.Save(ctx, conv)
}

func (s *store) SaveArtifact(ctx context.Context, convID string, artifact core.Artifact) error {
	conv, err := s.Get(ctx, convID)
	if err != nil {
		return err
	}
	conv.Artifacts = append(conv.Artifacts, artifact)
	return s.Save(ctx, conv)
}

// List returns conversation IDs ordered by most recently updated.
func (s *store) List(ctx context.Context, limit, offset int) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, err
	}

	type listed struct {
		id        string
		updatedAt time.Time
	}
	var found []listed

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		convID := strings.TrimSuffix(entry.Name(), ".json")
		if !isSafeConversationID(convID) {
			continue
		}

		data, readErr := os.ReadFile(filepath.Join(s.baseDir, entry.Name()))
		if readErr != nil {
			s.logger.Error("Failed to read conversation file %s: %v", entry.Name(), readErr)
			continue
		}
		var conv storage.Conversation
		if jsonErr := json.Unmarshal(data, &conv); jsonErr != nil {
			s.logger.Error("Failed to decode conversation file %s: %v", entry.Name(), jsonErr)
			continue
		}
		found = append(found, listed{id: convID, updatedAt: conv.UpdatedAt})
	}

	sort.Slice(found, func(i, j int) bool {
		if found[i].updatedAt.Equal(found[j].updatedAt) {
			return found[i].id < found[j].id
		}
		return found[i].updatedAt.After(found[j].updatedAt)
	})

	ids := make([]string, 0, len(found))
	for _, item := range found {
		ids = append(ids, item.id)
	}

	if offset < 0 {
		offset = 0
	}
	if offset >= len(ids) {
		return []string{}, nil
	}
	ids = ids[offset:]
	if limit > 0 && limit < len(ids) {
		ids = ids[:limit]
	}
	return ids, nil
}

func (s *store) Delete(ctx context.Context, convID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !isSafeConversationID(convID) {
		return fmt.Errorf("invalid conversation ID")
	}

	err := os.Remove(s.path(convID))
	// Ignore error if file doesn't exist - deletion goal achieved
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (s *store) path(convID string) string {
	return filepath.Join(s.baseDir, fmt.Sprintf("%s.json", convID))
}

func isSafeConversationID(convID string) bool {
	return convID != "" && conversationIDPattern.MatchString(convID)
}

func previewJSON(data []byte) string {
	const maxPreview = 512
	preview := strings.TrimSpace(string(data))
	preview = strings.ReplaceAll(preview, "\n", " ")
	preview = strings.ReplaceAll(preview, "\t", " ")
	if len(preview) > maxPreview {
		preview = preview[:maxPreview] + "... (truncated)"
	}
	return preview
}
