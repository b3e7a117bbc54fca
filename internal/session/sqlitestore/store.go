// Package sqlitestore persists conversations in a single SQLite database,
// for deployments where one JSON file per conversation is too loose
// (the server's history API pages by recency).
package sqlitestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	_ "github.com/mattn/go-sqlite3"

	core "ari/internal/assistant/ports"
	"ari/internal/assistant/ports/storage"
	"ari/internal/logging"
	id "ari/internal/utils/id"
)

var conversationIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// Store implements a SQLite-backed conversation store.
type Store struct {
	db     *sql.DB
	logger logging.Logger
}

var _ storage.ConversationStore = (*Store)(nil)

// Open creates or opens the conversation database at dbPath.
func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	store := &Store{
		db:     db,
		logger: logging.NewComponentLogger("ConversationSQLiteStore"),
	}
	if err := store.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS conversations (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL DEFAULT '',
		turns_json TEXT NOT NULL DEFAULT '[]',
		artifacts_json TEXT,
		preferences_json TEXT NOT NULL DEFAULT '{}',
		metadata_json TEXT,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_conversations_updated_at ON conversations(updated_at DESC);
	`
	_, err := s.db.Exec(schema)
	return err
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
	if !isSafeConversationID(conv.ID) {
		return nil, fmt.Errorf("invalid conversation ID")
	}

	if err := s.upsert(ctx, conv); err != nil {
		return nil, err
	}
	return conv, nil
}

func (s *Store) Get(ctx context.Context, convID string) (*storage.Conversation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !isSafeConversationID(convID) {
		return nil, storage.ErrNotFound
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, title, turns_json, artifacts_json, preferences_json, metadata_json, created_at, updated_at
		FROM conversations WHERE id = ?`, convID)

	var (
		conv          storage.Conversation
		turnsJSON     []byte
		artifactsJSON []byte
		prefsJSON     []byte
		metadataJSON  []byte
	)
	err := row.Scan(&conv.ID, &conv.Title, &turnsJSON, &artifactsJSON, &prefsJSON, &metadataJSON,
		&conv.CreatedAt, &conv.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}

	if len(turnsJSON) > 0 {
		if err := json.Unmarshal(turnsJSON, &conv.Turns); err != nil {
			return nil, fmt.Errorf("decode turns: %w", err)
		}
	}
	if len(artifactsJSON) > 0 {
		if err := json.Unmarshal(artifactsJSON, &conv.Artifacts); err != nil {
			return nil, fmt.Errorf("decode artifacts: %w", err)
		}
	}
	if len(prefsJSON) > 0 {
		if err := json.Unmarshal(prefsJSON, &conv.Preferences); err != nil {
			return nil, fmt.Errorf("decode preferences: %w", err)
		}
	}
	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &conv.Metadata); err != nil {
			return nil, fmt.Errorf("decode metadata: %w", err)
		}
	}

	return &conv, nil
}

func (s *Store) Save(ctx context.Context, conv *storage.Conversation) error {
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

	return s.upsert(ctx, conv)
}

func (s *Store) AppendTurn(ctx context.Context, convID string, turn core.ConversationTurn) error {
	conv, err := s.Get(ctx, convID)
	if err != nil {
		return err
	}
	conv.Turns = append(conv.Turns, turn)
	return s.Save(ctx, conv)
}

func (s *Store) SaveArtifact(ctx context.Context, convID string, artifact core.Artifact) error {
	conv, err := s.Get(ctx, convID)
	if err != nil {
		return err
	}
	conv.Artifacts = append(conv.Artifacts, artifact)
	return s.Save(ctx, conv)
}

// List returns conversation IDs ordered by most recently updated.
func (s *Store) List(ctx context.Context, limit, offset int) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = -1 // SQLite treats a negative LIMIT as unbounded
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id FROM conversations
		ORDER BY updated_at DESC, id ASC
		LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	ids := []string{}
	for rows.Next() {
		var convID string
		if err := rows.Scan(&convID); err != nil {
			return nil, err
		}
		ids = append(ids, convID)
	}
	return ids, rows.Err()
}

func (s *Store) Delete(ctx context.Context, convID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !isSafeConversationID(convID) {
		return fmt.Errorf("invalid conversation ID")
	}

	_, err := s.db.ExecContext(ctx, `DELETE FROM conversations WHERE id = ?`, convID)
	return err
}

func (s *Store) upsert(ctx context.Context, conv *storage.Conversation) error {
	turnsJSON, err := json.Marshal(conv.Turns)
	if err != nil {
		return fmt.Errorf("encode turns: %w", err)
	}
	artifactsJSON, err := json.Marshal(conv.Artifacts)
	if err != nil {
		return fmt.Errorf("encode artifacts: %w", err)
	}
	prefsJSON, err := json.Marshal(conv.Preferences)
	if err != nil {
		return fmt.Errorf("encode preferences: %w", err)
	}
	metadataJSON, err := json.Marshal(conv.Metadata)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO conversations (id, title, turns_json, artifacts_json, preferences_json, metadata_json, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			turns_json = excluded.turns_json,
			artifacts_json = excluded.artifacts_json,
			preferences_json = excluded.preferences_json,
			metadata_json = excluded.metadata_json,
			updated_at = excluded.updated_at`,
		conv.ID, conv.Title, string(turnsJSON), string(artifactsJSON), string(prefsJSON), string(metadataJSON),
		conv.CreatedAt, conv.UpdatedAt)
	return err
}

func isSafeConversationID(convID string) bool {
	return convID != "" && conversationIDPattern.MatchString(convID)
}
