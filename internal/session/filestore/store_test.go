package filestore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	core "ari/internal/assistant/ports"
	"ari/internal/assistant/ports/storage"
)

func TestStore_CreateWritesExclusiveFile(t *testing.T) {
	t.Parallel()

	baseDir := t.TempDir()
	store := New(baseDir)
	ctx := context.Background()

	conv, err := store.Create(ctx, "Notes")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	path := filepath.Join(baseDir, conv.ID+".json")
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected conversation file at %s: %v", path, err)
	}
}

func TestStore_SaveRoundTripsThroughDisk(t *testing.T) {
	t.Parallel()

	baseDir := t.TempDir()
	store := New(baseDir)
	ctx := context.Background()

	conv, err := store.Create(ctx, "Notes")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	conv.Turns = append(conv.Turns, core.NewTurn("turn_1", core.RoleUser, "summarize this", core.ModeSummarize))
	conv.Metadata["source"] = "cli"
	if err := store.Save(ctx, conv); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	// Use a fresh store to ensure data round-trips through disk
	reloaded, err := New(baseDir).Get(ctx, conv.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if len(reloaded.Turns) != 1 || reloaded.Turns[0].Mode != core.ModeSummarize {
		t.Fatalf("expected turn to round-trip, got %+v", reloaded.Turns)
	}
	if reloaded.Metadata["source"] != "cli" {
		t.Fatalf("expected metadata to round-trip, got %+v", reloaded.Metadata)
	}
}

func TestStore_AppendTurnAndSaveArtifact(t *testing.T) {
	t.Parallel()

	baseDir := t.TempDir()
	store := New(baseDir)
	ctx := context.Background()

	conv, err := store.Create(ctx, "")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := store.AppendTurn(ctx, conv.ID, core.NewTurn("turn_1", core.RoleAssistant, "Here's a draft.", core.ModeWrite)); err != nil {
		t.Fatalf("AppendTurn() error = %v", err)
	}
	if err := store.SaveArtifact(ctx, conv.ID, core.Artifact{
		ID:             "art_1",
		ConversationID: conv.ID,
		Kind:           core.ArtifactDraft,
		Title:          "Draft",
		Content:        "Here's a draft.",
		CreatedAt:      time.Now(),
	}); err != nil {
		t.Fatalf("SaveArtifact() error = %v", err)
	}

	got, err := store.Get(ctx, conv.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if len(got.Turns) != 1 || len(got.Artifacts) != 1 {
		t.Fatalf("expected 1 turn and 1 artifact, got %d/%d", len(got.Turns), len(got.Artifacts))
	}
}

func TestStore_GetUnknownIDReturnsNotFound(t *testing.T) {
	t.Parallel()

	store := New(t.TempDir())

	_, err := store.Get(context.Background(), "conv_missing")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_RejectsUnsafeIDs(t *testing.T) {
	t.Parallel()

	store := New(t.TempDir())
	ctx := context.Background()

	if _, err := store.Get(ctx, "../escape"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for traversal ID, got %v", err)
	}
	if err := store.Save(ctx, &storage.Conversation{ID: "../escape"}); err == nil {
		t.Fatal("expected Save to reject traversal ID")
	}
	if err := store.Delete(ctx, "a/b"); err == nil {
		t.Fatal("expected Delete to reject traversal ID")
	}
}

func TestStore_ListOrdersByRecency(t *testing.T) {
	t.Parallel()

	baseDir := t.TempDir()
	store := New(baseDir)
	ctx := context.Background()

	first, err := store.Create(ctx, "")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	second, err := store.Create(ctx, "")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	time.Sleep(5 * time.Millisecond)

	// Touching the first conversation moves it to the front.
	if err := store.AppendTurn(ctx, first.ID, core.NewTurn("turn_1", core.RoleUser, "hi", core.ModeGeneral)); err != nil {
		t.Fatalf("AppendTurn() error = %v", err)
	}

	ids, err := store.List(ctx, 0, 0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(ids) != 2 || ids[0] != first.ID || ids[1] != second.ID {
		t.Fatalf("unexpected order: %v (want [%s %s])", ids, first.ID, second.ID)
	}

	page, err := store.List(ctx, 1, 1)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(page) != 1 || page[0] != second.ID {
		t.Fatalf("unexpected page: %v", page)
	}
}

func TestStore_DeleteIsIdempotent(t *testing.T) {
	t.Parallel()

	store := New(t.TempDir())
	ctx := context.Background()

	conv, err := store.Create(ctx, "")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := store.Delete(ctx, conv.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := store.Delete(ctx, conv.ID); err != nil {
		t.Fatalf("second Delete() error = %v", err)
	}
}

func TestStore_SkipsCorruptFilesInList(t *testing.T) {
	t.Parallel()

	baseDir := t.TempDir()
	store := New(baseDir)
	ctx := context.Background()

	conv, err := store.Create(ctx, "")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := os.WriteFile(filepath.Join(baseDir, "conv_corrupt.json"), []byte("{not json"), 0644); err != nil {
		t.Fatalf("write corrupt file: %v", err)
	}

	ids, err := store.List(ctx, 0, 0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(ids) != 1 || ids[0] != conv.ID {
		t.Fatalf("expected corrupt file skipped, got %v", ids)
	}
}
