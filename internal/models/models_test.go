package models

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func sampleState() *WorldState {
	s := DefaultWorldState()
	s.Player.Gold = 85
	s.Player.DaysPassed = 2
	s.Inventory.Potions["Elixir of Dawn"] = 1
	s.CurrentQuest = Quest{
		Name:       "月光藥水的委託",
		PotionName: "Moonlight Draught",
		Reward:     120,
		Missing:    map[string]int{"Moonpetal": 2},
	}
	s.AppendAudit(AuditEntry{
		Task:       "Quest_Generation",
		UserPrompt: "My reputation is Apprentice.",
		LLMOutput:  json.RawMessage(`{"name":"月光藥水的委託","potion_name":"Moonlight Draught","reward":120}`),
		Day:        2,
	})
	return s
}

func TestEncodeRoundTripIsStable(t *testing.T) {
	first, err := Encode(sampleState())
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	decoded, err := Decode(first)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	second, err := Encode(decoded)
	if err != nil {
		t.Fatalf("Encode again: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Fatalf("round trip changed the document:\n%s\n---\n%s", first, second)
	}
	if !strings.Contains(string(first), "月光藥水的委託") {
		t.Errorf("Expected non-ASCII text to be written verbatim")
	}
	if !strings.Contains(string(first), "\n    \"player\"") {
		t.Errorf("Expected indented output, got:\n%s", first)
	}
}

func TestEmptyQuestEncodesAsEmptyObject(t *testing.T) {
	data, err := Encode(DefaultWorldState())
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !strings.Contains(string(data), `"current_quest": {}`) {
		t.Errorf("Expected empty current_quest object, got:\n%s", data)
	}
	if !strings.Contains(string(data), `"game_log": []`) {
		t.Errorf("Expected empty game_log array, got:\n%s", data)
	}
}

func TestDecodeFillsNilMaps(t *testing.T) {
	s, err := Decode([]byte(`{"player":{"gold":3}}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if s.Inventory.Ingredients == nil || s.Inventory.Potions == nil || s.GameLog == nil {
		t.Fatalf("Expected non-nil collections, got %+v", s)
	}
}

func TestCloneIsDeep(t *testing.T) {
	orig := sampleState()
	c := orig.Clone()
	c.Inventory.Ingredients["Water"] = 0
	c.CurrentQuest.Missing["Moonpetal"] = 9
	c.GameLog[0].LLMOutput[0] = '['
	c.AppendAudit(AuditEntry{Task: "x"})

	if orig.Inventory.Ingredients["Water"] != 10 {
		t.Errorf("clone shares ingredients")
	}
	if orig.CurrentQuest.Missing["Moonpetal"] != 2 {
		t.Errorf("clone shares missing items")
	}
	if orig.GameLog[0].LLMOutput[0] != '{' {
		t.Errorf("clone shares audit payload")
	}
	if len(orig.GameLog) != 1 {
		t.Errorf("clone shares game log, len = %d", len(orig.GameLog))
	}
}

func TestFileStoreLoadMissingReturnsDefault(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "state", "save.json"), nil, nil)
	s := store.Load(context.Background())
	if s.Player.Gold != 100 || s.Player.ReputationLevel != "Apprentice" {
		t.Fatalf("Expected default player, got %+v", s.Player)
	}
	if s.Inventory.Ingredients["Basic Herb"] != 5 {
		t.Fatalf("Expected default ingredients, got %v", s.Inventory.Ingredients)
	}
}

func TestFileStoreLoadCorruptReturnsDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "save.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	called := false
	store := NewFileStore(path, func() *WorldState {
		called = true
		return NewWorldState(7, "Novice", nil)
	}, nil)

	s := store.Load(context.Background())
	if !called {
		t.Fatal("Expected defaults to be used for a corrupt file")
	}
	if s.Player.Gold != 7 {
		t.Errorf("Expected gold 7, got %d", s.Player.Gold)
	}
}

func TestFileStoreSaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "save.json")
	store := NewFileStore(path, nil, nil)

	want := sampleState()
	if err := store.Save(ctx, want); err != nil {
		t.Fatalf("Save: %v", err)
	}
	first, _ := os.ReadFile(path)

	if err := store.Save(ctx, store.Load(ctx)); err != nil {
		t.Fatalf("Save again: %v", err)
	}
	second, _ := os.ReadFile(path)
	if !bytes.Equal(first, second) {
		t.Fatalf("save(load(save(S))) != save(S)")
	}

	got := store.Load(ctx)
	if got.CurrentQuest.Missing["Moonpetal"] != 2 || got.Player.DaysPassed != 2 {
		t.Errorf("Unexpected loaded state %+v", got)
	}
	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("Expected only the save file in the directory, got %d entries", len(entries))
	}
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := OpenSQLite(filepath.Join(t.TempDir(), "saves.db"), "save_1", nil, nil)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer store.Close()

	if s := store.Load(ctx); s.Player.Gold != 100 || len(s.GameLog) != 0 {
		t.Fatalf("Expected default state from empty db, got %+v", s.Player)
	}

	want := sampleState()
	if err := store.Save(ctx, want); err != nil {
		t.Fatalf("Save: %v", err)
	}
	want.Player.Gold = 12
	if err := store.Save(ctx, want); err != nil {
		t.Fatalf("Save overwrite: %v", err)
	}

	got := store.Load(ctx)
	a, _ := Encode(want)
	b, _ := Encode(got)
	if !bytes.Equal(a, b) {
		t.Fatalf("sqlite round trip mismatch:\n%s\n---\n%s", a, b)
	}
}

func TestOpenStoreSelectsBackend(t *testing.T) {
	dir := t.TempDir()

	s, closeFn, err := OpenStore(filepath.Join(dir, "save.json"), "save_1", false, nil, nil)
	if err != nil {
		t.Fatalf("OpenStore json: %v", err)
	}
	if _, ok := s.(*FileStore); !ok {
		t.Errorf("expected *FileStore, got %T", s)
	}
	if err := closeFn(); err != nil {
		t.Errorf("close: %v", err)
	}

	s, closeFn, err = OpenStore(filepath.Join(dir, "save.db"), "save_1", true, nil, nil)
	if err != nil {
		t.Fatalf("OpenStore sqlite: %v", err)
	}
	if _, ok := s.(*SQLiteStore); !ok {
		t.Errorf("expected *SQLiteStore, got %T", s)
	}
	if err := closeFn(); err != nil {
		t.Errorf("close: %v", err)
	}
}
