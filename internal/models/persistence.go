package models

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tatianab/potion-shop/internal/logging"
)

// Store loads and saves the world document. Load never fails: a missing or
// unreadable document yields a fresh default one.
type Store interface {
	Load(ctx context.Context) *WorldState
	Save(ctx context.Context, s *WorldState) error
}

// Encode renders the document as indented JSON. Non-ASCII text is written
// as is.
func Encode(s *WorldState) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(s); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode parses a document produced by Encode.
func Decode(data []byte) (*WorldState, error) {
	var s WorldState
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	s.normalize()
	return &s, nil
}

// FileStore keeps the document in a single JSON file.
type FileStore struct {
	path     string
	defaults func() *WorldState
	log      logging.Printer
}

// NewFileStore returns a store backed by path. defaults may be nil, in which
// case DefaultWorldState is used.
func NewFileStore(path string, defaults func() *WorldState, log logging.Printer) *FileStore {
	if defaults == nil {
		defaults = DefaultWorldState
	}
	return &FileStore{path: path, defaults: defaults, log: logging.OrDiscard(log)}
}

// Path returns the backing file.
func (f *FileStore) Path() string { return f.path }

func (f *FileStore) Load(_ context.Context) *WorldState {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			f.log.Printf("state: read %s: %v; starting from default", f.path, err)
		}
		return f.defaults()
	}
	s, err := Decode(data)
	if err != nil {
		f.log.Printf("state: %s is corrupt: %v; starting from default", f.path, err)
		return f.defaults()
	}
	return s
}

// Save replaces the whole file. The document is written to a temporary file
// next to the target and renamed over it.
func (f *FileStore) Save(_ context.Context, s *WorldState) error {
	data, err := Encode(s)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(f.path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), f.path)
}
