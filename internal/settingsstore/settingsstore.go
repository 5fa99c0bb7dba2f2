// Package settingsstore persists the user-editable naming templates as
// a JSON file, written atomically via a temp-file-then-rename swap so
// readers never observe a partial write (§4.8).
package settingsstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"reelforge/internal/entity"
	"reelforge/internal/errs"
)

// document is the on-disk shape. Only namingTemplates is defined today,
// but the wrapper leaves room for future top-level settings keys.
type document struct {
	NamingTemplates *entity.NamingTemplates `json:"namingTemplates,omitempty"`
}

// Store reads and writes the settings file at path.
type Store struct {
	path string
	mu   sync.Mutex
}

// New returns a Store backed by the JSON file at path.
func New(path string) *Store {
	return &Store{path: path}
}

// Get returns the current naming templates, falling back to defaults
// when the file is missing, and filling any key absent from a present
// file with its default value.
func (s *Store) Get() (entity.NamingTemplates, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return entity.DefaultNamingTemplates(), nil
	}

	if err != nil {
		return entity.NamingTemplates{}, fmt.Errorf("%w: %w", errs.ErrSettingsIO, err)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return entity.NamingTemplates{}, fmt.Errorf("%w: %w", errs.ErrSettingsIO, err)
	}

	if doc.NamingTemplates == nil {
		return entity.DefaultNamingTemplates(), nil
	}

	return fillDefaults(*doc.NamingTemplates), nil
}

// Set persists templates to disk atomically.
func (s *Store) Set(templates entity.NamingTemplates) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(document{NamingTemplates: &templates}, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: %w", errs.ErrSettingsIO, err)
	}

	dir := filepath.Dir(s.path)

	tmpFile, err := os.CreateTemp(dir, ".settings-*.tmp")
	if err != nil {
		return fmt.Errorf("%w: %w", errs.ErrSettingsIO, err)
	}

	tmpPath := tmpFile.Name()

	defer func() {
		tmpFile.Close()
		os.Remove(tmpPath)
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("%w: %w", errs.ErrSettingsIO, err)
	}

	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("%w: %w", errs.ErrSettingsIO, err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("%w: %w", errs.ErrSettingsIO, err)
	}

	return nil
}

// fillDefaults replaces any empty template string with its built-in
// default, so a settings file missing a key never yields an empty
// template.
func fillDefaults(t entity.NamingTemplates) entity.NamingTemplates {
	def := entity.DefaultNamingTemplates()

	if t.Single.Video == "" {
		t.Single.Video = def.Single.Video
	}

	if t.Single.Audio == "" {
		t.Single.Audio = def.Single.Audio
	}

	if t.Playlist.Video == "" {
		t.Playlist.Video = def.Playlist.Video
	}

	if t.Playlist.Audio == "" {
		t.Playlist.Audio = def.Playlist.Audio
	}

	return t
}
