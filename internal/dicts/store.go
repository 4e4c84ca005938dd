// Package dicts persists uploaded dictionaries and serves them by name.
package dicts

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/danmuck/fixlens/internal/protocol/schema"
	"github.com/rs/zerolog/log"
)

var (
	ErrInvalidName = errors.New("dicts: invalid dictionary name")
	ErrUnknown     = errors.New("dicts: unknown dictionary")
)

// Info describes a stored dictionary file.
type Info struct {
	Name     string    `json:"name"`
	Format   string    `json:"format"`
	Size     int64     `json:"size"`
	Modified time.Time `json:"modified"`
}

// Store is a directory of dictionary files with a cache of loaded dictionaries.
// Cached dictionaries are never mutated; Save replaces the cache entry.
type Store struct {
	dir   string
	cache map[string]*schema.Dictionary
	mu    sync.RWMutex
}

func NewStore(dir string) *Store {
	return &Store{
		dir:   dir,
		cache: make(map[string]*schema.Dictionary),
	}
}

func (s *Store) Dir() string {
	return s.dir
}

// ValidateName accepts a bare file name with a supported dictionary extension.
func ValidateName(name string) error {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	if _, ok := schema.FormatOf(name); !ok {
		return fmt.Errorf("%w: %q has no .xml, .json, .yaml or .yml extension", ErrInvalidName, name)
	}
	return nil
}

// Save validates data by loading it and then stores it as name.
// Nothing is written under name when validation fails.
func (s *Store) Save(name string, data []byte) (*schema.Dictionary, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, fmt.Errorf("dicts: create dir: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, ".upload-*"+filepath.Ext(name))
	if err != nil {
		return nil, fmt.Errorf("dicts: stage upload: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return nil, fmt.Errorf("dicts: stage upload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("dicts: stage upload: %w", err)
	}

	dict, err := schema.Load(tmpPath)
	if err != nil {
		log.Warn().Str("name", name).Err(err).Msg("dictionary upload rejected")
		return nil, err
	}
	if err := os.Rename(tmpPath, filepath.Join(s.dir, name)); err != nil {
		return nil, fmt.Errorf("dicts: store %s: %w", name, err)
	}

	s.mu.Lock()
	s.cache[name] = dict
	s.mu.Unlock()
	log.Info().Str("name", name).Int("fields", dict.Len()).Msg("dictionary stored")
	return dict, nil
}

// Get returns the dictionary stored as name, loading it on first use.
func (s *Store) Get(name string) (*schema.Dictionary, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	s.mu.RLock()
	dict, ok := s.cache[name]
	s.mu.RUnlock()
	if ok {
		return dict, nil
	}

	dict, err := schema.Load(filepath.Join(s.dir, name))
	if errors.Is(err, schema.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrUnknown, name)
	}
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if cached, ok := s.cache[name]; ok {
		return cached, nil
	}
	s.cache[name] = dict
	return dict, nil
}

// List returns the stored dictionaries sorted by name.
func (s *Store) List() ([]Info, error) {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, os.ErrNotExist) {
		return []Info{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("dicts: list: %w", err)
	}
	out := make([]Info, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || ValidateName(entry.Name()) != nil {
			continue
		}
		fi, err := entry.Info()
		if err != nil {
			continue
		}
		format, _ := schema.FormatOf(entry.Name())
		out = append(out, Info{
			Name:     entry.Name(),
			Format:   string(format),
			Size:     fi.Size(),
			Modified: fi.ModTime(),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Name < out[j].Name
	})
	return out, nil
}

// LoadDefault merges every stored dictionary, in name order, into one.
// Files that fail to load are logged and skipped.
func (s *Store) LoadDefault() (*schema.Dictionary, error) {
	infos, err := s.List()
	if err != nil {
		return nil, err
	}
	merged := schema.New()
	for _, info := range infos {
		dict, err := s.Get(info.Name)
		if err != nil {
			log.Warn().Str("name", info.Name).Err(err).Msg("dictionary load failed, skipping")
			continue
		}
		merged.Merge(dict)
	}
	log.Info().Str("dir", s.dir).Int("files", len(infos)).Int("fields", merged.Len()).Msg("default dictionary loaded")
	return merged, nil
}
