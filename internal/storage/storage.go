package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"coursewatch/internal/model"
)

// FileStore persists the watch list as a JSON file. Writes go through
// a temp file and rename so a crash never leaves a half-written store.
type FileStore struct {
	path string
	mu   sync.Mutex
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads the watch list from disk. A missing file yields an empty
// list. Entries with an empty watcher list violate the store invariant
// and are dropped.
func (s *FileStore) Load() (model.WatchList, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return model.WatchList{}, nil
		}
		return model.WatchList{}, fmt.Errorf("open %s: %w", s.path, err)
	}
	defer f.Close()
	var wl model.WatchList
	if err := json.NewDecoder(f).Decode(&wl); err != nil {
		return model.WatchList{}, fmt.Errorf("decode %s: %w", s.path, err)
	}
	for crn, entry := range wl {
		if len(entry.Watchers) == 0 {
			delete(wl, crn)
		}
	}
	return wl, nil
}

// Save atomically writes the watch list to disk.
func (s *FileStore) Save(wl model.WatchList) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tmp := s.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create %s: %w", tmp, err)
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(wl); err != nil {
		f.Close()
		return fmt.Errorf("encode watch list: %w", err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}
