package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"git.home.luguber.info/inful/watertracker/internal/counter"
	derrors "git.home.luguber.info/inful/watertracker/internal/errors"
)

// FSStore keeps the namespace as a JSON document <dir>/<namespace>.json.
// Writes go to a temp file that is renamed over the old document.
type FSStore struct {
	mu   sync.Mutex
	path string
}

// NewFSStore creates a filesystem-backed store rooted at dir.
func NewFSStore(dir, namespace string) (*FSStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, derrors.StoreUnavailable("json", err).WithContext("dir", dir)
	}
	return &FSStore{path: filepath.Join(dir, namespace+".json")}, nil
}

// Path returns the document location.
func (fs *FSStore) Path() string { return fs.path }

func (fs *FSStore) Get(_ context.Context) (counter.State, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	data, err := os.ReadFile(fs.path)
	if os.IsNotExist(err) {
		return counter.State{}, nil
	}
	if err != nil {
		return counter.State{}, derrors.StoreFailed("json", "get", err)
	}

	var st counter.State
	if err := json.Unmarshal(data, &st); err != nil {
		return counter.State{}, derrors.StoreFailed("json", "decode", err)
	}
	return st, nil
}

func (fs *FSStore) Set(_ context.Context, st counter.State) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return derrors.StoreFailed("json", "encode", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(fs.path), filepath.Base(fs.path)+".tmp-*")
	if err != nil {
		return derrors.StoreFailed("json", "set", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return derrors.StoreFailed("json", "set", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return derrors.StoreFailed("json", "set", err)
	}
	if err := os.Rename(tmpName, fs.path); err != nil {
		_ = os.Remove(tmpName)
		return derrors.StoreFailed("json", "set", fmt.Errorf("rename: %w", err))
	}
	return nil
}

func (fs *FSStore) Close() error { return nil }
