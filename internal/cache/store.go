package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/goldyfruit/kube-inventory/internal/inventory"
)

const (
	inventoryFile = "ansible-kube.cache"
	indexFile     = "ansible-kube.index"
)

// IOError reports a failed read or write of a cache artifact.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("cache %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// Store persists the inventory and index artifacts in one directory.
type Store struct {
	InventoryPath string
	IndexPath     string

	now func() time.Time
}

// NewStore returns a store rooted at dir. A non-empty scope (for example a
// label selector) gets its own pair of artifacts.
func NewStore(dir, scope string) *Store {
	inv, idx := inventoryFile, indexFile
	if scope != "" {
		sum := sha256.Sum256([]byte(scope))
		suffix := hex.EncodeToString(sum[:4])
		inv = fmt.Sprintf("ansible-kube-%s.cache", suffix)
		idx = fmt.Sprintf("ansible-kube-%s.index", suffix)
	}
	return &Store{
		InventoryPath: filepath.Join(dir, inv),
		IndexPath:     filepath.Join(dir, idx),
		now:           time.Now,
	}
}

// IsFresh reports whether the inventory is at most maxAge old and the
// index exists next to it. An age of exactly maxAge is still fresh.
func (s *Store) IsFresh(maxAge time.Duration) (bool, error) {
	info, err := os.Stat(s.InventoryPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, &IOError{Op: "stat", Path: s.InventoryPath, Err: err}
	}
	if s.now().Sub(info.ModTime()) > maxAge {
		return false, nil
	}
	if _, err := os.Stat(s.IndexPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, &IOError{Op: "stat", Path: s.IndexPath, Err: err}
	}
	return true, nil
}

// Save replaces both artifacts. The index goes first so a fresh inventory
// is never paired with a missing index.
func (s *Store) Save(inv inventory.Inventory, index inventory.Index) error {
	indexData, err := Encode(index)
	if err != nil {
		return &IOError{Op: "encode", Path: s.IndexPath, Err: err}
	}
	invData, err := Encode(inv)
	if err != nil {
		return &IOError{Op: "encode", Path: s.InventoryPath, Err: err}
	}
	if err := writeAtomic(s.IndexPath, indexData); err != nil {
		return err
	}
	return writeAtomic(s.InventoryPath, invData)
}

// LoadInventoryText returns the inventory artifact as stored.
func (s *Store) LoadInventoryText() ([]byte, error) {
	data, err := os.ReadFile(s.InventoryPath)
	if err != nil {
		return nil, &IOError{Op: "read", Path: s.InventoryPath, Err: err}
	}
	return data, nil
}

func (s *Store) LoadIndex() (inventory.Index, error) {
	data, err := os.ReadFile(s.IndexPath)
	if err != nil {
		return nil, &IOError{Op: "read", Path: s.IndexPath, Err: err}
	}
	index := inventory.Index{}
	if err := json.Unmarshal(data, &index); err != nil {
		return nil, &IOError{Op: "decode", Path: s.IndexPath, Err: err}
	}
	return index, nil
}

// Encode renders a value the way artifacts are stored: sorted keys,
// two-space indent, trailing newline.
func Encode(value any) ([]byte, error) {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return &IOError{Op: "mkdir", Path: dir, Err: err}
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return &IOError{Op: "write", Path: path, Err: err}
	}
	tmpName := tmp.Name()
	cleanup := func(err error) error {
		tmp.Close()
		os.Remove(tmpName)
		return &IOError{Op: "write", Path: path, Err: err}
	}
	if _, err := tmp.Write(data); err != nil {
		return cleanup(err)
	}
	if err := tmp.Sync(); err != nil {
		return cleanup(err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return &IOError{Op: "write", Path: path, Err: err}
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return &IOError{Op: "rename", Path: path, Err: err}
	}
	return nil
}
