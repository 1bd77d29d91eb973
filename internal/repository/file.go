package repository

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/set-night/mindchat/internal/domain"
)

// FileKV persists all entries as one JSON object file. Every Set rewrites the
// file atomically.
type FileKV struct {
	mu   sync.Mutex
	path string
	data map[string]string
}

// OpenFileKV loads path if it exists. A missing file is an empty store; an
// unparseable one is renamed to path.corrupt and also starts empty.
func OpenFileKV(path string) (*FileKV, error) {
	kv := &FileKV{path: path, data: make(map[string]string)}

	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return kv, nil
		}
		return nil, fmt.Errorf("read store file: %w", err)
	}
	if len(raw) == 0 {
		return kv, nil
	}
	if err := json.Unmarshal(raw, &kv.data); err != nil {
		kv.data = make(map[string]string)
		serr := &domain.StorageError{Op: "read", Key: path, Err: err}
		backup := path + ".corrupt"
		if rerr := os.Rename(path, backup); rerr != nil {
			slog.Warn("unreadable store file, starting empty", "error", serr, "rename_error", rerr)
		} else {
			slog.Warn("unreadable store file moved aside, starting empty", "error", serr, "backup", backup)
		}
	}
	return kv, nil
}

func (f *FileKV) Get(key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.data[key]
	return v, ok, nil
}

func (f *FileKV) Set(key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	prev, had := f.data[key]
	f.data[key] = value

	raw, err := json.MarshalIndent(f.data, "", "  ")
	if err == nil {
		err = atomicWriteFile(f.path, raw, 0o600)
	}
	if err != nil {
		// keep memory and disk in agreement
		if had {
			f.data[key] = prev
		} else {
			delete(f.data, key)
		}
		return err
	}
	return nil
}

// atomicWriteFile writes to a temp file in the target directory, fsyncs it,
// then renames it over path. Readers see either the old or the new file.
func atomicWriteFile(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create store dir: %w", err)
	}

	f, err := os.CreateTemp(dir, ".tmp-")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmp := f.Name()

	success := false
	defer func() {
		if !success {
			f.Close()
			os.Remove(tmp)
		}
	}()

	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmp, perm); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}

	success = true
	return nil
}
