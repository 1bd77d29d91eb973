package repository

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/set-night/mindchat/internal/config"
)

// Open returns the KV backend for driver at path. Backends holding OS
// resources also implement io.Closer.
func Open(driver, path string) (KV, error) {
	switch driver {
	case config.StoreDriverFile:
		return OpenFileKV(path)
	case config.StoreDriverSQLite:
		return OpenSQLiteKV(path)
	default:
		return nil, fmt.Errorf("open store: unknown driver %q", driver)
	}
}

// Close releases kv if it holds anything.
func Close(kv KV) error {
	if c, ok := kv.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// OpenOrMemory is Open that never fails: when the backend cannot be opened it
// logs the failure and returns a MemoryKV, so the client still starts.
func OpenOrMemory(driver, path string) KV {
	kv, err := Open(driver, path)
	if err != nil {
		slog.Warn("session store unavailable, using memory only", "driver", driver, "path", path, "error", err)
		return NewMemoryKV()
	}
	return kv
}
