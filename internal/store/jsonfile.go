// Package store provides best-effort JSON persistence for the agent's
// durable state, plus a small sqlite archive for engagement metrics.
//
// Persistence policy: a missing, unreadable, or corrupt state file is never
// fatal. Loads fall back to a fresh default and emit a structured
// store_corrupt event so the degradation is observable; writes are
// best-effort and a failed write does not roll back in-memory state.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"

	"murmur/internal/logging"
)

// LoadJSON reads path into out. On a missing file it leaves out untouched
// and returns false. On a read or parse failure it also leaves out untouched,
// returns false, and emits a store_corrupt event so callers proceed with
// whatever default out already holds.
func LoadJSON(path string, out interface{}) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logging.Get(logging.CategoryStore).Event("store_corrupt",
				fmt.Sprintf("unreadable state file, starting fresh: %v", err),
				map[string]interface{}{"path": path})
		}
		return false
	}

	// Decode into a scratch value first. Unmarshal populates as it goes,
	// so a file that fails partway through would otherwise leave out
	// half-filled instead of at its default.
	rv := reflect.ValueOf(out)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return false
	}
	scratch := reflect.New(rv.Type().Elem())
	if err := json.Unmarshal(data, scratch.Interface()); err != nil {
		logging.Get(logging.CategoryStore).Event("store_corrupt",
			fmt.Sprintf("malformed state file, starting fresh: %v", err),
			map[string]interface{}{"path": path, "bytes": len(data)})
		return false
	}
	rv.Elem().Set(scratch.Elem())
	return true
}

// SaveJSON writes v to path atomically (temp file + rename). Errors are
// returned for logging but callers treat them as non-fatal.
func SaveJSON(path string, v interface{}) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write state: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace state file: %w", err)
	}
	return nil
}
