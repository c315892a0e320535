// Package memory implements storage.Backend by keeping the latest
// snapshot in a process-local byte slice, optionally mirroring each
// write to a file on disk.
package memory

import (
	"bytes"
	"compress/gzip"
	"os"
	"path/filepath"
	"sync"

	"github.com/OCAP2/extension/v5/internal/config"
)

// Backend stores the latest snapshot in memory and, when an output
// directory is configured, exports it to disk on every write.
type Backend struct {
	cfg config.MemoryConfig

	mu       sync.RWMutex
	snapshot []byte
	hasData  bool
}

// New creates a new memory backend.
func New(cfg config.MemoryConfig) *Backend {
	return &Backend{cfg: cfg}
}

// Init initializes the backend, creating the output directory if
// file export is configured.
func (b *Backend) Init() error {
	if b.cfg.OutputDir == "" {
		return nil
	}
	return os.MkdirAll(b.cfg.OutputDir, 0o755)
}

// Close is a no-op; there is nothing to flush beyond what WriteSnapshot
// already wrote.
func (b *Backend) Close() error {
	return nil
}

// WriteSnapshot stores data as the latest snapshot and, if an output
// directory is configured, writes it to latest.snapshot there as well
// (latest.snapshot.gz when CompressOutput is set).
func (b *Backend) WriteSnapshot(data []byte) error {
	b.mu.Lock()
	b.snapshot = append([]byte(nil), data...)
	b.hasData = true
	b.mu.Unlock()

	if b.cfg.OutputDir == "" {
		return nil
	}
	return b.exportToFile(data)
}

// ReadSnapshot returns the most recently stored snapshot.
func (b *Backend) ReadSnapshot() ([]byte, bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.hasData {
		return nil, false, nil
	}
	return append([]byte(nil), b.snapshot...), true, nil
}

// exportToFile writes data to a fixed "latest.snapshot" file in the
// configured output directory, overwriting whatever was there before.
func (b *Backend) exportToFile(data []byte) error {
	path := filepath.Join(b.cfg.OutputDir, "latest.snapshot")
	if !b.cfg.CompressOutput {
		return os.WriteFile(path, data, 0o644)
	}

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write(data); err != nil {
		return err
	}
	if err := gz.Close(); err != nil {
		return err
	}
	return os.WriteFile(path+".gz", buf.Bytes(), 0o644)
}
