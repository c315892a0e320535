package storage_test

import (
	"testing"

	"github.com/OCAP2/extension/v5/internal/config"
	"github.com/OCAP2/extension/v5/internal/storage"
	"github.com/OCAP2/extension/v5/internal/storage/memory"
)

// TestMemoryBackendSatisfiesBackend is a compile-time-style guard that
// every concrete backend keeps matching storage.Backend.
func TestMemoryBackendSatisfiesBackend(t *testing.T) {
	var _ storage.Backend = memory.New(config.MemoryConfig{})
}
