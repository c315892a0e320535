package main

import (
	"path/filepath"

	"github.com/OCAP2/extension/v5/internal/api"
	"github.com/OCAP2/extension/v5/internal/config"
)

// archiveSession uploads the memory backend's latest snapshot file to
// the configured companion visualizer, if both are in play. Postgres
// and SQLite backends keep their own durable copy already and have
// nothing single-file to upload; api.serverUrl left empty disables the
// upload entirely, same as the upload Client's other callers.
func archiveSession() {
	if apiClient == nil || workerManager == nil {
		return
	}
	serverURL := config.GetString("api.serverUrl")
	if serverURL == "" {
		return
	}

	storageCfg := config.GetStorageConfig()
	if storageCfg.Type != "memory" || storageCfg.Memory.OutputDir == "" {
		return
	}

	path := filepath.Join(storageCfg.Memory.OutputDir, "latest.snapshot")
	if storageCfg.Memory.CompressOutput {
		path += ".gz"
	}

	if err := apiClient.Healthcheck(); err != nil {
		Logger.Warn("archive upload skipped, companion visualizer unreachable", "error", err)
		return
	}

	p := workerManager.Plugin()
	if p == nil {
		return
	}
	session := workerManager.Session()

	// SessionStart isn't tracked by mission.Context (spec §4.5's Plugin
	// and §6's API surface have no notion of it); 0 marks "from session
	// creation" rather than a real simulated instant.
	meta := api.UploadMetadata{
		SunIndex:     session.SunIndex(),
		SessionStart: 0,
		SessionEnd:   float64(session.CurrentTime()),
		VesselCount:  p.VesselCount(),
		Tag:          ExtensionName + "-" + SessionStartTime.Format("20060102_150405"),
	}

	if err := apiClient.Upload(path, meta); err != nil {
		Logger.Warn("failed to upload session archive", "error", err, "path", path)
		return
	}
	Logger.Info("session archive uploaded", "path", path)
}
