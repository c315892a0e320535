// Package monitor periodically samples the running Plugin's state
// (vessel/celestial/bubble counts, current simulation time, snapshot
// write latency) to a status file and, optionally, a time-series
// Postgres table — the physics-domain equivalent of the teacher's
// server-FPS/entity-buffer status monitor.
package monitor

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/OCAP2/extension/v5/internal/logging"
	"github.com/OCAP2/extension/v5/internal/worker"

	"gorm.io/gorm"
)

// PerformanceSample is one row of the performance time series: a
// snapshot of Plugin/Manager state taken on every monitor tick.
type PerformanceSample struct {
	Time                      time.Time `gorm:"primaryKey"`
	CurrentTime               float64
	SunIndex                  int
	VesselCount               int
	CelestialCount            int
	BubbleVesselCount         int
	IsInitializing            bool
	LastSnapshotWriteDuration float32 // milliseconds
}

// Dependencies holds everything the monitor needs to read and report
// state. DB and IsDatabaseValid may be left nil/unset to disable
// Postgres persistence entirely; the status file and logging still run.
type Dependencies struct {
	LogManager      *logging.SlogManager
	WorkerManager   *worker.Manager
	DB              *gorm.DB
	AddonFolder     string
	IsDatabaseValid func() bool
}

// Service runs the periodic sampling goroutine.
type Service struct {
	deps      Dependencies
	isRunning bool
	mu        sync.RWMutex
	stopChan  chan struct{}
}

// NewService creates a new monitor service.
func NewService(deps Dependencies) *Service {
	return &Service{
		deps:     deps,
		stopChan: make(chan struct{}),
	}
}

// IsRunning returns whether the status monitor is running.
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Sample reads the current Plugin/Manager state into a PerformanceSample.
// Returns the zero sample with IsInitializing true if no Plugin has
// been created yet (no New command dispatched).
func (s *Service) Sample() PerformanceSample {
	p := s.deps.WorkerManager.Plugin()
	if p == nil {
		return PerformanceSample{Time: time.Now(), IsInitializing: true}
	}
	return PerformanceSample{
		Time:                      time.Now(),
		CurrentTime:               float64(p.CurrentTime()),
		SunIndex:                  s.deps.WorkerManager.Session().SunIndex(),
		VesselCount:               p.VesselCount(),
		CelestialCount:            p.CelestialCount(),
		BubbleVesselCount:         p.BubbleVesselCount(),
		IsInitializing:            p.IsInitializing(),
		LastSnapshotWriteDuration: float32(s.deps.WorkerManager.LastSnapshotWriteDuration().Milliseconds()),
	}
}

// ValidateHypertables validates and creates TimescaleDB hypertables for
// the given table names, compressing chunks older than a fixed 14 days.
// Domain-agnostic ambient Postgres infra, unchanged in shape from the
// teacher's version beyond the table/column names it's invoked with.
func (s *Service) ValidateHypertables(tables map[string][]string) error {
	functionName := "validateHypertables"

	all := []any{}
	s.deps.DB.Exec(`SELECT x.* FROM timescaledb_information.hypertables`).Scan(&all)
	for _, row := range all {
		s.deps.LogManager.WriteLog(functionName, fmt.Sprintf(`hypertable row: %v`, row), "DEBUG")
	}

	for table := range tables {
		hypertable := any(nil)
		s.deps.DB.Exec(`SELECT x.* FROM timescaledb_information.hypertables WHERE hypertable_name = ?`, table).Scan(&hypertable)
		if hypertable != nil {
			s.deps.LogManager.WriteLog(functionName, fmt.Sprintf(`Table %s is already configured`, table), "INFO")
			continue
		}

		queryCreateHypertable := fmt.Sprintf(`
				SELECT create_hypertable('%s', 'time', chunk_time_interval => interval '1 day', if_not_exists => true);
			`, table)
		if err := s.deps.DB.Exec(queryCreateHypertable).Error; err != nil {
			s.deps.LogManager.WriteLog(functionName, fmt.Sprintf(`Failed to create hypertable for %s. Err: %s`, table, err), "ERROR")
			return err
		}
		s.deps.LogManager.WriteLog(functionName, fmt.Sprintf(`Created hypertable for %s`, table), "INFO")

		queryCompressHypertable := fmt.Sprintf(`
				ALTER TABLE %s SET (
					timescaledb.compress,
					timescaledb.compress_segmentby = ?);
			`, table)
		if err := s.deps.DB.Exec(queryCompressHypertable, strings.Join(tables[table], ",")).Error; err != nil {
			s.deps.LogManager.WriteLog(functionName, fmt.Sprintf(`Failed to enable compression for %s. Err: %s`, table, err), "ERROR")
			return err
		}
		s.deps.LogManager.WriteLog(functionName, fmt.Sprintf(`Enabled hypertable compression for %s`, table), "INFO")

		queryCompressAfterHypertable := fmt.Sprintf(`
				SELECT add_compression_policy(
					'%s',
					compress_after => interval '14 day');
			`, table)
		if err := s.deps.DB.Exec(queryCompressAfterHypertable).Error; err != nil {
			s.deps.LogManager.WriteLog(functionName, fmt.Sprintf(`Failed to set compress_after for %s. Err: %s`, table, err), "ERROR")
			return err
		}
		s.deps.LogManager.WriteLog(functionName, fmt.Sprintf(`Set compress_after for %s`, table), "INFO")
	}
	return nil
}

// Start starts the status monitor goroutine: every second it writes
// the current PerformanceSample to status.txt in AddonFolder, and to
// Postgres when IsDatabaseValid reports true.
func (s *Service) Start() error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.mu.Unlock()

	go func() {
		defer func() {
			s.mu.Lock()
			s.isRunning = false
			s.mu.Unlock()
		}()

		logger := s.deps.LogManager.Logger()
		logger.Debug("Starting status monitor goroutine", "function", "startStatusMonitor")

		statusFile, err := os.Create(s.deps.AddonFolder + "/status.txt")
		if err != nil {
			logger.Error("Error creating status file", "error", err)
		}
		defer statusFile.Close()

		for {
			select {
			case <-s.stopChan:
				return
			default:
				time.Sleep(1000 * time.Millisecond)

				sample := s.Sample()
				if sample.IsInitializing && sample.VesselCount == 0 && sample.CelestialCount == 0 {
					// No Plugin yet; nothing meaningful to report.
					continue
				}

				statusStr, err := json.MarshalIndent(sample, "", "  ")
				if err != nil {
					statusStr = []byte(fmt.Sprintf(`{"error": "%s"}`, err))
				}

				if statusFile != nil {
					statusFile.Truncate(0)
					statusFile.Seek(0, 0)
					statusFile.Write(statusStr)
				}

				if s.deps.IsDatabaseValid != nil && s.deps.IsDatabaseValid() && s.deps.DB != nil {
					if err := s.deps.DB.Create(&sample).Error; err != nil {
						logger.Error("Error writing performance sample to Postgres", "error", err)
					}
				}
			}
		}
	}()

	return nil
}

// Stop stops the status monitor.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		close(s.stopChan)
	}
}
