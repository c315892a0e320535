// Package sqlitestorage implements storage.Backend using an in-memory
// SQLite database with periodic disk dumps via VACUUM INTO.
package sqlitestorage

import (
	"fmt"
	"time"

	"github.com/OCAP2/extension/v5/internal/database"
	"github.com/rs/zerolog"

	"gorm.io/gorm"
)

// snapshotRow is the single-row table holding the latest snapshot.
type snapshotRow struct {
	ID        uint `gorm:"primaryKey"`
	Data      []byte
	UpdatedAt time.Time
}

// Config holds configuration for the SQLite storage backend.
type Config struct {
	DumpInterval time.Duration
	DumpPath     string // path for periodic VACUUM INTO dumps
}

// Backend persists snapshots to an in-memory SQLite database, with an
// optional background goroutine that periodically dumps it to disk.
type Backend struct {
	db       *gorm.DB
	cfg      Config
	log      zerolog.Logger
	stopChan chan struct{}
}

// New creates a new SQLite storage backend.
func New(cfg Config, log zerolog.Logger) (*Backend, error) {
	db, err := database.OpenSQLite("")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory SQLite DB: %w", err)
	}

	return &Backend{
		db:       db,
		cfg:      cfg,
		log:      log,
		stopChan: make(chan struct{}),
	}, nil
}

// Init migrates the snapshot table and starts the dump goroutine.
func (b *Backend) Init() error {
	if err := b.db.AutoMigrate(&snapshotRow{}); err != nil {
		return fmt.Errorf("failed to migrate snapshot table: %w", err)
	}

	if b.cfg.DumpPath != "" && b.cfg.DumpInterval > 0 {
		go b.dumpLoop()
	}

	return nil
}

// Close stops the dump goroutine and closes the database connection.
func (b *Backend) Close() error {
	close(b.stopChan)
	sqlDB, err := b.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// WriteSnapshot upserts the single snapshot row.
func (b *Backend) WriteSnapshot(data []byte) error {
	row := snapshotRow{ID: 1, Data: data, UpdatedAt: time.Now()}
	return b.db.Save(&row).Error
}

// ReadSnapshot reads the single snapshot row, if it exists.
func (b *Backend) ReadSnapshot() ([]byte, bool, error) {
	var row snapshotRow
	err := b.db.First(&row, "id = 1").Error
	if err == gorm.ErrRecordNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return row.Data, true, nil
}

// dumpLoop periodically dumps the in-memory SQLite database to disk via
// VACUUM INTO, which produces a point-in-time snapshot without needing
// a pause mechanism.
func (b *Backend) dumpLoop() {
	ticker := time.NewTicker(b.cfg.DumpInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			start := time.Now()
			if err := database.DumpMemoryDBToDisk(b.db, b.cfg.DumpPath, b.log); err != nil {
				b.log.Error().Err(err).Msg("sqlite: dumping snapshot DB to disk")
			} else {
				b.log.Debug().Dur("duration", time.Since(start)).Msg("sqlite: dumped snapshot DB to disk")
			}
		}
	}
}
