// Package postgres implements storage.Backend using GORM/PostgreSQL,
// with writes queued and flushed by a background goroutine so that
// WriteSnapshot never blocks the caller on DB latency.
package postgres

import (
	"fmt"
	"time"

	"github.com/OCAP2/extension/v5/internal/database"
	"github.com/OCAP2/extension/v5/internal/queue"
	"github.com/rs/zerolog"

	"gorm.io/gorm"
)

// snapshotRow is the single-row table holding the latest snapshot.
type snapshotRow struct {
	ID        uint `gorm:"primaryKey"`
	Data      []byte
	UpdatedAt time.Time
}

// Config holds configuration for the Postgres storage backend.
type Config struct {
	DSN           string
	FlushInterval time.Duration
}

// Backend implements storage.Backend using GORM/PostgreSQL with a
// queued, asynchronous writer.
type Backend struct {
	db       *gorm.DB
	cfg      Config
	log      zerolog.Logger
	pending  *queue.Queue[[]byte]
	stopChan chan struct{}
	done     chan struct{}
}

// New creates a new Postgres storage backend.
func New(cfg Config, log zerolog.Logger) *Backend {
	return &Backend{
		cfg:     cfg,
		log:     log,
		pending: queue.New[[]byte](),
	}
}

// Init connects to Postgres, migrates the snapshot table, and starts
// the background writer goroutine.
func (b *Backend) Init() error {
	db, err := database.OpenPostgres(b.cfg.DSN)
	if err != nil {
		return fmt.Errorf("failed to connect to postgres: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to access sql interface: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		return fmt.Errorf("failed to validate connection: %w", err)
	}
	sqlDB.SetMaxOpenConns(10)
	b.db = db

	if err := b.db.AutoMigrate(&snapshotRow{}); err != nil {
		return fmt.Errorf("failed to migrate snapshot table: %w", err)
	}

	flushInterval := b.cfg.FlushInterval
	if flushInterval <= 0 {
		flushInterval = time.Second
	}
	b.stopChan = make(chan struct{})
	b.done = make(chan struct{})
	go b.writeLoop(flushInterval)

	return nil
}

// Close stops the writer goroutine after flushing whatever is pending.
func (b *Backend) Close() error {
	if b.stopChan != nil {
		close(b.stopChan)
		<-b.done
	}
	return nil
}

// WriteSnapshot enqueues data for the background writer. Only the most
// recently enqueued snapshot survives a flush — older queued snapshots
// are superseded before they are ever written.
func (b *Backend) WriteSnapshot(data []byte) error {
	b.pending.Push(data)
	return nil
}

// ReadSnapshot reads the single snapshot row directly from the
// database, bypassing the pending queue.
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

func (b *Backend) writeLoop(interval time.Duration) {
	defer close(b.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			b.flush()
			return
		case <-ticker.C:
			b.flush()
		}
	}
}

// flush writes only the latest queued snapshot to the database,
// discarding any earlier ones.
func (b *Backend) flush() {
	items := b.pending.GetAndEmpty()
	if len(items) == 0 {
		return
	}
	latest := items[len(items)-1]

	row := snapshotRow{ID: 1, Data: latest, UpdatedAt: time.Now()}
	if err := b.db.Save(&row).Error; err != nil {
		b.log.Error().Err(err).Msg("postgres: writing snapshot")
	}
}
