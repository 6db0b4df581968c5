package logtracker

import (
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/kismetwireless/kismet-core/internal/tracker"
)

// DeviceSnapshotRow is a summarized per-device session record stored as
// point-in-time rollups rather than a live-synced copy of the registry.
type DeviceSnapshotRow struct {
	InternalID   uint64 `gorm:"primaryKey"`
	Phy          uint32 `gorm:"index"`
	MAC          string `gorm:"index"`
	Manufacturer string
	FirstSeen    time.Time
	LastSeen     time.Time `gorm:"index"`
	PacketCount  int64
	ByteCount    int64
	SignalMin    int
	SignalMax    int
	SignalAvg    float64
}

// SQLiteSink is a Driver implementation that writes device-registry
// snapshots into a SQLite table each time WriteSnapshots is called: WAL
// mode, busy_timeout, OnConflict upsert, and a dedicated transaction per
// call. It schedules no writes of its own.
type SQLiteSink struct {
	db *gorm.DB
}

// OpenSQLiteSink opens (and migrates) a SQLite log database at path,
// applying WAL-mode pragmas before any writes happen.
func OpenSQLiteSink(path string) (*SQLiteSink, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("logtracker: open sqlite log %s: %w", path, err)
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA synchronous=NORMAL;",
	} {
		if err := db.Exec(pragma).Error; err != nil {
			return nil, fmt.Errorf("logtracker: apply pragma %q: %w", pragma, err)
		}
	}

	if err := db.AutoMigrate(&DeviceSnapshotRow{}); err != nil {
		return nil, fmt.Errorf("logtracker: migrate device_snapshots: %w", err)
	}

	if err := db.Use(tracing.NewPlugin()); err != nil {
		return nil, fmt.Errorf("logtracker: attach tracing plugin: %w", err)
	}

	return &SQLiteSink{db: db}, nil
}

// ClassName identifies this driver in the log driver registry.
func (s *SQLiteSink) ClassName() string { return "kismetdb" }

// Singleton forbids more than one open kismetdb log at a time.
func (s *SQLiteSink) Singleton() bool { return true }

// Build satisfies Driver; the sink is long-lived so Build just returns
// itself wrapped as a Logfile.
func (s *SQLiteSink) Build(path string) (Logfile, error) {
	return s, nil
}

// WriteSnapshots upserts the given devices as summarized rows in a
// single batched transaction.
func (s *SQLiteSink) WriteSnapshots(devices []tracker.Device) error {
	if len(devices) == 0 {
		return nil
	}
	rows := make([]DeviceSnapshotRow, 0, len(devices))
	for _, d := range devices {
		rows = append(rows, DeviceSnapshotRow{
			InternalID:   d.InternalID,
			Phy:          uint32(d.Key.Phy),
			MAC:          d.Key.MAC,
			Manufacturer: d.Manufacturer,
			FirstSeen:    d.FirstSeen,
			LastSeen:     d.LastSeen,
			PacketCount:  d.PacketCount,
			ByteCount:    d.ByteCount,
			SignalMin:    d.Signal.Min,
			SignalMax:    d.Signal.Max,
			SignalAvg:    float64(d.Signal.Avg),
		})
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{UpdateAll: true}).CreateInBatches(rows, 100).Error
	})
}

// Close releases the underlying SQLite connection.
func (s *SQLiteSink) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
