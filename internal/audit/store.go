package audit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/nlstn/odata-resolver/internal/resolver"
)

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("audit: store closed")

// Config controls buffering and which outcomes are recorded.
type Config struct {
	// BufferSize is the capacity of the event queue. Events arriving while
	// the queue is full are dropped and counted.
	BufferSize int
	// BatchSize is the maximum number of records written per insert.
	BatchSize int
	// FlushInterval bounds how long a partial batch waits before it is written.
	FlushInterval time.Duration
	// RecordMisses also records NotFound outcomes.
	RecordMisses bool
	Logger       *slog.Logger
}

func (c *Config) applyDefaults() {
	if c.BufferSize <= 0 {
		c.BufferSize = 1024
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 64
	}
	if c.FlushInterval <= 0 {
		c.FlushInterval = time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Store writes resolution events to a SQL database through gorm.
// It implements resolver.Observer; ObserveResolution never blocks.
type Store struct {
	db      *gorm.DB
	cfg     Config
	events  chan resolver.Event
	flushes chan chan error
	done    chan struct{}
	wg      sync.WaitGroup
	closed  atomic.Bool
	dropped atomic.Int64
	now     func() time.Time
}

var _ resolver.Observer = (*Store)(nil)

// Dialector picks a gorm dialector for dsn. postgres:// and postgresql://
// URLs and key=value DSNs containing "host=" use postgres; everything else
// is treated as a sqlite path.
func Dialector(dsn string) gorm.Dialector {
	lower := strings.ToLower(dsn)
	if strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://") || strings.Contains(lower, "host=") {
		return postgres.Open(dsn)
	}
	return sqlite.Open(dsn)
}

// Open connects to dsn and returns a running store.
func Open(dsn string, cfg Config) (*Store, error) {
	db, err := gorm.Open(Dialector(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("audit: open database: %w", err)
	}
	return New(db, cfg)
}

// New migrates the audit table on db and starts the background writer.
func New(db *gorm.DB, cfg Config) (*Store, error) {
	cfg.applyDefaults()
	if err := db.AutoMigrate(&Record{}); err != nil {
		return nil, fmt.Errorf("audit: migrate: %w", err)
	}

	s := &Store{
		db:      db,
		cfg:     cfg,
		events:  make(chan resolver.Event, cfg.BufferSize),
		flushes: make(chan chan error),
		done:    make(chan struct{}),
		now:     time.Now,
	}
	s.wg.Add(1)
	go s.run()
	return s, nil
}

// DB returns the underlying gorm handle.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// ObserveResolution queues e for writing when it is a failure, or a miss
// with RecordMisses set.
func (s *Store) ObserveResolution(e resolver.Event) {
	if !s.wants(e) || s.closed.Load() {
		return
	}
	select {
	case s.events <- e:
	default:
		if s.dropped.Add(1) == 1 {
			s.cfg.Logger.Warn("audit queue full, dropping events", slog.Int("buffer", s.cfg.BufferSize))
		}
	}
}

func (s *Store) wants(e resolver.Event) bool {
	switch e.Outcome {
	case resolver.OutcomeFailed:
		return true
	case resolver.OutcomeNotFound:
		return s.cfg.RecordMisses
	default:
		return false
	}
}

// Dropped reports how many events were discarded because the queue was full.
func (s *Store) Dropped() int64 {
	return s.dropped.Load()
}

// Flush blocks until every queued event has been written.
func (s *Store) Flush(ctx context.Context) error {
	if s.closed.Load() {
		return ErrClosed
	}
	reply := make(chan error, 1)
	select {
	case s.flushes <- reply:
	case <-s.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting events, writes what is queued and waits for the
// writer to exit or ctx to expire.
func (s *Store) Close(ctx context.Context) error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	close(s.done)

	exited := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(exited)
	}()
	select {
	case <-exited:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Store) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.FlushInterval)
	defer ticker.Stop()

	batch := make([]Record, 0, s.cfg.BatchSize)
	write := func() error {
		if len(batch) == 0 {
			return nil
		}
		err := s.db.CreateInBatches(batch, s.cfg.BatchSize).Error
		if err != nil {
			s.cfg.Logger.Error("audit write failed", slog.Int("records", len(batch)), slog.String("error", err.Error()))
		}
		batch = batch[:0]
		return err
	}
	drain := func() {
		for {
			select {
			case e := <-s.events:
				batch = append(batch, newRecord(e, s.now()))
				if len(batch) >= s.cfg.BatchSize {
					_ = write() //nolint:errcheck
				}
			default:
				return
			}
		}
	}

	for {
		select {
		case e := <-s.events:
			batch = append(batch, newRecord(e, s.now()))
			if len(batch) >= s.cfg.BatchSize {
				_ = write() //nolint:errcheck
			}
		case <-ticker.C:
			_ = write() //nolint:errcheck
		case reply := <-s.flushes:
			drain()
			reply <- write()
		case <-s.done:
			drain()
			_ = write() //nolint:errcheck
			return
		}
	}
}

// Recent returns up to limit records, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Record, error) {
	return s.Page(ctx, limit, time.Time{}, "")
}

// Page returns up to limit records that sort after the record identified by
// (createdAt, id), newest first. A zero createdAt starts at the newest
// record.
func (s *Store) Page(ctx context.Context, limit int, createdAt time.Time, id string) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}
	q := s.db.WithContext(ctx).Order("created_at DESC, id DESC").Limit(limit)
	if !createdAt.IsZero() {
		t := createdAt.UTC()
		q = q.Where("created_at < ? OR (created_at = ? AND id < ?)", t, t, id)
	}
	var out []Record
	err := q.Find(&out).Error
	return out, err
}

// Summary groups recorded outcomes by element, outcome and error kind.
func (s *Store) Summary(ctx context.Context) ([]Count, error) {
	var out []Count
	err := s.db.WithContext(ctx).Model(&Record{}).
		Select("element, outcome, error_kind, COUNT(*) AS total").
		Group("element, outcome, error_kind").
		Order("total DESC, element, outcome, error_kind").
		Scan(&out).Error
	return out, err
}

// Prune deletes records created before cutoff and returns how many were removed.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Where("created_at < ?", cutoff.UTC()).Delete(&Record{})
	return res.RowsAffected, res.Error
}
