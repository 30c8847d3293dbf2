// Package aphorium wires the quote deduplication and bilingual linking
// services from a configuration.
package aphorium

import (
	"context"
	"errors"
	"time"

	"github.com/emrgen/aphorium/internal/compress"
	"github.com/emrgen/aphorium/internal/config"
	"github.com/emrgen/aphorium/internal/job"
	"github.com/emrgen/aphorium/internal/jobs"
	"github.com/emrgen/aphorium/internal/lock"
	"github.com/emrgen/aphorium/internal/queue"
	"github.com/emrgen/aphorium/internal/service"
	"github.com/emrgen/aphorium/internal/similarity"
	"github.com/emrgen/aphorium/internal/store"
	"github.com/emrgen/aphorium/internal/translate"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// passTimeout bounds one scheduled dedup or link pass.
const passTimeout = time.Hour

type Engine struct {
	Config    *config.Config
	Store     store.Store
	Locker    lock.Locker
	Publisher queue.Publisher
	Merger    *service.Merger
	Linker    *service.Linker
	Dedup     *service.Deduplicator
	Reporter  *service.Reporter

	db      *gorm.DB
	closers []func() error
}

type Option func(*options)

type options struct {
	db       *gorm.DB
	provider translate.Provider
}

// WithDB uses db instead of opening the configured database. The engine does
// not close it.
func WithDB(db *gorm.DB) Option {
	return func(o *options) {
		o.db = db
	}
}

// WithProvider sets the translation provider used by Materialize.
func WithProvider(provider translate.Provider) Option {
	return func(o *options) {
		o.provider = provider
	}
}

func New(cfg *config.Config, opts ...Option) (*Engine, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	e := &Engine{Config: cfg}

	db := o.db
	if db == nil {
		var err error
		db, err = config.OpenDb(cfg)
		if err != nil {
			return nil, err
		}
		e.closers = append(e.closers, func() error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		})
	}
	e.db = db
	e.Store = store.NewGormStore(db)

	switch cfg.Lock.Driver {
	case config.LockRedis:
		locker := lock.NewRedis(cfg.Lock.Redis)
		if err := locker.Ping(context.Background()); err != nil {
			_ = locker.Close()
			_ = e.Close()
			return nil, err
		}
		e.closers = append(e.closers, locker.Close)
		e.Locker = locker
	default:
		e.Locker = lock.NewLocal()
	}

	switch cfg.Queue.Driver {
	case config.QueueKafka:
		publisher, err := queue.NewKafka(cfg.Queue.Kafka)
		if err != nil {
			_ = e.Close()
			return nil, err
		}
		e.closers = append(e.closers, publisher.Close)
		e.Publisher = publisher
	default:
		e.Publisher = queue.NewNop()
	}

	codec, err := compress.New(cfg.Compression)
	if err != nil {
		_ = e.Close()
		return nil, err
	}

	e.Merger = service.NewMerger(e.Store, e.Locker, codec, e.Publisher)
	e.Linker = service.NewLinker(cfg.Linker, e.Store, e.Locker, e.Publisher, o.provider)
	e.Dedup = service.NewDeduplicator(e.Store, similarity.NewScorer(cfg.Similarity), e.Merger)
	e.Reporter = service.NewReporter(e.Store)

	return e, nil
}

func (e *Engine) Migrate() error {
	return e.Store.Migrate()
}

// Scheduler returns an executor running the dedup, link and purge passes on
// their configured schedules. The caller starts and stops it.
func (e *Engine) Scheduler() *jobs.TaskExecutor {
	return jobs.NewTaskExecutor(
		jobs.NewDedupTask(e.Config.Schedule.Dedup, e.Dedup, e.Config.Languages, passTimeout),
		jobs.NewLinkTask(e.Config.Schedule.Link, e.Linker, passTimeout),
		job.NewTombstoneCleaner(e.Config.Schedule.Purge, e.Store, e.Config.Schedule.TombstoneRetention),
	)
}

// Close releases the connections opened by New, in reverse order.
func (e *Engine) Close() error {
	var errs []error
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	e.closers = nil

	if len(errs) > 0 {
		logrus.Errorf("failed to close engine: %v", errs)
	}
	return errors.Join(errs...)
}
