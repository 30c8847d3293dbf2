package job

import (
	"context"
	"time"

	"github.com/emrgen/aphorium/internal/store"
	"github.com/sirupsen/logrus"
)

// TombstoneCleaner purges the merge tombstones older than the retention.
type TombstoneCleaner struct {
	store     store.TombstoneStore
	retention time.Duration
	cron      string
	now       func() time.Time
}

// NewTombstoneCleaner creates a new TombstoneCleaner instance.
func NewTombstoneCleaner(interval string, store store.TombstoneStore, retention time.Duration) *TombstoneCleaner {
	return &TombstoneCleaner{
		store:     store,
		retention: retention,
		cron:      interval,
		now:       time.Now,
	}
}

func (c *TombstoneCleaner) Name() string {
	return "purge_tombstones"
}

func (c *TombstoneCleaner) Schedule() string {
	return c.cron
}

// Run deletes the tombstones created before now minus the retention. A zero
// retention keeps tombstones forever.
func (c *TombstoneCleaner) Run(ctx context.Context) error {
	if c.retention <= 0 {
		return nil
	}

	before := c.now().Add(-c.retention)
	logrus.Infof("cleaning up tombstones created before %s", before.Format(time.RFC3339))

	removed, err := c.store.PurgeTombstones(ctx, before)
	if err != nil {
		logrus.Error("error purging tombstones: ", err)
		return err
	}

	logrus.Infof("removed %d tombstones", removed)
	return nil
}
