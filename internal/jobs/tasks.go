package jobs

import (
	"context"
	"time"

	"github.com/emrgen/aphorium/internal/service"
	"github.com/sirupsen/logrus"
)

// DedupTask runs a deduplication pass over the configured languages.
type DedupTask struct {
	dedup     *service.Deduplicator
	languages []string
	cron      string
	timeout   time.Duration
}

func NewDedupTask(interval string, dedup *service.Deduplicator, languages []string, timeout time.Duration) *DedupTask {
	return &DedupTask{
		dedup:     dedup,
		languages: languages,
		cron:      interval,
		timeout:   timeout,
	}
}

func (d *DedupTask) Name() string {
	return "dedup"
}

func (d *DedupTask) Schedule() string {
	return d.cron
}

func (d *DedupTask) Run(ctx context.Context) error {
	ctx, cancel := withTimeout(ctx, d.timeout)
	defer cancel()

	reports, err := d.dedup.Deduplicate(ctx, service.DedupOptions{}, d.languages...)
	for _, report := range reports {
		if report == nil {
			continue
		}
		logrus.WithFields(logrus.Fields{
			"run":      report.RunID,
			"language": report.Language,
			"merged":   report.Merged,
			"removed":  report.Removed,
			"failures": len(report.Failures),
		}).Info("scheduled dedup pass finished")
	}
	return err
}

// LinkTask backfills the existing links, then links every bilingual
// attribution.
type LinkTask struct {
	linker  *service.Linker
	cron    string
	timeout time.Duration
}

func NewLinkTask(interval string, linker *service.Linker, timeout time.Duration) *LinkTask {
	return &LinkTask{
		linker:  linker,
		cron:    interval,
		timeout: timeout,
	}
}

func (l *LinkTask) Name() string {
	return "link"
}

func (l *LinkTask) Schedule() string {
	return l.cron
}

func (l *LinkTask) Run(ctx context.Context) error {
	ctx, cancel := withTimeout(ctx, l.timeout)
	defer cancel()

	backfill, err := l.linker.Backfill(ctx)
	if err != nil {
		return err
	}
	report, err := l.linker.LinkAll(ctx)
	if err != nil {
		return err
	}

	logrus.WithFields(logrus.Fields{
		"run":       report.RunID,
		"regrouped": backfill.Regrouped,
		"authors":   report.Authors,
		"created":   report.Created,
		"failures":  len(backfill.Failures) + len(report.Failures),
	}).Info("scheduled link pass finished")
	return nil
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
