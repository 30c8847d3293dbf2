package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/emrgen/aphorium/internal/grouping"
	"github.com/emrgen/aphorium/internal/index"
	"github.com/emrgen/aphorium/internal/model"
	"github.com/emrgen/aphorium/internal/similarity"
	"github.com/emrgen/aphorium/internal/store"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

type DedupOptions struct {
	// DryRun finds the duplicate groups without merging them.
	DryRun bool
	RunID  string
}

// GroupFailure is a duplicate group whose merge was rolled back.
type GroupFailure struct {
	IDs    []uint
	Reason string
}

// DedupReport aggregates one pass over one language.
type DedupReport struct {
	RunID    string
	Language string
	DryRun   bool

	Scanned     int
	Skipped     int
	Comparisons int
	Matches     map[similarity.Method]int
	// Excluded counts matching pairs left alone because both quotes belong
	// to a bilingual group.
	Excluded int
	Blocked  int

	Groups          int
	Merged          int
	Noops           int
	Removed         int
	LinksRedirected int
	LinksDropped    int
	GroupsMerged    int
	Failures        []GroupFailure

	// Duplicates holds the groups found, in id order.
	Duplicates []grouping.DuplicateGroup
}

// Deduplicator finds and merges the duplicate quotes of a language.
type Deduplicator struct {
	store  store.Store
	scorer *similarity.Scorer
	merger *Merger
}

func NewDeduplicator(store store.Store, scorer *similarity.Scorer, merger *Merger) *Deduplicator {
	return &Deduplicator{
		store:  store,
		scorer: scorer,
		merger: merger,
	}
}

// Find scores the quotes of one language and returns the duplicate groups
// without touching the store.
func (d *Deduplicator) Find(quotes []*model.Quote, report *DedupReport) []grouping.DuplicateGroup {
	if report.Matches == nil {
		report.Matches = make(map[similarity.Method]int)
	}

	valid := make([]*model.Quote, 0, len(quotes))
	for _, q := range quotes {
		if err := checkInput(q); err != nil {
			logrus.Warnf("skipping quote %d: %v", q.ID, err)
			report.Skipped++
			continue
		}
		valid = append(valid, q)
	}
	report.Scanned = len(valid)

	equivalence := make(map[uint]uint)
	for _, q := range valid {
		if q.HasGroup() {
			equivalence[q.ID] = q.GroupID()
		}
	}
	grouped := func(p index.Pair) bool {
		_, a := equivalence[p.A.ID()]
		_, b := equivalence[p.B.ID()]
		return a && b
	}

	ix := index.Build(valid)

	var matches []grouping.Match
	for _, p := range ix.ExactPairs() {
		matches = append(matches, grouping.Match{A: p.A.ID(), B: p.B.ID(), Score: 1.0, Method: similarity.MethodExact})
	}
	for p := range ix.Candidates() {
		if grouped(p) {
			report.Excluded++
			continue
		}
		report.Comparisons++
		verdict := d.scorer.Compare(p.A.Text, p.B.Text)
		if !verdict.Match {
			continue
		}
		matches = append(matches, grouping.Match{A: p.A.ID(), B: p.B.ID(), Score: verdict.Score, Method: verdict.Method})
	}

	groups, stats := grouping.Group(matches, equivalence)
	for _, m := range matches {
		report.Matches[m.Method]++
	}
	report.Excluded += stats.Excluded
	report.Blocked += stats.Blocked
	report.Groups = len(groups)
	return groups
}

func checkInput(q *model.Quote) error {
	if strings.TrimSpace(q.Text) == "" {
		return ErrEmptyText
	}
	if q.Language == "" {
		return ErrMissingLanguage
	}
	return nil
}

// DeduplicateLanguage runs one pass over a language: every duplicate group is
// merged in its own transaction, and a failed group does not stop the pass.
// The pass stops between groups when ctx is done.
func (d *Deduplicator) DeduplicateLanguage(ctx context.Context, language string, opts DedupOptions) (*DedupReport, error) {
	if language == "" {
		return nil, ErrMissingLanguage
	}
	if opts.RunID == "" {
		opts.RunID = uuid.New().String()
	}

	report := &DedupReport{
		RunID:    opts.RunID,
		Language: language,
		DryRun:   opts.DryRun,
		Matches:  make(map[similarity.Method]int),
	}

	quotes, err := d.store.ListQuotesByLanguage(ctx, language)
	if err != nil {
		return nil, err
	}

	groups := d.Find(quotes, report)
	report.Duplicates = groups
	logrus.WithFields(logrus.Fields{
		"run":         report.RunID,
		"language":    language,
		"scanned":     report.Scanned,
		"comparisons": report.Comparisons,
		"groups":      report.Groups,
	}).Info("found duplicate groups")

	if opts.DryRun {
		return report, nil
	}

	for _, group := range groups {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		result, err := d.merger.Merge(ctx, group.IDs)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return report, err
			}
			logrus.Errorf("failed to merge duplicate group %v: %v", group.IDs, err)
			report.Failures = append(report.Failures, GroupFailure{IDs: group.IDs, Reason: err.Error()})
			continue
		}
		if result.Noop {
			report.Noops++
			continue
		}

		report.Merged++
		report.Removed += len(result.Absorbed)
		report.LinksRedirected += result.LinksRedirected
		report.LinksDropped += result.LinksDropped
		report.GroupsMerged += result.GroupsMerged
	}

	logrus.WithFields(logrus.Fields{
		"run":      report.RunID,
		"language": language,
		"merged":   report.Merged,
		"removed":  report.Removed,
		"failures": len(report.Failures),
	}).Info("deduplicated quotes")

	return report, nil
}

// Deduplicate runs one pass per language in parallel. The passes are
// independent: a failed language does not cancel the others. Reports are
// returned in the order of languages, with a nil report for a language whose
// pass could not start, and the errors of all languages are joined.
func (d *Deduplicator) Deduplicate(ctx context.Context, opts DedupOptions, languages ...string) ([]*DedupReport, error) {
	if opts.RunID == "" {
		opts.RunID = uuid.New().String()
	}

	reports := make([]*DedupReport, len(languages))
	errs := make([]error, len(languages))

	var g errgroup.Group
	for i, language := range languages {
		g.Go(func() error {
			report, err := d.DeduplicateLanguage(ctx, language, opts)
			reports[i] = report
			if err != nil {
				errs[i] = fmt.Errorf("deduplicate %s: %w", language, err)
			}
			return nil
		})
	}
	_ = g.Wait()

	return reports, errors.Join(errs...)
}
