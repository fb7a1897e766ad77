package poller

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"coursewatch/internal/catalog"
	"coursewatch/internal/model"
	"coursewatch/internal/notify"
)

// Fetcher is the catalog operation the poller needs.
type Fetcher interface {
	FetchSection(ctx context.Context, q model.CourseQuery) (*catalog.Section, error)
}

// Registry is the watch-list surface the poller drives: a snapshot
// view for each cycle and removal on terminal outcomes.
type Registry interface {
	Entries() []model.WatchEntry
	Remove(crn string) ([]model.UserID, error)
}

// Poller re-checks every watched CRN on a fixed cadence and retires
// watches that reach a terminal outcome (section opened, or section no
// longer listed). Fetches within a cycle are paced by a rate limiter
// to stay under the catalog's rate limits.
type Poller struct {
	registry Registry
	fetcher  Fetcher
	notifier notify.Notifier
	interval time.Duration
	limiter  *rate.Limiter
	logger   *slog.Logger
}

func New(registry Registry, fetcher Fetcher, notifier notify.Notifier, interval, fetchDelay time.Duration, logger *slog.Logger) *Poller {
	return &Poller{
		registry: registry,
		fetcher:  fetcher,
		notifier: notifier,
		interval: interval,
		limiter:  rate.NewLimiter(rate.Every(fetchDelay), 1),
		logger:   logger.With("component", "poller"),
	}
}

// Run drives the polling loop until ctx is cancelled. The first cycle
// starts immediately. Cancellation takes effect between cycles: an
// in-flight cycle, including its notifications, is allowed to finish.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		p.RunCycle(context.WithoutCancel(ctx))
		select {
		case <-ctx.Done():
			p.logger.Info("poller stopped")
			return
		case <-ticker.C:
		}
	}
}

// RunCycle performs one pass over a snapshot of the watch list. No
// single entry's failure aborts the pass.
func (p *Poller) RunCycle(ctx context.Context) {
	entries := p.registry.Entries()
	for i := range entries {
		if err := p.limiter.Wait(ctx); err != nil {
			return
		}
		p.check(ctx, &entries[i])
	}
}

func (p *Poller) check(ctx context.Context, entry *model.WatchEntry) {
	section, err := p.fetcher.FetchSection(ctx, entry.Query)
	if err != nil {
		if catalog.IsNotFound(err) {
			p.logger.Info("watched course no longer listed", "crn", entry.CRN)
			p.retire(ctx, entry, missingText(entry), false)
			return
		}
		// Transient and parse failures: keep the entry, try next cycle.
		p.logger.Warn("course fetch failed", "crn", entry.CRN, "error", err)
		return
	}
	if !section.HasStatus {
		// Absent status is unknown, never open or missing.
		p.logger.Warn("course has no enrollment status", "crn", entry.CRN)
		return
	}
	if !section.Open() {
		return
	}
	p.logger.Info("watched course opened", "crn", entry.CRN, "status", section.Status)
	p.retire(ctx, entry, openedText(entry, section), true)
}

// retire removes the entry and notifies exactly the watchers that were
// attached at removal time.
func (p *Poller) retire(ctx context.Context, entry *model.WatchEntry, text string, urgent bool) {
	watchers, err := p.registry.Remove(entry.CRN)
	if err != nil {
		p.logger.Error("watch removal failed", "crn", entry.CRN, "error", err)
	}
	if len(watchers) == 0 {
		return
	}
	if err := p.notifier.Notify(ctx, watchers, text, urgent); err != nil {
		p.logger.Error("notification failed", "crn", entry.CRN, "error", err)
	}
}

func openedText(entry *model.WatchEntry, section *catalog.Section) string {
	detail := " (No listed restrictions)"
	if section.Restricted() {
		detail = fmt.Sprintf(" (Restriction: %s)", section.Notes)
	}
	return fmt.Sprintf("%s (%s) is now open%s", entry.Title, entry.CRN, detail)
}

func missingText(entry *model.WatchEntry) string {
	return fmt.Sprintf("%s (%s) was not found. It may have been de-listed "+
		"from the courses page. Please check to see if a section was changed. "+
		"(You will be removed from the watch list for this course)",
		entry.Title, entry.CRN)
}
