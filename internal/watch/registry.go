package watch

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"coursewatch/internal/model"
)

// Store is the persistence collaborator for the registry.
type Store interface {
	Load() (model.WatchList, error)
	Save(model.WatchList) error
}

// Outcome is the result of an add-or-toggle request. These are normal
// results, not errors; each renders as a distinct user-facing message.
type Outcome int

const (
	// OutcomeAdded means the user was added as a watcher.
	OutcomeAdded Outcome = iota
	// OutcomeRemoved means the user was already watching and was
	// toggled off.
	OutcomeRemoved
	// OutcomeAlreadyOpen means the section is open right now, so
	// watching it is meaningless.
	OutcomeAlreadyOpen
	// OutcomeCapacityExceeded means the user hit the watch limit.
	OutcomeCapacityExceeded
)

// Watched is one row of a user's watch listing.
type Watched struct {
	CRN   string
	Title string
}

// Registry owns the watch list: it enforces the per-user capacity
// limit, toggle semantics and the non-empty-watchers invariant, and is
// the only writer of the store. All operations are safe for concurrent
// use.
type Registry struct {
	store  Store
	limit  int
	logger *slog.Logger

	mu      sync.Mutex
	entries model.WatchList
}

func NewRegistry(store Store, limit int, logger *slog.Logger) *Registry {
	return &Registry{
		store:   store,
		limit:   limit,
		logger:  logger.With("component", "watch"),
		entries: model.WatchList{},
	}
}

// Load restores the watch list from the store. Invalid entries were
// already filtered by the store; a load failure leaves the registry
// empty so the process can still run.
func (r *Registry) Load() error {
	wl, err := r.store.Load()
	r.mu.Lock()
	r.entries = wl
	r.mu.Unlock()
	if err != nil {
		return fmt.Errorf("load watch list: %w", err)
	}
	return nil
}

// List returns the user's watches ordered by CRN. Read-only.
func (r *Registry) List(user model.UserID) []Watched {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Watched
	for crn, entry := range r.entries {
		if entry.HasWatcher(user) {
			out = append(out, Watched{CRN: crn, Title: entry.Title})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CRN < out[j].CRN })
	return out
}

// AddOrToggle registers interest in a CRN, or removes it if the user
// is already watching. The open flag comes from the snapshot the
// caller fetched at request time. The returned error reports a
// persistence failure only; the outcome is valid either way.
func (r *Registry) AddOrToggle(user model.UserID, crn, title string, open bool, q model.CourseQuery) (Outcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if open {
		return OutcomeAlreadyOpen, nil
	}

	entry, exists := r.entries[crn]
	if exists && entry.HasWatcher(user) {
		entry.Watchers = withoutWatcher(entry.Watchers, user)
		if len(entry.Watchers) == 0 {
			delete(r.entries, crn)
		} else {
			r.entries[crn] = entry
		}
		return OutcomeRemoved, r.persistLocked()
	}

	if r.countLocked(user) >= r.limit {
		return OutcomeCapacityExceeded, nil
	}

	if exists {
		entry.Watchers = append(entry.Watchers, user)
		r.entries[crn] = entry
	} else {
		r.entries[crn] = model.WatchEntry{
			CRN:      crn,
			Title:    title,
			Watchers: []model.UserID{user},
			Query:    q,
		}
	}
	return OutcomeAdded, r.persistLocked()
}

// Remove deletes the entry for a CRN and returns the watchers that
// were attached, for notification purposes. Removing an absent entry
// is not an error and returns no watchers.
func (r *Registry) Remove(crn string) ([]model.UserID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, exists := r.entries[crn]
	if !exists {
		return nil, nil
	}
	delete(r.entries, crn)
	watchers := append([]model.UserID(nil), entry.Watchers...)
	return watchers, r.persistLocked()
}

// Entries returns a deep-copied snapshot of all watch entries, ordered
// by CRN. Mutations after the call are not observed by the snapshot.
func (r *Registry) Entries() []model.WatchEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.WatchEntry, 0, len(r.entries))
	for _, entry := range r.entries {
		out = append(out, entry.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CRN < out[j].CRN })
	return out
}

// countLocked is the number of entries the user currently watches.
func (r *Registry) countLocked(user model.UserID) int {
	n := 0
	for _, entry := range r.entries {
		if entry.HasWatcher(user) {
			n++
		}
	}
	return n
}

// persistLocked writes through to the store. Memory stays the source
// of truth on failure; the error is surfaced for logging.
func (r *Registry) persistLocked() error {
	if err := r.store.Save(r.entries); err != nil {
		r.logger.Error("watch list save failed", "error", err)
		return fmt.Errorf("save watch list: %w", err)
	}
	return nil
}

func withoutWatcher(watchers []model.UserID, user model.UserID) []model.UserID {
	out := watchers[:0]
	for _, w := range watchers {
		if w != user {
			out = append(out, w)
		}
	}
	return out
}
