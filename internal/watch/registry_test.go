package watch

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coursewatch/internal/model"
)

// memStore keeps the last-saved list in memory and can be told to fail.
type memStore struct {
	saved   model.WatchList
	saves   int
	saveErr error
}

func (s *memStore) Load() (model.WatchList, error) {
	if s.saved == nil {
		return model.WatchList{}, nil
	}
	return s.saved, nil
}

func (s *memStore) Save(wl model.WatchList) error {
	s.saves++
	if s.saveErr != nil {
		return s.saveErr
	}
	copied := model.WatchList{}
	for k, v := range wl {
		copied[k] = v.Clone()
	}
	s.saved = copied
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestRegistry(t *testing.T, limit int) (*Registry, *memStore) {
	t.Helper()
	store := &memStore{}
	r := NewRegistry(store, limit, testLogger())
	require.NoError(t, r.Load())
	return r, store
}

func query(crn string) model.CourseQuery {
	return model.CourseQuery{Department: "CS", CourseNumber: "225", CRN: crn}
}

func TestAddThenToggleRemoves(t *testing.T) {
	r, _ := newTestRegistry(t, 5)
	user := model.UserID(10)

	outcome, err := r.AddOrToggle(user, "30100", "CS 225: Data Structures", false, query("30100"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeAdded, outcome)
	assert.Len(t, r.List(user), 1)

	outcome, err = r.AddOrToggle(user, "30100", "CS 225: Data Structures", false, query("30100"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeRemoved, outcome)
	assert.Empty(t, r.List(user))
	assert.Empty(t, r.Entries(), "last watcher removal must delete the entry")
}

func TestAddOpenCourseRejected(t *testing.T) {
	r, store := newTestRegistry(t, 5)

	outcome, err := r.AddOrToggle(1, "30100", "CS 225", true, query("30100"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeAlreadyOpen, outcome)
	assert.Empty(t, r.Entries())
	assert.Zero(t, store.saves, "rejection must not persist anything")
}

func TestCapacityLimit(t *testing.T) {
	r, _ := newTestRegistry(t, 3)
	user := model.UserID(42)

	for _, crn := range []string{"10", "20", "30"} {
		outcome, err := r.AddOrToggle(user, crn, "title "+crn, false, query(crn))
		require.NoError(t, err)
		require.Equal(t, OutcomeAdded, outcome)
	}

	outcome, err := r.AddOrToggle(user, "40", "title 40", false, query("40"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeCapacityExceeded, outcome)
	assert.Len(t, r.List(user), 3, "rejected add must not mutate state")

	// Toggling one off frees a slot for the previously rejected CRN.
	outcome, err = r.AddOrToggle(user, "10", "title 10", false, query("10"))
	require.NoError(t, err)
	require.Equal(t, OutcomeRemoved, outcome)

	outcome, err = r.AddOrToggle(user, "40", "title 40", false, query("40"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeAdded, outcome)
}

func TestCapacityCountsOnlyOwnWatches(t *testing.T) {
	r, _ := newTestRegistry(t, 1)

	outcome, err := r.AddOrToggle(1, "10", "a", false, query("10"))
	require.NoError(t, err)
	require.Equal(t, OutcomeAdded, outcome)

	// A different user joining the same entry is not limited by the
	// first user's count.
	outcome, err = r.AddOrToggle(2, "10", "a", false, query("10"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeAdded, outcome)

	entries := r.Entries()
	require.Len(t, entries, 1)
	assert.ElementsMatch(t, []model.UserID{1, 2}, entries[0].Watchers)
}

func TestSecondWatcherKeepsCreationTitle(t *testing.T) {
	r, _ := newTestRegistry(t, 5)

	_, err := r.AddOrToggle(1, "10", "original title", false, query("10"))
	require.NoError(t, err)
	_, err = r.AddOrToggle(2, "10", "different title", false, query("10"))
	require.NoError(t, err)

	entries := r.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "original title", entries[0].Title)
}

func TestRemoveReturnsWatchersAndIsIdempotent(t *testing.T) {
	r, _ := newTestRegistry(t, 5)
	_, err := r.AddOrToggle(1, "10", "a", false, query("10"))
	require.NoError(t, err)
	_, err = r.AddOrToggle(2, "10", "a", false, query("10"))
	require.NoError(t, err)

	watchers, err := r.Remove("10")
	require.NoError(t, err)
	assert.ElementsMatch(t, []model.UserID{1, 2}, watchers)
	assert.Empty(t, r.Entries())

	watchers, err = r.Remove("10")
	require.NoError(t, err)
	assert.Empty(t, watchers)
}

func TestEntriesSnapshotIsolation(t *testing.T) {
	r, _ := newTestRegistry(t, 5)
	_, err := r.AddOrToggle(1, "10", "a", false, query("10"))
	require.NoError(t, err)

	snapshot := r.Entries()
	require.Len(t, snapshot, 1)
	snapshot[0].Watchers[0] = 999

	entries := r.Entries()
	assert.Equal(t, model.UserID(1), entries[0].Watchers[0])
}

func TestListIsSortedByCRN(t *testing.T) {
	r, _ := newTestRegistry(t, 5)
	for _, crn := range []string{"30", "10", "20"} {
		_, err := r.AddOrToggle(1, crn, "t"+crn, false, query(crn))
		require.NoError(t, err)
	}
	listed := r.List(1)
	require.Len(t, listed, 3)
	assert.Equal(t, "10", listed[0].CRN)
	assert.Equal(t, "20", listed[1].CRN)
	assert.Equal(t, "30", listed[2].CRN)
}

func TestPersistFailureSurfacedButStateKept(t *testing.T) {
	store := &memStore{saveErr: errors.New("disk full")}
	r := NewRegistry(store, 5, testLogger())
	require.NoError(t, r.Load())

	outcome, err := r.AddOrToggle(1, "10", "a", false, query("10"))
	assert.Equal(t, OutcomeAdded, outcome)
	assert.Error(t, err)
	assert.Len(t, r.List(1), 1, "memory stays the source of truth")
}

func TestLoadRestoresEntries(t *testing.T) {
	store := &memStore{saved: model.WatchList{
		"10": {CRN: "10", Title: "a", Watchers: []model.UserID{5}, Query: query("10")},
	}}
	r := NewRegistry(store, 5, testLogger())
	require.NoError(t, r.Load())
	assert.Len(t, r.List(5), 1)
}
