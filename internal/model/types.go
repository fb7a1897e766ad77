package model

// UserID identifies a chat user (Telegram chat ID).
type UserID int64

// CourseQuery holds the normalized arguments used to locate a course
// resource in the catalog. Department is upper-case; CourseNumber and
// CRN are validated decimal strings. Immutable once built.
type CourseQuery struct {
	Department   string `json:"department"`
	CourseNumber string `json:"course_number,omitempty"`
	CRN          string `json:"crn,omitempty"`
}

// WatchEntry is one watched CRN and the users waiting on it. Watchers
// must be non-empty while the entry exists; the title is captured at
// creation time so it stays usable even if later fetches fail.
type WatchEntry struct {
	CRN      string      `json:"crn"`
	Title    string      `json:"title"`
	Watchers []UserID    `json:"watchers"`
	Query    CourseQuery `json:"query"`
}

// HasWatcher reports whether the user is in the entry's watcher list.
func (e WatchEntry) HasWatcher(u UserID) bool {
	for _, w := range e.Watchers {
		if w == u {
			return true
		}
	}
	return false
}

// Clone returns a copy of the entry with its own watcher slice.
func (e WatchEntry) Clone() WatchEntry {
	c := e
	c.Watchers = append([]UserID(nil), e.Watchers...)
	return c
}

// WatchList is the persisted watch-store shape, keyed by CRN.
type WatchList map[string]WatchEntry
