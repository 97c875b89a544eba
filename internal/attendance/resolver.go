package attendance

import (
	"errors"
	"strings"
	"time"

	"agriflow/internal/model"
)

// SearchDebounce is the quiet period after the last keystroke before a
// farmer search is sent.
const SearchDebounce = 300 * time.Millisecond

var (
	// ErrSearchFailed is reported when a farmer search request fails.
	ErrSearchFailed = errors.New("failed to search farmers")
	// ErrScanInProgress is returned when a second scan is started.
	ErrScanInProgress = errors.New("a QR scan is already in progress")
)

// InputMode is how the resolver currently takes input.
type InputMode int

const (
	InputSearch InputMode = iota
	InputScan
)

// Resolver decides which farmer the attendance record is for, either by
// debounced name search or by QR scan. Every query change bumps seq; only
// results tagged with the latest seq are applied.
type Resolver struct {
	query     string
	seq       int
	searching bool
	results   []model.Farmer
	farmer    *model.Farmer
	mode      InputMode
	err       error
}

// SetQuery records a keystroke. It returns the sequence number to debounce
// on and whether a search should be scheduled; a blank query clears the
// results immediately and schedules nothing.
func (r *Resolver) SetQuery(query string) (int, bool) {
	if r.mode == InputScan {
		return r.seq, false
	}
	r.query = query
	r.seq++
	if r.farmer != nil && query != r.farmer.Names {
		r.farmer = nil
	}
	if strings.TrimSpace(query) == "" {
		r.results = nil
		r.searching = false
		return r.seq, false
	}
	r.searching = true
	return r.seq, true
}

// DebounceDue reports whether the debounce timer for seq should fire a
// request, i.e. no newer keystroke arrived in the meantime.
func (r *Resolver) DebounceDue(seq int) bool {
	return r.mode == InputSearch && r.searching && seq == r.seq
}

// Results applies a search response. Stale responses are dropped and
// false is returned.
func (r *Resolver) Results(seq int, farmers []model.Farmer, err error) bool {
	if seq != r.seq || !r.searching {
		return false
	}
	r.searching = false
	if err != nil {
		r.results = nil
		r.err = errors.Join(ErrSearchFailed, err)
		return true
	}
	r.results = append([]model.Farmer(nil), farmers...)
	r.err = nil
	return true
}

// Select resolves the farmer, shows their name as the query, clears the
// result list and invalidates searches still in flight.
func (r *Resolver) Select(f model.Farmer) {
	r.farmer = &f
	r.query = f.Names
	r.results = nil
	r.searching = false
	r.seq++
	r.err = nil
}

// DismissMatches hides the result list and drops searches in flight,
// keeping the query text.
func (r *Resolver) DismissMatches() {
	r.results = nil
	r.searching = false
	r.seq++
}

// BeginScan switches to scan mode. Only one scan may run at a time.
func (r *Resolver) BeginScan() error {
	if r.mode == InputScan {
		return ErrScanInProgress
	}
	r.mode = InputScan
	r.searching = false
	r.results = nil
	r.seq++
	r.err = nil
	return nil
}

// ScanResolved ends the scan and resolves the farmer exactly as a search
// selection would.
func (r *Resolver) ScanResolved(f model.Farmer) {
	r.mode = InputSearch
	r.Select(f)
}

// ScanFailed ends the scan and returns control to text search.
func (r *Resolver) ScanFailed(err error) {
	r.mode = InputSearch
	r.err = err
}

// CancelScan ends the scan without resolving anyone.
func (r *Resolver) CancelScan() {
	r.mode = InputSearch
}

// Clear forgets the resolved farmer and the query.
func (r *Resolver) Clear() {
	r.farmer = nil
	r.query = ""
	r.results = nil
	r.searching = false
	r.seq++
}

// Query returns the visible query text.
func (r *Resolver) Query() string { return r.query }

// Seq returns the latest search sequence number.
func (r *Resolver) Seq() int { return r.seq }

// Searching reports whether a search is pending or in flight.
func (r *Resolver) Searching() bool { return r.searching }

// Scanning reports whether a QR scan is active.
func (r *Resolver) Scanning() bool { return r.mode == InputScan }

// Mode returns the current input mode.
func (r *Resolver) Mode() InputMode { return r.mode }

// Matches returns the current search results.
func (r *Resolver) Matches() []model.Farmer {
	return append([]model.Farmer(nil), r.results...)
}

// Farmer returns the resolved farmer, if any.
func (r *Resolver) Farmer() (model.Farmer, bool) {
	if r.farmer == nil {
		return model.Farmer{}, false
	}
	return *r.farmer, true
}

// FarmerID returns the resolved farmer id or "".
func (r *Resolver) FarmerID() string {
	if r.farmer == nil {
		return ""
	}
	return r.farmer.ID
}

// Err returns the last search or scan error.
func (r *Resolver) Err() error { return r.err }

// ClearErr dismisses the error.
func (r *Resolver) ClearErr() { r.err = nil }
