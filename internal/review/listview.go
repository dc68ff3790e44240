package review

import (
	"context"
	"errors"
	"sync"

	"driverreview/internal/models"
)

const DefaultPageSize = 10

// ErrStaleResponse is returned by Load when a newer load was issued before
// this one finished; its result has been discarded.
var ErrStaleResponse = errors.New("stale drivers response discarded")

type Lister interface {
	ListDrivers(ctx context.Context, page int) (*models.DriversPage, error)
}

type Status int

const (
	StatusLoading Status = iota
	StatusError
	StatusEmpty
	StatusReady
)

// ListView holds one operator's paginated view of the applicants.
type ListView struct {
	mu       sync.Mutex
	api      Lister
	pageSize int

	page    int
	seq     uint64
	loading bool
	loaded  bool
	err     error
	data    *models.DriversPage
	// page that data belongs to
	loadedPage int

	selected   *models.Driver
	dialogOpen bool
}

func NewListView(api Lister, pageSize int) *ListView {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &ListView{
		api:      api,
		pageSize: pageSize,
		page:     1,
	}
}

func (v *ListView) Page() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.page
}

// SetPage jumps to page n, floored at 1. It reports whether the page changed.
func (v *ListView) SetPage(n int) bool {
	if n < 1 {
		n = 1
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if n == v.page {
		return false
	}
	v.page = n
	return true
}

// Load fetches the current page. Only the most recently issued load may
// update the view.
func (v *ListView) Load(ctx context.Context) error {
	v.mu.Lock()
	v.seq++
	seq := v.seq
	page := v.page
	v.loading = true
	v.mu.Unlock()

	data, err := v.api.ListDrivers(ctx, page)

	v.mu.Lock()
	defer v.mu.Unlock()

	if seq != v.seq {
		return ErrStaleResponse
	}

	v.loading = false
	v.loaded = true
	if err != nil {
		v.err = err
		v.data = nil
		v.loadedPage = 0
		return err
	}
	v.err = nil
	v.data = data
	v.loadedPage = page
	return nil
}

// EnsureLoaded loads the current page unless the view already holds a
// successful result for it.
func (v *ListView) EnsureLoaded(ctx context.Context) error {
	v.mu.Lock()
	fresh := !v.loading && v.err == nil && v.data != nil && v.loadedPage == v.page
	v.mu.Unlock()
	if fresh {
		return nil
	}
	return v.Load(ctx)
}

// Refresh refetches the current page without changing it.
func (v *ListView) Refresh(ctx context.Context) error {
	return v.Load(ctx)
}

func (v *ListView) CanPrevious() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.canPreviousLocked()
}

func (v *ListView) CanNext() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.canNextLocked()
}

func (v *ListView) canPreviousLocked() bool {
	return !v.loading && v.data.HasPrevious()
}

func (v *ListView) canNextLocked() bool {
	return !v.loading && v.data.HasNext()
}

// Previous moves one page back, never below 1. It is a no-op while disabled.
func (v *ListView) Previous() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.canPreviousLocked() {
		return false
	}
	if v.page > 1 {
		v.page--
	}
	return true
}

// Next moves one page forward. It is a no-op while disabled.
func (v *ListView) Next() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.canNextLocked() {
		return false
	}
	v.page++
	return true
}

// Select opens the review dialog for a driver on the current page.
func (v *ListView) Select(id int64) (*models.Driver, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()

	d, ok := v.data.Find(id)
	if !ok {
		return nil, false
	}
	v.selected = d
	v.dialogOpen = true
	return d, true
}

func (v *ListView) CloseDialog() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.dialogOpen = false
}

func (v *ListView) Selected() (*models.Driver, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.selected, v.dialogOpen && v.selected != nil
}

// Snapshot is an immutable copy of the view for rendering.
type Snapshot struct {
	Page        int
	PageSize    int
	Status      Status
	Err         error
	Drivers     []models.Driver
	Count       int
	From        int
	To          int
	TotalPages  int
	CanPrevious bool
	CanNext     bool
	Loading     bool
	Selected    *models.Driver
	DialogOpen  bool
}

func (v *ListView) Snapshot() Snapshot {
	v.mu.Lock()
	defer v.mu.Unlock()

	s := Snapshot{
		Page:        v.page,
		PageSize:    v.pageSize,
		Err:         v.err,
		CanPrevious: v.canPreviousLocked(),
		CanNext:     v.canNextLocked(),
		Loading:     v.loading,
		Selected:    v.selected,
		DialogOpen:  v.dialogOpen && v.selected != nil,
	}

	switch {
	case v.loading || (!v.loaded && v.err == nil):
		s.Status = StatusLoading
	case v.err != nil:
		s.Status = StatusError
	case v.data == nil || len(v.data.Results) == 0:
		s.Status = StatusEmpty
	default:
		s.Status = StatusReady
	}

	if v.data != nil {
		s.Drivers = append([]models.Driver(nil), v.data.Results...)
		s.Count = v.data.Count
		s.From, s.To = PageRange(v.page, v.pageSize, v.data.Count)
		s.TotalPages = TotalPages(v.data.Count, v.pageSize)
	}

	return s
}

// PageRange returns the 1-based "showing from-to" bounds for a page.
func PageRange(page, pageSize, count int) (from, to int) {
	from = (page-1)*pageSize + 1
	to = page * pageSize
	if count < to {
		to = count
	}
	return from, to
}

func TotalPages(count, pageSize int) int {
	if pageSize <= 0 || count <= 0 {
		return 0
	}
	return (count + pageSize - 1) / pageSize
}
