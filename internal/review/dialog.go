package review

import (
	"context"
	"errors"
	"sync"
	"time"

	"driverreview/internal/models"
)

type Mutator interface {
	Approve(ctx context.Context, telegramID int64) error
	Reject(ctx context.Context, telegramID int64, reasons []string) error
}

// SuccessFunc is how the dialog tells its parent a decision went through.
type SuccessFunc func(ctx context.Context, decision models.Decision)

// Dialog is the review panel for a single applicant.
type Dialog struct {
	mu         sync.Mutex
	api        Mutator
	guard      *InFlight
	onSuccess  SuccessFunc
	driver     *models.Driver
	selection  *Selection
	submitting bool
}

func NewDialog(api Mutator, guard *InFlight, onSuccess SuccessFunc) *Dialog {
	if guard == nil {
		guard = NewInFlight()
	}
	return &Dialog{
		api:       api,
		guard:     guard,
		onSuccess: onSuccess,
		selection: NewSelection(),
	}
}

// Open shows driver with an empty selection.
func (d *Dialog) Open(driver *models.Driver) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.driver = driver
	d.selection = NewSelection()
}

// Close hides the dialog and discards the selection.
func (d *Dialog) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.driver = nil
	d.selection.Clear()
}

func (d *Dialog) Driver() *models.Driver {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.driver
}

func (d *Dialog) IsOpen() bool {
	return d.Driver() != nil
}

func (d *Dialog) Submitting() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.submitting
}

// Toggle flips one catalog field in the selection.
func (d *Dialog) Toggle(key string) (bool, error) {
	if _, ok := Lookup(key); !ok {
		return false, ErrUnknownField
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.driver == nil {
		return false, ErrNoDriver
	}
	return d.selection.Toggle(key), nil
}

func (d *Dialog) Selection() *Selection {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.selection.Clone()
}

// Approve accepts the application. The selection is not consulted.
func (d *Dialog) Approve(ctx context.Context) (Notice, error) {
	driver, err := d.begin()
	if err != nil {
		return d.refusal(err), err
	}

	err = d.send(ctx, driver, func() error {
		return d.api.Approve(ctx, driver.TelegramID)
	})

	d.mu.Lock()
	d.submitting = false
	if err != nil {
		d.mu.Unlock()
		if errors.Is(err, ErrMutationInFlight) {
			return d.refusal(err), err
		}
		return Notice{Kind: NoticeError, Message: msgApproveFailed}, err
	}
	d.driver = nil
	d.mu.Unlock()

	d.succeeded(ctx, driver, true, nil)
	return Notice{Kind: NoticeSuccess, Message: msgApproved}, nil
}

// Reject sends the labels of the selected fields. An empty selection is
// refused locally without contacting the backend.
func (d *Dialog) Reject(ctx context.Context) (Notice, error) {
	d.mu.Lock()
	empty := d.driver != nil && d.selection.Len() == 0
	d.mu.Unlock()
	if empty {
		return Notice{Kind: NoticeValidation, Message: msgSelectionMissing}, ErrEmptySelection
	}

	driver, err := d.begin()
	if err != nil {
		return d.refusal(err), err
	}

	d.mu.Lock()
	reasons := d.selection.Labels()
	d.mu.Unlock()

	err = d.send(ctx, driver, func() error {
		return d.api.Reject(ctx, driver.TelegramID, reasons)
	})

	d.mu.Lock()
	d.submitting = false
	if err != nil {
		d.mu.Unlock()
		if errors.Is(err, ErrMutationInFlight) {
			return d.refusal(err), err
		}
		return Notice{Kind: NoticeError, Message: msgRejectFailed}, err
	}
	d.selection.Clear()
	d.driver = nil
	d.mu.Unlock()

	d.succeeded(ctx, driver, false, reasons)
	return Notice{Kind: NoticeSuccess, Message: msgRejected}, nil
}

func (d *Dialog) begin() (*models.Driver, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.driver == nil {
		return nil, ErrNoDriver
	}
	if d.submitting {
		return nil, ErrMutationInFlight
	}
	d.submitting = true
	return d.driver, nil
}

func (d *Dialog) send(ctx context.Context, driver *models.Driver, call func() error) error {
	if !d.guard.Acquire(driver.TelegramID) {
		return ErrMutationInFlight
	}
	defer d.guard.Release(driver.TelegramID)
	return call()
}

func (d *Dialog) refusal(err error) Notice {
	if errors.Is(err, ErrMutationInFlight) {
		return Notice{Kind: NoticeError, Message: msgInFlight}
	}
	return Notice{Kind: NoticeError, Message: err.Error()}
}

func (d *Dialog) succeeded(ctx context.Context, driver *models.Driver, approved bool, reasons []string) {
	if d.onSuccess == nil {
		return
	}
	d.onSuccess(ctx, models.Decision{
		DriverID:   driver.ID,
		TelegramID: driver.TelegramID,
		FullName:   driver.FullName,
		Approved:   approved,
		Reasons:    reasons,
		DecidedAt:  time.Now().UTC(),
	})
}

// FieldView is one row or tile of the dialog.
type FieldView struct {
	Key      string
	Caption  string
	Value    string
	Kind     FieldKind
	Selected bool
}

type SectionView struct {
	Title  Group
	Images bool
	Fields []FieldView
	Badges []Badge
}

// Sections lays the open driver out by catalog group. Optional fields the
// driver left empty are omitted together with their toggle. The status
// section carries badges only and cannot be flagged.
func (d *Dialog) Sections() []SectionView {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.driver == nil {
		return nil
	}

	sections := make([]SectionView, 0, len(Groups))
	for _, g := range Groups {
		if g == GroupStatus {
			sections = append(sections, SectionView{Title: g, Badges: StatusBadges(d.driver)})
			continue
		}
		section := SectionView{Title: g}
		for _, f := range FieldsIn(g) {
			if !f.Present(d.driver) {
				continue
			}
			section.Images = f.Kind == KindImage
			section.Fields = append(section.Fields, FieldView{
				Key:      f.Key,
				Caption:  f.Caption,
				Value:    f.Value(d.driver),
				Kind:     f.Kind,
				Selected: d.selection.Has(f.Key),
			})
		}
		if len(section.Fields) > 0 {
			sections = append(sections, section)
		}
	}
	return sections
}
