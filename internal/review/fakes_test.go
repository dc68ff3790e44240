package review

import (
	"context"
	"errors"
	"sync"

	"driverreview/internal/models"
)

var errBackend = errors.New("backend down")

type fakeAPI struct {
	mu       sync.Mutex
	pages    map[int]*models.DriversPage
	listErr  error
	listed   []int
	approved []int64
	rejected map[int64][]string
	mutErr   error
	block    chan struct{}
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		pages:    make(map[int]*models.DriversPage),
		rejected: make(map[int64][]string),
	}
}

func (f *fakeAPI) ListDrivers(_ context.Context, page int) (*models.DriversPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listed = append(f.listed, page)
	if f.listErr != nil {
		return nil, f.listErr
	}
	if p, ok := f.pages[page]; ok {
		return p, nil
	}
	return &models.DriversPage{}, nil
}

func (f *fakeAPI) Approve(_ context.Context, telegramID int64) error {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.mutErr != nil {
		return f.mutErr
	}
	f.approved = append(f.approved, telegramID)
	return nil
}

func (f *fakeAPI) Reject(_ context.Context, telegramID int64, reasons []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.mutErr != nil {
		return f.mutErr
	}
	f.rejected[telegramID] = reasons
	return nil
}

func (f *fakeAPI) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.approved) + len(f.rejected)
}

func link(s string) *string { return &s }

func driver(id int64) models.Driver {
	return models.Driver{
		ID:          id,
		TelegramID:  id + 1000,
		FullName:    "Driver",
		Username:    "driver",
		PhoneNumber: "+998900000000",
		CarModel:    "Damas",
		Weight:      600,
	}
}

// pageOf builds page n of a backend holding count drivers, ten per page.
func pageOf(n, count int) *models.DriversPage {
	p := &models.DriversPage{Count: count}
	for i := (n-1)*10 + 1; i <= n*10 && i <= count; i++ {
		p.Results = append(p.Results, driver(int64(i)))
	}
	if n > 1 {
		p.Previous = link("prev")
	}
	if n*10 < count {
		p.Next = link("next")
	}
	return p
}
