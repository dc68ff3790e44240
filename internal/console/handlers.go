package console

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"sync"

	"github.com/gorilla/mux"

	"driverreview/internal/history"
	"driverreview/internal/imagecheck"
	"driverreview/internal/logger"
	"driverreview/internal/models"
	"driverreview/internal/review"
	"driverreview/internal/session"
)

const msgLoadFailed = "Error loading drivers"

// DriverAPI is everything the console needs from the driver service.
type DriverAPI interface {
	review.Lister
	review.Mutator
}

// Deps are the collaborators shared by every console handler.
type Deps struct {
	Sessions *session.Store
	History  history.Store
	Images   *imagecheck.Checker
	Log      logger.ILogger
}

type PageData struct {
	Title   string
	Active  string
	Notices []review.Notice
	Request *http.Request
}

type DriversPageData struct {
	PageData
	List      review.Snapshot
	Cards     []CardView
	LoadError string
	Dialog    *DialogData
}

// CardView is one driver tile of the list.
type CardView struct {
	Driver models.Driver
	Weight string
	Badges []review.Badge
}

type DialogData struct {
	Driver        *models.Driver
	Sections      []review.SectionView
	SelectedCount int
	Submitting    bool
}

var (
	templates   *template.Template
	templatesMu sync.RWMutex
)

func InitTemplates(t *template.Template) {
	templatesMu.Lock()
	defer templatesMu.Unlock()
	templates = t
}

// NewFactory builds console state for a new operator session. A successful
// decision closes the list's dialog, refetches the same page and hands the
// decision to onDecision.
func NewFactory(api DriverAPI, guard *review.InFlight, pageSize int,
	onDecision review.SuccessFunc, log logger.ILogger) session.Factory {
	return func() (*review.ListView, *review.Dialog) {
		list := review.NewListView(api, pageSize)
		dialog := review.NewDialog(api, guard, func(ctx context.Context, d models.Decision) {
			list.CloseDialog()
			if err := list.Refresh(ctx); err != nil && !errors.Is(err, review.ErrStaleResponse) {
				log.Error("Error refreshing drivers after decision",
					logger.Int("page", list.Page()), logger.Error(err))
			}
			if onDecision != nil {
				onDecision(ctx, d)
			}
		})
		return list, dialog
	}
}

func RegisterHandlers(r *mux.Router, deps Deps) {
	r.HandleFunc("/", rootHandler()).Methods("GET")
	r.HandleFunc("/healthz", healthHandler()).Methods("GET")

	r.HandleFunc("/drivers", listDriversHandler(deps)).Methods("GET")
	r.HandleFunc("/drivers/prev", previousPageHandler(deps)).Methods("POST")
	r.HandleFunc("/drivers/next", nextPageHandler(deps)).Methods("POST")
	r.HandleFunc("/drivers/refresh", refreshHandler(deps)).Methods("POST")
	r.HandleFunc("/drivers/close", closeDialogHandler(deps)).Methods("POST")

	r.HandleFunc("/drivers/{id:[0-9]+}", reviewDriverHandler(deps)).Methods("GET")
	r.HandleFunc("/drivers/{id:[0-9]+}/fields/{field}/toggle", toggleFieldHandler(deps)).Methods("POST")
	r.HandleFunc("/drivers/{id:[0-9]+}/approve", approveHandler(deps)).Methods("POST")
	r.HandleFunc("/drivers/{id:[0-9]+}/reject", rejectHandler(deps)).Methods("POST")

	r.HandleFunc("/history", historyHandler(deps)).Methods("GET")
	r.HandleFunc("/history/export.xlsx", exportHistoryHandler(deps)).Methods("GET")
}

func rootHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/drivers", http.StatusFound)
	}
}

func healthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	}
}

func consoleFor(deps Deps, w http.ResponseWriter, r *http.Request) (*session.Console, bool) {
	c, _, err := deps.Sessions.Get(w, r)
	if err != nil {
		deps.Log.Error("Error creating console session", logger.Error(err))
		http.Error(w, "Error creating session", http.StatusInternalServerError)
		return nil, false
	}
	return c, true
}

func listDriversHandler(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, ok := consoleFor(deps, w, r)
		if !ok {
			return
		}

		if raw := r.URL.Query().Get("page"); raw != "" {
			page, err := strconv.Atoi(raw)
			if err != nil {
				http.Error(w, "Invalid page", http.StatusBadRequest)
				return
			}
			if c.List.SetPage(page) {
				c.Dialog.Close()
				c.List.CloseDialog()
			}
		}

		loadErr := loadDrivers(r.Context(), deps, c)
		renderDrivers(w, r, deps, c, loadErr, http.StatusOK)
	}
}

func previousPageHandler(deps Deps) http.HandlerFunc {
	return pageMoveHandler(deps, func(v *review.ListView) bool { return v.Previous() })
}

func nextPageHandler(deps Deps) http.HandlerFunc {
	return pageMoveHandler(deps, func(v *review.ListView) bool { return v.Next() })
}

func pageMoveHandler(deps Deps, move func(*review.ListView) bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, ok := consoleFor(deps, w, r)
		if !ok {
			return
		}
		if move(c.List) {
			c.Dialog.Close()
			c.List.CloseDialog()
		}
		redirectToPage(w, r, c.List.Page())
	}
}

func refreshHandler(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, ok := consoleFor(deps, w, r)
		if !ok {
			return
		}
		if err := c.List.Refresh(r.Context()); err != nil && !errors.Is(err, review.ErrStaleResponse) {
			deps.Log.Error("Error refreshing drivers",
				logger.Int("page", c.List.Page()),
				logger.Error(err))
		}
		redirectToPage(w, r, c.List.Page())
	}
}

func closeDialogHandler(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, ok := consoleFor(deps, w, r)
		if !ok {
			return
		}
		c.Dialog.Close()
		c.List.CloseDialog()
		redirectToPage(w, r, c.List.Page())
	}
}

// loadDrivers makes sure the current page is loaded. Pages already fetched
// by a refresh or an earlier request are reused.
func loadDrivers(ctx context.Context, deps Deps, c *session.Console) error {
	err := c.List.EnsureLoaded(ctx)
	if err == nil || errors.Is(err, review.ErrStaleResponse) {
		return nil
	}
	deps.Log.Error("Error fetching drivers",
		logger.Int("page", c.List.Page()),
		logger.Error(err))
	return err
}

func renderDrivers(w http.ResponseWriter, r *http.Request, deps Deps, c *session.Console,
	loadErr error, status int) {
	data := DriversPageData{
		PageData: PageData{
			Title:   "Driver Applications",
			Active:  "drivers",
			Notices: c.TakeNotices(),
			Request: r,
		},
		List: c.List.Snapshot(),
	}
	for i := range data.List.Drivers {
		d := data.List.Drivers[i]
		data.Cards = append(data.Cards, CardView{
			Driver: d,
			Weight: review.FormatWeight(d.Weight),
			Badges: review.StatusBadges(&d),
		})
	}
	if loadErr != nil {
		data.LoadError = msgLoadFailed
	}
	if c.Dialog.IsOpen() {
		data.Dialog = dialogData(r.Context(), deps, c.Dialog)
	}

	render(w, deps, "drivers.html", data, status)
}

func dialogData(ctx context.Context, deps Deps, d *review.Dialog) *DialogData {
	sections := d.Sections()
	data := &DialogData{
		Driver:        d.Driver(),
		Sections:      sections,
		SelectedCount: d.Selection().Len(),
		Submitting:    d.Submitting(),
	}
	if deps.Images == nil {
		return data
	}

	var urls []string
	for _, s := range sections {
		if !s.Images {
			continue
		}
		for _, f := range s.Fields {
			urls = append(urls, f.Value)
		}
	}
	resolved := deps.Images.Resolve(ctx, urls)
	for i := range sections {
		if !sections[i].Images {
			continue
		}
		for j := range sections[i].Fields {
			if u, ok := resolved[sections[i].Fields[j].Value]; ok {
				sections[i].Fields[j].Value = u
			}
		}
	}
	return data
}

func render(w http.ResponseWriter, deps Deps, name string, data interface{}, status int) {
	templatesMu.RLock()
	t := templates
	templatesMu.RUnlock()

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, name, data); err != nil {
		deps.Log.Error("Error rendering template",
			logger.String("template", name),
			logger.Error(err))
		http.Error(w, "Error rendering page", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		deps.Log.Debug("Error writing response", logger.Error(err))
	}
}

func redirectToPage(w http.ResponseWriter, r *http.Request, page int) {
	http.Redirect(w, r, fmt.Sprintf("/drivers?page=%d", page), http.StatusSeeOther)
}

func redirectToDriver(w http.ResponseWriter, r *http.Request, id int64) {
	http.Redirect(w, r, fmt.Sprintf("/drivers/%d", id), http.StatusSeeOther)
}
