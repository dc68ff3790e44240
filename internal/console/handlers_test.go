package console

import (
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gorilla/csrf"
	"github.com/gorilla/mux"

	"driverreview"
	"driverreview/internal/driverapi"
	"driverreview/internal/history"
	"driverreview/internal/logger"
	"driverreview/internal/models"
	"driverreview/internal/notify"
	"driverreview/internal/review"
	"driverreview/internal/session"
)

type decisionCall struct {
	TelegramID int64
	Approve    bool     `json:"approve"`
	Rejects    []string `json:"rejects"`
}

// backend is a stand-in for the driver-management service.
type backend struct {
	mu        sync.Mutex
	count     int
	listFails bool
	mutFails  bool
	drivers   func(page int) []models.Driver
	listed    []int
	decisions []decisionCall
}

func (b *backend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/drivers/all/":
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		b.listed = append(b.listed, page)
		if b.listFails {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		resp := models.DriversPage{Count: b.count, Results: b.drivers(page)}
		if page*10 < b.count {
			next := fmt.Sprintf("http://backend/drivers/all/?page=%d", page+1)
			resp.Next = &next
		}
		if page > 1 {
			prev := fmt.Sprintf("http://backend/drivers/all/?page=%d", page-1)
			resp.Previous = &prev
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)

	case r.Method == http.MethodPost && strings.HasPrefix(r.URL.Path, "/drivers/approve/"):
		id, _ := strconv.ParseInt(strings.Trim(strings.TrimPrefix(r.URL.Path, "/drivers/approve/"), "/"), 10, 64)
		call := decisionCall{TelegramID: id}
		_ = json.NewDecoder(r.Body).Decode(&call)
		b.decisions = append(b.decisions, call)
		if b.mutFails {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)

	default:
		http.NotFound(w, r)
	}
}

func (b *backend) setFailures(list, mutations bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listFails = list
	b.mutFails = mutations
}

func (b *backend) listedPages() []int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]int(nil), b.listed...)
}

func (b *backend) decisionCalls() []decisionCall {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]decisionCall(nil), b.decisions...)
}

func testDriver(id int64) models.Driver {
	return models.Driver{
		ID:          id,
		TelegramID:  id + 1000,
		FullName:    fmt.Sprintf("Driver %d", id),
		Username:    fmt.Sprintf("driver%d", id),
		PhoneNumber: "+998901234567",
		CarModel:    "Isuzu NPR",
		Weight:      1500,
		IsActive:    id%2 == 1,
		IsOnline:    true,
	}
}

func badgeTexts(s *goquery.Selection) []string {
	var out []string
	s.Find(".badge").Each(func(_ int, b *goquery.Selection) {
		out = append(out, strings.TrimSpace(b.Text()))
	})
	return out
}

// pagedDrivers numbers drivers so that page p holds ids (p-1)*10+1 onwards.
func pagedDrivers(count int) func(page int) []models.Driver {
	return func(page int) []models.Driver {
		var out []models.Driver
		for i := (page-1)*10 + 1; i <= page*10 && i <= count; i++ {
			out = append(out, testDriver(int64(i)))
		}
		return out
	}
}

type consoleEnv struct {
	backend *backend
	history *history.Memory
	server  *httptest.Server
	client  *http.Client
}

func newConsoleEnv(t *testing.T, b *backend) *consoleEnv {
	t.Helper()

	api := httptest.NewServer(b)
	t.Cleanup(api.Close)

	funcMap := template.FuncMap{
		"add":       func(a, b int) int { return a + b },
		"sub":       func(a, b int) int { return a - b },
		"csrfField": csrf.TemplateField,
	}
	tmpl, err := template.New("").Funcs(funcMap).ParseFS(driverreview.Files, "internal/console/templates/*.html")
	if err != nil {
		t.Fatalf("Failed to parse templates: %v", err)
	}
	InitTemplates(tmpl)

	log := logger.Nop()
	store := history.NewMemory(0)
	client := driverapi.New(api.URL, &http.Client{Timeout: 5 * time.Second}, log)
	factory := NewFactory(client, review.NewInFlight(), 10, RecordDecisions(store, notify.Nop{}, log), log)

	r := mux.NewRouter()
	RegisterHandlers(r, Deps{
		Sessions: session.NewStore(time.Hour, false, factory),
		History:  store,
		Log:      log,
	})

	server := httptest.NewServer(r)
	t.Cleanup(server.Close)

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("Failed to create cookie jar: %v", err)
	}

	return &consoleEnv{
		backend: b,
		history: store,
		server:  server,
		client:  &http.Client{Jar: jar, Timeout: 5 * time.Second},
	}
}

func (e *consoleEnv) get(t *testing.T, path string) (*http.Response, *goquery.Document) {
	t.Helper()
	resp, err := e.client.Get(e.server.URL + path)
	if err != nil {
		t.Fatalf("GET %s failed: %v", path, err)
	}
	return resp, parse(t, resp)
}

func (e *consoleEnv) post(t *testing.T, path string) (*http.Response, *goquery.Document) {
	t.Helper()
	resp, err := e.client.Post(e.server.URL+path, "application/x-www-form-urlencoded", nil)
	if err != nil {
		t.Fatalf("POST %s failed: %v", path, err)
	}
	return resp, parse(t, resp)
}

func parse(t *testing.T, resp *http.Response) *goquery.Document {
	t.Helper()
	defer resp.Body.Close()
	if !strings.HasPrefix(resp.Header.Get("Content-Type"), "text/html") {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		t.Fatalf("Failed to parse HTML: %v", err)
	}
	return doc
}

func notices(doc *goquery.Document) []string {
	var out []string
	doc.Find(".notice").Each(func(_ int, s *goquery.Selection) {
		out = append(out, strings.TrimSpace(s.Text()))
	})
	return out
}

func TestRootRedirectsToDrivers(t *testing.T) {
	env := newConsoleEnv(t, &backend{count: 0, drivers: pagedDrivers(0)})

	resp, doc := env.get(t, "/")
	if resp.Request.URL.Path != "/drivers" {
		t.Errorf("Expected redirect to /drivers, got %s", resp.Request.URL.Path)
	}
	if doc.Find("#empty").Length() != 1 {
		t.Error("Expected empty state for a backend without drivers")
	}
}

func TestDriversFirstPage(t *testing.T) {
	env := newConsoleEnv(t, &backend{count: 25, drivers: pagedDrivers(25)})

	resp, doc := env.get(t, "/drivers")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}

	if got := doc.Find(".card").Length(); got != 10 {
		t.Errorf("Expected 10 driver cards, got %d", got)
	}
	if first, _ := doc.Find(".card").First().Attr("data-driver-id"); first != "1" {
		t.Errorf("Expected cards in backend order starting with 1, got %s", first)
	}
	if _, disabled := doc.Find("#prev").Attr("disabled"); !disabled {
		t.Error("Expected Previous to be disabled on page 1")
	}
	if _, disabled := doc.Find("#next").Attr("disabled"); disabled {
		t.Error("Expected Next to be enabled when the backend has a next link")
	}
	if got := strings.TrimSpace(doc.Find("#range").Text()); got != "Showing 1 to 10 of 25 drivers" {
		t.Errorf("Unexpected range text: %q", got)
	}
	if got := strings.TrimSpace(doc.Find("#pages").Text()); got != "Page 1 of 3" {
		t.Errorf("Unexpected page text: %q", got)
	}

	cards := doc.Find(".card")
	if got := fmt.Sprint(badgeTexts(cards.Eq(0))); got != "[1500kg Active Online Busy]" {
		t.Errorf("Unexpected badges on an active driver: %s", got)
	}
	if got := fmt.Sprint(badgeTexts(cards.Eq(1))); got != "[1500kg Online Busy]" {
		t.Errorf("Unexpected badges on an inactive driver: %s", got)
	}
}

func TestReviewDialogShowsStatus(t *testing.T) {
	env := newConsoleEnv(t, &backend{count: 2, drivers: pagedDrivers(2)})

	tests := []struct {
		path string
		want string
	}{
		{"/drivers/1", "[Active Online Busy]"},
		{"/drivers/2", "[Inactive Online Busy]"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			_, doc := env.get(t, tt.path)
			status := doc.Find("#review-dialog #driver-status")
			if status.Length() != 1 {
				t.Fatal("Expected a status section in the dialog")
			}
			if got := fmt.Sprint(badgeTexts(status)); got != tt.want {
				t.Errorf("Expected status %s, got %s", tt.want, got)
			}
			if status.Find("form").Length() != 0 {
				t.Error("Expected status badges to have no toggle")
			}
		})
	}
}

func TestDriversPagination(t *testing.T) {
	env := newConsoleEnv(t, &backend{count: 25, drivers: pagedDrivers(25)})
	env.get(t, "/drivers")

	_, doc := env.post(t, "/drivers/next")
	if got := strings.TrimSpace(doc.Find("#range").Text()); got != "Showing 11 to 20 of 25 drivers" {
		t.Errorf("Unexpected range text after Next: %q", got)
	}

	_, doc = env.post(t, "/drivers/next")
	if got := strings.TrimSpace(doc.Find("#range").Text()); got != "Showing 21 to 25 of 25 drivers" {
		t.Errorf("Unexpected range text on the last page: %q", got)
	}
	if _, disabled := doc.Find("#next").Attr("disabled"); !disabled {
		t.Error("Expected Next to be disabled on the last page")
	}

	_, doc = env.post(t, "/drivers/prev")
	if got := strings.TrimSpace(doc.Find("#pages").Text()); got != "Page 2 of 3" {
		t.Errorf("Expected page 2 after Previous, got %q", got)
	}

	want := []int{1, 2, 3, 2}
	got := env.backend.listedPages()
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("Expected pages %v to be fetched, got %v", want, got)
	}
}

func TestDriversLoadFailure(t *testing.T) {
	env := newConsoleEnv(t, &backend{listFails: true, drivers: pagedDrivers(0)})

	resp, doc := env.get(t, "/drivers")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}
	if got := strings.TrimSpace(doc.Find("#load-error").Text()); got != "Error loading drivers" {
		t.Errorf("Expected inline load error, got %q", got)
	}
	if doc.Find(".card").Length() != 0 {
		t.Error("Expected no cards after a failed load")
	}
}

func TestInvalidPage(t *testing.T) {
	env := newConsoleEnv(t, &backend{drivers: pagedDrivers(0)})

	resp, _ := env.get(t, "/drivers?page=abc")
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", resp.StatusCode)
	}
}

func TestReviewDialogSecondPhone(t *testing.T) {
	second := "+998907654321"
	b := &backend{count: 2, drivers: func(int) []models.Driver {
		withPhone := testDriver(2)
		withPhone.PhoneNumber2 = &second
		return []models.Driver{testDriver(1), withPhone}
	}}
	env := newConsoleEnv(t, b)

	tests := []struct {
		name string
		path string
		want int
	}{
		{"Without secondary phone", "/drivers/1", 0},
		{"With secondary phone", "/drivers/2", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, doc := env.get(t, tt.path)
			dialog := doc.Find("#review-dialog")
			if dialog.Length() != 1 {
				t.Fatal("Expected review dialog to be open")
			}
			if got := dialog.Find(`[data-field="phone_number2"]`).Length(); got != tt.want {
				t.Errorf("Expected %d phone_number2 rows, got %d", tt.want, got)
			}
			if got := dialog.Find(`[data-field="phone_number2"] form`).Length(); got != tt.want {
				t.Errorf("Expected %d phone_number2 toggles, got %d", tt.want, got)
			}
		})
	}
}

func TestReviewDriverNotOnPage(t *testing.T) {
	env := newConsoleEnv(t, &backend{count: 1, drivers: pagedDrivers(1)})

	resp, doc := env.get(t, "/drivers/99")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", resp.StatusCode)
	}
	if doc.Find("#review-dialog").Length() != 0 {
		t.Error("Expected no dialog for a driver outside the page")
	}
	if got := notices(doc); len(got) != 1 || got[0] != msgDriverNotOnPage {
		t.Errorf("Expected not-on-page notice, got %v", got)
	}
}

func TestApproveRefetchesSamePage(t *testing.T) {
	env := newConsoleEnv(t, &backend{count: 25, drivers: pagedDrivers(25)})

	env.get(t, "/drivers?page=2")
	env.get(t, "/drivers/12")
	env.post(t, "/drivers/12/fields/car_model/toggle")

	_, doc := env.post(t, "/drivers/12/approve")

	calls := env.backend.decisionCalls()
	if len(calls) != 1 {
		t.Fatalf("Expected 1 decision call, got %d", len(calls))
	}
	if calls[0].TelegramID != 1012 || !calls[0].Approve || calls[0].Rejects != nil {
		t.Errorf("Unexpected approve call: %+v", calls[0])
	}

	if doc.Find("#review-dialog").Length() != 0 {
		t.Error("Expected dialog to be closed after approval")
	}
	if got := notices(doc); len(got) != 1 || got[0] != "Driver approved successfully!" {
		t.Errorf("Expected approval notice, got %v", got)
	}

	// One fetch to show page 2, one refresh after the approval.
	if got := fmt.Sprint(env.backend.listedPages()); got != "[2 2]" {
		t.Errorf("Expected pages [2 2] to be fetched, got %s", got)
	}

	recorded, err := env.history.Recent(context.Background(), 10)
	if err != nil {
		t.Fatalf("Failed to read history: %v", err)
	}
	if len(recorded) != 1 || !recorded[0].Approved || recorded[0].TelegramID != 1012 {
		t.Errorf("Expected one approved decision in history, got %+v", recorded)
	}
}

func TestRejectWithoutSelection(t *testing.T) {
	env := newConsoleEnv(t, &backend{count: 1, drivers: pagedDrivers(1)})

	env.get(t, "/drivers/1")
	_, doc := env.post(t, "/drivers/1/reject")

	if got := len(env.backend.decisionCalls()); got != 0 {
		t.Errorf("Expected no backend call, got %d", got)
	}
	if doc.Find("#review-dialog").Length() != 1 {
		t.Error("Expected dialog to stay open")
	}
	if doc.Find(".notice-validation").Length() != 1 {
		t.Errorf("Expected a validation notice, got %v", notices(doc))
	}
}

func TestRejectSendsLabelsInCatalogOrder(t *testing.T) {
	env := newConsoleEnv(t, &backend{count: 1, drivers: pagedDrivers(1)})

	env.get(t, "/drivers/1")
	env.post(t, "/drivers/1/fields/weight/toggle")
	_, doc := env.post(t, "/drivers/1/fields/car_model/toggle")

	if got := strings.TrimSpace(doc.Find("#selected-count").Text()); got != "2 field(s) flagged" {
		t.Errorf("Unexpected selection count: %q", got)
	}
	if doc.Find(`.field.flagged[data-field="weight"]`).Length() != 1 {
		t.Error("Expected weight to be flagged")
	}

	_, doc = env.post(t, "/drivers/1/reject")

	calls := env.backend.decisionCalls()
	if len(calls) != 1 {
		t.Fatalf("Expected 1 decision call, got %d", len(calls))
	}
	want := []string{"Car Model", "Weight Capacity"}
	if calls[0].Approve || fmt.Sprint(calls[0].Rejects) != fmt.Sprint(want) {
		t.Errorf("Expected rejects %v, got %+v", want, calls[0])
	}
	if got := notices(doc); len(got) != 1 || got[0] != "Driver rejected successfully!" {
		t.Errorf("Expected rejection notice, got %v", got)
	}

	_, doc = env.get(t, "/drivers/1")
	if got := strings.TrimSpace(doc.Find("#selected-count").Text()); got != "0 field(s) flagged" {
		t.Errorf("Expected a fresh selection after reopening, got %q", got)
	}
}

func TestToggleTwiceRestoresSelection(t *testing.T) {
	env := newConsoleEnv(t, &backend{count: 1, drivers: pagedDrivers(1)})

	env.get(t, "/drivers/1")
	env.post(t, "/drivers/1/fields/passport_front/toggle")
	_, doc := env.post(t, "/drivers/1/fields/passport_front/toggle")

	if doc.Find(".field.flagged").Length() != 0 {
		t.Error("Expected no flagged fields after toggling twice")
	}
}

func TestToggleUnknownField(t *testing.T) {
	env := newConsoleEnv(t, &backend{count: 1, drivers: pagedDrivers(1)})

	env.get(t, "/drivers/1")
	resp, _ := env.post(t, "/drivers/1/fields/shoe_size/toggle")
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", resp.StatusCode)
	}
}

func TestMutationFailureKeepsDialogOpen(t *testing.T) {
	env := newConsoleEnv(t, &backend{count: 1, mutFails: true, drivers: pagedDrivers(1)})

	env.get(t, "/drivers/1")
	env.post(t, "/drivers/1/fields/fullname/toggle")
	_, doc := env.post(t, "/drivers/1/reject")

	if doc.Find("#review-dialog").Length() != 1 {
		t.Error("Expected dialog to stay open after a failed rejection")
	}
	if got := notices(doc); len(got) != 1 || got[0] != "Failed to reject driver" {
		t.Errorf("Expected failure notice, got %v", got)
	}
	if doc.Find(`.field.flagged[data-field="fullname"]`).Length() != 1 {
		t.Error("Expected the selection to survive a failed rejection")
	}
	if recorded, _ := env.history.Recent(context.Background(), 10); len(recorded) != 0 {
		t.Errorf("Expected nothing recorded, got %d", len(recorded))
	}
}

func TestBackendOutageKeepsDialogAndSelection(t *testing.T) {
	env := newConsoleEnv(t, &backend{count: 1, drivers: pagedDrivers(1)})

	env.get(t, "/drivers/1")
	env.post(t, "/drivers/1/fields/fullname/toggle")
	env.backend.setFailures(true, true)

	flagged := func(doc *goquery.Document) int {
		return doc.Find("#review-dialog .field.flagged").Length()
	}

	_, doc := env.post(t, "/drivers/1/reject")
	if doc.Find("#review-dialog").Length() != 1 || flagged(doc) != 1 {
		t.Fatalf("Expected dialog open with 1 flagged field after failed reject, got notices %v", notices(doc))
	}

	_, doc = env.post(t, "/drivers/refresh")
	if doc.Find("#load-error").Length() != 1 {
		t.Error("Expected the failed refresh to show the load error")
	}
	if doc.Find("#review-dialog").Length() != 1 || flagged(doc) != 1 {
		t.Error("Expected dialog and selection to survive a failed refresh")
	}

	resp, doc := env.post(t, "/drivers/1/fields/car_model/toggle")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200 while the list is unavailable, got %d", resp.StatusCode)
	}
	if doc.Find("#review-dialog").Length() != 1 || flagged(doc) != 2 {
		t.Errorf("Expected 2 flagged fields while the list is unavailable, got %d", flagged(doc))
	}

	env.backend.setFailures(false, false)

	_, doc = env.get(t, "/drivers/1")
	if flagged(doc) != 2 {
		t.Errorf("Expected selection intact after recovery, got %d flagged", flagged(doc))
	}

	_, doc = env.post(t, "/drivers/1/reject")
	if got := notices(doc); len(got) != 1 || got[0] != "Driver rejected successfully!" {
		t.Errorf("Expected rejection notice, got %v", got)
	}
	calls := env.backend.decisionCalls()
	want := []string{"Full Name", "Car Model"}
	if len(calls) != 2 || fmt.Sprint(calls[1].Rejects) != fmt.Sprint(want) {
		t.Errorf("Expected final reject with %v, got %+v", want, calls)
	}
}

func TestCloseDialog(t *testing.T) {
	env := newConsoleEnv(t, &backend{count: 1, drivers: pagedDrivers(1)})

	env.get(t, "/drivers/1")
	env.post(t, "/drivers/1/fields/fullname/toggle")
	_, doc := env.post(t, "/drivers/close")
	if doc.Find("#review-dialog").Length() != 0 {
		t.Error("Expected dialog to be closed")
	}

	resp, _ := env.post(t, "/drivers/1/approve")
	if resp.Request.URL.Path != "/drivers" {
		t.Errorf("Expected approve on a closed dialog to redirect to the list, got %s", resp.Request.URL.Path)
	}
	if got := len(env.backend.decisionCalls()); got != 0 {
		t.Errorf("Expected no backend call, got %d", got)
	}
}

func TestHistoryPages(t *testing.T) {
	env := newConsoleEnv(t, &backend{count: 1, drivers: pagedDrivers(1)})

	env.get(t, "/drivers/1")
	env.post(t, "/drivers/1/approve")

	_, doc := env.get(t, "/history")
	if got := doc.Find("#decisions tbody tr").Length(); got != 1 {
		t.Errorf("Expected 1 history row, got %d", got)
	}

	resp, err := env.client.Get(env.server.URL + "/history/export.xlsx")
	if err != nil {
		t.Fatalf("Export request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.Contains(ct, "spreadsheetml") {
		t.Errorf("Expected xlsx content type, got %s", ct)
	}
}

func TestHealthz(t *testing.T) {
	env := newConsoleEnv(t, &backend{drivers: pagedDrivers(0)})

	resp, err := env.client.Get(env.server.URL + "/healthz")
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || string(body) != "ok" {
		t.Errorf("Expected 200 ok, got %d %q", resp.StatusCode, body)
	}
}
