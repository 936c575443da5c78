package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/sw33tLie/opcheck/pkg/batch"
	"github.com/sw33tLie/opcheck/pkg/operator"
)

type fakePrefs struct {
	theme string
	saves int
}

func (p *fakePrefs) Theme() string {
	if p.theme == "" {
		return "dark"
	}
	return p.theme
}

func (p *fakePrefs) SetTheme(theme string) error {
	p.theme = theme
	p.saves++
	return nil
}

type fetcherFunc func(ctx context.Context, numbers []string) ([]operator.Entry, error)

func (f fetcherFunc) FetchOperators(ctx context.Context, numbers []string) ([]operator.Entry, error) {
	return f(ctx, numbers)
}

var teliaOnly = fetcherFunc(func(ctx context.Context, numbers []string) ([]operator.Entry, error) {
	var out []operator.Entry
	for _, n := range numbers {
		if strings.HasPrefix(n, "070") {
			out = append(out, operator.Entry{Number: n, Name: "Telia"})
		}
	}
	return out, nil
})

type testServer struct {
	t     *testing.T
	srv   *Server
	h     http.Handler
	prefs *fakePrefs
}

func newTestServer(t *testing.T, f operator.Fetcher) *testServer {
	t.Helper()
	prefs := &fakePrefs{}
	srv, err := New(f, prefs, batch.Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	h, err := srv.Handler()
	if err != nil {
		t.Fatalf("Handler: %v", err)
	}
	return &testServer{t: t, srv: srv, h: h, prefs: prefs}
}

func (ts *testServer) do(method, path string, form url.Values) *httptest.ResponseRecorder {
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, path, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	ts.h.ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) page() *goquery.Document {
	ts.t.Helper()
	rec := ts.do(http.MethodGet, "/", nil)
	if rec.Code != http.StatusOK {
		ts.t.Fatalf("GET / returned %d", rec.Code)
	}
	doc, err := goquery.NewDocumentFromReader(rec.Body)
	if err != nil {
		ts.t.Fatalf("parse page: %v", err)
	}
	return doc
}

func (ts *testServer) lookup(numbers string) {
	ts.t.Helper()
	rec := ts.do(http.MethodPost, "/lookup", url.Values{"numbers": {numbers}})
	if rec.Code != http.StatusSeeOther {
		ts.t.Fatalf("POST /lookup returned %d", rec.Code)
	}
}

func listItems(doc *goquery.Document) []string {
	var out []string
	doc.Find("ul.result-list li").Each(func(_ int, s *goquery.Selection) {
		out = append(out, s.Text())
	})
	return out
}

func TestInitialPage(t *testing.T) {
	ts := newTestServer(t, teliaOnly)
	doc := ts.page()

	if doc.Find("textarea#phoneNumbers").Length() != 1 {
		t.Fatal("missing input area")
	}
	if doc.Find("#results").Length() != 0 {
		t.Fatal("results panel should be hidden before the first lookup")
	}
	if theme, _ := doc.Find("html").Attr("data-theme"); theme != "dark" {
		t.Fatalf("expected dark default theme, got %q", theme)
	}
}

func TestLookupAndRender(t *testing.T) {
	ts := newTestServer(t, teliaOnly)
	ts.lookup("+46701234567, 08123456, 0701234567")

	doc := ts.page()
	got := listItems(doc)
	want := []string{"+46701234567 - Telia", "08123456 - Unknown Operator", "0701234567 - Telia"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("unexpected list.\nwant: %v\ngot:  %v", want, got)
	}
	if c := doc.Find(".results-count").Text(); c != "3 numbers" {
		t.Errorf("unexpected count %q", c)
	}
	if n := doc.Find(".operator-tag").Length(); n != 2 {
		t.Errorf("expected 2 operator tags, got %d", n)
	}
	if first, _ := doc.Find(".operator-tag").First().Attr("data-operator"); first != "Telia" {
		t.Errorf("largest operator should come first, got %q", first)
	}
	if doc.Find(".filter-hint").Length() != 0 {
		t.Error("no hint expected without a filter")
	}
	if v := doc.Find("textarea#phoneNumbers").Text(); v != "+46701234567, 08123456, 0701234567" {
		t.Errorf("input should be kept, got %q", v)
	}
}

func TestFilterToggle(t *testing.T) {
	ts := newTestServer(t, teliaOnly)
	ts.lookup("+46701234567, 08123456, 0701234567")

	ts.do(http.MethodPost, "/filter", url.Values{"operator": {"Telia"}})
	doc := ts.page()
	if got := listItems(doc); len(got) != 2 {
		t.Fatalf("expected 2 Telia rows, got %v", got)
	}
	if hint := doc.Find(".filter-hint").Text(); hint != "Showing 2 of 3 numbers" {
		t.Fatalf("unexpected hint %q", hint)
	}
	if op, _ := doc.Find(".operator-tag.active").Attr("data-operator"); op != "Telia" {
		t.Fatalf("expected Telia tag to be active, got %q", op)
	}

	// Exports are not affected by the filter.
	rec := ts.do(http.MethodGet, "/export.txt", nil)
	if strings.Count(rec.Body.String(), "\n") != 2 {
		t.Fatalf("text export should contain all rows: %q", rec.Body.String())
	}

	ts.do(http.MethodPost, "/filter", url.Values{"operator": {"Telia"}})
	doc = ts.page()
	if got := listItems(doc); len(got) != 3 {
		t.Fatalf("expected full list after clearing, got %v", got)
	}
	if doc.Find(".filter-hint").Length() != 0 {
		t.Fatal("hint should be removed when the filter is cleared")
	}
}

func TestExports(t *testing.T) {
	ts := newTestServer(t, teliaOnly)

	for _, path := range []string{"/export.csv", "/export.txt", "/export.xlsx"} {
		if rec := ts.do(http.MethodGet, path, nil); rec.Code != http.StatusNoContent {
			t.Errorf("%s before lookup: expected 204, got %d", path, rec.Code)
		}
	}

	ts.lookup("0701234567, 08123456")

	rec := ts.do(http.MethodGet, "/export.csv", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "phone_lookup_results.csv") {
		t.Errorf("unexpected Content-Disposition %q", cd)
	}
	if body := rec.Body.String(); body != "Number,Operator\n0701234567,Telia\n08123456,Unknown Operator\n" {
		t.Errorf("unexpected CSV %q", body)
	}

	rec = ts.do(http.MethodGet, "/export.xlsx", nil)
	if rec.Code != http.StatusOK || rec.Body.Len() == 0 {
		t.Errorf("expected an XLSX download, got %d (%d bytes)", rec.Code, rec.Body.Len())
	}
}

func TestNoData(t *testing.T) {
	ts := newTestServer(t, fetcherFunc(func(context.Context, []string) ([]operator.Entry, error) {
		return nil, nil
	}))
	ts.lookup("0701234567")

	doc := ts.page()
	if doc.Find(".no-data").Text() != "No data found." {
		t.Fatal("expected the no-data state")
	}
	if rec := ts.do(http.MethodGet, "/export.csv", nil); rec.Code != http.StatusNoContent {
		t.Fatalf("empty result set must not produce a download, got %d", rec.Code)
	}
}

func TestValidationErrorListsEveryToken(t *testing.T) {
	calls := 0
	ts := newTestServer(t, fetcherFunc(func(context.Context, []string) ([]operator.Entry, error) {
		calls++
		return nil, nil
	}))
	ts.lookup("abc, 0701234567, 07012")

	msg := ts.page().Find(".error-message").Text()
	for _, want := range []string{`"abc": Must start with +46 or 0, followed by digits only`, `"07012": Invalid length or format`} {
		if !strings.Contains(msg, want) {
			t.Errorf("error message missing %q: %q", want, msg)
		}
	}
	if calls != 0 {
		t.Fatalf("no lookup may happen for invalid input, got %d calls", calls)
	}
}

func TestLookupErrorReplacesResults(t *testing.T) {
	fail := false
	ts := newTestServer(t, fetcherFunc(func(ctx context.Context, numbers []string) ([]operator.Entry, error) {
		if fail {
			return nil, operator.ErrRateLimited
		}
		return teliaOnly(ctx, numbers)
	}))
	ts.lookup("0701234567")
	if len(listItems(ts.page())) != 1 {
		t.Fatal("expected results from the first lookup")
	}

	fail = true
	ts.lookup("0701234567")
	doc := ts.page()
	if msg := doc.Find(".error-message").Text(); msg != "Error: Too many requests. Please wait a moment and try again." {
		t.Fatalf("unexpected error message %q", msg)
	}
	if len(listItems(doc)) != 0 {
		t.Fatal("previous results must not be shown after a failed lookup")
	}
}

func TestEmptyInput(t *testing.T) {
	ts := newTestServer(t, teliaOnly)
	ts.lookup("   ")
	if msg := ts.page().Find(".error-message").Text(); msg != "Error: Please enter at least one number." {
		t.Fatalf("unexpected message %q", msg)
	}
}

func TestConcurrentLookupRejected(t *testing.T) {
	ts := newTestServer(t, teliaOnly)
	ts.srv.busy = true

	rec := ts.do(http.MethodPost, "/lookup", url.Values{"numbers": {"0701234567"}})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
	if btn := ts.page().Find("#lookup-button"); !btn.HasClass("loading") {
		t.Fatal("lookup button should show the loading state while busy")
	}
}

func TestPanicShowsUnexpectedError(t *testing.T) {
	ts := newTestServer(t, fetcherFunc(func(context.Context, []string) ([]operator.Entry, error) {
		panic("boom")
	}))

	rec := ts.do(http.MethodPost, "/lookup", url.Values{"numbers": {"0701234567"}})
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), unexpectedErrorMessage) {
		t.Fatalf("expected the generic error message, got %q", rec.Body.String())
	}
	if ts.srv.busy {
		t.Fatal("loading state must be cleared after a failure")
	}
}

func TestLookupOutlivesClient(t *testing.T) {
	ts := newTestServer(t, fetcherFunc(func(ctx context.Context, numbers []string) ([]operator.Entry, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return teliaOnly(ctx, numbers)
	}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	form := url.Values{"numbers": {"0701234567, 0731234567"}}
	req := httptest.NewRequest(http.MethodPost, "/lookup", strings.NewReader(form.Encode())).WithContext(ctx)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	ts.h.ServeHTTP(httptest.NewRecorder(), req)

	doc := ts.page()
	if msg := doc.Find(".error-message").Text(); msg != "" {
		t.Fatalf("lookup should not fail when the client disconnects, got %q", msg)
	}
	want := []string{"0701234567 - Telia", "0731234567 - Unknown Operator"}
	if got := listItems(doc); strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("got rows %q, want %q", got, want)
	}
}

type panickingPrefs struct{}

func (panickingPrefs) Theme() string           { panic("boom") }
func (panickingPrefs) SetTheme(s string) error { return nil }

func TestPanicWhileRenderingDoesNotLockServer(t *testing.T) {
	srv, err := New(teliaOnly, panickingPrefs{}, batch.Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	h, err := srv.Handler()
	if err != nil {
		t.Fatalf("Handler: %v", err)
	}

	for i := 0; i < 2; i++ {
		done := make(chan *httptest.ResponseRecorder, 1)
		go func() {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
			done <- rec
		}()

		select {
		case rec := <-done:
			if rec.Code != http.StatusInternalServerError {
				t.Fatalf("request %d: expected 500, got %d", i, rec.Code)
			}
			if !strings.Contains(rec.Body.String(), unexpectedErrorMessage) {
				t.Fatalf("request %d: expected the generic error message, got %q", i, rec.Body.String())
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("request %d did not complete", i)
		}
	}
}

func TestThemeToggle(t *testing.T) {
	ts := newTestServer(t, teliaOnly)
	if rec := ts.do(http.MethodPost, "/theme", url.Values{}); rec.Code != http.StatusSeeOther {
		t.Fatalf("expected redirect, got %d", rec.Code)
	}
	if ts.prefs.theme != "light" || ts.prefs.saves != 1 {
		t.Fatalf("theme not persisted: %+v", ts.prefs)
	}
	if theme, _ := ts.page().Find("html").Attr("data-theme"); theme != "light" {
		t.Fatalf("expected light theme, got %q", theme)
	}
	ts.do(http.MethodPost, "/theme", url.Values{})
	if ts.prefs.theme != "dark" {
		t.Fatalf("expected theme to toggle back, got %q", ts.prefs.theme)
	}
}

func TestBasicAuth(t *testing.T) {
	ts := newTestServer(t, teliaOnly)
	ts.srv.Username = "admin"
	ts.srv.Password = "secret"

	if rec := ts.do(http.MethodGet, "/", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.SetBasicAuth("admin", "secret")
	rec := httptest.NewRecorder()
	ts.h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with credentials, got %d", rec.Code)
	}
}

func TestStaticAssets(t *testing.T) {
	ts := newTestServer(t, teliaOnly)
	for _, path := range []string{"/static/app.js", "/static/style.css"} {
		if rec := ts.do(http.MethodGet, path, nil); rec.Code != http.StatusOK {
			t.Errorf("%s: expected 200, got %d", path, rec.Code)
		}
	}
}
