package server

import (
	"bytes"
	"context"
	"net/http"

	"github.com/sw33tLie/opcheck/pkg/batch"
	"github.com/sw33tLie/opcheck/pkg/config"
	"github.com/sw33tLie/opcheck/pkg/export"
	"github.com/sw33tLie/opcheck/pkg/phone"
	"github.com/sw33tLie/opcheck/pkg/results"
)

type pageData struct {
	Theme string
	Input string
	Error string
	Busy  bool
	View  results.ViewModel
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.renderPage(w, http.StatusOK)
}

func (s *Server) snapshot() pageData {
	s.mu.Lock()
	defer s.mu.Unlock()
	return pageData{
		Theme: s.Prefs.Theme(),
		Input: s.input,
		Error: s.errMsg,
		Busy:  s.busy,
		View:  s.session.View(),
	}
}

func (s *Server) renderPage(w http.ResponseWriter, status int) {
	data := s.snapshot()

	var buf bytes.Buffer
	if err := s.tmpl.Execute(&buf, data); err != nil {
		s.logger().Errorf("Rendering page: %v", err)
		http.Error(w, unexpectedErrorMessage, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}

func (s *Server) handleLookup(w http.ResponseWriter, r *http.Request) {
	input := r.FormValue("numbers")

	if !s.begin(input) {
		http.Error(w, "A lookup is already running", http.StatusConflict)
		return
	}
	defer s.end()

	// A started lookup runs to completion even if the client goes away.
	set, err := s.lookup(context.WithoutCancel(r.Context()), input)
	s.finish(set, err)

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// begin marks the server busy and clears the previous outcome. It reports
// false when another lookup is still running.
func (s *Server) begin(input string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy {
		return false
	}
	s.busy = true
	s.input = input
	s.errMsg = ""
	s.session.Reset(nil)
	return true
}

func (s *Server) end() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.busy = false
}

func (s *Server) finish(set *results.Set, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.logger().Warnf("Lookup failed: %v", err)
		s.errMsg = err.Error()
		return
	}
	s.session.Reset(set)
}

// fail drops the current results and shows msg instead.
func (s *Server) fail(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session.Reset(nil)
	s.errMsg = msg
}

func (s *Server) lookup(ctx context.Context, input string) (*results.Set, error) {
	tokens, err := phone.ParseInput(input)
	if err != nil {
		return nil, err
	}
	return batch.Lookup(ctx, s.Fetcher, tokens, s.Options)
}

func (s *Server) handleFilter(w http.ResponseWriter, r *http.Request) {
	s.toggle(r.FormValue("operator"))
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) toggle(op string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session.Toggle(op)
}

func (s *Server) handleTheme(w http.ResponseWriter, r *http.Request) {
	if err := s.Prefs.SetTheme(config.ToggleTheme(s.Prefs.Theme())); err != nil {
		s.logger().Warnf("Could not save theme preference: %v", err)
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) currentSet() *results.Set {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session.Set()
}

func (s *Server) handleExportText(w http.ResponseWriter, r *http.Request) {
	text := export.Text(s.currentSet())
	if text == "" {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", `inline; filename="`+export.TextFilename+`"`)
	w.Write([]byte(text))
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	data, err := export.CSV(s.currentSet())
	s.writeDownload(w, data, err, "text/csv; charset=utf-8", export.CSVFilename)
}

func (s *Server) handleExportXLSX(w http.ResponseWriter, r *http.Request) {
	data, err := export.XLSX(s.currentSet())
	s.writeDownload(w, data, err, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", export.XLSXFilename)
}

func (s *Server) writeDownload(w http.ResponseWriter, data []byte, err error, contentType, filename string) {
	if err != nil {
		s.logger().Errorf("Export of %s failed: %v", filename, err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if data == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Write(data)
}
