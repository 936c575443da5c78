package server

import (
	"embed"
	"html/template"
	"io/fs"
	"net/http"
	"strings"
	"sync"

	"github.com/sw33tLie/opcheck/internal/utils"
	"github.com/sw33tLie/opcheck/pkg/batch"
	"github.com/sw33tLie/opcheck/pkg/operator"
	"github.com/sw33tLie/opcheck/pkg/results"
)

//go:embed web
var WebFS embed.FS

const unexpectedErrorMessage = "An unexpected error occurred. Please try again."

// Preferences stores the UI theme between runs.
type Preferences interface {
	Theme() string
	SetTheme(theme string) error
}

// Server serves the browser UI for a single lookup session. Only one lookup
// runs at a time; a second request while one is in flight is rejected.
type Server struct {
	Fetcher  operator.Fetcher
	Options  batch.Options
	Prefs    Preferences
	Log      batch.Logger
	Username string
	Password string

	tmpl *template.Template

	mu      sync.Mutex
	session *results.Session
	input   string
	errMsg  string
	busy    bool
}

func New(fetcher operator.Fetcher, prefs Preferences, opts batch.Options) (*Server, error) {
	tmpl, err := template.New("index.html.tmpl").Funcs(template.FuncMap{
		"lines":  func(s string) []string { return strings.Split(s, "\n") },
		"plural": utils.Plural,
	}).ParseFS(WebFS, "web/index.html.tmpl")
	if err != nil {
		return nil, err
	}
	return &Server{
		Fetcher: fetcher,
		Options: opts,
		Prefs:   prefs,
		Log:     opts.Log,
		tmpl:    tmpl,
		session: results.NewSession(),
	}, nil
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() (http.Handler, error) {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.basicAuth(s.handleIndex))
	mux.HandleFunc("POST /lookup", s.basicAuth(s.handleLookup))
	mux.HandleFunc("POST /filter", s.basicAuth(s.handleFilter))
	mux.HandleFunc("POST /theme", s.basicAuth(s.handleTheme))
	mux.HandleFunc("GET /export.txt", s.basicAuth(s.handleExportText))
	mux.HandleFunc("GET /export.csv", s.basicAuth(s.handleExportCSV))
	mux.HandleFunc("GET /export.xlsx", s.basicAuth(s.handleExportXLSX))

	// Static Files
	webRoot, err := fs.Sub(WebFS, "web/static")
	if err != nil {
		return nil, err
	}
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.FS(webRoot))))

	return s.recoverer(mux), nil
}

func (s *Server) Start(addr string) error {
	h, err := s.Handler()
	if err != nil {
		return err
	}
	s.logger().Infof("Starting server on %s", addr)
	return http.ListenAndServe(addr, h)
}

func (s *Server) logger() batch.Logger {
	if s.Log == nil {
		return utils.Log
	}
	return s.Log
}

// recoverer turns a panic anywhere below into the generic error view.
func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger().Errorf("Unhandled panic serving %s %s: %v", r.Method, r.URL.Path, rec)
				s.fail(unexpectedErrorMessage)
				s.renderError(w)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// renderError shows the error page, falling back to a plain body when the
// page itself cannot be rendered.
func (s *Server) renderError(w http.ResponseWriter) {
	defer func() {
		if rec := recover(); rec != nil {
			s.logger().Errorf("Rendering error page: %v", rec)
			http.Error(w, unexpectedErrorMessage, http.StatusInternalServerError)
		}
	}()
	s.renderPage(w, http.StatusInternalServerError)
}

func (s *Server) basicAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.Username == "" && s.Password == "" {
			next(w, r)
			return
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != s.Username || pass != s.Password {
			w.Header().Set("WWW-Authenticate", `Basic realm="Restricted"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}
