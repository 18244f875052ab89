package visualization

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/nvandessel/geotree/internal/store"
)

var indexTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>geotree runs</title></head>
<body>
<h1>geotree runs</h1>
{{if not .}}<p>No runs stored.</p>{{end}}
<ul>
{{range .}}<li><code>{{.ID}}</code> {{.Mode}} {{.CreatedAt.Format "2006-01-02 15:04:05"}}: {{.Nodes}} nodes, {{.Roots}} roots
 <a href="/runs/{{.ID}}?format=text">text</a>
 <a href="/runs/{{.ID}}?format=dot">dot</a>
 <a href="/runs/{{.ID}}?format=json">json</a></li>
{{end}}</ul>
</body>
</html>
`))

// Server serves stored runs over HTTP: an index of runs at / and each run
// rendered at /runs/{id}?format=text|dot|json.
type Server struct {
	store      store.SnapshotStore
	httpServer *http.Server
	listener   net.Listener
	mu         sync.Mutex
	addr       string
}

// NewServer creates a new run browser over ss.
func NewServer(ss store.SnapshotStore) *Server {
	return &Server{store: ss}
}

// Addr returns the address the server is listening on (e.g., "localhost:PORT").
// Returns empty string if the server hasn't started yet.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Handler returns the server's routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /runs/{id}", s.handleRun)
	return mux
}

// ListenAndServe starts the HTTP server on addr (an OS-assigned port when
// addr is empty) and blocks until the context is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	if addr == "" {
		addr = "localhost:0"
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	s.mu.Lock()
	s.listener = ln
	s.addr = ln.Addr().String()
	s.httpServer = &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 5 * time.Second}
	s.mu.Unlock()

	// Graceful shutdown when context is cancelled.
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.httpServer.Shutdown(shutdownCtx)
	}()

	err = s.httpServer.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	runs, err := s.store.List(r.Context())
	if err != nil {
		http.Error(w, "list runs: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTemplate.Execute(w, runs); err != nil {
		http.Error(w, "render error: "+err.Error(), http.StatusInternalServerError)
	}
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	format, err := ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	id := r.PathValue("id")
	run, err := s.store.Get(r.Context(), id)
	if errors.Is(err, store.ErrRunNotFound) {
		http.Error(w, "run not found: "+id, http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "load run: "+err.Error(), http.StatusInternalServerError)
		return
	}

	switch format {
	case FormatDOT:
		w.Header().Set("Content-Type", "text/vnd.graphviz; charset=utf-8")
	case FormatJSON:
		w.Header().Set("Content-Type", "application/json")
	default:
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	}
	if err := Render(w, run.Snapshot, format); err != nil {
		http.Error(w, "render error: "+err.Error(), http.StatusInternalServerError)
	}
}
