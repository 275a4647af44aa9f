// Package server exposes the dashboard over a small JSON HTTP API.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/KaramelBytes/datadash-cli/internal/chat"
	"github.com/KaramelBytes/datadash-cli/internal/dashboard"
	"github.com/KaramelBytes/datadash-cli/internal/dataset"
	"github.com/KaramelBytes/datadash-cli/internal/export"
	"github.com/KaramelBytes/datadash-cli/internal/insight"
	"github.com/KaramelBytes/datadash-cli/internal/parser"
)

// Options configures a Server.
type Options struct {
	MaxFileBytes int64
	PageSize     int
}

// Server wires the session store to the insight generator and chat responder.
type Server struct {
	store    *dashboard.Store
	insights *insight.Generator
	chat     *chat.Responder
	opt      Options
}

func New(store *dashboard.Store, gen *insight.Generator, resp *chat.Responder, opt Options) *Server {
	if opt.MaxFileBytes <= 0 {
		opt.MaxFileBytes = 10 << 20
	}
	if opt.PageSize <= 0 {
		opt.PageSize = 10
	}
	return &Server{store: store, insights: gen, chat: resp, opt: opt}
}

// Handler returns the API routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/datasets", s.handleUpload)
	mux.HandleFunc("GET /api/datasets/{id}", s.handleGet)
	mux.HandleFunc("PUT /api/datasets/{id}/file", s.handleReplace)
	mux.HandleFunc("DELETE /api/datasets/{id}", s.handleDelete)
	mux.HandleFunc("GET /api/datasets/{id}/rows", s.handleRows)
	mux.HandleFunc("POST /api/datasets/{id}/insights", s.handleInsights)
	mux.HandleFunc("POST /api/datasets/{id}/chat", s.handleChat)
	mux.HandleFunc("PUT /api/datasets/{id}/chart", s.handleSetChart)
	mux.HandleFunc("GET /api/datasets/{id}/chart.png", s.handleChartPNG)
	return logRequests(mux)
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Printf("🚀 datadash API listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		log.Printf("🛑 shutting down API server")
		return srv.Shutdown(shutdownCtx)
	}
}

// sessionView is the JSON shape returned for a session.
type sessionView struct {
	ID        string                         `json:"id"`
	FileName  string                         `json:"fileName"`
	Columns   []string                       `json:"columns"`
	Kinds     map[string]dataset.ColumnKind  `json:"kinds"`
	Rows      int                            `json:"rows"`
	Stats     map[string]dataset.ColumnStats `json:"stats"`
	Insights  []string                       `json:"insights"`
	Chart     dashboard.Chart                `json:"chart"`
	Error     string                         `json:"error,omitempty"`
	UpdatedAt time.Time                      `json:"updatedAt"`
}

func view(snap dashboard.Snapshot) sessionView {
	v := sessionView{
		ID:        snap.ID,
		FileName:  snap.FileName,
		Columns:   []string{},
		Kinds:     map[string]dataset.ColumnKind{},
		Stats:     map[string]dataset.ColumnStats{},
		Insights:  snap.Insights,
		Chart:     snap.Chart,
		Error:     snap.Error,
		UpdatedAt: snap.UpdatedAt,
	}
	if ds := snap.Dataset; ds != nil {
		v.Columns = ds.Columns
		v.Kinds = ds.Kinds
		v.Rows = ds.Len()
		for _, st := range ds.Stats() {
			v.Stats[st.Column] = st
		}
	}
	return v
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	name, ds, status, err := s.readUpload(w, r)
	if err != nil {
		writeError(w, status, err)
		return
	}
	sess := s.store.Create()
	sess.Load(name, ds)
	s.refreshInsights(r.Context(), sess)
	log.Printf("✓ loaded %s (%d records) into session %s (%d open)", name, ds.Len(), sess.ID(), s.store.Len())
	writeJSON(w, http.StatusCreated, view(sess.Snapshot()))
}

func (s *Server) handleReplace(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	name, ds, status, err := s.readUpload(w, r)
	if err != nil {
		sess.SetError(err)
		writeError(w, status, err)
		return
	}
	sess.Load(name, ds)
	s.refreshInsights(r.Context(), sess)
	writeJSON(w, http.StatusOK, view(sess.Snapshot()))
}

// readUpload parses the multipart "file" field and maps failures to HTTP statuses.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (string, *dataset.Dataset, int, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.opt.MaxFileBytes)
	file, hdr, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return "", nil, http.StatusRequestEntityTooLarge, fmt.Errorf("file exceeds %d bytes", s.opt.MaxFileBytes)
		}
		return "", nil, http.StatusBadRequest, fmt.Errorf("missing multipart field %q: %w", "file", err)
	}
	defer file.Close()

	ds, err := parser.Parse(hdr.Filename, file)
	switch {
	case errors.Is(err, parser.ErrUnsupportedFormat):
		return "", nil, http.StatusUnsupportedMediaType, err
	case err != nil:
		return "", nil, http.StatusBadRequest, err
	}
	if ds.Len() == 0 {
		return "", nil, http.StatusUnprocessableEntity, parser.ErrEmptyDataset
	}
	return hdr.Filename, ds, 0, nil
}

func (s *Server) refreshInsights(ctx context.Context, sess *dashboard.Session) error {
	tk, err := sess.BeginInsights()
	if err != nil {
		return err
	}
	out := s.insights.Generate(ctx, sess.Dataset())
	if err := sess.CommitInsights(tk, out); err != nil {
		log.Printf("⚠ dropped insights for session %s: %v", sess.ID(), err)
		return err
	}
	return nil
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	if sess, ok := s.session(w, r); ok {
		writeJSON(w, http.StatusOK, view(sess.Snapshot()))
	}
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if sess, ok := s.session(w, r); ok {
		s.store.Delete(sess.ID())
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) handleRows(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	ds := sess.Dataset()
	if ds == nil {
		writeError(w, http.StatusConflict, dashboard.ErrNoDataset)
		return
	}
	q := r.URL.Query()
	page := atoiDefault(q.Get("page"), 1)
	size := atoiDefault(q.Get("size"), s.opt.PageSize)
	writeJSON(w, http.StatusOK, dataset.Page(ds.Search(q.Get("q")), page, size))
}

func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	if err := s.refreshInsights(r.Context(), sess); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"insights": sess.Insights()})
}

type chatRequest struct {
	Question string `json:"question"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req chatRequest
	if err := decodeBody(r.Body, &req); err != nil || req.Question == "" {
		writeError(w, http.StatusBadRequest, errors.New(`body must be {"question": "..."}`))
		return
	}
	tk, err := sess.BeginChat()
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	answer := s.chat.Respond(r.Context(), req.Question, sess.Dataset(), sess.Insights())
	if err := sess.Finish(tk); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"answer": answer})
}

func (s *Server) handleSetChart(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var c dashboard.Chart
	if err := decodeBody(r.Body, &c); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := sess.SetChart(c.Type, c.X, c.Y); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, sess.Snapshot().Chart)
}

func (s *Server) handleChartPNG(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	snap := sess.Snapshot()
	if snap.Dataset == nil {
		writeError(w, http.StatusConflict, dashboard.ErrNoDataset)
		return
	}
	spec := export.ChartSpec{Type: snap.Chart.Type, X: snap.Chart.X, Y: snap.Chart.Y}
	spec.Width = atoiDefault(r.URL.Query().Get("width"), 0)
	spec.Height = atoiDefault(r.URL.Query().Get("height"), 0)
	var buf bytes.Buffer
	if err := export.RenderChart(snap.Dataset, spec, &buf); err != nil {
		log.Printf("❌ chart export failed for session %s: %v", snap.ID, err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) session(w http.ResponseWriter, r *http.Request) (*dashboard.Session, bool) {
	sess, err := s.store.Get(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return nil, false
	}
	return sess, true
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, dashboard.ErrBusy), errors.Is(err, dashboard.ErrStale), errors.Is(err, dashboard.ErrNoDataset):
		return http.StatusConflict
	case errors.Is(err, dashboard.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusBadRequest
	}
}

func decodeBody(body io.Reader, v any) error {
	dec := json.NewDecoder(io.LimitReader(body, 1<<20))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode body: %w", err)
	}
	return nil
}

func atoiDefault(s string, def int) int {
	if i, err := strconv.Atoi(s); err == nil && i > 0 {
		return i
	}
	return def
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("⚠ encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.Printf("%s %s -> %d (%s)", r.Method, r.URL.Path, rec.status, time.Since(start).Round(time.Millisecond))
	})
}
