// Package dashboard holds the application state for one loaded dataset: the parsed
// data, the current insights and the chart selection.
package dashboard

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/KaramelBytes/datadash-cli/internal/dataset"
	"github.com/google/uuid"
)

var (
	// ErrStale is returned when a completion belongs to a dataset that has since been replaced.
	ErrStale = errors.New("result is stale: dataset was replaced")
	// ErrBusy is returned when the same operation is already running for the session.
	ErrBusy = errors.New("operation already in progress")
	// ErrNotFound is returned by Store for unknown session IDs.
	ErrNotFound = errors.New("session not found")
	// ErrNoDataset is returned when an operation needs data before any was loaded.
	ErrNoDataset = errors.New("no dataset loaded")
)

// ChartTypes lists the supported chart kinds in display order.
var ChartTypes = []string{"bar", "line", "pie", "doughnut", "scatter"}

// Chart is the current visualization selection.
type Chart struct {
	Type string `json:"type"`
	X    string `json:"x"`
	Y    string `json:"y"`
}

// Snapshot is a point-in-time copy of a session, safe to read without locks.
type Snapshot struct {
	ID        string           `json:"id"`
	FileName  string           `json:"fileName"`
	Dataset   *dataset.Dataset `json:"-"`
	Insights  []string         `json:"insights"`
	Chart     Chart            `json:"chart"`
	Error     string           `json:"error,omitempty"`
	UpdatedAt time.Time        `json:"updatedAt"`
}

// Ticket identifies the dataset generation an async operation started against.
type Ticket struct {
	gen uint64
	op  op
}

type op int

const (
	opInsights op = iota
	opChat
)

// Session is the explicit state for one dashboard. All methods are safe for
// concurrent use.
type Session struct {
	mu        sync.RWMutex
	id        string
	fileName  string
	ds        *dataset.Dataset
	insights  []string
	chart     Chart
	lastErr   string
	gen       uint64
	inFlight  map[op]bool
	updatedAt time.Time
}

// NewSession returns an empty session with a fresh ID.
func NewSession() *Session {
	return &Session{
		id:        uuid.NewString(),
		chart:     Chart{Type: "bar"},
		inFlight:  make(map[op]bool),
		updatedAt: time.Now(),
	}
}

func (s *Session) ID() string { return s.id }

// Load replaces the dataset, clears insights and picks default axes.
// Any operation begun before Load completes as stale.
func (s *Session) Load(fileName string, ds *dataset.Dataset) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fileName = fileName
	s.ds = ds
	s.insights = nil
	s.lastErr = ""
	s.chart = Chart{Type: s.chart.Type}
	if ds != nil && len(ds.Columns) > 0 {
		s.chart.X = ds.Columns[0]
		if num := ds.NumericColumns(); len(num) > 0 {
			s.chart.Y = num[0]
		}
	}
	s.gen++
	s.inFlight = make(map[op]bool)
	s.updatedAt = time.Now()
}

// SetError records a user-visible failure, e.g. a rejected upload.
func (s *Session) SetError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		s.lastErr = ""
	} else {
		s.lastErr = err.Error()
	}
	s.updatedAt = time.Now()
}

// Dataset returns the loaded dataset, or nil.
func (s *Session) Dataset() *dataset.Dataset {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ds
}

// Insights returns a copy of the current insights.
func (s *Session) Insights() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.insights...)
}

// Snapshot copies the session state.
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		ID:        s.id,
		FileName:  s.fileName,
		Dataset:   s.ds,
		Insights:  append([]string{}, s.insights...),
		Chart:     s.chart,
		Error:     s.lastErr,
		UpdatedAt: s.updatedAt,
	}
}

// BeginInsights marks an insight refresh as running.
func (s *Session) BeginInsights() (Ticket, error) { return s.begin(opInsights) }

// BeginChat marks a chat question as running.
func (s *Session) BeginChat() (Ticket, error) { return s.begin(opChat) }

func (s *Session) begin(o op) (Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ds == nil {
		return Ticket{}, ErrNoDataset
	}
	if s.inFlight[o] {
		return Ticket{}, ErrBusy
	}
	s.inFlight[o] = true
	return Ticket{gen: s.gen, op: o}, nil
}

// CommitInsights stores the insights computed under t. A ticket from an older
// generation is discarded with ErrStale.
func (s *Session) CommitInsights(t Ticket, insights []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.gen != s.gen {
		return ErrStale
	}
	s.inFlight[opInsights] = false
	s.insights = append([]string(nil), insights...)
	s.updatedAt = time.Now()
	return nil
}

// Finish releases the in-flight flag held by t. It reports ErrStale when the
// dataset changed while the operation ran, in which case the result must be dropped.
func (s *Session) Finish(t Ticket) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.gen != s.gen {
		return ErrStale
	}
	s.inFlight[t.op] = false
	return nil
}

// SetChart validates and applies a chart selection.
func (s *Session) SetChart(chartType, x, y string) error {
	if !ValidChartType(chartType) {
		return fmt.Errorf("unsupported chart type %q", chartType)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ds == nil {
		return ErrNoDataset
	}
	for _, axis := range []string{x, y} {
		if !s.ds.HasColumn(axis) {
			return fmt.Errorf("unknown column %q", axis)
		}
	}
	s.chart = Chart{Type: chartType, X: x, Y: y}
	s.updatedAt = time.Now()
	return nil
}

// ValidChartType reports whether t is one of ChartTypes.
func ValidChartType(t string) bool {
	for _, c := range ChartTypes {
		if c == t {
			return true
		}
	}
	return false
}
