package session

import (
	"errors"
	"sync"
	"time"

	"chart-signal/api/internal/analysis"
	"chart-signal/api/internal/intake"
)

type State int

const (
	Idle State = iota
	Loading
	Success
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Success:
		return "success"
	case Failed:
		return "failed"
	}
	return "unknown"
}

var (
	ErrBusy    = errors.New("analysis already in progress")
	ErrNoImage = errors.New("no chart image selected")
)

// Session is the per-chat lifecycle of one chart: pick an image, run one
// analysis at a time, show the result or the failure message.
type Session struct {
	mu       sync.Mutex
	state    State
	image    *analysis.Image
	preview  intake.Preview
	result   *analysis.Result
	warnings []string
	errMsg   string
	gen      uint64
	updated  time.Time
}

// Ticket identifies one started analysis. Complete ignores tickets whose
// generation is no longer current.
type Ticket struct {
	Generation uint64
	Image      analysis.Image
}

type Snapshot struct {
	State      State
	HasImage   bool
	Preview    intake.Preview
	Result     *analysis.Result
	Warnings   []string
	Error      string
	Generation uint64
	UpdatedAt  time.Time
}

func New() *Session { return &Session{updated: time.Now()} }

// SetImage replaces the current chart and drops any previous outcome.
func (s *Session) SetImage(img analysis.Image, p intake.Preview) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Loading {
		return ErrBusy
	}
	s.image = &img
	s.preview = p
	s.clearOutcome()
	s.state = Idle
	s.gen++
	s.updated = time.Now()
	return nil
}

// Begin moves the session to Loading. A second Begin before Complete fails
// with ErrBusy, so one user action yields at most one request.
func (s *Session) Begin() (Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Loading {
		return Ticket{}, ErrBusy
	}
	if s.image == nil {
		return Ticket{}, ErrNoImage
	}
	s.clearOutcome()
	s.state = Loading
	s.gen++
	s.updated = time.Now()
	return Ticket{Generation: s.gen, Image: *s.image}, nil
}

// Complete stores the outcome of t. It reports false when t is stale
// (the session was reset or got a new image meanwhile).
func (s *Session) Complete(t Ticket, r analysis.Result, warnings []string, err error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Loading || t.Generation != s.gen {
		return false
	}
	if err != nil {
		s.state = Failed
		s.errMsg = analysis.UserFacing(err)
	} else {
		s.state = Success
		s.result = &r
		s.warnings = warnings
	}
	s.updated = time.Now()
	return true
}

// Reset returns to Idle without an image. An analysis in flight becomes stale.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.image = nil
	s.preview = intake.Preview{}
	s.clearOutcome()
	s.state = Idle
	s.gen++
	s.updated = time.Now()
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		State:      s.state,
		HasImage:   s.image != nil,
		Preview:    s.preview,
		Error:      s.errMsg,
		Generation: s.gen,
		UpdatedAt:  s.updated,
	}
	if s.result != nil {
		r := *s.result
		snap.Result = &r
		snap.Warnings = append([]string(nil), s.warnings...)
	}
	return snap
}

func (s *Session) clearOutcome() {
	s.result = nil
	s.warnings = nil
	s.errMsg = ""
}

// Store keeps one Session per chat.
type Store struct {
	m sync.Map // chatID -> *Session
}

func NewStore() *Store { return &Store{} }

func (st *Store) Get(chatID int64) *Session {
	if v, ok := st.m.Load(chatID); ok {
		return v.(*Session)
	}
	v, _ := st.m.LoadOrStore(chatID, New())
	return v.(*Session)
}

func (st *Store) Delete(chatID int64) { st.m.Delete(chatID) }
