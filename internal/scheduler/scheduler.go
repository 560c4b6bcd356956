package scheduler

import (
	"strings"
	"sync"
	"time"
)

// Logger receives panics recovered from job bodies.
type Logger interface {
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Error(string, ...any) {}

type jobState int

const (
	jobPending jobState = iota
	jobRunning
	jobDone
	jobCancelled
)

// Job is a handle to a scheduled function.
type Job struct {
	s      *Scheduler
	key    string
	period time.Duration
	fn     func()

	// Guarded by s.mu.
	timer Timer
	state jobState
	runs  int
}

// Key returns the key the job was scheduled under ("" for anonymous jobs).
func (j *Job) Key() string { return j.key }

// Cancel stops the job. A job cancelled before its body starts never runs.
// Cancelling a fired or already cancelled job is a no-op that returns false.
func (j *Job) Cancel() bool {
	if j == nil || j.s == nil {
		return false
	}
	j.s.mu.Lock()
	defer j.s.mu.Unlock()
	return j.s.cancelLocked(j)
}

// Runs returns how many times the job body has completed.
func (j *Job) Runs() int {
	if j == nil || j.s == nil {
		return 0
	}
	j.s.mu.Lock()
	defer j.s.mu.Unlock()
	return j.runs
}

// Scheduler runs delayed and periodic jobs against a Clock.
//
// Keyed scheduling is idempotent: while a job with a given key is pending,
// scheduling the same key again is a no-op. Job bodies execute one at a
// time, in the order their timers fire, and may freely schedule or cancel
// other jobs (including their own key).
//
// Thread Safety: All methods are safe for concurrent use.
type Scheduler struct {
	clock  Clock
	logger Logger

	mu     sync.Mutex
	keyed  map[string]*Job
	all    map[*Job]struct{}
	closed bool

	// runMu serialises job bodies.
	runMu sync.Mutex
}

// New creates a Scheduler driven by clock. A nil clock means RealClock.
func New(clock Clock) *Scheduler {
	if clock == nil {
		clock = RealClock()
	}
	return &Scheduler{
		clock:  clock,
		logger: noopLogger{},
		keyed:  make(map[string]*Job),
		all:    make(map[*Job]struct{}),
	}
}

// SetLogger sets the logger used for recovered panics.
func (s *Scheduler) SetLogger(logger Logger) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if logger == nil {
		logger = noopLogger{}
	}
	s.logger = logger
}

// Clock returns the scheduler's time source.
func (s *Scheduler) Clock() Clock { return s.clock }

// Schedule runs fn once after delay.
//
// If key is non-empty and a job with that key is already pending, nothing
// is scheduled and the pending job is returned with false.
func (s *Scheduler) Schedule(key string, delay time.Duration, fn func()) (*Job, bool) {
	return s.add(key, delay, 0, fn, false)
}

// Reschedule cancels any pending job with key and schedules fn in its place.
func (s *Scheduler) Reschedule(key string, delay time.Duration, fn func()) *Job {
	j, _ := s.add(key, delay, 0, fn, true)
	return j
}

// Every runs fn after initial and then every period until cancelled.
// Keyed idempotency is the same as Schedule.
func (s *Scheduler) Every(key string, initial, period time.Duration, fn func()) (*Job, bool) {
	if period <= 0 {
		return s.add(key, initial, 0, fn, false)
	}
	return s.add(key, initial, period, fn, false)
}

// Cancel cancels the pending job with key. It reports whether a job was cancelled.
func (s *Scheduler) Cancel(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.keyed[key]
	if !ok {
		return false
	}
	return s.cancelLocked(j)
}

// CancelPrefix cancels every keyed job whose key starts with prefix and
// returns how many were cancelled.
func (s *Scheduler) CancelPrefix(prefix string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	var victims []*Job
	for key, j := range s.keyed {
		if strings.HasPrefix(key, prefix) {
			victims = append(victims, j)
		}
	}

	n := 0
	for _, j := range victims {
		if s.cancelLocked(j) {
			n++
		}
	}
	return n
}

// CancelAll cancels every job, keyed or not.
func (s *Scheduler) CancelAll() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelAllLocked()
}

// Pending reports whether a job with key is waiting to run.
func (s *Scheduler) Pending(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.keyed[key]
	return ok && j.state == jobPending
}

// Len returns the number of live jobs.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.all)
}

// Close cancels all jobs. Later scheduling calls return cancelled jobs.
func (s *Scheduler) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.cancelAllLocked()
}

func (s *Scheduler) add(key string, delay, period time.Duration, fn func(), replace bool) (*Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return &Job{key: key, state: jobCancelled}, false
	}

	if key != "" {
		if existing, ok := s.keyed[key]; ok {
			if !replace {
				return existing, false
			}
			s.cancelLocked(existing)
		}
	}

	j := &Job{s: s, key: key, period: period, fn: fn}
	s.all[j] = struct{}{}
	if key != "" {
		s.keyed[key] = j
	}
	s.armLocked(j, delay)
	return j, true
}

func (s *Scheduler) armLocked(j *Job, delay time.Duration) {
	j.state = jobPending
	j.timer = s.clock.AfterFunc(delay, func() { s.fire(j) })
}

func (s *Scheduler) fire(j *Job) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	s.mu.Lock()
	if j.state != jobPending {
		s.mu.Unlock()
		return
	}
	j.state = jobRunning
	if j.period == 0 {
		// A one-shot job frees its key before running so the body can
		// schedule the same key again.
		s.removeLocked(j)
	}
	s.mu.Unlock()

	s.run(j)

	s.mu.Lock()
	defer s.mu.Unlock()

	j.runs++
	if j.state == jobCancelled {
		return
	}
	if j.period > 0 && !s.closed {
		s.armLocked(j, j.period)
		return
	}
	j.state = jobDone
	s.removeLocked(j)
}

func (s *Scheduler) run(j *Job) {
	defer func() {
		if r := recover(); r != nil {
			s.mu.Lock()
			logger := s.logger
			s.mu.Unlock()
			logger.Error("scheduled job panic recovered", "job", j.key, "panic", r)
		}
	}()
	j.fn()
}

func (s *Scheduler) cancelLocked(j *Job) bool {
	switch j.state {
	case jobPending:
		if j.timer != nil {
			j.timer.Stop()
		}
	case jobRunning:
		// Periodic job cancelled from inside its own body: stop re-arming.
		if j.period == 0 {
			return false
		}
	default:
		return false
	}
	j.state = jobCancelled
	s.removeLocked(j)
	return true
}

func (s *Scheduler) cancelAllLocked() int {
	victims := make([]*Job, 0, len(s.all))
	for j := range s.all {
		victims = append(victims, j)
	}
	n := 0
	for _, j := range victims {
		if s.cancelLocked(j) {
			n++
		}
	}
	return n
}

func (s *Scheduler) removeLocked(j *Job) {
	delete(s.all, j)
	if j.key != "" && s.keyed[j.key] == j {
		delete(s.keyed, j.key)
	}
}
