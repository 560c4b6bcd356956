package scheduler

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func newFake() (*Scheduler, *FakeClock) {
	clock := NewFakeClock(epoch)
	return New(clock), clock
}

// ============================================================================
// One-shot jobs
// ============================================================================

func TestSchedule_FiresAfterDelay(t *testing.T) {
	s, clock := newFake()
	var runs int

	_, created := s.Schedule("a", 5*time.Second, func() { runs++ })
	require.True(t, created)

	clock.Advance(4 * time.Second)
	assert.Equal(t, 0, runs)
	assert.True(t, s.Pending("a"))

	clock.Advance(time.Second)
	assert.Equal(t, 1, runs)
	assert.False(t, s.Pending("a"))
	assert.Equal(t, 0, s.Len())

	clock.Advance(time.Hour)
	assert.Equal(t, 1, runs)
}

func TestSchedule_KeyIsIdempotent(t *testing.T) {
	s, clock := newFake()
	var runs int

	first, created := s.Schedule("reconnect", 20*time.Second, func() { runs++ })
	require.True(t, created)

	second, created := s.Schedule("reconnect", time.Second, func() { runs += 100 })
	assert.False(t, created)
	assert.Same(t, first, second)

	clock.Advance(time.Minute)
	assert.Equal(t, 1, runs)
}

func TestSchedule_AnonymousJobsAreIndependent(t *testing.T) {
	s, clock := newFake()
	var runs int

	for i := 0; i < 3; i++ {
		_, created := s.Schedule("", time.Second, func() { runs++ })
		require.True(t, created)
	}
	assert.Equal(t, 3, s.Len())

	clock.Advance(time.Second)
	assert.Equal(t, 3, runs)
}

func TestSchedule_DeadlineOrder(t *testing.T) {
	s, clock := newFake()
	var order []string

	s.Schedule("late", 3*time.Second, func() { order = append(order, "late") })
	s.Schedule("early", time.Second, func() { order = append(order, "early") })
	s.Schedule("mid", 2*time.Second, func() { order = append(order, "mid") })

	clock.Advance(10 * time.Second)
	assert.Equal(t, []string{"early", "mid", "late"}, order)
}

func TestSchedule_BodyCanRescheduleOwnKey(t *testing.T) {
	s, clock := newFake()
	var attempts int

	var attempt func()
	attempt = func() {
		attempts++
		if attempts < 3 {
			_, created := s.Schedule("reconnect", 20*time.Second, attempt)
			assert.True(t, created)
		}
	}
	s.Schedule("reconnect", 20*time.Second, attempt)

	clock.Advance(20 * time.Second)
	assert.Equal(t, 1, attempts)
	assert.True(t, s.Pending("reconnect"))

	clock.Advance(40 * time.Second)
	assert.Equal(t, 3, attempts)
	assert.False(t, s.Pending("reconnect"))
}

func TestSchedule_ZeroDelayFromBodyRunsInSameAdvance(t *testing.T) {
	s, clock := newFake()
	var ran bool

	s.Schedule("outer", time.Second, func() {
		s.Schedule("inner", 0, func() { ran = true })
	})

	clock.Advance(time.Second)
	assert.True(t, ran)
}

// ============================================================================
// Cancellation
// ============================================================================

func TestCancel_PreventsRun(t *testing.T) {
	s, clock := newFake()
	var runs int

	job, _ := s.Schedule("a", time.Second, func() { runs++ })
	assert.True(t, job.Cancel())
	assert.False(t, job.Cancel(), "second cancel is a no-op")

	clock.Advance(time.Minute)
	assert.Equal(t, 0, runs)
	assert.Equal(t, 0, clock.PendingTimers())
}

func TestCancel_AfterFireIsNoop(t *testing.T) {
	s, clock := newFake()
	job, _ := s.Schedule("a", time.Second, func() {})

	clock.Advance(time.Second)
	assert.False(t, job.Cancel())
	assert.Equal(t, 1, job.Runs())
}

func TestCancel_ByKey(t *testing.T) {
	s, clock := newFake()
	var runs int
	s.Schedule("a", time.Second, func() { runs++ })

	assert.True(t, s.Cancel("a"))
	assert.False(t, s.Cancel("a"))
	assert.False(t, s.Cancel("missing"))

	clock.Advance(time.Minute)
	assert.Equal(t, 0, runs)

	// The key is free again.
	_, created := s.Schedule("a", time.Second, func() { runs++ })
	assert.True(t, created)
	clock.Advance(time.Second)
	assert.Equal(t, 1, runs)
}

func TestCancel_NilAndClosedJobs(t *testing.T) {
	var nilJob *Job
	assert.False(t, nilJob.Cancel())
	assert.Equal(t, 0, nilJob.Runs())

	s, _ := newFake()
	s.Close()
	job, created := s.Schedule("a", time.Second, func() {})
	assert.False(t, created)
	assert.False(t, job.Cancel())
}

func TestCancelPrefix(t *testing.T) {
	s, clock := newFake()
	var fired []string
	record := func(name string) func() { return func() { fired = append(fired, name) } }

	s.Schedule("reconnect", time.Second, record("reconnect"))
	s.Schedule("conn/heartbeat", time.Second, record("conn/heartbeat"))
	s.Every("conn/refresh", time.Second, time.Minute, record("conn/refresh"))
	s.Schedule("conn/poll/1", time.Second, record("conn/poll/1"))

	assert.Equal(t, 3, s.CancelPrefix("conn/"))

	clock.Advance(time.Hour)
	assert.Equal(t, []string{"reconnect"}, fired)
}

func TestCancel_FromAnotherJobBody(t *testing.T) {
	s, clock := newFake()
	var victimRan bool

	s.Schedule("killer", time.Second, func() { s.Cancel("victim") })
	s.Schedule("victim", time.Second, func() { victimRan = true })

	clock.Advance(time.Second)
	assert.False(t, victimRan)
}

func TestClose(t *testing.T) {
	s, clock := newFake()
	var runs int
	s.Schedule("a", time.Second, func() { runs++ })
	s.Every("b", time.Second, time.Second, func() { runs++ })

	s.Close()
	assert.Equal(t, 0, s.Len())

	clock.Advance(time.Minute)
	assert.Equal(t, 0, runs)
}

// ============================================================================
// Reschedule
// ============================================================================

func TestReschedule_ReplacesPendingJob(t *testing.T) {
	s, clock := newFake()
	var expired int
	expire := func() { expired++ }

	s.Reschedule("heartbeat", 120*time.Second, expire)
	clock.Advance(100 * time.Second)
	s.Reschedule("heartbeat", 120*time.Second, expire)

	clock.Advance(119 * time.Second)
	assert.Equal(t, 0, expired)
	assert.Equal(t, epoch.Add(219*time.Second), clock.Now())

	clock.Advance(time.Second)
	assert.Equal(t, 1, expired)
	assert.Equal(t, epoch.Add(220*time.Second), clock.Now())
}

// ============================================================================
// Periodic jobs
// ============================================================================

func TestEvery_RepeatsUntilCancelled(t *testing.T) {
	s, clock := newFake()
	var times []time.Duration

	job, created := s.Every("refresh", 5*time.Second, 5*time.Minute, func() {
		times = append(times, clock.Now().Sub(epoch))
	})
	require.True(t, created)

	clock.Advance(5*time.Second + 10*time.Minute)
	assert.Equal(t, []time.Duration{
		5 * time.Second,
		5*time.Second + 5*time.Minute,
		5*time.Second + 10*time.Minute,
	}, times)
	assert.Equal(t, 3, job.Runs())
	assert.True(t, s.Pending("refresh"))

	assert.True(t, job.Cancel())
	clock.Advance(time.Hour)
	assert.Len(t, times, 3)
}

func TestEvery_KeyIsIdempotent(t *testing.T) {
	s, clock := newFake()
	var runs int

	s.Every("refresh", time.Second, time.Minute, func() { runs++ })
	_, created := s.Every("refresh", time.Second, time.Second, func() { runs += 100 })
	assert.False(t, created)

	clock.Advance(time.Second)
	assert.Equal(t, 1, runs)
}

func TestEvery_CancelFromOwnBody(t *testing.T) {
	s, clock := newFake()
	var runs int

	s.Every("tick", time.Second, time.Second, func() {
		runs++
		if runs == 2 {
			s.Cancel("tick")
		}
	})

	clock.Advance(10 * time.Second)
	assert.Equal(t, 2, runs)
	assert.Equal(t, 0, s.Len())
}

func TestEvery_NonPositivePeriodRunsOnce(t *testing.T) {
	s, clock := newFake()
	var runs int

	s.Every("once", time.Second, 0, func() { runs++ })
	clock.Advance(time.Minute)
	assert.Equal(t, 1, runs)
}

// ============================================================================
// Robustness
// ============================================================================

type recordingLogger struct {
	mu   sync.Mutex
	msgs []string
}

func (l *recordingLogger) Error(msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.msgs = append(l.msgs, msg)
}

func TestPanicIsRecovered(t *testing.T) {
	s, clock := newFake()
	logger := &recordingLogger{}
	s.SetLogger(logger)

	var after bool
	s.Schedule("boom", time.Second, func() { panic("boom") })
	s.Schedule("after", 2*time.Second, func() { after = true })

	clock.Advance(time.Minute)
	assert.True(t, after)
	assert.Len(t, logger.msgs, 1)
}

func TestRealClock_Fires(t *testing.T) {
	s := New(nil)
	defer s.Close()

	done := make(chan struct{})
	s.Schedule("real", 10*time.Millisecond, func() { close(done) })

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("job did not fire")
	}
}

func TestRealClock_BodiesDoNotOverlap(t *testing.T) {
	s := New(RealClock())
	defer s.Close()

	var active, maxActive int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		s.Schedule("", time.Millisecond, func() {
			defer wg.Done()
			n := atomic.AddInt32(&active, 1)
			for {
				m := atomic.LoadInt32(&maxActive)
				if n <= m || atomic.CompareAndSwapInt32(&maxActive, m, n) {
					break
				}
			}
			time.Sleep(2 * time.Millisecond)
			atomic.AddInt32(&active, -1)
		})
	}
	wg.Wait()
	assert.Equal(t, int32(1), atomic.LoadInt32(&maxActive))
}
