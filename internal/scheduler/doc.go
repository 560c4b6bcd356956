// Package scheduler runs delayed and periodic jobs with cancellable,
// idempotent handles.
//
// Every timer-driven behaviour in the gateway (reconnect backoff, the
// heartbeat window, the device refresh cycle and staggered runtime
// queries) goes through a Scheduler, so tests can drive time with a
// FakeClock instead of sleeping.
//
// # Keys
//
// Jobs scheduled under a non-empty key are unique: while "reconnect" is
// pending, scheduling "reconnect" again returns the existing job. Keys
// also make group cancellation cheap:
//
//	s.Every("conn/refresh", settle, period, refresh)
//	s.Schedule("conn/poll/42", time.Second, poll)
//	...
//	s.CancelPrefix("conn/") // leaving the connected state
//
// # Execution
//
// Job bodies run one at a time. A body may schedule, reschedule or cancel
// any job, including its own key.
package scheduler
