// Package sched is a cooperative, frequency-based task scheduler.
// Tasks are small periodic actions identified by an ActionID; the caller
// repeatedly runs the next-due task and sleeps until the one after it.
// This package has no hardware dependencies; time is injected.
package sched

import "time"

// ActionID identifies a scheduled action. It indexes a fixed slot array.
type ActionID uint8

// MaxTasks is the number of task slots. ActionIDs must be below it.
const MaxTasks = 8

// None is returned by ExecuteNext when no tasks are registered.
const None uint32 = 0

// Runner executes the action for id. It may call Add, Remove or Clear on the
// scheduler that invoked it.
type Runner func(id ActionID)

type task struct {
	active  bool
	lastRun uint32
	period  uint32
}

func (t *task) due() uint32 {
	return t.lastRun + t.period
}

// Scheduler multiplexes periodic actions on the calling goroutine.
// It is not safe for concurrent use.
type Scheduler struct {
	now     func() uint32
	run     Runner
	tasks   [MaxTasks]task
	current int // cached soonest slot, -1 when invalid
	count   int
}

// New creates a Scheduler. now returns a wrapping millisecond clock.
func New(now func() uint32, run Runner) *Scheduler {
	return &Scheduler{
		now:     now,
		run:     run,
		current: -1,
	}
}

// Add registers id to run every period milliseconds. A new task is due on the
// next tick. Adding an id that is already registered only updates its period.
// Ids at or above MaxTasks are ignored.
func (s *Scheduler) Add(id ActionID, period uint32) {
	if int(id) >= MaxTasks {
		return
	}
	if period == 0 {
		period = 1
	}

	t := &s.tasks[id]
	if !t.active {
		t.active = true
		// Wraps when now < period; due still compares as now.
		t.lastRun = s.now() - period
		s.count++
	}
	t.period = period
	s.current = -1
}

// Remove unregisters id. Removing an unregistered id is a no-op.
func (s *Scheduler) Remove(id ActionID) {
	if int(id) >= MaxTasks || !s.tasks[id].active {
		return
	}
	s.tasks[id] = task{}
	s.count--
	s.current = -1
}

// Clear unregisters every task.
func (s *Scheduler) Clear() {
	s.tasks = [MaxTasks]task{}
	s.count = 0
	s.current = -1
}

// Len returns the number of registered tasks.
func (s *Scheduler) Len() int {
	return s.count
}

// Registered reports whether id is scheduled.
func (s *Scheduler) Registered(id ActionID) bool {
	return int(id) < MaxTasks && s.tasks[id].active
}

// Period returns the period of id, or 0 if it is not registered.
func (s *Scheduler) Period(id ActionID) uint32 {
	if !s.Registered(id) {
		return 0
	}
	return s.tasks[id].period
}

// ExecuteNext runs the soonest-due task once and returns the due time of the
// task that will run next, or None when nothing is scheduled. It does not wait
// for the task to become due; callers sleep with SleepFor between calls.
//
// Ties between equally due tasks resolve by slot order. Callers must not rely
// on that order.
func (s *Scheduler) ExecuteNext() uint32 {
	if s.current < 0 {
		s.current = s.soonest()
	}
	if s.current < 0 {
		return None
	}

	slot := s.current
	s.current = -1
	s.run(ActionID(slot))

	// The action may have removed itself, or cleared everything.
	if t := &s.tasks[slot]; t.active {
		t.lastRun = s.now()
	}

	s.current = s.soonest()
	if s.current < 0 {
		return None
	}
	return s.tasks[s.current].due()
}

// soonest scans every slot for the smallest due time. Due times are compared
// by their signed distance from now so the order survives clock wraparound.
func (s *Scheduler) soonest() int {
	now := s.now()
	best := -1
	var bestDelta int32
	for i := range s.tasks {
		t := &s.tasks[i]
		if !t.active {
			continue
		}
		delta := int32(t.due() - now)
		if best < 0 || delta < bestDelta {
			best = i
			bestDelta = delta
		}
	}
	return best
}

// SleepFor returns how long to wait from now until due, clamped to zero when
// due has already passed.
func SleepFor(due, now uint32) time.Duration {
	delta := int32(due - now)
	if delta <= 0 {
		return 0
	}
	return time.Duration(delta) * time.Millisecond
}
