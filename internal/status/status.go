// Package status provides a thread-safe status tracker for the radar-sensor
// daemon. The control loop writes it; heartbeat and status-file output read it.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/radar-sensor/internal/radar"
)

// Config contains daemon configuration for display.
type Config struct {
	WarningMM        uint32
	AlertMM          uint32
	CautionMM        uint32
	StandbyTimeoutMs int64
	HeartbeatMs      int64
	Chip             string
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	Radar        radar.Snapshot
	Started      bool
	DroppedEdges uint32
	StartTime    time.Time
	Now          time.Time
	Config       Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// Update records the controller's view. Called from the run loop after every
// tick.
func (t *Tracker) Update(rs radar.Snapshot) {
	t.mu.Lock()
	t.snap.Radar = rs
	t.snap.Started = true
	t.mu.Unlock()
}

// SetDroppedEdges records how many echo edges the board discarded.
func (t *Tracker) SetDroppedEdges(n uint32) {
	t.mu.Lock()
	t.snap.DroppedEdges = n
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
