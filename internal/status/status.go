// Package status provides a thread-safe tracker of the current run's state.
// It is read when building lifecycle event payloads, so a snapshot always
// reflects what the control loop has seen so far.
package status

import (
	"sync"
	"time"
)

// RunConfig contains the run parameters for display. This is a local copy to
// avoid importing internal/experiment from status.
type RunConfig struct {
	Name            string
	Broker          string
	Threshold       float64
	TimeLimitS      float64
	DeferStartS     float64
	CheckInitSteady bool
	Speed           *float64
	Gimbal          *float64
	SteadyWindowS   float64
	SteadySigma     float64
	SteadyThreshold float64
	SteadyCheckS    float64
}

// Snapshot is a point-in-time view of run state.
// It is a value type — safe to use after the lock is released.
type Snapshot struct {
	Config         RunConfig
	StartTime      time.Time
	Now            time.Time
	Readings       int
	MotorActivated bool
	StopReason     string
	MQTTConnected  bool
}

// Uptime returns the duration since the run started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable run state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg RunConfig) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// AddReading counts one processed reading.
func (t *Tracker) AddReading() {
	t.mu.Lock()
	t.snap.Readings++
	t.mu.Unlock()
}

// SetMotorActivated marks the motor-activation milestone.
func (t *Tracker) SetMotorActivated() {
	t.mu.Lock()
	t.snap.MotorActivated = true
	t.mu.Unlock()
}

// SetStopReason records why the run ended.
func (t *Tracker) SetStopReason(reason string) {
	t.mu.Lock()
	t.snap.StopReason = reason
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the run state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
