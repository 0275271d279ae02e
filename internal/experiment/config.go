// Package experiment runs one soak test: it sequences threshold checks, the
// time limit, deferred start, motor activation and steady-state detection
// over a live telemetry stream.
package experiment

import (
	"errors"
	"time"

	"github.com/sweeney/rig-monitor/internal/logic"
)

// Config is the immutable set of operator-supplied run parameters.
type Config struct {
	// Name is the run name; outputs land in <output>/<Name>/.
	Name string

	// Append appends to an existing data file instead of truncating.
	Append bool

	// Threshold is the over-temperature stop limit, in °C.
	Threshold float64

	// TimeLimit bounds the run's wall-clock duration.
	TimeLimit time.Duration

	// Speed (Hz) and Gimbal (degrees) configure the wheel. Both must be set
	// together; a run without them still reaches the motor-activation
	// milestone so post-activation steady checking begins.
	Speed  *float64
	Gimbal *float64

	// DeferStart suppresses motor activation and steady checking for an
	// initial grace period. The period counts toward TimeLimit, and the
	// threshold gate stays live throughout.
	DeferStart time.Duration

	// CheckInitSteady requires the rig to be steady before motor activation.
	CheckInitSteady bool

	// Steady configures steady-state detection for both the initial and the
	// post-activation check.
	Steady logic.SteadySettings
}

// Validate rejects configurations that cannot run.
func (c Config) Validate() error {
	if c.Name == "" {
		return errors.New("experiment name must not be empty")
	}
	if (c.Speed == nil) != (c.Gimbal == nil) {
		return errors.New("speed and gimbal must be provided together")
	}
	if c.TimeLimit <= 0 {
		return errors.New("time limit must be positive")
	}
	if c.CheckInitSteady && !c.Steady.Enabled() {
		return errors.New("check-init-steady requires steady-window, steady-threshold and steady-check-every")
	}
	return nil
}
