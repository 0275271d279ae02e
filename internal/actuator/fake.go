package actuator

import "errors"

// Activation records one Activate call.
type Activation struct {
	Speed  float64
	Gimbal float64
}

// FakeDriver is a test double that records wheel commands.
type FakeDriver struct {
	// Activations contains all Activate calls in order.
	Activations []Activation

	// IdleCalls counts Idle invocations, including failed ones.
	IdleCalls int

	// ActivateError, if set, will be returned by Activate.
	ActivateError error

	// IdleFailures makes the first N Idle calls fail.
	IdleFailures int
}

// NewFakeDriver creates a FakeDriver for testing.
func NewFakeDriver() *FakeDriver {
	return &FakeDriver{}
}

// Activate records the activation.
func (f *FakeDriver) Activate(speed, gimbal float64) error {
	if f.ActivateError != nil {
		return f.ActivateError
	}
	f.Activations = append(f.Activations, Activation{Speed: speed, Gimbal: gimbal})
	return nil
}

// Idle records the call, failing while IdleFailures remain.
func (f *FakeDriver) Idle() error {
	f.IdleCalls++
	if f.IdleFailures > 0 {
		f.IdleFailures--
		return errFakeIdle
	}
	return nil
}

// Reset clears recorded calls.
func (f *FakeDriver) Reset() {
	f.Activations = nil
	f.IdleCalls = 0
	f.ActivateError = nil
	f.IdleFailures = 0
}

var errFakeIdle = errors.New("fake idle failure")
