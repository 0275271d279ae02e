// Package actuator drives the momentum wheel through the vendor CLI.
// The real implementation shells out to cmg-cli; the fake implementation
// allows testing without the rig.
package actuator

// Driver issues wheel commands to the device.
type Driver interface {
	// Activate spins up the wheel at the given speed (Hz) and gimbal angle
	// (degrees). Returns an error if the vendor command exits non-zero.
	Activate(speed, gimbal float64) error

	// Idle returns the device to idle. Idempotent: calling it when the
	// device is already idle succeeds trivially.
	Idle() error
}
