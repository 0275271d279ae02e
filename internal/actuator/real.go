package actuator

import (
	"fmt"
	"os/exec"
	"strings"
)

// Vendor command words for the wheel controller.
var (
	IdleCommand  = []string{"cmg-cli", "set", "--idle"}
	WheelCommand = []string{"cmg-cli", "set", "--wheel"}
)

// RealDriver drives the wheel by invoking the vendor CLI.
type RealDriver struct {
	idleCmd  []string
	wheelCmd []string
}

// NewRealDriver creates a driver using the standard vendor commands.
func NewRealDriver() *RealDriver {
	return &RealDriver{
		idleCmd:  IdleCommand,
		wheelCmd: WheelCommand,
	}
}

// NewBenchDriver creates a driver that invokes a substitute binary with the
// same argument grammar as the vendor CLI. For bench testing without the rig.
func NewBenchDriver(bin string) *RealDriver {
	return &RealDriver{
		idleCmd:  append([]string{bin}, IdleCommand[1:]...),
		wheelCmd: append([]string{bin}, WheelCommand[1:]...),
	}
}

// Activate runs the wheel command with "speed,gimbal" appended.
func (d *RealDriver) Activate(speed, gimbal float64) error {
	args := append(append([]string(nil), d.wheelCmd[1:]...),
		fmt.Sprintf("%g,%g", speed, gimbal))
	return run(d.wheelCmd[0], args)
}

// Idle runs the idle command.
func (d *RealDriver) Idle() error {
	return run(d.idleCmd[0], d.idleCmd[1:])
}

func run(name string, args []string) error {
	out, err := exec.Command(name, args...).CombinedOutput()
	if err != nil {
		msg := strings.TrimSpace(string(out))
		if msg != "" {
			return fmt.Errorf("%s %s: %w: %s", name, strings.Join(args, " "), err, msg)
		}
		return fmt.Errorf("%s %s: %w", name, strings.Join(args, " "), err)
	}
	return nil
}
