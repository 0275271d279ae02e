// Package logic contains pure decision logic for the soak rig: the
// over-temperature gate and the steady-state tracker. This package has NO
// external I/O (no subprocess, MQTT, or files). Time always comes from the
// reading's own TIME value.
package logic

// ThresholdChannels are the channels checked against the over-temperature
// threshold.
var ThresholdChannels = []string{
	"POWER_TMP2",
	"POWER_TMP3",
	"THERMO_X_TEMP",
	"THERMO_Z_TEMP",
	"THERMO_SP_TEMP",
	"THERMO_NSP_TEMP",
}

// SteadyChannels are the channels tracked for steady-state detection.
var SteadyChannels = []string{
	"THERMO_X_TEMP",
	"THERMO_Z_TEMP",
	"THERMO_SP_TEMP",
	"THERMO_NSP_TEMP",
}

// SteadySettings configures steady-state detection. All durations are in
// seconds of data time; zero or negative means unset.
type SteadySettings struct {
	// Window is the trailing history span kept per channel.
	Window float64
	// Sigma is the Gaussian smoothing width. Unset means no smoothing.
	Sigma float64
	// Threshold is the maximum smoothed standard deviation, in °C.
	Threshold float64
	// CheckEvery rate-limits per-channel evaluation.
	CheckEvery float64
}

// Enabled reports whether steady checking is active: window, threshold and
// check interval must all be set. Sigma alone does not enable it.
func (s SteadySettings) Enabled() bool {
	return s.Window > 0 && s.Threshold > 0 && s.CheckEvery > 0
}

// Check records one channel evaluation performed by the steady tracker.
type Check struct {
	Channel string
	// Std is the population standard deviation of the smoothed history.
	Std float64
	// Span is the history span that was evaluated, in seconds.
	Span   float64
	Steady bool
}
