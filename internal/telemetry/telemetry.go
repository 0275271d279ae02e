// Package telemetry reads sensor samples from the vendor's streaming CLI.
// The real implementation consumes line-delimited JSON from a subprocess.
// The fake implementation allows testing without the rig.
package telemetry

// ReadCommand launches the vendor feed: one JSON object per line on stdout,
// sampled at 1 Hz.
var ReadCommand = []string{
	"thermo-cli", "fuse", "-C", "thermo_config.yaml", "--", "--power", "-s", "1",
}

// Reading is one flattened telemetry sample. Keys holds the column order
// (TIME first, then POWER_* and THERMO_* channels); Values maps each key to
// its numeric value. A Reading is immutable once built.
type Reading struct {
	Keys   []string
	Values map[string]float64
}

// Time returns the sample time in seconds since the Unix epoch.
func (r Reading) Time() float64 {
	return r.Values[TimeKey]
}

// TimeKey is the mandatory per-sample time column.
const TimeKey = "TIME"

// Source produces a stream of readings.
type Source interface {
	// Readings returns the stream channel. It is closed when the feed ends,
	// either because the producer exhausted or because of an error; check
	// Err after the channel closes.
	Readings() <-chan Reading

	// Err returns the terminal error, if any, after Readings is closed.
	Err() error

	// Close stops the feed and releases its resources.
	Close() error
}
