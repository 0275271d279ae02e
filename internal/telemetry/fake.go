package telemetry

import "sort"

// FakeSource is a test double that streams scripted readings.
type FakeSource struct {
	readings chan Reading

	// FinalErr, if set, is reported by Err after the stream drains.
	FinalErr error

	// Closed tracks if Close was called.
	Closed bool
}

// NewFakeSource creates a FakeSource that delivers the given readings in
// order and then ends the stream.
func NewFakeSource(readings []Reading) *FakeSource {
	ch := make(chan Reading, len(readings))
	for _, r := range readings {
		ch <- r
	}
	close(ch)
	return &FakeSource{readings: ch}
}

// Readings returns the scripted stream.
func (f *FakeSource) Readings() <-chan Reading {
	return f.readings
}

// Err returns the scripted terminal error.
func (f *FakeSource) Err() error {
	return f.FinalErr
}

// Close marks the source as closed.
func (f *FakeSource) Close() error {
	f.Closed = true
	return nil
}

// MakeReading builds a Reading for tests: TIME plus the given channel values,
// columns in TIME-first sorted order like Parse produces.
func MakeReading(time float64, values map[string]float64) Reading {
	all := map[string]float64{TimeKey: time}
	keys := []string{TimeKey}
	for key, value := range values {
		all[key] = value
	}
	for _, key := range sortedKeys(values) {
		keys = append(keys, key)
	}
	return Reading{Keys: keys, Values: all}
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
