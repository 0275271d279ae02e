package runlog

import "github.com/sweeney/rig-monitor/internal/telemetry"

// FakeRecorder records logged readings for test assertions.
type FakeRecorder struct {
	// Columns contains the readings passed to LogColumns.
	Columns []telemetry.Reading

	// Rows contains the readings passed to LogRow.
	Rows []telemetry.Reading

	// RowError, if set, will be returned by LogRow.
	RowError error
}

// NewFakeRecorder creates a FakeRecorder for testing.
func NewFakeRecorder() *FakeRecorder {
	return &FakeRecorder{}
}

// LogColumns records the header reading.
func (f *FakeRecorder) LogColumns(r telemetry.Reading) error {
	f.Columns = append(f.Columns, r)
	return nil
}

// LogRow records the reading.
func (f *FakeRecorder) LogRow(r telemetry.Reading) error {
	if f.RowError != nil {
		return f.RowError
	}
	f.Rows = append(f.Rows, r)
	return nil
}

// Reset clears recorded readings.
func (f *FakeRecorder) Reset() {
	f.Columns = nil
	f.Rows = nil
	f.RowError = nil
}
