package internal

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/sweeney/rig-monitor/internal/actuator"
	"github.com/sweeney/rig-monitor/internal/experiment"
	"github.com/sweeney/rig-monitor/internal/logic"
	"github.com/sweeney/rig-monitor/internal/mqtt"
	"github.com/sweeney/rig-monitor/internal/runlog"
	"github.com/sweeney/rig-monitor/internal/status"
	"github.com/sweeney/rig-monitor/internal/telemetry"
)

func soakReading(t, temp float64) telemetry.Reading {
	values := make(map[string]float64)
	for _, key := range logic.ThresholdChannels {
		values[key] = temp
	}
	return telemetry.MakeReading(t, values)
}

// TestIntegrationSteadyRun drives a full run through the real file logger:
// the rig warms toward a plateau, the wheel spins up, and the run ends on
// steady state with all three output files in place.
func TestIntegrationSteadyRun(t *testing.T) {
	dir := t.TempDir()
	logger, err := runlog.New(dir, "soak1_rpm90", false)
	if err != nil {
		t.Fatalf("runlog.New failed: %v", err)
	}
	defer logger.Close()

	if err := logger.WriteMeta(map[string]any{"speed": 1.5, "gimbal": 45.0, "threshold": 70.0}); err != nil {
		t.Fatalf("WriteMeta failed: %v", err)
	}

	// Warm-up ramp for 10s, then a plateau long enough for the steady
	// window: ramp values keep the tracker unsteady, plateau values settle.
	var readings []telemetry.Reading
	for i := 0; i < 10; i++ {
		readings = append(readings, soakReading(float64(i), 20+float64(i)))
	}
	for i := 10; i < 40; i++ {
		readings = append(readings, soakReading(float64(i), 30))
	}

	speed := 1.5
	gimbal := 45.0
	cfg := experiment.Config{
		Name:      "soak1_rpm90",
		Threshold: 70,
		TimeLimit: time.Hour,
		Speed:     &speed,
		Gimbal:    &gimbal,
		Steady:    logic.SteadySettings{Window: 10, Threshold: 0.5, CheckEvery: 5},
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("config invalid: %v", err)
	}

	driver := actuator.NewFakeDriver()
	publisher := mqtt.NewFakePublisher()
	publisher.Connected = true
	tracker := status.NewTracker(time.Now(), status.RunConfig{
		Name:      cfg.Name,
		Threshold: cfg.Threshold,
		Speed:     cfg.Speed,
		Gimbal:    cfg.Gimbal,
	})

	controller := &experiment.Controller{
		Config:  cfg,
		Source:  telemetry.NewFakeSource(readings),
		Log:     logger,
		Driver:  driver,
		Events:  publisher,
		Tracker: tracker,
	}

	reason, err := controller.Run(nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if reason != experiment.StopSteadyStateReached {
		t.Fatalf("expected steady_state_reached, got %s", reason)
	}

	if len(driver.Activations) != 1 {
		t.Fatalf("expected 1 activation, got %d", len(driver.Activations))
	}
	if driver.Activations[0].Speed != 1.5 || driver.Activations[0].Gimbal != 45 {
		t.Errorf("unexpected activation: %+v", driver.Activations[0])
	}
	if driver.IdleCalls != 1 {
		t.Errorf("expected 1 idle call, got %d", driver.IdleCalls)
	}

	// All three output files exist.
	runDir := filepath.Join(dir, "soak1_rpm90")
	for _, name := range []string{"data.csv", "log.txt", "meta.toml"} {
		if _, err := os.Stat(filepath.Join(runDir, name)); err != nil {
			t.Errorf("missing output file %s: %v", name, err)
		}
	}

	// Every logged row parses back to the original reading.
	data, err := os.ReadFile(filepath.Join(runDir, "data.csv"))
	if err != nil {
		t.Fatalf("read data.csv: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	header := strings.Split(lines[0], ",")
	if header[0] != "TIME" {
		t.Errorf("first column should be TIME, got %s", header[0])
	}
	rows := lines[1:]
	if len(rows) == 0 || len(rows) > len(readings) {
		t.Fatalf("unexpected row count %d for %d readings", len(rows), len(readings))
	}
	for i, line := range rows {
		cols := strings.Split(line, ",")
		if len(cols) != len(header) {
			t.Fatalf("row %d: %d columns for %d headers", i, len(cols), len(header))
		}
		for j, col := range cols {
			parsed, err := strconv.ParseFloat(col, 64)
			if err != nil {
				t.Fatalf("row %d col %s: unparseable %q", i, header[j], col)
			}
			if want := readings[i].Values[header[j]]; parsed != want {
				t.Errorf("row %d col %s: %v != %v", i, header[j], parsed, want)
			}
		}
	}

	// Lifecycle events: MOTOR_ACTIVATED, then a retained RUN_STOPPED whose
	// payload carries the run snapshot.
	if len(publisher.RunEvents) != 2 {
		t.Fatalf("expected 2 lifecycle events, got %d", len(publisher.RunEvents))
	}
	if publisher.RunEvents[0].Event != "MOTOR_ACTIVATED" {
		t.Errorf("expected MOTOR_ACTIVATED first, got %s", publisher.RunEvents[0].Event)
	}
	stopped := publisher.RunEvents[1]
	if stopped.Event != "RUN_STOPPED" || !stopped.Retained {
		t.Errorf("expected retained RUN_STOPPED, got %+v", stopped)
	}

	var payload status.RunJSON
	if err := json.Unmarshal(publisher.RunPayloads[1], &payload); err != nil {
		t.Fatalf("stop payload invalid JSON: %v", err)
	}
	if payload.Run.Reason != string(experiment.StopSteadyStateReached) {
		t.Errorf("payload reason: %s", payload.Run.Reason)
	}
	if payload.Run.Name != "soak1_rpm90" {
		t.Errorf("payload name: %s", payload.Run.Name)
	}
	if payload.Run.Readings != len(rows) {
		t.Errorf("payload readings %d != logged rows %d", payload.Run.Readings, len(rows))
	}
	if !payload.Run.MotorActivated {
		t.Error("payload should record motor activation")
	}
}

// TestIntegrationThresholdAbort verifies the over-temperature path end to
// end: the run stops on the hot reading, the wheel never starts, and the
// rows up to and including the trip are on disk.
func TestIntegrationThresholdAbort(t *testing.T) {
	dir := t.TempDir()
	logger, err := runlog.New(dir, "abortrun", false)
	if err != nil {
		t.Fatalf("runlog.New failed: %v", err)
	}
	defer logger.Close()

	speed := 1.5
	gimbal := 45.0
	cfg := experiment.Config{
		Name:       "abortrun",
		Threshold:  70,
		TimeLimit:  time.Hour,
		Speed:      &speed,
		Gimbal:     &gimbal,
		DeferStart: time.Hour,
	}

	readings := []telemetry.Reading{
		soakReading(0, 40),
		soakReading(1, 60),
		soakReading(2, 71),
		soakReading(3, 72),
	}

	driver := actuator.NewFakeDriver()
	controller := &experiment.Controller{
		Config: cfg,
		Source: telemetry.NewFakeSource(readings),
		Log:    logger,
		Driver: driver,
	}

	reason, err := controller.Run(nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if reason != experiment.StopThresholdExceeded {
		t.Fatalf("expected threshold_exceeded, got %s", reason)
	}
	if len(driver.Activations) != 0 {
		t.Errorf("wheel must not start during deferral: %+v", driver.Activations)
	}
	if driver.IdleCalls != 1 {
		t.Errorf("expected 1 idle call, got %d", driver.IdleCalls)
	}

	data, err := os.ReadFile(filepath.Join(dir, "abortrun", "data.csv"))
	if err != nil {
		t.Fatalf("read data.csv: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 4 {
		t.Errorf("expected header + 3 rows (trip included), got %d lines", len(lines))
	}
}
