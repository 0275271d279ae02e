// Command rig-monitor runs thermal soak tests on the lab rig: it streams
// sensor telemetry from the vendor CLI, logs it, and stops on
// over-temperature, time limit, or steady state.
package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/sweeney/rig-monitor/internal/actuator"
	"github.com/sweeney/rig-monitor/internal/experiment"
	"github.com/sweeney/rig-monitor/internal/logic"
	"github.com/sweeney/rig-monitor/internal/mqtt"
	"github.com/sweeney/rig-monitor/internal/runlog"
	"github.com/sweeney/rig-monitor/internal/status"
	"github.com/sweeney/rig-monitor/internal/telemetry"
)

func main() {
	var opts options

	flag.StringVar(&opts.name, "name", "", "Experiment name (required)")
	flag.BoolVar(&opts.appendOut, "append", false, "Append to the data file if it exists")
	flag.StringVar(&opts.speeds, "speeds", "", "Comma-separated list of wheel speeds to test (Hz)")
	flag.Float64Var(&opts.gimbal, "gimbal", math.NaN(), "Gimbal angle to set when turning on the wheel (degrees)")
	flag.Float64Var(&opts.threshold, "threshold", 70, "Temperature threshold to stop the test (°C)")
	flag.DurationVar(&opts.timeLimit, "time-limit", time.Hour, "Time limit for the soak test")
	flag.DurationVar(&opts.deferStart, "defer-start", 0, "Defer motor activation and steady checking for this long after start (counts toward the time limit)")
	flag.BoolVar(&opts.checkInitSteady, "check-init-steady", false, "Require initial steady state before activating the motor")
	flag.Float64Var(&opts.steadyWindow, "steady-window", 0, "Time window to check for steadiness (seconds)")
	flag.Float64Var(&opts.steadySigma, "steady-sigma", 0, "Sigma for Gaussian smoothing when checking for steadiness")
	flag.Float64Var(&opts.steadyThreshold, "steady-threshold", 0, "Maximum allowed smoothed variation for steadiness (°C)")
	flag.Float64Var(&opts.steadyCheckEvery, "steady-check-every", 0, "Interval between steadiness checks (seconds)")
	flag.StringVar(&opts.broker, "broker", "", "MQTT broker for run lifecycle events (empty to disable)")
	flag.StringVar(&opts.outputDir, "output-dir", "output", "Directory for per-run outputs")
	flag.StringVar(&opts.readCmd, "read-cmd", "", "Override the telemetry feed command (space-separated; for bench testing)")
	flag.StringVar(&opts.actuatorCmd, "actuator-cmd", "", "Override the wheel CLI binary (for bench testing)")

	flag.Parse()

	if err := run(opts); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

type options struct {
	name             string
	appendOut        bool
	speeds           string
	gimbal           float64
	threshold        float64
	timeLimit        time.Duration
	deferStart       time.Duration
	checkInitSteady  bool
	steadyWindow     float64
	steadySigma      float64
	steadyThreshold  float64
	steadyCheckEvery float64
	broker           string
	outputDir        string
	readCmd          string
	actuatorCmd      string
}

// run sequences one sub-run per requested wheel speed. A configuration error
// aborts before anything touches the rig; a failed sub-run is reported and
// the remaining speeds still run, but an operator interrupt stops the whole
// sequence.
func run(opts options) error {
	speeds, err := parseSpeeds(opts.speeds)
	if err != nil {
		return err
	}

	var gimbal *float64
	if !math.IsNaN(opts.gimbal) {
		gimbal = &opts.gimbal
	}

	// Validate every sub-run before starting the first one.
	configs := make([]experiment.Config, 0, len(speeds))
	for _, speed := range speeds {
		cfg := experiment.Config{
			Name:            subRunName(opts.name, speed),
			Append:          opts.appendOut,
			Threshold:       opts.threshold,
			TimeLimit:       opts.timeLimit,
			Speed:           speed,
			Gimbal:          gimbal,
			DeferStart:      opts.deferStart,
			CheckInitSteady: opts.checkInitSteady,
			Steady: logic.SteadySettings{
				Window:     opts.steadyWindow,
				Sigma:      opts.steadySigma,
				Threshold:  opts.steadyThreshold,
				CheckEvery: opts.steadyCheckEvery,
			},
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		configs = append(configs, cfg)
	}

	var lastErr error
	for _, cfg := range configs {
		reason, err := runOne(cfg, opts)
		if err != nil {
			log.Printf("run %s failed: %v", cfg.Name, err)
			lastErr = err
		}
		if reason == experiment.StopInterrupted {
			return lastErr
		}
	}
	return lastErr
}

// runOne performs a single experiment run end to end.
func runOne(cfg experiment.Config, opts options) (experiment.StopReason, error) {
	logger, err := runlog.New(opts.outputDir, cfg.Name, cfg.Append)
	if err != nil {
		return "", err
	}
	defer logger.Close()

	if err := logger.WriteMeta(metaMap(cfg)); err != nil {
		return "", err
	}

	tracker := status.NewTracker(time.Now(), statusConfig(cfg, opts.broker))

	var publisher mqtt.Publisher
	if opts.broker != "" {
		real, err := mqtt.NewRealPublisher(opts.broker, "rig-monitor")
		if err != nil {
			// An unreachable broker must not block an experiment.
			log.Printf("mqtt disabled: %v", err)
		} else {
			publisher = real
			defer real.Close()
		}
	}

	var driver actuator.Driver = actuator.NewRealDriver()
	if opts.actuatorCmd != "" {
		driver = actuator.NewBenchDriver(opts.actuatorCmd)
	}
	narrateConfig(cfg)

	readCmd := telemetry.ReadCommand
	if opts.readCmd != "" {
		readCmd = strings.Fields(opts.readCmd)
	}
	feed, err := telemetry.Start(readCmd)
	if err != nil {
		// Startup failed with the rig in an unknown state; idle it anyway.
		experiment.EnsureIdle(driver, time.Second)
		return "", err
	}
	defer feed.Close()

	if publisher != nil {
		tracker.SetMQTTConnected(true)
		ev := mqtt.RunEvent{
			Timestamp:  time.Now(),
			Event:      "RUN_STARTED",
			Retained:   true,
			RawPayload: status.FormatRunEvent(tracker.Snapshot(), "RUN_STARTED", ""),
		}
		if err := publisher.PublishRun(ev); err != nil {
			log.Printf("failed to publish start event: %v", err)
		}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	controller := &experiment.Controller{
		Config:  cfg,
		Source:  feed,
		Log:     logger,
		Driver:  driver,
		Events:  publisher,
		Tracker: tracker,

		IdleRetryPause: time.Second,
	}

	reason, runErr := controller.Run(sigCh)
	log.Printf("run %s stopped: %s", cfg.Name, reason)
	return reason, runErr
}

// parseSpeeds parses the -speeds list. An empty list yields one run with no
// wheel parameters.
func parseSpeeds(s string) ([]*float64, error) {
	if s == "" {
		return []*float64{nil}, nil
	}
	parts := strings.Split(s, ",")
	speeds := make([]*float64, 0, len(parts))
	for _, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid speed %q: %w", part, err)
		}
		speeds = append(speeds, &v)
	}
	return speeds, nil
}

// subRunName derives the run directory name from the experiment name and the
// wheel speed: <name>_rpm<ceil(speed*60)>, or <name>_no_wheel.
func subRunName(name string, speed *float64) string {
	if speed == nil {
		return name + "_no_wheel"
	}
	return fmt.Sprintf("%s_rpm%d", name, int(math.Ceil(*speed*60)))
}

// metaMap builds the flat key/value pairs written to meta.toml. Unset
// optionals are omitted (TOML has no null).
func metaMap(cfg experiment.Config) map[string]any {
	meta := map[string]any{
		"threshold":         cfg.Threshold,
		"time_limit":        cfg.TimeLimit.Seconds(),
		"check_init_steady": cfg.CheckInitSteady,
	}
	if cfg.Speed != nil {
		meta["speed"] = *cfg.Speed
		meta["gimbal"] = *cfg.Gimbal
	}
	if cfg.DeferStart > 0 {
		meta["defer_start"] = cfg.DeferStart.Seconds()
	}
	if cfg.Steady.Window > 0 {
		meta["steady_window"] = cfg.Steady.Window
	}
	if cfg.Steady.Sigma > 0 {
		meta["steady_sigma"] = cfg.Steady.Sigma
	}
	if cfg.Steady.Threshold > 0 {
		meta["steady_threshold"] = cfg.Steady.Threshold
	}
	if cfg.Steady.CheckEvery > 0 {
		meta["steady_check_every"] = cfg.Steady.CheckEvery
	}
	return meta
}

func statusConfig(cfg experiment.Config, broker string) status.RunConfig {
	return status.RunConfig{
		Name:            cfg.Name,
		Broker:          broker,
		Threshold:       cfg.Threshold,
		TimeLimitS:      cfg.TimeLimit.Seconds(),
		DeferStartS:     cfg.DeferStart.Seconds(),
		CheckInitSteady: cfg.CheckInitSteady,
		Speed:           cfg.Speed,
		Gimbal:          cfg.Gimbal,
		SteadyWindowS:   cfg.Steady.Window,
		SteadySigma:     cfg.Steady.Sigma,
		SteadyThreshold: cfg.Steady.Threshold,
		SteadyCheckS:    cfg.Steady.CheckEvery,
	}
}

func narrateConfig(cfg experiment.Config) {
	log.Printf("starting %s: threshold=%g°C time-limit=%v", cfg.Name, cfg.Threshold, cfg.TimeLimit)
	if cfg.DeferStart > 0 {
		log.Printf("  deferring motor activation and steady checking for %v", cfg.DeferStart)
	}
	if cfg.Speed != nil {
		log.Printf("  wheel speed %g Hz, gimbal angle %g°", *cfg.Speed, *cfg.Gimbal)
	}
	if cfg.Steady.Enabled() {
		log.Printf("  steady checking: window=%gs sigma=%g threshold=%g°C every %gs",
			cfg.Steady.Window, cfg.Steady.Sigma, cfg.Steady.Threshold, cfg.Steady.CheckEvery)
	}
}
