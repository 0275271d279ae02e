package experiment

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/sweeney/rig-monitor/internal/actuator"
	"github.com/sweeney/rig-monitor/internal/logic"
	"github.com/sweeney/rig-monitor/internal/mqtt"
	"github.com/sweeney/rig-monitor/internal/runlog"
	"github.com/sweeney/rig-monitor/internal/status"
	"github.com/sweeney/rig-monitor/internal/telemetry"
)

// StopReason explains why a run ended.
type StopReason string

const (
	StopThresholdExceeded  StopReason = "threshold_exceeded"
	StopTimeLimitReached   StopReason = "time_limit_reached"
	StopSteadyStateReached StopReason = "steady_state_reached"
	StopSourceExhausted    StopReason = "source_exhausted"
	StopSourceError        StopReason = "source_error"
	StopInterrupted        StopReason = "interrupted"
	StopFault              StopReason = "fault"
)

// Controller owns one run: it pulls readings from the source, logs every one,
// and applies the control policy in strict order — threshold gate, time
// limit, deferral, initial steady check, motor activation, post-activation
// steady check. Whatever path ends the run, the actuator is returned to idle
// before Run returns.
type Controller struct {
	Config Config
	Source telemetry.Source
	Log    runlog.Recorder
	Driver actuator.Driver

	// Events, if set, receives MOTOR_ACTIVATED and RUN_STOPPED lifecycle
	// events. Publish failures are logged, never fatal.
	Events mqtt.Publisher

	// Tracker, if set, is updated as the run progresses and feeds the
	// lifecycle event payloads.
	Tracker *status.Tracker

	// Now defaults to time.Now. Injectable for tests.
	Now func() time.Time

	// IdleRetryPause is the pause between idle retries (0 = none).
	IdleRetryPause time.Duration
}

// Run consumes the telemetry stream until a stop condition is met or a
// signal arrives. It returns the stop reason and, for the source-error and
// fault paths, the underlying error. The actuator idle command is retried
// until it succeeds on every exit path.
func (c *Controller) Run(sig <-chan os.Signal) (reason StopReason, err error) {
	now := c.Now
	if now == nil {
		now = time.Now
	}

	defer func() { c.finish(reason) }()
	defer c.ensureIdle()

	initTracker := logic.NewSteadyTracker(c.Config.Steady)
	postTracker := logic.NewSteadyTracker(c.Config.Steady)

	start := now()
	checkInitSteady := c.Config.CheckInitSteady
	motorActivated := false
	first := true

	for {
		select {
		case s := <-sig:
			log.Printf("received %v, stopping the test", s)
			return StopInterrupted, nil

		case r, ok := <-c.Source.Readings():
			if !ok {
				if srcErr := c.Source.Err(); srcErr != nil {
					log.Printf("telemetry source failed: %v", srcErr)
					return StopSourceError, srcErr
				}
				log.Printf("telemetry source ended")
				return StopSourceExhausted, nil
			}

			if first {
				if logErr := c.Log.LogColumns(r); logErr != nil {
					return StopFault, logErr
				}
				first = false
			}
			if logErr := c.Log.LogRow(r); logErr != nil {
				return StopFault, logErr
			}
			if c.Tracker != nil {
				c.Tracker.AddReading()
			}

			if !logic.UnderThreshold(r.Values, c.Config.Threshold) {
				log.Printf("threshold of %g °C exceeded, stopping the test", c.Config.Threshold)
				return StopThresholdExceeded, nil
			}

			elapsed := now().Sub(start)
			if elapsed >= c.Config.TimeLimit {
				log.Printf("time limit of %v reached, stopping the test", c.Config.TimeLimit)
				return StopTimeLimitReached, nil
			}

			if c.Config.DeferStart > 0 && elapsed < c.Config.DeferStart {
				continue
			}

			if checkInitSteady {
				steady, checks := initTracker.Observe(r.Time(), r.Values)
				narrate(checks)
				if !steady {
					continue
				}
				checkInitSteady = false
				log.Printf("initial steady state achieved within %gs with variation under %g °C",
					c.Config.Steady.Window, c.Config.Steady.Threshold)
			}

			if !motorActivated {
				if c.Config.Speed != nil {
					log.Printf("activating motor: speed %g Hz, gimbal %g°",
						*c.Config.Speed, *c.Config.Gimbal)
					if actErr := c.Driver.Activate(*c.Config.Speed, *c.Config.Gimbal); actErr != nil {
						log.Printf("motor activation failed: %v", actErr)
						return StopFault, fmt.Errorf("activate motor: %w", actErr)
					}
					c.publish("MOTOR_ACTIVATED", "")
				}
				motorActivated = true
				if c.Tracker != nil {
					c.Tracker.SetMotorActivated()
				}
			}

			steady, checks := postTracker.Observe(r.Time(), r.Values)
			narrate(checks)
			if steady {
				log.Printf("steady state achieved within %gs with variation under %g °C, stopping the test",
					c.Config.Steady.Window, c.Config.Steady.Threshold)
				return StopSteadyStateReached, nil
			}
		}
	}
}

func (c *Controller) ensureIdle() {
	EnsureIdle(c.Driver, c.IdleRetryPause)
}

// EnsureIdle returns the actuator to idle, retrying until the command
// succeeds. Leaving the wheel spinning is unsafe, so this never gives up.
func EnsureIdle(driver actuator.Driver, pause time.Duration) {
	for {
		err := driver.Idle()
		if err == nil {
			log.Printf("device returned to idle")
			return
		}
		log.Printf("idle command failed: %v (retrying)", err)
		if pause > 0 {
			time.Sleep(pause)
		}
	}
}

// finish records the stop reason and publishes the RUN_STOPPED event.
func (c *Controller) finish(reason StopReason) {
	if c.Tracker != nil {
		c.Tracker.SetStopReason(string(reason))
	}
	c.publish("RUN_STOPPED", string(reason))
}

// publish sends a lifecycle event with a full run snapshot payload when a
// tracker is available.
func (c *Controller) publish(event, reason string) {
	if c.Events == nil {
		return
	}
	ev := mqtt.RunEvent{
		Timestamp: time.Now(),
		Event:     event,
		Reason:    reason,
		Retained:  event == "RUN_STOPPED",
	}
	if c.Tracker != nil {
		if cs, ok := c.Events.(mqtt.ConnectionStatus); ok {
			c.Tracker.SetMQTTConnected(cs.IsConnected())
		}
		ev.RawPayload = status.FormatRunEvent(c.Tracker.Snapshot(), event, reason)
	}
	if err := c.Events.PublishRun(ev); err != nil {
		log.Printf("failed to publish %s event: %v", event, err)
	}
}

func narrate(checks []logic.Check) {
	for _, check := range checks {
		verdict := "NOT STEADY"
		if check.Steady {
			verdict = "STEADY"
		}
		log.Printf("steady check %s: std = %.4f °C over last %.2fs -> %s",
			check.Channel, check.Std, check.Span, verdict)
	}
}
