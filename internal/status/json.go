package status

import (
	"encoding/json"
	"time"
)

// RunJSON is the top-level JSON envelope for run event payloads.
type RunJSON struct {
	Run RunInner `json:"run"`
}

// RunInner contains the run details.
type RunInner struct {
	Event          string     `json:"event,omitempty"`
	Reason         string     `json:"reason,omitempty"`
	Name           string     `json:"name"`
	Readings       int        `json:"readings"`
	MotorActivated bool       `json:"motor_activated"`
	UptimeSeconds  int64      `json:"uptime_seconds"`
	StartTime      string     `json:"start_time"`
	Timestamp      string     `json:"timestamp"`
	MQTT           MQTTStatus `json:"mqtt"`
	Config         ConfigJSON `json:"config"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// ConfigJSON is the JSON representation of the run config. Unset optional
// parameters are omitted.
type ConfigJSON struct {
	ThresholdC      float64  `json:"threshold_c"`
	TimeLimitS      float64  `json:"time_limit_s"`
	DeferStartS     float64  `json:"defer_start_s,omitempty"`
	CheckInitSteady bool     `json:"check_init_steady"`
	SpeedHz         *float64 `json:"speed_hz,omitempty"`
	GimbalDeg       *float64 `json:"gimbal_deg,omitempty"`
	SteadyWindowS   float64  `json:"steady_window_s,omitempty"`
	SteadySigma     float64  `json:"steady_sigma,omitempty"`
	SteadyThreshold float64  `json:"steady_threshold_c,omitempty"`
	SteadyCheckS    float64  `json:"steady_check_every_s,omitempty"`
}

func buildInner(snap Snapshot) RunInner {
	return RunInner{
		Name:           snap.Config.Name,
		Readings:       snap.Readings,
		MotorActivated: snap.MotorActivated,
		UptimeSeconds:  int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:      snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:      snap.Now.UTC().Format(time.RFC3339),
		MQTT:           MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Config: ConfigJSON{
			ThresholdC:      snap.Config.Threshold,
			TimeLimitS:      snap.Config.TimeLimitS,
			DeferStartS:     snap.Config.DeferStartS,
			CheckInitSteady: snap.Config.CheckInitSteady,
			SpeedHz:         snap.Config.Speed,
			GimbalDeg:       snap.Config.Gimbal,
			SteadyWindowS:   snap.Config.SteadyWindowS,
			SteadySigma:     snap.Config.SteadySigma,
			SteadyThreshold: snap.Config.SteadyThreshold,
			SteadyCheckS:    snap.Config.SteadyCheckS,
		},
	}
}

// FormatRunEvent returns the JSON payload for an MQTT run event.
func FormatRunEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(RunJSON{Run: inner})
	return data
}
