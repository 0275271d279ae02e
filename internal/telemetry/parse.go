package telemetry

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/relvacode/iso8601"
)

// wireReading is the shape of one line on the vendor feed.
type wireReading struct {
	Timestamp    string                        `json:"TIMESTAMP"`
	Power        map[string]float64            `json:"POWER"`
	Thermocouple map[string]map[string]float64 `json:"THERMOCOUPLE"`
}

// Parse decodes one feed line into a flattened Reading. Power channels become
// POWER_<key>, thermocouple channels THERMO_<pos>_<key>. Column order is
// TIME first, then sorted POWER_* keys, then sorted THERMO_* keys, so that
// CSV columns stay stable across runs regardless of JSON object order.
func Parse(line []byte) (Reading, error) {
	var wire wireReading
	if err := json.Unmarshal(line, &wire); err != nil {
		return Reading{}, fmt.Errorf("decode feed line: %w", err)
	}
	if wire.Timestamp == "" {
		return Reading{}, fmt.Errorf("feed line missing TIMESTAMP")
	}

	seconds, err := timestampSeconds(wire.Timestamp)
	if err != nil {
		return Reading{}, err
	}

	values := map[string]float64{TimeKey: seconds}

	var powerKeys []string
	for key, value := range wire.Power {
		name := "POWER_" + key
		values[name] = value
		powerKeys = append(powerKeys, name)
	}
	sort.Strings(powerKeys)

	var thermoKeys []string
	for pos, channels := range wire.Thermocouple {
		for key, value := range channels {
			name := "THERMO_" + pos + "_" + key
			values[name] = value
			thermoKeys = append(thermoKeys, name)
		}
	}
	sort.Strings(thermoKeys)

	keys := make([]string, 0, 1+len(powerKeys)+len(thermoKeys))
	keys = append(keys, TimeKey)
	keys = append(keys, powerKeys...)
	keys = append(keys, thermoKeys...)

	return Reading{Keys: keys, Values: values}, nil
}

// timestampSeconds converts a feed timestamp (YYYY-MM-DDTHH:MM:SS.ffffff)
// to seconds since the Unix epoch. The feed carries no zone; iso8601 parses
// zoneless timestamps as UTC, which keeps the values monotonically
// comparable across a run.
func timestampSeconds(ts string) (float64, error) {
	t, err := iso8601.ParseString(ts)
	if err != nil {
		return 0, fmt.Errorf("parse timestamp %q: %w", ts, err)
	}
	return float64(t.UnixNano()) / 1e9, nil
}
