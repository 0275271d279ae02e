package logic

import "gonum.org/v1/gonum/stat"

// sample is one (time, value) pair in a channel's history.
type sample struct {
	t float64
	v float64
}

// SteadyTracker decides whether every steady channel has stayed within a
// small band of smoothed variation over a trailing time window. Two
// independent instances exist per run: one for the initial-steady check
// before motor activation and one for the post-activation check; they never
// share history.
type SteadyTracker struct {
	settings  SteadySettings
	history   map[string][]sample
	lastCheck map[string]float64
	checked   map[string]bool
}

// NewSteadyTracker creates a tracker with empty history. If settings are
// incomplete the tracker is disabled and Observe always returns false.
func NewSteadyTracker(settings SteadySettings) *SteadyTracker {
	s := &SteadyTracker{
		settings:  settings,
		history:   make(map[string][]sample),
		lastCheck: make(map[string]float64),
		checked:   make(map[string]bool),
	}
	return s
}

// Enabled reports whether the tracker performs any checking.
func (s *SteadyTracker) Enabled() bool {
	return s.settings.Enabled()
}

// Observe appends the reading to each channel's history and evaluates the
// channels that are due. A channel is evaluated at most once per CheckEvery
// seconds, and only once its buffered span has reached CheckEvery. The
// returned bool is true only if every steady channel was evaluated on this
// call and found steady; the Checks describe the evaluations performed.
//
// A channel missing from the reading contributes 0, matching the threshold
// gate's substitution rule.
func (s *SteadyTracker) Observe(t float64, values map[string]float64) (bool, []Check) {
	if !s.settings.Enabled() {
		return false, nil
	}

	allSteady := true
	var checks []Check

	for _, key := range SteadyChannels {
		history := append(s.history[key], sample{t: t, v: values[key]})
		s.history[key] = history

		span := t - history[0].t
		if (s.checked[key] && t-s.lastCheck[key] < s.settings.CheckEvery) ||
			span < s.settings.CheckEvery {
			allSteady = false
			continue
		}

		data := make([]float64, len(history))
		for i, entry := range history {
			data[i] = entry.v
		}
		smoothed := GaussianSmooth(data, s.settings.Sigma)
		std := stat.PopStdDev(smoothed, nil)

		steady := std < s.settings.Threshold
		if !steady {
			allSteady = false
		}
		checks = append(checks, Check{Channel: key, Std: std, Span: span, Steady: steady})

		s.lastCheck[key] = t
		s.checked[key] = true

		// Evict from the front until the span drops under the window, so
		// the buffer holds roughly one window of recent data.
		for len(history) > 1 && t-history[0].t >= s.settings.Window {
			history = history[1:]
		}
		s.history[key] = history
	}

	return allSteady, checks
}

// Span returns the buffered history span for a channel, in seconds.
// Exposed for tests.
func (s *SteadyTracker) Span(channel string) float64 {
	history := s.history[channel]
	if len(history) == 0 {
		return 0
	}
	return history[len(history)-1].t - history[0].t
}
