package logic

// UnderThreshold reports whether every threshold channel in the reading is
// strictly below the limit. A channel missing from the reading counts as 0,
// so an absent channel never trips the gate.
func UnderThreshold(values map[string]float64, threshold float64) bool {
	for _, key := range ThresholdChannels {
		if values[key] >= threshold {
			return false
		}
	}
	return true
}
