package locomotion

// PatternScore rates how rhythmic a window of movement magnitudes is, in [0, 1].
//
// Algorithm:
// 1. Fewer than 3 values cannot hold a peak: score 0
// 2. Mean below half the threshold is the noise floor: score 0
// 3. Count local maxima strictly above both neighbours and above 2*threshold
// 4. peakScore = clamp(peaks / (window * stepsPerSecond))
// 5. consistency = clamp(mean / threshold)
// 6. Return the average of both
func PatternScore(values []float64, threshold, window, stepsPerSecond float64) float64 {
	n := len(values)
	if n < 3 {
		return 0
	}

	var total float64
	for _, v := range values {
		total += v
	}
	mean := total / float64(n)
	if mean < 0.5*threshold {
		return 0
	}

	minPeak := 2 * threshold
	peaks := 0
	for i := 1; i < n-1; i++ {
		v := values[i]
		if v > values[i-1] && v > values[i+1] && v > minPeak {
			peaks++
		}
	}

	expected := window * stepsPerSecond
	var peakScore float64
	if expected > 0 {
		peakScore = clamp01(float64(peaks) / expected)
	}

	consistency := 1.0
	if threshold > 0 {
		consistency = clamp01(mean / threshold)
	}

	return (peakScore + consistency) / 2
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
