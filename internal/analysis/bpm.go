package analysis

import "math"

const (
	frameSize = 1024
	hopSize   = 512
)

// estimateBPM runs an onset-energy autocorrelation over mono PCM. It returns
// ok=false when the signal carries no usable pulse, leaving the fallback to
// the caller.
func estimateBPM(samples []int16, sampleRate int) (int, bool) {
	onsets := onsetEnvelope(samples)
	if len(onsets) < 8 {
		return 0, false
	}

	frameRate := float64(sampleRate) / float64(hopSize)
	minLag := int(frameRate * 60.0 / maxTempo)
	maxLag := int(frameRate * 60.0 / minTempo)
	if minLag < 1 {
		minLag = 1
	}
	if maxLag >= len(onsets) {
		maxLag = len(onsets) - 1
	}
	if maxLag <= minLag {
		return 0, false
	}

	var norm float64
	for _, v := range onsets {
		norm += v * v
	}
	if norm == 0 {
		return 0, false
	}

	bestLag, bestScore := 0, 0.0
	for lag := minLag; lag <= maxLag; lag++ {
		var score float64
		for i := lag; i < len(onsets); i++ {
			score += onsets[i] * onsets[i-lag]
		}
		if score > bestScore {
			bestScore = score
			bestLag = lag
		}
	}
	if bestLag == 0 || bestScore/norm < 0.05 {
		return 0, false
	}

	tempo := frameRate * 60.0 / float64(bestLag)
	tempo, ok := foldTempo(tempo)
	if !ok {
		return 0, false
	}
	return int(math.Round(tempo)), true
}

// onsetEnvelope reduces PCM to per-frame energy rises. Only increases count:
// a decaying note is not an onset.
func onsetEnvelope(samples []int16) []float64 {
	if len(samples) < frameSize {
		return nil
	}
	frames := 1 + (len(samples)-frameSize)/hopSize
	energies := make([]float64, frames)
	for f := 0; f < frames; f++ {
		start := f * hopSize
		var sum float64
		for i := start; i < start+frameSize; i++ {
			v := float64(samples[i]) / math.MaxInt16
			sum += v * v
		}
		energies[f] = sum / frameSize
	}

	onsets := make([]float64, frames)
	for f := 1; f < frames; f++ {
		if d := energies[f] - energies[f-1]; d > 0 {
			onsets[f] = d
		}
	}
	return onsets
}

// foldTempo halves or doubles a raw tempo into the plausible range.
func foldTempo(tempo float64) (float64, bool) {
	for i := 0; i < 3 && tempo > maxTempo; i++ {
		tempo /= 2
	}
	for i := 0; i < 3 && tempo < minTempo; i++ {
		tempo *= 2
	}
	if tempo < minTempo || tempo > maxTempo {
		return 0, false
	}
	return tempo, true
}
