package audio

import (
	"math"
)

// ----- OSC ----- //

const twoPi = 2.0 * math.Pi

type osc struct {
	freq     float64
	phase    float64 // 0 ~ 2π
	phaseInc float64
}

func newOsc(freq float64, sampleRate float64) *osc {
	o := &osc{}
	o.setFreq(freq, sampleRate)
	return o
}

// setFreq keeps only the fractional cycles per sample, so huge frequencies
// alias instead of overflowing the increment.
func (o *osc) setFreq(freq float64, sampleRate float64) {
	o.freq = freq
	o.phaseInc = wrapPhase(math.Mod(freq/sampleRate, 1) * twoPi)
}

func (o *osc) next() float64 {
	return o.step(0)
}

// step reads the wave at phase+phaseShift. Only the nominal increment is
// accumulated, so the shift never leaks into the stored phase.
func (o *osc) step(phaseShift float64) float64 {
	value := math.Sin(o.phase + phaseShift)
	o.phase = wrapPhase(o.phase + o.phaseInc)
	return value
}

func wrapPhase(phase float64) float64 {
	if math.IsNaN(phase) || math.IsInf(phase, 0) {
		return 0
	}
	phase = math.Mod(phase, twoPi)
	if phase < 0 {
		phase += twoPi
	}
	if phase >= twoPi {
		phase = 0
	}
	return phase
}
