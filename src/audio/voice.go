package audio

import (
	"math"
)

// ----- Voice ----- //

// voice is the single FM note: one modulator feeding the carrier's phase,
// shaped by the envelope. It belongs to the render goroutine.
type voice struct {
	sampleRate float64
	dt         float64
	carrier    *osc
	modulator  *osc
	adsr       *adsr
	adsrParams adsrParams
	gate       bool
	triggers   uint64
}

func newVoice(p *params, sampleRate float64) *voice {
	return &voice{
		sampleRate: sampleRate,
		dt:         1 / sampleRate,
		carrier:    newOsc(p.carrierFreq, sampleRate),
		modulator:  newOsc(p.carrierFreq*p.modRatio, sampleRate),
		adsr:       newAdsr(p.adsr),
		adsrParams: p.adsr,
		triggers:   p.triggers,
	}
}

// applyParams picks up gate edges and envelope changes from a snapshot.
func (v *voice) applyParams(p *params) {
	if p.adsr != v.adsrParams {
		v.adsrParams = p.adsr
		v.adsr.setParams(p.adsr)
	}
	if p.triggers != v.triggers {
		v.triggers = p.triggers
		v.gate = true
		v.adsr.noteOn()
	}
	if v.gate && !p.gate {
		v.gate = false
		v.adsr.noteOff()
	}
}

func (v *voice) step(p *params) float64 {
	v.applyParams(p)
	if v.carrier.freq != p.carrierFreq {
		v.carrier.setFreq(p.carrierFreq, v.sampleRate)
	}
	modFreq := p.carrierFreq * p.modRatio
	if math.IsInf(modFreq, 0) {
		modFreq = math.MaxFloat64
	}
	if v.modulator.freq != modFreq {
		v.modulator.setFreq(modFreq, v.sampleRate)
	}
	m := v.modulator.next()
	// phase modulation: the deviation only touches this sample
	value := v.carrier.step(p.modIndex * m)
	level := v.adsr.advance(v.dt)
	return value * level * p.amplitude
}
