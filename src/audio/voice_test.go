package audio

import (
	"math"
	"testing"
)

func sustainedParams() *params {
	p := newParams()
	p.carrierFreq = 220
	p.modRatio = 2
	p.modIndex = 0
	p.amplitude = 1
	p.adsr.sustain = 1
	return p
}

func TestVoicePureSineWithoutModulation(t *testing.T) {
	p := sustainedParams()
	v := newVoice(p, testSampleRate)
	v.adsr.phase = phaseSustain
	v.adsr.level = 1
	for n := 0; n < 4800; n++ {
		expected := math.Sin(twoPi * 220 * float64(n) / testSampleRate)
		actual := v.step(p)
		if math.Abs(actual-expected) > 1e-9 {
			t.Fatalf("sample %d: expected %v, but got %v", n, expected, actual)
		}
	}
}

func TestVoiceModulationLeavesCarrierPhase(t *testing.T) {
	p := sustainedParams()
	p.modIndex = 8
	modulated := newVoice(p, testSampleRate)
	plain := newOsc(p.carrierFreq, testSampleRate)
	for n := 0; n < 1000; n++ {
		modulated.step(p)
		plain.next()
	}
	expectNearlyEqual(t, modulated.carrier.phase, plain.phase)
	expectNearlyEqual(t, modulated.modulator.freq, 440)
}

func TestVoicePhaseModulation(t *testing.T) {
	p := sustainedParams()
	p.modIndex = 3
	p.modRatio = 0.5
	v := newVoice(p, testSampleRate)
	v.adsr.phase = phaseSustain
	v.adsr.level = 1
	carrierInc := twoPi * 220 / testSampleRate
	modInc := twoPi * 110 / testSampleRate
	for n := 0; n < 2000; n++ {
		m := math.Sin(float64(n) * modInc)
		expected := math.Sin(float64(n)*carrierInc + 3*m)
		actual := v.step(p)
		if math.Abs(actual-expected) > 1e-8 {
			t.Fatalf("sample %d: expected %v, but got %v", n, expected, actual)
		}
	}
}

func TestVoiceAmplitudeAndEnvelopeScaleOutput(t *testing.T) {
	p := sustainedParams()
	p.amplitude = 0
	v := newVoice(p, testSampleRate)
	v.adsr.phase = phaseSustain
	v.adsr.level = 1
	for n := 0; n < 100; n++ {
		expectEqual(t, v.step(p), 0.0)
	}
	p = sustainedParams()
	v = newVoice(p, testSampleRate)
	for n := 0; n < 100; n++ {
		expectEqual(t, v.step(p), 0.0)
	}
}

func TestVoiceGateEdges(t *testing.T) {
	p := newParams()
	v := newVoice(p, testSampleRate)

	on := *p
	on.noteOn()
	v.step(&on)
	expectEqual(t, v.adsr.phase, phaseAttack)

	// the same snapshot again is not a new note
	for i := 0; i < 10; i++ {
		v.step(&on)
	}
	level := v.adsr.level
	expectEqual(t, v.adsr.phase, phaseAttack)
	if level <= 0 {
		t.Errorf("expected level to rise, but got: %v", level)
	}

	off := on
	off.noteOff()
	v.step(&off)
	expectEqual(t, v.adsr.phase, phaseRelease)

	// on and off between two frames still plays the note
	quick := off
	quick.noteOn()
	quick.noteOff()
	v.step(&quick)
	expectEqual(t, v.adsr.phase, phaseRelease)
	expectEqual(t, v.triggers, quick.triggers)
}

func TestVoiceRetrigger(t *testing.T) {
	p := newParams()
	p.noteOn()
	v := newVoice(newParams(), testSampleRate)
	for i := 0; i < 48000; i++ {
		v.step(p)
	}
	expectEqual(t, v.adsr.phase, phaseSustain)
	level := v.adsr.level

	again := *p
	again.noteOn()
	v.applyParams(&again)
	expectEqual(t, v.adsr.phase, phaseAttack)
	expectEqual(t, v.adsr.level, level)
}

func TestVoicePicksUpAdsrChanges(t *testing.T) {
	p := newParams()
	v := newVoice(p, testSampleRate)
	next := *p
	next.adsr.release = 1000
	v.step(&next)
	expectEqual(t, v.adsr.release, 1.0)
}
