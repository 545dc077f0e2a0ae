package audio

import (
	"math"
	"math/rand"
	"testing"
)

const testSampleRate = 48000.0
const testDt = 1 / testSampleRate

func advanceUntil(a *adsr, phase int, maxSteps int) bool {
	for i := 0; i < maxSteps; i++ {
		if a.phase == phase {
			return true
		}
		a.advance(testDt)
	}
	return a.phase == phase
}

func TestAdsrStartsIdle(t *testing.T) {
	a := newAdsr(newAdsrParams())
	expectEqual(t, a.phase, phaseIdle)
	expectEqual(t, a.advance(testDt), 0.0)
	expectEqual(t, a.phase, phaseIdle)
}

func TestAdsrGoesThroughAllPhases(t *testing.T) {
	a := newAdsr(adsrParams{attack: 10, decay: 100, sustain: 0.5, release: 200})
	a.noteOn()
	expectEqual(t, a.phase, phaseAttack)

	// 10ms attack = 480 samples
	for i := 0; i < 479; i++ {
		a.advance(testDt)
	}
	expectEqual(t, a.phase, phaseAttack)
	a.advance(testDt)
	expectEqual(t, a.phase, phaseDecay)
	expectEqual(t, a.level, 1.0)

	if !advanceUntil(a, phaseSustain, 5000) {
		t.Fatalf("decay did not end, phase %v level %v", phaseToString(a.phase), a.level)
	}
	expectEqual(t, a.level, 0.5)
	for i := 0; i < 1000; i++ {
		a.advance(testDt)
	}
	expectEqual(t, a.phase, phaseSustain)
	expectEqual(t, a.level, 0.5)

	a.noteOff()
	expectEqual(t, a.phase, phaseRelease)
	if !advanceUntil(a, phaseIdle, 9602) {
		t.Fatalf("release did not end, level %v", a.level)
	}
	expectEqual(t, a.level, 0.0)
}

func TestAdsrLevelStaysInRange(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for n := 0; n < 50; n++ {
		p := adsrParams{
			attack:  r.Float64() * 50,
			decay:   r.Float64() * 50,
			sustain: r.Float64(),
			release: r.Float64() * 50,
		}
		a := newAdsr(p)
		for i := 0; i < 20000; i++ {
			switch x := r.Intn(1000); {
			case x < 3:
				a.noteOn()
			case x < 6:
				a.noteOff()
			}
			dt := testDt
			if r.Intn(100) == 0 {
				dt = r.Float64() * 0.1
			}
			level := a.advance(dt)
			if level < 0 || level > 1 || math.IsNaN(level) {
				t.Fatalf("level out of range with %+v at step %d: %v", p, i, level)
			}
		}
	}
}

func TestAdsrReleaseReachesIdleWithinReleaseTime(t *testing.T) {
	p := adsrParams{attack: 20, decay: 50, sustain: 0.6, release: 100}
	releaseSteps := int(math.Ceil(p.release/1000/testDt)) + 1
	setups := map[string]func(a *adsr){
		"attack": func(a *adsr) {
			a.noteOn()
			for i := 0; i < 100; i++ {
				a.advance(testDt)
			}
		},
		"decay": func(a *adsr) {
			a.noteOn()
			advanceUntil(a, phaseDecay, 10000)
			for i := 0; i < 100; i++ {
				a.advance(testDt)
			}
		},
		"sustain": func(a *adsr) {
			a.noteOn()
			advanceUntil(a, phaseSustain, 100000)
		},
		"release": func(a *adsr) {
			a.noteOn()
			advanceUntil(a, phaseSustain, 100000)
			a.noteOff()
			for i := 0; i < 1000; i++ {
				a.advance(testDt)
			}
		},
		"attack at zero": func(a *adsr) {
			a.noteOn()
		},
	}
	for name, setup := range setups {
		a := newAdsr(p)
		setup(a)
		a.noteOff()
		for i := 0; i < releaseSteps; i++ {
			a.advance(testDt)
		}
		if a.phase != phaseIdle || a.level != 0 {
			t.Errorf("%s: expected idle at 0, got %v at %v", name, phaseToString(a.phase), a.level)
		}
	}
}

func TestAdsrReleaseInOneStep(t *testing.T) {
	a := newAdsr(adsrParams{attack: 1, decay: 1, sustain: 1, release: 50})
	a.noteOn()
	advanceUntil(a, phaseSustain, 1000)
	a.noteOff()
	a.advance(0.05)
	expectEqual(t, a.phase, phaseIdle)
	expectEqual(t, a.level, 0.0)
}

func TestAdsrRetriggerKeepsLevel(t *testing.T) {
	for _, phase := range []int{phaseDecay, phaseSustain} {
		a := newAdsr(adsrParams{attack: 10, decay: 100, sustain: 0.3, release: 200})
		a.noteOn()
		advanceUntil(a, phase, 100000)
		for i := 0; i < 50; i++ {
			a.advance(testDt)
		}
		expectEqual(t, a.phase, phase)
		level := a.level
		a.noteOn()
		expectEqual(t, a.phase, phaseAttack)
		expectEqual(t, a.level, level)
		expectNearlyEqual(t, a.advance(testDt), level+testDt/0.01)
	}
}

func TestAdsrNoteOffWhileIdle(t *testing.T) {
	a := newAdsr(newAdsrParams())
	a.noteOff()
	expectEqual(t, a.phase, phaseIdle)
	expectEqual(t, a.advance(testDt), 0.0)
}

func TestAdsrTimesHaveFloor(t *testing.T) {
	a := newAdsr(adsrParams{attack: 0, decay: 0, sustain: 0.4, release: 0})
	expectEqual(t, a.attack, minTime)
	expectEqual(t, a.decay, minTime)
	expectEqual(t, a.release, minTime)
	a.noteOn()
	expectEqual(t, a.advance(testDt), 1.0)
	expectEqual(t, a.advance(testDt), 0.4)
	expectEqual(t, a.phase, phaseSustain)
	a.noteOff()
	expectEqual(t, a.advance(testDt), 0.0)
	expectEqual(t, a.phase, phaseIdle)
}

func TestAdsrSetParamsWhileSustaining(t *testing.T) {
	a := newAdsr(adsrParams{attack: 1, decay: 1, sustain: 0.8, release: 1})
	a.noteOn()
	advanceUntil(a, phaseSustain, 1000)
	a.setParams(adsrParams{attack: 1, decay: 1, sustain: 0.2, release: 1})
	expectEqual(t, a.phase, phaseSustain)
	expectEqual(t, a.level, 0.2)
}

func TestAdsrParamsSet(t *testing.T) {
	p := newAdsrParams()
	expectNoError(t, p.set("attack", "-5"))
	expectEqual(t, p.attack, 0.0)
	expectNoError(t, p.set("sustain", "1.5"))
	expectEqual(t, p.sustain, 1.0)
	if err := p.set("sustain", "x"); err == nil {
		t.Error("expected error for unparseable value")
	}
	if err := p.set("hold", "1"); err == nil {
		t.Error("expected error for unknown key")
	}
}
