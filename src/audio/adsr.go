package audio

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// ----- ADSR Params ----- //

type adsrParams struct {
	attack  float64 // ms
	decay   float64 // ms
	sustain float64 // 0-1
	release float64 // ms
}
type adsrJSON struct {
	Attack  *float64 `json:"attack"`
	Decay   *float64 `json:"decay"`
	Sustain *float64 `json:"sustain"`
	Release *float64 `json:"release"`
}

func newAdsrParams() adsrParams {
	return adsrParams{attack: 10, decay: 100, sustain: 0.7, release: 200}
}

func (a *adsrParams) applyJSON(data json.RawMessage) error {
	var j adsrJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return fmt.Errorf("failed to apply JSON to adsrParams: %w", err)
	}
	if j.Attack != nil {
		a.attack = clampTime(*j.Attack)
	}
	if j.Decay != nil {
		a.decay = clampTime(*j.Decay)
	}
	if j.Sustain != nil {
		a.sustain = clamp(*j.Sustain, 0, 1)
	}
	if j.Release != nil {
		a.release = clampTime(*j.Release)
	}
	return nil
}
func (a *adsrParams) toJSON() json.RawMessage {
	return toRawMessage(&adsrJSON{
		Attack:  &a.attack,
		Decay:   &a.decay,
		Sustain: &a.sustain,
		Release: &a.release,
	})
}
func (a *adsrParams) set(key string, value string) error {
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return err
	}
	switch key {
	case "attack":
		a.attack = clampTime(v)
	case "decay":
		a.decay = clampTime(v)
	case "sustain":
		a.sustain = clamp(v, 0, 1)
	case "release":
		a.release = clampTime(v)
	default:
		return fmt.Errorf("unknown adsr key %q", key)
	}
	return nil
}

func clampTime(ms float64) float64 {
	return math.Max(ms, 0)
}

// ----- ADSR ----- //

const (
	phaseIdle = iota
	phaseAttack
	phaseDecay
	phaseSustain
	phaseRelease
)

func phaseToString(phase int) string {
	switch phase {
	case phaseIdle:
		return "idle"
	case phaseAttack:
		return "attack"
	case phaseDecay:
		return "decay"
	case phaseSustain:
		return "sustain"
	case phaseRelease:
		return "release"
	}
	return "unknown"
}

// minTime keeps the stage times away from zero.
const minTime = 1e-6

// minReleaseStep stops release from stalling when note-off comes at level 0.
const minReleaseStep = 1e-6

// levelTolerance absorbs rounding left over from summing many small steps.
const levelTolerance = 1e-9

/*
  1 +     x
    |    / \
    |   /   \
  s +  /     x------x
    | /              \
    |/                \
  0 +-----+--+------+---
    |a    |d |      |r |
*/
type adsr struct {
	attack         float64 // sec
	decay          float64 // sec
	sustain        float64 // 0-1
	release        float64 // sec
	phase          int
	level          float64
	levelAtNoteOff float64
}

func newAdsr(p adsrParams) *adsr {
	a := &adsr{phase: phaseIdle}
	a.setParams(p)
	return a
}

func (a *adsr) setParams(p adsrParams) {
	a.attack = math.Max(p.attack/1000, minTime)
	a.decay = math.Max(p.decay/1000, minTime)
	a.sustain = clamp(p.sustain, 0, 1)
	a.release = math.Max(p.release/1000, minTime)
	if a.phase == phaseSustain {
		a.level = a.sustain
	}
}

// noteOn retriggers from the current level.
func (a *adsr) noteOn() {
	a.phase = phaseAttack
}

func (a *adsr) noteOff() {
	if a.phase == phaseIdle {
		return
	}
	a.phase = phaseRelease
	a.levelAtNoteOff = a.level
}

func (a *adsr) advance(dt float64) float64 {
	switch a.phase {
	case phaseIdle:
		a.level = 0
	case phaseAttack:
		a.level += dt / a.attack
		if a.level >= 1-levelTolerance {
			a.level = 1
			a.phase = phaseDecay
		}
	case phaseDecay:
		a.level -= dt / a.decay * (1 - a.sustain)
		if a.level <= a.sustain+levelTolerance {
			a.level = a.sustain
			a.phase = phaseSustain
		}
	case phaseSustain:
		a.level = a.sustain
	case phaseRelease:
		a.level -= dt / a.release * math.Max(a.levelAtNoteOff, minReleaseStep)
		if a.level <= levelTolerance {
			a.level = 0
			a.phase = phaseIdle
		}
	}
	return a.level
}
