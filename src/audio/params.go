package audio

import (
	"encoding/json"
	"fmt"
	"math"
)

const (
	minCarrierFreq = 1.0
)

type params struct {
	carrierFreq float64 // Hz, >= 1
	modRatio    float64 // >= 0
	modIndex    float64 // >= 0
	amplitude   float64 // 0-1
	gate        bool
	triggers    uint64 // note-on count
	adsr        adsrParams
}

func newParams() *params {
	return &params{
		carrierFreq: 220,
		modRatio:    0.5,
		modIndex:    5,
		amplitude:   0.8,
		adsr:        newAdsrParams(),
	}
}

func (p *params) setCarrierFreq(hz float64) {
	p.carrierFreq = math.Max(hz, minCarrierFreq)
}
func (p *params) setModRatio(ratio float64) {
	p.modRatio = math.Max(ratio, 0)
}
func (p *params) setModIndex(index float64) {
	p.modIndex = math.Max(index, 0)
}
func (p *params) setAmplitude(amp float64) {
	p.amplitude = clamp(amp, 0, 1)
}
func (p *params) noteOn() {
	p.gate = true
	p.triggers++
}
func (p *params) noteOff() {
	p.gate = false
}

type paramsJSON struct {
	Carrier   *float64        `json:"carrier"`
	Ratio     *float64        `json:"ratio"`
	Index     *float64        `json:"index"`
	Amplitude *float64        `json:"amplitude"`
	Adsr      json.RawMessage `json:"adsr,omitempty"`
}

func (p *params) applyJSON(data json.RawMessage) error {
	var j paramsJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return fmt.Errorf("failed to apply JSON to params: %w", err)
	}
	if j.Carrier != nil {
		p.setCarrierFreq(*j.Carrier)
	}
	if j.Ratio != nil {
		p.setModRatio(*j.Ratio)
	}
	if j.Index != nil {
		p.setModIndex(*j.Index)
	}
	if j.Amplitude != nil {
		p.setAmplitude(*j.Amplitude)
	}
	if len(j.Adsr) > 0 {
		return p.adsr.applyJSON(j.Adsr)
	}
	return nil
}
func (p *params) toJSON() json.RawMessage {
	return toRawMessage(&paramsJSON{
		Carrier:   &p.carrierFreq,
		Ratio:     &p.modRatio,
		Index:     &p.modIndex,
		Amplitude: &p.amplitude,
		Adsr:      p.adsr.toJSON(),
	})
}

func (p *params) String() string {
	return fmt.Sprintf("carrier=%.2fHz ratio=%.3f index=%.3f amp=%.3f gate=%v adsr=%.0f/%.0f/%.2f/%.0f",
		p.carrierFreq, p.modRatio, p.modIndex, p.amplitude, p.gate,
		p.adsr.attack, p.adsr.decay, p.adsr.sustain, p.adsr.release)
}

func clamp(v float64, min float64, max float64) float64 {
	return math.Min(math.Max(v, min), max)
}

func toRawMessage(v interface{}) json.RawMessage {
	bytes, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return json.RawMessage(bytes)
}
