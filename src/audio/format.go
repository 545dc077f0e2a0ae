package audio

import (
	"encoding/binary"
	"fmt"
	"math"
)

// ----- Sample Format ----- //

type sampleFormat int

const (
	formatFloat32 sampleFormat = iota
	formatInt16
	formatUint16
)

func parseSampleFormat(s string) (sampleFormat, error) {
	switch s {
	case "f32":
		return formatFloat32, nil
	case "i16":
		return formatInt16, nil
	case "u16":
		return formatUint16, nil
	}
	return 0, fmt.Errorf("unsupported sample format %q", s)
}

func (f sampleFormat) String() string {
	switch f {
	case formatFloat32:
		return "f32"
	case formatInt16:
		return "i16"
	case formatUint16:
		return "u16"
	}
	return "unknown"
}

func (f sampleFormat) bytesPerSample() int {
	if f == formatFloat32 {
		return 4
	}
	return 2
}

// encoder returns the function that writes one little-endian sample.
func (f sampleFormat) encoder() func(b []byte, x float64) {
	switch f {
	case formatInt16:
		return func(b []byte, x float64) {
			binary.LittleEndian.PutUint16(b, uint16(toInt16(x)))
		}
	case formatUint16:
		return func(b []byte, x float64) {
			binary.LittleEndian.PutUint16(b, toUint16(x))
		}
	default:
		return func(b []byte, x float64) {
			binary.LittleEndian.PutUint32(b, math.Float32bits(float32(x)))
		}
	}
}

// NaN encodes as silence.
func toInt16(x float64) int16 {
	const max = math.MaxInt16
	if math.IsNaN(x) {
		return 0
	}
	v := math.Round(clamp(x, -1, 1) * max)
	return int16(clamp(v, math.MinInt16, max))
}

func toUint16(x float64) uint16 {
	const max = math.MaxUint16
	if math.IsNaN(x) {
		x = 0
	}
	v := math.Round((clamp(x, -1, 1)*0.5 + 0.5) * max)
	return uint16(clamp(v, 0, max))
}
