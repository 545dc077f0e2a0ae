package audio

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/hajimehoshi/oto"
)

// ----- Sink ----- //

// sink receives rendered frames in the stream's sample format.
type sink interface {
	io.WriteCloser
	supports(f sampleFormat) bool
}

func openSink(c *Config, f sampleFormat) (sink, error) {
	var s sink
	var err error
	switch {
	case c.Output == "":
		s, err = newDeviceSink(c)
	case strings.EqualFold(filepath.Ext(c.Output), ".wav"):
		s, err = newWavSink(c)
	default:
		s, err = newRawSink(c.Output)
	}
	if err != nil {
		return nil, err
	}
	if !s.supports(f) {
		s.Close()
		return nil, fmt.Errorf("sample format %v is not supported by %v", f, s)
	}
	return s, nil
}

// ----- Device ----- //

const deviceBitDepthInBytes = 2

type deviceSink struct {
	otoContext *oto.Context
	player     *oto.Player
}

func newDeviceSink(c *Config) (*deviceSink, error) {
	bufferSizeInBytes := c.BufferFrames * c.Channels * deviceBitDepthInBytes
	otoContext, err := oto.NewContext(c.SampleRate, c.Channels, deviceBitDepthInBytes, bufferSizeInBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio device: %w", err)
	}
	return &deviceSink{
		otoContext: otoContext,
		player:     otoContext.NewPlayer(),
	}, nil
}

func (d *deviceSink) supports(f sampleFormat) bool {
	return f == formatInt16
}

func (d *deviceSink) Write(buf []byte) (int, error) {
	return d.player.Write(buf)
}

func (d *deviceSink) Close() error {
	if err := d.player.Close(); err != nil {
		return err
	}
	return d.otoContext.Close()
}

func (d *deviceSink) String() string {
	return "audio device"
}

// ----- WAV ----- //

const wavFormatPCM = 1

type wavSink struct {
	path     string
	file     *os.File
	encoder  *wav.Encoder
	buf      *goaudio.IntBuffer
	channels int
}

func newWavSink(c *Config) (*wavSink, error) {
	f, err := os.Create(c.Output)
	if err != nil {
		return nil, err
	}
	return &wavSink{
		path:    c.Output,
		file:    f,
		encoder: wav.NewEncoder(f, c.SampleRate, 16, c.Channels, wavFormatPCM),
		buf: &goaudio.IntBuffer{
			Format: &goaudio.Format{
				NumChannels: c.Channels,
				SampleRate:  c.SampleRate,
			},
			SourceBitDepth: 16,
		},
		channels: c.Channels,
	}, nil
}

func (w *wavSink) supports(f sampleFormat) bool {
	return f == formatInt16
}

func (w *wavSink) Write(buf []byte) (int, error) {
	n := len(buf) / 2
	if cap(w.buf.Data) < n {
		w.buf.Data = make([]int, n)
	}
	w.buf.Data = w.buf.Data[:n]
	for i := 0; i < n; i++ {
		w.buf.Data[i] = int(int16(binary.LittleEndian.Uint16(buf[2*i:])))
	}
	if err := w.encoder.Write(w.buf); err != nil {
		return 0, fmt.Errorf("wav: %w", err)
	}
	return n * 2, nil
}

func (w *wavSink) Close() error {
	err := w.encoder.Close()
	if cerr := w.file.Close(); err == nil {
		err = cerr
	}
	return err
}

func (w *wavSink) String() string {
	return "wav file " + w.path
}

// ----- Raw PCM ----- //

type rawSink struct {
	name string
	w    io.Writer
	c    io.Closer
}

func newRawSink(path string) (*rawSink, error) {
	if path == "-" {
		return &rawSink{name: "stdout", w: os.Stdout}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return &rawSink{name: path, w: f, c: f}, nil
}

func (r *rawSink) supports(f sampleFormat) bool {
	return true
}

func (r *rawSink) Write(buf []byte) (int, error) {
	return r.w.Write(buf)
}

func (r *rawSink) Close() error {
	if r.c == nil {
		return nil
	}
	return r.c.Close()
}

func (r *rawSink) String() string {
	return "raw pcm " + r.name
}
