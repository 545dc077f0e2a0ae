package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"runtime"
	"strconv"
	"strings"
	"sync"
)

const (
	defaultSampleRate   = 48000
	defaultChannels     = 2
	defaultBufferFrames = 1024
	baseFreq            = 440.0
)

// ----- Utility ----- //

func noteToFreq(note int) float64 {
	return baseFreq * math.Pow(2, float64(note-69)/12)
}

// ----- Config ----- //

// Config fixes the stream for the lifetime of an Audio.
type Config struct {
	SampleRate   int
	Channels     int
	Format       string // f32, i16 or u16
	Output       string // "" plays on the device; *.wav, a raw file or "-" for stdout
	BufferFrames int
	PresetDir    string
}

// DefaultConfig ...
func DefaultConfig() Config {
	return Config{
		SampleRate:   defaultSampleRate,
		Channels:     defaultChannels,
		Format:       "i16",
		BufferFrames: defaultBufferFrames,
	}
}

func (c *Config) validate() (sampleFormat, error) {
	if c.SampleRate <= 0 {
		return 0, fmt.Errorf("invalid sample rate %d", c.SampleRate)
	}
	if c.Channels < 1 {
		return 0, fmt.Errorf("invalid channel count %d", c.Channels)
	}
	if c.BufferFrames <= 0 {
		c.BufferFrames = defaultBufferFrames
	}
	return parseSampleFormat(c.Format)
}

// ----- Audio ----- //

// ErrQuit is returned by update when the quit command was received.
var ErrQuit = errors.New("quit")

// Audio owns one stream: the voice, the parameter store and the sink.
type Audio struct {
	ctx            context.Context
	config         Config
	format         sampleFormat
	bytesPerFrame  int
	encode         func(b []byte, x float64)
	sink           sink
	CommandCh      chan []string
	store          *paramStore
	voice          *voice
	envelopeReport *envelopeReport
	done           chan struct{}
	doneOnce       sync.Once
	closed         chan struct{}
	closeOnce      sync.Once
	presets        *presetManager
	midiNote       int // guarded by midiMu
	midiMu         sync.Mutex
}

var _ io.Reader = (*Audio)(nil)

// NewAudio opens the sink described by c. Setup problems (bad format, no
// device, format the sink cannot take) are returned here and never later.
func NewAudio(c Config, initial *Params) (*Audio, error) {
	f, err := c.validate()
	if err != nil {
		return nil, err
	}
	s, err := openSink(&c, f)
	if err != nil {
		return nil, err
	}
	return newAudio(c, f, s, initial), nil
}

func newAudio(c Config, f sampleFormat, s sink, initial *Params) *Audio {
	p := newParams()
	if initial != nil {
		p = initial.p
	}
	store := newParamStore(p)
	audio := &Audio{
		ctx:            context.Background(),
		config:         c,
		format:         f,
		bytesPerFrame:  f.bytesPerSample() * c.Channels,
		encode:         f.encoder(),
		sink:           s,
		CommandCh:      make(chan []string, 256),
		store:          store,
		voice:          newVoice(store.snapshot(), float64(c.SampleRate)),
		envelopeReport: &envelopeReport{},
		done:           make(chan struct{}),
		closed:         make(chan struct{}),
		presets:        newPresetManager(c.PresetDir),
		midiNote:       -1,
	}
	go processCommands(audio, audio.CommandCh)
	return audio
}

// Read renders whole frames into buf. It takes one parameter snapshot per
// frame and copies the same encoded sample into every channel slot.
func (a *Audio) Read(buf []byte) (int, error) {
	select {
	case <-a.ctx.Done():
		return 0, io.EOF
	default:
	}
	bps := a.format.bytesPerSample()
	frames := len(buf) / a.bytesPerFrame
	for i := 0; i < frames; i++ {
		frame := buf[i*a.bytesPerFrame : (i+1)*a.bytesPerFrame]
		a.encode(frame, a.voice.step(a.store.snapshot()))
		for ch := 1; ch < a.config.Channels; ch++ {
			copy(frame[ch*bps:(ch+1)*bps], frame[:bps])
		}
	}
	a.envelopeReport.publish(a.voice.adsr.phase, a.voice.adsr.level)
	return frames * a.bytesPerFrame, nil
}

// Start runs the render loop until ctx is cancelled, Done is closed or
// maxFrames frames were written (0 means no limit). Sink errors are logged
// and the loop keeps going.
func (a *Audio) Start(ctx context.Context, maxFrames int) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	a.ctx = ctx

	buf := make([]byte, a.config.BufferFrames*a.bytesPerFrame)
	written := 0
	for maxFrames <= 0 || written < maxFrames {
		select {
		case <-ctx.Done():
			log.Println("Start() interrupted.")
			return nil
		case <-a.done:
			log.Println("Start() ended by quit.")
			return nil
		default:
		}
		chunk := buf
		if maxFrames > 0 && (maxFrames-written)*a.bytesPerFrame < len(chunk) {
			chunk = buf[:(maxFrames-written)*a.bytesPerFrame]
		}
		n, err := a.Read(chunk)
		if err == io.EOF {
			return nil
		}
		if _, err := a.sink.Write(chunk[:n]); err != nil {
			log.Printf("stream error: %v", err)
		}
		written += n / a.bytesPerFrame
	}
	log.Println("Start() ended.")
	return nil
}

// Done is closed once the quit command has been processed.
func (a *Audio) Done() <-chan struct{} {
	return a.done
}

// processCommands runs until Close. CommandCh itself is never closed, so
// late senders cannot panic; they should give up on their own context.
func processCommands(audio *Audio, commandCh <-chan []string) {
	defer log.Println("processCommands() ended.")
	for {
		select {
		case <-audio.closed:
			return
		case command := <-commandCh:
			err := audio.update(command)
			if err == ErrQuit {
				continue
			}
			if err != nil {
				log.Printf("ignored command %q: %v", command, err)
			}
		}
	}
}

func parseFloatArg(command []string) (float64, error) {
	if len(command) != 2 {
		return 0, fmt.Errorf("%s takes one number", command[0])
	}
	return parseFinite(command[1])
}

func parseFinite(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("not a finite number: %s", s)
	}
	return v, nil
}

func parseAdsr(args []string) (adsrParams, error) {
	var next adsrParams
	if len(args) != 4 {
		return next, fmt.Errorf("adsr takes attack(ms) decay(ms) sustain(0-1) release(ms)")
	}
	for i, key := range []string{"attack", "decay", "sustain", "release"} {
		if _, err := parseFinite(args[i]); err != nil {
			return next, err
		}
		if err := next.set(key, args[i]); err != nil {
			return next, err
		}
	}
	return next, nil
}

// Apply runs one command synchronously. Use CommandCh for fire-and-forget.
func (a *Audio) Apply(command []string) error {
	return a.update(command)
}

func (a *Audio) update(command []string) error {
	if len(command) == 0 {
		return nil
	}
	switch command[0] {
	case "n", "r", "i", "a":
		v, err := parseFloatArg(command)
		if err != nil {
			return err
		}
		a.store.update(func(p *params) {
			switch command[0] {
			case "n":
				p.setCarrierFreq(v)
			case "r":
				p.setModRatio(v)
			case "i":
				p.setModIndex(v)
			case "a":
				p.setAmplitude(v)
			}
		})
	case "on":
		a.store.update(func(p *params) { p.noteOn() })
	case "off":
		a.store.update(func(p *params) { p.noteOff() })
	case "adsr":
		next, err := parseAdsr(command[1:])
		if err != nil {
			return err
		}
		a.store.update(func(p *params) { p.adsr = next })
	case "p", "preset":
		if len(command) == 1 {
			names, err := a.presets.getList()
			if err != nil {
				return err
			}
			log.Printf("presets: %s", strings.Join(names, " "))
			return nil
		}
		return a.store.tryUpdate(func(p *params) error {
			return a.presets.applyToParams(command[1], p)
		})
	case "s", "status":
		log.Println(a.Status())
	case "h", "help":
		log.Println(helpText)
	case "q", "quit":
		a.doneOnce.Do(func() { close(a.done) })
		return ErrQuit
	default:
		return fmt.Errorf("unknown command %v", command[0])
	}
	return nil
}

const helpText = `commands:
  n <hz>       carrier frequency (>= 1)
  r <ratio>    modulator/carrier ratio (>= 0)
  i <index>    modulation index (>= 0)
  a <amp>      amplitude (0-1)
  on | off     note on / note off
  adsr <a> <d> <s> <r>  envelope (ms, ms, 0-1, ms)
  p [name]     list presets / load preset
  s | status   show state
  q | quit     quit`

// Status describes the current parameters and the envelope as last seen by
// the renderer. The second line can be saved as a preset file.
func (a *Audio) Status() string {
	p := a.store.snapshot()
	phase, level := a.envelopeReport.load()
	return fmt.Sprintf("%v envelope=%s level=%.3f\npreset: %s", p, phaseToString(phase), level, p.toJSON())
}

// Close stops command processing and closes the sink. Commands sent after
// Close are buffered and never applied.
func (a *Audio) Close() error {
	var err error
	a.closeOnce.Do(func() {
		log.Println("Closing Audio...")
		close(a.closed)
		err = a.sink.Close()
	})
	return err
}
