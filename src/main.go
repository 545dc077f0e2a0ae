package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jinjor/fm-synth/src/audio"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"
)

func main() {
	config := audio.DefaultConfig()
	flag.IntVar(&config.SampleRate, "rate", config.SampleRate, "sample rate in Hz")
	flag.IntVar(&config.Channels, "channels", config.Channels, "number of output channels")
	flag.StringVar(&config.Format, "format", config.Format, "sample format: f32, i16 or u16")
	flag.StringVar(&config.Output, "out", "", "write to a .wav or raw PCM file instead of the device (- for stdout)")
	flag.IntVar(&config.BufferFrames, "buffer", config.BufferFrames, "frames per buffer")
	flag.StringVar(&config.PresetDir, "presets", "presets", "directory searched by the p command")
	presetPath := flag.String("preset", "", "JSON preset with initial parameters")
	duration := flag.Duration("duration", 0, "offline render length (with -out)")
	hold := flag.Duration("hold", time.Second, "how long the note is held in offline render")
	useMidi := flag.Bool("midi", false, "listen to the first MIDI IN port")
	flag.Parse()
	log.SetFlags(log.Lshortfile)

	initial := audio.DefaultParams()
	if *presetPath != "" {
		p, err := audio.LoadPreset(*presetPath)
		if err != nil {
			log.Fatalf("error: %v\n", err)
		}
		initial = p
	}
	log.Printf("initial params: %v\n", initial)

	a, err := audio.NewAudio(config, initial)
	if err != nil {
		log.Fatalf("error: %v\n", err)
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Printf("error while closing audio: %v", err)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if config.Output != "" && *duration > 0 {
		if err := renderOffline(ctx, a, config.SampleRate, *hold, *duration); err != nil {
			log.Printf("error: %v\n", err)
		}
		return
	}

	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(signalCh)
	go func() {
		select {
		case sig := <-signalCh:
			log.Printf("Caught signal %s: shutting down...\n", sig)
		case <-a.Done():
		case <-ctx.Done():
		}
		cancel()
	}()

	// stdin cannot be interrupted, so the reader is not part of the group
	go func() {
		interactive := term.IsTerminal(int(os.Stdin.Fd()))
		if err := receiveCommands(ctx, os.Stdin, a.CommandCh, interactive); err != nil {
			log.Printf("error while reading commands: %v", err)
		}
		if !*useMidi {
			cancel()
		}
	}()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.Start(gctx, 0)
	})
	if *useMidi {
		g.Go(func() error {
			for data := range audio.ListenToMidiIn(gctx) {
				a.AddMidiEvent(data)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Printf("error: %v\n", err)
	}
	log.Println("main() ended.")
}

func receiveCommands(ctx context.Context, r io.Reader, commandCh chan<- []string, interactive bool) error {
	reader := bufio.NewReader(r)
	for {
		if interactive {
			fmt.Fprint(os.Stderr, "> ")
		}
		line, err := reader.ReadString('\n')
		command := strings.Fields(line)
		if ctx.Err() != nil {
			return nil
		}
		if len(command) > 0 {
			select {
			case <-ctx.Done():
				return nil
			case commandCh <- command:
			}
			if command[0] == "q" || command[0] == "quit" {
				return nil
			}
		}
		if err == io.EOF {
			log.Println("end of input")
			return nil
		}
		if err != nil {
			return err
		}
	}
}

func renderOffline(ctx context.Context, a *audio.Audio, sampleRate int, hold, duration time.Duration) error {
	holdFrames := int(hold.Seconds() * float64(sampleRate))
	totalFrames := int(duration.Seconds() * float64(sampleRate))
	if holdFrames < 0 {
		holdFrames = 0
	}
	if holdFrames > totalFrames {
		holdFrames = totalFrames
	}
	log.Printf("rendering %v (note held for %v)\n", duration, hold)
	if err := a.Apply([]string{"on"}); err != nil {
		return err
	}
	if holdFrames > 0 {
		if err := a.Start(ctx, holdFrames); err != nil {
			return err
		}
	}
	if err := a.Apply([]string{"off"}); err != nil {
		return err
	}
	if totalFrames > holdFrames {
		return a.Start(ctx, totalFrames-holdFrames)
	}
	return nil
}
