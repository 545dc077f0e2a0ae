package audio

import (
	"context"
	"log"
	"strconv"

	"gitlab.com/gomidi/rtmididrv"
)

// ListenToMidiIn ...
func ListenToMidiIn(ctx context.Context) <-chan []byte {
	ch := make(chan []byte, 1024)
	go func() {
		defer close(ch)
		drv, err := rtmididrv.New()
		if err != nil {
			log.Printf("failed to initialize MIDI driver: %v\n", err)
			return
		}
		defer func() {
			err := drv.Close()
			if err != nil {
				log.Printf("failed to close MIDI driver: %v\n", err)
			}
		}()
		ins, err := drv.Ins()
		if err != nil {
			log.Printf("failed to get MIDI IN: %v\n", err)
			return
		}
		log.Printf("MIDI IN: %v\n", ins)

		if len(ins) == 0 {
			log.Println("WARN: MIDI IN not found")
			return
		}
		in := ins[0]
		if err := in.Open(); err != nil {
			log.Printf("failed to open MIDI IN: %v\n", err)
			return
		}
		log.Println("opened " + in.String())
		defer func() {
			err := in.Close()
			if err != nil {
				log.Printf("failed to close MIDI IN: %v\n", err)
			}
		}()
		if err := in.SetListener(func(data []byte, deltaMicroseconds int64) {
			msg := make([]byte, len(data))
			copy(msg, data)
			select {
			case ch <- msg:
			default:
				log.Println("WARN: MIDI message dropped")
			}
		}); err != nil {
			log.Println("failed to set listener: " + err.Error())
			return
		}
		defer func() {
			log.Println("stop listening MIDI IN...")
			err := in.StopListening()
			if err != nil {
				log.Printf("failed to stop listening: %v\n", err)
			}
		}()
		<-ctx.Done()
	}()
	return ch
}

// AddMidiEvent turns note messages into commands. The most recent note owns
// the voice; releasing any other key does nothing.
func (a *Audio) AddMidiEvent(data []byte) {
	for _, command := range a.midiCommands(data) {
		if err := a.update(command); err != nil {
			log.Printf("failed to apply MIDI message %v: %v", data, err)
		}
	}
}

func (a *Audio) midiCommands(data []byte) [][]string {
	if len(data) < 3 {
		return nil
	}
	a.midiMu.Lock()
	defer a.midiMu.Unlock()
	status := data[0] >> 4
	note := int(data[1])
	if status == 8 || status == 9 && data[2] == 0 {
		if note != a.midiNote {
			return nil
		}
		a.midiNote = -1
		return [][]string{{"off"}}
	}
	if status == 9 {
		a.midiNote = note
		freq := strconv.FormatFloat(noteToFreq(note), 'f', -1, 64)
		return [][]string{{"n", freq}, {"on"}}
	}
	return nil
}
