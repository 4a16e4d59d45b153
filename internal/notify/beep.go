// Package notify gives audible and visual feedback that the assistant is
// listening.
package notify

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"

	"strom/internal/desktop"
)

// Beeper plays a short mp3 cue.
type Beeper struct {
	path string

	once    sync.Once
	initErr error
}

func NewBeeper(path string) *Beeper {
	return &Beeper{path: path}
}

func (b *Beeper) Beep() error {
	f, err := os.Open(b.path)
	if err != nil {
		return fmt.Errorf("open beep: %w", err)
	}

	streamer, format, err := mp3.Decode(f)
	if err != nil {
		f.Close()
		return fmt.Errorf("decode beep: %w", err)
	}
	defer streamer.Close()

	// the speaker can only be initialised once per process
	b.once.Do(func() {
		b.initErr = speaker.Init(format.SampleRate, format.SampleRate.N(time.Second/10))
	})
	if b.initErr != nil {
		return fmt.Errorf("init speaker: %w", b.initErr)
	}

	done := make(chan struct{})
	speaker.Play(beep.Seq(streamer, beep.Callback(func() {
		close(done)
	})))
	<-done

	return nil
}

// Desktop shows notifications through notify-send.
type Desktop struct {
	run   desktop.Runner
	title string
}

func NewDesktop(run desktop.Runner, title string) *Desktop {
	return &Desktop{run: run, title: title}
}

func (d *Desktop) Notify(ctx context.Context, body string) error {
	return d.run.Run(ctx, "notify-send", "--app-name="+d.title, "--expire-time=3000", d.title, body)
}
