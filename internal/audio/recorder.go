package audio

import (
	"errors"
	"math"
	"time"

	"github.com/gordonklaus/portaudio"
)

// SampleRate is what the transcriber expects.
const SampleRate = 16000

var ErrNoAudio = errors.New("no audio recorded")

type RecorderOptions struct {
	// SilenceThreshold is the frame RMS below which a frame counts as silence.
	SilenceThreshold float64
	// Silence ends an utterance once speech has started.
	Silence time.Duration
	// MaxLength caps a single recording.
	MaxLength time.Duration
}

func (o *RecorderOptions) defaults() {
	if o.SilenceThreshold <= 0 {
		o.SilenceThreshold = 0.015
	}
	if o.Silence <= 0 {
		o.Silence = 600 * time.Millisecond
	}
	if o.MaxLength <= 0 {
		o.MaxLength = 10 * time.Second
	}
}

type Recorder struct {
	opts RecorderOptions
}

func NewRecorder(opts RecorderOptions) *Recorder {
	opts.defaults()
	return &Recorder{opts: opts}
}

func (r *Recorder) Init() error {
	return portaudio.Initialize()
}

func (r *Recorder) Close() {
	portaudio.Terminate()
}

// RecordAuto records one utterance from the default input: it waits for
// speech and stops after a stretch of silence or at MaxLength.
func (r *Recorder) RecordAuto() ([]float32, error) {
	const frameSize = 320 // 20ms

	buf := make([]float32, frameSize)
	out := make([]float32, 0, SampleRate*3)

	stream, err := portaudio.OpenDefaultStream(1, 0, SampleRate, len(buf), buf)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return nil, err
	}
	defer stream.Stop()

	seg := newSegmenter(r.opts, frameSize)
	maxFrames := int(r.opts.MaxLength.Seconds() * SampleRate / frameSize)

	for i := 0; i < maxFrames; i++ {
		if err := stream.Read(); err != nil {
			return nil, err
		}

		keep, done := seg.push(frameRMS(buf))
		if keep {
			out = append(out, buf...)
		}
		if done {
			break
		}
	}

	if len(out) == 0 {
		return nil, ErrNoAudio
	}
	return out, nil
}

// RecordUntil records until stop is closed or maxDur elapses.
func (r *Recorder) RecordUntil(stop <-chan struct{}, maxDur time.Duration) ([]float32, error) {
	if maxDur <= 0 {
		maxDur = 15 * time.Second
	}

	const frameSize = 1024

	buf := make([]float32, frameSize)

	stream, err := portaudio.OpenDefaultStream(1, 0, float64(SampleRate), len(buf), buf)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return nil, err
	}
	defer stream.Stop()

	deadline := time.Now().Add(maxDur)
	out := make([]float32, 0, int(float64(SampleRate)*maxDur.Seconds()))

	for time.Now().Before(deadline) {
		select {
		case <-stop:
			return out, nil
		default:
		}

		if err := stream.Read(); err != nil {
			return nil, err
		}

		out = append(out, buf...)
	}

	if len(out) == 0 {
		return nil, ErrNoAudio
	}

	return out, nil
}

// segmenter decides, frame by frame, whether audio belongs to the utterance.
type segmenter struct {
	threshold     float64
	silenceFrames int
	frameDur      time.Duration
	silence       time.Duration

	speaking bool
	quiet    int
}

func newSegmenter(opts RecorderOptions, frameSize int) *segmenter {
	return &segmenter{
		threshold: opts.SilenceThreshold,
		frameDur:  time.Duration(frameSize) * time.Second / SampleRate,
		silence:   opts.Silence,
	}
}

// push returns whether to keep the frame and whether the utterance is over.
func (s *segmenter) push(rms float64) (keep, done bool) {
	if rms > s.threshold {
		s.speaking = true
		s.quiet = 0
		return true, false
	}
	if !s.speaking {
		return false, false
	}

	s.quiet++
	if time.Duration(s.quiet)*s.frameDur >= s.silence {
		return false, true
	}
	return true, false
}

func frameRMS(f []float32) float64 {
	if len(f) == 0 {
		return 0
	}
	var s float64
	for _, x := range f {
		s += float64(x * x)
	}
	return math.Sqrt(s / float64(len(f)))
}
