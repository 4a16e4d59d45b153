package audio

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"
)

type fadeTarget struct {
	id   int
	from int
	to   int
}

// Ducker lowers the other playback streams while the assistant listens or
// speaks. Streams whose application.name is in selfNames are left alone.
type Ducker struct {
	pactl *Pactl

	mu          sync.Mutex
	active      bool
	selfNames   []string
	originalVol map[int]int // sink input id -> volume before ducking
	minVolume   int
	sleep       func(time.Duration)
}

func NewDucker(p *Pactl, selfNames []string, minVolume int) *Ducker {
	return &Ducker{
		pactl:       p,
		selfNames:   append([]string(nil), selfNames...),
		originalVol: make(map[int]int),
		minVolume:   clampVolume(minVolume),
		sleep:       time.Sleep,
	}
}

// DuckOthers fades every foreign stream to current*factor, but not below
// minVolume.
func (d *Ducker) DuckOthers(ctx context.Context, factor float64, duration time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.active {
		return nil
	}

	streams, err := d.pactl.sinkInputs(ctx)
	if err != nil {
		return err
	}

	d.originalVol = make(map[int]int)

	var targets []fadeTarget

	for _, s := range streams {
		if d.isSelfStream(s) {
			continue
		}

		from := s.Volume

		targetFloat := float64(from) * factor
		if targetFloat < float64(d.minVolume) {
			targetFloat = float64(d.minVolume)
		}
		if targetFloat > maxVolume {
			targetFloat = maxVolume
		}

		to := int(math.Round(targetFloat))

		d.originalVol[s.ID] = from

		targets = append(targets, fadeTarget{
			id:   s.ID,
			from: from,
			to:   to,
		})
	}

	if len(targets) == 0 {
		d.active = true
		return nil
	}

	if err := d.fade(ctx, targets, duration); err != nil {
		return err
	}

	d.active = true

	return nil
}

// UnduckOthers fades the ducked streams back to their original volumes.
func (d *Ducker) UnduckOthers(ctx context.Context, duration time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.active {
		return nil
	}

	streams, err := d.pactl.sinkInputs(ctx)
	if err != nil {
		return err
	}

	curVol := make(map[int]int)

	for _, s := range streams {
		if d.isSelfStream(s) {
			continue
		}
		curVol[s.ID] = s.Volume
	}

	var targets []fadeTarget

	for id, from := range curVol {
		orig, ok := d.originalVol[id]
		if !ok {
			// started after DuckOthers
			continue
		}

		targets = append(targets, fadeTarget{
			id:   id,
			from: from,
			to:   orig,
		})
	}

	if len(targets) > 0 {
		if err := d.fade(ctx, targets, duration); err != nil {
			return err
		}
	}

	d.originalVol = make(map[int]int)
	d.active = false

	return nil
}

func (d *Ducker) isSelfStream(s streamInfo) bool {
	for _, name := range d.selfNames {
		if s.AppName == name {
			return true
		}
	}

	return false
}

// fade steps every target from its start to its end volume over duration.
func (d *Ducker) fade(ctx context.Context, targets []fadeTarget, duration time.Duration) error {
	if duration <= 0 {
		for _, t := range targets {
			if err := d.pactl.setSinkInputVolume(ctx, t.id, t.to); err != nil {
				return fmt.Errorf("set volume id=%d: %w", t.id, err)
			}
		}

		return nil
	}

	const minStepDuration = 10 * time.Millisecond

	steps := int(duration / minStepDuration)
	if steps < 1 {
		steps = 1
	}

	stepDuration := duration / time.Duration(steps)

	for i := 0; i <= steps; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		tFrac := float64(i) / float64(steps)

		for _, s := range targets {
			delta := s.to - s.from
			vFloat := float64(s.from) + float64(delta)*tFrac
			v := int(math.Round(vFloat))

			if err := d.pactl.setSinkInputVolume(ctx, s.id, v); err != nil {
				return fmt.Errorf("set volume id=%d: %w", s.id, err)
			}
		}

		if i < steps {
			d.sleep(stepDuration)
		}
	}

	return nil
}
