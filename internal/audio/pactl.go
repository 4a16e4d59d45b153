package audio

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"strom/internal/desktop"
)

const maxVolume = 150

var percentRe = regexp.MustCompile(`(\d+)\s*%`)

type streamInfo struct {
	ID      int
	Volume  int
	AppName string
}

// Pactl drives PulseAudio/PipeWire through the pactl command.
type Pactl struct {
	run desktop.Runner
}

func NewPactl(r desktop.Runner) *Pactl {
	return &Pactl{run: r}
}

func clampVolume(percent int) int {
	return max(0, min(percent, maxVolume))
}

// SetVolume sets the default sink to percent.
func (p *Pactl) SetVolume(ctx context.Context, percent int) error {
	return p.run.Run(ctx, "pactl", "set-sink-volume", "@DEFAULT_SINK@", fmt.Sprintf("%d%%", clampVolume(percent)))
}

// ChangeVolume moves the default sink by delta percent.
func (p *Pactl) ChangeVolume(ctx context.Context, delta int) error {
	return p.run.Run(ctx, "pactl", "set-sink-volume", "@DEFAULT_SINK@", fmt.Sprintf("%+d%%", delta))
}

func (p *Pactl) SetMute(ctx context.Context, mute bool) error {
	state := "0"
	if mute {
		state = "1"
	}
	return p.run.Run(ctx, "pactl", "set-sink-mute", "@DEFAULT_SINK@", state)
}

func (p *Pactl) sinkInputs(ctx context.Context) ([]streamInfo, error) {
	out, err := p.run.Output(ctx, "pactl", "list", "sink-inputs")
	if err != nil {
		return nil, fmt.Errorf("pactl list sink-inputs: %w", err)
	}
	return parseSinkInputs(string(out)), nil
}

func (p *Pactl) setSinkInputVolume(ctx context.Context, id int, percent int) error {
	return p.run.Run(ctx, "pactl", "set-sink-input-volume", strconv.Itoa(id), fmt.Sprintf("%d%%", clampVolume(percent)))
}

// parseSinkInputs reads the output of `pactl list sink-inputs`.
func parseSinkInputs(text string) []streamInfo {
	parts := strings.Split(text, "Sink Input #")
	if len(parts) <= 1 {
		return nil
	}

	var res []streamInfo

	for _, block := range parts[1:] {
		newline := strings.IndexByte(block, '\n')
		if newline <= 0 {
			continue
		}

		id, err := strconv.Atoi(strings.TrimSpace(block[:newline]))
		if err != nil {
			continue
		}

		s := streamInfo{ID: id}

		for _, line := range strings.Split(block[newline+1:], "\n") {
			line = strings.TrimSpace(line)

			if strings.HasPrefix(line, "Volume:") && s.Volume == 0 {
				if m := percentRe.FindStringSubmatch(line); len(m) >= 2 {
					if v, err := strconv.Atoi(m[1]); err == nil {
						s.Volume = v
					}
				}
			}

			// application.name = "Firefox"
			if strings.HasPrefix(line, "application.name =") && s.AppName == "" {
				if idx := strings.Index(line, "\""); idx >= 0 {
					line = line[idx+1:]
					if idx2 := strings.Index(line, "\""); idx2 >= 0 {
						s.AppName = line[:idx2]
					}
				}
			}
		}

		if s.Volume == 0 && s.AppName == "" {
			continue
		}

		res = append(res, s)
	}

	return res
}
