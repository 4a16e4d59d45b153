package audio

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"strom/internal/desktop"
)

const sinkInputs = `Sink Input #41
	Driver: protocol-native.c
	Volume: front-left: 52429 /  80% / -5.81 dB,   front-right: 52429 /  80% / -5.81 dB
	Properties:
		application.name = "Firefox"
Sink Input #57
	Volume: front-left: 65536 / 100% / 0.00 dB,   front-right: 65536 / 100% / 0.00 dB
	Properties:
		application.name = "strom"
Sink Input #x
	Volume: front-left: 65536 / 100% / 0.00 dB
`

func TestParseSinkInputs(t *testing.T) {
	got := parseSinkInputs(sinkInputs)
	assert.Equal(t, []streamInfo{
		{ID: 41, Volume: 80, AppName: "Firefox"},
		{ID: 57, Volume: 100, AppName: "strom"},
	}, got)

	assert.Nil(t, parseSinkInputs(""))
}

func TestPactl_Volume(t *testing.T) {
	rec := &desktop.Recorder{}
	p := NewPactl(rec)
	ctx := context.Background()

	require.NoError(t, p.SetVolume(ctx, 40))
	require.NoError(t, p.SetVolume(ctx, 400))
	require.NoError(t, p.ChangeVolume(ctx, 10))
	require.NoError(t, p.ChangeVolume(ctx, -10))
	require.NoError(t, p.SetMute(ctx, true))
	require.NoError(t, p.SetMute(ctx, false))

	assert.Equal(t, []string{
		"pactl set-sink-volume @DEFAULT_SINK@ 40%",
		"pactl set-sink-volume @DEFAULT_SINK@ 150%",
		"pactl set-sink-volume @DEFAULT_SINK@ +10%",
		"pactl set-sink-volume @DEFAULT_SINK@ -10%",
		"pactl set-sink-mute @DEFAULT_SINK@ 1",
		"pactl set-sink-mute @DEFAULT_SINK@ 0",
	}, rec.Commands)
}

func TestDucker_SkipsOwnStreams(t *testing.T) {
	rec := &desktop.Recorder{
		Outputs: map[string]string{"pactl list sink-inputs": sinkInputs},
	}
	d := NewDucker(NewPactl(rec), []string{"strom"}, 10)
	ctx := context.Background()

	require.NoError(t, d.DuckOthers(ctx, 0.25, 0))
	assert.Equal(t, "pactl set-sink-input-volume 41 20%", rec.Last())

	// second duck is a no-op
	n := len(rec.Commands)
	require.NoError(t, d.DuckOthers(ctx, 0.25, 0))
	assert.Len(t, rec.Commands, n)

	require.NoError(t, d.UnduckOthers(ctx, 0))
	assert.Equal(t, "pactl set-sink-input-volume 41 80%", rec.Last())
	for _, c := range rec.Commands {
		assert.NotContains(t, c, "set-sink-input-volume 57")
	}
}

func TestDucker_FadeSteps(t *testing.T) {
	rec := &desktop.Recorder{
		Outputs: map[string]string{"pactl list sink-inputs": sinkInputs},
	}
	d := NewDucker(NewPactl(rec), []string{"strom"}, 0)

	var slept time.Duration
	d.sleep = func(dur time.Duration) { slept += dur }

	require.NoError(t, d.DuckOthers(context.Background(), 0.5, 50*time.Millisecond))

	assert.Equal(t, 50*time.Millisecond, slept)
	assert.Equal(t, "pactl set-sink-input-volume 41 40%", rec.Last())
}
