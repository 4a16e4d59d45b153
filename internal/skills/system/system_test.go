package system

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"strom/internal/desktop"
	"strom/internal/nlu"
)

type fakeVolume struct {
	calls []string
	err   error
}

func (f *fakeVolume) SetVolume(_ context.Context, p int) error {
	f.calls = append(f.calls, "set "+strconv.Itoa(p))
	return f.err
}

func (f *fakeVolume) ChangeVolume(_ context.Context, d int) error {
	f.calls = append(f.calls, "change "+strconv.Itoa(d))
	return f.err
}

func (f *fakeVolume) SetMute(_ context.Context, m bool) error {
	if m {
		f.calls = append(f.calls, "mute")
	} else {
		f.calls = append(f.calls, "unmute")
	}
	return f.err
}

func newController(cfg Config) (*Controller, *desktop.Recorder, *fakeVolume) {
	rec := &desktop.Recorder{}
	vol := &fakeVolume{}
	return New(rec, vol, cfg), rec, vol
}

func req(intent nlu.Intent, e nlu.Entities) nlu.Result {
	return nlu.Result{Intent: intent, Entities: e}
}

func TestPower_DisabledByDefault(t *testing.T) {
	c, rec, _ := newController(Config{})

	reply, err := c.Shutdown(context.Background(), req(nlu.Shutdown, nil))
	require.NoError(t, err)
	assert.Equal(t, "Power commands are disabled in the settings.", reply)

	reply, err = c.Restart(context.Background(), req(nlu.Restart, nil))
	require.NoError(t, err)
	assert.Equal(t, "Power commands are disabled in the settings.", reply)

	assert.Empty(t, rec.Commands)
}

func TestPower_Allowed(t *testing.T) {
	c, rec, _ := newController(Config{AllowPower: true})

	reply, err := c.Shutdown(context.Background(), req(nlu.Shutdown, nil))
	require.NoError(t, err)
	assert.Equal(t, "Shutting down in one minute...", reply)

	_, err = c.Restart(context.Background(), req(nlu.Restart, nil))
	require.NoError(t, err)

	assert.Equal(t, []string{"shutdown -h +1", "shutdown -r +1"}, rec.Commands)
}

func TestLockAndSleep(t *testing.T) {
	c, rec, _ := newController(Config{})

	reply, err := c.Lock(context.Background(), req(nlu.Lock, nil))
	require.NoError(t, err)
	assert.Equal(t, "Screen locked.", reply)

	rec.Errors = map[string]error{"systemctl suspend": errors.New("denied")}
	_, err = c.Sleep(context.Background(), req(nlu.Sleep, nil))
	assert.Error(t, err)
}

func TestOpenApp(t *testing.T) {
	c, rec, _ := newController(Config{Commands: map[string]string{"calculator": "gnome-calculator --mode=basic"}})
	ctx := context.Background()

	reply, err := c.OpenApp(ctx, req(nlu.OpenApp, nlu.Entities{nlu.KeyAppName: nlu.UnknownApp}))
	require.NoError(t, err)
	assert.Equal(t, "Which application should I open?", reply)

	reply, err = c.OpenApp(ctx, req(nlu.OpenApp, nlu.Entities{nlu.KeyAppName: "calculator"}))
	require.NoError(t, err)
	assert.Equal(t, "Opening calculator...", reply)
	assert.Equal(t, "gnome-calculator --mode=basic", rec.Last())

	_, err = c.OpenApp(ctx, req(nlu.OpenApp, nlu.Entities{nlu.KeyAppName: "google chrome"}))
	require.NoError(t, err)
	assert.Equal(t, "google-chrome", rec.Last())

	rec.Errors = map[string]error{"spotify": errors.New("not found")}
	reply, err = c.OpenApp(ctx, req(nlu.OpenApp, nlu.Entities{nlu.KeyAppName: "spotify"}))
	require.NoError(t, err)
	assert.Equal(t, "Failed to open spotify.", reply)
}

func TestCloseApp(t *testing.T) {
	c, rec, _ := newController(Config{})
	ctx := context.Background()

	reply, err := c.CloseApp(ctx, req(nlu.CloseApp, nlu.Entities{}))
	require.NoError(t, err)
	assert.Equal(t, "Which application should I close?", reply)

	rec.Errors = map[string]error{"pgrep -i -f firefox": errors.New("exit status 1")}
	reply, err = c.CloseApp(ctx, req(nlu.CloseApp, nlu.Entities{nlu.KeyAppName: "firefox"}))
	require.NoError(t, err)
	assert.Equal(t, "firefox is not running.", reply)

	rec.Errors = nil
	rec.Outputs = map[string]string{"pgrep -i -f firefox": "1234\n"}
	reply, err = c.CloseApp(ctx, req(nlu.CloseApp, nlu.Entities{nlu.KeyAppName: "firefox"}))
	require.NoError(t, err)
	assert.Equal(t, "Closed firefox.", reply)
	assert.Equal(t, "pkill -i -f firefox", rec.Last())
}

func TestVolume(t *testing.T) {
	tests := []struct {
		name  string
		e     nlu.Entities
		reply string
		call  string
	}{
		{"set", nlu.Entities{nlu.KeyLevel: 40, nlu.KeyAction: nlu.ActionSet}, "Volume set to 40%.", "set 40"},
		{"up", nlu.Entities{nlu.KeyLevel: nil, nlu.KeyAction: nlu.ActionIncrease}, "Volume up.", "change 10"},
		{"down", nlu.Entities{nlu.KeyLevel: nil, nlu.KeyAction: nlu.ActionDecrease}, "Volume down.", "change -10"},
		{"mute", nlu.Entities{nlu.KeyAction: nlu.ActionMute}, "Volume muted.", "mute"},
		{"unmute", nlu.Entities{nlu.KeyAction: nlu.ActionUnmute}, "Volume unmuted.", "unmute"},
		{"no level", nlu.Entities{nlu.KeyLevel: nil, nlu.KeyAction: nlu.ActionSet}, "What volume level?", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _, vol := newController(Config{})

			reply, err := c.Volume(context.Background(), req(nlu.Volume, tt.e))
			require.NoError(t, err)
			assert.Equal(t, tt.reply, reply)

			if tt.call == "" {
				assert.Empty(t, vol.calls)
			} else {
				assert.Equal(t, []string{tt.call}, vol.calls)
			}
		})
	}
}

func TestVolume_Error(t *testing.T) {
	c, _, vol := newController(Config{})
	vol.err = errors.New("no sink")

	_, err := c.Volume(context.Background(), req(nlu.Volume, nlu.Entities{nlu.KeyAction: nlu.ActionMute}))
	assert.ErrorIs(t, err, vol.err)
}

func TestBrightness(t *testing.T) {
	c, rec, _ := newController(Config{Step: 5})
	ctx := context.Background()

	reply, err := c.Brightness(ctx, req(nlu.Brightness, nlu.Entities{nlu.KeyLevel: 70, nlu.KeyAction: nlu.ActionSet}))
	require.NoError(t, err)
	assert.Equal(t, "Brightness set to 70%.", reply)
	assert.Equal(t, "brightnessctl set 70%", rec.Last())

	_, err = c.Brightness(ctx, req(nlu.Brightness, nlu.Entities{nlu.KeyAction: nlu.ActionDecrease}))
	require.NoError(t, err)
	assert.Equal(t, "brightnessctl set 5%-", rec.Last())

	reply, err = c.Brightness(ctx, req(nlu.Brightness, nlu.Entities{nlu.KeyLevel: nil, nlu.KeyAction: nlu.ActionSet}))
	require.NoError(t, err)
	assert.Equal(t, "What brightness level?", reply)
}

func TestScreenshot(t *testing.T) {
	c, rec, _ := newController(Config{ScreenshotDir: "/tmp/shots"})
	c.now = func() time.Time { return time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC) }

	reply, err := c.Screenshot(context.Background(), req(nlu.Screenshot, nil))
	require.NoError(t, err)
	assert.Equal(t, "Screenshot saved as screenshot_20240506_070809.png", reply)
	assert.Equal(t, "grim /tmp/shots/screenshot_20240506_070809.png", rec.Last())
}

func TestTypeTextAndPressKey(t *testing.T) {
	c, rec, _ := newController(Config{})
	ctx := context.Background()

	reply, err := c.TypeText(ctx, req(nlu.TypeText, nlu.Entities{nlu.KeyText: "Dear Sir"}))
	require.NoError(t, err)
	assert.Equal(t, "Typed: 'Dear Sir'", reply)
	assert.Equal(t, "wtype -- Dear Sir", rec.Last())

	reply, err = c.TypeText(ctx, req(nlu.TypeText, nlu.Entities{nlu.KeyText: ""}))
	require.NoError(t, err)
	assert.Equal(t, "What should I type?", reply)

	reply, err = c.PressKey(ctx, req(nlu.PressKey, nlu.Entities{nlu.KeyKey: "enter"}))
	require.NoError(t, err)
	assert.Equal(t, "Pressed enter key.", reply)
	assert.Equal(t, "wtype -k Return", rec.Last())

	_, err = c.PressKey(ctx, req(nlu.PressKey, nlu.Entities{nlu.KeyKey: "a"}))
	require.NoError(t, err)
	assert.Equal(t, "wtype -k a", rec.Last())

	reply, err = c.PressKey(ctx, req(nlu.PressKey, nlu.Entities{nlu.KeyKey: "hyper"}))
	require.NoError(t, err)
	assert.Equal(t, "I don't know the hyper key.", reply)

	reply, err = c.PressKey(ctx, req(nlu.PressKey, nlu.Entities{}))
	require.NoError(t, err)
	assert.Equal(t, "Which key should I press?", reply)
}

func TestSystemInfo(t *testing.T) {
	proc := t.TempDir()
	sys := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(proc, "loadavg"), []byte("0.52 0.40 0.33 1/234 5678\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(proc, "meminfo"), []byte(
		"MemTotal:       16777216 kB\nMemFree:         1000000 kB\nMemAvailable:    8388608 kB\n"), 0o644))
	bat := filepath.Join(sys, "class", "power_supply", "BAT0")
	require.NoError(t, os.MkdirAll(bat, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(bat, "capacity"), []byte("81\n"), 0o644))

	c, rec, _ := newController(Config{ProcDir: proc, SysDir: sys})
	rec.Outputs = map[string]string{"uname -r": "6.1.0\n"}

	reply, err := c.SystemInfo(context.Background(), req(nlu.SystemInfo, nil))
	require.NoError(t, err)

	assert.Contains(t, reply, "System status:\n")
	assert.Contains(t, reply, "6.1.0")
	assert.Contains(t, reply, "load 0.52")
	assert.Contains(t, reply, "Memory: 50% used (8.0 GiB of 16 GiB)")
	assert.Contains(t, reply, "Battery: 81%")
}

func TestReadMemInfo_Missing(t *testing.T) {
	_, err := readMemInfo([]byte("MemFree: 10 kB\n"))
	assert.Error(t, err)
}

func TestRoutes(t *testing.T) {
	c, _, _ := newController(Config{})
	routes := c.Routes()

	for _, intent := range []nlu.Intent{
		nlu.Shutdown, nlu.Restart, nlu.Lock, nlu.Sleep, nlu.OpenApp, nlu.CloseApp,
		nlu.Volume, nlu.Brightness, nlu.Screenshot, nlu.SystemInfo, nlu.TypeText, nlu.PressKey,
	} {
		assert.Contains(t, routes, intent)
	}
}
