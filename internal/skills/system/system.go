// Package system controls the local desktop session: power, apps, audio,
// display and input.
package system

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"path/filepath"
	"strings"
	"time"

	"strom/internal/desktop"
	"strom/internal/nlu"
	"strom/internal/router"
)

var ErrPowerDisabled = errors.New("power commands are disabled")

// VolumeControl is implemented by audio.Pactl.
type VolumeControl interface {
	SetVolume(ctx context.Context, percent int) error
	ChangeVolume(ctx context.Context, delta int) error
	SetMute(ctx context.Context, mute bool) error
}

type Config struct {
	// AllowPower enables shutdown and restart.
	AllowPower bool
	// Commands maps a canonical app name to the command line that starts it.
	Commands map[string]string
	// ScreenshotDir is where screenshots are written.
	ScreenshotDir string
	// Step is the volume/brightness change for "up" and "down", in percent.
	Step int
	// ProcDir and SysDir are the procfs and sysfs mount points.
	ProcDir string
	SysDir  string
}

type Controller struct {
	run    desktop.Runner
	volume VolumeControl
	cfg    Config
	now    func() time.Time
}

func New(run desktop.Runner, volume VolumeControl, cfg Config) *Controller {
	if cfg.Step <= 0 {
		cfg.Step = 10
	}
	if cfg.ScreenshotDir == "" {
		cfg.ScreenshotDir = "."
	}
	if cfg.ProcDir == "" {
		cfg.ProcDir = "/proc"
	}
	if cfg.SysDir == "" {
		cfg.SysDir = "/sys"
	}

	return &Controller{
		run:    run,
		volume: volume,
		cfg:    cfg,
		now:    time.Now,
	}
}

func (c *Controller) Routes() map[nlu.Intent]router.Handler {
	return map[nlu.Intent]router.Handler{
		nlu.Shutdown:   c.Shutdown,
		nlu.Restart:    c.Restart,
		nlu.Lock:       c.Lock,
		nlu.Sleep:      c.Sleep,
		nlu.OpenApp:    c.OpenApp,
		nlu.CloseApp:   c.CloseApp,
		nlu.Volume:     c.Volume,
		nlu.Brightness: c.Brightness,
		nlu.Screenshot: c.Screenshot,
		nlu.SystemInfo: c.SystemInfo,
		nlu.TypeText:   c.TypeText,
		nlu.PressKey:   c.PressKey,
	}
}

func (c *Controller) Shutdown(ctx context.Context, _ nlu.Result) (string, error) {
	if !c.cfg.AllowPower {
		log.Warn("Shutdown refused", "err", ErrPowerDisabled)
		return "Power commands are disabled in the settings.", nil
	}
	if err := c.run.Run(ctx, "shutdown", "-h", "+1"); err != nil {
		return "", fmt.Errorf("shutdown: %w", err)
	}
	return "Shutting down in one minute...", nil
}

func (c *Controller) Restart(ctx context.Context, _ nlu.Result) (string, error) {
	if !c.cfg.AllowPower {
		log.Warn("Restart refused", "err", ErrPowerDisabled)
		return "Power commands are disabled in the settings.", nil
	}
	if err := c.run.Run(ctx, "shutdown", "-r", "+1"); err != nil {
		return "", fmt.Errorf("restart: %w", err)
	}
	return "Restarting in one minute...", nil
}

func (c *Controller) Lock(ctx context.Context, _ nlu.Result) (string, error) {
	if err := c.run.Run(ctx, "loginctl", "lock-session"); err != nil {
		return "", fmt.Errorf("lock: %w", err)
	}
	return "Screen locked.", nil
}

func (c *Controller) Sleep(ctx context.Context, _ nlu.Result) (string, error) {
	if err := c.run.Run(ctx, "systemctl", "suspend"); err != nil {
		return "", fmt.Errorf("suspend: %w", err)
	}
	return "Going to sleep...", nil
}

// command returns the argv that starts app.
func (c *Controller) command(app string) []string {
	if line, ok := c.cfg.Commands[app]; ok {
		if argv := strings.Fields(line); len(argv) > 0 {
			return argv
		}
	}
	return []string{strings.ReplaceAll(app, " ", "-")}
}

func appName(req nlu.Result) string {
	app := strings.ToLower(strings.TrimSpace(req.Entities.String(nlu.KeyAppName)))
	if app == nlu.UnknownApp {
		return ""
	}
	return app
}

func (c *Controller) OpenApp(_ context.Context, req nlu.Result) (string, error) {
	app := appName(req)
	if app == "" {
		return "Which application should I open?", nil
	}

	argv := c.command(app)
	if err := c.run.Start(argv[0], argv[1:]...); err != nil {
		log.Error("Failed to open app", "app", app, "err", err)
		return fmt.Sprintf("Failed to open %s.", app), nil
	}
	return fmt.Sprintf("Opening %s...", app), nil
}

func (c *Controller) CloseApp(ctx context.Context, req nlu.Result) (string, error) {
	app := appName(req)
	if app == "" {
		return "Which application should I close?", nil
	}

	proc := filepath.Base(c.command(app)[0])

	// pgrep exits non-zero when nothing matches
	out, _ := c.run.Output(ctx, "pgrep", "-i", "-f", proc)
	if strings.TrimSpace(string(out)) == "" {
		return fmt.Sprintf("%s is not running.", app), nil
	}

	if err := c.run.Run(ctx, "pkill", "-i", "-f", proc); err != nil {
		log.Error("Failed to close app", "app", app, "err", err)
		return fmt.Sprintf("Failed to close %s.", app), nil
	}
	return fmt.Sprintf("Closed %s.", app), nil
}

func (c *Controller) Volume(ctx context.Context, req nlu.Result) (string, error) {
	var (
		err   error
		reply string
	)

	switch req.Entities.String(nlu.KeyAction) {
	case nlu.ActionMute:
		err = c.volume.SetMute(ctx, true)
		reply = "Volume muted."
	case nlu.ActionUnmute:
		err = c.volume.SetMute(ctx, false)
		reply = "Volume unmuted."
	case nlu.ActionIncrease:
		err = c.volume.ChangeVolume(ctx, c.cfg.Step)
		reply = "Volume up."
	case nlu.ActionDecrease:
		err = c.volume.ChangeVolume(ctx, -c.cfg.Step)
		reply = "Volume down."
	default:
		level, ok := req.Entities.Int(nlu.KeyLevel)
		if !ok {
			return "What volume level?", nil
		}
		err = c.volume.SetVolume(ctx, level)
		reply = fmt.Sprintf("Volume set to %d%%.", level)
	}

	if err != nil {
		return "", fmt.Errorf("volume: %w", err)
	}
	return reply, nil
}

func (c *Controller) Brightness(ctx context.Context, req nlu.Result) (string, error) {
	level, hasLevel := req.Entities.Int(nlu.KeyLevel)

	var arg, reply string
	switch req.Entities.String(nlu.KeyAction) {
	case nlu.ActionIncrease:
		arg, reply = fmt.Sprintf("+%d%%", c.cfg.Step), "Brightness up."
	case nlu.ActionDecrease:
		arg, reply = fmt.Sprintf("%d%%-", c.cfg.Step), "Brightness down."
	default:
		if !hasLevel {
			return "What brightness level?", nil
		}
		arg, reply = fmt.Sprintf("%d%%", max(0, min(level, 100))), fmt.Sprintf("Brightness set to %d%%.", level)
	}

	if err := c.run.Run(ctx, "brightnessctl", "set", arg); err != nil {
		return "", fmt.Errorf("brightness: %w", err)
	}
	return reply, nil
}

func (c *Controller) Screenshot(ctx context.Context, _ nlu.Result) (string, error) {
	name := fmt.Sprintf("screenshot_%s.png", c.now().Format("20060102_150405"))
	path := filepath.Join(c.cfg.ScreenshotDir, name)

	if err := c.run.Run(ctx, "grim", path); err != nil {
		return "", fmt.Errorf("screenshot: %w", err)
	}
	return "Screenshot saved as " + name, nil
}

func (c *Controller) TypeText(ctx context.Context, req nlu.Result) (string, error) {
	text := strings.TrimSpace(req.Entities.String(nlu.KeyText))
	if text == "" {
		return "What should I type?", nil
	}

	if err := c.run.Run(ctx, "wtype", "--", text); err != nil {
		return "", fmt.Errorf("type text: %w", err)
	}
	return fmt.Sprintf("Typed: '%s'", text), nil
}

// keysyms maps spoken key names to XKB keysym names.
var keysyms = map[string]string{
	"enter":     "Return",
	"return":    "Return",
	"space":     "space",
	"tab":       "Tab",
	"escape":    "Escape",
	"esc":       "Escape",
	"backspace": "BackSpace",
	"delete":    "Delete",
	"up":        "Up",
	"down":      "Down",
	"left":      "Left",
	"right":     "Right",
	"home":      "Home",
	"end":       "End",
	"pageup":    "Prior",
	"pagedown":  "Next",
}

func (c *Controller) PressKey(ctx context.Context, req nlu.Result) (string, error) {
	key := strings.ToLower(strings.TrimSpace(req.Entities.String(nlu.KeyKey)))
	if key == "" {
		return "Which key should I press?", nil
	}

	sym, ok := keysyms[key]
	if !ok {
		if len([]rune(key)) != 1 {
			return fmt.Sprintf("I don't know the %s key.", key), nil
		}
		sym = key
	}

	if err := c.run.Run(ctx, "wtype", "-k", sym); err != nil {
		return "", fmt.Errorf("press key: %w", err)
	}
	return fmt.Sprintf("Pressed %s key.", key), nil
}
