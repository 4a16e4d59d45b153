package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	cli "github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/lmittmann/tint"
	log "log/slog"

	"strom/internal/app"
	"strom/internal/audio"
	"strom/internal/config"
	"strom/internal/desktop"
	"strom/internal/ipc"
	"strom/internal/notify"
	"strom/internal/skills/tasks"
	"strom/internal/tts"
	"strom/pkg/audioconv"
	"strom/pkg/stt"
)

var logLevelMap = map[string]log.Level{
	"debug": log.LevelDebug,
	"info":  log.LevelInfo,
	"warn":  log.LevelWarn,
	"error": log.LevelError,
}

type daemon struct {
	app     *app.App
	cfg     *config.Config
	rec     *audio.Recorder
	stt     *stt.Transcriber
	speaker *tts.Speaker
	beeper  *notify.Beeper
	popup   *notify.Desktop
	ducker  *audio.Ducker

	// one voice interaction at a time
	busy sync.Mutex
}

func main() {
	envFile := cli.StringP("env", "e", ".env", "Env file path")
	cfgFile := cli.StringP("config", "c", "config/settings.yaml", "Config file path")
	logLevel := cli.StringP("log", "l", "info", "Log level")
	file := cli.StringP("file", "f", "", "Transcribe and answer an audio file, then exit")
	cli.Parse()

	log.SetDefault(log.New(tint.NewHandler(os.Stdout, &tint.Options{
		Level: logLevelMap[*logLevel],
	})))

	log.Info("Booting up")

	if err := godotenv.Load(*envFile); err != nil {
		log.Debug("No env file", "path", *envFile)
	}

	cfg, err := config.Load(*cfgFile)
	if err != nil {
		log.Error("Failed to load config", "path", *cfgFile, "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	d := &daemon{
		cfg:    cfg,
		beeper: notify.NewBeeper(cfg.Voice.Beep),
		popup:  notify.NewDesktop(desktop.Exec{}, "Strom"),
	}

	d.app, err = app.New(ctx, cfg, app.Options{Notify: d.remind})
	if err != nil {
		log.Error("Failed to build assistant", "err", err)
		os.Exit(1)
	}
	defer d.app.Close()

	log.Debug("Loaded assistant", "db", cfg.Data.Path)

	d.stt, err = stt.NewTranscriber(cfg.Voice.Model, stt.Options{Language: cfg.Voice.Language})
	if err != nil {
		log.Error("Failed to init whisper", "model", cfg.Voice.Model, "err", err)
		os.Exit(1)
	}
	defer d.stt.Close()

	log.Debug("Loaded whisper")

	if *file != "" {
		if err := d.answerFile(ctx, *file); err != nil {
			log.Error("Failed to answer file", "file", *file, "err", err)
			os.Exit(1)
		}
		return
	}

	d.speaker, err = tts.New(cfg.Voice.Language, cfg.Voice.Rate)
	if err != nil {
		log.Error("Failed to init speech", "err", err)
		os.Exit(1)
	}
	defer d.speaker.Close()

	d.rec = audio.NewRecorder(audio.RecorderOptions{
		Silence: time.Duration(cfg.Voice.SilenceMS) * time.Millisecond,
	})
	if err := d.rec.Init(); err != nil {
		log.Error("Failed to init audio", "err", err)
		os.Exit(1)
	}
	defer d.rec.Close()

	d.ducker = audio.NewDucker(d.app.Pactl, []string{"strom", "strom-daemon", "espeak-ng"}, 5)

	srv, err := ipc.Listen(cfg.IPC.Socket, d.control)
	if err != nil {
		log.Error("Failed ipc server", "socket", cfg.IPC.Socket, "err", err)
		os.Exit(1)
	}

	log.Info("Boot up - successful", "socket", cfg.IPC.Socket)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Serve(gctx) })
	g.Go(func() error { return d.app.Tasks.Run(gctx, time.Second) })

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("Daemon stopped", "err", err)
		os.Exit(1)
	}
	log.Info("Shut down")
}

func (d *daemon) control(ctx context.Context, msg ipc.ControlMessage) ipc.Response {
	switch msg.Cmd {
	case ipc.CmdTrigger:
		if !d.busy.TryLock() {
			return ipc.Response{Error: "already listening"}
		}
		go func() {
			defer d.busy.Unlock()
			d.listen(ctx)
		}()
		return ipc.Response{OK: true, Text: "listening"}

	case ipc.CmdSay:
		text, err := d.answer(ctx, msg.Text)
		if err != nil {
			return ipc.Response{Text: text, Error: err.Error()}
		}
		go d.say(text)
		return ipc.Response{OK: true, Text: text}

	case ipc.CmdStatus:
		summary, err := d.app.Convo.Summary(ctx)
		if err != nil {
			return ipc.Response{Error: err.Error()}
		}
		return ipc.Response{OK: true, Text: summary}

	default:
		log.Warn("Unknown command", "cmd", msg.Cmd)
		return ipc.Response{Error: fmt.Sprintf("unknown command %q", msg.Cmd)}
	}
}

// listen runs one voice interaction: cue, record, transcribe, answer, speak.
func (d *daemon) listen(ctx context.Context) {
	if err := d.beeper.Beep(); err != nil {
		log.Warn("Failed to beep", "err", err)
	}
	if err := d.popup.Notify(ctx, "Listening..."); err != nil {
		log.Debug("Failed to notify", "err", err)
	}

	if d.cfg.Voice.Duck > 0 {
		if err := d.ducker.DuckOthers(ctx, d.cfg.Voice.Duck, 300*time.Millisecond); err != nil {
			log.Warn("Failed to duck", "err", err)
		}
		defer func() {
			if err := d.ducker.UnduckOthers(context.WithoutCancel(ctx), 300*time.Millisecond); err != nil {
				log.Warn("Failed to unduck", "err", err)
			}
		}()
	}

	log.Info("Starting listening")

	pcm, err := d.rec.RecordAuto()
	if errors.Is(err, audio.ErrNoAudio) {
		d.say("I didn't catch that.")
		return
	}
	if err != nil {
		log.Error("Failed to record", "err", err)
		return
	}

	log.Info("Recorded", "samples", len(pcm))

	tctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	text, err := d.stt.Transcribe(tctx, pcm)
	if err != nil {
		log.Error("Failed to transcribe", "err", err)
		return
	}

	log.Info("Transcribed", "text", text)

	reply, err := d.answer(ctx, text)
	if err != nil {
		log.Error("Failed to answer", "err", err)
	}
	d.say(reply)
}

func (d *daemon) answer(ctx context.Context, text string) (string, error) {
	reply, err := d.app.Assistant.Handle(ctx, text)
	log.Info("Reply", "intent", reply.Intent, "text", reply.Text)
	return reply.Text, err
}

func (d *daemon) say(text string) {
	if d.speaker == nil {
		fmt.Println(text)
		return
	}
	if err := d.speaker.Speak(text); err != nil {
		log.Error("Failed to voice out", "err", err)
	}
}

func (d *daemon) remind(ctx context.Context, r tasks.Reminder) {
	text := r.Message
	if r.Kind == tasks.KindReminder {
		text = "Reminder: " + r.Message
	}
	if err := d.popup.Notify(ctx, text); err != nil {
		log.Debug("Failed to notify", "err", err)
	}
	d.busy.Lock()
	defer d.busy.Unlock()
	d.say(text)
}

func (d *daemon) answerFile(ctx context.Context, path string) error {
	pcm, err := audioconv.ConvertFile(ctx, path, audioconv.Options{})
	if err != nil {
		return err
	}

	text, err := d.stt.Transcribe(ctx, pcm)
	if err != nil {
		return err
	}

	reply, err := d.answer(ctx, text)
	fmt.Printf("%s: %s\n%s\n", filepath.Base(path), text, reply)
	return err
}
