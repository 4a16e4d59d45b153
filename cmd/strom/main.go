package main

import (
	"bytes"
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	cli "github.com/spf13/pflag"
	"golang.org/x/time/rate"

	"github.com/lmittmann/tint"
	log "log/slog"

	"strom/internal/app"
	"strom/internal/bus"
	"strom/internal/config"
	"strom/internal/skills/tasks"
	"strom/pkg/audioconv"
	"strom/pkg/stt"
)

var logLevelMap = map[string]log.Level{
	"debug": log.LevelDebug,
	"info":  log.LevelInfo,
	"warn":  log.LevelWarn,
	"error": log.LevelError,
}

const KindReminder = "reminder"

type shard struct {
	app     *app.App
	client  *bus.Client
	stt     *stt.Transcriber
	limiter *rate.Limiter
}

func main() {
	envFile := cli.StringP("env", "e", ".env", "Env file path")
	cfgFile := cli.StringP("config", "c", "config/settings.yaml", "Config file path")
	url := cli.StringP("url", "u", "", "Url of hub (overrides config)")
	logLevel := cli.StringP("log", "l", "info", "Log level")
	reconn := cli.DurationP("reconn", "r", 2*time.Second, "Reconnect interval")
	perSec := cli.Float64("rate", 2, "Messages handled per second")
	noAudio := cli.Bool("no-audio", false, "Do not load whisper for audio messages")
	cli.Parse()

	log.SetDefault(log.New(tint.NewHandler(os.Stdout, &tint.Options{
		Level: logLevelMap[*logLevel],
	})))

	log.Info("Starting Strom shard")

	if err := godotenv.Load(*envFile); err != nil {
		log.Debug("No env file", "path", *envFile)
	}

	cfg, err := config.Load(*cfgFile)
	if err != nil {
		log.Error("Failed to load config", "path", *cfgFile, "err", err)
		os.Exit(1)
	}
	if *url != "" {
		cfg.Bus.URL = *url
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s := &shard{limiter: rate.NewLimiter(rate.Limit(*perSec), 5)}

	s.app, err = app.New(ctx, cfg, app.Options{Notify: s.remind})
	if err != nil {
		log.Error("Failed to build assistant", "err", err)
		os.Exit(1)
	}
	defer s.app.Close()

	if !*noAudio {
		s.stt, err = stt.NewTranscriber(cfg.Voice.Model, stt.Options{Language: cfg.Voice.Language})
		if err != nil {
			log.Warn("Audio messages disabled", "model", cfg.Voice.Model, "err", err)
		} else {
			defer s.stt.Close()
		}
	}

	s.client, err = bus.Dial(ctx, cfg.Bus.URL, cfg.Bus.Name, *reconn)
	if err != nil {
		log.Error("Failed to connect to bus", "url", cfg.Bus.URL, "err", err)
		os.Exit(1)
	}
	defer s.client.Close()

	go func() {
		if err := s.app.Tasks.Run(ctx, time.Second); err != nil {
			log.Error("Reminder loop stopped", "err", err)
		}
	}()

	if err := s.client.Serve(ctx, s.handle); err != nil {
		log.Error("Bus loop stopped", "err", err)
		os.Exit(1)
	}
	log.Info("Shut down")
}

func (s *shard) handle(ctx context.Context, m *bus.Message) *bus.Message {
	if m.Kind == bus.KindReply || m.Kind == KindReminder || m.Kind == "hello" {
		return nil
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return nil
	}

	text := m.Content
	if len(m.Audio) > 0 {
		var err error
		if text, err = s.transcribe(ctx, m.Audio); err != nil {
			log.Error("Failed to transcribe bus audio", "from", m.From, "err", err)
			return &bus.Message{Kind: bus.KindError, Content: err.Error()}
		}
	}

	reply, err := s.app.Assistant.Handle(ctx, text)
	if err != nil {
		log.Error("Failed to record exchange", "err", err)
	}
	log.Info("Reply", "to", m.From, "intent", reply.Intent, "text", reply.Text)

	return &bus.Message{Kind: bus.KindReply, Content: reply.Text}
}

func (s *shard) transcribe(ctx context.Context, data []byte) (string, error) {
	if s.stt == nil {
		return "", stt.ErrNoSamples
	}
	pcm, err := audioconv.Convert(ctx, bytes.NewReader(data), "", audioconv.Options{})
	if err != nil {
		return "", err
	}
	return s.stt.Transcribe(ctx, pcm)
}

func (s *shard) remind(_ context.Context, r tasks.Reminder) {
	if s.client == nil {
		return
	}
	err := s.client.Write(&bus.Message{
		From:    s.client.Name(),
		To:      bus.Broadcast,
		Kind:    KindReminder,
		Content: r.Message,
	})
	if err != nil {
		log.Error("Failed to send reminder", "err", err)
	}
}
