// Package app wires the configured skills into a ready assistant. The
// daemon and the bus shard share it and differ only in how they deliver
// reminders.
package app

import (
	"context"
	"database/sql"
	"fmt"
	log "log/slog"
	"net/http"
	"sort"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"strom/internal/assistant"
	"strom/internal/audio"
	"strom/internal/config"
	"strom/internal/convo"
	"strom/internal/desktop"
	"strom/internal/nlu"
	"strom/internal/proxy"
	"strom/internal/router"
	"strom/internal/skills/knowledge"
	"strom/internal/skills/messaging"
	"strom/internal/skills/system"
	"strom/internal/skills/tasks"
	"strom/internal/storage"
)

type App struct {
	Assistant *assistant.Assistant
	Convo     *convo.Manager
	Tasks     *tasks.Manager
	Pactl     *audio.Pactl

	db *sql.DB
}

type Options struct {
	// Runner executes desktop commands; nil means the real one.
	Runner desktop.Runner
	// Notify delivers due reminders.
	Notify tasks.Notifier
	// HTTP overrides the client for outbound lookups.
	HTTP *http.Client
}

// aliases turns the config alias map into a stable table.
func aliases(m map[string]string) []nlu.Alias {
	out := make([]nlu.Alias, 0, len(m))
	for name, canonical := range m {
		out = append(out, nlu.Alias{Name: name, Canonical: canonical})
	}
	// longer names first so "google chrome" beats "chrome"
	sort.Slice(out, func(i, j int) bool {
		if len(out[i].Name) != len(out[j].Name) {
			return len(out[i].Name) > len(out[j].Name)
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func New(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	run := opts.Runner
	if run == nil {
		run = desktop.Exec{}
	}

	db, err := storage.Open(cfg.Data.Path)
	if err != nil {
		return nil, err
	}

	conv, err := convo.NewManager(ctx, convo.NewSQLiteStore(db), convo.WithMaxHistory(cfg.Data.MaxHistory))
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("load history: %w", err)
	}

	client := opts.HTTP
	if client == nil {
		client, err = proxy.NewClient(cfg.OpenAI.Proxy, 0)
		if err != nil {
			db.Close()
			return nil, err
		}
	}

	pactl := audio.NewPactl(run)
	browser := desktop.NewBrowser(run)

	r := router.New(cfg.Behavior.ErrorMessage)
	if cfg.Behavior.Greeting != "" {
		r.Handle(nlu.Greeting, router.Static(cfg.Behavior.Greeting))
	}

	r.HandleAll(system.New(run, pactl, system.Config{
		AllowPower:    cfg.Behavior.AllowPower,
		Commands:      cfg.Apps.Commands,
		ScreenshotDir: cfg.System.ScreenshotDir,
		Step:          cfg.System.Step,
	}).Routes())

	tm := tasks.New(tasks.NewStore(db), opts.Notify)
	r.HandleAll(tm.Routes())

	var mailer messaging.Mailer
	if cfg.EmailConfigured() {
		mailer = messaging.NewSMTPMailer(cfg.Email.Host, cfg.Email.Port, cfg.Email.Address, cfg.Email.Password)
	} else {
		log.Debug("Email not configured")
	}
	r.HandleAll(messaging.New(browser, mailer).Routes())

	var answerer knowledge.Answerer
	if key, err := cfg.APIKey(); err == nil {
		api := openai.NewClient(
			option.WithAPIKey(key),
			option.WithHTTPClient(client),
		)
		answerer = knowledge.NewOpenAIAnswerer(api, cfg.OpenAI.Model)
	} else {
		log.Warn("General questions will not be answered", "err", err)
	}
	r.HandleAll(knowledge.New(knowledge.Config{City: cfg.Knowledge.City}, browser, client, answerer).Routes())

	engine := nlu.New(nlu.WithAliases(aliases(cfg.Apps.Aliases)))

	return &App{
		Assistant: assistant.New(engine, conv, r, assistant.Options{
			WakeWord: cfg.Voice.WakeWord,
			StopWord: cfg.Voice.StopWord,
		}),
		Convo: conv,
		Tasks: tm,
		Pactl: pactl,
		db:    db,
	}, nil
}

func (a *App) Close() error {
	return a.db.Close()
}
