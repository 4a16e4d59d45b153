// Package config loads the assistant settings: built-in defaults, then the
// YAML settings file, then environment overrides.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	ErrNoAPIKey  = errors.New("OPENAI_API_KEY not set")
	ErrNoEmail   = errors.New("email address or password not set")
	ErrBadConfig = errors.New("invalid config")
)

type Config struct {
	Voice     Voice     `yaml:"voice"`
	Behavior  Behavior  `yaml:"behavior"`
	Data      Data      `yaml:"data"`
	Apps      Apps      `yaml:"apps"`
	System    System    `yaml:"system"`
	OpenAI    OpenAI    `yaml:"openai"`
	Email     Email     `yaml:"email"`
	Knowledge Knowledge `yaml:"knowledge"`
	Bus       Bus       `yaml:"bus"`
	IPC       IPC       `yaml:"ipc"`
}

type Voice struct {
	WakeWord string `yaml:"wake_word"`
	StopWord string `yaml:"stop_word"`
	// Model is the whisper.cpp ggml model file.
	Model    string  `yaml:"model"`
	Language string  `yaml:"language"`
	Rate     int     `yaml:"rate"`
	Beep     string  `yaml:"beep"`
	Duck     float64 `yaml:"duck"`
	// SilenceMS ends a recording after this much silence.
	SilenceMS int `yaml:"silence_ms"`
}

type Behavior struct {
	AllowPower   bool   `yaml:"allow_power"`
	ErrorMessage string `yaml:"error_message"`
	Greeting     string `yaml:"greeting"`
}

type Data struct {
	Path       string `yaml:"path"`
	MaxHistory int    `yaml:"max_history"`
}

type Apps struct {
	// Aliases maps a spoken name to the canonical app name.
	Aliases map[string]string `yaml:"aliases"`
	// Commands maps a canonical app name to the command that starts it.
	Commands map[string]string `yaml:"commands"`
}

type System struct {
	ScreenshotDir string `yaml:"screenshot_dir"`
	Step          int    `yaml:"step"`
}

type OpenAI struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
	// Proxy is a SOCKS5 address; empty means direct.
	Proxy string `yaml:"proxy"`
}

type Email struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
}

type Knowledge struct {
	City string `yaml:"city"`
}

type Bus struct {
	URL  string `yaml:"url"`
	Name string `yaml:"name"`
}

type IPC struct {
	Socket string `yaml:"socket"`
}

func Default() *Config {
	return &Config{
		Voice: Voice{
			WakeWord:  "strom",
			StopWord:  "stop",
			Model:     "third_party/whisper.cpp/models/ggml-base.en.bin",
			Language:  "en",
			Rate:      170,
			Beep:      "beep.mp3",
			Duck:      0.3,
			SilenceMS: 600,
		},
		Behavior: Behavior{
			ErrorMessage: "Sorry, I encountered an error.",
			Greeting:     "Hello! I'm Strom. How can I help?",
		},
		Data: Data{
			Path:       "data/strom.db",
			MaxHistory: 50,
		},
		System: System{
			ScreenshotDir: ".",
			Step:          10,
		},
		OpenAI: OpenAI{
			Model: "gpt-5-nano",
		},
		Email: Email{
			Host: "smtp.gmail.com",
			Port: 587,
		},
		Bus: Bus{
			URL:  "ws://localhost:8092",
			Name: "strom",
		},
		IPC: IPC{
			Socket: filepath.Join(os.TempDir(), "strom.sock"),
		},
	}
}

// Load reads path over the defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			if err := cfg.decode(data); err != nil {
				return nil, fmt.Errorf("parse %s: %w", path, err)
			}
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) decode(data []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := map[string]*string{
		"OPENAI_API_KEY":       &c.OpenAI.APIKey,
		"STROM_PROXY":          &c.OpenAI.Proxy,
		"BUS_URL":              &c.Bus.URL,
		"STROM_DATA":           &c.Data.Path,
		"STROM_SOCKET":         &c.IPC.Socket,
		"STROM_CITY":           &c.Knowledge.City,
		"STROM_EMAIL_ADDRESS":  &c.Email.Address,
		"STROM_EMAIL_PASSWORD": &c.Email.Password,
	}
	for key, dst := range str {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	if v, ok := lookup("STROM_ALLOW_POWER"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: STROM_ALLOW_POWER=%q", ErrBadConfig, v)
		}
		c.Behavior.AllowPower = b
	}
	return nil
}

func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Voice.WakeWord) == "" {
		errs = append(errs, fmt.Errorf("%w: voice.wake_word is empty", ErrBadConfig))
	}
	if c.Voice.Duck < 0 || c.Voice.Duck > 1 {
		errs = append(errs, fmt.Errorf("%w: voice.duck must be within [0, 1]", ErrBadConfig))
	}
	if c.Data.MaxHistory < 1 {
		errs = append(errs, fmt.Errorf("%w: data.max_history must be at least 1", ErrBadConfig))
	}
	if c.Data.Path == "" {
		errs = append(errs, fmt.Errorf("%w: data.path is empty", ErrBadConfig))
	}
	if c.Email.Port < 1 || c.Email.Port > 65535 {
		errs = append(errs, fmt.Errorf("%w: email.port %d out of range", ErrBadConfig, c.Email.Port))
	}
	if c.System.Step < 1 || c.System.Step > 100 {
		errs = append(errs, fmt.Errorf("%w: system.step must be within [1, 100]", ErrBadConfig))
	}

	return errors.Join(errs...)
}

func (c *Config) APIKey() (string, error) {
	if c.OpenAI.APIKey == "" {
		return "", ErrNoAPIKey
	}
	return c.OpenAI.APIKey, nil
}

func (c *Config) EmailConfigured() bool {
	return c.Email.Address != "" && c.Email.Password != ""
}
