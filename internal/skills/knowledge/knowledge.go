// Package knowledge answers informational requests: clock, calendar,
// weather, web search, Wikipedia and free-form questions.
package knowledge

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/sony/gobreaker"

	"strom/internal/desktop"
	"strom/internal/nlu"
	"strom/internal/router"
)

const (
	DefaultWeatherURL   = "https://wttr.in"
	DefaultWikipediaURL = "https://en.wikipedia.org/api/rest_v1/page/summary"
	DefaultSearchURL    = "https://www.google.com/search"

	// Fallback is spoken when a question cannot be answered.
	Fallback = "I'm not sure about that. Would you like me to search?"
)

// Answerer answers a free-form question in one or two spoken sentences.
type Answerer interface {
	Answer(ctx context.Context, question string) (string, error)
}

type Config struct {
	// City is used when a weather request names none.
	City string

	WeatherURL   string
	WikipediaURL string
	SearchURL    string

	CacheSize int
	CacheTTL  time.Duration
}

type Service struct {
	cfg     Config
	open    desktop.Opener
	http    *http.Client
	answer  Answerer
	cache   *expirable.LRU[string, string]
	breaker *gobreaker.CircuitBreaker
	now     func() time.Time
}

// New returns a Service. answer may be nil, in which case general questions
// get the fallback sentence.
func New(cfg Config, open desktop.Opener, client *http.Client, answer Answerer) *Service {
	if cfg.WeatherURL == "" {
		cfg.WeatherURL = DefaultWeatherURL
	}
	if cfg.WikipediaURL == "" {
		cfg.WikipediaURL = DefaultWikipediaURL
	}
	if cfg.SearchURL == "" {
		cfg.SearchURL = DefaultSearchURL
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = 128
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 10 * time.Minute
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	return &Service{
		cfg:     cfg,
		open:    open,
		http:    client,
		answer:  answer,
		cache:   expirable.NewLRU[string, string](cfg.CacheSize, nil, cfg.CacheTTL),
		breaker: newBreaker("knowledge"),
		now:     time.Now,
	}
}

func newBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= 3
		},
		// a lookup that found nothing is not an outage
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNotFound)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("Circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
		},
	})
}

func (s *Service) Routes() map[nlu.Intent]router.Handler {
	return map[nlu.Intent]router.Handler{
		nlu.Time:         s.Time,
		nlu.Date:         s.Date,
		nlu.Weather:      s.Weather,
		nlu.News:         s.News,
		nlu.Search:       s.Search,
		nlu.Wikipedia:    s.Wikipedia,
		nlu.GeneralQuery: s.GeneralQuery,
	}
}

func (s *Service) Time(context.Context, nlu.Result) (string, error) {
	return fmt.Sprintf("It's %s.", s.now().Format("03:04 PM")), nil
}

func (s *Service) Date(context.Context, nlu.Result) (string, error) {
	return fmt.Sprintf("Today is %s.", s.now().Format("Monday, January 02, 2006")), nil
}

func (s *Service) News(context.Context, nlu.Result) (string, error) {
	return "News is not configured.", nil
}

var cityRe = regexp.MustCompile(`\b(?:in|for|at)\s+([a-z][a-z .'-]*?)(?:\s+(?:today|tonight|tomorrow|right now|now))?\s*\??$`)

// weatherCity returns the place named in a weather request, if any.
func weatherCity(text string) string {
	m := cityRe.FindStringSubmatch(strings.ToLower(strings.TrimSpace(text)))
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

func (s *Service) Weather(ctx context.Context, req nlu.Result) (string, error) {
	city := weatherCity(req.Resolved)
	if city == "" {
		city = weatherCity(req.Text)
	}
	if city == "" {
		city = s.cfg.City
	}
	if city == "" {
		return "Which city should I check the weather for?", nil
	}

	report, err := s.cached("weather:"+city, func() (string, error) {
		return s.fetchWeather(ctx, city)
	})
	if err != nil {
		log.Error("Weather lookup failed", "city", city, "err", err)
		return "I couldn't get the weather right now.", nil
	}
	return report, nil
}

func (s *Service) Search(ctx context.Context, req nlu.Result) (string, error) {
	query := strings.TrimSpace(req.Entities.String(nlu.KeyQuery))
	if query == "" {
		return "What should I search for?", nil
	}

	link := s.cfg.SearchURL + "?" + url.Values{"q": {query}}.Encode()
	if err := s.open.Open(ctx, link); err != nil {
		log.Error("Failed to open browser", "err", err)
		return "Failed to open browser.", nil
	}
	return "Searching for: " + query, nil
}

func (s *Service) Wikipedia(ctx context.Context, req nlu.Result) (string, error) {
	query := strings.TrimSpace(req.Entities.String(nlu.KeyQuery))
	if query == "" {
		return "What should I look up?", nil
	}

	summary, err := s.cached("wiki:"+query, func() (string, error) {
		return s.fetchSummary(ctx, query)
	})
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			log.Error("Wikipedia lookup failed", "query", query, "err", err)
		}
		return fmt.Sprintf("Couldn't find information about %s.", query), nil
	}
	return summary, nil
}

func (s *Service) GeneralQuery(ctx context.Context, req nlu.Result) (string, error) {
	question := strings.TrimSpace(req.Resolved)
	if question == "" {
		question = strings.TrimSpace(req.Text)
	}
	if s.answer == nil || question == "" {
		return Fallback, nil
	}

	out, err := s.breaker.Execute(func() (interface{}, error) {
		return s.answer.Answer(ctx, question)
	})
	if err != nil {
		log.Error("Answer failed", "err", err)
		return Fallback, nil
	}

	answer := strings.TrimSpace(out.(string))
	if answer == "" {
		return Fallback, nil
	}
	return answer, nil
}

// cached serves key from the cache or computes it through the breaker.
func (s *Service) cached(key string, fetch func() (string, error)) (string, error) {
	if v, ok := s.cache.Get(key); ok {
		return v, nil
	}

	out, err := s.breaker.Execute(func() (interface{}, error) {
		return fetch()
	})
	if err != nil {
		return "", err
	}

	v := out.(string)
	s.cache.Add(key, v)
	return v, nil
}
