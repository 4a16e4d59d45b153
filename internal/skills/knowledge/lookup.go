package knowledge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"
)

var ErrNotFound = errors.New("no article found")

const maxBody = 1 << 20

func (s *Service) get(ctx context.Context, link string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("User-Agent", "strom/1.0 (voice assistant)")

	resp, err := s.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read %s: %w", link, err)
	}
	return resp.StatusCode, body, nil
}

// fetchWeather asks wttr.in for its one-line report.
func (s *Service) fetchWeather(ctx context.Context, city string) (string, error) {
	link := fmt.Sprintf("%s/%s?format=3", strings.TrimRight(s.cfg.WeatherURL, "/"), url.PathEscape(city))

	status, body, err := s.get(ctx, link)
	if err != nil {
		return "", err
	}
	if status != http.StatusOK {
		return "", fmt.Errorf("weather: status %d", status)
	}

	report := strings.TrimSpace(string(body))
	if report == "" {
		return "", fmt.Errorf("weather: empty report")
	}
	return report, nil
}

// fetchSummary returns the first two sentences of the article's summary.
func (s *Service) fetchSummary(ctx context.Context, query string) (string, error) {
	title := strings.ReplaceAll(query, " ", "_")
	link := strings.TrimRight(s.cfg.WikipediaURL, "/") + "/" + url.PathEscape(title) + "?redirect=true"

	status, body, err := s.get(ctx, link)
	if err != nil {
		return "", err
	}
	switch {
	case status == http.StatusNotFound:
		return "", fmt.Errorf("%s: %w", query, ErrNotFound)
	case status != http.StatusOK:
		return "", fmt.Errorf("wikipedia: status %d", status)
	case !gjson.ValidBytes(body):
		return "", fmt.Errorf("wikipedia: invalid JSON")
	}

	doc := gjson.ParseBytes(body)
	if doc.Get("type").String() == "disambiguation" {
		return fmt.Sprintf("%s may refer to several things. Could you be more specific?", doc.Get("title").String()), nil
	}

	extract := strings.TrimSpace(doc.Get("extract").String())
	if extract == "" {
		return "", fmt.Errorf("%s: %w", query, ErrNotFound)
	}
	return firstSentences(extract, 2), nil
}

// firstSentences cuts text after n sentence-ending periods.
func firstSentences(text string, n int) string {
	count := 0
	for i := 0; i < len(text); i++ {
		if text[i] != '.' && text[i] != '!' && text[i] != '?' {
			continue
		}
		if i+1 < len(text) && text[i+1] != ' ' && text[i+1] != '\n' {
			continue
		}
		count++
		if count == n {
			return text[:i+1]
		}
	}
	return text
}
