package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"

	"fitpickapi/models"
)

// ErrWeatherUnavailable wraps the last transport error once all attempts
// are spent. Recommendation flows treat it as "no weather", only the
// dedicated weather endpoint surfaces it to the client.
var ErrWeatherUnavailable = errors.New("weather service is not available")

const weatherCacheTTL = 15 * time.Minute
const weatherAttempts = 3
const weatherAttemptTimeout = 20 * time.Second

type WeatherProvider interface {
	CurrentByCoords(ctx context.Context, lat, lon float64) (*models.WeatherSnapshot, error)
	CurrentByCity(ctx context.Context, city string) (*models.WeatherSnapshot, error)
	ClearCache()
}

type weatherCacheEntry struct {
	snapshot  models.WeatherSnapshot
	expiresAt time.Time
}

type OpenWeatherService struct {
	APIKey  string
	BaseURL string
	Client  *http.Client

	// swapped out in tests
	now   func() time.Time
	sleep func(time.Duration)

	mu    sync.RWMutex
	cache map[string]weatherCacheEntry
}

func NewOpenWeatherService() *OpenWeatherService {
	return &OpenWeatherService{
		APIKey:  GetEnv("OPENWEATHER_API_KEY", ""),
		BaseURL: "https://api.openweathermap.org/data/2.5/weather",
		Client:  &http.Client{},
		now:     time.Now,
		sleep:   time.Sleep,
		cache:   map[string]weatherCacheEntry{},
	}
}

func (s *OpenWeatherService) CurrentByCoords(ctx context.Context, lat, lon float64) (*models.WeatherSnapshot, error) {
	// two decimals is roughly a city block, close enough to share a cache entry
	key := fmt.Sprintf("%.2f,%.2f", lat, lon)
	query := fmt.Sprintf("lat=%.4f&lon=%.4f", lat, lon)
	return s.current(ctx, key, query)
}

func (s *OpenWeatherService) CurrentByCity(ctx context.Context, city string) (*models.WeatherSnapshot, error) {
	key := strings.ToLower(strings.TrimSpace(city))
	query := "q=" + url.QueryEscape(city)
	return s.current(ctx, key, query)
}

func (s *OpenWeatherService) current(ctx context.Context, key, query string) (*models.WeatherSnapshot, error) {
	if snapshot, ok := s.cached(key); ok {
		return &snapshot, nil
	}

	var lastErr error
	for attempt := 0; attempt < weatherAttempts; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt) * time.Second
			fmt.Printf("[Weather] attempt %d failed for %q, retrying in %v: %v\n", attempt, key, backoff, lastErr)
			s.sleep(backoff)
		}
		snapshot, err := s.fetch(ctx, query)
		if err == nil {
			s.store(key, *snapshot)
			return snapshot, nil
		}
		lastErr = err
	}
	sentry.CaptureException(fmt.Errorf("weather lookup exhausted %d attempts for %q: %v", weatherAttempts, key, lastErr))
	return nil, fmt.Errorf("%w: %v", ErrWeatherUnavailable, lastErr)
}

func (s *OpenWeatherService) fetch(ctx context.Context, query string) (*models.WeatherSnapshot, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, weatherAttemptTimeout)
	defer cancel()

	endpoint := fmt.Sprintf("%s?%s&units=imperial&appid=%s", s.BaseURL, query, s.APIKey)
	req, err := http.NewRequestWithContext(attemptCtx, "GET", endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create weather request: %v", err)
	}

	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to get weather response: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("weather request failed, status code: %d", resp.StatusCode)
	}

	var payload openWeatherResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode weather response: %v", err)
	}

	snapshot := payload.toSnapshot(s.now())
	return &snapshot, nil
}

func (s *OpenWeatherService) cached(key string) (models.WeatherSnapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.cache[key]
	if !ok || s.now().After(entry.expiresAt) {
		return models.WeatherSnapshot{}, false
	}
	return entry.snapshot, true
}

func (s *OpenWeatherService) store(key string, snapshot models.WeatherSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache[key] = weatherCacheEntry{
		snapshot:  snapshot,
		expiresAt: s.now().Add(weatherCacheTTL),
	}
}

func (s *OpenWeatherService) ClearCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache = map[string]weatherCacheEntry{}
	fmt.Println("[Weather] cache cleared")
}

// openWeatherResponse mirrors the fields we read from the OpenWeatherMap
// current weather payload, already in imperial units.
type openWeatherResponse struct {
	Weather []struct {
		Main        string `json:"main"`
		Description string `json:"description"`
	} `json:"weather"`
	Main struct {
		Temp     float64 `json:"temp"`
		Humidity int     `json:"humidity"`
	} `json:"main"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
	Name string `json:"name"`
}

func (r openWeatherResponse) toSnapshot(fetchedAt time.Time) models.WeatherSnapshot {
	snapshot := models.WeatherSnapshot{
		TemperatureF: r.Main.Temp,
		Humidity:     r.Main.Humidity,
		WindSpeedMph: r.Wind.Speed,
		City:         r.Name,
		FetchedAt:    fetchedAt,
	}
	if len(r.Weather) > 0 {
		snapshot.Description = r.Weather[0].Description
	}
	return snapshot
}
