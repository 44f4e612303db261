package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"telegram-match-analysis/internal/config"
	"telegram-match-analysis/internal/domain"
	"telegram-match-analysis/internal/domain/model"
	"telegram-match-analysis/internal/domain/ports/adapter"
)

// Compile-time check
var _ adapter.WeatherProvider = (*Client)(nil)

// Client talks to the OpenWeatherMap API. Current conditions by default; the
// 5-day forecast entry nearest kickoff when the kickoff is known and ahead.
type Client struct {
	http    *http.Client
	baseURL string
	apiKey  string
	log     *zerolog.Logger
}

func NewClient(cfg *config.ProvidersConfig, logger *zerolog.Logger) *Client {
	return &Client{
		http:    &http.Client{Timeout: cfg.Timeout},
		baseURL: cfg.WeatherBaseURL,
		apiKey:  cfg.WeatherKey,
		log:     logger,
	}
}

func (c *Client) Enabled() bool { return c.apiKey != "" }

type owmEntry struct {
	Dt   int64 `json:"dt"`
	Main struct {
		Temp float64 `json:"temp"`
	} `json:"main"`
	Weather []struct {
		Description string `json:"description"`
	} `json:"weather"`
	Wind struct {
		Speed float64 `json:"speed"` // m/s
	} `json:"wind"`
	Rain struct {
		OneHour   float64 `json:"1h"`
		ThreeHour float64 `json:"3h"`
	} `json:"rain"`
	Snow struct {
		OneHour   float64 `json:"1h"`
		ThreeHour float64 `json:"3h"`
	} `json:"snow"`
}

func (c *Client) Fetch(ctx context.Context, city string, kickoff *time.Time) (*model.WeatherReport, error) {
	if kickoff != nil && kickoff.After(time.Now().Add(time.Hour)) && kickoff.Before(time.Now().Add(5*24*time.Hour)) {
		return c.forecast(ctx, city, *kickoff)
	}
	return c.current(ctx, city)
}

func (c *Client) current(ctx context.Context, city string) (*model.WeatherReport, error) {
	var entry owmEntry
	if err := c.get(ctx, "/weather", city, &entry); err != nil {
		return nil, err
	}
	return toReport(city, entry, time.Now()), nil
}

func (c *Client) forecast(ctx context.Context, city string, kickoff time.Time) (*model.WeatherReport, error) {
	var out struct {
		List []owmEntry `json:"list"`
	}
	if err := c.get(ctx, "/forecast", city, &out); err != nil {
		return nil, err
	}
	if len(out.List) == 0 {
		return nil, domain.ErrNotFound
	}

	best := out.List[0]
	bestDiff := absDuration(time.Unix(best.Dt, 0).Sub(kickoff))
	for _, e := range out.List[1:] {
		if d := absDuration(time.Unix(e.Dt, 0).Sub(kickoff)); d < bestDiff {
			best, bestDiff = e, d
		}
	}
	return toReport(city, best, time.Unix(best.Dt, 0)), nil
}

func (c *Client) get(ctx context.Context, path, city string, out interface{}) error {
	params := url.Values{
		"q":     {city},
		"appid": {c.apiKey},
		"units": {"metric"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("weather: %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode == http.StatusNotFound {
		return domain.ErrNotFound
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("weather: %s: status %d", path, resp.StatusCode)
	}
	return json.Unmarshal(body, out)
}

func toReport(city string, e owmEntry, at time.Time) *model.WeatherReport {
	condition := ""
	if len(e.Weather) > 0 {
		condition = e.Weather[0].Description
	}
	windKmh := e.Wind.Speed * 3.6
	precip := e.Rain.OneHour + e.Rain.ThreeHour + e.Snow.OneHour + e.Snow.ThreeHour
	return &model.WeatherReport{
		City:         city,
		Condition:    condition,
		TemperatureC: e.Main.Temp,
		WindSpeedKmh: windKmh,
		PrecipMm:     precip,
		Impact:       model.ClassifyWeatherImpact(e.Main.Temp, windKmh, precip),
		ForecastAt:   at,
	}
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
