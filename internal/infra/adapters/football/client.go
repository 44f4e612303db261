package football

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
var _ adapter.FootballStatsProvider = (*Client)(nil)

const recentFixtures = 10

// Client talks to the api-sports football API. A missing key disables the
// provider; callers degrade to empty stats.
type Client struct {
	http    *http.Client
	baseURL string
	apiKey  string
	log     *zerolog.Logger
}

func NewClient(cfg *config.ProvidersConfig, logger *zerolog.Logger) *Client {
	return &Client{
		http:    &http.Client{Timeout: cfg.Timeout},
		baseURL: cfg.FootballBaseURL,
		apiKey:  cfg.FootballKey,
		log:     logger,
	}
}

func (c *Client) Enabled() bool { return c.apiKey != "" }

// SearchTeam resolves a team by name and assembles its stats summary from
// recent finished fixtures and the current injury list.
func (c *Client) SearchTeam(ctx context.Context, name string) (*model.TeamStats, error) {
	id, resolvedName, err := c.resolveTeam(ctx, name)
	if err != nil {
		return nil, err
	}

	stats := &model.TeamStats{Name: resolvedName, Found: true}
	if err := c.fillFixtures(ctx, id, stats); err != nil {
		return nil, err
	}
	// Injuries are a secondary signal; a failure here does not lose the
	// fixture-derived stats.
	if n, err := c.injuryCount(ctx, id); err != nil {
		c.log.Warn().Err(err).Str("team", resolvedName).Msg("injury lookup failed")
	} else {
		stats.InjuryCount = n
	}
	return stats, nil
}

func (c *Client) resolveTeam(ctx context.Context, name string) (int64, string, error) {
	var out struct {
		Response []struct {
			Team struct {
				ID   int64  `json:"id"`
				Name string `json:"name"`
			} `json:"team"`
		} `json:"response"`
	}
	if err := c.get(ctx, "/teams", url.Values{"search": {name}}, &out); err != nil {
		return 0, "", err
	}
	if len(out.Response) == 0 {
		return 0, "", domain.ErrNotFound
	}
	t := out.Response[0].Team
	return t.ID, t.Name, nil
}

func (c *Client) fillFixtures(ctx context.Context, teamID int64, stats *model.TeamStats) error {
	var out struct {
		Response []struct {
			Fixture struct {
				Date   time.Time `json:"date"`
				Status struct {
					Short string `json:"short"`
				} `json:"status"`
			} `json:"fixture"`
			Teams struct {
				Home struct {
					ID     int64 `json:"id"`
					Winner *bool `json:"winner"`
				} `json:"home"`
				Away struct {
					ID     int64 `json:"id"`
					Winner *bool `json:"winner"`
				} `json:"away"`
			} `json:"teams"`
			Goals struct {
				Home *int `json:"home"`
				Away *int `json:"away"`
			} `json:"goals"`
		} `json:"response"`
	}
	params := url.Values{
		"team": {fmt.Sprint(teamID)},
		"last": {fmt.Sprint(recentFixtures)},
	}
	if err := c.get(ctx, "/fixtures", params, &out); err != nil {
		return err
	}

	now := time.Now()
	form := make([]byte, 0, recentFixtures)
	for _, fx := range out.Response {
		if fx.Fixture.Status.Short != "FT" || fx.Goals.Home == nil || fx.Goals.Away == nil {
			continue
		}
		home := fx.Teams.Home.ID == teamID

		var scored, conceded int
		if home {
			scored, conceded = *fx.Goals.Home, *fx.Goals.Away
		} else {
			scored, conceded = *fx.Goals.Away, *fx.Goals.Home
		}
		stats.GoalsScored += scored
		stats.GoalsConceded += conceded

		var result byte
		switch {
		case scored > conceded:
			result = 'W'
		case scored == conceded:
			result = 'D'
		default:
			result = 'L'
		}
		if len(form) < 5 {
			form = append(form, result)
		}

		switch {
		case home && result == 'W':
			stats.HomeWins++
		case home && result == 'D':
			stats.HomeDraws++
		case home:
			stats.HomeLosses++
		case result == 'W':
			stats.AwayWins++
		case result == 'D':
			stats.AwayDraws++
		default:
			stats.AwayLosses++
		}

		age := now.Sub(fx.Fixture.Date)
		if age >= 0 && age <= 7*24*time.Hour {
			stats.MatchesLast7d++
		}
		if age >= 0 && age <= 14*24*time.Hour {
			stats.MatchesLast14d++
		}
	}
	stats.RecentForm = string(form)
	return nil
}

func (c *Client) injuryCount(ctx context.Context, teamID int64) (int, error) {
	var out struct {
		Response []json.RawMessage `json:"response"`
	}
	params := url.Values{
		"team":   {fmt.Sprint(teamID)},
		"season": {fmt.Sprint(time.Now().Year())},
	}
	if err := c.get(ctx, "/injuries", params, &out); err != nil {
		return 0, err
	}
	return len(out.Response), nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("x-apisports-key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("football: %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("football: %s: status %d: %s", path, resp.StatusCode, truncate(body, 200))
	}
	return json.Unmarshal(body, out)
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
