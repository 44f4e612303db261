package adapter

import (
	"context"
	"time"

	"telegram-match-analysis/internal/domain/model"
)

// WeatherProvider fetches current weather, or the forecast nearest kickoff
// when it is known and in the future.
type WeatherProvider interface {
	Fetch(ctx context.Context, city string, kickoff *time.Time) (*model.WeatherReport, error)
	Enabled() bool
}
