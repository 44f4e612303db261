package adapter

import (
	"context"

	"telegram-match-analysis/internal/domain/model"
)

// FootballStatsProvider looks up team statistics by (already normalized)
// name. SearchTeam returns domain.ErrNotFound for unknown teams; callers
// degrade to an empty stats shell.
type FootballStatsProvider interface {
	SearchTeam(ctx context.Context, name string) (*model.TeamStats, error)
	Enabled() bool
}
