package model

import "time"

// MatchCandidate is the structured record extracted from a screenshot or
// built directly from a typed team pairing. Request-scoped, never persisted.
type MatchCandidate struct {
	HomeTeam    string     `json:"home_team"`
	AwayTeam    string     `json:"away_team"`
	Competition string     `json:"competition"`
	DateText    string     `json:"date"` // as recognized, e.g. "2026-09-12"
	TimeText    string     `json:"time"` // as recognized, e.g. "20:45"
	KickoffAt   *time.Time `json:"-"`    // parsed from DateText/TimeText when possible
	Venue       string     `json:"venue"`
	City        string     `json:"city"`
	HomeOdds    float64    `json:"home_odds"`
	DrawOdds    float64    `json:"draw_odds"`
	AwayOdds    float64    `json:"away_odds"`
	Confidence  int        `json:"confidence"` // 0-100 OCR confidence; 100 for typed input
	RawText     string     `json:"raw_text"`
}

func (m *MatchCandidate) HasOdds() bool {
	return m.HomeOdds > 0 && m.DrawOdds > 0 && m.AwayOdds > 0
}

// TeamStats is the enrichment summary for one side. A team the statistics
// provider does not know yields an empty shell keyed by the normalized name.
type TeamStats struct {
	Name           string
	Found          bool
	RecentForm     string // e.g. "WWDLW", most recent first
	GoalsScored    int
	GoalsConceded  int
	HomeWins       int
	HomeDraws      int
	HomeLosses     int
	AwayWins       int
	AwayDraws      int
	AwayLosses     int
	InjuryCount    int
	MatchesLast7d  int
	MatchesLast14d int
}

// EmptyTeamStats is the degraded shell used when a lookup fails.
func EmptyTeamStats(name string) *TeamStats {
	return &TeamStats{Name: name}
}

func (s *TeamStats) FormEntries() int { return len(s.RecentForm) }

type WeatherImpact string

const (
	WeatherImpactNone   WeatherImpact = "none"
	WeatherImpactLow    WeatherImpact = "low"
	WeatherImpactMedium WeatherImpact = "medium"
	WeatherImpactHigh   WeatherImpact = "high"
)

// WeatherReport is the kickoff-time weather, when a venue resolves.
type WeatherReport struct {
	City          string
	Condition     string
	TemperatureC  float64
	WindSpeedKmh  float64
	PrecipMm      float64
	Impact        WeatherImpact
	ForecastAt    time.Time
}

// ClassifyWeatherImpact derives the impact band from fixed thresholds.
func ClassifyWeatherImpact(tempC, windKmh, precipMm float64) WeatherImpact {
	switch {
	case precipMm >= 8 || windKmh >= 50 || tempC <= -5 || tempC >= 38:
		return WeatherImpactHigh
	case precipMm >= 3 || windKmh >= 35 || tempC <= 0 || tempC >= 33:
		return WeatherImpactMedium
	case precipMm > 0 || windKmh >= 20:
		return WeatherImpactLow
	default:
		return WeatherImpactNone
	}
}
