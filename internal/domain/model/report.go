package model

type DataQuality string

const (
	DataQualityPoor      DataQuality = "poor"
	DataQualityFair      DataQuality = "fair"
	DataQualityGood      DataQuality = "good"
	DataQualityExcellent DataQuality = "excellent"
)

// ClassifyDataQuality maps the 0-100 point score to a quality band.
func ClassifyDataQuality(points int) DataQuality {
	switch {
	case points >= 100:
		return DataQualityExcellent
	case points >= 75:
		return DataQualityGood
	case points >= 50:
		return DataQualityFair
	default:
		return DataQualityPoor
	}
}

type AlertLevel string

const (
	AlertLevelWarning  AlertLevel = "warning"
	AlertLevelCritical AlertLevel = "critical"
)

type Alert struct {
	Level   AlertLevel `json:"level"`
	Message string     `json:"message"`
}

// Predictions is the numeric block of the synthesized report.
type Predictions struct {
	HomeWinPct   int      `json:"home_win_pct"`
	DrawPct      int      `json:"draw_pct"`
	AwayWinPct   int      `json:"away_win_pct"`
	Over25Pct    int      `json:"over_2_5_pct"`
	Under25Pct   int      `json:"under_2_5_pct"`
	BTTSPct      int      `json:"btts_pct"`
	ExactScores  []string `json:"exact_scores"`
	LikelyScorer []string `json:"likely_scorers"`
}

type BetSuggestion struct {
	Market     string `json:"market"`
	Selection  string `json:"selection"`
	Confidence string `json:"confidence"` // low|medium|high
	Reasoning  string `json:"reasoning"`
}

// Report is the assembled output of one pipeline run. Transient; only the
// rendered text reaches the user and only a Message row reaches storage.
type Report struct {
	Match       *MatchCandidate
	HomeStats   *TeamStats
	AwayStats   *TeamStats
	Weather     *WeatherReport
	LiveContext string

	Analysis    string          `json:"analysis"`
	Predictions Predictions     `json:"predictions"`
	Suggestions []BetSuggestion `json:"suggestions"`
	Alerts      []Alert         `json:"alerts"`

	DataQuality DataQuality
	Rendered    string
}
