package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"telegram-match-analysis/internal/domain"
	"telegram-match-analysis/internal/domain/model"
	"telegram-match-analysis/internal/domain/ports/adapter"
	"telegram-match-analysis/internal/infra/logging"
	"telegram-match-analysis/internal/infra/metrics"
	"telegram-match-analysis/internal/infra/redis"
	"telegram-match-analysis/internal/teamname"
)

// Compile-time check
var _ AnalysisUseCase = (*analysisUC)(nil)

// AnalyzeRequest is one inbound analysis. Exactly one of Photo or the
// HomeTeam/AwayTeam pair is set.
type AnalyzeRequest struct {
	TelegramID int64
	Photo      []byte
	HomeTeam   string
	AwayTeam   string
}

// AnalysisUseCase runs the full pipeline and returns the assembled report.
// It never touches balances; the caller debits only after Analyze succeeds.
type AnalysisUseCase interface {
	Analyze(ctx context.Context, req AnalyzeRequest) (*model.Report, error)
}

const (
	stageExtract    = "extract"
	stageEnrich     = "enrich"
	stageSynthesize = "synthesize"
	stageRender     = "render"

	teamStatsTTL = 6 * time.Hour
	weatherTTL   = 30 * time.Minute

	renderedLimit  = 4000
	truncateMarker = "\n\n[... truncated]"
	noLiveContext  = "No live match context available."

	extractMinimumConfidence = 20
)

type analysisUC struct {
	ai       adapter.AIAdapter
	football adapter.FootballStatsProvider
	weather  adapter.WeatherProvider
	cache    *redis.Cache
	log      *zerolog.Logger
}

func NewAnalysisUC(
	ai adapter.AIAdapter,
	football adapter.FootballStatsProvider,
	weather adapter.WeatherProvider,
	cache *redis.Cache,
	logger *zerolog.Logger,
) *analysisUC {
	return &analysisUC{ai: ai, football: football, weather: weather, cache: cache, log: logger}
}

func (a *analysisUC) Analyze(ctx context.Context, req AnalyzeRequest) (*model.Report, error) {
	defer logging.TraceDuration(a.log, "AnalysisUC.Analyze")()
	log := logging.With(logging.WithTgID(ctx, req.TelegramID), a.log)

	candidate, err := a.extract(ctx, req)
	if err != nil {
		metrics.IncPipeline(stageExtract, "failure")
		log.Error().Err(err).Msg("extraction failed")
		return nil, err
	}
	metrics.IncPipeline(stageExtract, "success")

	report := &model.Report{Match: candidate}
	a.enrich(ctx, report)
	metrics.IncPipeline(stageEnrich, "success")

	if err := a.synthesize(ctx, report); err != nil {
		metrics.IncPipeline(stageSynthesize, "failure")
		log.Error().Err(err).
			Str("home", candidate.HomeTeam).
			Str("away", candidate.AwayTeam).
			Msg("synthesis failed")
		return nil, err
	}
	metrics.IncPipeline(stageSynthesize, "success")

	if err := a.render(ctx, report); err != nil {
		metrics.IncPipeline(stageRender, "failure")
		log.Error().Err(err).Msg("rendering failed")
		return nil, err
	}
	metrics.IncPipeline(stageRender, "success")
	return report, nil
}

// --- Extracting ---

const extractionPrompt = `You read a screenshot of an upcoming football match.
Return ONLY a JSON object, no prose, with these fields:
{"home_team":"","away_team":"","competition":"","date":"YYYY-MM-DD","time":"HH:MM",
"venue":"","city":"","home_odds":0,"draw_odds":0,"away_odds":0,
"confidence":0,"raw_text":""}
Use empty strings / zero for anything not visible. confidence is your 0-100
certainty that the team names are read correctly. raw_text is every piece of
text you can recognize on the image.`

func (a *analysisUC) extract(ctx context.Context, req AnalyzeRequest) (*model.MatchCandidate, error) {
	started := time.Now()
	defer func() { metrics.ObserveStage(stageExtract, float64(time.Since(started).Milliseconds())) }()

	if len(req.Photo) == 0 {
		if req.HomeTeam == "" || req.AwayTeam == "" {
			return nil, fmt.Errorf("analysis: %w: both team names required", domain.ErrInvalidArgument)
		}
		return &model.MatchCandidate{
			HomeTeam:   teamname.Normalize(req.HomeTeam),
			AwayTeam:   teamname.Normalize(req.AwayTeam),
			Confidence: 100,
		}, nil
	}

	raw, err := a.ai.ChatVision(ctx, extractionPrompt, req.Photo)
	if err != nil {
		return nil, fmt.Errorf("%w: vision call: %v", domain.ErrExtractionFailed, err)
	}

	var candidate model.MatchCandidate
	if err := json.Unmarshal([]byte(extractJSON(raw)), &candidate); err != nil {
		return nil, fmt.Errorf("%w: malformed extraction response: %v", domain.ErrExtractionFailed, err)
	}
	if candidate.HomeTeam == "" || candidate.AwayTeam == "" {
		return nil, fmt.Errorf("%w: no team names recognized", domain.ErrExtractionFailed)
	}
	if candidate.Confidence < extractMinimumConfidence {
		return nil, fmt.Errorf("%w: confidence %d too low", domain.ErrExtractionFailed, candidate.Confidence)
	}
	candidate.HomeTeam = teamname.Normalize(candidate.HomeTeam)
	candidate.AwayTeam = teamname.Normalize(candidate.AwayTeam)
	candidate.KickoffAt = parseKickoff(candidate.DateText, candidate.TimeText)
	return &candidate, nil
}

// parseKickoff combines recognized date and time text. A date without a time
// resolves to midnight; unparseable text leaves kickoff unknown.
func parseKickoff(dateText, timeText string) *time.Time {
	if dateText == "" {
		return nil
	}
	layout, value := "2006-01-02", dateText
	if timeText != "" {
		layout, value = "2006-01-02 15:04", dateText+" "+timeText
	}
	t, err := time.Parse(layout, value)
	if err != nil {
		return nil
	}
	return &t
}

// --- Enriching ---

// enrich fills team stats and weather concurrently. Every lookup degrades to
// an empty shell on failure; enrichment never aborts the pipeline.
func (a *analysisUC) enrich(ctx context.Context, report *model.Report) {
	started := time.Now()
	defer func() { metrics.ObserveStage(stageEnrich, float64(time.Since(started).Milliseconds())) }()

	m := report.Match
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		report.HomeStats = a.teamStats(ctx, m.HomeTeam)
	}()
	go func() {
		defer wg.Done()
		report.AwayStats = a.teamStats(ctx, m.AwayTeam)
	}()

	city := m.City
	if city == "" {
		city = m.Venue
	}
	if city != "" && a.weather.Enabled() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			report.Weather = a.fetchWeather(ctx, city, m.KickoffAt)
		}()
	}
	wg.Wait()
}

func (a *analysisUC) teamStats(ctx context.Context, name string) *model.TeamStats {
	if !a.football.Enabled() {
		return model.EmptyTeamStats(name)
	}
	var stats model.TeamStats
	key := redis.Key("football", "team", strings.ToLower(name))
	err := a.cache.GetOrFetch(ctx, key, teamStatsTTL, &stats, func(ctx context.Context) (interface{}, error) {
		return a.football.SearchTeam(ctx, name)
	})
	if err != nil {
		a.log.Warn().Err(err).Str("team", name).Msg("team stats lookup degraded")
		return model.EmptyTeamStats(name)
	}
	return &stats
}

func (a *analysisUC) fetchWeather(ctx context.Context, city string, kickoff *time.Time) *model.WeatherReport {
	var report model.WeatherReport
	// Bucket by hour so repeated requests for the same fixture share an entry.
	bucket := time.Now().Format("2006010215")
	if kickoff != nil {
		bucket = kickoff.Format("2006010215")
	}
	key := redis.Key("weather", strings.ToLower(city), bucket)
	err := a.cache.GetOrFetch(ctx, key, weatherTTL, &report, func(ctx context.Context) (interface{}, error) {
		return a.weather.Fetch(ctx, city, kickoff)
	})
	if err != nil {
		a.log.Warn().Err(err).Str("city", city).Msg("weather lookup degraded")
		return nil
	}
	return &report
}

// --- Synthesizing ---

const synthesisSystem = `You are a football match analyst. You answer with a
single JSON object and nothing else. Shape:
{"analysis":"","predictions":{"home_win_pct":0,"draw_pct":0,"away_win_pct":0,
"over_2_5_pct":0,"under_2_5_pct":0,"btts_pct":0,"exact_scores":[],
"likely_scorers":[]},"suggestions":[{"market":"","selection":"",
"confidence":"low|medium|high","reasoning":""}],
"alerts":[{"level":"warning|critical","message":""}]}
Percentages are integers; home/draw/away must sum to about 100.`

func (a *analysisUC) synthesize(ctx context.Context, report *model.Report) error {
	started := time.Now()
	defer func() { metrics.ObserveStage(stageSynthesize, float64(time.Since(started).Milliseconds())) }()

	report.LiveContext = a.liveContext(ctx, report.Match)

	prompt := buildSynthesisPrompt(report)
	raw, usage, err := a.ai.ChatWithUsage(ctx, []adapter.Message{
		{Role: "system", Content: synthesisSystem},
		{Role: "user", Content: prompt},
	})
	if err != nil {
		return fmt.Errorf("%w: model call: %v", domain.ErrSynthesisFailed, err)
	}
	metrics.AddAITokens(a.ai.Name(), "prompt", usage.PromptTokens)
	metrics.AddAITokens(a.ai.Name(), "completion", usage.CompletionTokens)

	var parsed struct {
		Analysis    string                `json:"analysis"`
		Predictions model.Predictions     `json:"predictions"`
		Suggestions []model.BetSuggestion `json:"suggestions"`
		Alerts      []model.Alert         `json:"alerts"`
	}
	if err := json.Unmarshal([]byte(extractJSON(raw)), &parsed); err != nil {
		return fmt.Errorf("%w: malformed report response: %v", domain.ErrSynthesisFailed, err)
	}
	if parsed.Analysis == "" {
		return fmt.Errorf("%w: empty analysis", domain.ErrSynthesisFailed)
	}
	report.Analysis = parsed.Analysis
	report.Predictions = parsed.Predictions
	report.Suggestions = parsed.Suggestions
	report.Alerts = parsed.Alerts
	return nil
}

// liveContext asks for recent news about the fixture. Best-effort; any
// failure yields a fixed placeholder, never a pipeline abort.
func (a *analysisUC) liveContext(ctx context.Context, m *model.MatchCandidate) string {
	prompt := fmt.Sprintf(
		"Summarize in a short paragraph the latest known news relevant to the football match %s vs %s (lineups, injuries, suspensions, stakes). If you know nothing recent, say so briefly.",
		m.HomeTeam, m.AwayTeam)
	text, err := a.ai.Chat(ctx, []adapter.Message{{Role: "user", Content: prompt}})
	if err != nil || strings.TrimSpace(text) == "" {
		if err != nil {
			a.log.Warn().Err(err).Msg("live context degraded")
		}
		return noLiveContext
	}
	return strings.TrimSpace(text)
}

func buildSynthesisPrompt(report *model.Report) string {
	m := report.Match
	var b strings.Builder
	fmt.Fprintf(&b, "Match: %s vs %s\n", m.HomeTeam, m.AwayTeam)
	if m.Competition != "" {
		fmt.Fprintf(&b, "Competition: %s\n", m.Competition)
	}
	if m.KickoffAt != nil {
		fmt.Fprintf(&b, "Kickoff: %s\n", m.KickoffAt.Format("2006-01-02 15:04"))
	}
	if m.HasOdds() {
		fmt.Fprintf(&b, "Odds (1/X/2): %.2f / %.2f / %.2f\n", m.HomeOdds, m.DrawOdds, m.AwayOdds)
	}
	writeTeamStats(&b, "Home", report.HomeStats)
	writeTeamStats(&b, "Away", report.AwayStats)
	if w := report.Weather; w != nil {
		fmt.Fprintf(&b, "Weather in %s: %s, %.1fC, wind %.0f km/h, precipitation %.1f mm (impact: %s)\n",
			w.City, w.Condition, w.TemperatureC, w.WindSpeedKmh, w.PrecipMm, w.Impact)
	}
	fmt.Fprintf(&b, "Live context: %s\n", report.LiveContext)
	b.WriteString("\nProduce the analysis JSON for this match.")
	return b.String()
}

func writeTeamStats(b *strings.Builder, side string, s *model.TeamStats) {
	if s == nil {
		return
	}
	if !s.Found {
		fmt.Fprintf(b, "%s team %s: no statistics available\n", side, s.Name)
		return
	}
	fmt.Fprintf(b, "%s team %s: form %s, scored %d, conceded %d, home W/D/L %d/%d/%d, away W/D/L %d/%d/%d, injuries %d, matches last 7d %d, last 14d %d\n",
		side, s.Name, s.RecentForm, s.GoalsScored, s.GoalsConceded,
		s.HomeWins, s.HomeDraws, s.HomeLosses,
		s.AwayWins, s.AwayDraws, s.AwayLosses,
		s.InjuryCount, s.MatchesLast7d, s.MatchesLast14d)
}

// --- Rendering ---

const formattingSystem = `You format football analysis reports as Telegram
messages. Use short sections with emoji headers, plain text (no markdown
tables), and keep the whole message well under 4000 characters. Do not invent
data that is not in the input.`

func (a *analysisUC) render(ctx context.Context, report *model.Report) error {
	started := time.Now()
	defer func() { metrics.ObserveStage(stageRender, float64(time.Since(started).Milliseconds())) }()

	report.DataQuality = model.ClassifyDataQuality(qualityPoints(report))
	report.Alerts = append(ruleAlerts(report), report.Alerts...)

	payload, err := json.Marshal(struct {
		Match       *model.MatchCandidate `json:"match"`
		Analysis    string                `json:"analysis"`
		Predictions model.Predictions     `json:"predictions"`
		Suggestions []model.BetSuggestion `json:"suggestions"`
		Alerts      []model.Alert         `json:"alerts"`
		DataQuality model.DataQuality     `json:"data_quality"`
	}{report.Match, report.Analysis, report.Predictions, report.Suggestions, report.Alerts, report.DataQuality})
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrFormattingFailed, err)
	}

	rendered, err := a.ai.Chat(ctx, []adapter.Message{
		{Role: "system", Content: formattingSystem},
		{Role: "user", Content: string(payload)},
	})
	if err != nil {
		return fmt.Errorf("%w: model call: %v", domain.ErrFormattingFailed, err)
	}
	rendered = strings.TrimSpace(rendered)
	if rendered == "" {
		return fmt.Errorf("%w: empty formatted message", domain.ErrFormattingFailed)
	}
	if len(rendered) > renderedLimit {
		// Cut on a rune boundary; a raw byte slice can split a multi-byte
		// rune and Telegram rejects invalid UTF-8.
		cut := renderedLimit - len(truncateMarker)
		for cut > 0 && !utf8.RuneStart(rendered[cut]) {
			cut--
		}
		rendered = rendered[:cut] + truncateMarker
	}
	report.Rendered = rendered
	return nil
}

// qualityPoints scores available inputs, 25 points per bucket.
func qualityPoints(report *model.Report) int {
	points := 0
	if report.HomeStats != nil && report.HomeStats.FormEntries() >= 3 {
		points += 25
	}
	if report.AwayStats != nil && report.AwayStats.FormEntries() >= 3 {
		points += 25
	}
	if report.Weather != nil {
		points += 25
	}
	if report.Match.HasOdds() {
		points += 25
	}
	return points
}

// ruleAlerts derives alerts from hard thresholds, independently per side.
func ruleAlerts(report *model.Report) []model.Alert {
	var alerts []model.Alert
	for _, s := range []*model.TeamStats{report.HomeStats, report.AwayStats} {
		if s == nil || !s.Found {
			continue
		}
		if s.InjuryCount > 0 {
			level := model.AlertLevelWarning
			if s.InjuryCount >= 3 {
				level = model.AlertLevelCritical
			}
			alerts = append(alerts, model.Alert{
				Level:   level,
				Message: fmt.Sprintf("%s has %d reported injuries", s.Name, s.InjuryCount),
			})
		}
		if s.MatchesLast7d >= 3 {
			alerts = append(alerts, model.Alert{
				Level:   model.AlertLevelWarning,
				Message: fmt.Sprintf("%s played %d matches in the last 7 days, rotation likely", s.Name, s.MatchesLast7d),
			})
		}
	}
	if report.Weather != nil && report.Weather.Impact == model.WeatherImpactHigh {
		alerts = append(alerts, model.Alert{
			Level:   model.AlertLevelWarning,
			Message: fmt.Sprintf("Severe weather expected in %s (%s)", report.Weather.City, report.Weather.Condition),
		})
	}
	return alerts
}

// extractJSON cuts the outermost object from a model reply, tolerating code
// fences and surrounding prose.
func extractJSON(response string) string {
	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")
	if start != -1 && end > start {
		return response[start : end+1]
	}
	return strings.TrimSpace(response)
}
