//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"telegram-match-analysis/internal/domain"
	"telegram-match-analysis/internal/domain/model"
	"telegram-match-analysis/internal/domain/ports/adapter"
	"telegram-match-analysis/internal/usecase"
)

const reportJSON = `{
  "analysis": "Tight match expected.",
  "predictions": {"home_win_pct": 45, "draw_pct": 30, "away_win_pct": 25,
    "over_2_5_pct": 40, "under_2_5_pct": 60, "btts_pct": 50,
    "exact_scores": ["1-0", "1-1"], "likely_scorers": ["Lewandowski"]},
  "suggestions": [{"market": "1X2", "selection": "1", "confidence": "medium", "reasoning": "home form"}],
  "alerts": []
}`

type analysisUCDeps struct {
	ai       *MockAI
	football *MockFootball
	weather  *MockWeather
	redis    *memRedis
	uc       usecase.AnalysisUseCase
}

func newAnalysisUCDeps() *analysisUCDeps {
	d := &analysisUCDeps{
		ai:       &MockAI{},
		football: &MockFootball{},
		weather:  &MockWeather{},
		redis:    newMemRedis(),
	}
	// Default model behavior: a valid report for synthesis, plain text
	// everywhere else. Tests override per scenario.
	d.ai.ChatWithUsageFunc = func(ctx context.Context, msgs []adapter.Message) (string, adapter.Usage, error) {
		return reportJSON, adapter.Usage{PromptTokens: 100, CompletionTokens: 50}, nil
	}
	d.ai.ChatFunc = func(ctx context.Context, msgs []adapter.Message) (string, error) {
		return "formatted report", nil
	}
	d.uc = usecase.NewAnalysisUC(d.ai, d.football, d.weather, newTestCache(d.redis), newTestLogger())
	return d
}

func statsFor(name string) *model.TeamStats {
	return &model.TeamStats{Name: name, Found: true, RecentForm: "WWDLW", GoalsScored: 9, GoalsConceded: 4}
}

func TestAnalysisUC_TextPath(t *testing.T) {
	d := newAnalysisUCDeps()
	d.football.SearchTeamFunc = func(ctx context.Context, name string) (*model.TeamStats, error) {
		return statsFor(name), nil
	}

	report, err := d.uc.Analyze(context.Background(), usecase.AnalyzeRequest{
		TelegramID: 100, HomeTeam: "barca", AwayTeam: "Real Madrid",
	})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if report.Match.HomeTeam != "Barcelona" {
		t.Errorf("home team not normalized: %q", report.Match.HomeTeam)
	}
	if report.Match.Confidence != 100 {
		t.Errorf("typed input must carry confidence 100, got %d", report.Match.Confidence)
	}
	if report.Analysis == "" || report.Rendered != "formatted report" {
		t.Errorf("incomplete report: analysis=%q rendered=%q", report.Analysis, report.Rendered)
	}
}

func TestAnalysisUC_TextPath_MissingTeam(t *testing.T) {
	d := newAnalysisUCDeps()
	_, err := d.uc.Analyze(context.Background(), usecase.AnalyzeRequest{TelegramID: 100, HomeTeam: "Barcelona"})
	if !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("err = %v, want ErrInvalidArgument", err)
	}
}

func TestAnalysisUC_PhotoPath(t *testing.T) {
	d := newAnalysisUCDeps()
	d.ai.ChatVisionFunc = func(ctx context.Context, prompt string, image []byte) (string, error) {
		// Models wrap JSON in fences; extraction must tolerate that.
		return "```json\n{\"home_team\":\"atletico\",\"away_team\":\"Sevilla\",\"competition\":\"La Liga\",\"date\":\"2026-09-12\",\"time\":\"20:45\",\"city\":\"Madrid\",\"home_odds\":1.8,\"draw_odds\":3.4,\"away_odds\":4.2,\"confidence\":91,\"raw_text\":\"...\"}\n```", nil
	}
	d.weather.FetchFunc = func(ctx context.Context, city string, kickoff *time.Time) (*model.WeatherReport, error) {
		if city != "Madrid" {
			t.Errorf("weather city = %q, want Madrid", city)
		}
		if kickoff == nil || kickoff.Hour() != 20 {
			t.Errorf("kickoff not parsed from the extracted date/time: %v", kickoff)
		}
		return &model.WeatherReport{City: city, Condition: "clear", Impact: model.WeatherImpactNone}, nil
	}

	report, err := d.uc.Analyze(context.Background(), usecase.AnalyzeRequest{TelegramID: 100, Photo: []byte{0xFF}})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if report.Match.HomeTeam != "Atletico Madrid" {
		t.Errorf("extracted home team not normalized: %q", report.Match.HomeTeam)
	}
	if report.Weather == nil {
		t.Errorf("weather enrichment missing")
	}
}

func TestAnalysisUC_PhotoPath_MalformedExtraction(t *testing.T) {
	cases := []struct {
		name  string
		reply string
	}{
		{"not json", "sorry, I cannot read this image"},
		{"missing teams", `{"competition":"La Liga","confidence":90}`},
		{"low confidence", `{"home_team":"A","away_team":"B","confidence":5}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := newAnalysisUCDeps()
			d.ai.ChatVisionFunc = func(ctx context.Context, prompt string, image []byte) (string, error) {
				return tc.reply, nil
			}
			_, err := d.uc.Analyze(context.Background(), usecase.AnalyzeRequest{TelegramID: 100, Photo: []byte{0xFF}})
			if !errors.Is(err, domain.ErrExtractionFailed) {
				t.Fatalf("err = %v, want ErrExtractionFailed", err)
			}
		})
	}
}

func TestAnalysisUC_EnrichmentDegradesToEmptyShells(t *testing.T) {
	d := newAnalysisUCDeps()
	d.football.SearchTeamFunc = func(ctx context.Context, name string) (*model.TeamStats, error) {
		return nil, domain.ErrNotFound
	}

	report, err := d.uc.Analyze(context.Background(), usecase.AnalyzeRequest{
		TelegramID: 100, HomeTeam: "Grimsby Town", AwayTeam: "Walsall",
	})
	if err != nil {
		t.Fatalf("provider outage must not abort the pipeline: %v", err)
	}
	if report.HomeStats == nil || report.HomeStats.Found {
		t.Errorf("expected an empty stats shell, got %+v", report.HomeStats)
	}
	if report.HomeStats.Name != "Grimsby Town" {
		t.Errorf("shell must keep the normalized name: %q", report.HomeStats.Name)
	}
	if report.DataQuality != model.DataQualityPoor {
		t.Errorf("quality = %q, want poor", report.DataQuality)
	}
}

func TestAnalysisUC_EnrichmentUsesCache(t *testing.T) {
	d := newAnalysisUCDeps()
	calls := 0
	d.football.SearchTeamFunc = func(ctx context.Context, name string) (*model.TeamStats, error) {
		calls++
		return statsFor(name), nil
	}

	req := usecase.AnalyzeRequest{TelegramID: 100, HomeTeam: "Barcelona", AwayTeam: "Real Madrid"}
	if _, err := d.uc.Analyze(context.Background(), req); err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if _, err := d.uc.Analyze(context.Background(), req); err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if calls != 2 {
		t.Errorf("provider calls = %d, want 2 (one per team, second run served from cache)", calls)
	}
}

func TestAnalysisUC_LiveContextFailureUsesPlaceholder(t *testing.T) {
	d := newAnalysisUCDeps()
	var synthesisPrompt string
	d.ai.ChatFunc = func(ctx context.Context, msgs []adapter.Message) (string, error) {
		if strings.Contains(msgs[len(msgs)-1].Content, "latest known news") {
			return "", errors.New("search backend down")
		}
		return "formatted report", nil
	}
	d.ai.ChatWithUsageFunc = func(ctx context.Context, msgs []adapter.Message) (string, adapter.Usage, error) {
		synthesisPrompt = msgs[len(msgs)-1].Content
		return reportJSON, adapter.Usage{}, nil
	}

	report, err := d.uc.Analyze(context.Background(), usecase.AnalyzeRequest{
		TelegramID: 100, HomeTeam: "Barcelona", AwayTeam: "Real Madrid",
	})
	if err != nil {
		t.Fatalf("live context failure must not abort the pipeline: %v", err)
	}
	if !strings.Contains(report.LiveContext, "No live match context") {
		t.Errorf("LiveContext = %q, want the placeholder", report.LiveContext)
	}
	if !strings.Contains(synthesisPrompt, report.LiveContext) {
		t.Errorf("synthesis prompt must still carry the live context line")
	}
}

func TestAnalysisUC_SynthesisParseFailureIsTerminal(t *testing.T) {
	d := newAnalysisUCDeps()
	d.ai.ChatWithUsageFunc = func(ctx context.Context, msgs []adapter.Message) (string, adapter.Usage, error) {
		return "I think the home side wins.", adapter.Usage{}, nil
	}
	_, err := d.uc.Analyze(context.Background(), usecase.AnalyzeRequest{
		TelegramID: 100, HomeTeam: "Barcelona", AwayTeam: "Real Madrid",
	})
	if !errors.Is(err, domain.ErrSynthesisFailed) {
		t.Fatalf("err = %v, want ErrSynthesisFailed", err)
	}
}

func TestAnalysisUC_RuleAlertsAndQuality(t *testing.T) {
	d := newAnalysisUCDeps()
	d.football.SearchTeamFunc = func(ctx context.Context, name string) (*model.TeamStats, error) {
		s := statsFor(name)
		if name == "Barcelona" {
			s.InjuryCount = 4
			s.MatchesLast7d = 3
		} else {
			s.InjuryCount = 1
		}
		return s, nil
	}
	d.weather.FetchFunc = func(ctx context.Context, city string, kickoff *time.Time) (*model.WeatherReport, error) {
		return &model.WeatherReport{City: city, Condition: "storm", Impact: model.WeatherImpactHigh}, nil
	}
	d.ai.ChatVisionFunc = func(ctx context.Context, prompt string, image []byte) (string, error) {
		return `{"home_team":"Barcelona","away_team":"Real Madrid","city":"Barcelona","home_odds":2.1,"draw_odds":3.3,"away_odds":3.0,"confidence":95}`, nil
	}

	report, err := d.uc.Analyze(context.Background(), usecase.AnalyzeRequest{TelegramID: 100, Photo: []byte{0xFF}})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	if report.DataQuality != model.DataQualityExcellent {
		t.Errorf("quality = %q, want excellent (form both sides, weather, odds)", report.DataQuality)
	}

	var critical, rotation, weather, minorInjury int
	for _, a := range report.Alerts {
		switch {
		case strings.Contains(a.Message, "Barcelona has 4"):
			critical++
			if a.Level != model.AlertLevelCritical {
				t.Errorf("4 injuries must be critical, got %q", a.Level)
			}
		case strings.Contains(a.Message, "rotation"):
			rotation++
		case strings.Contains(a.Message, "Severe weather"):
			weather++
		case strings.Contains(a.Message, "Real Madrid has 1"):
			minorInjury++
			if a.Level != model.AlertLevelWarning {
				t.Errorf("1 injury must be a warning, got %q", a.Level)
			}
		}
	}
	if critical != 1 || rotation != 1 || weather != 1 || minorInjury != 1 {
		t.Errorf("alerts critical=%d rotation=%d weather=%d minor=%d, want 1 each: %+v",
			critical, rotation, weather, minorInjury, report.Alerts)
	}
}

func TestAnalysisUC_RenderTruncatesLongOutput(t *testing.T) {
	d := newAnalysisUCDeps()
	d.ai.ChatFunc = func(ctx context.Context, msgs []adapter.Message) (string, error) {
		if strings.Contains(msgs[0].Content, "format football analysis") {
			return strings.Repeat("a", 5000), nil
		}
		return "context", nil
	}

	report, err := d.uc.Analyze(context.Background(), usecase.AnalyzeRequest{
		TelegramID: 100, HomeTeam: "Barcelona", AwayTeam: "Real Madrid",
	})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(report.Rendered) > 4000 {
		t.Errorf("rendered length = %d, want <= 4000", len(report.Rendered))
	}
	if !strings.HasSuffix(report.Rendered, "[... truncated]") {
		t.Errorf("missing truncation marker: ...%q", report.Rendered[len(report.Rendered)-30:])
	}
}

func TestAnalysisUC_RenderTruncationKeepsValidUTF8(t *testing.T) {
	d := newAnalysisUCDeps()
	d.ai.ChatFunc = func(ctx context.Context, msgs []adapter.Message) (string, error) {
		if strings.Contains(msgs[0].Content, "format football analysis") {
			// 3-byte runes so the raw byte limit never falls on a boundary.
			return strings.Repeat("⚽", 2000), nil
		}
		return "context", nil
	}

	report, err := d.uc.Analyze(context.Background(), usecase.AnalyzeRequest{
		TelegramID: 100, HomeTeam: "Barcelona", AwayTeam: "Real Madrid",
	})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if !utf8.ValidString(report.Rendered) {
		t.Fatalf("truncation split a rune, rendered message is not valid UTF-8")
	}
	if len(report.Rendered) > 4000 {
		t.Errorf("rendered length = %d, want <= 4000", len(report.Rendered))
	}
	if !strings.HasSuffix(report.Rendered, "[... truncated]") {
		t.Errorf("missing truncation marker: ...%q", report.Rendered[len(report.Rendered)-30:])
	}
}

func TestAnalysisUC_FormattingFailureIsTerminal(t *testing.T) {
	d := newAnalysisUCDeps()
	d.ai.ChatFunc = func(ctx context.Context, msgs []adapter.Message) (string, error) {
		if strings.Contains(msgs[0].Content, "format football analysis") {
			return "", errors.New("model unavailable")
		}
		return "context", nil
	}
	_, err := d.uc.Analyze(context.Background(), usecase.AnalyzeRequest{
		TelegramID: 100, HomeTeam: "Barcelona", AwayTeam: "Real Madrid",
	})
	if !errors.Is(err, domain.ErrFormattingFailed) {
		t.Fatalf("err = %v, want ErrFormattingFailed", err)
	}
}
