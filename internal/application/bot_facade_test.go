//go:build !integration

package application

import (
	"context"
	"strings"
	"testing"

	"telegram-match-analysis/internal/domain"
	"telegram-match-analysis/internal/domain/model"
	"telegram-match-analysis/internal/domain/ports/repository"
	"telegram-match-analysis/internal/usecase"
)

type fakeAccountUC struct {
	usecase.AccountUseCase // panic on anything not overridden

	entitlement *usecase.Entitlement
	debits      int
	debitErr    error
}

func (f *fakeAccountUC) CheckEntitlement(ctx context.Context, tgID int64) (*usecase.Entitlement, error) {
	return f.entitlement, nil
}

func (f *fakeAccountUC) Debit(ctx context.Context, tgID int64, meta usecase.MessageMeta) (*usecase.DebitResult, error) {
	f.debits++
	if f.debitErr != nil {
		return nil, f.debitErr
	}
	return &usecase.DebitResult{WasFree: true, Source: "free", RemainingFree: 4}, nil
}

type fakeAnalysisUC struct {
	report *model.Report
	err    error
	calls  int
}

func (f *fakeAnalysisUC) Analyze(ctx context.Context, req usecase.AnalyzeRequest) (*model.Report, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.report, nil
}

type fakeStates struct {
	state *repository.ChatState
}

func (f *fakeStates) Set(ctx context.Context, tgID int64, s *repository.ChatState) error {
	f.state = s
	return nil
}

func (f *fakeStates) Get(ctx context.Context, tgID int64) (*repository.ChatState, error) {
	if f.state == nil {
		return &repository.ChatState{}, nil
	}
	return f.state, nil
}

func (f *fakeStates) Clear(ctx context.Context, tgID int64) error {
	f.state = nil
	return nil
}

func allowedEntitlement() *usecase.Entitlement {
	return &usecase.Entitlement{Allowed: true, Snapshot: usecase.Snapshot{RemainingFree: 5, FreeLimit: 5}}
}

func sampleReport() *model.Report {
	return &model.Report{
		Match:    &model.MatchCandidate{HomeTeam: "Barcelona", AwayTeam: "Real Madrid"},
		Rendered: "the report",
	}
}

func TestRunAnalysis_DebitsOnlyAfterSuccess(t *testing.T) {
	accounts := &fakeAccountUC{entitlement: allowedEntitlement()}
	analysis := &fakeAnalysisUC{report: sampleReport()}
	states := &fakeStates{}
	b := &BotFacade{AccountUC: accounts, AnalysisUC: analysis, States: states}

	out, err := b.HandleAnalyzeText(context.Background(), 100, "Barcelona", "Real Madrid")
	if err != nil {
		t.Fatalf("HandleAnalyzeText: %v", err)
	}
	if !out.ReportReady || !strings.HasPrefix(out.Text, "the report") {
		t.Errorf("unexpected outcome: %+v", out)
	}
	if accounts.debits != 1 {
		t.Errorf("debits = %d, want 1", accounts.debits)
	}
	if states.state == nil || states.state.LastReport != "the report" {
		t.Errorf("chat state not stored")
	}
}

func TestRunAnalysis_PipelineFailureDoesNotDebit(t *testing.T) {
	accounts := &fakeAccountUC{entitlement: allowedEntitlement()}
	analysis := &fakeAnalysisUC{err: domain.ErrSynthesisFailed}
	b := &BotFacade{AccountUC: accounts, AnalysisUC: analysis, States: &fakeStates{}}

	out, err := b.HandleAnalyzeText(context.Background(), 100, "A", "B")
	if err != nil {
		t.Fatalf("pipeline failure must yield a reply, not an error: %v", err)
	}
	if accounts.debits != 0 {
		t.Errorf("pipeline failure must not debit, got %d debits", accounts.debits)
	}
	if !strings.Contains(out.Text, "not charged") {
		t.Errorf("failure reply should say the user was not charged: %q", out.Text)
	}
}

func TestRunAnalysis_DeniedSkipsPipeline(t *testing.T) {
	accounts := &fakeAccountUC{entitlement: &usecase.Entitlement{
		Reason:   "no_quota",
		Snapshot: usecase.Snapshot{FreeLimit: 5},
	}}
	analysis := &fakeAnalysisUC{report: sampleReport()}
	b := &BotFacade{AccountUC: accounts, AnalysisUC: analysis, States: &fakeStates{}}

	out, err := b.HandleAnalyzeText(context.Background(), 100, "A", "B")
	if err != nil {
		t.Fatalf("HandleAnalyzeText: %v", err)
	}
	if !out.Denied {
		t.Errorf("expected a denial outcome")
	}
	if analysis.calls != 0 {
		t.Errorf("denied request must not run the pipeline")
	}
	if accounts.debits != 0 {
		t.Errorf("denied request must not debit")
	}
}

func TestRunAnalysis_DebitRaceLoser(t *testing.T) {
	accounts := &fakeAccountUC{entitlement: allowedEntitlement(), debitErr: domain.ErrInsufficientBalance}
	analysis := &fakeAnalysisUC{report: sampleReport()}
	b := &BotFacade{AccountUC: accounts, AnalysisUC: analysis, States: &fakeStates{}}

	out, err := b.HandleAnalyzeText(context.Background(), 100, "A", "B")
	if err != nil {
		t.Fatalf("race loss must yield a reply, not an error: %v", err)
	}
	if !out.Denied || !strings.Contains(out.Text, "/buy") {
		t.Errorf("unexpected race-loss reply: %+v", out)
	}
}

func TestHandleCorrectionReply(t *testing.T) {
	accounts := &fakeAccountUC{entitlement: allowedEntitlement()}
	analysis := &fakeAnalysisUC{report: sampleReport()}
	states := &fakeStates{state: &repository.ChatState{AwaitingCorrection: true}}
	b := &BotFacade{AccountUC: accounts, AnalysisUC: analysis, States: states}

	out, handled, err := b.HandleCorrectionReply(context.Background(), 100, "Barcelona vs Real Madrid")
	if err != nil || !handled {
		t.Fatalf("handled=%v err=%v", handled, err)
	}
	if !out.ReportReady {
		t.Errorf("correction should re-run the analysis: %+v", out)
	}

	// Without a pending correction, plain text is not consumed.
	_, handled, _ = b.HandleCorrectionReply(context.Background(), 100, "hello")
	if handled {
		t.Errorf("no pending correction, reply must not be consumed")
	}
}

func TestParseMatchup(t *testing.T) {
	cases := []struct {
		in         string
		home, away string
		ok         bool
	}{
		{"Barcelona vs Real Madrid", "Barcelona", "Real Madrid", true},
		{"Arsenal v Chelsea", "Arsenal", "Chelsea", true},
		{"Inter - Milan", "Inter", "Milan", true},
		{"Boca x River", "Boca", "River", true},
		{"just some text", "", "", false},
		{"vs Chelsea", "", "", false},
	}
	for _, tc := range cases {
		home, away, ok := ParseMatchup(tc.in)
		if home != tc.home || away != tc.away || ok != tc.ok {
			t.Errorf("ParseMatchup(%q) = %q/%q/%v, want %q/%q/%v", tc.in, home, away, ok, tc.home, tc.away, tc.ok)
		}
	}
}
