package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"telegram-match-analysis/internal/domain"
	"telegram-match-analysis/internal/domain/model"
	"telegram-match-analysis/internal/domain/ports/repository"
	"telegram-match-analysis/internal/usecase"
)

// BotFacade composes usecases into high-level bot commands. Methods return
// the user-facing text so the Telegram adapter just forwards it to the chat.
type BotFacade struct {
	AccountUC  usecase.AccountUseCase
	AnalysisUC usecase.AnalysisUseCase
	PaymentUC  usecase.PaymentUseCase
	SettingsUC usecase.SettingsUseCase
	InviteUC   usecase.InviteUseCase
	StatsUC    usecase.StatsUseCase

	States repository.ChatStateRepository
}

func NewBotFacade(
	accountUC usecase.AccountUseCase,
	analysisUC usecase.AnalysisUseCase,
	paymentUC usecase.PaymentUseCase,
	settingsUC usecase.SettingsUseCase,
	inviteUC usecase.InviteUseCase,
	statsUC usecase.StatsUseCase,
	states repository.ChatStateRepository,
) *BotFacade {
	return &BotFacade{
		AccountUC:  accountUC,
		AnalysisUC: analysisUC,
		PaymentUC:  paymentUC,
		SettingsUC: settingsUC,
		InviteUC:   inviteUC,
		StatsUC:    statsUC,
		States:     states,
	}
}

// HandleStart registers the account and, when an invite code argument is
// present, redeems it. In private mode unauthorized users only get the
// invite prompt.
func (b *BotFacade) HandleStart(ctx context.Context, tgID int64, hints usecase.ProfileHints, codeArg string) (string, error) {
	acc, err := b.AccountUC.GetOrCreate(ctx, tgID, hints)
	if err != nil {
		return "", err
	}

	if codeArg != "" {
		switch err := b.InviteUC.Redeem(ctx, tgID, codeArg); {
		case err == nil:
			return "Invite code accepted. Send a match screenshot or use /analyze to get started.", nil
		case errors.Is(err, domain.ErrCodeNotFound):
			return "That invite code does not exist.", nil
		case errors.Is(err, domain.ErrCodeAlreadyUsed):
			return "That invite code has already been used.", nil
		default:
			return "", err
		}
	}

	s, err := b.SettingsUC.Get(ctx)
	if err != nil {
		return "", err
	}
	if s.PrivateMode && !acc.IsAuthorized && !acc.IsAdmin {
		return "This bot is invite-only. Send /start <code> with your invite code.", nil
	}

	name := acc.FirstName
	if name == "" {
		name = acc.Username
	}
	return fmt.Sprintf(
		"Hello %s!\nSend a screenshot of an upcoming match, or type /analyze TeamA vs TeamB.\nYou have %d free analyses left. /help for everything else.",
		name, acc.FreeMessagesRemaining()), nil
}

func (b *BotFacade) HandleHelp(isAdmin bool) string {
	var sb strings.Builder
	sb.WriteString("Commands:\n")
	sb.WriteString("/analyze TeamA vs TeamB - analyze a match\n")
	sb.WriteString("Send a photo of a match screen to analyze it directly\n")
	sb.WriteString("/account - balance and subscription\n")
	sb.WriteString("/buy - credit packages\n")
	sb.WriteString("/premium - premium subscription\n")
	if isAdmin {
		sb.WriteString("\nAdmin:\n/stats\n/ban <id> [reason]\n/unban <id>\n/grant <id> <credits>\n/maintenance on|off\n")
	}
	return sb.String()
}

func (b *BotFacade) HandleAccount(ctx context.Context, tgID int64) (string, error) {
	acc, err := b.AccountUC.Get(ctx, tgID)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Free analyses: %d of %d left\n", acc.FreeMessagesRemaining(), acc.FreeMessagesLimit)
	fmt.Fprintf(&sb, "Credits: %d\n", acc.Credits)
	if acc.HasActivePremium(time.Now()) {
		fmt.Fprintf(&sb, "Premium until %s\n", acc.PremiumUntil.Format("2006-01-02"))
	} else {
		sb.WriteString("Premium: not active (/premium)\n")
	}
	fmt.Fprintf(&sb, "Analyses requested: %d", acc.TotalMessagesSent)
	return sb.String(), nil
}

// AnalyzeOutcome carries the reply text plus whether follow-up actions
// (details, bets, correction) make sense for this reply.
type AnalyzeOutcome struct {
	Text        string
	ReportReady bool
	Denied      bool
}

func (b *BotFacade) HandleAnalyzeText(ctx context.Context, tgID int64, home, away string) (*AnalyzeOutcome, error) {
	return b.runAnalysis(ctx, tgID, usecase.AnalyzeRequest{TelegramID: tgID, HomeTeam: home, AwayTeam: away}, model.MessageTypeText)
}

func (b *BotFacade) HandleAnalyzePhoto(ctx context.Context, tgID int64, photo []byte) (*AnalyzeOutcome, error) {
	return b.runAnalysis(ctx, tgID, usecase.AnalyzeRequest{TelegramID: tgID, Photo: photo}, model.MessageTypePhoto)
}

// runAnalysis is the gate-analyze-debit sequence. The debit happens only
// after the pipeline delivered a rendered report; a pipeline failure leaves
// every balance untouched.
func (b *BotFacade) runAnalysis(ctx context.Context, tgID int64, req usecase.AnalyzeRequest, msgType model.MessageType) (*AnalyzeOutcome, error) {
	ent, err := b.AccountUC.CheckEntitlement(ctx, tgID)
	if err != nil {
		return nil, err
	}
	if !ent.Allowed {
		return &AnalyzeOutcome{Text: denialText(ent), Denied: true}, nil
	}

	report, err := b.AnalysisUC.Analyze(ctx, req)
	if err != nil {
		return &AnalyzeOutcome{Text: failureText(err)}, nil
	}

	res, err := b.AccountUC.Debit(ctx, tgID, usecase.MessageMeta{
		Type:        msgType,
		HomeTeam:    report.Match.HomeTeam,
		AwayTeam:    report.Match.AwayTeam,
		Competition: report.Match.Competition,
	})
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientBalance) {
			return &AnalyzeOutcome{Text: "Your balance ran out just now. /buy to top up.", Denied: true}, nil
		}
		return nil, err
	}

	state := &repository.ChatState{
		LastMatch:   report.Match,
		LastReport:  report.Rendered,
		LastDetails: detailsText(report),
		LastBets:    betsText(report),
	}
	// State is a convenience for follow-up buttons; the report goes out
	// regardless.
	_ = b.States.Set(ctx, tgID, state)

	return &AnalyzeOutcome{Text: report.Rendered + balanceFooter(res), ReportReady: true}, nil
}

// HandleCorrectionReply consumes a pending "TeamA vs TeamB" correction.
// Returns ok=false when no correction was pending, so the caller can treat
// the text as a regular message.
func (b *BotFacade) HandleCorrectionReply(ctx context.Context, tgID int64, text string) (*AnalyzeOutcome, bool, error) {
	state, err := b.States.Get(ctx, tgID)
	if err != nil || !state.AwaitingCorrection {
		return nil, false, nil
	}
	home, away, ok := ParseMatchup(text)
	if !ok {
		return &AnalyzeOutcome{Text: "Please send the correction as: TeamA vs TeamB"}, true, nil
	}
	_ = b.States.Clear(ctx, tgID)
	out, err := b.HandleAnalyzeText(ctx, tgID, home, away)
	return out, true, err
}

func (b *BotFacade) HandleDetails(ctx context.Context, tgID int64) (string, error) {
	state, err := b.States.Get(ctx, tgID)
	if err != nil {
		return "", err
	}
	if state.LastDetails == "" {
		return "No recent analysis. Send a match first.", nil
	}
	return state.LastDetails, nil
}

func (b *BotFacade) HandleBets(ctx context.Context, tgID int64) (string, error) {
	state, err := b.States.Get(ctx, tgID)
	if err != nil {
		return "", err
	}
	if state.LastBets == "" {
		return "No recent analysis. Send a match first.", nil
	}
	return state.LastBets, nil
}

// HandleCorrect arms the correction flow: the next plain-text message is
// read as "TeamA vs TeamB".
func (b *BotFacade) HandleCorrect(ctx context.Context, tgID int64) (string, error) {
	state, err := b.States.Get(ctx, tgID)
	if err != nil {
		state = &repository.ChatState{}
	}
	state.AwaitingCorrection = true
	if err := b.States.Set(ctx, tgID, state); err != nil {
		return "", err
	}
	return "Send the correct pairing as: TeamA vs TeamB", nil
}

func (b *BotFacade) HandleReanalyze(ctx context.Context, tgID int64, home, away string) (*AnalyzeOutcome, error) {
	return b.HandleAnalyzeText(ctx, tgID, home, away)
}

// --- payments ---

func (b *BotFacade) HandleBuy(ctx context.Context) (string, []model.CreditPackage, error) {
	packs, err := b.PaymentUC.GetCreditPackages(ctx)
	if err != nil {
		return "", nil, err
	}
	var sb strings.Builder
	sb.WriteString("Credit packages:\n")
	for _, p := range packs {
		marker := ""
		if p.Popular {
			marker = " (popular)"
		}
		fmt.Fprintf(&sb, "- %s: %d credits for %s%s\n", p.Name, p.Credits, formatMinor(p.Price), marker)
	}
	return sb.String(), packs, nil
}

func (b *BotFacade) HandleBuyPackage(ctx context.Context, tgID int64, packageID string) (string, error) {
	url, err := b.PaymentUC.CreateCreditsCheckout(ctx, tgID, packageID)
	if err != nil {
		if errors.Is(err, domain.ErrPackageNotFound) {
			return "Unknown package. Use /buy to see the catalog.", nil
		}
		return "", err
	}
	return "Complete your purchase here:\n" + url, nil
}

func (b *BotFacade) HandlePremium(ctx context.Context, tgID int64, plan model.PremiumPlan) (string, error) {
	url, err := b.PaymentUC.CreatePremiumCheckout(ctx, tgID, plan)
	if err != nil {
		if errors.Is(err, domain.ErrPremiumDisabled) {
			return "Premium subscriptions are currently disabled.", nil
		}
		return "", err
	}
	return "Complete your subscription here:\n" + url, nil
}

// --- admin commands ---

func (b *BotFacade) HandleAdminStats(ctx context.Context) (string, error) {
	o, err := b.StatsUC.Overview(ctx)
	if err != nil {
		return "", err
	}
	week, month, year, err := b.StatsUC.Revenue(ctx)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Users: %d (today %d, week %d, premium %d)\n", o.TotalUsers, o.ActiveToday, o.ActiveWeek, o.PremiumUsers)
	fmt.Fprintf(&sb, "Analyses: %d total, %d today\n", o.TotalAnalyses, o.AnalysesToday)
	fmt.Fprintf(&sb, "Revenue: week %s, month %s, year %s", formatMinor(week), formatMinor(month), formatMinor(year))
	return sb.String(), nil
}

func (b *BotFacade) HandleBan(ctx context.Context, tgID int64, reason string) (string, error) {
	if err := b.AccountUC.SetBanned(ctx, tgID, true, reason); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "No such user.", nil
		}
		return "", err
	}
	return fmt.Sprintf("User %d banned.", tgID), nil
}

func (b *BotFacade) HandleUnban(ctx context.Context, tgID int64) (string, error) {
	if err := b.AccountUC.SetBanned(ctx, tgID, false, ""); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "No such user.", nil
		}
		return "", err
	}
	return fmt.Sprintf("User %d unbanned.", tgID), nil
}

func (b *BotFacade) HandleGrant(ctx context.Context, tgID int64, amount int64) (string, error) {
	if err := b.AccountUC.GrantCredits(ctx, tgID, amount); err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			return "No such user.", nil
		case errors.Is(err, domain.ErrInvalidArgument):
			return "Amount must be positive.", nil
		}
		return "", err
	}
	return fmt.Sprintf("Granted %d credits to %d.", amount, tgID), nil
}

func (b *BotFacade) HandleMaintenance(ctx context.Context, on bool) (string, error) {
	if err := b.SettingsUC.SetMaintenance(ctx, on); err != nil {
		return "", err
	}
	if on {
		return "Maintenance mode enabled.", nil
	}
	return "Maintenance mode disabled.", nil
}

// --- helpers ---

// ParseMatchup splits "TeamA vs TeamB" (also "-" and "x" separators).
func ParseMatchup(text string) (home, away string, ok bool) {
	lower := strings.ToLower(text)
	for _, sep := range []string{" vs ", " v ", " - ", " x "} {
		if i := strings.Index(lower, sep); i > 0 {
			home = strings.TrimSpace(text[:i])
			away = strings.TrimSpace(text[i+len(sep):])
			if home != "" && away != "" {
				return home, away, true
			}
		}
	}
	return "", "", false
}

func denialText(ent *usecase.Entitlement) string {
	switch ent.Reason {
	case "banned":
		if ent.BanNote != "" {
			return "Your account is suspended: " + ent.BanNote
		}
		return "Your account is suspended."
	case "maintenance":
		return "The bot is under maintenance. Please try again later."
	case "unauthorized":
		return "This bot is invite-only. Send /start <code> with your invite code."
	default:
		return fmt.Sprintf(
			"You are out of analyses.\nFree used: %d of %d. Credits: %d.\nTop up with /buy or go unlimited with /premium.",
			ent.Snapshot.FreeLimit-ent.Snapshot.RemainingFree, ent.Snapshot.FreeLimit, ent.Snapshot.Credits)
	}
}

func failureText(err error) string {
	switch {
	case errors.Is(err, domain.ErrExtractionFailed):
		return "I could not read that screenshot. Try a sharper photo, or type the match as /analyze TeamA vs TeamB."
	case errors.Is(err, domain.ErrInvalidArgument):
		return "I need both team names. Format: /analyze TeamA vs TeamB"
	default:
		return "Something went wrong while analyzing. You were not charged; please try again."
	}
}

func balanceFooter(res *usecase.DebitResult) string {
	switch res.Source {
	case "free":
		return fmt.Sprintf("\n\nFree analyses left: %d", res.RemainingFree)
	case "credits":
		return fmt.Sprintf("\n\nCredits left: %d", res.RemainingCredits)
	default:
		return ""
	}
}

func detailsText(r *model.Report) string {
	p := r.Predictions
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s vs %s - detailed predictions\n\n", r.Match.HomeTeam, r.Match.AwayTeam)
	fmt.Fprintf(&sb, "1X2: %d%% / %d%% / %d%%\n", p.HomeWinPct, p.DrawPct, p.AwayWinPct)
	fmt.Fprintf(&sb, "Over 2.5: %d%%  Under 2.5: %d%%\n", p.Over25Pct, p.Under25Pct)
	fmt.Fprintf(&sb, "Both teams to score: %d%%\n", p.BTTSPct)
	if len(p.ExactScores) > 0 {
		fmt.Fprintf(&sb, "Likely scores: %s\n", strings.Join(p.ExactScores, ", "))
	}
	if len(p.LikelyScorer) > 0 {
		fmt.Fprintf(&sb, "Likely scorers: %s\n", strings.Join(p.LikelyScorer, ", "))
	}
	fmt.Fprintf(&sb, "\nData quality: %s", r.DataQuality)
	return sb.String()
}

func betsText(r *model.Report) string {
	if len(r.Suggestions) == 0 {
		return "No betting suggestions for this match."
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s vs %s - suggestions\n", r.Match.HomeTeam, r.Match.AwayTeam)
	for _, s := range r.Suggestions {
		fmt.Fprintf(&sb, "\n%s: %s (%s confidence)\n%s\n", s.Market, s.Selection, s.Confidence, s.Reasoning)
	}
	sb.WriteString("\nBet responsibly. These are model estimates, not guarantees.")
	return sb.String()
}

func formatMinor(amount int64) string {
	return fmt.Sprintf("%d.%02d EUR", amount/100, amount%100)
}
