package telegram

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"telegram-match-analysis/internal/domain/model"
	"telegram-match-analysis/internal/infra/logging"
)

type cbHandler func(ctx context.Context, cb *tgbotapi.CallbackQuery, data string) error

func (b *Bot) cbRoutes() map[string]cbHandler {
	return map[string]cbHandler{
		"details":      b.cbDetails,
		"bets":         b.cbBets,
		"correct":      b.cbCorrect,
		"show:buy":     b.cbShowBuy,
		"show:premium": b.cbShowPremium,
	}
}

// cbPrefixRoutes handles callbacks that carry a payload after the prefix.
func (b *Bot) cbPrefixRoutes() []struct {
	Prefix string
	Fn     cbHandler
} {
	return []struct {
		Prefix string
		Fn     cbHandler
	}{
		{Prefix: "reanalyze:", Fn: b.cbReanalyze},
		{Prefix: "buy:", Fn: b.cbBuyPackage},
		{Prefix: "premium:", Fn: b.cbPremiumPlan},
	}
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	if cb.From == nil || cb.Message == nil {
		return nil
	}
	ctx = logging.WithTgID(ctx, cb.From.ID)

	// Ack immediately so the client stops the spinner.
	if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		b.log.Warn().Err(err).Msg("callback ack failed")
	}

	if fn, ok := b.cbRoutes()[cb.Data]; ok {
		return fn(ctx, cb, "")
	}
	for _, r := range b.cbPrefixRoutes() {
		if strings.HasPrefix(cb.Data, r.Prefix) {
			return r.Fn(ctx, cb, strings.TrimPrefix(cb.Data, r.Prefix))
		}
	}
	b.log.Warn().Str("data", cb.Data).Msg("unroutable callback")
	return nil
}

func (b *Bot) cbDetails(ctx context.Context, cb *tgbotapi.CallbackQuery, _ string) error {
	text, err := b.facade.HandleDetails(ctx, cb.From.ID)
	if err != nil {
		return b.sendError(ctx, cb.Message.Chat.ID)
	}
	return b.send(ctx, cb.Message.Chat.ID, text)
}

func (b *Bot) cbBets(ctx context.Context, cb *tgbotapi.CallbackQuery, _ string) error {
	text, err := b.facade.HandleBets(ctx, cb.From.ID)
	if err != nil {
		return b.sendError(ctx, cb.Message.Chat.ID)
	}
	return b.send(ctx, cb.Message.Chat.ID, text)
}

func (b *Bot) cbCorrect(ctx context.Context, cb *tgbotapi.CallbackQuery, _ string) error {
	text, err := b.facade.HandleCorrect(ctx, cb.From.ID)
	if err != nil {
		return b.sendError(ctx, cb.Message.Chat.ID)
	}
	return b.send(ctx, cb.Message.Chat.ID, text)
}

func (b *Bot) cbReanalyze(ctx context.Context, cb *tgbotapi.CallbackQuery, data string) error {
	parts := strings.SplitN(data, ":", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return b.send(ctx, cb.Message.Chat.ID, "That button has expired. Type the pairing again.")
	}
	if allowed := b.allowAnalyze(ctx, cb.From.ID, cb.Message.Chat.ID); !allowed {
		return nil
	}
	out, err := b.facade.HandleReanalyze(ctx, cb.From.ID, parts[0], parts[1])
	if err != nil {
		return b.sendError(ctx, cb.Message.Chat.ID)
	}
	return b.sendOutcome(ctx, cb.Message.Chat.ID, out)
}

func (b *Bot) cbBuyPackage(ctx context.Context, cb *tgbotapi.CallbackQuery, packageID string) error {
	text, err := b.facade.HandleBuyPackage(ctx, cb.From.ID, packageID)
	if err != nil {
		return b.sendError(ctx, cb.Message.Chat.ID)
	}
	return b.send(ctx, cb.Message.Chat.ID, text)
}

func (b *Bot) cbPremiumPlan(ctx context.Context, cb *tgbotapi.CallbackQuery, plan string) error {
	p := model.PremiumPlan(plan)
	if p != model.PremiumPlanMonthly && p != model.PremiumPlanYearly {
		return b.send(ctx, cb.Message.Chat.ID, "Unknown plan.")
	}
	text, err := b.facade.HandlePremium(ctx, cb.From.ID, p)
	if err != nil {
		return b.sendError(ctx, cb.Message.Chat.ID)
	}
	return b.send(ctx, cb.Message.Chat.ID, text)
}

func (b *Bot) cbShowBuy(ctx context.Context, cb *tgbotapi.CallbackQuery, _ string) error {
	fake := &tgbotapi.Message{Chat: cb.Message.Chat, From: cb.From}
	return b.cmdBuy(ctx, fake)
}

func (b *Bot) cbShowPremium(ctx context.Context, cb *tgbotapi.CallbackQuery, _ string) error {
	fake := &tgbotapi.Message{Chat: cb.Message.Chat, From: cb.From}
	return b.cmdPremium(ctx, fake)
}
