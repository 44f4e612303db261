package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"telegram-match-analysis/internal/application"
	"telegram-match-analysis/internal/infra/logging"
	"telegram-match-analysis/internal/usecase"
)

type commandHandler func(ctx context.Context, msg *tgbotapi.Message) error

func (b *Bot) commandRoutes() map[string]commandHandler {
	return map[string]commandHandler{
		"start":   b.cmdStart,
		"help":    b.cmdHelp,
		"analyze": b.cmdAnalyze,
		"account": b.cmdAccount,
		"buy":     b.cmdBuy,
		"premium": b.cmdPremium,

		"stats":       b.adminOnly(b.cmdStats),
		"ban":         b.adminOnly(b.cmdBan),
		"unban":       b.adminOnly(b.cmdUnban),
		"grant":       b.adminOnly(b.cmdGrant),
		"maintenance": b.adminOnly(b.cmdMaintenance),
	}
}

// adminOnly silently ignores the command for everyone else, so the admin
// surface is not discoverable by probing.
func (b *Bot) adminOnly(next commandHandler) commandHandler {
	return func(ctx context.Context, msg *tgbotapi.Message) error {
		if !b.isAdmin(msg.From.ID) {
			return nil
		}
		return next(ctx, msg)
	}
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) error {
	ctx = logging.WithTgID(ctx, msg.From.ID)
	handler, ok := b.commandRoutes()[msg.Command()]
	if !ok {
		return b.send(ctx, msg.Chat.ID, "Unknown command. Try /help.")
	}
	return handler(ctx, msg)
}

func (b *Bot) cmdStart(ctx context.Context, msg *tgbotapi.Message) error {
	hints := usecase.ProfileHints{
		Username:  msg.From.UserName,
		FirstName: msg.From.FirstName,
		LastName:  msg.From.LastName,
	}
	text, err := b.facade.HandleStart(ctx, msg.From.ID, hints, strings.TrimSpace(msg.CommandArguments()))
	if err != nil {
		return b.sendError(ctx, msg.Chat.ID)
	}
	return b.send(ctx, msg.Chat.ID, text)
}

func (b *Bot) cmdHelp(ctx context.Context, msg *tgbotapi.Message) error {
	return b.send(ctx, msg.Chat.ID, b.facade.HandleHelp(b.isAdmin(msg.From.ID)))
}

func (b *Bot) cmdAccount(ctx context.Context, msg *tgbotapi.Message) error {
	text, err := b.facade.HandleAccount(ctx, msg.From.ID)
	if err != nil {
		return b.sendError(ctx, msg.Chat.ID)
	}
	return b.send(ctx, msg.Chat.ID, text)
}

func (b *Bot) cmdAnalyze(ctx context.Context, msg *tgbotapi.Message) error {
	arg := strings.TrimSpace(msg.CommandArguments())
	if arg == "" {
		return b.send(ctx, msg.Chat.ID, "Usage: /analyze TeamA vs TeamB")
	}
	home, away, ok := application.ParseMatchup(arg)
	if !ok {
		return b.send(ctx, msg.Chat.ID, "I could not read the pairing. Use: /analyze TeamA vs TeamB")
	}
	if allowed := b.allowAnalyze(ctx, msg.From.ID, msg.Chat.ID); !allowed {
		return nil
	}
	b.ensureAccount(ctx, msg)
	out, err := b.facade.HandleAnalyzeText(ctx, msg.From.ID, home, away)
	if err != nil {
		return b.sendError(ctx, msg.Chat.ID)
	}
	return b.sendOutcome(ctx, msg.Chat.ID, out)
}

func (b *Bot) cmdBuy(ctx context.Context, msg *tgbotapi.Message) error {
	text, packs, err := b.facade.HandleBuy(ctx)
	if err != nil {
		return b.sendError(ctx, msg.Chat.ID)
	}
	reply := tgbotapi.NewMessage(msg.Chat.ID, text)
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(packs))
	for _, p := range packs {
		label := fmt.Sprintf("%s (%d credits)", p.Name, p.Credits)
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, "buy:"+p.ID),
		))
	}
	if len(rows) > 0 {
		reply.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	}
	_, err = b.api.Send(reply)
	return err
}

func (b *Bot) cmdPremium(ctx context.Context, msg *tgbotapi.Message) error {
	reply := tgbotapi.NewMessage(msg.Chat.ID, "Premium gives you unlimited analyses for the whole billing period. Pick a plan:")
	reply.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Monthly", "premium:monthly"),
			tgbotapi.NewInlineKeyboardButtonData("Yearly", "premium:yearly"),
		),
	)
	_, err := b.api.Send(reply)
	return err
}

func (b *Bot) cmdStats(ctx context.Context, msg *tgbotapi.Message) error {
	text, err := b.facade.HandleAdminStats(ctx)
	if err != nil {
		return b.sendError(ctx, msg.Chat.ID)
	}
	return b.send(ctx, msg.Chat.ID, text)
}

func (b *Bot) cmdBan(ctx context.Context, msg *tgbotapi.Message) error {
	parts := strings.Fields(msg.CommandArguments())
	if len(parts) < 1 {
		return b.send(ctx, msg.Chat.ID, "Usage: /ban <telegram_id> [reason]")
	}
	tgID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return b.send(ctx, msg.Chat.ID, "Usage: /ban <telegram_id> [reason]")
	}
	text, err := b.facade.HandleBan(ctx, tgID, strings.Join(parts[1:], " "))
	if err != nil {
		return b.sendError(ctx, msg.Chat.ID)
	}
	return b.send(ctx, msg.Chat.ID, text)
}

func (b *Bot) cmdUnban(ctx context.Context, msg *tgbotapi.Message) error {
	tgID, err := strconv.ParseInt(strings.TrimSpace(msg.CommandArguments()), 10, 64)
	if err != nil {
		return b.send(ctx, msg.Chat.ID, "Usage: /unban <telegram_id>")
	}
	text, err := b.facade.HandleUnban(ctx, tgID)
	if err != nil {
		return b.sendError(ctx, msg.Chat.ID)
	}
	return b.send(ctx, msg.Chat.ID, text)
}

func (b *Bot) cmdGrant(ctx context.Context, msg *tgbotapi.Message) error {
	parts := strings.Fields(msg.CommandArguments())
	if len(parts) != 2 {
		return b.send(ctx, msg.Chat.ID, "Usage: /grant <telegram_id> <credits>")
	}
	tgID, err1 := strconv.ParseInt(parts[0], 10, 64)
	amount, err2 := strconv.ParseInt(parts[1], 10, 64)
	if err1 != nil || err2 != nil {
		return b.send(ctx, msg.Chat.ID, "Usage: /grant <telegram_id> <credits>")
	}
	text, err := b.facade.HandleGrant(ctx, tgID, amount)
	if err != nil {
		return b.sendError(ctx, msg.Chat.ID)
	}
	return b.send(ctx, msg.Chat.ID, text)
}

func (b *Bot) cmdMaintenance(ctx context.Context, msg *tgbotapi.Message) error {
	arg := strings.ToLower(strings.TrimSpace(msg.CommandArguments()))
	if arg != "on" && arg != "off" {
		return b.send(ctx, msg.Chat.ID, "Usage: /maintenance on|off")
	}
	text, err := b.facade.HandleMaintenance(ctx, arg == "on")
	if err != nil {
		return b.sendError(ctx, msg.Chat.ID)
	}
	return b.send(ctx, msg.Chat.ID, text)
}
