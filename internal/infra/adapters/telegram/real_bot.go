package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"telegram-match-analysis/internal/application"
	"telegram-match-analysis/internal/config"
	"telegram-match-analysis/internal/infra/logging"
	red "telegram-match-analysis/internal/infra/redis"
	"telegram-match-analysis/internal/usecase"
)

// analyzeRateLimit caps analysis requests per user. Model calls are the
// expensive path; everything else is cheap enough to leave unthrottled.
const (
	analyzeRateLimit  = 5
	analyzeRateWindow = time.Minute
)

// Bot polls Telegram updates and delegates to the BotFacade.
type Bot struct {
	api         *tgbotapi.BotAPI
	cfg         *config.BotConfig
	facade      *application.BotFacade
	rateLimiter *red.RateLimiter
	log         *zerolog.Logger

	adminIDs      map[int64]struct{}
	cancelPolling context.CancelFunc
}

func NewBot(cfg *config.BotConfig, facade *application.BotFacade, rateLimiter *red.RateLimiter, logger *zerolog.Logger) (*Bot, error) {
	if cfg == nil || facade == nil {
		return nil, errors.New("telegram: config and facade required")
	}
	api, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("telegram: connect: %w", err)
	}

	admins := make(map[int64]struct{}, len(cfg.AdminIDs))
	for _, id := range cfg.AdminIDs {
		admins[id] = struct{}{}
	}
	return &Bot{
		api:         api,
		cfg:         cfg,
		facade:      facade,
		rateLimiter: rateLimiter,
		log:         logger,
		adminIDs:    admins,
	}, nil
}

// StartPolling blocks until ctx is canceled or StopPolling is called.
// Updates fan out to a fixed worker pool so one slow pipeline run does not
// stall the rest of the chat.
func (b *Bot) StartPolling(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.api.GetUpdatesChan(u)

	ctx, cancel := context.WithCancel(ctx)
	b.cancelPolling = cancel

	workers := b.cfg.Workers
	if workers <= 0 {
		workers = 8
	}

	var wg sync.WaitGroup
	queue := make(chan tgbotapi.Update, 100)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case up := <-queue:
					if err := b.handleUpdate(ctx, up); err != nil {
						b.log.Error().Err(err).Msg("update handling failed")
					}
				}
			}
		}()
	}

	b.log.Info().Int("workers", workers).Msg("telegram polling started")
	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			wg.Wait()
			return ctx.Err()
		case up := <-updates:
			queue <- up
		}
	}
}

func (b *Bot) StopPolling() {
	if b.cancelPolling != nil {
		b.cancelPolling()
	}
}

func (b *Bot) isAdmin(tgID int64) bool {
	_, ok := b.adminIDs[tgID]
	return ok
}

func (b *Bot) handleUpdate(ctx context.Context, up tgbotapi.Update) error {
	switch {
	case up.CallbackQuery != nil:
		return b.handleCallback(ctx, up.CallbackQuery)
	case up.Message == nil || up.Message.From == nil:
		return nil
	case up.Message.IsCommand():
		return b.handleCommand(ctx, up.Message)
	case len(up.Message.Photo) > 0:
		return b.handlePhoto(ctx, up.Message)
	case up.Message.Text != "":
		return b.handleText(ctx, up.Message)
	}
	return nil
}

// handleText first offers the text to the pending-correction flow, then
// treats "TeamA vs TeamB" as an analysis request.
func (b *Bot) handleText(ctx context.Context, msg *tgbotapi.Message) error {
	tgID := msg.From.ID
	ctx = logging.WithTgID(ctx, tgID)

	out, handled, err := b.facade.HandleCorrectionReply(ctx, tgID, msg.Text)
	if err != nil {
		return b.sendError(ctx, msg.Chat.ID)
	}
	if handled {
		return b.sendOutcome(ctx, msg.Chat.ID, out)
	}

	home, away, ok := application.ParseMatchup(msg.Text)
	if !ok {
		return b.send(ctx, msg.Chat.ID, "Send a match screenshot, or type the pairing as: TeamA vs TeamB")
	}
	if allowed := b.allowAnalyze(ctx, tgID, msg.Chat.ID); !allowed {
		return nil
	}
	b.ensureAccount(ctx, msg)
	out, err = b.facade.HandleAnalyzeText(ctx, tgID, home, away)
	if err != nil {
		return b.sendError(ctx, msg.Chat.ID)
	}
	return b.sendOutcome(ctx, msg.Chat.ID, out)
}

func (b *Bot) handlePhoto(ctx context.Context, msg *tgbotapi.Message) error {
	tgID := msg.From.ID
	ctx = logging.WithTgID(ctx, tgID)

	if allowed := b.allowAnalyze(ctx, tgID, msg.Chat.ID); !allowed {
		return nil
	}
	b.ensureAccount(ctx, msg)

	// Largest size last.
	fileID := msg.Photo[len(msg.Photo)-1].FileID
	photo, err := b.downloadFile(ctx, fileID)
	if err != nil {
		b.log.Error().Err(err).Msg("photo download failed")
		return b.send(ctx, msg.Chat.ID, "I could not download that photo. Please resend it.")
	}

	_ = b.send(ctx, msg.Chat.ID, "Analyzing your screenshot, hold on...")
	out, err := b.facade.HandleAnalyzePhoto(ctx, tgID, photo)
	if err != nil {
		return b.sendError(ctx, msg.Chat.ID)
	}
	return b.sendOutcome(ctx, msg.Chat.ID, out)
}

// allowAnalyze applies the per-user analysis rate limit. A limiter outage
// fails open.
func (b *Bot) allowAnalyze(ctx context.Context, tgID, chatID int64) bool {
	if b.rateLimiter == nil {
		return true
	}
	ok, err := b.rateLimiter.Allow(ctx, red.UserCommandKey(tgID, "analyze"), analyzeRateLimit, analyzeRateWindow)
	if err != nil {
		b.log.Warn().Err(err).Msg("rate limiter unavailable")
		return true
	}
	if !ok {
		_ = b.send(ctx, chatID, "Too many requests. Give it a minute and try again.")
	}
	return ok
}

// ensureAccount registers first-contact users and refreshes display names.
func (b *Bot) ensureAccount(ctx context.Context, msg *tgbotapi.Message) {
	_, err := b.facade.AccountUC.GetOrCreate(ctx, msg.From.ID, usecase.ProfileHints{
		Username:  msg.From.UserName,
		FirstName: msg.From.FirstName,
		LastName:  msg.From.LastName,
	})
	if err != nil {
		b.log.Warn().Err(err).Int64("tg_id", msg.From.ID).Msg("account refresh failed")
	}
}

func (b *Bot) downloadFile(ctx context.Context, fileID string) ([]byte, error) {
	url, err := b.api.GetFileDirectURL(fileID)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("file download status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// --- outbound ---

func (b *Bot) send(ctx context.Context, chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) sendError(ctx context.Context, chatID int64) error {
	return b.send(ctx, chatID, "Something went wrong. Please try again.")
}

// sendOutcome attaches the follow-up action buttons when a report was
// produced.
func (b *Bot) sendOutcome(ctx context.Context, chatID int64, out *application.AnalyzeOutcome) error {
	if out == nil {
		return b.sendError(ctx, chatID)
	}
	msg := tgbotapi.NewMessage(chatID, out.Text)
	if out.ReportReady {
		msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("Details", "details"),
				tgbotapi.NewInlineKeyboardButtonData("Bets", "bets"),
			),
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("Wrong teams?", "correct"),
			),
		)
	}
	if out.Denied {
		msg.ReplyMarkup = buyKeyboard()
	}
	_, err := b.api.Send(msg)
	return err
}

func buyKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Buy credits", "show:buy"),
			tgbotapi.NewInlineKeyboardButtonData("Premium", "show:premium"),
		),
	)
}
