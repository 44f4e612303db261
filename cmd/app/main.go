package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"telegram-match-analysis/internal/application"
	"telegram-match-analysis/internal/config"
	"telegram-match-analysis/internal/infra/adapters/ai"
	"telegram-match-analysis/internal/infra/adapters/football"
	tele "telegram-match-analysis/internal/infra/adapters/telegram"
	"telegram-match-analysis/internal/infra/adapters/weather"
	pg "telegram-match-analysis/internal/infra/db/postgres"
	"telegram-match-analysis/internal/infra/logging"
	"telegram-match-analysis/internal/infra/metrics"
	"telegram-match-analysis/internal/infra/payment"
	red "telegram-match-analysis/internal/infra/redis"
	"telegram-match-analysis/internal/infra/web"
	"telegram-match-analysis/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs, relaxed checks)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	metrics.MustRegister()

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, cfg.Database.PoolSize)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres connect failed")
	}
	defer pool.Close()

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis connect failed")
	}
	cache := red.NewCache(redisClient, cfg.Redis.CacheTTL, logger)
	rateLimiter := red.NewRateLimiter(redisClient)
	states := red.NewStateRepo(redisClient)

	// ---- Repositories ----
	accountRepo := pg.NewAccountRepo(pool)
	messageRepo := pg.NewMessageRepo(pool)
	paymentRepo := pg.NewPaymentRepo(pool)
	settingsRepo := pg.NewSettingsRepo(pool)
	inviteRepo := pg.NewInviteRepo(pool)
	tm := pg.NewTxManager(pool)

	// ---- Adapters ----
	aiAdapter, err := ai.New(ctx, &cfg.AI, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("ai adapter init failed")
	}
	logger.Info().Str("provider", aiAdapter.Name()).Msg("ai adapter ready")

	footballClient := football.NewClient(&cfg.Providers, logger)
	weatherClient := weather.NewClient(&cfg.Providers, logger)
	gateway, err := payment.NewCheckoutGateway(&cfg.Payment)
	if err != nil {
		logger.Fatal().Err(err).Msg("payment gateway init failed")
	}

	// ---- Use cases ----
	accountUC := usecase.NewAccountUseCase(accountRepo, messageRepo, settingsRepo, tm, logger)
	paymentUC := usecase.NewPaymentUseCase(paymentRepo, accountRepo, settingsRepo, tm, gateway, cfg.Payment.WebhookSecret, logger)
	analysisUC := usecase.NewAnalysisUC(aiAdapter, footballClient, weatherClient, cache, logger)
	settingsUC := usecase.NewSettingsUseCase(settingsRepo, tm, logger)
	inviteUC := usecase.NewInviteUseCase(inviteRepo, accountRepo, tm, logger)
	statsUC := usecase.NewStatsUseCase(accountRepo, messageRepo, paymentRepo, logger)

	facade := application.NewBotFacade(accountUC, analysisUC, paymentUC, settingsUC, inviteUC, statsUC, states)

	// ---- Telegram ----
	bot, err := tele.NewBot(&cfg.Bot, facade, rateLimiter, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("telegram init failed")
	}
	go func() {
		if err := bot.StartPolling(ctx); err != nil && err != context.Canceled {
			logger.Error().Err(err).Msg("telegram polling stopped")
		}
	}()

	// ---- Web server (admin API, webhook, metrics) ----
	webServer := web.NewServer(accountUC, paymentUC, settingsUC, inviteUC, statsUC, &cfg.Web, logger)
	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Web.Port),
		Handler:      webServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	go func() {
		logger.Info().Str("addr", httpServer.Addr).Msg("http server listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("http server error")
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")

	bot.StopPolling()
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown error")
	}
}
