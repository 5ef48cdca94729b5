package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kakamigomarket/bot-scan/config"
	"github.com/kakamigomarket/bot-scan/internal/api"
	"github.com/kakamigomarket/bot-scan/internal/binance"
	"github.com/kakamigomarket/bot-scan/internal/logging"
	"github.com/kakamigomarket/bot-scan/internal/regime"
	"github.com/kakamigomarket/bot-scan/internal/scanner"
	"github.com/kakamigomarket/bot-scan/internal/strategy"
	"github.com/kakamigomarket/bot-scan/internal/telegram"
)

const miniTickerStreamURL = "wss://stream.binance.com:9443/ws/!miniTicker@arr"

func main() {
	cfg := config.Load()
	log := logging.New(cfg.LogLevel, cfg.Production)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := binance.NewClient(cfg.BinanceBaseURL, log)
	gateway := binance.NewGateway(client, cfg.HTTPConcurrency, log)
	classifier := regime.NewClassifier(gateway, cfg.ReferenceSymbol, log)

	cooldown := scanner.NewCooldownStore(time.Duration(cfg.CooldownMinutes)*time.Minute, log)
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unreachable, cooldowns stay in-process only")
		} else {
			cooldown.AttachRedis(rdb)
			log.Info().Str("addr", cfg.RedisAddr).Msg("cooldown redis mirror enabled")
		}
	}

	evaluator := strategy.NewEvaluator(strategy.DefaultWeights, strategy.FeeModel{RoundTripPct: cfg.FeeRoundTripPct}, log)
	engine := scanner.New(gateway, classifier, cooldown, evaluator, scanner.Config{
		Workers:     cfg.AnalysisConcurrency,
		MaxSignals:  cfg.MaxSignals,
		CandleLimit: cfg.CandleLimit,
		Exclude:     cfg.ExcludeSymbols,
	}, log)

	go gateway.RunSweeper(ctx, time.Minute)

	if cfg.EnableWSWarmer {
		stream := binance.NewTickerStream(miniTickerStreamURL, gateway, log)
		go stream.Run(ctx)
	}

	server := api.NewServer(fmt.Sprintf(":%d", cfg.HTTPPort), engine, cfg.Production, log)
	go func() {
		if err := server.Run(ctx); err != nil {
			log.Error().Err(err).Msg("api server stopped")
		}
	}()

	if cfg.ScanIntervalMinutes > 0 {
		kind, kindErr := strategy.ParseKind(cfg.ScheduledStrategy)
		mode, modeErr := strategy.ParseMode(cfg.ScheduledMode)
		if kindErr != nil || modeErr != nil {
			log.Error().AnErr("strategy", kindErr).AnErr("mode", modeErr).Msg("scheduled scan misconfigured, skipping")
		} else {
			interval := time.Duration(cfg.ScanIntervalMinutes) * time.Minute
			log.Info().Dur("interval", interval).Str("strategy", kind.String()).
				Str("mode", mode.Name).Msg("scheduled scans enabled")
			go engine.RunScheduled(ctx, interval, kind, mode, nil)
		}
	}

	if cfg.BotToken != "" {
		bot := telegram.New(cfg.BotToken, cfg.AllowedIDs, engine, log)
		bot.Run(ctx)
	} else {
		log.Warn().Msg("BOT_TOKEN not set, telegram delivery disabled")
		<-ctx.Done()
	}

	log.Info().Msg("shutting down")
}
