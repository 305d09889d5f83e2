// Command sender runs the Sender process: consumes outbound command
// events and executes the corresponding Telegram Bot API calls.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os/signal"
	"syscall"

	"citywords/internal/broker"
	"citywords/internal/config"
	"citywords/internal/sender"
	"citywords/internal/telegram"
	"citywords/lib/logger"
	"citywords/lib/sl"
)

func main() {
	configPath := flag.String("conf", "config.yml", "path to config file")
	logPath := flag.String("log", "/var/log/", "path to log file directory")
	flag.Parse()

	conf := config.MustLoad(*configPath)
	log := logger.SetupLogger(conf.Env, *logPath, "sender")
	log.Info("starting sender", slog.String("env", conf.Env))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer stop()

	tg, err := telegram.New(conf.BotToken)
	if err != nil {
		log.Error("creating telegram client", sl.Err(err))
		return
	}

	b, err := broker.Dial(ctx, conf.RabbitMQ.URL(), log)
	if err != nil {
		log.Error("dialing broker", sl.Err(err))
		return
	}
	defer b.Close()

	s := sender.New(tg, b, log)
	if err := b.Consume(ctx, broker.SenderQueue, s.Handle); err != nil && ctx.Err() == nil {
		log.Error("sender consumer stopped", sl.Err(err))
	}
	log.Info("sender shut down")
}
