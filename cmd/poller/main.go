// Command poller runs the Poller process: long-polls Telegram and
// republishes updates onto the broker.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os/signal"
	"syscall"

	"citywords/internal/broker"
	"citywords/internal/config"
	"citywords/internal/poller"
	"citywords/internal/telegram"
	"citywords/lib/logger"
	"citywords/lib/sl"
)

func main() {
	configPath := flag.String("conf", "config.yml", "path to config file")
	logPath := flag.String("log", "/var/log/", "path to log file directory")
	flag.Parse()

	conf := config.MustLoad(*configPath)
	log := logger.SetupLogger(conf.Env, *logPath, "poller")
	log.Info("starting poller", slog.String("env", conf.Env))

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

	p := poller.New(tg, b, log)
	if err := p.Run(ctx); err != nil && ctx.Err() == nil {
		log.Error("poller stopped", sl.Err(err))
	}
	log.Info("poller shut down")
}
