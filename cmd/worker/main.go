// Command worker runs the Worker process: consumes poller and worker
// events, drives game state, and publishes outbound commands.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os/signal"
	"syscall"

	"citywords/entity"
	"citywords/internal/broker"
	"citywords/internal/citygame"
	"citywords/internal/config"
	"citywords/internal/dictionary"
	"citywords/internal/store"
	"citywords/internal/worker"
	"citywords/internal/wordsgame"
	"citywords/lib/logger"
	"citywords/lib/sl"
)

func main() {
	configPath := flag.String("conf", "config.yml", "path to config file")
	logPath := flag.String("log", "/var/log/", "path to log file directory")
	flag.Parse()

	conf := config.MustLoad(*configPath)
	log := logger.SetupLogger(conf.Env, *logPath, "worker")
	log.Info("starting worker", slog.String("env", conf.Env))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer stop()

	st, err := store.Open(ctx, conf.Postgres.DSN())
	if err != nil {
		log.Error("opening store", sl.Err(err))
		return
	}
	defer st.Close()

	settings := store.NewSettingsCache(st)
	defaults := entity.GameSettings{
		ResponseTimeSec: conf.GameDefaults.ResponseTimeSec,
		PollTimeSec:     conf.GameDefaults.PollTimeSec,
		Anonymous:       conf.GameDefaults.Anonymous,
		StartingLives:   conf.GameDefaults.StartingLives,
	}
	if err := settings.Load(ctx, defaults); err != nil {
		log.Error("loading game settings", sl.Err(err))
		return
	}

	b, err := broker.Dial(ctx, conf.RabbitMQ.URL(), log)
	if err != nil {
		log.Error("dialing broker", sl.Err(err))
		return
	}
	defer b.Close()

	dict := dictionary.NewClient(conf.YandexDictToken, log)
	cities := citygame.New(st, log)
	words := wordsgame.New(st, dict, log)
	w := worker.New(st, settings, b, cities, words, log)

	if err := b.Consume(ctx, broker.WorkerQueue, w.HandleWorkerQueue); err != nil && ctx.Err() == nil {
		log.Error("worker consumer stopped", sl.Err(err))
	}
	log.Info("worker shut down")
}
