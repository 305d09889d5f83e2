// Command adminhttp runs the out-of-scope admin HTTP surface: login and a
// handful of route stubs behind the shared session key. It never touches
// the game pipeline; it's plumbing, not part of the core.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	api "citywords/internal/adminhttp"
	"citywords/internal/config"
	"citywords/lib/logger"
	"citywords/lib/sl"
)

func main() {
	configPath := flag.String("conf", "config.yml", "path to config file")
	logPath := flag.String("log", "/var/log/", "path to log file directory")
	flag.Parse()

	conf := config.MustLoad(*configPath)
	log := logger.SetupLogger(conf.Env, *logPath, "adminhttp")
	log.Info("starting admin http", slog.String("env", conf.Env))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer stop()

	server, err := api.New(conf, log)
	if err != nil {
		log.Error("starting admin http server", sl.Err(err))
		return
	}

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("shutting down admin http server", sl.Err(err))
	}
	log.Info("admin http shut down")
}
