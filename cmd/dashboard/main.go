package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"tradedash/internal/config"
	"tradedash/internal/dashboard"
	"tradedash/internal/engine"
	"tradedash/internal/exchange/telemetry"
	"tradedash/internal/logger"
	"tradedash/internal/metrics"
	"tradedash/internal/normalize"
	"tradedash/internal/store"
)

func main() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logger.New(cfg.Runtime.Log.LoggerConfig())
	log.Info("Дашборд запускается.")

	m := metrics.New()
	normalizer := normalize.New(m)
	st := store.New(normalizer)
	client := telemetry.New(*cfg, normalizer, m, log)
	eng := engine.New(cfg, client, client, st, normalizer, m, log)

	srv, err := dashboard.New(dashboard.Options{
		Address:         cfg.Dashboard.Address,
		RefreshInterval: cfg.Dashboard.RefreshInterval,
		Metrics:         m.Handler(),
		Lookup:          client,
	}, st, eng, log)
	if err != nil {
		log.WithError(err).Fatal("Не удалось создать дашборд.")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(3)

	go func() {
		defer wg.Done()
		if err := srv.Run(ctx); err != nil {
			log.WithError(err).Fatal("Дашборд завершился с ошибкой.")
		}
	}()

	go func() {
		defer wg.Done()
		if _, err := eng.WaitHealthy(ctx); err != nil {
			log.WithError(err).Warn("Сервер не отвечает на проверку состояния.")
		}
		_ = eng.LoadInitialData(ctx)
	}()

	go func() {
		defer wg.Done()
		if err := eng.Run(ctx); err != nil {
			if ctx.Err() == nil {
				log.WithError(err).Error("Push-канал недоступен.")
			}
			return
		}
		log.Info("Push-канал закрыт.")
	}()

	<-sigCh
	cancel()
	wg.Wait()

	log.Info("Дашборд остановлен.")
}
