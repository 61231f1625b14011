package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/KNICEX/oi-radar/internal/repo"
	"github.com/KNICEX/oi-radar/internal/schedule"
	"github.com/KNICEX/oi-radar/internal/service/broadcast"
	"github.com/KNICEX/oi-radar/internal/service/monitor"
	"github.com/KNICEX/oi-radar/internal/service/notification"
	"github.com/KNICEX/oi-radar/internal/service/radar"
	"github.com/KNICEX/oi-radar/ioc"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
)

func initViper() {
	// --config=./config/xxx.yaml
	file := pflag.String("config", "./config/config.dev.yaml", "specify config file")
	pflag.Parse()

	viper.SetConfigFile(*file)
	viper.SetEnvPrefix("OI_RADAR")
	viper.AutomaticEnv()
	err := viper.ReadInConfig()
	if err != nil {
		panic(fmt.Errorf("fatal error config file: %s \n", err))
	}
}

func main() {
	initViper()

	logHub := ioc.InitLogHub()
	logger := ioc.InitLogger(logHub)
	reg := ioc.InitRegistry()
	agg := ioc.InitAggregator(reg)

	storeCfg := ioc.InitStoreConfig()
	db := ioc.InitDB(storeCfg)
	alertRepo := ioc.InitAlertRepo(db, storeCfg)
	symbolRepo := repo.NewSymbolRepo(db)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hubCfg := ioc.InitHubConfig()
	hub := broadcast.NewHub[radar.Alert](hubCfg)
	recent, err := alertRepo.Recent(ctx, hubCfg.ReplaySize)
	if err != nil {
		panic(err)
	}
	hub.Seed(recent)
	agg.SetSubscriberSource(hub.Len)

	notifiers := []monitor.Notifier{hub}
	kafkaNotifier := ioc.InitKafkaNotifier()
	if kafkaNotifier != nil {
		defer kafkaNotifier.Close()
		notifiers = append(notifiers, kafkaNotifier)
	} else {
		notifiers = append(notifiers, notification.NewLogNotifier(logger.With().Str("sink", "log").Logger()))
	}

	radarCfg := ioc.InitRadarConfig()
	marketSvc, symbolSvc := ioc.InitExchange()
	radarMonitor := ioc.InitRadarMonitor(radarCfg, marketSvc, alertRepo, agg, logger, notifiers...)
	radarTask := ioc.InitRadarTask(radarCfg, radarMonitor, marketSvc, symbolSvc, symbolRepo, logger)
	retentionTask := schedule.NewRetentionTask(alertRepo, logger)

	webCfg := ioc.InitWebConfig()
	server := ioc.InitWebServer(webCfg, alertRepo, hub, logHub, agg, radarMonitor, symbolRepo, ioc.ConfigView{
		Radar: radarCfg,
		Store: storeCfg,
		Hub:   hubCfg,
		HTTP:  webCfg,
		Kafka: kafkaNotifier != nil,
	}, reg, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return radarTask.Run(gctx)
	})
	g.Go(func() error {
		schedule.Every(gctx, storeCfg.PruneInterval, retentionTask, logger)
		return nil
	})
	g.Go(func() error {
		return server.Run(gctx)
	})

	done := make(chan error, 1)
	go func() { done <- g.Wait() }()

	select {
	case err = <-done:
	case <-ctx.Done():
		logger.Info().Dur("grace", radarCfg.ShutdownGrace).Msg("shutting down")
		select {
		case err = <-done:
		case <-time.After(radarCfg.ShutdownGrace):
			err = errors.New("shutdown grace period exceeded")
		}
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Msg("oi radar stopped")
		os.Exit(1)
	}
	logger.Info().Msg("oi radar stopped")
}
