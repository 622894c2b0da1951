package main

import (
	"context"
	"flag"
	"os/signal"
	"sync"
	"syscall"

	"porchcam/camera"
	"porchcam/config"
	"porchcam/detection"
	"porchcam/notify"
	"porchcam/pkg/log"
	"porchcam/store"
)

var (
	configPath = flag.String("config", "config.yaml", "Path to the YAML configuration file")
	debugMode  = flag.Bool("debug", false, "Enable debug logging")
)

func main() {
	flag.Parse()

	logger := log.WithComponent("main")
	if *debugMode {
		log.SetDebug()
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.WithError(err).Fatal("configuration error")
	}

	alertStore, err := store.Open(cfg.Alerting.DatabasePath)
	if err != nil {
		logger.WithError(err).Fatal("opening alert store")
	}
	defer alertStore.Close()

	var handlers []notify.Handler
	if cfg.Alerting.Email.Enabled {
		handlers = append(handlers, notify.NewEmailHandler(cfg.Alerting.Email))
	}
	if len(handlers) == 0 {
		handlers = append(handlers, notify.NoOp{})
	}
	notifier := notify.NewManager(handlers...)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	for _, camCfg := range cfg.Cameras {
		inferencer, err := detection.NewYOLO(
			cfg.Detection.WeightsPath,
			cfg.Detection.ConfigPath,
			cfg.Detection.NamesPath,
			camCfg.ClassesToDetect,
			camCfg.ConfidenceThreshold,
		)
		if err != nil {
			logger.WithError(err).Fatalf("loading model for camera %s", camCfg.Name)
		}

		cam := camera.NewManager(camCfg.Name, camCfg.URL, cameraReconnectInterval)
		proc := NewProcessor(camCfg, cam, inferencer, notifier, alertStore)

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer inferencer.Close()
			proc.Run(ctx)
		}()
	}

	logger.Infof("monitoring %d cameras", len(cfg.Cameras))
	<-ctx.Done()
	logger.Info("shutdown requested, waiting for pipelines")
	wg.Wait()
}
