package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jkleinau/VRP/internal/api"
	"github.com/jkleinau/VRP/internal/config"
	"github.com/jkleinau/VRP/internal/metrics"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.FromEnv()
	if err != nil {
		log.WithError(err).Fatal("failed to load config")
	}
	metrics.RegisterDefault()

	srvDeps, err := api.NewServer(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("failed to init server")
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           srvDeps.Middleware(srvDeps.Routes()),
		ReadHeaderTimeout: 5 * time.Second,
	}

	// Start webhook worker
	if len(cfg.Webhooks.Subscriptions) > 0 {
		srvDeps.NewWebhookWorker().Start()
	}

	log.WithField("addr", srv.Addr).Info("API listening")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.WithError(err).Fatal("server error")
	}
}
