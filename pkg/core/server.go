/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package core

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/sync/errgroup"

	"github.com/mfreeman451/firmwave/pkg/alerts"
	"github.com/mfreeman451/firmwave/pkg/api"
	"github.com/mfreeman451/firmwave/pkg/config"
	"github.com/mfreeman451/firmwave/pkg/db"
	"github.com/mfreeman451/firmwave/pkg/firmware"
	"github.com/mfreeman451/firmwave/pkg/httpx"
	"github.com/mfreeman451/firmwave/pkg/ingest"
	"github.com/mfreeman451/firmwave/pkg/liveness"
	"github.com/mfreeman451/firmwave/pkg/logger"
	"github.com/mfreeman451/firmwave/pkg/mqtt"
	"github.com/mfreeman451/firmwave/pkg/notify"
	"github.com/mfreeman451/firmwave/pkg/registry"
	"github.com/mfreeman451/firmwave/pkg/telemetry"
)

const (
	// RealtimePath is where dashboards open their WebSocket.
	RealtimePath = "/ws"

	realtimeReadHeaderTimeout = 10 * time.Second
	httpShutdownTimeout       = 5 * time.Second
)

// NewServer opens the database and builds every component from cfg.
// Nothing runs until Start.
func NewServer(ctx context.Context, cfg *config.Config, log logger.Logger) (*Server, error) {
	store, err := db.New(ctx, cfg.DBPath, log)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errOpenDatabase, err)
	}

	s := &Server{
		config: cfg,
		logger: log.WithComponent("core"),
		db:     store,
		hub:    notify.NewHub(log),
	}

	s.dispatcher = notify.NewDispatcher(notify.DefaultQueueSize, log, s.hub)

	if cfg.NATS.URL != "" {
		sink, err := notify.NewNATSSink(cfg.NATS.URL, cfg.NATS.SubjectPrefix, log)
		if err != nil {
			// Live events still reach WebSocket clients without the mirror.
			s.logger.Warn().Err(err).Str("url", cfg.NATS.URL).Msg("NATS mirror disabled")
		} else {
			s.natsSink = sink
			s.dispatcher.AddSink(sink)
		}
	}

	err = s.addWebhooks(log)
	if err == nil {
		err = s.build(log)
	}

	if err != nil {
		_ = store.Close()

		if s.natsSink != nil {
			_ = s.natsSink.Stop(ctx)
		}

		return nil, err
	}

	return s, nil
}

// addWebhooks registers one alert sink per enabled webhook.
func (s *Server) addWebhooks(log logger.Logger) error {
	for i := range s.config.Webhooks {
		hook := &s.config.Webhooks[i]
		if !hook.Enabled {
			continue
		}

		alerter, err := alerts.NewWebhookAlerter(hook, log)
		if err != nil {
			return fmt.Errorf("%w webhook %d: %w", errBuildComponent, i, err)
		}

		s.dispatcher.AddSink(alerter)
	}

	return nil
}

func (s *Server) build(log logger.Logger) error {
	cfg := s.config

	s.registry = registry.New(s.db, s.dispatcher, log)
	s.telemetry = telemetry.New(s.db, s.dispatcher, time.Duration(cfg.Retention), log)

	monitor, err := liveness.New(s.registry, time.Duration(cfg.OfflineThreshold), time.Duration(cfg.SweepInterval), log)
	if err != nil {
		return fmt.Errorf("%w liveness: %w", errBuildComponent, err)
	}

	s.liveness = monitor
	s.router = ingest.NewRouter(s.registry, s.telemetry, time.Duration(cfg.IngestTimeout), log)
	s.mqtt = mqtt.New(&cfg.MQTT, ingest.Topics, s.router, log)

	dist, err := firmware.New(&cfg.Firmware, time.Duration(cfg.MQTT.PublishTimeout), s.db, s.registry, s.mqtt, log)
	if err != nil {
		return fmt.Errorf("%w firmware: %w", errBuildComponent, err)
	}

	s.firmware = dist

	s.apiServer = api.NewAPIServer(log,
		api.WithRegistry(s.registry),
		api.WithTelemetry(s.telemetry),
		api.WithIngestor(s.router),
		api.WithFirmware(s.firmware),
		api.WithSweeper(s.liveness),
		api.WithHealthChecker(s.db),
		api.WithDebug(cfg.Debug),
		api.WithUploadLimit(cfg.Firmware.MaxSize),
	)

	s.realtime = &http.Server{
		Addr:              cfg.RealtimeAddr,
		Handler:           s.realtimeHandler(),
		ReadHeaderTimeout: realtimeReadHeaderTimeout,
	}

	return nil
}

func (s *Server) realtimeHandler() http.Handler {
	r := mux.NewRouter()
	r.Handle(RealtimePath, s.hub)
	r.Use(httpx.LoggingMiddleware(s.logger))

	return httpx.CommonMiddleware(r)
}

// components lists the background parts in start order.
func (s *Server) components() []component {
	return []component{s.hub, s.dispatcher, s.telemetry, s.liveness, s.mqtt}
}

// Start brings up the background components, then serves the API and the
// realtime endpoint until ctx ends or a listener fails.
func (s *Server) Start(ctx context.Context) error {
	for _, c := range s.components() {
		if err := c.Start(ctx); err != nil {
			return fmt.Errorf("%w: %w", errStartComponent, err)
		}
	}

	s.logger.Info().
		Str("api", s.config.ListenAddr).
		Str("realtime", s.config.RealtimeAddr).
		Dur("offline_threshold", s.liveness.Threshold()).
		Msg("Fleet backend running")

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return s.apiServer.Start(s.config.ListenAddr)
	})

	g.Go(func() error {
		s.logger.Info().Str("addr", s.realtime.Addr).Msg("Starting realtime server")

		if err := s.realtime.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("realtime server: %w", err)
		}

		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), httpShutdownTimeout)
		defer cancel()

		s.shutdownHTTP(shutdownCtx)

		return nil
	})

	return g.Wait()
}

// Stop shuts everything down in reverse dependency order and closes the
// database last.
func (s *Server) Stop(ctx context.Context) error {
	var errs []error

	// Inbound MQTT first so no new writes arrive while the rest drains.
	if err := s.mqtt.Stop(ctx); err != nil {
		errs = append(errs, err)
	}

	s.shutdownHTTP(ctx)

	for _, c := range []component{s.liveness, s.telemetry, s.dispatcher, s.hub} {
		if err := c.Stop(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	if s.natsSink != nil {
		if err := s.natsSink.Stop(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	if err := s.db.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close database: %w", err))
	}

	s.logger.Info().Msg("Fleet backend stopped")

	return errors.Join(errs...)
}

func (s *Server) shutdownHTTP(ctx context.Context) {
	if err := s.apiServer.Stop(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("API server shutdown")
	}

	if err := s.realtime.Shutdown(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("Realtime server shutdown")
	}
}

// Handler exposes the API router, mostly for tests.
func (s *Server) Handler() http.Handler {
	return s.apiServer
}

// RealtimeHandler exposes the WebSocket endpoint, mostly for tests.
func (s *Server) RealtimeHandler() http.Handler {
	return s.realtime.Handler
}
