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

// Package api provides the HTTP API server for firmwave
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/mfreeman451/firmwave/pkg/firmware"
	"github.com/mfreeman451/firmwave/pkg/httpx"
	"github.com/mfreeman451/firmwave/pkg/logger"
	"github.com/mfreeman451/firmwave/pkg/registry"
	"github.com/mfreeman451/firmwave/pkg/telemetry"
)

const (
	defaultReadTimeout  = 60 * time.Second
	defaultWriteTimeout = 30 * time.Second
	defaultIdleTimeout  = 60 * time.Second

	defaultUploadLimit = 10 << 20
	multipartOverhead  = 1 << 20
	multipartMemory    = 1 << 20

	deviceDetailLogs         = 100
	deviceDetailMeasurements = 50
)

// APIServer serves the dashboard and device HTTP surface.
type APIServer struct {
	router      *mux.Router
	handler     http.Handler
	logger      logger.Logger
	registry    registry.Service
	telemetry   telemetry.Service
	ingest      Ingestor
	firmware    firmware.Service
	sweeper     Sweeper
	health      HealthChecker
	debug       bool
	uploadLimit int64
	now         func() time.Time
	srv         *http.Server
}

// NewAPIServer creates a new API server instance with the given options.
func NewAPIServer(log logger.Logger, options ...func(server *APIServer)) *APIServer {
	s := &APIServer{
		router:      mux.NewRouter(),
		logger:      log.WithComponent("api"),
		uploadLimit: defaultUploadLimit,
		now:         func() time.Time { return time.Now().UTC() },
	}

	for _, o := range options {
		o(s)
	}

	s.setupRoutes()
	s.handler = httpx.CommonMiddleware(s.router)
	s.srv = &http.Server{
		Handler:      s.handler,
		ReadTimeout:  defaultReadTimeout,
		WriteTimeout: defaultWriteTimeout,
		IdleTimeout:  defaultIdleTimeout,
	}

	return s
}

// WithRegistry sets the device registry.
func WithRegistry(r registry.Service) func(*APIServer) {
	return func(server *APIServer) {
		server.registry = r
	}
}

// WithTelemetry sets the measurement and log store.
func WithTelemetry(t telemetry.Service) func(*APIServer) {
	return func(server *APIServer) {
		server.telemetry = t
	}
}

// WithIngestor sets the handler for device signals posted over HTTP.
func WithIngestor(i Ingestor) func(*APIServer) {
	return func(server *APIServer) {
		server.ingest = i
	}
}

// WithFirmware sets the firmware distributor.
func WithFirmware(f firmware.Service) func(*APIServer) {
	return func(server *APIServer) {
		server.firmware = f
	}
}

// WithSweeper sets the liveness check run before devices are listed.
func WithSweeper(sw Sweeper) func(*APIServer) {
	return func(server *APIServer) {
		server.sweeper = sw
	}
}

func WithHealthChecker(h HealthChecker) func(*APIServer) {
	return func(server *APIServer) {
		server.health = h
	}
}

// WithDebug adds error details to failed responses.
func WithDebug(debug bool) func(*APIServer) {
	return func(server *APIServer) {
		server.debug = debug
	}
}

// WithUploadLimit sets the maximum firmware size accepted by the upload
// route.
func WithUploadLimit(limit int64) func(*APIServer) {
	return func(server *APIServer) {
		if limit > 0 {
			server.uploadLimit = limit
		}
	}
}

// setupRoutes registers the API. CORS wraps the router itself so preflight
// requests are answered before route matching.
func (s *APIServer) setupRoutes() {
	s.router.Use(httpx.LoggingMiddleware(s.logger))

	r := s.router.PathPrefix("/api").Subrouter()

	r.HandleFunc("/devices", s.getDevices).Methods(http.MethodGet)
	r.HandleFunc("/devices", s.registerDevice).Methods(http.MethodPost)
	r.HandleFunc("/devices/{id}", s.getDevice).Methods(http.MethodGet)
	r.HandleFunc("/devices/{id}", s.updateDevice).Methods(http.MethodPut)
	r.HandleFunc("/devices/{id}", s.deleteDevice).Methods(http.MethodDelete)

	r.HandleFunc("/weather", s.postWeather).Methods(http.MethodPost)
	r.HandleFunc("/weather", s.getWeather).Methods(http.MethodGet)
	r.HandleFunc("/measurements", s.getMeasurements).Methods(http.MethodGet)
	r.HandleFunc("/measurements", s.postMeasurements).Methods(http.MethodPost)
	r.HandleFunc("/measurements", s.clearMeasurements).Methods(http.MethodDelete)

	r.HandleFunc("/firmware", s.listFirmware).Methods(http.MethodGet)
	r.HandleFunc("/firmware/upload", s.uploadFirmware).Methods(http.MethodPost)
	r.HandleFunc("/firmware/upload", s.listFirmware).Methods(http.MethodGet)
	r.HandleFunc("/firmware/deploy", s.deployFirmware).Methods(http.MethodPost)

	r.HandleFunc("/logs", s.getLogs).Methods(http.MethodGet)
	r.HandleFunc("/logs", s.clearLogs).Methods(http.MethodDelete)

	r.HandleFunc("/status", s.getStatus).Methods(http.MethodGet)
	r.HandleFunc("/health", s.getHealth).Methods(http.MethodGet)

	s.router.HandleFunc(firmware.FilesPath+"{name}", s.serveFirmwareFile).Methods(http.MethodGet, http.MethodHead)
}

func (s *APIServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Start serves on addr until Stop is called. It returns at once when Stop
// already ran.
func (s *APIServer) Start(addr string) error {
	s.logger.Info().Str("addr", addr).Msg("Starting API server")

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("api server: %w", err)
	}

	if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("api server: %w", err)
	}

	return nil
}

// Stop gracefully shuts the server down. A later Start returns without
// serving.
func (s *APIServer) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *APIServer) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error().Err(err).Msg("Error encoding response")
	}
}

// writeError sends err with the status it maps to. Client errors carry
// their own message, server errors the fallback. The cause goes in details
// when debug is on.
func (s *APIServer) writeError(w http.ResponseWriter, err error, fallback string) {
	status := statusFor(err)

	resp := ErrorResponse{Error: fallback}

	if status < http.StatusInternalServerError {
		resp.Error = err.Error()
	} else {
		s.logger.Error().Err(err).Msg(fallback)
	}

	if s.debug {
		resp.Details = err.Error()
	}

	s.writeJSON(w, status, resp)
}

func (*APIServer) decodeJSON(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("%w: %w", errInvalidJSON, err)
	}

	return nil
}

// queryLimit parses the optional limit parameter; zero means "default".
func queryLimit(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, nil
	}

	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		return 0, fmt.Errorf("%w: %q", errInvalidLimit, raw)
	}

	return limit, nil
}
