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

// Package ingest turns device messages arriving over MQTT or HTTP into
// registry and telemetry operations.
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mfreeman451/firmwave/pkg/db"
	"github.com/mfreeman451/firmwave/pkg/logger"
	"github.com/mfreeman451/firmwave/pkg/models"
	"github.com/mfreeman451/firmwave/pkg/registry"
	"github.com/mfreeman451/firmwave/pkg/telemetry"
)

// Inbound MQTT topics.
const (
	TopicStatus       = "esp32/status"
	TopicHeartbeat    = "esp32/heartbeat"
	TopicDebug        = "esp32/debug"
	TopicMeasurements = "esp32/measurements"
	TopicSensor       = "esp32/sensor"
)

const (
	DefaultTimeout = 5 * time.Second

	weatherNamePrefix = "ESP32_Meteo_"
)

// Topics lists every topic the router handles.
var Topics = []string{TopicStatus, TopicHeartbeat, TopicDebug, TopicMeasurements, TopicSensor}

// Router dispatches device messages. It holds no per-device state; every
// message is applied to the registry and telemetry services in isolation.
type Router struct {
	registry  registry.Service
	telemetry telemetry.Service
	logger    logger.Logger
	timeout   time.Duration
	now       func() time.Time
}

var _ Handler = (*Router)(nil)

func NewRouter(reg registry.Service, tel telemetry.Service, timeout time.Duration, log logger.Logger) *Router {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Router{
		registry:  reg,
		telemetry: tel,
		logger:    log.WithComponent("ingest"),
		timeout:   timeout,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// HandleMessage applies one MQTT message. Failures are logged here and
// returned for callers that care; the message is never retried.
func (r *Router) HandleMessage(ctx context.Context, topic string, payload []byte) (err error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%w: %v", ErrHandlerPanic, rec)

			r.logger.Error().Str("topic", topic).Interface("panic", rec).Msg("Recovered from panic in message handler")
		}
	}()

	switch topic {
	case TopicStatus:
		err = r.handleStatus(ctx, payload)
	case TopicHeartbeat:
		err = r.handleHeartbeat(ctx, payload)
	case TopicSensor:
		err = r.handleSensor(ctx, payload)
	case TopicMeasurements:
		err = r.handleMeasurements(ctx, payload)
	case TopicDebug:
		err = r.handleDebug(ctx, payload)
	default:
		err = fmt.Errorf("%w: %s", ErrUnknownTopic, topic)
	}

	if err != nil {
		r.logFailure(topic, err)
	}

	return err
}

func (r *Router) logFailure(topic string, err error) {
	if isRejection(err) {
		r.logger.Warn().Err(err).Str("topic", topic).Msg("Dropped device message")

		return
	}

	r.logger.Error().Err(err).Str("topic", topic).Msg("Failed to process device message")
}

// isRejection reports whether err is caused by the message rather than by
// the store.
func isRejection(err error) bool {
	return errors.Is(err, ErrMissingMAC) ||
		errors.Is(err, ErrInvalidPayload) ||
		errors.Is(err, ErrNoReadings) ||
		errors.Is(err, ErrMissingMessage) ||
		errors.Is(err, ErrUnknownTopic) ||
		errors.Is(err, db.ErrDeviceNotFound) ||
		errors.Is(err, registry.ErrInvalidMAC)
}

func decode(payload []byte, v interface{}) error {
	if err := json.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}

	return nil
}

func (r *Router) handleStatus(ctx context.Context, payload []byte) error {
	var msg StatusPayload
	if err := decode(payload, &msg); err != nil {
		return err
	}

	mac := models.NormalizeMAC(msg.MAC)
	if mac == "" {
		return ErrMissingMAC
	}

	signal := &models.DeviceSignal{
		MAC:     mac,
		Name:    nonEmpty(msg.Name),
		Version: nonEmpty(msg.Version),
		SeenAt:  r.now(),
	}

	if msg.Status != nil {
		if status, ok := models.ParseDeviceStatus(*msg.Status); ok {
			signal.Status = &status
		} else {
			r.logger.Warn().Str("mac", mac).Str("status", *msg.Status).Msg("Ignoring unknown device status")
		}
	}

	health := CalculateHealth(msg.Battery, msg.Temperature)
	if msg.Health != nil {
		if reported, ok := models.ParseHealth(*msg.Health); ok {
			health = reported
		}
	}

	signal.Health = &health

	device, err := r.registry.Upsert(ctx, signal)
	if err != nil {
		return err
	}

	r.logger.Debug().Str("mac", device.MAC).Str("status", string(device.Status)).Msg("Device status updated")

	return nil
}

func (r *Router) handleHeartbeat(ctx context.Context, payload []byte) error {
	var msg HeartbeatPayload
	if err := decode(payload, &msg); err != nil {
		return err
	}

	mac := models.NormalizeMAC(msg.MAC)
	if mac == "" {
		return ErrMissingMAC
	}

	online := models.StatusOnline

	_, err := r.registry.Upsert(ctx, &models.DeviceSignal{
		MAC:       mac,
		Version:   nonEmpty(msg.Version),
		Status:    &online,
		Latitude:  msg.Latitude(),
		Longitude: msg.Longitude(),
		SeenAt:    r.now(),
	})

	return err
}

func (r *Router) handleSensor(ctx context.Context, payload []byte) error {
	var msg SensorPayload
	if err := decode(payload, &msg); err != nil {
		return err
	}

	_, _, err := r.recordSensor(ctx, &msg, "")

	return err
}

func (r *Router) handleMeasurements(ctx context.Context, payload []byte) error {
	var msg MeasurementsPayload
	if err := decode(payload, &msg); err != nil {
		return err
	}

	_, err := r.RecordMeasurements(ctx, &msg)

	return err
}

func (r *Router) handleDebug(ctx context.Context, payload []byte) error {
	var msg DebugPayload
	if err := decode(payload, &msg); err != nil {
		return err
	}

	mac := models.NormalizeMAC(msg.MAC)
	if mac == "" {
		return ErrMissingMAC
	}

	if msg.Message == "" {
		return ErrMissingMessage
	}

	now := r.now()

	if _, err := r.registry.Touch(ctx, mac, now); err != nil {
		return err
	}

	_, err := r.telemetry.AppendLog(ctx, mac, models.ParseLogLevel(msg.Level), msg.Message, now)

	return err
}

// RegisterDevice creates or refreshes a device from an explicit
// registration request.
func (r *Router) RegisterDevice(ctx context.Context, req *RegisterPayload) (*models.Device, error) {
	mac := models.NormalizeMAC(req.MAC)
	if mac == "" {
		return nil, ErrMissingMAC
	}

	signal := &models.DeviceSignal{
		MAC:     mac,
		Name:    nonEmpty(req.Name),
		Version: nonEmpty(req.Version),
		SeenAt:  r.now(),
	}

	if req.Status != nil {
		status, ok := models.ParseDeviceStatus(*req.Status)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, *req.Status)
		}

		signal.Status = &status
	}

	return r.registry.Upsert(ctx, signal)
}

// WeatherResult is what a weather station submission produced.
type WeatherResult struct {
	Device       *models.Device
	Measurements []models.Measurement
}

// RecordWeather stores a weather station reading submitted over HTTP. At
// least one of temperature and humidity must be a valid number.
func (r *Router) RecordWeather(ctx context.Context, req *SensorPayload) (*WeatherResult, error) {
	if models.NormalizeMAC(req.MAC) == "" {
		return nil, ErrMissingMAC
	}

	if !req.Temperature.Valid && !req.Humidity.Valid {
		return nil, fmt.Errorf("%w: temperature or humidity", ErrNoReadings)
	}

	mac := models.NormalizeMAC(req.MAC)

	device, measurements, err := r.recordSensor(ctx, req, weatherNamePrefix+models.MACSuffix(mac))
	if err != nil {
		return nil, err
	}

	return &WeatherResult{Device: device, Measurements: measurements}, nil
}

func (r *Router) recordSensor(
	ctx context.Context, msg *SensorPayload, defaultName string) (*models.Device, []models.Measurement, error) {
	mac := models.NormalizeMAC(msg.MAC)
	if mac == "" {
		return nil, nil, ErrMissingMAC
	}

	now := r.now()
	online := models.StatusOnline
	healthy := models.HealthHealthy

	device, err := r.registry.Upsert(ctx, &models.DeviceSignal{
		MAC:         mac,
		Name:        nonEmpty(msg.Name),
		Version:     nonEmpty(msg.Version),
		Status:      &online,
		Health:      &healthy,
		Latitude:    msg.Latitude(),
		Longitude:   msg.Longitude(),
		DefaultName: defaultName,
		SeenAt:      now,
	})
	if err != nil {
		return nil, nil, err
	}

	readings := sensorReadings(msg)
	if len(readings) == 0 {
		return device, nil, nil
	}

	measurements, err := r.telemetry.AppendMeasurements(ctx, mac, readings, now)
	if err != nil {
		return device, nil, err
	}

	return device, measurements, nil
}

func sensorReadings(msg *SensorPayload) []models.Reading {
	readings := make([]models.Reading, 0, 2)

	if msg.Temperature.Valid {
		readings = append(readings, models.Reading{
			Type: models.MeasurementTemperature, Value: msg.Temperature.Value, Unit: models.UnitCelsius,
		})
	}

	if msg.Humidity.Valid {
		readings = append(readings, models.Reading{
			Type: models.MeasurementHumidity, Value: msg.Humidity.Value, Unit: models.UnitPercent,
		})
	}

	return readings
}

// RecordMeasurements appends a batch of generic readings for a device that
// is already registered. Entries without a type or a finite value are
// skipped individually.
func (r *Router) RecordMeasurements(ctx context.Context, req *MeasurementsPayload) ([]models.Measurement, error) {
	mac := models.NormalizeMAC(req.MAC)
	if mac == "" {
		return nil, ErrMissingMAC
	}

	readings := make([]models.Reading, 0, len(req.Measurements))

	for i := range req.Measurements {
		entry := &req.Measurements[i]

		kind := strings.TrimSpace(entry.Type)
		if kind == "" || !entry.Value.Valid {
			r.logger.Debug().Str("mac", mac).Int("index", i).Msg("Skipping invalid measurement entry")

			continue
		}

		readings = append(readings, models.Reading{Type: kind, Value: entry.Value.Value, Unit: entry.Unit})
	}

	if len(readings) == 0 {
		return nil, ErrNoReadings
	}

	now := r.now()

	if _, err := r.registry.Touch(ctx, mac, now); err != nil {
		return nil, err
	}

	return r.telemetry.AppendMeasurements(ctx, mac, readings, now)
}

func nonEmpty(s *string) *string {
	if s == nil {
		return nil
	}

	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}

	return &trimmed
}
