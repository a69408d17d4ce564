/*-
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

// Package liveness marks devices OFFLINE once they have been silent longer
// than the configured threshold.
package liveness

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mfreeman451/firmwave/pkg/logger"
	"github.com/mfreeman451/firmwave/pkg/models"
	"github.com/mfreeman451/firmwave/pkg/monitoring"
)

var errInvalidThreshold = errors.New("offline threshold must be positive")

// Marker is the slice of the registry the monitor needs.
type Marker interface {
	MarkStaleOffline(ctx context.Context, cutoff time.Time) ([]models.Device, error)
}

// Monitor sweeps the registry on an interval and on demand.
type Monitor struct {
	registry Marker
	monitor  *monitoring.Monitor
	logger   logger.Logger
	now      func() time.Time
}

func New(registry Marker, threshold, interval time.Duration, log logger.Logger) (*Monitor, error) {
	if threshold <= 0 {
		return nil, errInvalidThreshold
	}

	return &Monitor{
		registry: registry,
		monitor: monitoring.NewMonitor(monitoring.MonitorConfig{
			Name:           "liveness",
			Interval:       interval,
			AlertThreshold: threshold,
		}, log),
		logger: log.WithComponent("liveness"),
		now:    func() time.Time { return time.Now().UTC() },
	}, nil
}

// Threshold is the silence after which a device is presumed offline.
func (m *Monitor) Threshold() time.Duration {
	return m.monitor.Config().AlertThreshold
}

// Sweep marks every device silent for longer than the threshold OFFLINE and
// returns how many changed. Safe to call concurrently with ingest.
func (m *Monitor) Sweep(ctx context.Context) (int, error) {
	cutoff := m.now().Add(-m.Threshold())

	changed, err := m.registry.MarkStaleOffline(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("liveness sweep: %w", err)
	}

	if len(changed) > 0 {
		m.logger.Info().
			Int("devices", len(changed)).
			Dur("threshold", m.Threshold()).
			Msg("Marked silent devices offline")
	}

	return len(changed), nil
}

func (m *Monitor) Start(ctx context.Context) error {
	m.monitor.Start(ctx, func(ctx context.Context) error {
		_, err := m.Sweep(ctx)

		return err
	})

	return nil
}

func (m *Monitor) Stop(ctx context.Context) error {
	m.monitor.Stop(ctx)

	return nil
}
