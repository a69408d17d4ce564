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

// Package monitoring pkg/monitoring/monitor.go
package monitoring

import (
	"context"
	"sync"
	"time"

	"github.com/mfreeman451/firmwave/pkg/logger"
)

// MonitorConfig holds configuration for monitoring.
type MonitorConfig struct {
	Name           string
	Interval       time.Duration
	AlertThreshold time.Duration
}

// Monitor runs a check on a fixed interval until stopped.
type Monitor struct {
	config MonitorConfig
	logger logger.Logger
	done   chan struct{}
	once   sync.Once
	wg     sync.WaitGroup
}

// NewMonitor creates a new monitoring system.
func NewMonitor(cfg MonitorConfig, log logger.Logger) *Monitor {
	return &Monitor{
		config: cfg,
		logger: log.WithComponent("monitor"),
		done:   make(chan struct{}),
	}
}

// Config returns the monitor's configuration.
func (m *Monitor) Config() MonitorConfig {
	return m.config
}

// Start runs StartMonitoring in a background goroutine.
func (m *Monitor) Start(ctx context.Context, check func(context.Context) error) {
	m.wg.Add(1)

	go func() {
		defer m.wg.Done()

		m.StartMonitoring(ctx, check)
	}()
}

// StartMonitoring blocks, running check immediately and then on every tick.
func (m *Monitor) StartMonitoring(ctx context.Context, check func(context.Context) error) {
	ticker := time.NewTicker(m.config.Interval)
	defer ticker.Stop()

	// Do initial check
	if err := check(ctx); err != nil {
		m.logger.Error().Err(err).Str("monitor", m.config.Name).Msg("Initial check failed")
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.done:
			return
		case <-ticker.C:
			if err := check(ctx); err != nil {
				m.logger.Error().Err(err).Str("monitor", m.config.Name).Msg("Check failed")
			}
		}
	}
}

// Stop stops the monitoring and waits for a running Start to return.
func (m *Monitor) Stop(_ context.Context) {
	m.once.Do(func() { close(m.done) })
	m.wg.Wait()
}
