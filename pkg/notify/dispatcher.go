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

package notify

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/mfreeman451/firmwave/pkg/logger"
	"github.com/mfreeman451/firmwave/pkg/models"
)

const (
	DefaultQueueSize = 256

	sinkTimeout      = 2 * time.Second
	dropWarnInterval = 10 * time.Second
)

// Dispatcher queues events from the mutation paths and delivers them to
// every sink from a single goroutine. A full queue drops the event.
type Dispatcher struct {
	queue   chan *models.Event
	sinks   []Sink
	logger  logger.Logger
	dropped atomic.Uint64
	warn    rate.Sometimes
	done    chan struct{}
	wg      sync.WaitGroup
	once    sync.Once
}

var _ Notifier = (*Dispatcher)(nil)

func NewDispatcher(queueSize int, log logger.Logger, sinks ...Sink) *Dispatcher {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}

	return &Dispatcher{
		queue:  make(chan *models.Event, queueSize),
		sinks:  sinks,
		logger: log.WithComponent("notify"),
		warn:   rate.Sometimes{First: 1, Interval: dropWarnInterval},
		done:   make(chan struct{}),
	}
}

// AddSink registers a sink. Only valid before Start.
func (d *Dispatcher) AddSink(s Sink) {
	d.sinks = append(d.sinks, s)
}

func (d *Dispatcher) Start(ctx context.Context) error {
	d.wg.Add(1)

	go d.run(ctx)

	return nil
}

// Stop halts delivery. Events still queued are discarded.
func (d *Dispatcher) Stop(context.Context) error {
	d.once.Do(func() { close(d.done) })
	d.wg.Wait()

	return nil
}

// Dropped reports how many events were discarded because the queue was full.
func (d *Dispatcher) Dropped() uint64 {
	return d.dropped.Load()
}

func (d *Dispatcher) DeviceUpdated(device *models.Device) {
	if device == nil {
		return
	}

	snapshot := *device

	d.enqueue(&models.Event{Name: models.EventDeviceUpdate, Data: &snapshot})
}

func (d *Dispatcher) LogAppended(entry *models.DebugLog) {
	if entry == nil {
		return
	}

	snapshot := *entry

	d.enqueue(&models.Event{Name: models.EventLogUpdate, Data: &snapshot})
}

func (d *Dispatcher) enqueue(event *models.Event) {
	select {
	case d.queue <- event:
	default:
		total := d.dropped.Add(1)

		d.warn.Do(func() {
			d.logger.Warn().
				Str("event", event.Name).
				Uint64("dropped_total", total).
				Msg("Notification queue full, dropping event")
		})
	}
}

func (d *Dispatcher) run(ctx context.Context) {
	defer d.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-d.done:
			return
		case event := <-d.queue:
			d.deliver(ctx, event)
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, event *models.Event) {
	for _, sink := range d.sinks {
		sinkCtx, cancel := context.WithTimeout(ctx, sinkTimeout)

		if err := sink.Publish(sinkCtx, event); err != nil {
			d.logger.Warn().
				Err(err).
				Str("sink", sink.Name()).
				Str("event", event.Name).
				Msg("Failed to deliver notification")
		}

		cancel()
	}
}
