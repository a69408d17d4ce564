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

// Package notify fans device and log changes out to live subscribers.
package notify

import (
	"context"

	"github.com/mfreeman451/firmwave/pkg/models"
)

//go:generate mockgen -destination=mock_notify.go -package=notify github.com/mfreeman451/firmwave/pkg/notify Notifier,Sink

// Notifier is what mutating services call after a committed change. Calls
// must never block the caller.
type Notifier interface {
	DeviceUpdated(device *models.Device)
	LogAppended(entry *models.DebugLog)
}

// Sink delivers one event to a class of subscribers.
type Sink interface {
	Name() string
	Publish(ctx context.Context, event *models.Event) error
}
