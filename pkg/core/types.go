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
	"net/http"

	"github.com/mfreeman451/firmwave/pkg/api"
	"github.com/mfreeman451/firmwave/pkg/config"
	"github.com/mfreeman451/firmwave/pkg/db"
	"github.com/mfreeman451/firmwave/pkg/firmware"
	"github.com/mfreeman451/firmwave/pkg/ingest"
	"github.com/mfreeman451/firmwave/pkg/liveness"
	"github.com/mfreeman451/firmwave/pkg/logger"
	"github.com/mfreeman451/firmwave/pkg/mqtt"
	"github.com/mfreeman451/firmwave/pkg/notify"
	"github.com/mfreeman451/firmwave/pkg/registry"
	"github.com/mfreeman451/firmwave/pkg/telemetry"
)

// Server owns every long-lived component of the fleet backend.
type Server struct {
	config *config.Config
	logger logger.Logger

	db         *db.DB
	dispatcher *notify.Dispatcher
	hub        *notify.Hub
	natsSink   *notify.NATSSink

	registry  *registry.Registry
	telemetry *telemetry.Store
	liveness  *liveness.Monitor
	router    *ingest.Router
	mqtt      *mqtt.Client
	firmware  *firmware.Distributor

	apiServer *api.APIServer
	realtime  *http.Server
}
