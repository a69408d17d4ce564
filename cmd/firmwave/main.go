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

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"

	"github.com/mfreeman451/firmwave/pkg/config"
	"github.com/mfreeman451/firmwave/pkg/core"
	"github.com/mfreeman451/firmwave/pkg/lifecycle"
	"github.com/mfreeman451/firmwave/pkg/logger"
)

var (
	errFailedToLoadConfig = errors.New("failed to load config")
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	configPath := flag.String("config", "", "Path to firmwave config file (optional)")
	flag.Parse()

	ctx := context.Background()

	// Step 1: defaults, optional file, then environment overrides
	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("%w: %w", errFailedToLoadConfig, err)
	}

	// Step 2: logger from the loaded config
	if cfg.Debug {
		cfg.Logging.Debug = true
	}

	mainLogger, err := logger.New(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	server, err := core.NewServer(ctx, cfg, mainLogger)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	return lifecycle.RunServer(ctx, &lifecycle.ServerOptions{
		ServiceName: "firmwave",
		Service:     server,
		Logger:      mainLogger,
	})
}
