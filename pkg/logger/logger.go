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

// Package logger provides JSON structured logging using zerolog
package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Config controls the process-wide logger.
// Debug forces debug level regardless of Level.
type Config struct {
	Level string `json:"level"`
	Debug bool   `json:"debug"`
}

type zerologLogger struct {
	zl zerolog.Logger
}

// New builds a Logger writing JSON lines to stdout.
func New(config *Config) (Logger, error) {
	level := zerolog.InfoLevel

	if config.Debug {
		level = zerolog.DebugLevel
	} else if config.Level != "" {
		var err error

		level, err = zerolog.ParseLevel(config.Level)
		if err != nil {
			return nil, err
		}
	}

	zerolog.TimeFieldFormat = time.RFC3339

	return NewWriter(os.Stdout, level), nil
}

// NewWriter builds a Logger writing to w at the given level. Used by tests
// that assert on log output.
func NewWriter(w io.Writer, level zerolog.Level) Logger {
	return &zerologLogger{zl: zerolog.New(w).Level(level).With().Timestamp().Logger()}
}

func (l *zerologLogger) Debug() *zerolog.Event { return l.zl.Debug() }
func (l *zerologLogger) Info() *zerolog.Event  { return l.zl.Info() }
func (l *zerologLogger) Warn() *zerolog.Event  { return l.zl.Warn() }
func (l *zerologLogger) Error() *zerolog.Event { return l.zl.Error() }

func (l *zerologLogger) WithComponent(component string) Logger {
	return &zerologLogger{zl: l.zl.With().Str("component", component).Logger()}
}

func (l *zerologLogger) GetLevel() zerolog.Level {
	return l.zl.GetLevel()
}

// NewTestLogger creates a no-op logger for testing that discards all output
func NewTestLogger() Logger {
	return &zerologLogger{zl: zerolog.New(io.Discard).Level(zerolog.Disabled)}
}
