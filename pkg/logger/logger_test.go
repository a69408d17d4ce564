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

package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		want    zerolog.Level
		wantErr bool
	}{
		{name: "debug flag wins", config: Config{Level: "error", Debug: true}, want: zerolog.DebugLevel},
		{name: "explicit level", config: Config{Level: "warn"}, want: zerolog.WarnLevel},
		{name: "default info", config: Config{}, want: zerolog.InfoLevel},
		{name: "bad level", config: Config{Level: "loud"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log, err := New(&tt.config)
			if tt.wantErr {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, log.GetLevel())
		})
	}
}

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer

	log := NewWriter(&buf, zerolog.InfoLevel).WithComponent("mqtt")
	log.Info().Str("topic", "esp32/status").Msg("subscribed")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))

	assert.Equal(t, "mqtt", line["component"])
	assert.Equal(t, "esp32/status", line["topic"])
	assert.Equal(t, "subscribed", line["message"])
}

func TestTestLoggerDiscards(t *testing.T) {
	log := NewTestLogger()

	assert.Equal(t, zerolog.Disabled, log.GetLevel())
	log.Error().Msg("never written")
}
