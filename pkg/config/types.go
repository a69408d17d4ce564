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

package config

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mfreeman451/firmwave/pkg/logger"
)

type Duration time.Duration

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}

	switch value := v.(type) {
	case float64:
		// parse numeric as nanoseconds
		*d = Duration(time.Duration(value))
		return nil
	case string:
		dur, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("%w: %w", errInvalidDuration, err)
		}

		*d = Duration(dur)

		return nil
	default:
		return errInvalidDuration
	}
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// MQTTConfig configures the broker connection.
type MQTTConfig struct {
	BrokerURL            string   `json:"broker_url"`
	ClientID             string   `json:"client_id"`
	Username             string   `json:"username,omitempty"`
	Password             string   `json:"password,omitempty"`
	KeepAlive            Duration `json:"keepalive"`
	ConnectTimeout       Duration `json:"connect_timeout"`
	MaxReconnectInterval Duration `json:"max_reconnect_interval"`
	MaxReconnectLogs     int      `json:"max_reconnect_logs"`
	PublishTimeout       Duration `json:"publish_timeout"`
}

// FirmwareConfig configures artifact storage and distribution.
type FirmwareConfig struct {
	Dir               string   `json:"dir"`
	MaxSize           int64    `json:"max_size"`
	AllowedExtensions []string `json:"allowed_extensions"`
	PublicURL         string   `json:"public_url"`
	BroadcastAll      bool     `json:"broadcast_all"`
	DeployWorkers     int      `json:"deploy_workers"`
}

// NATSConfig enables the optional NATS mirror of real-time events.
type NATSConfig struct {
	URL           string `json:"url,omitempty"`
	SubjectPrefix string `json:"subject_prefix"`
}

// Webhook payload formats. An explicit template overrides the format.
const (
	WebhookFormatJSON    = "json"
	WebhookFormatDiscord = "discord"
)

// WebhookConfig configures one alert webhook fed by device state changes.
type WebhookConfig struct {
	Enabled  bool            `json:"enabled"`
	URL      string          `json:"url"`
	Format   string          `json:"format,omitempty"`
	Headers  []WebhookHeader `json:"headers,omitempty"`
	Template string          `json:"template,omitempty"` // Optional JSON template
	Cooldown Duration        `json:"cooldown,omitempty"`
}

type WebhookHeader struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Config is the complete firmwave server configuration.
type Config struct {
	ListenAddr       string          `json:"listen_addr"`
	RealtimeAddr     string          `json:"realtime_addr"`
	DBPath           string          `json:"db_path"`
	OfflineThreshold Duration        `json:"offline_threshold"`
	SweepInterval    Duration        `json:"sweep_interval"`
	IngestTimeout    Duration        `json:"ingest_timeout"`
	Retention        Duration        `json:"retention"`
	Debug            bool            `json:"debug"`
	MQTT             MQTTConfig      `json:"mqtt"`
	Firmware         FirmwareConfig  `json:"firmware"`
	NATS             NATSConfig      `json:"nats"`
	Webhooks         []WebhookConfig `json:"webhooks,omitempty"`
	Logging          logger.Config   `json:"logging"`
}

// Default returns a Config populated with production defaults.
func Default() *Config {
	return &Config{
		ListenAddr:       ":3000",
		RealtimeAddr:     ":3001",
		DBPath:           "firmwave.db",
		OfflineThreshold: Duration(2 * time.Minute),
		SweepInterval:    Duration(30 * time.Second),
		IngestTimeout:    Duration(5 * time.Second),
		MQTT: MQTTConfig{
			BrokerURL:            "tcp://localhost:1883",
			ClientID:             "firmwave-server",
			KeepAlive:            Duration(60 * time.Second),
			ConnectTimeout:       Duration(30 * time.Second),
			MaxReconnectInterval: Duration(time.Minute),
			MaxReconnectLogs:     10,
			PublishTimeout:       Duration(5 * time.Second),
		},
		Firmware: FirmwareConfig{
			Dir:               "firmware",
			MaxSize:           10485760,
			AllowedExtensions: []string{".bin", ".hex", ".elf"},
			PublicURL:         "http://localhost:3000",
			DeployWorkers:     4,
		},
		NATS: NATSConfig{
			SubjectPrefix: "firmwave",
		},
		Logging: logger.Config{
			Level: "info",
		},
	}
}

// Validate implements Validator.
func (c *Config) Validate() error {
	var problems []string

	if c.ListenAddr == "" {
		problems = append(problems, "listen_addr is required")
	}

	if c.RealtimeAddr == "" {
		problems = append(problems, "realtime_addr is required")
	}

	if c.DBPath == "" {
		problems = append(problems, "db_path is required")
	}

	if c.OfflineThreshold <= 0 {
		problems = append(problems, "offline_threshold must be positive")
	}

	if c.SweepInterval <= 0 {
		problems = append(problems, "sweep_interval must be positive")
	}

	if c.IngestTimeout <= 0 {
		problems = append(problems, "ingest_timeout must be positive")
	}

	if c.Retention < 0 {
		problems = append(problems, "retention must not be negative")
	}

	if c.MQTT.BrokerURL == "" {
		problems = append(problems, "mqtt.broker_url is required")
	}

	if c.MQTT.PublishTimeout <= 0 {
		problems = append(problems, "mqtt.publish_timeout must be positive")
	}

	if c.Firmware.Dir == "" {
		problems = append(problems, "firmware.dir is required")
	}

	if c.Firmware.MaxSize <= 0 {
		problems = append(problems, "firmware.max_size must be positive")
	}

	if c.Firmware.DeployWorkers <= 0 {
		problems = append(problems, "firmware.deploy_workers must be positive")
	}

	for i, hook := range c.Webhooks {
		if hook.Enabled && hook.URL == "" {
			problems = append(problems, fmt.Sprintf("webhooks[%d].url is required when enabled", i))
		}

		if hook.Cooldown < 0 {
			problems = append(problems, fmt.Sprintf("webhooks[%d].cooldown must not be negative", i))
		}

		switch hook.Format {
		case "", WebhookFormatJSON, WebhookFormatDiscord:
		default:
			problems = append(problems, fmt.Sprintf("webhooks[%d].format %q is not json or discord", i, hook.Format))
		}
	}

	for _, ext := range c.Firmware.AllowedExtensions {
		if !strings.HasPrefix(ext, ".") {
			problems = append(problems, fmt.Sprintf("firmware.allowed_extensions entry %q must start with a dot", ext))
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", errInvalidConfig, strings.Join(problems, "; "))
	}

	return nil
}
