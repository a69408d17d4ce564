package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// ApplyEnv overrides configuration from the process environment. Unset
// variables leave the loaded value untouched.
func (c *Config) ApplyEnv() error {
	setString(&c.ListenAddr, "LISTEN_ADDR")
	setString(&c.DBPath, "DB_PATH")
	setString(&c.MQTT.BrokerURL, "MQTT_BROKER_URL")
	setString(&c.MQTT.Username, "MQTT_USERNAME")
	setString(&c.MQTT.Password, "MQTT_PASSWORD")
	setString(&c.MQTT.ClientID, "MQTT_CLIENT_ID")
	setString(&c.Firmware.PublicURL, "PUBLIC_URL")
	setString(&c.Firmware.Dir, "FIRMWARE_DIR")
	setString(&c.NATS.URL, "NATS_URL")

	if port := os.Getenv("SOCKET_IO_PORT"); port != "" {
		if _, err := strconv.Atoi(port); err != nil {
			return fmt.Errorf("%w: SOCKET_IO_PORT=%q", errInvalidEnv, port)
		}

		c.RealtimeAddr = ":" + port
	}

	// REALTIME_ADDR is the full form and wins over the bare port.
	setString(&c.RealtimeAddr, "REALTIME_ADDR")

	if v := os.Getenv("OFFLINE_THRESHOLD"); v != "" {
		d, err := parseEnvDuration(v)
		if err != nil {
			return fmt.Errorf("%w: OFFLINE_THRESHOLD=%q: %w", errInvalidEnv, v, err)
		}

		c.OfflineThreshold = Duration(d)
	}

	if v := os.Getenv("MAX_FILE_SIZE"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%w: MAX_FILE_SIZE=%q: %w", errInvalidEnv, v, err)
		}

		c.Firmware.MaxSize = n
	}

	if v := os.Getenv("DEBUG"); v != "" {
		c.Debug = parseBool(v)
		c.Logging.Debug = c.Debug
	}

	setString(&c.Logging.Level, "LOG_LEVEL")

	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// parseEnvDuration accepts Go durations ("90s") or a bare number of
// milliseconds, the unit the device firmware tooling uses.
func parseEnvDuration(v string) (time.Duration, error) {
	if ms, err := strconv.ParseInt(v, 10, 64); err == nil {
		return time.Duration(ms) * time.Millisecond, nil
	}

	return time.ParseDuration(v)
}

func parseBool(v string) bool {
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
