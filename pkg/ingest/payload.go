package ingest

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Number is a JSON numeric field that devices send either as a number or as
// a numeric string. Anything else, including NaN and Inf, decodes as absent
// instead of failing the whole message.
type Number struct {
	Value float64
	Valid bool
}

func (n *Number) UnmarshalJSON(b []byte) error {
	*n = Number{}

	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}

	var raw string
	if b[0] == '"' {
		if err := json.Unmarshal(b, &raw); err != nil {
			return nil
		}
	} else {
		raw = string(b)
	}

	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}

	*n = Number{Value: v, Valid: true}

	return nil
}

func (n Number) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}

	return json.Marshal(n.Value)
}

// Float returns a pointer to the value, or nil when absent.
func (n Number) Float() *float64 {
	if !n.Valid {
		return nil
	}

	v := n.Value

	return &v
}

// Position is the optional station location some firmware reports. A
// coordinate outside its valid range is treated as absent.
type Position struct {
	Lat Number `json:"lat"`
	Lon Number `json:"lon"`
}

func (p Position) Latitude() *float64 {
	if p.Lat.Valid && (p.Lat.Value < -90 || p.Lat.Value > 90) {
		return nil
	}

	return p.Lat.Float()
}

func (p Position) Longitude() *float64 {
	if p.Lon.Valid && (p.Lon.Value < -180 || p.Lon.Value > 180) {
		return nil
	}

	return p.Lon.Float()
}

// StatusPayload is published on esp32/status.
type StatusPayload struct {
	MAC         string  `json:"mac"`
	Name        *string `json:"name"`
	Version     *string `json:"version"`
	Status      *string `json:"status"`
	Health      *string `json:"health"`
	Battery     Number  `json:"battery"`
	Temperature Number  `json:"temperature"`
}

// HeartbeatPayload is published on esp32/heartbeat.
type HeartbeatPayload struct {
	MAC     string  `json:"mac"`
	Version *string `json:"version"`
	Position
}

// SensorPayload is published on esp32/sensor and posted to /api/weather.
type SensorPayload struct {
	MAC         string  `json:"mac"`
	Name        *string `json:"name"`
	Version     *string `json:"version"`
	Temperature Number  `json:"temperature"`
	Humidity    Number  `json:"humidity"`
	Position
}

// MeasurementEntry is one item of a measurements batch.
type MeasurementEntry struct {
	Type  string `json:"type"`
	Value Number `json:"value"`
	Unit  string `json:"unit"`
}

// MeasurementsPayload is published on esp32/measurements and posted to
// /api/measurements.
type MeasurementsPayload struct {
	MAC          string             `json:"mac"`
	Measurements []MeasurementEntry `json:"measurements"`
}

// DebugPayload is published on esp32/debug.
type DebugPayload struct {
	MAC     string `json:"mac"`
	Level   string `json:"level"`
	Message string `json:"message"`
}

// RegisterPayload is posted to /api/devices.
type RegisterPayload struct {
	MAC     string  `json:"mac"`
	Name    *string `json:"name"`
	Version *string `json:"version"`
	Status  *string `json:"status"`
}
