package models

import (
	"strings"
	"time"
)

// Well-known measurement types. The type column is open; these are only the
// ones the weather station reports.
const (
	MeasurementTemperature = "temperature"
	MeasurementHumidity    = "humidity"

	UnitCelsius = "°C"
	UnitPercent = "%"
)

// Measurement is one immutable scalar sensor reading.
type Measurement struct {
	ID        int64      `json:"id"`
	DeviceID  string     `json:"deviceId"`
	Type      string     `json:"type"`
	Value     float64    `json:"value"`
	Unit      string     `json:"unit,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
	Device    *DeviceRef `json:"device,omitempty"`
}

// Reading is a measurement before it is bound to a stored row.
type Reading struct {
	Type  string
	Value float64
	Unit  string
}

// MeasurementQuery filters measurement reads. Zero values mean "any".
type MeasurementQuery struct {
	DeviceID string
	Types    []string
	// Since drops readings taken before it.
	Since       time.Time
	OldestFirst bool
	Limit       int
}

// History windows accepted by period-based reads.
const (
	PeriodDay   = "day"
	PeriodWeek  = "week"
	PeriodMonth = "month"
)

// PeriodWindow returns how far back a named period reaches.
func PeriodWindow(period string) (time.Duration, bool) {
	switch strings.ToLower(strings.TrimSpace(period)) {
	case PeriodDay:
		return 24 * time.Hour, true
	case PeriodWeek:
		return 7 * 24 * time.Hour, true
	case PeriodMonth:
		return 30 * 24 * time.Hour, true
	default:
		return 0, false
	}
}

// LatestValue is the most recent reading of one type.
type LatestValue struct {
	Value     float64   `json:"value"`
	Unit      string    `json:"unit,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// MeasurementStats aggregates a window of readings of one type.
type MeasurementStats struct {
	Count  int          `json:"count"`
	Avg    float64      `json:"avg"`
	Min    float64      `json:"min"`
	Max    float64      `json:"max"`
	Latest *LatestValue `json:"latest"`
}

// WeatherValue is one reading within a grouped weather sample.
type WeatherValue struct {
	Value float64 `json:"value"`
	Unit  string  `json:"unit,omitempty"`
}

// WeatherSample groups the readings a station reported at one instant.
type WeatherSample struct {
	Device    DeviceRef               `json:"device"`
	Timestamp time.Time               `json:"timestamp"`
	Data      map[string]WeatherValue `json:"data"`
}

// DeviceRef is the slice of a device embedded in read responses.
type DeviceRef struct {
	MAC    string       `json:"mac"`
	Name   string       `json:"name"`
	Status DeviceStatus `json:"status"`
}

// LogLevel is the severity of a device debug log line.
type LogLevel string

const (
	LevelDebug   LogLevel = "DEBUG"
	LevelInfo    LogLevel = "INFO"
	LevelWarning LogLevel = "WARNING"
	LevelError   LogLevel = "ERROR"
)

// ParseLogLevel normalizes a device-supplied level, defaulting to INFO.
func ParseLogLevel(s string) LogLevel {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG", "TRACE":
		return LevelDebug
	case "WARN", "WARNING":
		return LevelWarning
	case "ERROR", "ERR", "FATAL":
		return LevelError
	default:
		return LevelInfo
	}
}

// DebugLog is one append-only log line reported by a device.
type DebugLog struct {
	ID        int64      `json:"id"`
	DeviceID  string     `json:"deviceId"`
	Level     LogLevel   `json:"level"`
	Message   string     `json:"message"`
	Timestamp time.Time  `json:"timestamp"`
	Device    *DeviceRef `json:"device,omitempty"`
}
