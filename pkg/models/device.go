// Package models pkg/models/device.go
package models

import (
	"strings"
	"time"
)

// DeviceStatus is the lifecycle status of a device.
type DeviceStatus string

const (
	StatusOnline   DeviceStatus = "ONLINE"
	StatusOffline  DeviceStatus = "OFFLINE"
	StatusUpdating DeviceStatus = "UPDATING"
	StatusError    DeviceStatus = "ERROR"
)

// Valid reports whether s is one of the known statuses.
func (s DeviceStatus) Valid() bool {
	switch s {
	case StatusOnline, StatusOffline, StatusUpdating, StatusError:
		return true
	default:
		return false
	}
}

// ParseDeviceStatus normalizes a status string. ok is false for unknown values.
func ParseDeviceStatus(s string) (DeviceStatus, bool) {
	status := DeviceStatus(strings.ToUpper(strings.TrimSpace(s)))

	return status, status.Valid()
}

// Health is the coarse health indicator reported for a device.
type Health string

const (
	HealthHealthy  Health = "HEALTHY"
	HealthWarning  Health = "WARNING"
	HealthCritical Health = "CRITICAL"
	HealthUnknown  Health = "UNKNOWN"
)

func (h Health) Valid() bool {
	switch h {
	case HealthHealthy, HealthWarning, HealthCritical, HealthUnknown:
		return true
	default:
		return false
	}
}

// ParseHealth normalizes a health string. ok is false for unknown values.
func ParseHealth(s string) (Health, bool) {
	health := Health(strings.ToUpper(strings.TrimSpace(s)))

	return health, health.Valid()
}

// Device is one physical ESP32 unit, keyed by its normalized MAC address.
type Device struct {
	MAC       string       `json:"mac"`
	Name      string       `json:"name"`
	Version   string       `json:"version,omitempty"`
	Status    DeviceStatus `json:"status"`
	Health    Health       `json:"health"`
	Latitude  *float64     `json:"latitude"`
	Longitude *float64     `json:"longitude"`
	LastSeen  time.Time    `json:"lastSeen"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
}

// DeviceCounts holds the number of child rows owned by a device.
type DeviceCounts struct {
	DebugLogs    int `json:"debugLogs"`
	Measurements int `json:"measurements"`
}

// DeviceSummary is a device plus its child row counts, as listed on the dashboard.
type DeviceSummary struct {
	Device
	Count DeviceCounts `json:"_count"`
}

// DeviceDetail is a device with its most recent logs and measurements.
type DeviceDetail struct {
	Device
	DebugLogs    []DebugLog    `json:"debugLogs"`
	Measurements []Measurement `json:"measurements"`
}

// DeviceSignal is a liveness-bearing signal about a device. Nil pointer
// fields are left unchanged on an existing record.
type DeviceSignal struct {
	MAC     string
	Name    *string
	Version *string
	// Status defaults to ONLINE when nil.
	Status *DeviceStatus
	Health *Health
	// Station position in decimal degrees, kept when nil.
	Latitude  *float64
	Longitude *float64
	// DefaultName names a device created by this signal when Name is nil.
	DefaultName string
	SeenAt      time.Time
}

// DeviceEdit is an operator edit of a device. It does not refresh liveness.
type DeviceEdit struct {
	Name   *string
	Status *DeviceStatus
}

// FleetStatus is the per-status rollup of the device registry.
type FleetStatus struct {
	TotalDevices int       `json:"totalDevices"`
	Online       int       `json:"online"`
	Offline      int       `json:"offline"`
	Updating     int       `json:"updating"`
	Error        int       `json:"error"`
	LastUpdate   time.Time `json:"lastUpdate"`
}

// NormalizeMAC trims and upper-cases a hardware address.
func NormalizeMAC(mac string) string {
	return strings.ToUpper(strings.TrimSpace(mac))
}

const defaultNamePrefix = "ESP32_"

// DefaultDeviceName derives a display name from the last four hex digits of a MAC.
func DefaultDeviceName(mac string) string {
	return defaultNamePrefix + MACSuffix(mac)
}

// MACSuffix returns the last four hex digits of a MAC address.
func MACSuffix(mac string) string {
	hex := strings.NewReplacer(":", "", "-", "", ".", "").Replace(NormalizeMAC(mac))
	if len(hex) > 4 {
		hex = hex[len(hex)-4:]
	}

	return hex
}
