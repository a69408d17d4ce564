package api

import (
	"github.com/mfreeman451/firmwave/pkg/models"
)

// ErrorResponse is the body of every failed request. Details is only filled
// in debug mode.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

// DeviceEditRequest is the body of PUT /api/devices/{id}. Empty strings mean
// "leave unchanged".
type DeviceEditRequest struct {
	Name   *string `json:"name"`
	Status *string `json:"status"`
}

type WeatherDeviceRef struct {
	MAC    string              `json:"mac"`
	Name   string              `json:"name"`
	Status models.DeviceStatus `json:"status"`
}

type WeatherReading struct {
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
}

type WeatherReadings struct {
	Temperature *WeatherReading `json:"temperature"`
	Humidity    *WeatherReading `json:"humidity"`
}

// WeatherPostResponse answers POST /api/weather.
type WeatherPostResponse struct {
	Success           bool             `json:"success"`
	Device            WeatherDeviceRef `json:"device"`
	MeasurementsSaved int              `json:"measurementsSaved"`
	Data              WeatherReadings  `json:"data"`
}

type WeatherListResponse struct {
	Count int                    `json:"count"`
	Data  []models.WeatherSample `json:"data"`
}

type MeasurementsResponse struct {
	Count        int                                `json:"count"`
	Measurements []models.Measurement               `json:"measurements"`
	Statistics   map[string]models.MeasurementStats `json:"statistics"`
}

type MeasurementsPostResponse struct {
	Success      bool                 `json:"success"`
	Count        int                  `json:"count"`
	Measurements []models.Measurement `json:"measurements"`
}

// DeployRequest is the body of POST /api/firmware/deploy. DeviceID is the
// single-target form older dashboards send.
type DeployRequest struct {
	FirmwareID string   `json:"firmwareId"`
	DeviceIDs  []string `json:"deviceIds"`
	DeviceID   string   `json:"deviceId"`
}

type DeployResponse struct {
	Message string `json:"message"`
	*models.DeploymentResult
}

// ClearResponse reports a bulk delete.
type ClearResponse struct {
	Message string `json:"message"`
	Deleted int64  `json:"deleted"`
}

type HealthCounts struct {
	Devices      int `json:"devices"`
	Measurements int `json:"measurements"`
}

type DatabaseHealth struct {
	Connected   bool         `json:"connected"`
	CurrentTime string       `json:"currentTime"`
	Counts      HealthCounts `json:"counts"`
}

type HealthResponse struct {
	Success  bool           `json:"success"`
	Database DatabaseHealth `json:"database"`
	Error    string         `json:"error,omitempty"`
}
