package models

import "time"

// Firmware is an uploaded, immutable firmware artifact. Several artifacts
// may share a version string.
type Firmware struct {
	ID         string    `json:"id"`
	Filename   string    `json:"filename"`
	Version    string    `json:"version"`
	Size       int64     `json:"size"`
	Path       string    `json:"filePath"`
	URL        string    `json:"url"`
	UploadedAt time.Time `json:"uploadedAt"`
}

// OTACommand is the payload published to a device to start an update.
type OTACommand struct {
	URL       string `json:"url"`
	Version   string `json:"version"`
	Timestamp string `json:"timestamp"`
}

// DeployStatus is the outcome of a deployment to one device.
type DeployStatus string

const (
	DeploySent   DeployStatus = "sent"
	DeployFailed DeployStatus = "failed"
)

// DeviceDeployResult is the per-target entry of a deployment.
type DeviceDeployResult struct {
	DeviceID string       `json:"deviceId"`
	Status   DeployStatus `json:"status"`
	Error    string       `json:"error,omitempty"`
}

// DeploymentResult aggregates a multi-target deployment. Partial success is normal.
type DeploymentResult struct {
	FirmwareID string               `json:"firmwareId"`
	Filename   string               `json:"firmware"`
	Version    string               `json:"version"`
	URL        string               `json:"url"`
	Total      int                  `json:"total"`
	Sent       int                  `json:"sent"`
	Failed     int                  `json:"failed"`
	Results    []DeviceDeployResult `json:"results"`
}
