package models

// Real-time event names pushed to dashboard clients.
const (
	EventDeviceUpdate = "device-update"
	EventLogUpdate    = "log-update"
)

// Event is the envelope sent to real-time clients.
type Event struct {
	Name string      `json:"event"`
	Data interface{} `json:"data"`
}
