package notify

import "errors"

var (
	errMarshalEvent  = errors.New("failed to marshal event")
	errNATSConnect   = errors.New("failed to connect to NATS")
	errNATSPublish   = errors.New("failed to publish to NATS")
	errUnknownEvent  = errors.New("unknown event")
	errHubNotRunning = errors.New("hub is not running")
)
