package mqtt

import "errors"

var (
	ErrNotConnected    = errors.New("mqtt client is not connected")
	errConnectFailed   = errors.New("failed to connect to mqtt broker")
	errPublishFailed   = errors.New("failed to publish")
	errMarshalCommand  = errors.New("failed to marshal OTA command")
	errAlreadyStarted  = errors.New("mqtt client already started")
	errMessagePanicked = errors.New("message handler panicked")
)
