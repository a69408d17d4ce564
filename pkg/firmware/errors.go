package firmware

import "errors"

var (
	ErrMissingFile          = errors.New("firmware file is required")
	ErrMissingVersion       = errors.New("firmware version is required")
	ErrExtensionNotAllowed  = errors.New("firmware file extension not allowed")
	ErrFileTooLarge         = errors.New("firmware file exceeds maximum size")
	ErrBlobNotFound         = errors.New("firmware file not found")
	ErrMissingFirmwareID    = errors.New("firmware id is required")
	errDeviceNotFound       = errors.New("device not found")
	errFailedToCreateBlob   = errors.New("failed to create firmware file")
	errFailedToWriteBlob    = errors.New("failed to write firmware file")
	errFailedToCreateBlobFS = errors.New("failed to create firmware directory")
)
