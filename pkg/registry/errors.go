package registry

import "errors"

var (
	ErrInvalidMAC    = errors.New("mac address is required")
	ErrInvalidStatus = errors.New("invalid device status")
	ErrInvalidHealth = errors.New("invalid device health")
	ErrEmptyEdit     = errors.New("nothing to update")
	ErrEmptyName     = errors.New("device name must not be empty")
)
