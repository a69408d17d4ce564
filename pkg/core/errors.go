package core

import "errors"

var (
	errOpenDatabase   = errors.New("failed to open database")
	errBuildComponent = errors.New("failed to build component")
	errStartComponent = errors.New("failed to start component")
)
