package ingest

import "context"

//go:generate mockgen -destination=mock_ingest.go -package=ingest github.com/mfreeman451/firmwave/pkg/ingest Handler

// Handler consumes raw messages from the broker.
type Handler interface {
	HandleMessage(ctx context.Context, topic string, payload []byte) error
}
