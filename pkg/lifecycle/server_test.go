package lifecycle

import (
	"context"
	"errors"
	"os"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mfreeman451/firmwave/pkg/logger"
)

var errBoom = errors.New("boom")

type fakeService struct {
	startErr error
	stopErr  error
	block    bool
	stopped  atomic.Bool
}

func (f *fakeService) Start(ctx context.Context) error {
	if f.block {
		<-ctx.Done()
	}

	return f.startErr
}

func (f *fakeService) Stop(context.Context) error {
	f.stopped.Store(true)

	return f.stopErr
}

func TestRunServerStopsOnContextCancel(t *testing.T) {
	svc := &fakeService{block: true}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := RunServer(ctx, &ServerOptions{ServiceName: "test", Service: svc, Logger: logger.NewTestLogger()})
	require.NoError(t, err)
	assert.True(t, svc.stopped.Load())
}

func TestRunServerReportsStartError(t *testing.T) {
	svc := &fakeService{startErr: errBoom}

	err := RunServer(context.Background(), &ServerOptions{ServiceName: "test", Service: svc})
	require.ErrorIs(t, err, errBoom)
	assert.True(t, svc.stopped.Load())
}

func TestRunServerJoinsStopError(t *testing.T) {
	svc := &fakeService{startErr: errBoom, stopErr: context.DeadlineExceeded}

	err := RunServer(context.Background(), &ServerOptions{ServiceName: "test", Service: svc})
	require.ErrorIs(t, err, errBoom)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRunServerHandlesSignal(t *testing.T) {
	svc := &fakeService{block: true}

	go func() {
		time.Sleep(20 * time.Millisecond)

		_ = syscall.Kill(syscall.Getpid(), syscall.SIGUSR1)
	}()

	err := RunServer(context.Background(), &ServerOptions{
		ServiceName: "test",
		Service:     svc,
		Signals:     []os.Signal{syscall.SIGUSR1},
	})
	require.NoError(t, err)
	assert.True(t, svc.stopped.Load())
}

func TestRunServerRequiresService(t *testing.T) {
	require.ErrorIs(t, RunServer(context.Background(), &ServerOptions{}), errNilService)
}
