package rpc

import (
	"context"
	"errors"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/knowable-run/namwallet/client/rpc/mocksrv"
)

func TestClient_CallContext(t *testing.T) {
	service := &mockService{epoch: 1337}
	client := startServerAndClient(t, service, WithRetryTime(time.Millisecond))

	t.Run("ok", func(t *testing.T) {
		var res uint64
		require.NoError(t, client.CallContext(context.Background(), &res, "test_epoch"))
		require.EqualValues(t, 1337, res)
	})

	t.Run("server error is not retried", func(t *testing.T) {
		service.err = errors.New("some error")
		defer func() { service.err = nil }()
		calls := service.calls.Load()

		var res uint64
		require.ErrorContains(t, client.CallContext(context.Background(), &res, "test_epoch"), "some error")
		require.EqualValues(t, calls+1, service.calls.Load())
	})

	t.Run("call once", func(t *testing.T) {
		calls := service.calls.Load()
		var res uint64
		require.NoError(t, client.CallOnce(context.Background(), &res, "test_epoch"))
		require.EqualValues(t, calls+1, service.calls.Load())
	})
}

func TestClient_RequestTimeout(t *testing.T) {
	service := &mockService{delay: 500 * time.Millisecond}
	client := startServerAndClient(t, service, WithRequestTimeout(50*time.Millisecond), WithRetryCount(0))

	start := time.Now()
	var res uint64
	require.Error(t, client.CallContext(context.Background(), &res, "test_epoch"))
	require.Less(t, time.Since(start), 400*time.Millisecond)
}

func TestClient_RetryOnTransportError(t *testing.T) {
	// reserve a port and close it so that nothing listens there
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := listener.Addr().String()
	require.NoError(t, listener.Close())

	client, err := NewClient(context.Background(), "http://"+addr, WithRetryCount(2), WithRetryTime(time.Millisecond))
	require.NoError(t, err)
	defer client.Close()

	var res uint64
	require.Error(t, client.CallContext(context.Background(), &res, "test_epoch"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, client.CallContext(ctx, &res, "test_epoch"), context.Canceled)
}

func TestClient_RateLimit(t *testing.T) {
	service := &mockService{epoch: 1}
	client := startServerAndClient(t, service, WithRateLimit(20, 1))

	start := time.Now()
	var res uint64
	for i := 0; i < 3; i++ {
		require.NoError(t, client.CallContext(context.Background(), &res, "test_epoch"))
	}
	// first call uses the burst, the rest wait ~50ms each
	require.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
}

func startServerAndClient(t *testing.T, service *mockService, opts ...Option) *Client {
	addr := mocksrv.StartServer(t, map[string]interface{}{"test": service})

	client, err := NewClient(context.Background(), "http://"+addr, opts...)
	require.NoError(t, err)
	t.Cleanup(client.Close)

	return client
}

type mockService struct {
	epoch uint64
	delay time.Duration
	err   error
	calls atomic.Int32
}

func (s *mockService) Epoch(ctx context.Context) (uint64, error) {
	s.calls.Add(1)
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
	return s.epoch, s.err
}
