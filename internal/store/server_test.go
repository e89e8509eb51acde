package store

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/leonardcser/cachier/internal/metrics"
)

func startDaemon(t *testing.T, s Store) *Client {
	t.Helper()
	// Unix socket paths are length limited; t.TempDir can be too long on macOS.
	dir, err := os.MkdirTemp("", "cachier")
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.RemoveAll(dir) })
	sock := filepath.Join(dir, "s.sock")

	l, err := net.Listen("unix", sock)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Serve(ctx, l, s, zaptest.NewLogger(t)) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			require.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Error("Serve did not return after cancel")
		}
	})
	return NewClient(sock)
}

func TestClientRoundTrip(t *testing.T) {
	mem := NewMemory(0)
	c := startDaemon(t, mem)

	require.True(t, c.Available())
	require.NoError(t, c.SetItem("k", "v"))
	v, ok, err := c.GetItem("k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "v", v)

	_, ok, err = c.GetItem("missing")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, c.SetItems([]Item{{Key: "a", Value: "1"}, {Key: "b", Value: ""}}))
	require.Equal(t, 3, mem.Len())
	v, ok, err = c.GetItem("b")
	require.NoError(t, err)
	require.True(t, ok)
	require.Empty(t, v)

	require.NoError(t, c.RemoveItems("a", "b", "zzz"))
	require.NoError(t, c.RemoveItem("k"))
	require.Zero(t, mem.Len())
}

func TestClientRestoresSentinelErrors(t *testing.T) {
	mem := NewMemory(8)
	c := startDaemon(t, mem)

	require.ErrorIs(t, c.SetItem("key", "too long for quota"), ErrQuotaExceeded)

	mem.SetAvailable(false)
	require.False(t, c.Available())
	_, _, err := c.GetItem("k")
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestClientWithoutDaemon(t *testing.T) {
	c := NewClient(filepath.Join(t.TempDir(), "absent.sock"))
	require.False(t, c.Available())
	_, _, err := c.GetItem("k")
	require.ErrorIs(t, err, ErrUnavailable)
	require.ErrorIs(t, c.SetItem("k", "v"), ErrUnavailable)
}

func TestHandleUnknownOp(t *testing.T) {
	resp := handle(NewMemory(0), Request{Op: "flush"})
	require.False(t, resp.OK)
	require.Equal(t, "unknown op", resp.Error)
	require.Error(t, responseError(resp))
}

func TestDaemonCountsRequests(t *testing.T) {
	c := startDaemon(t, NewMemory(4))
	gets := metrics.StoreRequests.WithLabelValues("get", "ok")
	failedSets := metrics.StoreRequests.WithLabelValues("set", "error")
	beforeGets, beforeSets := testutil.ToFloat64(gets), testutil.ToFloat64(failedSets)

	_, _, err := c.GetItem("k")
	require.NoError(t, err)
	require.Error(t, c.SetItem("key", "too long"))

	require.Equal(t, beforeGets+1, testutil.ToFloat64(gets))
	require.Equal(t, beforeSets+1, testutil.ToFloat64(failedSets))
	require.Equal(t, "unknown", opLabel("flush"))
}
