package client_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/memtrim/pkg/client"
	"github.com/jamesainslie/memtrim/pkg/daemon"
	"github.com/jamesainslie/memtrim/pkg/daemon/broadcaster"
	"github.com/jamesainslie/memtrim/pkg/memtrim/config"
	"github.com/jamesainslie/memtrim/pkg/memtrim/meminfo"
	"github.com/jamesainslie/memtrim/pkg/memtrim/monitor"
)

type fixedReader struct {
	snap meminfo.Snapshot
}

func (r *fixedReader) Read() (meminfo.Snapshot, error) {
	return r.snap, nil
}

type fixedReleaser struct {
	freed int64
}

func (f *fixedReleaser) Release(ctx context.Context) (int64, error) {
	return f.freed, nil
}

// startTestDaemon runs a daemon server on a temp socket and returns a
// connected client.
func startTestDaemon(t *testing.T) *client.Client {
	t.Helper()

	ctrl := monitor.New(monitor.Options{
		Reader: &fixedReader{snap: meminfo.Snapshot{
			UsedMB: 3000, TotalMB: 8192, UsedPercent: 36.6, Timestamp: time.Now(),
		}},
		Releaser: &fixedReleaser{freed: 128},
		Thresholds: config.ThresholdsConfig{
			StartMB: 4096, StopMB: 2048, AutoClean: true,
		},
		// A long interval keeps the fixture deterministic; Run still
		// polls once immediately on start.
		Interval: time.Hour,
	})

	ctx, cancel := context.WithCancel(context.Background())
	go ctrl.Run(ctx)
	t.Cleanup(cancel)

	require.Eventually(t, func() bool {
		return !ctrl.Status().LastTick.IsZero()
	}, 2*time.Second, 10*time.Millisecond)

	socketPath := filepath.Join(t.TempDir(), "memtrimd.sock")
	srv, err := daemon.NewServer(daemon.Config{
		SocketPath: socketPath,
		StateDir:   t.TempDir(),
	}, ctrl, nil, broadcaster.New())
	require.NoError(t, err)

	go func() { _ = srv.Serve() }()
	t.Cleanup(func() { _ = srv.Close() })

	var c *client.Client
	require.Eventually(t, func() bool {
		c, err = client.Connect(socketPath)
		if err != nil {
			return false
		}
		return c.Health(context.Background()) == nil
	}, 2*time.Second, 10*time.Millisecond)
	t.Cleanup(func() { _ = c.Close() })

	return c
}

func TestConnectMissingSocket(t *testing.T) {
	t.Parallel()

	_, err := client.Connect(filepath.Join(t.TempDir(), "absent.sock"))
	assert.Error(t, err)
}

func TestClientStatus(t *testing.T) {
	c := startTestDaemon(t)

	status, err := c.Status(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "idle", status.State)
	assert.Equal(t, int64(4096), status.Thresholds.StartMB)
	assert.Equal(t, int64(3000), status.Snapshot.UsedMB)
	assert.False(t, status.LastTick.IsZero(), "poll loop should have ticked")
}

func TestClientClean(t *testing.T) {
	c := startTestDaemon(t)

	result, err := c.Clean(context.Background())
	require.NoError(t, err)

	assert.True(t, result.Success)
	require.NotNil(t, result.FreedMBEstimate)
	assert.Equal(t, int64(128), *result.FreedMBEstimate)
}

func TestClientUpdateThresholds(t *testing.T) {
	c := startTestDaemon(t)

	updated, err := c.UpdateThresholds(context.Background(), config.ThresholdsConfig{
		StartMB: 5000, StopMB: 2500, AutoClean: false,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(5000), updated.StartMB)
	assert.False(t, updated.AutoClean)

	status, err := c.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(5000), status.Thresholds.StartMB)
}

func TestClientUpdateThresholdsInvalid(t *testing.T) {
	c := startTestDaemon(t)

	_, err := c.UpdateThresholds(context.Background(), config.ThresholdsConfig{
		StartMB: 1000, StopMB: 2000, AutoClean: true,
	})
	assert.ErrorIs(t, err, client.ErrInvalidThresholds)
}

func TestClientHistoryDisabled(t *testing.T) {
	c := startTestDaemon(t)

	results, err := c.History(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestIsDaemonRunningNoPIDFile(t *testing.T) {
	t.Parallel()

	if client.IsDaemonRunning(filepath.Join(t.TempDir(), "absent.pid")) {
		t.Error("IsDaemonRunning() should be false with no PID file")
	}
}
