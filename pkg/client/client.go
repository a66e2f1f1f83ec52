// Package client talks to the memtrimd daemon over its unix socket.
// It wraps the HTTP API with typed methods and manages the daemon
// process lifecycle (start, stop, restart).
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	apiv1 "github.com/jamesainslie/memtrim/pkg/api/v1"
	"github.com/jamesainslie/memtrim/pkg/memtrim/config"
	"github.com/jamesainslie/memtrim/pkg/memtrim/monitor"
	"github.com/jamesainslie/memtrim/pkg/memtrim/release"
)

// ErrAlreadyCleaning mirrors the daemon's 409 response to a clean
// request while a clean is in progress.
var ErrAlreadyCleaning = errors.New("a clean is already in progress")

// ErrInvalidThresholds mirrors the daemon's rejection of a threshold
// update.
var ErrInvalidThresholds = errors.New("invalid threshold configuration")

// baseURL is a placeholder host; all traffic goes over the unix socket.
const baseURL = "http://memtrimd"

// Client connects to memtrimd via its unix socket.
type Client struct {
	http       *http.Client
	socketPath string
}

// Connect creates a client for the daemon at socketPath.
func Connect(socketPath string) (*Client, error) {
	if _, err := os.Stat(socketPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("daemon socket not found at %s", socketPath)
	}

	return &Client{
		socketPath: socketPath,
		http: &http.Client{
			Transport: &http.Transport{
				DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
					var d net.Dialer
					return d.DialContext(ctx, "unix", socketPath)
				},
			},
			Timeout: 30 * time.Second,
		},
	}, nil
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

// Status fetches the controller status.
func (c *Client) Status(ctx context.Context) (monitor.Status, error) {
	return doRequest[monitor.Status](ctx, c, http.MethodGet, apiv1.RouteStatus, nil)
}

// UpdateThresholds applies a threshold update and returns the accepted
// configuration. Invalid updates return ErrInvalidThresholds.
func (c *Client) UpdateThresholds(ctx context.Context, t config.ThresholdsConfig) (config.ThresholdsConfig, error) {
	return doRequest[config.ThresholdsConfig](ctx, c, http.MethodPut, apiv1.RouteConfig, t)
}

// Clean triggers a manual clean and waits for its result. Returns
// ErrAlreadyCleaning if a clean is in progress. The wait spans the
// whole release, whose duration is OS-dependent.
func (c *Client) Clean(ctx context.Context) (release.CleanResult, error) {
	return doRequest[release.CleanResult](ctx, c, http.MethodPost, apiv1.RouteClean, nil)
}

// History returns up to limit recent clean results, newest first.
func (c *Client) History(ctx context.Context, limit int) ([]release.CleanResult, error) {
	path := fmt.Sprintf("%s?limit=%d", apiv1.RouteHistory, limit)
	return doRequest[[]release.CleanResult](ctx, c, http.MethodGet, path, nil)
}

// Shutdown asks the daemon to exit gracefully.
func (c *Client) Shutdown(ctx context.Context) error {
	_, err := doRequest[struct{}](ctx, c, http.MethodPost, apiv1.RouteShutdown, nil)
	return err
}

// Health checks that the daemon is responsive.
func (c *Client) Health(ctx context.Context) error {
	_, err := doRequest[struct{}](ctx, c, http.MethodGet, apiv1.RouteHealth, nil)
	return err
}

// doRequest performs one API call and decodes the enveloped result.
func doRequest[T any](ctx context.Context, c *Client, method, path string, body any) (T, error) {
	var zero T

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return zero, err
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, baseURL+path, reqBody)
	if err != nil {
		return zero, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return zero, fmt.Errorf("daemon request failed: %w", err)
	}
	defer resp.Body.Close()

	var envelope struct {
		Status  int    `json:"status"`
		Code    string `json:"code"`
		Message string `json:"message"`
		Results T      `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return zero, fmt.Errorf("decoding daemon response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return zero, apiError(envelope.Code, envelope.Message)
	}
	return envelope.Results, nil
}

// apiError maps response codes back to sentinel errors.
func apiError(code, message string) error {
	switch code {
	case apiv1.CodeAlreadyCleaning:
		return fmt.Errorf("%w: %s", ErrAlreadyCleaning, message)
	case apiv1.CodeInvalidThresholds:
		return fmt.Errorf("%w: %s", ErrInvalidThresholds, message)
	default:
		return fmt.Errorf("daemon error (%s): %s", code, message)
	}
}

// DaemonPaths configures paths for daemon process management. Empty
// fields use defaults.
type DaemonPaths struct {
	Binary string // path to memtrimd binary (auto-discovered if empty)
	Socket string // unix socket path
	PID    string // PID file path
}

// withDefaults returns a copy with empty fields filled in.
func (p DaemonPaths) withDefaults() DaemonPaths {
	if p.Socket == "" {
		p.Socket = config.DefaultSocketPath()
	}
	if p.PID == "" {
		p.PID = config.DefaultPIDPath()
	}
	return p
}

// EnsureDaemon makes sure the daemon is running, starting it if needed.
func EnsureDaemon(paths DaemonPaths) error {
	return StartDaemon(paths)
}

// StartDaemon starts memtrimd in the background. Idempotent: returns
// nil if the daemon is already running.
func StartDaemon(paths DaemonPaths) error {
	paths = paths.withDefaults()

	if IsDaemonRunning(paths.PID) {
		return nil
	}

	binary, err := resolveBinary(paths.Binary)
	if err != nil {
		return fmt.Errorf("find memtrimd: %w", err)
	}

	statusPath := statusPathFor(paths.Socket)
	_ = os.Remove(statusPath)

	// exec.Command rather than CommandContext: the daemon must outlive
	// the caller.
	cmd := exec.Command(binary) //nolint:gosec // binary path is validated
	cmd.Stdout = nil
	cmd.Stderr = nil
	cmd.Stdin = nil

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start daemon: %w", err)
	}
	if cmd.Process != nil {
		_ = cmd.Process.Release()
	}

	// Poll for the socket or an explicit status verdict.
	for range 50 {
		time.Sleep(100 * time.Millisecond)

		if _, err := os.Stat(paths.Socket); err == nil {
			return nil
		}

		if status, err := readStatusFile(statusPath); err == nil {
			switch status.Status {
			case "ready":
				return nil
			case "error":
				return fmt.Errorf("daemon failed to start: %s", status.Error)
			}
		}
	}

	return errors.New("daemon did not become ready within timeout")
}

// StopDaemon stops the daemon gracefully via the API. Idempotent:
// returns nil if the daemon is not running.
func StopDaemon(paths DaemonPaths) error {
	paths = paths.withDefaults()

	if !IsDaemonRunning(paths.PID) {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := Connect(paths.Socket)
	if err != nil {
		return fmt.Errorf("connect to daemon: %w", err)
	}
	defer client.Close()

	if err := client.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown daemon: %w", err)
	}

	for range 20 {
		time.Sleep(250 * time.Millisecond)
		if !IsDaemonRunning(paths.PID) {
			return nil
		}
	}

	return errors.New("daemon did not stop within timeout")
}

// RestartDaemon stops and starts the daemon.
func RestartDaemon(paths DaemonPaths) error {
	if err := StopDaemon(paths); err != nil {
		return fmt.Errorf("stop: %w", err)
	}
	if err := StartDaemon(paths); err != nil {
		return fmt.Errorf("start: %w", err)
	}
	return nil
}

// resolveBinary finds the memtrimd binary.
// Priority: configured path > same directory as executable > GOBIN/GOPATH > PATH.
func resolveBinary(configured string) (string, error) {
	if configured != "" {
		if _, err := os.Stat(configured); err != nil {
			return "", fmt.Errorf("configured binary not found: %s", configured)
		}
		return configured, nil
	}

	if execPath, err := os.Executable(); err == nil {
		candidate := filepath.Join(filepath.Dir(execPath), "memtrimd")
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}

	if goBinPath := config.DefaultBinaryPath(); goBinPath != "" {
		return goBinPath, nil
	}

	if path, err := exec.LookPath("memtrimd"); err == nil {
		return path, nil
	}

	return "", errors.New("memtrimd not found")
}

// IsDaemonRunning checks the PID file for a live daemon process.
func IsDaemonRunning(pidPath string) bool {
	pid, err := readPIDFile(pidPath)
	if err != nil {
		return false
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return process.Signal(syscall.Signal(0)) == nil
}

// statusPathFor derives the startup status file path from the socket
// path. Must match the daemon's StatusPath layout: sibling of the socket.
func statusPathFor(socketPath string) string {
	return filepath.Join(filepath.Dir(socketPath), "memtrimd.status")
}

func readPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, err
	}

	return pid, nil
}

// statusFile mirrors the daemon's startup status file.
type statusFile struct {
	Status string `json:"status"`
	PID    int    `json:"pid,omitempty"`
	Error  string `json:"error,omitempty"`
}

func readStatusFile(path string) (*statusFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var status statusFile
	if err := json.Unmarshal(data, &status); err != nil {
		return nil, err
	}
	return &status, nil
}
