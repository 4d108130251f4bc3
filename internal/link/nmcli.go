package link

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"
)

// NetworkManager device states (NMDeviceState).
const (
	nmStateDisconnected = 30
	nmStateActivated    = 100
)

// hotspotConnection is the NetworkManager connection name used for the
// provisioning access point.
const hotspotConnection = "uplink-portal"

// connectWait is the nmcli --wait value for a background association. The
// connector's own polling decides when to give up; this only stops an
// orphaned nmcli from lingering forever.
const connectWait = 90 * time.Second

// commandTimeout bounds every nmcli call that runs to completion.
const commandTimeout = 15 * time.Second

// commander runs nmcli.
type commander interface {
	// Output runs nmcli to completion and returns its stdout.
	Output(ctx context.Context, args ...string) ([]byte, error)

	// Start runs nmcli in the background. stop kills it if still running.
	Start(args ...string) (stop func(), err error)
}

// NMCLI drives the wireless interface through NetworkManager.
//
// It implements Driver for the supervisor and AccessPoint for the
// provisioning portal; only one of them uses the radio at a time.
type NMCLI struct {
	iface   string
	cmd     commander
	timeout time.Duration

	mu          sync.Mutex
	stopConnect func()
}

// NewNMCLI creates a driver for iface using the nmcli binary at path.
func NewNMCLI(binary, iface string) *NMCLI {
	return &NMCLI{
		iface:   iface,
		cmd:     execCommander{binary: binary},
		timeout: commandTimeout,
	}
}

// SetStationMode enables the Wi-Fi radio and takes down the portal hotspot
// if one was left behind.
func (n *NMCLI) SetStationMode(ctx context.Context) error {
	if _, err := n.output(ctx, "radio", "wifi", "on"); err != nil {
		return err
	}
	_, _ = n.output(ctx, "connection", "down", hotspotConnection) //nolint:errcheck // Usually not active
	return nil
}

// Begin starts associating with ssid in the background. Any association
// still in flight from a previous Begin is abandoned.
func (n *NMCLI) Begin(_ context.Context, ssid, secret string) error {
	if ssid == "" {
		return ErrEmptySSID
	}

	args := []string{
		"--wait", strconv.Itoa(int(connectWait.Seconds())),
		"device", "wifi", "connect", ssid,
	}
	if secret != "" {
		args = append(args, "password", secret)
	}
	args = append(args, "ifname", n.iface)

	n.mu.Lock()
	defer n.mu.Unlock()

	if n.stopConnect != nil {
		n.stopConnect()
		n.stopConnect = nil
	}

	stop, err := n.cmd.Start(args...)
	if err != nil {
		return err
	}
	n.stopConnect = stop
	return nil
}

// Status reports the interface state. Any query failure reads as Disconnected.
func (n *NMCLI) Status(ctx context.Context) State {
	out, err := n.output(ctx, "-t", "-f", "GENERAL.STATE", "device", "show", n.iface)
	if err != nil {
		return Disconnected
	}
	return parseDeviceState(out)
}

// Up starts the provisioning access point.
func (n *NMCLI) Up(ctx context.Context, name, password string) error {
	n.mu.Lock()
	if n.stopConnect != nil {
		n.stopConnect()
		n.stopConnect = nil
	}
	n.mu.Unlock()

	args := []string{
		"device", "wifi", "hotspot",
		"ifname", n.iface,
		"con-name", hotspotConnection,
		"ssid", name,
	}
	if password != "" {
		args = append(args, "password", password)
	}
	_, err := n.output(ctx, args...)
	return err
}

// Down stops the provisioning access point and forgets its profile.
func (n *NMCLI) Down(ctx context.Context) error {
	if _, err := n.output(ctx, "connection", "down", hotspotConnection); err != nil {
		return err
	}
	_, err := n.output(ctx, "connection", "delete", hotspotConnection)
	return err
}

// output runs nmcli under the command timeout. A hung nmcli must not keep
// the caller from its next yield point.
func (n *NMCLI) output(ctx context.Context, args ...string) ([]byte, error) {
	cctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()
	return n.cmd.Output(cctx, args...)
}

// parseDeviceState parses "GENERAL.STATE:100 (connected)".
func parseDeviceState(out []byte) State {
	line := strings.TrimSpace(string(out))
	if i := strings.IndexByte(line, ':'); i >= 0 {
		line = line[i+1:]
	}
	if i := strings.IndexByte(line, ' '); i >= 0 {
		line = line[:i]
	}

	code, err := strconv.Atoi(line)
	if err != nil {
		return Disconnected
	}

	switch {
	case code == nmStateActivated:
		return Connected
	case code > nmStateDisconnected && code < nmStateActivated:
		return Connecting
	default:
		return Disconnected
	}
}

type execCommander struct {
	binary string
}

func (e execCommander) Output(ctx context.Context, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, e.binary, args...) //nolint:gosec // Fixed binary, arguments are not shell-interpreted
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %w: %s", ErrCommandFailed, e.binary, args[0], err, strings.TrimSpace(stderr.String()))
	}
	return out, nil
}

func (e execCommander) Start(args ...string) (func(), error) {
	cmd := exec.Command(e.binary, args...) //nolint:gosec // Fixed binary, arguments are not shell-interpreted
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: %s %s: %w", ErrCommandFailed, e.binary, args[0], err)
	}

	done := make(chan struct{})
	go func() {
		_ = cmd.Wait() //nolint:errcheck // Outcome is observed through Status
		close(done)
	}()

	return func() {
		select {
		case <-done:
		default:
			_ = cmd.Process.Kill() //nolint:errcheck // Process may exit concurrently
			<-done
		}
	}, nil
}
