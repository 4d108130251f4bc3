// Package restart carries the terminal "restart the device" outcome from the
// connectivity workers up to the top-level harness, and executes it there.
//
// Retry logic never restarts anything itself: it returns a *Request, which
// keeps it testable without a reboot.
package restart

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/nerrad567/gray-logic-uplink/internal/events"
)

// commandTimeout bounds the restart command.
const commandTimeout = 30 * time.Second

// Request asks the harness to restart the device.
type Request struct {
	Cause  events.Kind
	Reason string
}

// New returns a restart request.
func New(cause events.Kind, reason string) *Request {
	return &Request{Cause: cause, Reason: reason}
}

func (r *Request) Error() string {
	return fmt.Sprintf("restart requested (%s): %s", r.Cause, r.Reason)
}

// As reports whether err carries a restart request.
func As(err error) (*Request, bool) {
	var req *Request
	if errors.As(err, &req) {
		return req, true
	}
	return nil, false
}

// Mode selects how the device restarts.
type Mode string

const (
	// ModeExit terminates the process; the service manager restarts it.
	ModeExit Mode = "exit"

	// ModeCommand runs an external command such as "systemctl reboot".
	ModeCommand Mode = "command"
)

// Logger is the logging interface used by the Restarter.
type Logger interface {
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
}

// Restarter performs the actual restart. It is only used by cmd/uplink.
type Restarter struct {
	mode     Mode
	command  []string
	exitCode int
	logger   Logger

	// exit and run are replaceable for tests.
	exit func(code int)
	run  func(ctx context.Context, argv []string) error
}

// NewRestarter creates a Restarter.
func NewRestarter(mode Mode, command []string, exitCode int, logger Logger) *Restarter {
	return &Restarter{
		mode:     mode,
		command:  command,
		exitCode: exitCode,
		logger:   logger,
		exit:     os.Exit,
		run:      runCommand,
	}
}

// Restart executes req. In exit mode it does not return. In command mode it
// returns after the command ran; if the command fails it falls back to exit.
func (r *Restarter) Restart(ctx context.Context, req *Request) {
	r.logger.Error("restarting device", "cause", string(req.Cause), "reason", req.Reason, "mode", string(r.mode))

	if r.mode == ModeCommand && len(r.command) > 0 {
		cctx, cancel := context.WithTimeout(ctx, commandTimeout)
		defer cancel()
		err := r.run(cctx, r.command)
		if err == nil {
			return
		}
		r.logger.Warn("restart command failed, exiting instead", "error", err)
	}

	r.exit(r.exitCode)
}

func runCommand(ctx context.Context, argv []string) error {
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...) //nolint:gosec // argv comes from the config file
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", argv[0], err, out)
	}
	return nil
}
