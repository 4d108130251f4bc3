package portal

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/nerrad567/gray-logic-uplink/internal/credentials"
)

const (
	// shutdownTimeout bounds the wait for in-flight requests on exit.
	shutdownTimeout = 5 * time.Second

	// apDownTimeout bounds access point teardown.
	apDownTimeout = 15 * time.Second

	readHeaderTimeout = 10 * time.Second
)

// AccessPoint brings the provisioning access point up and down.
type AccessPoint interface {
	Up(ctx context.Context, name, password string) error
	Down(ctx context.Context) error
}

// Result is a valid form submission.
type Result struct {
	Primary   credentials.Pair
	Secondary credentials.Pair
}

// Config holds portal settings.
type Config struct {
	// Listen is the HTTP listen address on the access point interface.
	Listen string

	// Timeout ends the portal without a submission.
	Timeout time.Duration
}

// Logger defines the logging interface for the portal.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Portal is the provisioning portal.
type Portal struct {
	ap     AccessPoint
	cfg    Config
	logger Logger

	// listen opens the HTTP listener; replaced in tests.
	listen func() (net.Listener, error)

	running atomic.Bool
}

// New creates a Portal serving on cfg.Listen once the access point is up.
func New(ap AccessPoint, cfg Config) *Portal {
	p := &Portal{
		ap:     ap,
		cfg:    cfg,
		logger: noopLogger{},
	}
	p.listen = func() (net.Listener, error) {
		return net.Listen("tcp", p.cfg.Listen)
	}
	return p
}

// SetLogger sets the logger.
func (p *Portal) SetLogger(logger Logger) {
	if logger != nil {
		p.logger = logger
	}
}

// Start brings up the access point apName and serves the form until a valid
// submission arrives (true), or the timeout, a server error or ctx ends it
// (false). An empty apPassword makes the access point open.
func (p *Portal) Start(ctx context.Context, apName, apPassword string) (Result, bool) {
	if !p.running.CompareAndSwap(false, true) {
		p.logger.Warn("portal start refused", "error", ErrBusy)
		return Result{}, false
	}
	defer p.running.Store(false)

	if err := p.ap.Up(ctx, apName, apPassword); err != nil {
		p.logger.Error("failed to start access point", "ap", apName, "error", err)
		return Result{}, false
	}
	defer p.stopAccessPoint()

	ln, err := p.listen()
	if err != nil {
		p.logger.Error("failed to listen", "addr", p.cfg.Listen, "error", err)
		return Result{}, false
	}

	submitted := make(chan Result, 1)
	srv := &http.Server{
		Handler:           p.buildRouter(submitted),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Serve(ln)
	}()
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			p.logger.Warn("portal shutdown", "error", err)
		}
	}()

	p.logger.Info("portal started", "ap", apName, "addr", ln.Addr().String(), "timeout", p.cfg.Timeout)

	timer := time.NewTimer(p.cfg.Timeout)
	defer timer.Stop()

	select {
	case res := <-submitted:
		p.logger.Info("credentials submitted",
			"primary_ssid", res.Primary.SSID,
			"secondary_ssid", res.Secondary.SSID,
		)
		return res, true
	case <-timer.C:
		p.logger.Warn("portal timed out without a submission", "timeout", p.cfg.Timeout)
	case <-ctx.Done():
		p.logger.Info("portal cancelled")
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			p.logger.Error("portal server failed", "error", err)
		}
	}
	return Result{}, false
}

func (p *Portal) stopAccessPoint() {
	ctx, cancel := context.WithTimeout(context.Background(), apDownTimeout)
	defer cancel()
	if err := p.ap.Down(ctx); err != nil {
		p.logger.Warn("failed to stop access point", "error", err)
	}
}
