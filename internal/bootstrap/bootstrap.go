// Package bootstrap runs the blessings listeners and hands them over to a
// new process on SIGHUP without dropping connections.
package bootstrap

import (
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloudflare/tableflip"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

const (
	// EnvPidFile is the name of the environment variable containing the pid file path
	EnvPidFile = "BLESSINGS_PID_FILE"
	// EnvUpgradesEnabled enables graceful upgrades on SIGHUP when set
	EnvUpgradesEnabled = "BLESSINGS_UPGRADES_ENABLED"
)

// Bootstrap owns the listeners of the process and decides when it has to
// terminate.
type Bootstrap struct {
	// StopAction is invoked when a graceful upgrade hands the listeners to
	// the new process. It must block until in-flight requests are served.
	StopAction func()

	logger     logrus.FieldLogger
	upgrader   upgrader
	listenFunc ListenFunc
	errChan    chan error
	starters   []Starter
}

type upgrader interface {
	Exit() <-chan struct{}
	HasParent() bool
	Ready() error
	Upgrade() error
}

// New builds a Bootstrap on top of a tableflip.Upgrader. The pid file named
// by EnvPidFile, if any, always holds the pid of the process owning the
// listeners.
//
// On SIGHUP, when EnvUpgradesEnabled is set, the running process starts the
// new binary and passes it the open listeners. Once the child calls Ready
// the parent stops accepting connections, drains the ongoing requests within
// the grace period given to Wait and exits. Further SIGHUPs are ignored
// while both processes are alive.
func New(logger logrus.FieldLogger) (*Bootstrap, error) {
	pidFile := os.Getenv(EnvPidFile)
	_, upgradesEnabled := os.LookupEnv(EnvUpgradesEnabled)

	upg, err := tableflip.New(tableflip.Options{
		PIDFile: pidFile,
		ListenConfig: &net.ListenConfig{
			Control: func(network, address string, c syscall.RawConn) error {
				var opErr error
				err := c.Control(func(fd uintptr) {
					opErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEPORT, 1)
				})
				if err != nil {
					return err
				}
				return opErr
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("tableflip: %w", err)
	}

	return newBootstrap(logger, upg, upg.Fds.Listen, upgradesEnabled), nil
}

func newBootstrap(logger logrus.FieldLogger, upg upgrader, listenFunc ListenFunc, upgradesEnabled bool) *Bootstrap {
	if upgradesEnabled {
		go func() {
			sig := make(chan os.Signal, 1)
			signal.Notify(sig, syscall.SIGHUP)

			for range sig {
				if err := upg.Upgrade(); err != nil {
					logger.WithError(err).Error("upgrade failed")
					continue
				}

				logger.Info("upgrade succeeded")
			}
		}()
	}

	return &Bootstrap{
		logger:     logger,
		upgrader:   upg,
		listenFunc: listenFunc,
	}
}

// ListenFunc is a net.Listener factory
type ListenFunc func(net, addr string) (net.Listener, error)

// Starter opens a listener with the given ListenFunc and serves it in the
// background, reporting serve errors on the channel. The returned error is
// for setup failures only.
type Starter func(ListenFunc, chan<- error) error

func (b *Bootstrap) isFirstBoot() bool { return !b.upgrader.HasParent() }

// RegisterStarter adds a new starter
func (b *Bootstrap) RegisterStarter(starter Starter) {
	b.starters = append(b.starters, starter)
}

// Start invokes all the registered starters and stops at the first setup
// failure.
func (b *Bootstrap) Start() error {
	b.errChan = make(chan error, len(b.starters))

	for _, start := range b.starters {
		if err := start(b.listen, b.errChan); err != nil {
			return err
		}
	}

	return nil
}

// Wait signals readiness to the parent process, if any, and blocks until
// the process has to exit. SIGTERM, SIGINT and serve errors end it at once.
// A completed upgrade gives in-flight requests gracefulTimeout to finish.
func (b *Bootstrap) Wait(gracefulTimeout time.Duration) error {
	signals := []os.Signal{syscall.SIGTERM, syscall.SIGINT}
	immediateShutdown := make(chan os.Signal, len(signals))
	signal.Notify(immediateShutdown, signals...)
	defer signal.Stop(immediateShutdown)

	if err := b.upgrader.Ready(); err != nil {
		return fmt.Errorf("ready: %w", err)
	}

	select {
	case <-b.upgrader.Exit():
		// the child took over the listeners, no other upgrade can start
		// until this process is gone
		return fmt.Errorf("graceful upgrade: %v", b.waitGracePeriod(gracefulTimeout, immediateShutdown))
	case s := <-immediateShutdown:
		return fmt.Errorf("received signal %q", s)
	case err := <-b.errChan:
		return err
	}
}

func (b *Bootstrap) waitGracePeriod(gracefulTimeout time.Duration, kill <-chan os.Signal) error {
	b.logger.WithField("graceful_timeout", gracefulTimeout).Warn("starting grace period")

	allServersDone := make(chan struct{})
	go func() {
		if b.StopAction != nil {
			b.StopAction()
		}
		close(allServersDone)
	}()

	select {
	case <-time.After(gracefulTimeout):
		return fmt.Errorf("grace period expired")
	case <-kill:
		return fmt.Errorf("force shutdown")
	case <-allServersDone:
		return fmt.Errorf("completed")
	}
}

// listen removes a stale unix socket left by a crashed process. During an
// upgrade the socket is inherited and must stay in place.
func (b *Bootstrap) listen(network, path string) (net.Listener, error) {
	if network == "unix" && b.isFirstBoot() {
		if err := os.RemoveAll(path); err != nil {
			return nil, err
		}
	}

	return b.listenFunc(network, path)
}
