package starter

import (
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/sirupsen/logrus"
	"gitlab.com/gitlab-org/blessings/internal/bootstrap"
	"gitlab.com/gitlab-org/blessings/internal/connectioncounter"
)

const (
	// TCP is the prefix for tcp
	TCP string = "tcp"
	// Unix is the prefix for unix
	Unix string = "unix"

	separator = "://"
)

var (
	// ErrEmptySchema signals that the address has no schema in it.
	ErrEmptySchema  = errors.New("empty schema can't be used")
	errEmptyAddress = errors.New("empty address can't be used")
	errNoListeners  = errors.New("no listen address or socket path configured")
)

// ParseEndpoint returns Config based on the passed in address string.
// Returns error only if provided endpoint has no schema or address defined.
func ParseEndpoint(endpoint string) (Config, error) {
	if endpoint == "" {
		return Config{}, errEmptyAddress
	}

	parts := strings.Split(endpoint, separator)
	if len(parts) != 2 {
		return Config{}, fmt.Errorf("unsupported format: %q: %w", endpoint, ErrEmptySchema)
	}

	if err := verifySchema(parts[0]); err != nil {
		return Config{}, err
	}

	if parts[1] == "" {
		return Config{}, errEmptyAddress
	}
	return Config{Name: parts[0], Addr: parts[1]}, nil
}

// ComposeEndpoint returns address string composed from provided schema and schema-less address.
func ComposeEndpoint(schema, address string) (string, error) {
	if address == "" {
		return "", errEmptyAddress
	}

	if err := verifySchema(schema); err != nil {
		return "", err
	}

	return schema + separator + address, nil
}

func verifySchema(schema string) error {
	switch schema {
	case "":
		return ErrEmptySchema
	case TCP, Unix:
		return nil
	default:
		return fmt.Errorf("unsupported schema: %q", schema)
	}
}

// Config represents a network type, and address
type Config struct {
	Name, Addr string
}

// Endpoint returns fully qualified address.
func (c *Config) Endpoint() (string, error) {
	return ComposeEndpoint(c.Name, c.Addr)
}

// FromAddresses returns the listeners to open for a TCP address and a unix
// socket path. Either may be empty, not both. A socket path may carry a
// "unix://" prefix.
func FromAddresses(listenAddr, socketPath string) ([]Config, error) {
	var cfgs []Config

	if socketPath != "" {
		cfg := Config{Name: Unix, Addr: socketPath}
		if strings.Contains(socketPath, separator) {
			var err error
			if cfg, err = ParseEndpoint(socketPath); err != nil {
				return nil, err
			}
		}
		cfgs = append(cfgs, cfg)
	}

	if listenAddr != "" {
		cfgs = append(cfgs, Config{Name: TCP, Addr: listenAddr})
	}

	if len(cfgs) == 0 {
		return nil, errNoListeners
	}

	return cfgs, nil
}

// Server serves HTTP on a listener until it is shut down.
type Server interface {
	Serve(l net.Listener) error
}

// New creates a new bootstrap.Starter serving server on the listener
// described by cfg.
func New(logger logrus.FieldLogger, cfg Config, server Server) bootstrap.Starter {
	return func(listen bootstrap.ListenFunc, errCh chan<- error) error {
		l, err := listen(cfg.Name, cfg.Addr)
		if err != nil {
			return fmt.Errorf("listen on %s %q: %w", cfg.Name, cfg.Addr, err)
		}

		logger.WithField("address", cfg.Addr).Infof("listening at %s address", cfg.Name)
		l = connectioncounter.New(cfg.Name, l)

		go func() {
			errCh <- server.Serve(l)
		}()

		return nil
	}
}
