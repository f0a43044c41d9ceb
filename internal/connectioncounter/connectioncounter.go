// Package connectioncounter counts the connections accepted by the
// blessings listeners.
package connectioncounter

import (
	"net"

	"github.com/prometheus/client_golang/prometheus"
)

var connTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "blessings_connections_total",
		Help: "Total number of connections accepted by this blessings process",
	},
	[]string{"type"},
)

func init() {
	prometheus.MustRegister(connTotal)
}

// New wraps l so that every accepted connection increments the counter
// labelled with network.
func New(network string, l net.Listener) net.Listener {
	return &countingListener{
		network:  network,
		Listener: l,
	}
}

type countingListener struct {
	net.Listener
	network string
}

func (cl *countingListener) Accept() (net.Conn, error) {
	conn, err := cl.Listener.Accept()
	if err != nil {
		return nil, err
	}

	connTotal.WithLabelValues(cl.network).Inc()
	return conn, nil
}
