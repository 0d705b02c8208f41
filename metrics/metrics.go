// Package metrics exposes engine counters through Prometheus.
//
// A nil *Collector is valid and records nothing.
package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

type Collector struct {
	triples     *prometheus.CounterVec
	diagnostics *prometheus.CounterVec
	references  *prometheus.CounterVec
	rpcs        *prometheus.CounterVec
}

// New creates the collectors and registers them with reg. A nil reg skips
// registration.
func New(reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		triples: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "graphwire",
			Name:      "triples_total",
			Help:      "Triples written or read by the engine.",
		}, []string{"direction"}),
		diagnostics: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "graphwire",
			Name:      "diagnostics_total",
			Help:      "Recoverable problems recorded during parse, by error kind.",
		}, []string{"kind"}),
		references: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "graphwire",
			Name:      "references_total",
			Help:      "Reference placeholders by outcome.",
		}, []string{"outcome"}),
		rpcs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "graphwire",
			Name:      "rpc_total",
			Help:      "Collaborator RPCs served, by method and status code.",
		}, []string{"method", "code"}),
	}
	if reg != nil {
		for _, col := range []prometheus.Collector{c.triples, c.diagnostics, c.references, c.rpcs} {
			if err := reg.Register(col); err != nil {
				return nil, err
			}
		}
	}
	return c, nil
}

// Reference outcomes.
const (
	OutcomeSealed    = "sealed"
	OutcomeResolved  = "resolved"
	OutcomeEncrypted = "encrypted"
	OutcomeMissing   = "missing"
	OutcomeFailed    = "failed"
)

func (c *Collector) TriplesWritten(n int) {
	if c != nil {
		c.triples.WithLabelValues("out").Add(float64(n))
	}
}

func (c *Collector) TriplesRead(n int) {
	if c != nil {
		c.triples.WithLabelValues("in").Add(float64(n))
	}
}

func (c *Collector) Diagnostic(kind string) {
	if c != nil {
		c.diagnostics.WithLabelValues(kind).Inc()
	}
}

func (c *Collector) Reference(outcome string) {
	if c != nil {
		c.references.WithLabelValues(outcome).Inc()
	}
}

func (c *Collector) RPC(method, code string) {
	if c != nil {
		c.rpcs.WithLabelValues(method, code).Inc()
	}
}

// UnaryServerInterceptor counts every unary RPC by full method name and
// resulting status code.
func (c *Collector) UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		resp, err := handler(ctx, req)
		c.RPC(info.FullMethod, status.Code(err).String())
		return resp, err
	}
}
