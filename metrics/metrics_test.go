package metrics

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestCollectorCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := New(reg)
	require.NoError(t, err)

	c.TriplesWritten(5)
	c.TriplesRead(3)
	c.TriplesRead(2)
	c.Diagnostic("Parse")
	c.Reference(OutcomeMissing)

	require.Equal(t, 5.0, testutil.ToFloat64(c.triples.WithLabelValues("out")))
	require.Equal(t, 5.0, testutil.ToFloat64(c.triples.WithLabelValues("in")))
	require.Equal(t, 1.0, testutil.ToFloat64(c.diagnostics.WithLabelValues("Parse")))
	require.Equal(t, 1.0, testutil.ToFloat64(c.references.WithLabelValues(OutcomeMissing)))

	_, err = New(reg)
	require.Error(t, err, "second registration must collide")
}

func TestNilCollectorIsNoop(t *testing.T) {
	var c *Collector
	c.TriplesWritten(1)
	c.TriplesRead(1)
	c.Diagnostic("Parse")
	c.Reference(OutcomeFailed)
	c.RPC("/x/Y", "OK")
}

func TestUnaryServerInterceptor(t *testing.T) {
	c, err := New(prometheus.NewRegistry())
	require.NoError(t, err)
	intercept := c.UnaryServerInterceptor()
	info := &grpc.UnaryServerInfo{FullMethod: "/graphwire.notary.v1.Notary/Fetch"}

	ok := func(context.Context, interface{}) (interface{}, error) { return "reply", nil }
	missing := func(context.Context, interface{}) (interface{}, error) {
		return nil, status.Error(codes.NotFound, "gone")
	}
	plain := func(context.Context, interface{}) (interface{}, error) { return nil, errors.New("boom") }

	resp, err := intercept(context.Background(), nil, info, ok)
	require.NoError(t, err)
	require.Equal(t, "reply", resp)
	_, err = intercept(context.Background(), nil, info, missing)
	require.Equal(t, codes.NotFound, status.Code(err))
	_, _ = intercept(context.Background(), nil, info, plain)

	require.Equal(t, 1.0, testutil.ToFloat64(c.rpcs.WithLabelValues(info.FullMethod, "OK")))
	require.Equal(t, 1.0, testutil.ToFloat64(c.rpcs.WithLabelValues(info.FullMethod, "NotFound")))
	require.Equal(t, 1.0, testutil.ToFloat64(c.rpcs.WithLabelValues(info.FullMethod, "Unknown")))
}
