package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestNewRegistersCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.UpstreamRequests.WithLabelValues("search_schools", "ok").Inc()
	m.Logins.WithLabelValues("success").Inc()
	sessions := 3
	m.TrackSessions(func() int { return sessions })
	m.UpstreamDuration.WithLabelValues("login").Observe(0.2)

	require.Equal(t, float64(1), testutil.ToFloat64(m.UpstreamRequests.WithLabelValues("search_schools", "ok")))
	require.Equal(t, float64(3), testutil.ToFloat64(m.ActiveSessions))
	sessions = 1
	require.Equal(t, float64(1), testutil.ToFloat64(m.ActiveSessions))

	families, err := reg.Gather()
	require.NoError(t, err)
	require.Len(t, families, 4)
}

func TestDiscardIsIndependent(t *testing.T) {
	a, b := Discard(), Discard()
	a.Logins.WithLabelValues("success").Inc()
	require.Equal(t, float64(0), testutil.ToFloat64(b.Logins.WithLabelValues("success")))

	// Both track sessions without a duplicate registration.
	a.TrackSessions(func() int { return 1 })
	b.TrackSessions(func() int { return 2 })
	require.Equal(t, float64(2), testutil.ToFloat64(b.ActiveSessions))
}
