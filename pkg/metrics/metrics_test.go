package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistersOnPrivateRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.TasksSubmitted.WithLabelValues("search").Inc()
	m.TasksRejected.WithLabelValues("search", "queue_full").Add(2)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.TasksSubmitted.WithLabelValues("search")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.TasksRejected.WithLabelValues("search", "queue_full")))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)

	// A second set on a fresh registry must not collide.
	assert.NotPanics(t, func() { New(prometheus.NewRegistry()) })
}
