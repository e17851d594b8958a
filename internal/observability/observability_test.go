package observability

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func TestShutdown_WritesMetrics(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "namwallet.prom")
	o := New(filename)
	c := prometheus.NewCounter(prometheus.CounterOpts{Name: "test_total", Help: "test counter"})
	require.NoError(t, o.PrometheusRegisterer().Register(c))
	c.Add(3)

	require.NoError(t, o.Shutdown())
	b, err := os.ReadFile(filename)
	require.NoError(t, err)
	require.Contains(t, string(b), "test_total 3")
}

func TestNOP(t *testing.T) {
	o := NOP()
	require.NotNil(t, o.Tracer("test"))
	require.NoError(t, o.Shutdown())
}
