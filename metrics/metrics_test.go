package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilRegistryIsSafe(t *testing.T) {
	t.Parallel()

	var r *Registry
	assert.NotPanics(t, func() {
		r.RecordRun("wheel", "ok", time.Second)
		r.RecordRegimeSwitch("low", "mid")
		r.SetActiveRegime(2)
		r.RecordQuote("lookup")
		r.RecordSettlement("put", "cash")
	})
	assert.Equal(t, 0.0, r.Runs("wheel", "ok"))
	assert.NoError(t, r.WriteTextfile(filepath.Join(t.TempDir(), "x.prom")))
	assert.NotNil(t, r.Gatherer())
}

func TestRecorders(t *testing.T) {
	t.Parallel()

	r := New()
	r.RecordRun("wheel", "ok", 10*time.Millisecond)
	r.RecordRun("wheel", "ok", 20*time.Millisecond)
	r.RecordRun("csp", "error", time.Millisecond)
	r.RecordRegimeSwitch("low", "mid")
	r.SetActiveRegime(3)
	r.RecordQuote("fallback")
	r.RecordQuote("fallback")
	r.RecordQuote("lookup")
	r.RecordSettlement("call", "physical")

	assert.Equal(t, 2.0, r.Runs("wheel", "ok"))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.RunsTotal.WithLabelValues("csp", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.RegimeSwitches.WithLabelValues("low", "mid")))
	assert.Equal(t, 3.0, testutil.ToFloat64(r.ActiveRegime))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.PricingQuotes.WithLabelValues("fallback")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.Settlements.WithLabelValues("call", "physical")))
	assert.Equal(t, 2, testutil.CollectAndCount(r.PricingQuotes))
}

func TestRegistriesAreIndependent(t *testing.T) {
	t.Parallel()

	a, b := New(), New()
	a.RecordQuote("lookup")
	assert.Equal(t, 0.0, testutil.ToFloat64(b.PricingQuotes.WithLabelValues("lookup")))
}

func TestConcurrentRecording(t *testing.T) {
	t.Parallel()

	r := New()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				r.RecordQuote("fallback")
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 800.0, testutil.ToFloat64(r.PricingQuotes.WithLabelValues("fallback")))
}

func TestWriteTextfile(t *testing.T) {
	t.Parallel()

	r := New()
	r.RecordRun("collar", "ok", time.Millisecond)
	path := filepath.Join(t.TempDir(), "optsim.prom")
	require.NoError(t, r.WriteTextfile(path))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(b)
	assert.True(t, strings.Contains(out, `optsim_runs_total{status="ok",strategy="collar"} 1`), out)
	assert.Contains(t, out, "# TYPE optsim_run_duration_seconds histogram")
}
