package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gregoriusjimmy/llm-council/internal/council"
)

func TestRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(reg)

	r.ObserveAdvisor(council.AdvisorResult{Status: council.StatusSuccess, Duration: time.Second})
	r.ObserveAdvisor(council.AdvisorResult{Status: council.StatusSuccess, Duration: 2 * time.Second})
	r.ObserveAdvisor(council.AdvisorResult{Status: council.StatusTimeout, Duration: 180 * time.Second})
	r.ObserveCritique(false, time.Second)
	r.ObserveSynthesis(true)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.advisorCalls.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.advisorCalls.WithLabelValues("timeout")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.critiques.WithLabelValues("failed")))
	assert.Equal(t, 0.0, testutil.ToFloat64(r.critiques.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.syntheses.WithLabelValues("ok")))

	expected := `
# HELP llm_council_synthesis_total Total number of synthesis stream starts by outcome
# TYPE llm_council_synthesis_total counter
llm_council_synthesis_total{outcome="ok"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "llm_council_synthesis_total"))
}

func TestNewPanicsOnDoubleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)
	assert.Panics(t, func() { New(reg) })
}
