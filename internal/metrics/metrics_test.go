package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCounters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.IncMutation("set")
	m.IncMutation("set")
	m.IncMintRejection("private_content")
	m.IncMinted()
	m.IncOracleFailure()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.GlimpseMutations.WithLabelValues("set")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.MintRejections.WithLabelValues("private_content")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TokensMinted))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OracleFailures))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.IncMutation("set")
		m.IncMinted()
		m.IncMintRejection("x")
		m.IncReadDecision("allow")
		m.IncOracleFailure()
	})
}
