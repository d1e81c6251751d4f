package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the engine's Prometheus instruments. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	GlimpseMutations *prometheus.CounterVec
	TokensMinted     prometheus.Counter
	MintRejections   *prometheus.CounterVec
	ReadDecisions    *prometheus.CounterVec
	OracleFailures   prometheus.Counter
}

// New registers the instruments on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		GlimpseMutations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "glimpse_mutations_total",
			Help: "Committed glimpse mutations by operation",
		}, []string{"op"}),
		TokensMinted: f.NewCounter(prometheus.CounterOpts{
			Name: "glimpse_tokens_minted_total",
			Help: "Access tokens issued",
		}),
		MintRejections: f.NewCounterVec(prometheus.CounterOpts{
			Name: "glimpse_mint_rejections_total",
			Help: "Mint attempts rejected, by reason",
		}, []string{"reason"}),
		ReadDecisions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "glimpse_read_decisions_total",
			Help: "Visibility decisions by outcome",
		}, []string{"outcome"}),
		OracleFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "glimpse_follower_oracle_failures_total",
			Help: "Follower oracle calls that failed and were treated as non-mutual",
		}),
	}
}

func (m *Metrics) IncMutation(op string) {
	if m == nil {
		return
	}
	m.GlimpseMutations.WithLabelValues(op).Inc()
}

func (m *Metrics) IncMinted() {
	if m == nil {
		return
	}
	m.TokensMinted.Inc()
}

func (m *Metrics) IncMintRejection(reason string) {
	if m == nil {
		return
	}
	m.MintRejections.WithLabelValues(reason).Inc()
}

func (m *Metrics) IncReadDecision(outcome string) {
	if m == nil {
		return
	}
	m.ReadDecisions.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncOracleFailure() {
	if m == nil {
		return
	}
	m.OracleFailures.Inc()
}
