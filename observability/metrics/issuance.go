package metrics

import (
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// IssuanceMetrics tracks parse outcomes and fee collection for the issuance
// message type.
type IssuanceMetrics struct {
	parsed        *prometheus.CounterVec
	feesCollected prometheus.Counter
}

var (
	issuanceOnce     sync.Once
	issuanceRegistry *IssuanceMetrics
)

// Issuance returns the process-wide issuance metric set.
func Issuance() *IssuanceMetrics {
	issuanceOnce.Do(func() {
		issuanceRegistry = &IssuanceMetrics{
			parsed: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "issuance_parsed_total",
				Help: "Count of parsed issuance messages by outcome class.",
			}, []string{"outcome"}),
			feesCollected: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "issuance_fees_collected_total",
				Help: "Sum of issuance fees debited, in base units.",
			}),
		}
		prometheus.MustRegister(issuanceRegistry.parsed, issuanceRegistry.feesCollected)
	})
	return issuanceRegistry
}

// ObserveParse records the outcome of one parsed message. Statuses collapse
// to a bounded label set to keep cardinality flat.
func (m *IssuanceMetrics) ObserveParse(status string) {
	if m == nil {
		return
	}
	outcome := "invalid"
	switch {
	case status == "valid":
		outcome = "valid"
	case strings.Contains(status, "integer overflow"):
		outcome = "rejected"
	case strings.Contains(status, "could not unpack"):
		outcome = "unparseable"
	}
	m.parsed.WithLabelValues(outcome).Inc()
}

// ObserveFee records a debited issuance fee.
func (m *IssuanceMetrics) ObserveFee(fee int64) {
	if m == nil || fee <= 0 {
		return
	}
	m.feesCollected.Add(float64(fee))
}
