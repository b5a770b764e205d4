package billing

import "github.com/prometheus/client_golang/prometheus"

var (
	unlocksApproved = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "billing_unlocks_approved_total",
		Help: "Total number of approved unlock requests",
	})

	ridesSettled = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "billing_rides_settled_total",
		Help: "Total number of rides completed through lock approval",
	})

	amountDebited = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "billing_amount_debited_total",
		Help: "Total amount debited for rides, by wallet bucket",
	}, []string{"bucket"})
)

// RegisterMetrics registers the billing counters with the service's
// prometheus registry.
func RegisterMetrics(reg *prometheus.Registry) {
	reg.MustRegister(unlocksApproved, ridesSettled, amountDebited)
}

func (s *Service) recordSettlement(st Settlement) {
	if st.Ride == nil {
		return
	}
	ridesSettled.Inc()
	if st.Breakdown != nil {
		amountDebited.WithLabelValues("balance").Add(float64(st.Breakdown.FromBalance))
		amountDebited.WithLabelValues("deposit").Add(float64(st.Breakdown.FromDeposit))
		amountDebited.WithLabelValues("negative").Add(float64(st.Breakdown.ToNegative))
	}
}
