package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		OrdersCreated,
		OrdersExpired,
	)
}

var (
	// Orders created at checkout, labeled by package tier.
	OrdersCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orders_created_total",
			Help: "Orders created at checkout by package tier.",
		},
		[]string{"package"},
	)

	// Orders expired by the background reaper (lazy download-time
	// expirations are counted under downloads_total{result="expired"}).
	OrdersExpired = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "orders_expired_total",
			Help: "Completed orders bulk-expired past their download window.",
		},
	)
)

// AddOrdersExpired records a reaper sweep.
func AddOrdersExpired(n int64) {
	if n > 0 {
		OrdersExpired.Add(float64(n))
	}
}
