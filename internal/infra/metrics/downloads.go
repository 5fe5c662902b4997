package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		Downloads,
		EmailsSent,
	)
}

var (
	// Download gate outcomes.
	// result: served|not_found|forbidden|expired|consumed|file_missing|locked|error
	Downloads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "downloads_total",
			Help: "Download gate outcomes per attempt.",
		},
		[]string{"result"},
	)

	// Download-link emails by delivery status: sent|error.
	EmailsSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "download_emails_total",
			Help: "Download-link email dispatches by delivery status.",
		},
		[]string{"status"},
	)
)
