package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	buildInfoOnce sync.Once

	// build_info is a constant 1 labelled with version and auth mode.
	buildInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tasklane_build_info",
			Help: "Tasklane API build information.",
		},
		[]string{"version", "auth_mode"},
	)
)

// InitBuildInfo registers build_info once and sets it for the running process.
func InitBuildInfo(version, authMode string) {
	buildInfoOnce.Do(func() {
		prometheus.MustRegister(buildInfo)
	})
	buildInfo.WithLabelValues(version, authMode).Set(1)
}
