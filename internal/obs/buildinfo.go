package obs

import "github.com/prometheus/client_golang/prometheus"

// buildInfo is a constant 1 labelled with the running version and commit.
var buildInfo = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "build_info",
		Help: "orgadmin build information.",
	},
	[]string{"version", "commit"},
)

// SetBuildInfo publishes build_info{version,commit} 1. Earlier label sets are
// cleared so the gauge always names exactly one build.
func SetBuildInfo(version, commit string) {
	if version == "" {
		version = "dev"
	}
	if commit == "" {
		commit = "unknown"
	}
	buildInfo.Reset()
	buildInfo.WithLabelValues(version, commit).Set(1)
}
