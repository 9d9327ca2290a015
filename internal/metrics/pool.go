package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/camnode/camnode/pkg/capture"
)

var (
	poolFrames = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "camnode",
		Subsystem: "pool",
		Name:      "frames",
		Help:      "Pooled frame buffers by state",
	}, []string{"state"})

	poolBytes = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "camnode",
		Subsystem: "pool",
		Name:      "bytes",
		Help:      "Pooled frame buffer memory by state",
	}, []string{"state"})

	poolOps = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "camnode",
		Subsystem: "pool",
		Name:      "operations_total",
		Help:      "Lifetime pool operation counts",
	}, []string{"op"})
)

// SetPoolStats publishes a frame pool stats snapshot.
func SetPoolStats(s capture.PoolStats) {
	poolFrames.WithLabelValues("free").Set(float64(s.Free))
	poolFrames.WithLabelValues("in_use").Set(float64(s.InUse))
	poolBytes.WithLabelValues("free").Set(float64(s.FreeBytes))
	poolBytes.WithLabelValues("in_use").Set(float64(s.InUseBytes))

	poolOps.WithLabelValues("acquire").Set(float64(s.Acquires))
	poolOps.WithLabelValues("reuse").Set(float64(s.Reuses))
	poolOps.WithLabelValues("alloc").Set(float64(s.Allocs))
	poolOps.WithLabelValues("recycle").Set(float64(s.Recycles))
	poolOps.WithLabelValues("trim").Set(float64(s.Trims))
	poolOps.WithLabelValues("over_release").Set(float64(s.OverReleases))
}
