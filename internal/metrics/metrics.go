/*------------------------------------------------------------------------------
* metrics.go : per-channel and bank-wide Prometheus metrics (§10.6)
*
*          Copyright (C) 2023-2026 by feng xuebin, All rights reserved.
*
* surfaces the same bookkeeping rtksvr.go keeps on RtkSvr (CpuTime,
* PrcOut, ...) as scrapeable gauges/histograms instead of in-process
* counters only visible to the server's own status print.
 */
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"trackcore/track"
)

/* Registry holds every tracking-core metric and the vector handles
 * used to update them per channel. */
type Registry struct {
	CN0             *prometheus.GaugeVec
	LockCounter     *prometheus.GaugeVec
	ModeChangeCount *prometheus.GaugeVec
	ChannelState    *prometheus.GaugeVec
	CycleDuration   prometheus.Histogram
}

/* NewRegistry builds and registers the tracking-core metric family on
 * reg (pass prometheus.NewRegistry() in tests to avoid the global
 * default registry's collector-name collisions across packages). */
func NewRegistry(reg prometheus.Registerer) *Registry {
	r := &Registry{
		CN0: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "trackcore",
			Name:      "channel_cn0_dbhz",
			Help:      "carrier-to-noise density estimate per channel",
		}, []string{"channel", "prn"}),
		LockCounter: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "trackcore",
			Name:      "channel_lock_counter",
			Help:      "monotonic lock/re-lock counter per channel",
		}, []string{"channel", "prn"}),
		ModeChangeCount: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "trackcore",
			Name:      "channel_mode_change_count",
			Help:      "update count at which the channel last changed stage or snapped carrier frequency",
		}, []string{"channel", "prn"}),
		ChannelState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "trackcore",
			Name:      "channel_state",
			Help:      "channel lifecycle state (0=disabled, 1=running)",
		}, []string{"channel", "prn"}),
		CycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "trackcore",
			Name:      "cycle_duration_seconds",
			Help:      "wall time spent in one FetchCorrelations+Update cycle",
			Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 10),
		}),
	}
	reg.MustRegister(r.CN0, r.LockCounter, r.ModeChangeCount, r.ChannelState, r.CycleDuration)
	return r
}

/* ObserveChannel updates every per-channel gauge from one channel's
 * exported snapshot fields. */
func (r *Registry) ObserveChannel(channelID, prn int, state track.ChannelState, cn0 float32, lockCounter uint16, modeChangeCount uint64) {
	labels := prometheus.Labels{"channel": strconv.Itoa(channelID), "prn": strconv.Itoa(prn)}
	r.CN0.With(labels).Set(float64(cn0))
	r.LockCounter.With(labels).Set(float64(lockCounter))
	r.ModeChangeCount.With(labels).Set(float64(modeChangeCount))
	st := 0.0
	if state == track.Running {
		st = 1.0
	}
	r.ChannelState.With(labels).Set(st)
}
