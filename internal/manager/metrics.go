package manager

import "github.com/prometheus/client_golang/prometheus"

var (
	cacheLoads = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "mlxd",
		Subsystem: "cache",
		Name:      "loads_total",
		Help:      "Total number of model loads",
	})

	cacheEvictions = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "mlxd",
		Subsystem: "cache",
		Name:      "evictions_total",
		Help:      "Total number of LRU evictions",
	})

	cacheHits = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "mlxd",
		Subsystem: "cache",
		Name:      "hits_total",
		Help:      "Total number of cache hits",
	})

	cacheResident = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "mlxd",
		Subsystem: "cache",
		Name:      "resident_models",
		Help:      "Number of models currently resident",
	})
)

func init() {
	prometheus.MustRegister(cacheLoads, cacheEvictions, cacheHits, cacheResident)
}
