package manager

import "github.com/prometheus/client_golang/prometheus"

var (
	loadedModels = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "frequency",
		Subsystem: "manager",
		Name:      "loaded_models",
		Help:      "Number of resident model handles.",
	})
	modelLoads = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "frequency",
		Subsystem: "manager",
		Name:      "model_loads_total",
		Help:      "Model weight loads by result.",
	}, []string{"result"})
	modelLoadDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "frequency",
		Subsystem: "manager",
		Name:      "model_load_duration_seconds",
		Help:      "Time spent loading model weights.",
		Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
	})
	generations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "frequency",
		Subsystem: "manager",
		Name:      "generations_total",
		Help:      "Chat generations by model and result.",
	}, []string{"model", "result"})
	generationDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "frequency",
		Subsystem: "manager",
		Name:      "generation_duration_seconds",
		Help:      "Chat generation latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"model"})
	adapterOps = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "frequency",
		Subsystem: "manager",
		Name:      "adapter_operations_total",
		Help:      "Adapter attach/detach operations by result.",
	}, []string{"op", "result"})
)

func init() {
	prometheus.MustRegister(loadedModels, modelLoads, modelLoadDuration, generations, generationDuration, adapterOps)
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
