// Package metrics регистрирует метрики Prometheus сервиса.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	SpotsCreatedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cropscout_spots_created_total",
		Help: "Spots persisted, by analysis status",
	}, []string{"status"})
	SpotFailuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cropscout_spot_failures_total",
		Help: "Rejected or failed create-spot requests, by error code",
	}, []string{"code"})
	InferenceDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cropscout_inference_duration_ms",
		Help:    "Model inference duration in milliseconds",
		Buckets: []float64{10, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000},
	}, []string{"model"})
	ModelLoadsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cropscout_model_loads_total",
		Help: "Model loads performed by the cache, by result",
	}, []string{"model", "result"})
)

func init() {
	prometheus.MustRegister(SpotsCreatedTotal)
	prometheus.MustRegister(SpotFailuresTotal)
	prometheus.MustRegister(InferenceDurationMs)
	prometheus.MustRegister(ModelLoadsTotal)
}

// Handler отдаёт зарегистрированные метрики для /metrics
func Handler() http.Handler { return promhttp.Handler() }
