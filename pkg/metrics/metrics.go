// Package metrics 定义服务暴露给 Prometheus 的指标
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "anchorage"

// Metrics 持有一组注册在独立 Registry 上的指标
// 每个实例独立注册，测试里可以反复创建
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	BlobPuts     prometheus.Counter
	BlobBytes    prometheus.Counter
	NodesCreated prometheus.Counter
	ChunksStored prometheus.Counter
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of http requests served",
		}, []string{"method", "route", "status"}),
		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Latency of http requests",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		BlobPuts: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "blob",
			Name:      "put_requests_total",
			Help:      "Number of successful blob put requests, dedup hits included",
		}),
		BlobBytes: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "blob",
			Name:      "received_bytes_total",
			Help:      "Decoded payload bytes received by blob create requests",
		}),
		NodesCreated: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "node",
			Name:      "created_total",
			Help:      "Number of nodes created",
		}),
		ChunksStored: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "chunks_total",
			Help:      "Number of chunks written by the ingester",
		}),
	}
}

// Handler 返回 /metrics 的 http.Handler
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }
