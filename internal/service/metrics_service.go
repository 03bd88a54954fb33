package service

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService collects flow outcome counters and serves the scrape
// endpoint.
type MetricsService struct {
	registry       *prometheus.Registry
	authorizeTotal *prometheus.CounterVec
	exchangeTotal  *prometheus.CounterVec
}

func NewMetricsService() *MetricsService {
	return &MetricsService{
		registry: prometheus.NewRegistry(),
	}
}

func (ms *MetricsService) Init() error {
	ms.authorizeTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "postflow_oauth_authorize_total",
		Help: "Authorization URL requests by outcome.",
	}, []string{"outcome"})

	ms.exchangeTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "postflow_oauth_exchange_total",
		Help: "Code exchange attempts by outcome.",
	}, []string{"outcome"})

	ms.registry.MustRegister(
		ms.authorizeTotal,
		ms.exchangeTotal,
		collectors.NewGoCollector(),
	)

	return nil
}

func (ms *MetricsService) RecordAuthorize(outcome string) {
	ms.authorizeTotal.WithLabelValues(outcome).Inc()
}

func (ms *MetricsService) RecordExchange(outcome string) {
	ms.exchangeTotal.WithLabelValues(outcome).Inc()
}

func (ms *MetricsService) Handler() http.Handler {
	return promhttp.HandlerFor(ms.registry, promhttp.HandlerOpts{})
}
