package echoapi

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/trezcool/libkiosk/core/promotion"
)

const metricsNamespace = "kiosk"

// Metrics holds the collectors of one server, on their own registry.
type Metrics struct {
	registry *prometheus.Registry

	CheckIns        *prometheus.CounterVec
	UnknownLRNs     prometheus.Counter
	PromotionRuns   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		CheckIns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "checkins_total",
			Help:      "Successful check-ins, by grade.",
		}, []string{"grade"}),
		UnknownLRNs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "checkins_unknown_lrn_total",
			Help:      "Check-ins rejected because the LRN is unknown.",
		}),
		PromotionRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "promotion_runs_total",
			Help:      "Grade promotion runs, by outcome.",
		}, []string{"result"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latencies.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path", "code"}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.CheckIns,
		m.UnknownLRNs,
		m.PromotionRuns,
		m.RequestDuration,
	)
	return m
}

// ObservePromotion counts a promotion run; skipped checks are not counted.
func (m *Metrics) ObservePromotion(res promotion.Result, err error) {
	switch {
	case err != nil:
		m.PromotionRuns.WithLabelValues("failed").Inc()
	case res.Ran:
		m.PromotionRuns.WithLabelValues("done").Inc()
	}
}

func (m *Metrics) handler() echo.HandlerFunc {
	return echo.WrapHandler(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
}

// middleware observes the latency of every request, labelled with its route.
func (m *Metrics) middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			start := time.Now()
			if err := next(ctx); err != nil {
				ctx.Error(err) // render it now, to observe the final status
			}

			code := ctx.Response().Status
			path := ctx.Path()
			if path == "" {
				path = "unmatched"
			}
			m.RequestDuration.
				WithLabelValues(ctx.Request().Method, path, strconv.Itoa(code)).
				Observe(time.Since(start).Seconds())
			return nil
		}
	}
}
