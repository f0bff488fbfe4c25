// Package metrics exposes progress activity as Prometheus metrics.
// Collectors are fed from the event bus, so they also see events relayed
// from other processes.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hampton/progress-tracker/internal/domain/shared"
)

// Collector holds the progress collectors and their registry.
type Collector struct {
	registry *prometheus.Registry

	events   *prometheus.CounterVec
	xp       prometheus.Counter
	level    prometheus.Gauge
	streak   prometheus.Gauge
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	jobs     *prometheus.CounterVec
}

// New creates a collector with its own registry. Go runtime and process
// collectors are registered alongside.
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hampton_events_total",
				Help: "Total number of progress events by type",
			},
			[]string{"type"},
		),
		xp: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hampton_xp_awarded_total",
			Help: "Total XP awarded",
		}),
		level: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "hampton_level",
			Help: "Current learner level",
		}),
		streak: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "hampton_streak_days",
			Help: "Current daily streak in days",
		}),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hampton_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "hampton_http_request_duration_seconds",
				Help:    "Duration of HTTP requests",
				Buckets: []float64{0.005, 0.025, 0.1, 0.5, 1, 2},
			},
			[]string{"method", "endpoint"},
		),
		jobs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hampton_job_runs_total",
				Help: "Total number of background job runs by outcome",
			},
			[]string{"job", "status"},
		),
	}
	c.level.Set(1)

	c.registry.MustRegister(
		c.events, c.xp, c.level, c.streak, c.requests, c.duration, c.jobs,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	return c
}

// Registry returns the registry the collectors live in.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Attach subscribes the collector to every event on the bus.
func (c *Collector) Attach(sub shared.EventSubscriber) error {
	return sub.SubscribeAll(c.Observe)
}

// Observe updates collectors from one event. It never fails.
func (c *Collector) Observe(event shared.Event) error {
	c.events.WithLabelValues(string(event.EventType())).Inc()
	p := event.Payload()

	switch event.EventType() {
	case shared.EventXPGained:
		if v, ok := number(p["amount"]); ok && v > 0 {
			c.xp.Add(v)
		}
	case shared.EventLevelUp:
		if v, ok := number(p["new_level"]); ok {
			c.level.Set(v)
		}
	case shared.EventStreakUpdated:
		if v, ok := number(p["new_streak"]); ok {
			c.streak.Set(v)
		}
	case shared.EventProgressImported:
		if v, ok := number(p["level"]); ok {
			c.level.Set(v)
		}
	case shared.EventProgressReset:
		c.level.Set(1)
		c.streak.Set(0)
	}
	return nil
}

// number accepts both in-process payloads (int) and relayed JSON payloads (float64).
func number(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

// Handler serves the registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// GinHandler adapts Handler for a gin route.
func (c *Collector) GinHandler() gin.HandlerFunc {
	h := c.Handler()
	return func(ctx *gin.Context) {
		h.ServeHTTP(ctx.Writer, ctx.Request)
	}
}

// Middleware records request counts and durations per route.
func (c *Collector) Middleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()
		ctx.Next()

		endpoint := ctx.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		c.requests.WithLabelValues(ctx.Request.Method, endpoint, strconv.Itoa(ctx.Writer.Status())).Inc()
		c.duration.WithLabelValues(ctx.Request.Method, endpoint).Observe(time.Since(start).Seconds())
	}
}

// ObserveJob counts one background job run.
func (c *Collector) ObserveJob(job string, err error) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	c.jobs.WithLabelValues(job, status).Inc()
}
