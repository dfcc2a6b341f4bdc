package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

const defaultNamespace = "vapecity"

// Metrics stores Prometheus collectors used across the service.
type Metrics struct {
	OrdersCreated   prometheus.Counter
	StatusChanges   *prometheus.CounterVec
	OrdersExpired   prometheus.Counter
	BotMessages     *prometheus.CounterVec
	HTTPRequests    *prometheus.CounterVec
	HTTPLatency     *prometheus.HistogramVec
	ImageGeneration *prometheus.CounterVec
}

var (
	regOnce         sync.Once
	metricsInstance *Metrics
)

// Registry builds and registers the metrics singleton with optional namespace.
func Registry(namespace string) *Metrics {
	regOnce.Do(func() {
		metricsInstance = &Metrics{
			OrdersCreated: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "orders_created_total",
				Help:      "Total reservations created.",
			}),
			StatusChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "order_status_changes_total",
				Help:      "Reservation status changes by target status.",
			}, []string{"status"}),
			OrdersExpired: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "orders_expired_total",
				Help:      "Reservations cancelled by the daily expiry sweep.",
			}),
			BotMessages: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "bot_messages_total",
				Help:      "Outgoing Telegram messages by bot and outcome.",
			}, []string{"bot", "outcome"}),
			HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "HTTP requests by route, method and status.",
			}, []string{"route", "method", "status"}),
			HTTPLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "Latency distribution for HTTP requests.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"route", "method"}),
			ImageGeneration: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "image_generation_requests_total",
				Help:      "Gemini image generation requests by outcome.",
			}, []string{"status"}),
		}

		prometheus.MustRegister(
			metricsInstance.OrdersCreated,
			metricsInstance.StatusChanges,
			metricsInstance.OrdersExpired,
			metricsInstance.BotMessages,
			metricsInstance.HTTPRequests,
			metricsInstance.HTTPLatency,
			metricsInstance.ImageGeneration,
		)
	})
	return metricsInstance
}

// Get returns the registered metrics, registering them under the default
// namespace when main has not done so yet.
func Get() *Metrics {
	return Registry(defaultNamespace)
}

// Middleware records request counts and latency per matched route.
func Middleware() gin.HandlerFunc {
	m := Get()
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.HTTPRequests.WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
		m.HTTPLatency.WithLabelValues(route, c.Request.Method).Observe(time.Since(start).Seconds())
	}
}
