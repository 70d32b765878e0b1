// Package metrics exposes prometheus counters for the portal's record flows.
// All observers are safe to call on a nil *Metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	notificationsEmitted *prometheus.CounterVec
	authAttempts         *prometheus.CounterVec
	bookings             prometheus.Counter
	queueTicks           prometheus.Counter
	bloodRequests        prometheus.Counter
	panics               *prometheus.CounterVec
	requestDuration      *prometheus.HistogramVec
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		notificationsEmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "portal",
			Name:      "notifications_emitted_total",
			Help:      "Notifications prepended to a client's notification list",
		}, []string{"type"}),
		authAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "portal",
			Name:      "auth_attempts_total",
			Help:      "Signup, login and OTP attempts by outcome",
		}, []string{"action", "result"}),
		bookings: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "portal",
			Name:      "bookings_total",
			Help:      "Appointments confirmed",
		}),
		queueTicks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "portal",
			Name:      "queue_ticks_total",
			Help:      "Queue simulator ticks",
		}),
		bloodRequests: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "portal",
			Name:      "blood_requests_total",
			Help:      "Blood requests submitted",
		}),
		panics: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "portal",
			Subsystem: "http",
			Name:      "panics_total",
			Help:      "Handler panics recovered, by route",
		}, []string{"route"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "portal",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Latency of API requests",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.notificationsEmitted, m.authAttempts, m.bookings, m.queueTicks,
		m.bloodRequests, m.panics, m.requestDuration)
	return m
}

func (m *Metrics) NotificationEmitted(kind string) {
	if m == nil {
		return
	}
	m.notificationsEmitted.WithLabelValues(kind).Inc()
}

// AuthAttempt records an auth action; result is "success" or "failure".
func (m *Metrics) AuthAttempt(action string, ok bool) {
	if m == nil {
		return
	}
	result := "failure"
	if ok {
		result = "success"
	}
	m.authAttempts.WithLabelValues(action, result).Inc()
}

func (m *Metrics) BookingConfirmed() {
	if m == nil {
		return
	}
	m.bookings.Inc()
}

func (m *Metrics) QueueTick() {
	if m == nil {
		return
	}
	m.queueTicks.Inc()
}

func (m *Metrics) BloodRequested() {
	if m == nil {
		return
	}
	m.bloodRequests.Inc()
}

func (m *Metrics) HandlerPanicked(route string) {
	if m == nil {
		return
	}
	m.panics.WithLabelValues(route).Inc()
}

// Middleware observes request latency by route template.
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if m == nil {
				return next(c)
			}
			start := time.Now()
			err := next(c)

			status := c.Response().Status
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
			}
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			m.requestDuration.
				WithLabelValues(c.Request().Method, route, strconv.Itoa(status)).
				Observe(time.Since(start).Seconds())
			return err
		}
	}
}
