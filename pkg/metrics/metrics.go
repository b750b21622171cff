package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/quarrydirect/portal/internal/common/config"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry   *prometheus.Registry
	namespace  string
	httpReqCnt *prometheus.CounterVec
	httpDur    *prometheus.HistogramVec
	httpInfl   *prometheus.GaugeVec
	loginCnt   *prometheus.CounterVec
	otpSendCnt *prometheus.CounterVec
	otpVerCnt  *prometheus.CounterVec
	sessValCnt *prometheus.CounterVec
	sessIssCnt prometheus.Counter
	sessRevCnt prometheus.Counter
}

func New(cfg config.MetricsConfig) *Metrics {
	ns := cfg.Namespace
	r := prometheus.NewRegistry()
	// Register standard process and Go collectors
	r.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	r.MustRegister(collectors.NewGoCollector())

	// Register basic HTTP metrics
	httpReqCnt := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: ns, Name: "http_requests_total"}, []string{"method", "route", "status"})
	httpDur := prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: ns, Name: "http_request_duration_seconds", Buckets: cfg.Buckets}, []string{"method", "route", "status"})
	httpInfl := prometheus.NewGaugeVec(prometheus.GaugeOpts{Namespace: ns, Name: "http_requests_inflight"}, []string{"route"})
	r.MustRegister(httpReqCnt, httpDur, httpInfl)

	loginCnt := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: ns, Name: "logins_total"}, []string{"method", "outcome"})
	otpSendCnt := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: ns, Name: "otp_sends_total"}, []string{"outcome"})
	otpVerCnt := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: ns, Name: "otp_verifications_total"}, []string{"outcome"})
	sessValCnt := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: ns, Name: "session_validations_total"}, []string{"outcome"})
	// A counter pair rather than a live-session gauge: re-login displaces the
	// prior session server-side and expiry is passive, so issues minus
	// explicit revokes never equals the number of live sessions.
	sessIssCnt := prometheus.NewCounter(prometheus.CounterOpts{Namespace: ns, Name: "sessions_issued_total"})
	sessRevCnt := prometheus.NewCounter(prometheus.CounterOpts{Namespace: ns, Name: "sessions_revoked_total"})
	r.MustRegister(loginCnt, otpSendCnt, otpVerCnt, sessValCnt, sessIssCnt, sessRevCnt)

	return &Metrics{
		registry:   r,
		namespace:  ns,
		httpReqCnt: httpReqCnt,
		httpDur:    httpDur,
		httpInfl:   httpInfl,
		loginCnt:   loginCnt,
		otpSendCnt: otpSendCnt,
		otpVerCnt:  otpVerCnt,
		sessValCnt: sessValCnt,
		sessIssCnt: sessIssCnt,
		sessRevCnt: sessRevCnt,
	}
}

func (m *Metrics) Login(method, outcome string) {
	m.loginCnt.WithLabelValues(method, outcome).Inc()
}

func (m *Metrics) OTPSend(outcome string) {
	m.otpSendCnt.WithLabelValues(outcome).Inc()
}

func (m *Metrics) OTPVerify(outcome string) {
	m.otpVerCnt.WithLabelValues(outcome).Inc()
}

func (m *Metrics) SessionValidation(outcome string) {
	m.sessValCnt.WithLabelValues(outcome).Inc()
}

func (m *Metrics) SessionIssued()  { m.sessIssCnt.Inc() }
func (m *Metrics) SessionRevoked() { m.sessRevCnt.Inc() }

func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		m.httpInfl.WithLabelValues(route).Inc()
		start := time.Now()
		c.Next()
		status := httpStatus(c.Writer.Status())
		m.httpReqCnt.WithLabelValues(c.Request.Method, route, status).Inc()
		m.httpDur.WithLabelValues(c.Request.Method, route, status).Observe(time.Since(start).Seconds())
		m.httpInfl.WithLabelValues(route).Dec()
	}
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func httpStatus(code int) string { return strconv.Itoa(code) }
