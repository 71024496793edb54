package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is the write-only side channel the services report to.
// Implementations must never fail the caller.
type Recorder interface {
	PostCreated()
	VoteCast(voteType string)
	AuthAttempt(status string)
}

// Noop discards every observation
type Noop struct{}

func (Noop) PostCreated()       {}
func (Noop) VoteCast(string)    {}
func (Noop) AuthAttempt(string) {}

// Prometheus holds the application counters on a private registry
type Prometheus struct {
	Registry *prometheus.Registry

	newPosts      prometheus.Counter
	votes         *prometheus.CounterVec
	authAttempts  *prometheus.CounterVec
	httpRequests  *prometheus.CounterVec
	httpDurations *prometheus.HistogramVec
}

// New builds the registry with Go and process collectors plus the app metrics
func New() *Prometheus {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	p := &Prometheus{
		Registry: reg,
		newPosts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "new_posts_total",
			Help: "Total number of posts created",
		}),
		votes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "votes_total",
			Help: "Total number of votes cast",
		}, []string{"vote_type"}),
		authAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_attempts_total",
			Help: "Total number of authentication attempts",
		}, []string{"status"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "route", "status_code"}),
		httpDurations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_ms",
			Help:    "Duration of HTTP requests in milliseconds",
			Buckets: []float64{50, 100, 200, 300, 400, 500, 1000, 2000, 5000},
		}, []string{"method", "route", "status_code"}),
	}

	reg.MustRegister(p.newPosts, p.votes, p.authAttempts, p.httpRequests, p.httpDurations)
	return p
}

func (p *Prometheus) PostCreated() {
	p.newPosts.Inc()
}

func (p *Prometheus) VoteCast(voteType string) {
	p.votes.WithLabelValues(voteType).Inc()
}

func (p *Prometheus) AuthAttempt(status string) {
	p.authAttempts.WithLabelValues(status).Inc()
}

// Middleware counts and times every request by its route template
func (p *Prometheus) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		elapsed := float64(time.Since(start)) / float64(time.Millisecond)

		p.httpRequests.WithLabelValues(c.Request.Method, route, status).Inc()
		p.httpDurations.WithLabelValues(c.Request.Method, route, status).Observe(elapsed)
	}
}

// Handler exposes the registry in the Prometheus text format
func (p *Prometheus) Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.HandlerFor(p.Registry, promhttp.HandlerOpts{}))
}
