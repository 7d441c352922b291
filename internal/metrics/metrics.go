package metrics

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 进程内计数器：prometheus 指标 + 一份给 /metrics JSON 用的累计值。
// 实现 matchmaker.Recorder
type Metrics struct {
	registry *prometheus.Registry
	adminKey string
	upSince  time.Time

	joins       *prometheus.CounterVec
	matches     *prometheus.CounterVec
	disconnects *prometheus.CounterVec
	visits      prometheus.Counter
	waiting     *prometheus.GaugeVec
	searchTime  *prometheus.HistogramVec

	totalVisits      atomic.Int64
	totalQueueStarts atomic.Int64
	totalMatches     atomic.Int64
	totalDisconnects atomic.Int64
}

// Summary GET /metrics 的返回体
type Summary struct {
	TotalVisits      int64     `json:"totalVisits"`
	TotalQueueStarts int64     `json:"totalQueueStarts"`
	TotalMatches     int64     `json:"totalMatches"`
	TotalDisconnects int64     `json:"totalDisconnects"`
	UpSince          time.Time `json:"upSince"`
}

func New(registry *prometheus.Registry, adminKey string) *Metrics {
	factory := promauto.With(registry)
	return &Metrics{
		registry: registry,
		adminKey: adminKey,
		upSince:  time.Now().UTC(),

		joins: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "nightreign_queue_joins_total",
			Help: "Join requests accepted into the waiting queue",
		}, []string{"platform"}),
		matches: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "nightreign_matches_total",
			Help: "Parties formed",
		}, []string{"platform"}),
		disconnects: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "nightreign_disconnects_total",
			Help: "Disconnect requests, labelled by whether a waiting entry was removed",
		}, []string{"removed"}),
		visits: factory.NewCounter(prometheus.CounterOpts{
			Name: "nightreign_visits_total",
			Help: "Frontend page loads",
		}),
		waiting: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "nightreign_waiting_players",
			Help: "Players currently waiting per platform",
		}, []string{"platform"}),
		//nolint:promlinter
		searchTime: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "nightreign_match_search_elapsed_time_ms",
			Help:    "Time spent inside the enqueue/search critical section in milliseconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 14),
		}, []string{"platform"}),
	}
}

func (m *Metrics) JoinSubmitted(platform string) {
	m.totalQueueStarts.Add(1)
	m.joins.With(prometheus.Labels{"platform": platform}).Inc()
}

func (m *Metrics) MatchFormed(platform string, search time.Duration) {
	m.totalMatches.Add(1)
	m.matches.With(prometheus.Labels{"platform": platform}).Inc()
	m.searchTime.With(prometheus.Labels{"platform": platform}).Observe(float64(search.Microseconds()) / 1000)
}

func (m *Metrics) Disconnected(removed bool) {
	m.totalDisconnects.Add(1)
	label := "false"
	if removed {
		label = "true"
	}
	m.disconnects.With(prometheus.Labels{"removed": label}).Inc()
}

func (m *Metrics) WaitingPlayers(platform string, n int) {
	m.waiting.With(prometheus.Labels{"platform": platform}).Set(float64(n))
}

func (m *Metrics) Snapshot() Summary {
	return Summary{
		TotalVisits:      m.totalVisits.Load(),
		TotalQueueStarts: m.totalQueueStarts.Load(),
		TotalMatches:     m.totalMatches.Load(),
		TotalDisconnects: m.totalDisconnects.Load(),
		UpSince:          m.upSince,
	}
}

// POST /metrics/visit  前端每次加载页面调用一次
func (m *Metrics) Visit(c *gin.Context) {
	m.totalVisits.Add(1)
	m.visits.Inc()
	c.Status(http.StatusNoContent)
}

// GET /metrics  配置了 admin key 时需要 x-admin-key 头
func (m *Metrics) Summary(c *gin.Context) {
	if m.adminKey != "" && c.GetHeader("x-admin-key") != m.adminKey {
		c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
		return
	}
	c.JSON(http.StatusOK, m.Snapshot())
}

// GET /metrics/prometheus
func (m *Metrics) Prometheus() gin.HandlerFunc {
	return gin.WrapH(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
}
