package metrics

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	SlowQueries = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "microblog",
		Name:      "slow_queries_total",
		Help:      "Database statements slower than the configured threshold.",
	})

	FollowOps = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "microblog",
		Name:      "follow_ops_total",
		Help:      "Follow graph mutations by operation and outcome.",
	}, []string{"op", "result"})

	PostOps = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "microblog",
		Name:      "post_ops_total",
		Help:      "Post store mutations by operation and outcome.",
	}, []string{"op", "result"})

	IndexEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "microblog",
		Name:      "index_events_total",
		Help:      "Search outbox events applied by the index worker.",
	}, []string{"op", "result"})

	IndexLag = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "microblog",
		Name:      "index_lag_seconds",
		Help:      "Delay between an outbox event being written and being applied to the search index.",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
	})

	NotifyDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "microblog",
		Name:      "notify_dropped_total",
		Help:      "Follow notifications dropped because the dispatch queue was full.",
	})
)

// Handler 暴露 /metrics
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) { h.ServeHTTP(c.Writer, c.Request) }
}

// Result 把 error 映射为标签值
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
