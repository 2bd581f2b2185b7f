// Package metrics holds the Prometheus collectors for clustering runs.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	runCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cellcluster",
			Subsystem: "runs",
			Name:      "total",
			Help:      "Total clustering runs by outcome.",
		}, []string{"outcome"})
	RunSucceeded = runCounter.WithLabelValues("ok")
	RunRejected  = runCounter.WithLabelValues("rejected")

	PointsClustered = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "cellcluster",
			Subsystem: "runs",
			Name:      "points_total",
			Help:      "Total points labeled across all runs.",
		})

	ClustersPerRun = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "cellcluster",
			Subsystem: "runs",
			Name:      "clusters",
			Help:      "Number of clusters found per run.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 10),
		})

	LabelDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "cellcluster",
			Subsystem: "runs",
			Name:      "label_duration_seconds",
			Help:      "Time spent binning and labeling a run.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
		})

	RunsCached = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "cellcluster",
			Subsystem: "runs",
			Name:      "cached",
			Help:      "Runs currently held in memory.",
		})
)

// Register adds every collector to reg.
func Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{
		runCounter, PointsClustered, ClustersPerRun, LabelDuration, RunsCached,
	} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// ObserveRun records a completed run.
func ObserveRun(points, clusters int, took time.Duration) {
	RunSucceeded.Inc()
	PointsClustered.Add(float64(points))
	ClustersPerRun.Observe(float64(clusters))
	LabelDuration.Observe(took.Seconds())
}
