package main

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	loginsScored = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "loginrisk", Subsystem: "scoring", Name: "logins_total",
			Help: "Logins scored, by risk band."},
		[]string{"band"},
	)
	impossibleTravelTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "loginrisk", Subsystem: "scoring", Name: "impossible_travel_total",
			Help: "Logins flagged as impossible travel."},
	)
	scoringLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{Namespace: "loginrisk", Subsystem: "scoring", Name: "latency_seconds",
			Help: "End-to-end login scoring latency."},
	)
	snapshotsStored = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "loginrisk", Subsystem: "biometrics", Name: "snapshots_total",
			Help: "Biometrics snapshots stored."},
	)
	botSessionsDetected = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "loginrisk", Subsystem: "biometrics", Name: "bot_sessions_total",
			Help: "Sessions whose bot score crossed the alert threshold."},
	)
)

func init() {
	_ = prometheus.Register(loginsScored)
	_ = prometheus.Register(impossibleTravelTotal)
	_ = prometheus.Register(scoringLatency)
	_ = prometheus.Register(snapshotsStored)
	_ = prometheus.Register(botSessionsDetected)
}
