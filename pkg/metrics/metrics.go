// Package metrics exposes prometheus collectors for the detection pipeline.
//
// Collectors are created by Init. Until then every helper is a no-op, so
// packages can record unconditionally and tests need no registry.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "depthguard_"

	ResultOK      = "ok"
	ResultError   = "error"
	ResultSkipped = "skipped"
	ResultDropped = "dropped"

	EdgeNear = "near"
	EdgeFar  = "far"
)

var (
	registerOnce sync.Once

	framesTotal     *prometheus.CounterVec
	frameLatency    prometheus.Histogram
	distanceMeters  prometheus.Gauge
	transitions     *prometheus.CounterVec
	beepsTotal      *prometheus.CounterVec
	announcements   *prometheus.CounterVec
	alertActive     prometheus.Gauge
	repeatInterval  prometheus.Gauge
	ingestConnected prometheus.Gauge
)

// Init creates the collectors and registers them with reg.
// A nil reg uses the default prometheus registry.
func Init(reg prometheus.Registerer) {
	registerOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}

		framesTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "frames_total",
				Help: "Depth frames by processing result",
			},
			[]string{"result"},
		)
		frameLatency = prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "frame_processing_seconds",
				Help:    "Time spent sampling and evaluating one depth frame",
				Buckets: []float64{.0001, .0005, .001, .0025, .005, .01, .025, .05},
			},
		)
		distanceMeters = prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: metricPrefix + "distance_meters",
				Help: "Most recent rounded minimum distance in the region of interest",
			},
		)
		transitions = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "proximity_transitions_total",
				Help: "Proximity state edges by new state",
			},
			[]string{"edge"},
		)
		beepsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "beeps_total",
				Help: "Alert cue playbacks by result",
			},
			[]string{"result"},
		)
		announcements = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "announcements_total",
				Help: "Spoken announcements by result",
			},
			[]string{"result"},
		)
		alertActive = prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: metricPrefix + "alert_session_active",
				Help: "1 while an alert session is cycling audio",
			},
		)
		repeatInterval = prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: metricPrefix + "repeat_interval_seconds",
				Help: "Current pause between alert cues",
			},
		)
		ingestConnected = prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: metricPrefix + "ingest_connections",
				Help: "Connected depth frame sources",
			},
		)

		reg.MustRegister(
			framesTotal,
			frameLatency,
			distanceMeters,
			transitions,
			beepsTotal,
			announcements,
			alertActive,
			repeatInterval,
			ingestConnected,
		)
	})
}

// ObserveFrame records one frame outcome and, for processed frames, its latency.
func ObserveFrame(result string, duration time.Duration) {
	if framesTotal != nil {
		framesTotal.WithLabelValues(result).Inc()
	}
	if frameLatency != nil && result == ResultOK {
		frameLatency.Observe(duration.Seconds())
	}
}

// SetDistance records the latest reading.
func SetDistance(meters float64) {
	if distanceMeters != nil {
		distanceMeters.Set(meters)
	}
}

// IncTransition counts a proximity edge.
func IncTransition(edge string) {
	if transitions != nil {
		transitions.WithLabelValues(edge).Inc()
	}
}

// IncBeep counts a cue playback attempt.
func IncBeep(result string) {
	if beepsTotal != nil {
		beepsTotal.WithLabelValues(result).Inc()
	}
}

// IncAnnouncement counts a speech request.
func IncAnnouncement(result string) {
	if announcements != nil {
		announcements.WithLabelValues(result).Inc()
	}
}

// SetAlertActive records whether a session is running and its cadence.
func SetAlertActive(active bool, interval time.Duration) {
	if alertActive != nil {
		if active {
			alertActive.Set(1)
		} else {
			alertActive.Set(0)
		}
	}
	if repeatInterval != nil {
		repeatInterval.Set(interval.Seconds())
	}
}

// AddIngestConnection adjusts the connected frame source count.
func AddIngestConnection(delta int) {
	if ingestConnected != nil {
		ingestConnected.Add(float64(delta))
	}
}
