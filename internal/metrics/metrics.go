// Package metrics provides Prometheus metrics for the animation engine
// and its event sources.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	schedulerTicks = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "glownode",
		Subsystem: "scheduler",
		Name:      "ticks_total",
		Help:      "Scheduler ticks executed",
	})

	schedulerFrames = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "glownode",
		Subsystem: "scheduler",
		Name:      "frames_total",
		Help:      "Frames rendered per animation",
	}, []string{"animation"})

	schedulerFaults = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "glownode",
		Subsystem: "scheduler",
		Name:      "faults_total",
		Help:      "Peripheral write failures that stopped the scheduler",
	})

	animationActive = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "glownode",
		Subsystem: "animation",
		Name:      "active",
		Help:      "1 for the animation currently rendered, 0 otherwise",
	}, []string{"animation"})

	eventsReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "glownode",
		Subsystem: "events",
		Name:      "received_total",
		Help:      "Lifecycle events received by name and source",
	}, []string{"event", "source"})

	progressPercent = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "glownode",
		Name:      "progress_percent",
		Help:      "Last print progress received",
	})

	printerPollErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "glownode",
		Subsystem: "printer",
		Name:      "poll_errors_total",
		Help:      "Failed printer status polls",
	}, []string{"kind"})

	// Local copy of the counters for the JSON API.
	summary   Summary
	summaryMu sync.RWMutex
)

// Summary holds current counter values.
type Summary struct {
	Ticks      uint64
	Faults     uint64
	Events     uint64
	PollErrors uint64
	Active     string
}

// IncTicks counts one scheduler tick.
func IncTicks() {
	schedulerTicks.Inc()
	updateSummary(func(s *Summary) { s.Ticks++ })
}

// IncFrames counts one rendered frame of an animation.
func IncFrames(animation string) {
	schedulerFrames.WithLabelValues(animation).Inc()
}

// IncFaults counts a fatal peripheral failure.
func IncFaults() {
	schedulerFaults.Inc()
	updateSummary(func(s *Summary) { s.Faults++ })
}

// SetActiveAnimation flips the active gauge from the previous animation
// to the new one.
func SetActiveAnimation(from, to string) {
	if from != "" {
		animationActive.WithLabelValues(from).Set(0)
	}
	animationActive.WithLabelValues(to).Set(1)
	updateSummary(func(s *Summary) { s.Active = to })
}

// IncEvents counts an inbound lifecycle event.
func IncEvents(event, source string) {
	eventsReceived.WithLabelValues(event, source).Inc()
	updateSummary(func(s *Summary) { s.Events++ })
}

// SetProgress records the last progress value.
func SetProgress(percent int) {
	progressPercent.Set(float64(percent))
}

// IncPollErrors counts a failed printer poll.
func IncPollErrors(kind string) {
	printerPollErrors.WithLabelValues(kind).Inc()
	updateSummary(func(s *Summary) { s.PollErrors++ })
}

// GetSummary returns a copy of the current counters.
func GetSummary() Summary {
	summaryMu.RLock()
	defer summaryMu.RUnlock()
	return summary
}

// Handler returns the Prometheus metrics HTTP handler.
// This collects all promauto-registered metrics automatically.
func Handler() http.Handler {
	return promhttp.Handler()
}

func updateSummary(update func(*Summary)) {
	summaryMu.Lock()
	defer summaryMu.Unlock()
	update(&summary)
}
