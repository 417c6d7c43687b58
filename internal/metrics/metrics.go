package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	SchedulerRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "teampost_scheduler_runs_total",
		Help: "Scheduler batch runs by result",
	}, []string{"result"})

	SchedulesProcessed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "teampost_schedules_processed_total",
		Help: "Schedules processed by outcome",
	}, []string{"outcome"})

	SchedulerBatchSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "teampost_scheduler_batch_seconds",
		Help:    "Duration of one scheduler batch",
		Buckets: prometheus.DefBuckets,
	})

	LinkedinPublishSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "teampost_linkedin_publish_seconds",
		Help:    "Duration of LinkedIn publish calls",
		Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 20, 30},
	}, []string{"status"})

	SlackNotifications = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "teampost_slack_notifications_total",
		Help: "Slack notifications delivered by status",
	}, []string{"status"})

	TokenRefreshes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "teampost_linkedin_token_refresh_total",
		Help: "LinkedIn token refresh attempts by status",
	}, []string{"status"})
)

// MustRegister registers every collector of the service.
func MustRegister(registerer prometheus.Registerer) {
	registerer.MustRegister(
		SchedulerRuns,
		SchedulesProcessed,
		SchedulerBatchSeconds,
		LinkedinPublishSeconds,
		SlackNotifications,
		TokenRefreshes,
	)
}

func ObservePublish(start time.Time, success bool) {
	LinkedinPublishSeconds.WithLabelValues(status(success)).Observe(time.Since(start).Seconds())
}

func ObserveOutcome(success bool) {
	if success {
		SchedulesProcessed.WithLabelValues("completed").Inc()
		return
	}
	SchedulesProcessed.WithLabelValues("failed").Inc()
}

func ObserveSlack(err error) {
	SlackNotifications.WithLabelValues(status(err == nil)).Inc()
}

func ObserveTokenRefresh(err error) {
	TokenRefreshes.WithLabelValues(status(err == nil)).Inc()
}

func status(ok bool) string {
	if ok {
		return "success"
	}
	return "error"
}
