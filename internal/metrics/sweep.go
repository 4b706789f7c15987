package metrics

import "time"

// SweepCompleted records a successful expiry sweeper pass.
func SweepCompleted(duration time.Duration) {
	SweepRunsTotal.WithLabelValues("completed").Inc()
	SweepDuration.Observe(duration.Seconds())
}

// SweepFailed records a sweeper pass that returned an error.
func SweepFailed() {
	SweepRunsTotal.WithLabelValues("failed").Inc()
}
