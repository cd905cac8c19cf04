package services

import (
	"time"
)

type TimingClass string

const (
	TimingOnTime   TimingClass = "on_time"
	TimingOverdue  TimingClass = "overdue"
	TimingCritical TimingClass = "critical"
)

const (
	defaultEstimate = 20
	criticalGrace   = 10
)

type Timing struct {
	ElapsedMinutes   int         `json:"elapsed_minutes"`
	EstimatedMinutes int         `json:"estimated_minutes"`
	Class            TimingClass `json:"class"`
}

// ClassifyTiming compares minutes since creation with the estimate. It is advisory
// and drives display only.
func ClassifyTiming(createdAt time.Time, estimated *int, now time.Time) Timing {
	est := defaultEstimate
	if estimated != nil && *estimated > 0 {
		est = *estimated
	}
	elapsed := int(now.Sub(createdAt) / time.Minute)
	if elapsed < 0 {
		elapsed = 0
	}

	class := TimingOnTime
	switch {
	case elapsed > est+criticalGrace:
		class = TimingCritical
	case elapsed > est:
		class = TimingOverdue
	}
	return Timing{ElapsedMinutes: elapsed, EstimatedMinutes: est, Class: class}
}
