package event

import "time"

// TimeRemaining is the live countdown breakdown served to clients.
type TimeRemaining struct {
	Days         int  `json:"days"`
	Hours        int  `json:"hours"`
	Minutes      int  `json:"minutes"`
	Seconds      int  `json:"seconds"`
	TotalSeconds int  `json:"total_seconds"`
	Finished     bool `json:"finished"`
}

// Countdown computes the time remaining until the event's target date.
func Countdown(e Event, now time.Time) TimeRemaining {
	diff := e.TargetDate.Sub(now)
	if diff <= 0 {
		return TimeRemaining{Finished: true}
	}

	total := int(diff / time.Second)
	return TimeRemaining{
		Days:         total / 86400,
		Hours:        (total / 3600) % 24,
		Minutes:      (total / 60) % 60,
		Seconds:      total % 60,
		TotalSeconds: total,
	}
}
