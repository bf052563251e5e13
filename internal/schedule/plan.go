// Package schedule turns prompt schedules into presented notifications.
package schedule

import (
	"fmt"
	"time"

	"github.com/nhle/fusion-prompts/internal/model"
)

const clockLayout = "15:04"

// Plan returns the trigger times of a schedule on the calendar day that
// contains day, in day's location. CountPerDay triggers are spread evenly
// from StartTime to EndTime inclusive; a single trigger fires at StartTime.
// Days the schedule does not enable yield no triggers.
func Plan(s model.NotificationSchedule, day time.Time) ([]time.Time, error) {
	start, err := time.Parse(clockLayout, s.StartTime)
	if err != nil {
		return nil, fmt.Errorf("parsing start time %q: %w", s.StartTime, err)
	}
	end, err := time.Parse(clockLayout, s.EndTime)
	if err != nil {
		return nil, fmt.Errorf("parsing end time %q: %w", s.EndTime, err)
	}
	if end.Before(start) {
		return nil, fmt.Errorf("end time %s is before start time %s", s.EndTime, s.StartTime)
	}

	if s.CountPerDay <= 0 || !s.Days[day.Weekday().String()] {
		return nil, nil
	}

	midnight := startOfDay(day)
	first := at(midnight, start)
	window := at(midnight, end).Sub(first)

	times := make([]time.Time, 0, s.CountPerDay)
	for i := 0; i < s.CountPerDay; i++ {
		var offset time.Duration
		if s.CountPerDay > 1 {
			offset = window * time.Duration(i) / time.Duration(s.CountPerDay-1)
		}
		times = append(times, first.Add(offset).Truncate(time.Second))
	}
	return times, nil
}

// promptSchedule adapts a prompt's daily plan to cron.Schedule.
type promptSchedule struct {
	sched model.NotificationSchedule
}

// Next returns the first trigger strictly after t, looking a week ahead. The
// zero time means the prompt never fires, which cron treats as inactive.
func (p promptSchedule) Next(t time.Time) time.Time {
	day := t
	for i := 0; i < 8; i++ {
		times, err := Plan(p.sched, day)
		if err != nil {
			return time.Time{}
		}
		for _, tt := range times {
			if tt.After(t) {
				return tt
			}
		}
		day = startOfDay(day).AddDate(0, 0, 1)
	}
	return time.Time{}
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func at(midnight, clock time.Time) time.Time {
	y, m, d := midnight.Date()
	return time.Date(y, m, d, clock.Hour(), clock.Minute(), 0, 0, midnight.Location())
}
