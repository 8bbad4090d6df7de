package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// TriggerType discriminates how an automation run is started.
type TriggerType string

const (
	TriggerTypeManual   TriggerType = "manual"
	TriggerTypeSchedule TriggerType = "schedule"
	// TriggerTypeEvent is reserved; no event source is wired, so event-triggered
	// automations only ever run via an explicit run-now.
	TriggerTypeEvent TriggerType = "event"
)

// ScheduleFrequency is the recurrence granularity of a schedule trigger.
type ScheduleFrequency string

const (
	FrequencyHourly ScheduleFrequency = "hourly"
	FrequencyDaily  ScheduleFrequency = "daily"
	FrequencyWeekly ScheduleFrequency = "weekly"
)

// DefaultScheduleTime matches the editor's default when no time was picked.
const DefaultScheduleTime = "08:00"

var ErrInvalidTrigger = errors.New("invalid trigger configuration")

// Trigger is the condition that starts a run.
type Trigger struct {
	Type     TriggerType     `json:"type" validate:"required,oneof=manual schedule event"`
	Schedule *ScheduleConfig `json:"schedule,omitempty"`
}

// ScheduleConfig describes a recurring trigger.
type ScheduleConfig struct {
	Frequency ScheduleFrequency `json:"frequency" validate:"required,oneof=hourly daily weekly"`
	Time      string            `json:"time,omitempty"`        // HH:MM, daily and weekly
	DayOfWeek int               `json:"day_of_week,omitempty"` // 0=Sunday..6=Saturday, weekly only
}

func (t *Trigger) Validate() error {
	switch t.Type {
	case TriggerTypeManual, TriggerTypeEvent:
		return nil
	case TriggerTypeSchedule:
		if t.Schedule == nil {
			return fmt.Errorf("%w: schedule trigger has no schedule config", ErrInvalidTrigger)
		}

		return t.Schedule.Validate()
	default:
		return fmt.Errorf("%w: unknown trigger type %q", ErrInvalidTrigger, t.Type)
	}
}

// NextOccurrence computes the next firing strictly after now, or nil for
// triggers that never auto-fire (manual and the reserved event type).
func (t *Trigger) NextOccurrence(now time.Time) *time.Time {
	if t.Type != TriggerTypeSchedule || t.Schedule == nil {
		return nil
	}

	schedule, err := cron.ParseStandard(t.Schedule.CronSpec())
	if err != nil {
		return nil
	}

	next := schedule.Next(now)

	return &next
}

func (sc *ScheduleConfig) Validate() error {
	switch sc.Frequency {
	case FrequencyHourly, FrequencyDaily, FrequencyWeekly:
	default:
		return fmt.Errorf("%w: unknown frequency %q", ErrInvalidTrigger, sc.Frequency)
	}

	if sc.Frequency == FrequencyWeekly && (sc.DayOfWeek < 0 || sc.DayOfWeek > 6) {
		return fmt.Errorf("%w: day_of_week %d out of range", ErrInvalidTrigger, sc.DayOfWeek)
	}

	if _, err := cron.ParseStandard(sc.CronSpec()); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidTrigger, err)
	}

	return nil
}

// CronSpec maps the frequency semantics onto a standard 5-field cron expression.
func (sc *ScheduleConfig) CronSpec() string {
	hour, minute := sc.timeOfDay()

	switch sc.Frequency {
	case FrequencyHourly:
		return "0 * * * *"
	case FrequencyDaily:
		return fmt.Sprintf("%d %d * * *", minute, hour)
	case FrequencyWeekly:
		return fmt.Sprintf("%d %d * * %d", minute, hour, sc.DayOfWeek)
	default:
		return ""
	}
}

// timeOfDay parses the configured HH:MM, falling back to the editor default
// when the field is empty or malformed rather than failing the schedule.
func (sc *ScheduleConfig) timeOfDay() (hour, minute int) {
	spec := sc.Time
	if spec == "" {
		spec = DefaultScheduleTime
	}

	parsed, err := time.Parse("15:04", spec)
	if err != nil {
		parsed, _ = time.Parse("15:04", DefaultScheduleTime)
	}

	return parsed.Hour(), parsed.Minute()
}
