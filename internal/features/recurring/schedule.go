package recurring

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Validate fails fast on configuration a run could not interpret. Called at
// job create/update time, never at run time.
func (s Schedule) Validate() error {
	if _, _, err := s.clock(); err != nil {
		return err
	}

	switch s.Type {
	case ScheduleDaily:
	case ScheduleWeekly:
		if s.DayOfWeek == nil || *s.DayOfWeek < 0 || *s.DayOfWeek > 6 {
			return fmt.Errorf("weekly schedule requires day_of_week between 0 and 6")
		}
	case ScheduleMonthly, ScheduleQuarterly:
		if err := s.validateDayOfMonth(); err != nil {
			return err
		}
	case ScheduleYearly:
		if err := s.validateDayOfMonth(); err != nil {
			return err
		}
		if s.MonthOfYear == nil || *s.MonthOfYear < 1 || *s.MonthOfYear > 12 {
			return fmt.Errorf("yearly schedule requires month_of_year between 1 and 12")
		}
	default:
		return fmt.Errorf("unknown schedule type: %s", s.Type)
	}

	if _, err := s.location(); err != nil {
		return err
	}
	return nil
}

func (s Schedule) validateDayOfMonth() error {
	if s.DayOfMonth == nil || *s.DayOfMonth < 1 || *s.DayOfMonth > 31 {
		return fmt.Errorf("%s schedule requires day_of_month between 1 and 31", s.Type)
	}
	return nil
}

func (s Schedule) clock() (hour, minute int, err error) {
	parts := strings.Split(s.Time, ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("schedule time must be HH:MM, got %q", s.Time)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("schedule time must be HH:MM, got %q", s.Time)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("schedule time must be HH:MM, got %q", s.Time)
	}
	return hour, minute, nil
}

func (s Schedule) location() (*time.Location, error) {
	if s.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return nil, fmt.Errorf("unknown timezone %q", s.Timezone)
	}
	return loc, nil
}

// CalculateNextRun returns the first occurrence of the schedule strictly
// after now. Assumes the schedule already passed Validate.
func CalculateNextRun(s Schedule, now time.Time) (time.Time, error) {
	hour, minute, err := s.clock()
	if err != nil {
		return time.Time{}, err
	}
	loc, err := s.location()
	if err != nil {
		return time.Time{}, err
	}
	local := now.In(loc)

	switch s.Type {
	case ScheduleDaily:
		next := time.Date(local.Year(), local.Month(), local.Day(), hour, minute, 0, 0, loc)
		if !next.After(now) {
			next = next.AddDate(0, 0, 1)
		}
		return next, nil

	case ScheduleWeekly:
		days := (*s.DayOfWeek - int(local.Weekday()) + 7) % 7
		next := time.Date(local.Year(), local.Month(), local.Day()+days, hour, minute, 0, 0, loc)
		if !next.After(now) {
			next = next.AddDate(0, 0, 7)
		}
		return next, nil

	case ScheduleMonthly:
		return rollMonths(local, now, *s.DayOfMonth, hour, minute, loc, int(local.Month()), 1), nil

	case ScheduleQuarterly:
		startMonth := int(local.Month())
		if s.MonthOfYear != nil {
			startMonth = *s.MonthOfYear
		}
		return rollMonths(local, now, *s.DayOfMonth, hour, minute, loc, startMonth, 3), nil

	case ScheduleYearly:
		next := time.Date(local.Year(), time.Month(*s.MonthOfYear), *s.DayOfMonth, hour, minute, 0, 0, loc)
		for !next.After(now) {
			next = time.Date(next.Year()+1, time.Month(*s.MonthOfYear), *s.DayOfMonth, hour, minute, 0, 0, loc)
		}
		return next, nil

	default:
		return time.Time{}, fmt.Errorf("unknown schedule type: %s", s.Type)
	}
}

// rollMonths anchors at day-of-month in startMonth of the current year and
// steps forward until strictly after now. time.Date normalizes overflowing
// days (Feb 30 lands in early March).
func rollMonths(local, now time.Time, day, hour, minute int, loc *time.Location, startMonth, step int) time.Time {
	next := time.Date(local.Year(), time.Month(startMonth), day, hour, minute, 0, 0, loc)
	for !next.After(now) {
		next = next.AddDate(0, step, 0)
	}
	return next
}
