package recurring

import (
	"testing"
	"time"
)

func intPtr(v int) *int { return &v }

func TestCalculateNextRun(t *testing.T) {
	// Monday 2025-06-02 10:00 UTC.
	monday := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		schedule Schedule
		now      time.Time
		want     time.Time
	}{
		{
			name:     "daily before time today",
			schedule: Schedule{Type: ScheduleDaily, Time: "14:30"},
			now:      monday,
			want:     time.Date(2025, 6, 2, 14, 30, 0, 0, time.UTC),
		},
		{
			name:     "daily time already passed",
			schedule: Schedule{Type: ScheduleDaily, Time: "08:00"},
			now:      monday,
			want:     time.Date(2025, 6, 3, 8, 0, 0, 0, time.UTC),
		},
		{
			name:     "daily exactly at schedule time rolls forward",
			schedule: Schedule{Type: ScheduleDaily, Time: "10:00"},
			now:      monday,
			want:     time.Date(2025, 6, 3, 10, 0, 0, 0, time.UTC),
		},
		{
			name:     "weekly Wednesday from Monday",
			schedule: Schedule{Type: ScheduleWeekly, Time: "08:00", DayOfWeek: intPtr(3)},
			now:      monday,
			want:     time.Date(2025, 6, 4, 8, 0, 0, 0, time.UTC),
		},
		{
			name:     "weekly same day time passed rolls a week",
			schedule: Schedule{Type: ScheduleWeekly, Time: "08:00", DayOfWeek: intPtr(1)},
			now:      monday,
			want:     time.Date(2025, 6, 9, 8, 0, 0, 0, time.UTC),
		},
		{
			name:     "weekly same day time ahead",
			schedule: Schedule{Type: ScheduleWeekly, Time: "18:00", DayOfWeek: intPtr(1)},
			now:      monday,
			want:     time.Date(2025, 6, 2, 18, 0, 0, 0, time.UTC),
		},
		{
			name:     "monthly ahead in current month",
			schedule: Schedule{Type: ScheduleMonthly, Time: "09:00", DayOfMonth: intPtr(15)},
			now:      monday,
			want:     time.Date(2025, 6, 15, 9, 0, 0, 0, time.UTC),
		},
		{
			name:     "monthly already passed rolls to next month",
			schedule: Schedule{Type: ScheduleMonthly, Time: "09:00", DayOfMonth: intPtr(1)},
			now:      monday,
			want:     time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC),
		},
		{
			name:     "quarterly steps three months",
			schedule: Schedule{Type: ScheduleQuarterly, Time: "06:00", DayOfMonth: intPtr(1), MonthOfYear: intPtr(1)},
			now:      monday,
			want:     time.Date(2025, 7, 1, 6, 0, 0, 0, time.UTC),
		},
		{
			name:     "yearly rolls to next year",
			schedule: Schedule{Type: ScheduleYearly, Time: "00:30", DayOfMonth: intPtr(1), MonthOfYear: intPtr(4)},
			now:      monday,
			want:     time.Date(2026, 4, 1, 0, 30, 0, 0, time.UTC),
		},
		{
			name:     "yearly still ahead this year",
			schedule: Schedule{Type: ScheduleYearly, Time: "00:30", DayOfMonth: intPtr(31), MonthOfYear: intPtr(12)},
			now:      monday,
			want:     time.Date(2025, 12, 31, 0, 30, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CalculateNextRun(tt.schedule, tt.now)
			if err != nil {
				t.Fatalf("CalculateNextRun returned error: %v", err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
			if !got.After(tt.now) {
				t.Errorf("next run %v is not strictly after now %v", got, tt.now)
			}
		})
	}
}

func TestCalculateNextRunHonorsTimezone(t *testing.T) {
	// 2025-06-02 23:30 UTC is already 01:30 June 3 in Berlin (CEST).
	now := time.Date(2025, 6, 2, 23, 30, 0, 0, time.UTC)
	schedule := Schedule{Type: ScheduleDaily, Time: "01:00", Timezone: "Europe/Berlin"}

	got, err := CalculateNextRun(schedule, now)
	if err != nil {
		t.Fatalf("CalculateNextRun returned error: %v", err)
	}

	berlin, _ := time.LoadLocation("Europe/Berlin")
	want := time.Date(2025, 6, 4, 1, 0, 0, 0, berlin)
	if !got.Equal(want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestScheduleValidate(t *testing.T) {
	tests := []struct {
		name     string
		schedule Schedule
		wantErr  bool
	}{
		{name: "valid daily", schedule: Schedule{Type: ScheduleDaily, Time: "08:00"}},
		{name: "valid weekly", schedule: Schedule{Type: ScheduleWeekly, Time: "08:00", DayOfWeek: intPtr(0)}},
		{name: "weekly missing day", schedule: Schedule{Type: ScheduleWeekly, Time: "08:00"}, wantErr: true},
		{name: "weekly day out of range", schedule: Schedule{Type: ScheduleWeekly, Time: "08:00", DayOfWeek: intPtr(7)}, wantErr: true},
		{name: "monthly missing day", schedule: Schedule{Type: ScheduleMonthly, Time: "08:00"}, wantErr: true},
		{name: "quarterly valid", schedule: Schedule{Type: ScheduleQuarterly, Time: "08:00", DayOfMonth: intPtr(1)}},
		{name: "yearly missing month", schedule: Schedule{Type: ScheduleYearly, Time: "08:00", DayOfMonth: intPtr(1)}, wantErr: true},
		{name: "bad time", schedule: Schedule{Type: ScheduleDaily, Time: "8am"}, wantErr: true},
		{name: "hour out of range", schedule: Schedule{Type: ScheduleDaily, Time: "24:00"}, wantErr: true},
		{name: "unknown type", schedule: Schedule{Type: "hourly", Time: "08:00"}, wantErr: true},
		{name: "unknown timezone", schedule: Schedule{Type: ScheduleDaily, Time: "08:00", Timezone: "Mars/Olympus"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.schedule.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
