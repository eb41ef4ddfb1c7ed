package storage

import "time"

type Task struct {
	ID                  string
	BoardID             string
	Title               string
	Description         string
	Status              string
	Priority            string
	ScheduledAt         *time.Time
	Timezone            string
	TimeEstimateMinutes int
	TimeSpentMinutes    int
	ProgressPercentage  int
	Tags                []string
	CompletedAt         *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

type RecurrenceRule struct {
	TaskID        string
	Pattern       string
	IntervalValue int
	DaysOfWeek    []int
	DaysOfMonth   []int
	MonthsOfYear  []int
	EndDate       *time.Time
	CreatedAt     time.Time
}

type Completion struct {
	Identity    string
	TemplateID  string
	Day         string
	Completed   bool
	CompletedAt *time.Time
	UpdatedAt   time.Time
}

type TaskListFilter struct {
	BoardID   string
	Status    string
	Recurring *bool
	Limit     int
	Offset    int
}
