package plan

import "time"

// DateLayout is the calendar-date format used for plan boundaries.
const DateLayout = "2006-01-02"

// WeeklyPlan is a user's selection of ideas for one week.
type WeeklyPlan struct {
	ID            int64     `json:"id"`
	UserID        int64     `json:"user_id"`
	WeekStartDate string    `json:"week_start_date"`
	WeekEndDate   string    `json:"week_end_date"`
	IdeaIDs       []int64   `json:"ideas_ids"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Input carries the client-supplied fields of a weekly plan.
type Input struct {
	WeekStartDate string  `json:"week_start_date"`
	WeekEndDate   string  `json:"week_end_date"`
	IdeaIDs       []int64 `json:"ideas_ids"`
}
