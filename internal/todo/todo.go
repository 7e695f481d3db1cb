package todo

import "time"

// Todo is a single task on a user's list.
//
// Every todo is owned by exactly one user. The owner reference is set on
// creation and never changes.
type Todo struct {
	ID          int
	Title       string
	Description string
	IsCompleted bool
	OwnerID     int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Filter selects the subset of todos to display.
type Filter string

const (
	FilterAll        Filter = ""
	FilterComplete   Filter = "complete"
	FilterIncomplete Filter = "incomplete"
)

// ParseFilter interprets the raw filter query parameter. Unknown values
// select the full set, the same as no filter at all.
func ParseFilter(raw string) Filter {
	switch Filter(raw) {
	case FilterComplete:
		return FilterComplete
	case FilterIncomplete:
		return FilterIncomplete
	default:
		return FilterAll
	}
}

// Counts summarizes a user's full todo set. The counts are always
// computed over the unfiltered set, regardless of any display filter.
type Counts struct {
	Completed  int
	Incomplete int
	All        int
}
